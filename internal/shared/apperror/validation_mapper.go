package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// effective_date -> Effective Date
func formatFieldName(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	caser := cases.Title(language.English)
	return caser.String(s)
}

// MapValidationError turns a binding error into an INVALID_INPUT AppError
// describing the first failing field.
func MapValidationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		e := errs[0]
		field := formatFieldName(e.Field())

		switch e.Tag() {
		case "required":
			return RequiredField(field).WithDetails(map[string]string{"field": e.Field()})
		case "oneof":
			return New(
				CodeInvalidInput,
				fmt.Sprintf("%s must be one of [%s]", field, e.Param()),
				http.StatusBadRequest,
			).WithDetails(map[string]string{"field": e.Field()})
		default:
			return InvalidField(field).WithDetails(map[string]string{"field": e.Field(), "rule": e.Tag()})
		}
	}

	return New(
		CodeInvalidInput,
		"Invalid input",
		http.StatusBadRequest,
	).WithDetails(err.Error())
}
