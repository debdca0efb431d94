package historyerrors

import (
	"net/http"

	"go-twk/internal/shared/apperror"
)

var (
	// ErrDataGap marks an (employee, period) pair with no paid payroll. It is
	// reported as a warning and the pair is skipped.
	ErrDataGap = apperror.New(
		apperror.CodeDataGap,
		"no paid payroll recorded for employee in period",
		http.StatusUnprocessableEntity,
	)
	ErrHistoryUnavailable = apperror.New(
		apperror.CodeServiceUnavailable,
		"payroll history could not be read",
		http.StatusServiceUnavailable,
	)
)
