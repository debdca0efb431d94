package formulaerrors

import (
	"net/http"

	"go-twk/internal/shared/apperror"
)

// Compile-time and validation failures reject the rule being saved.
var (
	ErrEmptyExpression = apperror.New(
		apperror.CodeInvalidInput,
		"formula expression is empty",
		http.StatusBadRequest,
	)
	ErrExpressionTooLong = apperror.New(
		apperror.CodeInvalidInput,
		"formula expression is too long",
		http.StatusBadRequest,
	)
	ErrExpressionTooComplex = apperror.New(
		apperror.CodeInvalidInput,
		"formula expression is too deeply nested or too large",
		http.StatusBadRequest,
	)
	ErrSyntax = apperror.New(
		apperror.CodeInvalidInput,
		"formula syntax error",
		http.StatusBadRequest,
	)
	ErrUnknownIdentifier = apperror.New(
		apperror.CodeInvalidInput,
		"formula references an identifier outside the variable whitelist",
		http.StatusBadRequest,
	)
	ErrUnknownFunction = apperror.New(
		apperror.CodeInvalidInput,
		"formula calls a function outside the function whitelist",
		http.StatusBadRequest,
	)
	ErrArity = apperror.New(
		apperror.CodeInvalidInput,
		"formula function called with the wrong number of arguments",
		http.StatusBadRequest,
	)
	ErrDryRunFailed = apperror.New(
		apperror.CodeInvalidInput,
		"formula failed the dry-run against the sample context",
		http.StatusBadRequest,
	)
)

// Evaluation failures fail a single work unit and are collected into the
// batch error list.
var (
	ErrTypeMismatch = apperror.New(
		apperror.CodeFormulaEvaluation,
		"formula operand has the wrong type",
		http.StatusUnprocessableEntity,
	)
	ErrDivisionByZero = apperror.New(
		apperror.CodeFormulaEvaluation,
		"formula divides by zero",
		http.StatusUnprocessableEntity,
	)
	ErrNonNumericResult = apperror.New(
		apperror.CodeFormulaEvaluation,
		"formula did not produce a number",
		http.StatusUnprocessableEntity,
	)
	ErrOutOfRange = apperror.New(
		apperror.CodeFormulaEvaluation,
		"formula produced a number outside the supported range",
		http.StatusUnprocessableEntity,
	)
	ErrStepLimit = apperror.New(
		apperror.CodeFormulaEvaluation,
		"formula exceeded its evaluation step budget",
		http.StatusUnprocessableEntity,
	)
	ErrTimeout = apperror.New(
		apperror.CodeFormulaEvaluation,
		"formula evaluation timed out",
		http.StatusUnprocessableEntity,
	)
	ErrUnboundVariable = apperror.New(
		apperror.CodeFormulaEvaluation,
		"formula variable has no value in this context",
		http.StatusUnprocessableEntity,
	)
)
