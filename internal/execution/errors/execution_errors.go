package executionerrors

import (
	"net/http"

	"go-twk/internal/shared/apperror"
)

var (
	ErrNotExecutable = apperror.New(
		apperror.CodeInvalidState,
		"scenario must be approved before execution",
		http.StatusConflict,
	)

	ErrNoApprovedSnapshot = apperror.New(
		apperror.CodeInvalidState,
		"scenario has no approved simulation",
		http.StatusConflict,
	)

	ErrInvalidPayrollRunID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid payroll run id",
		http.StatusBadRequest,
	)

	// ErrPaymentFailed is reported per employee after retries are exhausted.
	ErrPaymentFailed = apperror.New(
		apperror.CodeExecutionFailed,
		"payment could not be created",
		http.StatusBadGateway,
	)

	ErrAlreadyPaid = apperror.New(
		apperror.CodeConflict,
		"results were paid by another execution",
		http.StatusConflict,
	)
)
