package joberrors

import (
	"net/http"

	"go-twk/internal/shared/apperror"
)

var (
	ErrJobNotFound = apperror.New(
		apperror.CodeNotFound,
		"job not found",
		http.StatusNotFound,
	)

	ErrJobFinished = apperror.New(
		apperror.CodeInvalidState,
		"job already finished",
		http.StatusConflict,
	)

	ErrUnknownKind = apperror.New(
		apperror.CodeInternalError,
		"no handler registered for job kind",
		http.StatusInternalServerError,
	)
)
