package simulationerrors

import (
	"net/http"

	"go-twk/internal/shared/apperror"
)

var (
	ErrSimulationNotFound = apperror.New(
		apperror.CodeNotFound,
		"simulation not found",
		http.StatusNotFound,
	)

	ErrNotSimulatable = apperror.New(
		apperror.CodeInvalidState,
		"scenario cannot be simulated in its current status",
		http.StatusConflict,
	)

	// Fatal batch conditions. The run aborts and the scenario keeps its
	// previous status.
	ErrNoPeriods = apperror.New(
		apperror.CodeInvalidInput,
		"no paid payroll period overlaps the effective date",
		http.StatusUnprocessableEntity,
	)

	ErrNoApplicableEmployees = apperror.New(
		apperror.CodeInvalidInput,
		"no rule applies to any employee in scope",
		http.StatusUnprocessableEntity,
	)

	ErrFormulaEvaluation = apperror.New(
		apperror.CodeFormulaEvaluation,
		"formula evaluation failed",
		http.StatusUnprocessableEntity,
	)
)
