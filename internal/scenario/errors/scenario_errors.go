package scenarioerrors

import (
	"net/http"

	"go-twk/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidScenarioID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid scenario id",
		http.StatusBadRequest,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id in scope",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrEffectiveDateInFuture = apperror.New(
		apperror.CodeInvalidInput,
		"effective date cannot be in the future",
		http.StatusBadRequest,
	)
	ErrInvalidMethod = apperror.New(
		apperror.CodeInvalidInput,
		"calculation method must be component, formula or hybrid",
		http.StatusBadRequest,
	)
	ErrMethodMismatch = apperror.New(
		apperror.CodeInvalidInput,
		"rule kind is not allowed by the scenario calculation method",
		http.StatusBadRequest,
	)
	ErrInvalidChangeType = apperror.New(
		apperror.CodeInvalidInput,
		"unknown change type",
		http.StatusBadRequest,
	)
	ErrInvalidChangeValue = apperror.New(
		apperror.CodeInvalidInput,
		"change value is out of range for the change type",
		http.StatusBadRequest,
	)
	ErrInvalidSalaryRange = apperror.New(
		apperror.CodeInvalidInput,
		"salary range minimum must not exceed maximum",
		http.StatusBadRequest,
	)
	ErrInvalidComponentCode = apperror.New(
		apperror.CodeInvalidInput,
		"component code is required",
		http.StatusBadRequest,
	)
	ErrInvalidRuleCode = apperror.New(
		apperror.CodeInvalidInput,
		"formula code must start with a letter and contain only letters, digits and underscores",
		http.StatusBadRequest,
	)
	ErrInvalidResultMode = apperror.New(
		apperror.CodeInvalidInput,
		"result mode must be delta or new_value",
		http.StatusBadRequest,
	)
	ErrNoAffectedComponents = apperror.New(
		apperror.CodeInvalidInput,
		"formula rule must declare at least one affected component",
		http.StatusBadRequest,
	)
	ErrPriorPeriodUndeclared = apperror.New(
		apperror.CodeInvalidInput,
		"formula reads prior period values but does not declare depends_on_prior_periods",
		http.StatusBadRequest,
	)
	ErrRuleReference = apperror.New(
		apperror.CodeInvalidInput,
		"formula references a rule that does not run before it",
		http.StatusBadRequest,
	)
	ErrNoUsableRules = apperror.New(
		apperror.CodeInvalidInput,
		"scenario needs at least one component rule or validated formula rule",
		http.StatusBadRequest,
	)

	ErrScenarioNotFound = apperror.New(
		apperror.CodeNotFound,
		"scenario not found",
		http.StatusNotFound,
	)
	ErrRuleNotFound = apperror.New(
		apperror.CodeNotFound,
		"rule not found",
		http.StatusNotFound,
	)

	ErrDuplicateCode = apperror.New(
		apperror.CodeConflict,
		"scenario code already exists",
		http.StatusConflict,
	)
	ErrDuplicateRuleCode = apperror.New(
		apperror.CodeConflict,
		"formula code already exists in scenario",
		http.StatusConflict,
	)
	ErrRuleInUse = apperror.New(
		apperror.CodeConflict,
		"formula rule is referenced by a later formula",
		http.StatusConflict,
	)
	ErrScenarioLocked = apperror.New(
		apperror.CodeConflict,
		"scenario has an active simulation or execution",
		http.StatusConflict,
	)

	ErrNotDraft = apperror.New(
		apperror.CodeInvalidState,
		"scenario can only be changed while status is draft",
		http.StatusConflict,
	)
	ErrInvalidTransition = apperror.New(
		apperror.CodeInvalidState,
		"invalid scenario status transition",
		http.StatusConflict,
	)
	ErrNotSubmitted = apperror.New(
		apperror.CodeInvalidState,
		"scenario must be submitted for approval first",
		http.StatusConflict,
	)
	ErrAlreadySubmitted = apperror.New(
		apperror.CodeInvalidState,
		"scenario is already submitted for approval",
		http.StatusConflict,
	)
	ErrNoSimulation = apperror.New(
		apperror.CodeInvalidState,
		"scenario has no completed simulation",
		http.StatusConflict,
	)
)
