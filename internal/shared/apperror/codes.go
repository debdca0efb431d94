package apperror

const (
	// Client errors (4xx)
	CodeInvalidInput = "INVALID_INPUT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInvalidState = "INVALID_STATE"

	// Batch-level codes. These are usually reported inside a simulation or
	// execution summary rather than returned from a request.
	CodeDataGap           = "DATA_GAP"
	CodeFormulaEvaluation = "FORMULA_EVALUATION"
	CodeExecutionFailed   = "EXECUTION_FAILED"

	// Server errors (5xx)
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)
