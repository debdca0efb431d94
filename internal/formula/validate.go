package formula

import (
	"context"

	formulaerrors "go-twk/internal/formula/errors"
	"go-twk/internal/shared/apperror"
)

// Validate compiles src, checks it against the variable whitelist and then
// dry-runs it against SampleEnv. A formula that passes is safe to store.
func Validate(ctx context.Context, src string, lim Limits) (*Program, error) {
	p, err := Compile(src)
	if err != nil {
		return nil, err
	}
	if err := p.Check(); err != nil {
		return nil, err
	}
	if _, err := p.Eval(ctx, SampleEnv(p), lim); err != nil {
		details := map[string]string{"reason": err.Error()}
		if code := apperror.CodeOf(err); code != apperror.CodeInternalError {
			details["cause_code"] = code
		}
		return nil, formulaerrors.ErrDryRunFailed.WithDetails(details).WithCause(err)
	}
	return p, nil
}
