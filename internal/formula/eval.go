package formula

import (
	"context"
	"errors"
	"time"

	formulaerrors "go-twk/internal/formula/errors"

	"github.com/shopspring/decimal"
)

// Limits bound a single evaluation.
type Limits struct {
	MaxSteps int
	Timeout  time.Duration
}

var DefaultLimits = Limits{MaxSteps: 10000, Timeout: 50 * time.Millisecond}

// deadline checks are amortized over this many steps
const ctxCheckEvery = 64

const (
	divisionPlaces = 16
	maxRoundPlaces = 10
)

// maxMagnitude bounds every intermediate value.
var maxMagnitude = decimal.New(1, 18)

type interp struct {
	ctx   context.Context
	env   Env
	steps int
	max   int
}

// Eval runs the program against env and returns its numeric result. The
// result is rejected unless it is a number within range.
func (p *Program) Eval(ctx context.Context, env Env, lim Limits) (decimal.Decimal, error) {
	if lim.MaxSteps <= 0 {
		lim.MaxSteps = DefaultLimits.MaxSteps
	}
	if lim.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, lim.Timeout)
		defer cancel()
	}

	in := &interp{ctx: ctx, env: env, max: lim.MaxSteps}
	v, err := in.eval(p.root)
	if err != nil {
		return decimal.Zero, err
	}
	if v.kind != KindNumber {
		return decimal.Zero, formulaerrors.ErrNonNumericResult.WithDetails(map[string]string{"kind": v.kind.String()})
	}
	if _, err := inRange(v.num); err != nil {
		return decimal.Zero, err
	}
	return v.num, nil
}

func (in *interp) step() error {
	in.steps++
	if in.steps > in.max {
		return formulaerrors.ErrStepLimit.WithDetails(map[string]int{"max_steps": in.max})
	}
	if in.steps%ctxCheckEvery == 0 {
		if err := in.ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return formulaerrors.ErrTimeout
			}
			return err
		}
	}
	return nil
}

func (in *interp) eval(n node) (Value, error) {
	if err := in.step(); err != nil {
		return Value{}, err
	}

	switch t := n.(type) {
	case *numberLit:
		return Number(t.value), nil
	case *stringLit:
		return String(t.value), nil
	case *boolLit:
		return Bool(t.value), nil
	case *ident:
		v, ok := in.env.Lookup(t.name)
		if !ok {
			return Value{}, formulaerrors.ErrUnboundVariable.WithDetails(map[string]string{"identifier": t.name})
		}
		return v, nil
	case *unary:
		return in.evalUnary(t)
	case *binary:
		return in.evalBinary(t)
	case *ternary:
		cond, err := in.eval(t.cond)
		if err != nil {
			return Value{}, err
		}
		if cond.kind != KindBool {
			return Value{}, mismatch(t.pos, "condition", KindBool, cond.kind)
		}
		if cond.b {
			return in.eval(t.then)
		}
		return in.eval(t.else_)
	case *call:
		return in.evalCall(t)
	}
	return Value{}, formulaerrors.ErrTypeMismatch
}

func (in *interp) evalUnary(t *unary) (Value, error) {
	x, err := in.eval(t.x)
	if err != nil {
		return Value{}, err
	}
	switch t.op {
	case tokMinus:
		if x.kind != KindNumber {
			return Value{}, mismatch(t.pos, "-", KindNumber, x.kind)
		}
		return Number(x.num.Neg()), nil
	case tokNot:
		if x.kind != KindBool {
			return Value{}, mismatch(t.pos, "!", KindBool, x.kind)
		}
		return Bool(!x.b), nil
	}
	return Value{}, formulaerrors.ErrTypeMismatch
}

func (in *interp) evalBinary(t *binary) (Value, error) {
	left, err := in.eval(t.left)
	if err != nil {
		return Value{}, err
	}

	// && and || short-circuit
	if t.op == tokAnd || t.op == tokOr {
		if left.kind != KindBool {
			return Value{}, mismatch(t.pos, t.op.String(), KindBool, left.kind)
		}
		if t.op == tokAnd && !left.b {
			return Bool(false), nil
		}
		if t.op == tokOr && left.b {
			return Bool(true), nil
		}
		right, err := in.eval(t.right)
		if err != nil {
			return Value{}, err
		}
		if right.kind != KindBool {
			return Value{}, mismatch(t.pos, t.op.String(), KindBool, right.kind)
		}
		return Bool(right.b), nil
	}

	right, err := in.eval(t.right)
	if err != nil {
		return Value{}, err
	}

	if t.op == tokEQ || t.op == tokNEQ {
		if left.kind != right.kind {
			return Value{}, mismatch(t.pos, t.op.String(), left.kind, right.kind)
		}
		eq := left.Equal(right)
		if t.op == tokNEQ {
			eq = !eq
		}
		return Bool(eq), nil
	}

	if left.kind != KindNumber {
		return Value{}, mismatch(t.pos, t.op.String(), KindNumber, left.kind)
	}
	if right.kind != KindNumber {
		return Value{}, mismatch(t.pos, t.op.String(), KindNumber, right.kind)
	}
	a, b := left.num, right.num

	switch t.op {
	case tokLT:
		return Bool(a.LessThan(b)), nil
	case tokLTE:
		return Bool(a.LessThanOrEqual(b)), nil
	case tokGT:
		return Bool(a.GreaterThan(b)), nil
	case tokGTE:
		return Bool(a.GreaterThanOrEqual(b)), nil
	case tokPlus:
		return inRange(a.Add(b))
	case tokMinus:
		return inRange(a.Sub(b))
	case tokStar:
		return inRange(a.Mul(b))
	case tokSlash:
		if b.IsZero() {
			return Value{}, formulaerrors.ErrDivisionByZero.WithDetails(map[string]int{"position": t.pos})
		}
		return inRange(a.DivRound(b, divisionPlaces))
	case tokPercent:
		if b.IsZero() {
			return Value{}, formulaerrors.ErrDivisionByZero.WithDetails(map[string]int{"position": t.pos})
		}
		return inRange(a.Mod(b))
	}
	return Value{}, formulaerrors.ErrTypeMismatch
}

func (in *interp) evalCall(t *call) (Value, error) {
	args := make([]decimal.Decimal, len(t.args))
	for i, a := range t.args {
		v, err := in.eval(a)
		if err != nil {
			return Value{}, err
		}
		if v.kind != KindNumber {
			return Value{}, mismatch(a.position(), t.fn, KindNumber, v.kind)
		}
		args[i] = v.num
	}

	switch t.fn {
	case "min":
		return inRange(decimal.Min(args[0], args[1:]...))
	case "max":
		return inRange(decimal.Max(args[0], args[1:]...))
	case "round":
		places := int32(0)
		if len(args) == 2 {
			digits := args[1]
			if !digits.IsInteger() || digits.IsNegative() || digits.GreaterThan(decimal.NewFromInt(maxRoundPlaces)) {
				return Value{}, formulaerrors.ErrTypeMismatch.WithDetails(map[string]string{"reason": "round digits must be an integer in [0,10]"})
			}
			places = int32(digits.IntPart())
		}
		return inRange(args[0].Round(places))
	case "floor":
		return inRange(args[0].Floor())
	case "ceil":
		return inRange(args[0].Ceil())
	case "abs":
		return inRange(args[0].Abs())
	}
	return Value{}, formulaerrors.ErrUnknownFunction.WithDetails(map[string]string{"function": t.fn})
}

func inRange(d decimal.Decimal) (Value, error) {
	if d.Abs().GreaterThan(maxMagnitude) {
		return Value{}, formulaerrors.ErrOutOfRange
	}
	return Number(d), nil
}

func mismatch(pos int, op string, want, got Kind) error {
	return formulaerrors.ErrTypeMismatch.WithDetails(map[string]any{
		"position": pos,
		"operator": op,
		"expected": want.String(),
		"got":      got.String(),
	})
}
