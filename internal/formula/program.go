package formula

import (
	"sort"
	"strings"

	formulaerrors "go-twk/internal/formula/errors"
)

type function struct {
	minArgs, maxArgs int
}

var functions = map[string]function{
	"min":   {minArgs: 1, maxArgs: 16},
	"max":   {minArgs: 1, maxArgs: 16},
	"round": {minArgs: 1, maxArgs: 2},
	"floor": {minArgs: 1, maxArgs: 1},
	"ceil":  {minArgs: 1, maxArgs: 1},
	"abs":   {minArgs: 1, maxArgs: 1},
}

// Program is a compiled, immutable formula. It is safe for concurrent use.
type Program struct {
	src    string
	root   node
	idents []string
}

// Compile parses src and checks function names and arities. It does not check
// variable names; see Check.
func Compile(src string) (*Program, error) {
	if strings.TrimSpace(src) == "" {
		return nil, formulaerrors.ErrEmptyExpression
	}
	if len(src) > MaxExpressionLength {
		return nil, formulaerrors.ErrExpressionTooLong.WithDetails(map[string]int{"max_length": MaxExpressionLength})
	}

	root, err := parse(src)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var callErr error
	walk(root, func(n node) {
		switch t := n.(type) {
		case *ident:
			seen[t.name] = struct{}{}
		case *call:
			if callErr != nil {
				return
			}
			fn, ok := functions[t.fn]
			if !ok {
				callErr = formulaerrors.ErrUnknownFunction.WithDetails(map[string]any{"function": t.fn, "position": t.pos})
				return
			}
			if len(t.args) < fn.minArgs || len(t.args) > fn.maxArgs {
				callErr = formulaerrors.ErrArity.WithDetails(map[string]any{
					"function": t.fn,
					"got":      len(t.args),
					"min":      fn.minArgs,
					"max":      fn.maxArgs,
				})
			}
		}
	})
	if callErr != nil {
		return nil, callErr
	}

	idents := make([]string, 0, len(seen))
	for name := range seen {
		idents = append(idents, name)
	}
	sort.Strings(idents)

	return &Program{src: src, root: root, idents: idents}, nil
}

func (p *Program) Source() string { return p.src }

// Identifiers returns the distinct variable names referenced, sorted.
func (p *Program) Identifiers() []string {
	out := make([]string, len(p.idents))
	copy(out, p.idents)
	return out
}

// Check is the static stage of validation: every identifier must be in the
// variable whitelist.
func (p *Program) Check() error {
	var unknown []string
	for _, name := range p.idents {
		if !Allowed(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return formulaerrors.ErrUnknownIdentifier.WithDetails(map[string]any{"identifiers": unknown})
	}
	return nil
}

// RuleRefs returns the codes of earlier formulas referenced as rule.<CODE>.
func (p *Program) RuleRefs() []string {
	var refs []string
	for _, name := range p.idents {
		if code, ok := strings.CutPrefix(name, NSRule); ok {
			refs = append(refs, code)
		}
	}
	return refs
}

// UsesPriorPeriods reports whether the formula reads values computed for the
// same employee in earlier periods.
func (p *Program) UsesPriorPeriods() bool {
	for _, name := range p.idents {
		if name == VarPriorDelta || name == VarCumulativeDelta {
			return true
		}
	}
	return false
}
