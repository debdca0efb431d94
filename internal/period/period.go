// Package period turns a retroactive effective date into the list of pay
// periods it touches, using only period boundaries that exist in payroll
// history.
package period

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Boundary is one pay period as recorded by the payroll history.
type Boundary struct {
	Start    time.Time
	End      time.Time
	PayRunID string
}

// Window is an affected period with its proration ratio. Index starts at 1
// for the earliest affected period.
type Window struct {
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Index    int             `json:"index"`
	Ratio    decimal.Decimal `json:"ratio"`
	PayRunID string          `json:"pay_run_id,omitempty"`
}

// Partial reports whether the new rule covers only part of the period.
func (w Window) Partial() bool {
	return w.Ratio.LessThan(decimal.NewFromInt(1))
}

func (w Window) Days() int {
	return days(w.Start, w.End)
}

// Key identifies the period inside one company's history.
func (w Window) Key() string {
	return w.Start.Format(time.DateOnly) + "/" + w.End.Format(time.DateOnly)
}

// Source lists the pay periods recorded between from and to.
type Source interface {
	Boundaries(ctx context.Context, companyID string, from, to time.Time) ([]Boundary, error)
}

type Resolver struct {
	source Source
	now    func() time.Time
}

func NewResolver(source Source) *Resolver {
	return &Resolver{source: source, now: time.Now}
}

// WithClock returns a copy of r that uses now as the current time.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	return &Resolver{source: r.source, now: now}
}

// Resolve returns every recorded period with end >= effective and start <=
// now that overlaps the effective date, oldest first.
func (r *Resolver) Resolve(ctx context.Context, companyID string, effective time.Time) ([]Window, error) {
	effective = dateOf(effective)
	now := dateOf(r.now())

	bounds, err := r.source.Boundaries(ctx, companyID, effective, now)
	if err != nil {
		return nil, err
	}

	sort.Slice(bounds, func(i, j int) bool {
		if bounds[i].Start.Equal(bounds[j].Start) {
			return bounds[i].End.Before(bounds[j].End)
		}
		return bounds[i].Start.Before(bounds[j].Start)
	})

	windows := make([]Window, 0, len(bounds))
	seen := make(map[string]struct{}, len(bounds))
	for _, b := range bounds {
		start, end := dateOf(b.Start), dateOf(b.End)
		if end.Before(effective) || start.After(now) || end.Before(start) {
			continue
		}
		ratio := Ratio(start, end, effective)
		if !ratio.IsPositive() {
			continue
		}
		w := Window{Start: start, End: end, Ratio: ratio, PayRunID: b.PayRunID}
		if _, dup := seen[w.Key()]; dup {
			continue
		}
		seen[w.Key()] = struct{}{}
		w.Index = len(windows) + 1
		windows = append(windows, w)
	}
	return windows, nil
}

// Ratio is 1 when effective is on or before start, otherwise
// (end - effective) / (end - start) in days, clamped to [0, 1].
func Ratio(start, end, effective time.Time) decimal.Decimal {
	start, end, effective = dateOf(start), dateOf(end), dateOf(effective)
	one := decimal.NewFromInt(1)
	if !effective.After(start) {
		return one
	}
	total := days(start, end)
	if total <= 0 {
		return decimal.Zero
	}
	covered := days(effective, end)
	if covered <= 0 {
		return decimal.Zero
	}
	r := decimal.NewFromInt(int64(covered)).Div(decimal.NewFromInt(int64(total)))
	if r.GreaterThan(one) {
		return one
	}
	return r
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func days(from, to time.Time) int {
	return int(dateOf(to).Sub(dateOf(from)).Hours() / 24)
}
