package history

import (
	"context"
	"sync"
	"time"

	historyerrors "go-twk/internal/history/errors"
	"go-twk/internal/period"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fact is what an employee was actually paid in one period. Hours and
// DaysWorked come from time records; TimeRecorded is false when the period has
// none, and both are then zero rather than measured.
type Fact struct {
	EmployeeID    string
	PeriodStart   time.Time
	PeriodEnd     time.Time
	PayRunID      string
	Gross         decimal.Decimal
	Components    map[string]decimal.Decimal
	Hours         decimal.Decimal
	OvertimeHours decimal.Decimal
	DaysWorked    int
	TimeRecorded  bool
}

// Component returns the original amount of code, zero when it was not paid.
// Codes match case-insensitively.
func (f Fact) Component(code string) decimal.Decimal {
	if v, ok := f.Components[NormalizeComponentCode(code)]; ok {
		return v
	}
	return decimal.Zero
}

type employeeHistory struct {
	facts map[string]Fact // keyed by period.Window.Key
}

// Aggregator serves facts for one batch run. Each employee's history is read
// once for the whole window range and shared between concurrent workers.
type Aggregator struct {
	store     Store
	companyID string
	from, to  time.Time
	logger    *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]*employeeHistory
}

func NewAggregator(store Store, companyID string, windows []period.Window) *Aggregator {
	a := &Aggregator{
		store:     store,
		companyID: companyID,
		logger:    zap.L().Named("history.aggregator"),
		cache:     make(map[string]*employeeHistory),
	}
	if len(windows) > 0 {
		a.from = windows[0].Start
		a.to = windows[len(windows)-1].End
		for _, w := range windows {
			if w.Start.Before(a.from) {
				a.from = w.Start
			}
			if w.End.After(a.to) {
				a.to = w.End
			}
		}
	}
	return a
}

// Fact returns the employee's fact for w, or ErrDataGap when no paid payroll
// exists for that exact period.
func (a *Aggregator) Fact(ctx context.Context, employeeID string, w period.Window) (Fact, error) {
	h, err := a.load(ctx, employeeID)
	if err != nil {
		return Fact{}, err
	}
	f, ok := h.facts[w.Key()]
	if !ok {
		return Fact{}, historyerrors.ErrDataGap.WithDetails(map[string]string{
			"employee_id":  employeeID,
			"period_start": w.Start.Format(time.DateOnly),
			"period_end":   w.End.Format(time.DateOnly),
		})
	}
	if f.PayRunID == "" {
		f.PayRunID = w.PayRunID
	}
	return f, nil
}

func (a *Aggregator) load(ctx context.Context, employeeID string) (*employeeHistory, error) {
	a.mu.RLock()
	h, ok := a.cache[employeeID]
	a.mu.RUnlock()
	if ok {
		return h, nil
	}

	v, err, _ := a.group.Do(employeeID, func() (any, error) {
		a.mu.RLock()
		cached, ok := a.cache[employeeID]
		a.mu.RUnlock()
		if ok {
			return cached, nil
		}

		payrolls, err := a.store.PaidPayrolls(ctx, a.companyID, employeeID, a.from, a.to)
		if err != nil {
			return nil, historyerrors.ErrHistoryUnavailable.WithCause(err)
		}
		attendances, err := a.store.Attendances(ctx, a.companyID, employeeID, a.from, a.to)
		if err != nil {
			return nil, historyerrors.ErrHistoryUnavailable.WithCause(err)
		}

		built := build(employeeID, payrolls, attendances)
		a.mu.Lock()
		a.cache[employeeID] = built
		a.mu.Unlock()

		a.logger.Debug("employee history loaded",
			zap.String("employee_id", employeeID),
			zap.Int("payrolls", len(payrolls)),
			zap.Int("attendances", len(attendances)),
		)
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*employeeHistory), nil
}

func build(employeeID string, payrolls []Payroll, attendances []Attendance) *employeeHistory {
	h := &employeeHistory{facts: make(map[string]Fact, len(payrolls))}
	for _, p := range payrolls {
		w := period.Window{Start: dateOf(p.PeriodStart), End: dateOf(p.PeriodEnd)}
		f := Fact{
			EmployeeID:    employeeID,
			PeriodStart:   w.Start,
			PeriodEnd:     w.End,
			Components:    make(map[string]decimal.Decimal),
			OvertimeHours: decimal.NewFromInt(p.OvertimeHours),
			Hours:         decimal.Zero,
		}
		if p.PayrollRunID != nil {
			f.PayRunID = p.PayrollRunID.String()
		}

		f.add(ComponentBase, p.BaseSalary)
		f.add(ComponentAllowance, p.Allowance)
		f.add(ComponentOvertime, p.OvertimeAmount)
		gross := fromMinor(p.BaseSalary + p.Allowance + p.OvertimeAmount)
		for _, c := range p.Components {
			code := c.Code()
			if code == "" {
				continue
			}
			f.add(code, c.TotalAmount)
			if c.ComponentType != ComponentTypeDeduction {
				gross = gross.Add(fromMinor(c.TotalAmount))
			}
		}
		f.Gross = gross

		days := map[string]struct{}{}
		for _, att := range attendances {
			d := dateOf(att.AttendanceDate)
			if d.Before(w.Start) || d.After(w.End) {
				continue
			}
			days[d.Format(time.DateOnly)] = struct{}{}
			if att.ClockOut != nil && att.ClockOut.After(att.ClockIn) {
				worked := att.ClockOut.Sub(att.ClockIn)
				f.Hours = f.Hours.Add(decimal.NewFromInt(int64(worked / time.Minute)).Div(decimal.NewFromInt(60)))
				f.TimeRecorded = true
			}
		}
		f.Hours = f.Hours.Round(2)
		f.DaysWorked = len(days)

		// a second payroll row for the same period is an off-cycle correction
		if prev, ok := h.facts[w.Key()]; ok {
			f = merge(prev, f)
		}
		h.facts[w.Key()] = f
	}
	return h
}

func (f *Fact) add(code string, minor int64) {
	if minor == 0 {
		return
	}
	code = NormalizeComponentCode(code)
	f.Components[code] = f.Component(code).Add(fromMinor(minor))
}

func merge(a, b Fact) Fact {
	out := a
	out.Components = make(map[string]decimal.Decimal, len(a.Components))
	for k, v := range a.Components {
		out.Components[k] = v
	}
	for k, v := range b.Components {
		out.Components[k] = out.Component(k).Add(v)
	}
	out.Gross = a.Gross.Add(b.Gross)
	out.OvertimeHours = a.OvertimeHours.Add(b.OvertimeHours)
	return out
}

func fromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
