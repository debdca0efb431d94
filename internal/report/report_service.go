package report

import (
	"context"
	"time"

	reporterrors "go-twk/internal/report/errors"
	"go-twk/internal/shared/money"
	"go-twk/internal/shared/response"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service interface {
	LiabilityByScenario(ctx context.Context, companyID string, req LiabilityByScenarioRequest) (LiabilityByScenarioResponse, error)
	LiabilityByStatus(ctx context.Context, companyID string) ([]StatusLiabilityResponse, error)
	EmployeePayments(ctx context.Context, companyID, employeeID string, req EmployeePaymentsRequest) ([]EmployeePaymentResponse, response.PaginationMeta, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) LiabilityByScenario(ctx context.Context, companyID string, req LiabilityByScenarioRequest) (LiabilityByScenarioResponse, error) {
	filter := ScenarioFilter{Status: req.Status}
	var err error
	if filter.From, err = parseDate(req.From); err != nil {
		return LiabilityByScenarioResponse{}, err
	}
	if filter.To, err = parseDate(req.To); err != nil {
		return LiabilityByScenarioResponse{}, err
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return LiabilityByScenarioResponse{}, reporterrors.ErrInvalidDateRange
	}

	rows, err := s.repo.LiabilityByScenario(ctx, companyID, filter)
	if err != nil {
		return LiabilityByScenarioResponse{}, err
	}

	out := LiabilityByScenarioResponse{Items: make([]ScenarioLiabilityResponse, 0, len(rows))}
	liability, paid := decimal.Zero, decimal.Zero
	for _, row := range rows {
		out.Items = append(out.Items, ScenarioLiabilityResponse{
			ScenarioID:    row.ScenarioID,
			Code:          row.Code,
			Name:          row.Name,
			Status:        row.Status,
			EffectiveDate: row.EffectiveDate.Format(time.DateOnly),
			Employees:     row.Employees,
			Results:       row.Results,
			Liability:     money.String(row.Liability),
			Approved:      money.String(row.Approved),
			Paid:          money.String(row.Paid),
			Outstanding:   money.String(row.Liability.Sub(row.Paid)),
		})
		liability = liability.Add(row.Liability)
		paid = paid.Add(row.Paid)
	}
	out.Liability = money.String(liability)
	out.Paid = money.String(paid)
	out.Outstanding = money.String(liability.Sub(paid))
	return out, nil
}

func (s *service) LiabilityByStatus(ctx context.Context, companyID string) ([]StatusLiabilityResponse, error) {
	rows, err := s.repo.LiabilityByStatus(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]StatusLiabilityResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, StatusLiabilityResponse{
			Status:    row.Status,
			Scenarios: row.Scenarios,
			Employees: row.Employees,
			Results:   row.Results,
			Liability: money.String(row.Liability),
		})
	}
	return out, nil
}

func (s *service) EmployeePayments(ctx context.Context, companyID, employeeID string, req EmployeePaymentsRequest) ([]EmployeePaymentResponse, response.PaginationMeta, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, response.PaginationMeta{}, reporterrors.ErrInvalidEmployeeID
	}
	page, pageSize := response.Page(req.Page, req.PageSize)

	rows, total, err := s.repo.EmployeePayments(ctx, companyID, employeeID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, response.PaginationMeta{}, err
	}

	out := make([]EmployeePaymentResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, EmployeePaymentResponse{
			PaymentLineID: row.PaymentLineID,
			PayrollRunID:  row.PayrollRunID,
			ScenarioID:    row.ScenarioID,
			ScenarioCode:  row.ScenarioCode,
			ScenarioName:  row.ScenarioName,
			GrossDelta:    money.String(row.GrossDelta),
			TaxWithheld:   money.String(row.TaxWithheld),
			NetDelta:      money.String(row.GrossDelta.Sub(row.TaxWithheld)),
			Results:       row.Results,
			PaidAt:        row.PaidAt.UTC().Format(time.RFC3339),
		})
	}
	return out, response.NewPaginationMeta(total, page, pageSize), nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, reporterrors.ErrInvalidDateRange.WithCause(err)
	}
	return &t, nil
}
