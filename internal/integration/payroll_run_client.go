package integration

import (
	"context"
	"time"

	"go-twk/internal/config"
	"go-twk/internal/execution"
	"go-twk/internal/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

const idempotencyHeader = "Idempotency-Key"

func newHTTPClient(cfg config.ClientConfig) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
}

type idResponse struct {
	ID string `json:"id"`
}

// PayrollRunClient is the payroll-run service adapter.
type PayrollRunClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func NewPayrollRunClient(cfg config.ClientConfig, s BreakerSettings, m *metrics.Metrics) *PayrollRunClient {
	return &PayrollRunClient{
		http:    newHTTPClient(cfg),
		breaker: newBreaker("payroll_run", s, m),
	}
}

func (c *PayrollRunClient) CreateRun(ctx context.Context, req execution.CreateRunRequest) (string, error) {
	return c.post(ctx, "/v1/payroll-runs", req.IdempotencyKey, req)
}

func (c *PayrollRunClient) AddPaymentLine(ctx context.Context, runID string, line execution.PaymentLine) (string, error) {
	return execute(c.breaker, func() (string, error) {
		var out idResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader(idempotencyHeader, line.IdempotencyKey).
			SetPathParam("runId", runID).
			SetBody(line).
			SetResult(&out).
			Post("/v1/payroll-runs/{runId}/lines")
		if err != nil {
			return "", err
		}
		if resp.IsError() {
			return "", &RemoteError{Service: "payroll_run", Status: resp.StatusCode(), Body: resp.String()}
		}
		return out.ID, nil
	})
}

func (c *PayrollRunClient) post(ctx context.Context, path, key string, body any) (string, error) {
	return execute(c.breaker, func() (string, error) {
		var out idResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader(idempotencyHeader, key).
			SetBody(body).
			SetResult(&out).
			Post(path)
		if err != nil {
			return "", err
		}
		if resp.IsError() {
			return "", &RemoteError{Service: "payroll_run", Status: resp.StatusCode(), Body: resp.String()}
		}
		return out.ID, nil
	})
}

var (
	_ execution.TaxEngine         = (*TaxClient)(nil)
	_ execution.PayrollRunCreator = (*PayrollRunClient)(nil)
)
