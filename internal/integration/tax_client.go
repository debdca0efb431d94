package integration

import (
	"context"

	"go-twk/internal/config"
	"go-twk/internal/execution"
	"go-twk/internal/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

type withholdingResponse struct {
	TaxWithheld decimal.Decimal `json:"tax_withheld"`
}

// TaxClient is the tax engine adapter.
type TaxClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func NewTaxClient(cfg config.ClientConfig, s BreakerSettings, m *metrics.Metrics) *TaxClient {
	return &TaxClient{
		http:    newHTTPClient(cfg),
		breaker: newBreaker("tax_engine", s, m),
	}
}

func (c *TaxClient) Withhold(ctx context.Context, req execution.WithholdingRequest) (decimal.Decimal, error) {
	return execute(c.breaker, func() (decimal.Decimal, error) {
		var out withholdingResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader(idempotencyHeader, req.IdempotencyKey).
			SetBody(req).
			SetResult(&out).
			Post("/v1/withholdings")
		if err != nil {
			return decimal.Zero, err
		}
		if resp.IsError() {
			return decimal.Zero, &RemoteError{Service: "tax_engine", Status: resp.StatusCode(), Body: resp.String()}
		}
		return out.TaxWithheld, nil
	})
}
