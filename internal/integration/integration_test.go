package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go-twk/internal/config"
	"go-twk/internal/execution"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientConfig(url string) config.ClientConfig {
	return config.ClientConfig{BaseURL: url, Timeout: time.Second}
}

func TestTaxClient_Withhold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/withholdings", r.URL.Path)
		assert.Equal(t, "twk-abc:tax", r.Header.Get("Idempotency-Key"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "emp-1", body["employee_id"])
		assert.NotContains(t, body, "IdempotencyKey")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tax_withheld":"112.50"}`))
	}))
	defer srv.Close()

	c := NewTaxClient(clientConfig(srv.URL), DefaultBreakerSettings, nil)
	tax, err := c.Withhold(context.Background(), execution.WithholdingRequest{
		CompanyID:      "co-1",
		EmployeeID:     "emp-1",
		GrossDelta:     decimal.RequireFromString("750"),
		Periods:        []string{"2025-01", "2025-02"},
		IdempotencyKey: "twk-abc:tax",
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("112.50").Equal(tax))
}

func TestTaxClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		temporary bool
	}{
		{"server error", http.StatusBadGateway, true},
		{"throttled", http.StatusTooManyRequests, true},
		{"rejected", http.StatusUnprocessableEntity, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			c := NewTaxClient(clientConfig(srv.URL), DefaultBreakerSettings, nil)
			_, err := c.Withhold(context.Background(), execution.WithholdingRequest{EmployeeID: "emp-1"})

			var remote *RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Equal(t, tt.status, remote.Status)
			assert.Equal(t, tt.temporary, remote.Temporary())
		})
	}
}

func TestPayrollRunClient_CreateRunAndLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/payroll-runs":
			assert.Equal(t, "twk-run-job-1", r.Header.Get("Idempotency-Key"))
			_, _ = w.Write([]byte(`{"id":"run-9"}`))
		case "/v1/payroll-runs/run-9/lines":
			assert.Equal(t, "twk-abc:line", r.Header.Get("Idempotency-Key"))
			_, _ = w.Write([]byte(`{"id":"line-1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewPayrollRunClient(clientConfig(srv.URL), DefaultBreakerSettings, nil)
	ctx := context.Background()

	runID, err := c.CreateRun(ctx, execution.CreateRunRequest{
		CompanyID:      "co-1",
		ScenarioID:     "sc-1",
		IdempotencyKey: "twk-run-job-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "run-9", runID)

	lineID, err := c.AddPaymentLine(ctx, runID, execution.PaymentLine{
		EmployeeID:     "emp-1",
		GrossDelta:     decimal.NewFromInt(750),
		TaxWithheld:    decimal.NewFromInt(112),
		IdempotencyKey: "twk-abc:line",
	})
	require.NoError(t, err)
	assert.Equal(t, "line-1", lineID)
}

func TestBreaker_OpensOnServerErrorsOnly(t *testing.T) {
	var status atomic.Int32
	var hits atomic.Int32
	status.Store(http.StatusBadRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	settings := BreakerSettings{ConsecutiveFailures: 2, OpenFor: time.Minute, HalfOpenRequests: 1}
	c := NewPayrollRunClient(clientConfig(srv.URL), settings, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.CreateRun(ctx, execution.CreateRunRequest{})
		var remote *RemoteError
		require.ErrorAs(t, err, &remote)
	}
	assert.Equal(t, gobreaker.StateClosed, c.breaker.State())

	status.Store(http.StatusServiceUnavailable)
	for i := 0; i < 2; i++ {
		_, _ = c.CreateRun(ctx, execution.CreateRunRequest{})
	}
	assert.Equal(t, gobreaker.StateOpen, c.breaker.State())

	before := hits.Load()
	_, err := c.CreateRun(ctx, execution.CreateRunRequest{})
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, before, hits.Load())
}
