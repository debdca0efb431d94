// Package integration holds the HTTP adapters for the tax engine and the
// payroll-run service.
package integration

import (
	"errors"
	"fmt"
	"time"

	"go-twk/internal/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// RemoteError is a non-2xx answer from a collaborator.
type RemoteError struct {
	Service string
	Status  int
	Body    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Service, e.Status, e.Body)
}

// Temporary reports whether the call may succeed if repeated.
func (e *RemoteError) Temporary() bool {
	return e.Status >= 500 || e.Status == 429
}

// BreakerSettings configure the circuit breaker around one collaborator.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenFor             time.Duration
	HalfOpenRequests    uint32
}

var DefaultBreakerSettings = BreakerSettings{
	ConsecutiveFailures: 5,
	OpenFor:             30 * time.Second,
	HalfOpenRequests:    1,
}

// newBreaker trips after consecutive transport or 5xx failures. Rejections
// (4xx) do not count against the collaborator.
func newBreaker(name string, s BreakerSettings, m *metrics.Metrics) *gobreaker.CircuitBreaker {
	logger := zap.L().Named("integration.breaker")
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var remote *RemoteError
			return errors.As(err, &remote) && !remote.Temporary()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if to == gobreaker.StateOpen {
				m.CollaboratorFailed(name + "_open")
			}
		},
	})
}

// execute runs fn through cb with a typed result.
func execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}
