package llmclient

import (
	"context"
	"fmt"
	"time"

	"github.com/oakmoss/graphrag/pkg/alert"
	"github.com/oakmoss/graphrag/pkg/config"
	"github.com/sony/gobreaker"
)

// CircuitBreakerClient wraps a Client with circuit breaking so a run of
// External-transient failures stops hammering the provider and fires an
// alert instead of letting every caller pay the full retry budget.
type CircuitBreakerClient struct {
	client  Client
	cb      *gobreaker.CircuitBreaker
	alerter alert.Alerter
	name    string
}

// NewCircuitBreakerClient wraps client behind a circuit breaker configured
// from cfg. If cfg.Enabled is false the breaker never trips.
func NewCircuitBreakerClient(client Client, cfg config.CircuitBreakerConfig, alerter alert.Alerter, name string) *CircuitBreakerClient {
	if alerter == nil {
		alerter = &alert.NoOpAlerter{}
	}

	readyToTrip := func(counts gobreaker.Counts) bool {
		if !cfg.Enabled {
			return false
		}
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: readyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				msg := fmt.Sprintf("circuit breaker %q tripped from %s to %s after repeated external-transient failures", name, from, to)
				_ = alerter.Alert(alert.SeverityWarning, fmt.Sprintf("llmclient circuit breaker tripped: %s", name), msg)
			}
		},
	}

	return &CircuitBreakerClient{
		client:  client,
		cb:      gobreaker.NewCircuitBreaker(st),
		alerter: alerter,
		name:    name,
	}
}

// Infer implements Client.
func (c *CircuitBreakerClient) Infer(ctx context.Context, messages []Message) (*Response, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Infer(ctx, messages)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*Response), nil
}

// Close implements Client.
func (c *CircuitBreakerClient) Close() error { return c.client.Close() }
