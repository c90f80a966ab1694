package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/encore/internal/domain"
	gobreaker "github.com/sony/gobreaker/v2"
)

// breaker stops hammering an unreachable backend.
// While open, calls fail immediately with domain.ErrNetwork, which makes a
// venue with dead wifi fall through to the offline cache quickly.
type breaker struct {
	cb     *gobreaker.CircuitBreaker[[]byte]
	logger *slog.Logger
}

// newBreaker configures the circuit:
// - opens after 3 consecutive network failures
// - stays open 20 seconds before letting a probe through
// - allows 1 request while half-open
func newBreaker(name string, logger *slog.Logger) *breaker {
	b := &breaker{logger: logger}
	b.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return b
}

// isBreakerSuccess counts only connectivity problems against the circuit.
// Missing records, bad credentials, and caller cancellation are not
// reachability signals.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return !errors.Is(err, domain.ErrNetwork)
}

func (b *breaker) execute(fn func() ([]byte, error)) ([]byte, error) {
	body, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.Debug("circuit breaker rejected request", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	return body, err
}

// State returns the circuit state name ("closed", "half-open", "open")
func (b *breaker) State() string {
	return b.cb.State().String()
}
