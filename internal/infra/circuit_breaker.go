package infra

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Guards the Redis price cache so an unreachable cache fails fast instead of
// adding latency to every price lookup. State handling is gobreaker's; this
// type only fixes the trip rule and the error callers see.

// CBState is the breaker state reported by /health ("closed", "open", "half-open").
type CBState = gobreaker.State

const (
	CBClosed   = gobreaker.StateClosed
	CBOpen     = gobreaker.StateOpen
	CBHalfOpen = gobreaker.StateHalfOpen
)

// ErrCircuitOpen is returned instead of calling through while the cache is
// considered down, including half-open calls beyond the trial allowance.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds tunable parameters.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive failures to trip open (default: 5)
	SuccessThreshold int           // consecutive successes in half-open to close (default: 2)
	OpenTimeout      time.Duration // how long to stay open before probing (default: 60s)
}

// DefaultCBConfig returns the settings used for the price cache.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "precio_cache",
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	}
}

type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 60 * time.Second
	}
	umbral := uint32(cfg.FailureThreshold)

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: uint32(cfg.SuccessThreshold),
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= umbral
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker: state change")
		},
	})}
}

// State returns the current state; an open breaker whose timeout elapsed
// reports half-open.
func (b *CircuitBreaker) State() CBState {
	return b.cb.State()
}

// Execute runs fn through the breaker. fn's own error is returned unchanged.
func (b *CircuitBreaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}
