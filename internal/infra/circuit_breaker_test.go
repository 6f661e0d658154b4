package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRedis = errors.New("redis: connection refused")

func esperarEstado(t *testing.T, cb *CircuitBreaker, want CBState) {
	t.Helper()
	require.Eventually(t, func() bool { return cb.State() == want }, time.Second, 5*time.Millisecond)
}

func TestCircuitBreaker_Ciclo(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 2, OpenTimeout: 30 * time.Millisecond})

	falla := func() error { return errRedis }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Execute(falla), errRedis)
	assert.Equal(t, CBClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(falla), errRedis)
	assert.Equal(t, CBOpen, cb.State())

	llamado := false
	err := cb.Execute(func() error { llamado = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, llamado, "open breaker must not call through")

	esperarEstado(t, cb, CBHalfOpen)
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, CBClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}

func TestCircuitBreaker_FallaEnSemiabiertoReabre(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: 30 * time.Millisecond})

	_ = cb.Execute(func() error { return errRedis })
	require.Equal(t, CBOpen, cb.State())

	esperarEstado(t, cb, CBHalfOpen)
	assert.Equal(t, "half-open", cb.State().String())
	assert.ErrorIs(t, cb.Execute(func() error { return errRedis }), errRedis)
	assert.Equal(t, CBOpen, cb.State())
	assert.Equal(t, "open", cb.State().String())
}

func TestCircuitBreaker_ExitoReiniciaFallas(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	_ = cb.Execute(func() error { return errRedis })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errRedis })
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_DefaultsPrecioCache(t *testing.T) {
	cfg := DefaultCBConfig()
	assert.Equal(t, "precio_cache", cfg.Name)

	cb := NewCircuitBreaker(cfg)
	for i := 0; i < cfg.FailureThreshold-1; i++ {
		_ = cb.Execute(func() error { return errRedis })
	}
	assert.Equal(t, CBClosed, cb.State())
	_ = cb.Execute(func() error { return errRedis })
	assert.Equal(t, CBOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)
}
