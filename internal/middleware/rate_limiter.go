package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"farmapos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ventana tracks the request count of one key within a fixed window.
type ventana struct {
	count int
	fin   time.Time
}

// Limitador counts requests per (scope, client IP) in fixed windows. With a
// Redis client the counters are shared across replicas; without one, or when
// Redis fails, it falls back to a process-local map.
type Limitador struct {
	rdb *redis.Client

	mu      sync.Mutex
	locales map[string]*ventana
	now     func() time.Time
}

func NewLimitador(rdb *redis.Client) *Limitador {
	return &Limitador{rdb: rdb, locales: make(map[string]*ventana), now: time.Now}
}

// Permitir increments the counter for key and reports whether it is still
// within limit, plus the end of the current window.
func (l *Limitador) Permitir(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Time) {
	now := l.now()
	if l.rdb != nil {
		inicio := now.Truncate(window)
		fin := inicio.Add(window)
		rk := fmt.Sprintf("rl:%s:%d", key, inicio.Unix())
		pipe := l.rdb.TxPipeline()
		incr := pipe.Incr(ctx, rk)
		pipe.ExpireNX(ctx, rk, window)
		_, err := pipe.Exec(ctx)
		if err == nil {
			return incr.Val() <= int64(limit), fin
		}
		log.Warn().Err(err).Str("key", key).Msg("rate limiter: redis unavailable, using local counters")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.locales[key]
	if !ok || now.After(v.fin) {
		v = &ventana{fin: now.Add(window)}
		l.locales[key] = v
	}
	v.count++
	return v.count <= limit, v.fin
}

// Middleware limits requests to limit per window per client IP within scope.
func (l *Limitador) Middleware(scope string, limit int, window time.Duration, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, fin := l.Permitir(c.Request.Context(), scope+":"+c.ClientIP(), limit, window)
		if !ok {
			secs := int(fin.Sub(l.now()).Seconds()) + 1
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// Purgar drops expired local windows and returns how many were removed.
func (l *Limitador) Purgar() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, v := range l.locales {
		if now.After(v.fin) {
			delete(l.locales, k)
			n++
		}
	}
	return n
}

// IniciarPurga runs Purgar every interval until ctx is cancelled.
func (l *Limitador) IniciarPurga(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Purgar(); n > 0 {
				log.Debug().Int("purged", n).Msg("rate limiter windows purged")
			}
		}
	}
}
