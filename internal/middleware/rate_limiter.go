package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"restaurantepos/internal/apierror"
)

// ── Rate limiter ──────────────────────────────────────────────────────────────
// Fixed window per IP. The counter lives in Redis (INCR + EXPIRE) so every
// server instance shares it; without Redis, or when Redis fails, an in-process
// window takes over.

// Limiter counts requests per key inside a window.
type Limiter struct {
	rdb     *redis.Client
	prefijo string
	limit   int
	window  time.Duration
	memoria *ventanas
}

// NewLimiter builds a limiter. rdb may be nil.
func NewLimiter(rdb *redis.Client, prefijo string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		rdb:     rdb,
		prefijo: prefijo,
		limit:   limit,
		window:  window,
		memoria: &ventanas{entries: map[string]*rateEntry{}},
	}
}

// Permitir incrementa el contador de key. Devuelve false si superó el límite
// y cuánto falta para que la ventana se reinicie.
func (l *Limiter) Permitir(ctx context.Context, key string) (bool, time.Duration) {
	if l.rdb != nil {
		ok, ttl, err := l.permitirRedis(ctx, key)
		if err == nil {
			return ok, ttl
		}
		log.Warn().Err(err).Str("limiter", l.prefijo).Msg("rate limiter: redis no disponible, uso memoria")
	}
	return l.memoria.permitir(key, l.limit, l.window)
}

func (l *Limiter) permitirRedis(ctx context.Context, key string) (bool, time.Duration, error) {
	k := fmt.Sprintf("ratelimit:%s:%s", l.prefijo, key)
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return false, 0, err
		}
	}
	restante, err := l.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	if restante < 0 {
		// clave sin TTL tras una caída entre INCR y EXPIRE
		_ = l.rdb.Expire(ctx, k, l.window).Err()
		restante = l.window
	}
	return n <= int64(l.limit), restante, nil
}

// Middleware aborts with 429 once the IP exceeds the limit.
func (l *Limiter) Middleware(mensaje string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, restante := l.Permitir(c.Request.Context(), c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(restante.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(mensaje))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter(rdb *redis.Client) gin.HandlerFunc {
	return NewLimiter(rdb, "login", 20, time.Minute).
		Middleware("Demasiados intentos de login. Intente en 1 minuto.")
}

// RateLimiter is the general API limiter.
func RateLimiter(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return NewLimiter(rdb, "api", limit, window).
		Middleware("Demasiadas solicitudes. Intente nuevamente en un momento.")
}

// ── Ventana en memoria ────────────────────────────────────────────────────────

type rateEntry struct {
	count     int
	windowEnd time.Time
}

type ventanas struct {
	mu        sync.Mutex
	entries   map[string]*rateEntry
	ultimaPur time.Time
}

func (v *ventanas) permitir(key string, limit int, window time.Duration) (bool, time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := time.Now()
	v.purgar(now)
	e, ok := v.entries[key]
	if !ok || now.After(e.windowEnd) {
		e = &rateEntry{windowEnd: now.Add(window)}
		v.entries[key] = e
	}
	e.count++
	return e.count <= limit, e.windowEnd.Sub(now)
}

const purgeInterval = 5 * time.Minute

// purgar removes expired entries so IPs that never return do not accumulate.
func (v *ventanas) purgar(now time.Time) {
	if now.Sub(v.ultimaPur) < purgeInterval {
		return
	}
	v.ultimaPur = now
	purged := 0
	for k, e := range v.entries {
		if now.After(e.windowEnd) {
			delete(v.entries, k)
			purged++
		}
	}
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(v.entries)).Msg("rate limiter entries purged")
	}
}
