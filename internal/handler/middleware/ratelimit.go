package middleware

import (
	"errors"
	"net/http"
	"sync"

	"salon-booking/internal/handler/httperr"
	"salon-booking/internal/pkg/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var errRateLimited = errors.New("rate limit exceeded")

// RateLimiter keeps one token bucket per authenticated actor.
type RateLimiter struct {
	limiters sync.Map
	rps      rate.Limit
	burst    int
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		rps:   rate.Limit(cfg.RPS),
		burst: cfg.Burst,
	}
}

func (r *RateLimiter) Allow(key string) bool {
	limiter, _ := r.limiters.LoadOrStore(key, rate.NewLimiter(r.rps, r.burst))
	return limiter.(*rate.Limiter).Allow()
}

// PerActor must run after RequireAuth; anonymous requests share the client ip bucket.
func (r *RateLimiter) PerActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if actor, ok := GetActor(c); ok {
			key = "actor:" + actor.ID.String()
		}

		if !r.Allow(key) {
			httperr.AbortWithCode(c, http.StatusTooManyRequests, errRateLimited, "RATE_LIMITED", "Too many requests", nil)
			return
		}
		c.Next()
	}
}
