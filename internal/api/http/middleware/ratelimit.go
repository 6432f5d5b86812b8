package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit throttles per client IP. The relay endpoints are unauthenticated
// so this is the only brake on abuse; stale limiters get evicted lazily.
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	type visitante struct {
		limiter *rate.Limiter
		ultimo  time.Time
	}

	var (
		mu         sync.Mutex
		visitantes = make(map[string]*visitante)
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		v, ok := visitantes[ip]
		if !ok {
			v = &visitante{limiter: rate.NewLimiter(rps, burst)}
			visitantes[ip] = v
		}
		v.ultimo = time.Now()

		if len(visitantes) > 10000 {
			limite := time.Now().Add(-10 * time.Minute)
			for k, vv := range visitantes {
				if vv.ultimo.Before(limite) {
					delete(visitantes, k)
				}
			}
		}
		permitido := v.limiter.Allow()
		mu.Unlock()

		if !permitido {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "demasiadas solicitudes"})
			return
		}
		c.Next()
	}
}
