package middlewares

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"frs/src/lib"

	"github.com/gin-gonic/gin"
)

// RateLimit bounds each source IP to limit requests per window using a
// redis fixed-window counter, so the bound holds across processes. When
// redis is unreachable the limiter fails open rather than taking the
// endpoint down with it.
func RateLimit(name string, limit int64, window time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rd := lib.GetRedisClient()
		if rd == nil {
			return
		}
		key := fmt.Sprintf("ratelimit:%s:%s", name, ctx.ClientIP())
		count, err := rd.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("[ratelimit] Error incrementing %s: %s\n", key, err.Error())
			return
		}
		if count == 1 {
			if err := rd.Expire(ctx, key, window).Err(); err != nil {
				log.Printf("[ratelimit] Error setting expiry on %s: %s\n", key, err.Error())
			}
		}
		if count > limit {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
	}
}
