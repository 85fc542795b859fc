package handler

import (
	"net/http"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"

	"portal-server/internal/models"
)

// RateLimitMiddleware guards a route with the given admission store.
// Over-limit requests are rejected with 429 before any upstream work
// happens.
func RateLimitMiddleware(store rateli.Store) gin.HandlerFunc {
	return rateli.RateLimiter(store, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			rateLimitedTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Code:    models.ErrCodeRateLimited,
				Message: "Too many requests, try again later",
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return clientKey(c.Request)
		},
	})
}

// clientKey identifies the caller: proxy-forwarded address first, then
// the real-IP header, then a shared "unknown" bucket.
func clientKey(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		return v
	}
	if v := r.Header.Get("X-Real-IP"); v != "" {
		return v
	}
	return "unknown"
}
