package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CallerHeader carries the identity of the party making a request.
const CallerHeader = "X-Account-ID"

const callerKey = "caller"

// CallerMiddleware reads the caller identity. Mutating requests without one
// are rejected with 401.
func CallerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := strings.TrimSpace(c.GetHeader(CallerHeader))
		if caller == "" && isMutating(c.Request.Method) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + CallerHeader + " header"})
			return
		}
		if caller != "" {
			c.Set(callerKey, caller)
		}
		c.Next()
	}
}

// Caller returns the caller identity set by CallerMiddleware.
func Caller(c *gin.Context) string {
	return c.GetString(callerKey)
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
