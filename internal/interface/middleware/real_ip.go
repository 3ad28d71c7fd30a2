package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIPKey is the Gin context key holding the resolved client IP.
const RealIPKey = "real_ip"

// proxy headers in order of trust; X-Forwarded-For is read left-most
var realIPHeaders = []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"}

// RealIP resolves the client IP from proxy headers, falling back to c.ClientIP().
// Unparseable header values are skipped.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(RealIPKey, resolveIP(c))
		c.Next()
	}
}

func resolveIP(c *gin.Context) string {
	for _, h := range realIPHeaders {
		v := c.GetHeader(h)
		if h == "X-Forwarded-For" {
			v, _, _ = strings.Cut(v, ",")
		}
		if ip := net.ParseIP(strings.TrimSpace(v)); ip != nil {
			return ip.String()
		}
	}
	return c.ClientIP()
}
