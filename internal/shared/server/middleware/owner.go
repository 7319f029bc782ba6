package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ownerIDKey = "ownerId"

	// OwnerHeader carries the caller's owner ID. It is trusted as-is; identity
	// verification happens upstream of this service.
	OwnerHeader = "X-Owner-Id"
)

// Owner records the owner ID from OwnerHeader, when present, for logging and
// as the default owner of new enhancements.
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(OwnerHeader)); id != "" {
			c.Set(ownerIDKey, id)
		}
		c.Next()
	}
}

// OwnerIDFromContext fetches the owner ID set by Owner or by a handler.
func OwnerIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(ownerIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// SetOwnerID overrides the owner ID for the rest of the request.
func SetOwnerID(c *gin.Context, ownerID string) {
	if ownerID = strings.TrimSpace(ownerID); ownerID != "" {
		c.Set(ownerIDKey, ownerID)
	}
}
