package mw

import (
	"strings"

	"github.com/gin-gonic/gin"

	"seatwatch-backend/internal/model"
)

const identityKey = "identity"

// Identity reads the caller identity forwarded by the authenticating proxy
// and stores it on the context. Requests without one stay anonymous.
func Identity(userIDHeader, emailHeader string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := model.Identity{
			UserID: strings.TrimSpace(c.GetHeader(userIDHeader)),
			Email:  strings.ToLower(strings.TrimSpace(c.GetHeader(emailHeader))),
		}
		if !id.IsZero() {
			c.Set(identityKey, id)
		}
		c.Next()
	}
}

// IdentityFrom returns the caller identity, or nil for anonymous requests.
func IdentityFrom(c *gin.Context) *model.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id := v.(model.Identity)
	return &id
}
