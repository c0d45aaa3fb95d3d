package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ActorHeader names the user on whose behalf a request is made. Authentication is handled upstream.
	ActorHeader  = "X-User-ID"
	DefaultActor = "system"

	actorKey = "user_id"
)

type actorCtxKey struct{}

// Actor stores the calling user in the Gin context for audit fields
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actor == "" {
			actor = DefaultActor
		}
		c.Set(actorKey, actor)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), actorCtxKey{}, actor))
		c.Next()
	}
}

// GetUserID returns the calling user, or DefaultActor when none was recorded
func GetUserID(c *gin.Context) string {
	if actor := c.GetString(actorKey); actor != "" {
		return actor
	}
	return DefaultActor
}

// ActorFromContext returns the user recorded by Actor for code that only sees the request context
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorCtxKey{}).(string); ok && actor != "" {
		return actor
	}
	return DefaultActor
}
