package utils

import (
	"context"
)

type contextKey string

const (
	ContextUserIDKey contextKey = "userID"
	ContextClientKey contextKey = "clientKey"
)

// WithUserID returns ctx carrying the caller's user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserIDKey, userID)
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID := ctx.Value(ContextUserIDKey)
	userIDStr, ok := userID.(string)
	return userIDStr, ok && userIDStr != ""
}

// WithClientKey returns ctx carrying the key the rate limiter bucketed the request under.
func WithClientKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ContextClientKey, key)
}

func GetClientKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(ContextClientKey).(string)
	return key, ok
}
