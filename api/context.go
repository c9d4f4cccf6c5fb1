package api

import (
	"context"
)

type keyType string

const (
	usernameKey keyType = "username"
)

// ctxWithUsername adds the authenticated admin to the context
func ctxWithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// ctxGetUsername returns the admin set by the auth middleware, or "" on public routes
func ctxGetUsername(ctx context.Context) string {
	username, _ := ctx.Value(usernameKey).(string)
	return username
}
