package requesttoken

import (
	"context"

	"github.com/goliatone/go-router"
)

var tokenCtxKey = &contextKey{"token"}
var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithToken sets the validated Token in the given context
func WithToken(ctx context.Context, token *Token) context.Context {
	return context.WithValue(ctx, tokenCtxKey, token)
}

// TokenFromContext finds the validated token from the context.
func TokenFromContext(ctx context.Context) (*Token, bool) {
	raw, ok := ctx.Value(tokenCtxKey).(*Token)
	return raw, ok
}

// WithIdentity sets the resolved Identity in the given context
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext extracts the resolved identity from the standard context
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok
}

// RouterToken extracts the validated token from the router context
func RouterToken(ctx router.Context, key string) (*Token, bool) {
	if key == "" {
		key = "request_token"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	token, ok := raw.(*Token)
	return token, ok
}
