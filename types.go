package requesttoken

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an audience principal
type Identity interface {
	ID() string
	Username() string
	Email() string
}

// IdentityProvider ensures we have a store to resolve token audiences
type IdentityProvider interface {
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// IdentityBinder is the capability the resolver uses to mutate the current
// request's identity. BindRequest scopes the identity to the request only;
// EstablishSession performs the equivalent of a full, credential-free login.
// Both are implemented by the host application, never by this package.
type IdentityBinder interface {
	BindRequest(ctx context.Context, identity Identity) error
	EstablishSession(ctx context.Context, identity Identity) error
}

// TokenDecoder decodes raw token strings without tying callers to a specific
// signing implementation.
type TokenDecoder interface {
	Decode(raw string) (*TokenClaims, error)
}

// TokenEncoder signs a claim set into its compact textual representation.
type TokenEncoder interface {
	Encode(claims *TokenClaims) (string, error)
}

// NewDefaultLogger returns the stdout fallback logger.
func NewDefaultLogger() Logger {
	return &defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] RTKN "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] RTKN "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] RTKN "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] RTKN "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
