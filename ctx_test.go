package requesttoken

import (
	"context"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenContextRoundTrip(t *testing.T) {
	token := &Token{ID: 1, Scope: "foo"}

	ctx := WithToken(context.Background(), token)

	got, ok := TokenFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, token, got)

	_, ok = TokenFromContext(context.Background())
	assert.False(t, ok)
}

func TestIdentityContextRoundTrip(t *testing.T) {
	identity := NewIdentity("id-1", "bob", "bob@example.com")

	ctx := WithIdentity(context.Background(), identity)

	got, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, identity, got)

	_, ok = IdentityFromContext(context.Background())
	assert.False(t, ok)
}

func TestWithIdentityNilIsNoop(t *testing.T) {
	ctx := WithIdentity(context.Background(), nil)
	_, ok := IdentityFromContext(ctx)
	assert.False(t, ok)
}

func TestRouterToken(t *testing.T) {
	token := &Token{ID: 1}

	ctx := router.NewMockContext()
	ctx.LocalsMock["request_token"] = token

	got, ok := RouterToken(ctx, "")
	require.True(t, ok)
	assert.Equal(t, token, got)

	_, ok = RouterToken(ctx, "other_key")
	assert.False(t, ok)
}
