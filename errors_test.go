package requesttoken

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeErrorHelpers(t *testing.T) {
	assert.False(t, IsDecodeError(nil))
	assert.False(t, IsTokenExpiredError(nil))
	assert.False(t, IsMalformedError(nil))
	assert.False(t, IsMaxUseError(nil))

	assert.True(t, IsDecodeError(ErrTokenMalformed))
	assert.True(t, IsDecodeError(ErrTokenSignature))
	assert.True(t, IsDecodeError(ErrTokenExpired))
	assert.True(t, IsDecodeError(ErrTokenImmature))
	assert.False(t, IsDecodeError(ErrScopeMismatch))

	assert.True(t, IsTokenExpiredError(ErrTokenExpired))
	assert.False(t, IsTokenExpiredError(ErrTokenMalformed))
}

func TestAnnotateKeepsSentinelIdentity(t *testing.T) {
	err := annotate(ErrScopeMismatch, "scope mismatch on token 7", map[string]any{
		"token_id": int64(7),
	})

	assert.True(t, goerrors.Is(err, ErrScopeMismatch))

	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich))
	assert.Equal(t, "scope mismatch on token 7", rich.Message)
	assert.Equal(t, TextCodeScopeMismatch, rich.TextCode)
	assert.Equal(t, int64(7), rich.Metadata["token_id"])
}

func TestConstructorMetadata(t *testing.T) {
	token := &Token{ID: 3, Scope: "foo", MaxUses: 1, UsedToDate: 1}

	err := maxUseError(token)
	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich))
	assert.Equal(t, TextCodeMaxUseExceeded, rich.TextCode)
	assert.Equal(t, int64(3), rich.Metadata["token_id"])

	err = tokenNotFoundError(99)
	require.True(t, goerrors.As(err, &rich))
	assert.Equal(t, TextCodeTokenNotFound, rich.TextCode)
	assert.True(t, goerrors.Is(err, ErrTokenNotFound))
}
