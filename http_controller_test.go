package requesttoken

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestTokenController(t *testing.T) (*TokenController, RepositoryManager) {
	t.Helper()
	db := setupTestDB(t)
	cfg := Options{SigningKey: "test"}
	repo := NewRepositoryManager(db, cfg, nil)
	codec := NewTokenCodec([]byte(cfg.GetSigningKey()), cfg.GetSigningMethod(), nil)

	controller := NewTokenController(
		WithControllerRepo(repo),
		WithControllerEncoder(codec),
		WithControllerProvider(&MockIdentityProvider{}),
	)
	return controller, repo
}

func TestTokenControllerShow(t *testing.T) {
	controller, repo := newTestTokenController(t)

	token := &Token{Scope: "foo", LoginMode: LoginModeNone}
	require.NoError(t, repo.Tokens().Create(context.Background(), token))

	ctx := router.NewMockContext()
	ctx.ParamsM["id"] = "1"
	ctx.On("Context").Return(context.Background())

	var payload map[string]any
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	require.NoError(t, controller.Show(ctx))

	got, ok := payload["token"].(*Token)
	require.True(t, ok)
	assert.Equal(t, token.ID, got.ID)
	assert.Equal(t, "foo", got.Scope)
}

func TestTokenControllerShowNotFound(t *testing.T) {
	controller, _ := newTestTokenController(t)

	ctx := router.NewMockContext()
	ctx.ParamsM["id"] = "99"
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", goerrors.CodeNotFound, mock.Anything).Return(nil)

	require.NoError(t, controller.Show(ctx))
	ctx.AssertExpectations(t)
}

func TestTokenControllerShowBadID(t *testing.T) {
	controller, _ := newTestTokenController(t)

	ctx := router.NewMockContext()
	ctx.ParamsM["id"] = "banana"
	ctx.On("JSON", router.StatusBadRequest, mock.Anything).Return(nil)

	require.NoError(t, controller.Show(ctx))
	ctx.AssertExpectations(t)
}

func TestTokenControllerExpire(t *testing.T) {
	controller, repo := newTestTokenController(t)

	token := &Token{Scope: "foo", LoginMode: LoginModeNone}
	require.NoError(t, repo.Tokens().Create(context.Background(), token))

	ctx := router.NewMockContext()
	ctx.ParamsM["id"] = "1"
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", router.StatusOK, mock.Anything).Return(nil)

	require.NoError(t, controller.Expire(ctx))

	stored, err := repo.Tokens().GetByID(context.Background(), token.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.ExpirationTime)
}
