package requesttoken

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ExpireTokenMessage revokes a token by back-dating its expiration. The
// token and its ledger entries are kept for audit.
type ExpireTokenMessage struct {
	TokenID int64 `json:"token_id"`
}

func (e ExpireTokenMessage) Type() string { return "token.expire" }

type ExpireTokenHandler struct {
	repo RepositoryManager
}

func NewExpireTokenHandler(repo RepositoryManager) *ExpireTokenHandler {
	return &ExpireTokenHandler{repo: repo}
}

func (h *ExpireTokenHandler) Execute(ctx context.Context, event ExpireTokenMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during token expiry",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ExpireTokenHandler) execute(ctx context.Context, event ExpireTokenMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Tokens().ExpireTx(ctx, tx, event.TokenID)
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "token expiry transaction failed")
	}

	return nil
}
