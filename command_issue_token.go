package requesttoken

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IssueTokenMessage mints a new request token. Audience is an identity
// identifier (email or id) resolved through the IdentityProvider; it is
// required for Request and Session tokens.
type IssueTokenMessage struct {
	Scope     string         `json:"scope"`
	LoginMode LoginMode      `json:"login_mode"`
	Audience  string         `json:"audience"`
	ExpiresAt *time.Time     `json:"expires_at"`
	NotBefore *time.Time     `json:"not_before"`
	MaxUses   int            `json:"max_uses"`
	Data      map[string]any `json:"data"`
}

func (e IssueTokenMessage) Type() string { return "token.issue" }

func (e IssueTokenMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Scope, validation.Required),
		validation.Field(&e.LoginMode, validation.Required, validation.In(
			LoginModeNone, LoginModeRequest, LoginModeSession,
		)),
		validation.Field(&e.MaxUses, validation.Min(0)),
	)
}

type IssueTokenHandler struct {
	repo     RepositoryManager
	provider IdentityProvider
	logger   Logger
}

func NewIssueTokenHandler(repo RepositoryManager, provider IdentityProvider, logger Logger) *IssueTokenHandler {
	if logger == nil {
		logger = &defLogger{}
	}
	return &IssueTokenHandler{repo: repo, provider: provider, logger: logger}
}

func (h *IssueTokenHandler) Execute(ctx context.Context, event IssueTokenMessage) (*Token, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during token issuance",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *IssueTokenHandler) execute(ctx context.Context, event IssueTokenMessage) (*Token, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid token request")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	token := &Token{
		Scope:          event.Scope,
		LoginMode:      event.LoginMode,
		ExpirationTime: event.ExpiresAt,
		NotBeforeTime:  event.NotBefore,
		MaxUses:        event.MaxUses,
		Data:           event.Data,
	}

	if event.Audience != "" {
		userID, err := h.resolveAudience(ctx, event.Audience)
		if err != nil {
			return nil, err
		}
		token.UserID = userID
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Tokens().CreateTx(ctx, tx, token); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "token issuance transaction failed")
	}

	h.logger.Info("issued %s scope=%s mode=%s", token, token.Scope, token.LoginMode)

	return token, nil
}

func (h *IssueTokenHandler) resolveAudience(ctx context.Context, identifier string) (*uuid.UUID, error) {
	identity, err := h.provider.FindIdentityByIdentifier(ctx, identifier)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryNotFound, "token audience not found").
			WithMetadata(map[string]any{"identifier": identifier})
	}
	if identity == nil {
		return nil, annotate(ErrIdentityNotFound, "token audience not found", map[string]any{
			"identifier": identifier,
		})
	}

	id, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "identity id is not a uuid")
	}

	return &id, nil
}
