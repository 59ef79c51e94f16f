package requesttoken

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Resolver applies a token's login mode against the identity already on the
// request, if any.
//
// The outcome depends on both the mode and whether the request arrived
// authenticated. Anonymous requests take on the token audience per the
// mode; authenticated requests must already be the audience, and any other
// identity is rejected. Mode None never touches the request identity.
type Resolver struct {
	provider IdentityProvider
	logger   Logger
}

// NewResolver builds a resolver using the given identity provider.
func NewResolver(provider IdentityProvider, logger Logger) *Resolver {
	if logger == nil {
		logger = &defLogger{}
	}
	return &Resolver{provider: provider, logger: logger}
}

// Authenticate resolves the effective identity for a validated token.
// current is the identity already authenticated on the request, or nil.
// The binder receives the audience when the mode requires binding.
func (r *Resolver) Authenticate(ctx context.Context, token *Token, current Identity, binder IdentityBinder) (Identity, error) {
	if current == nil {
		return r.authenticateAnonymous(ctx, token, binder)
	}
	return r.authenticateKnown(ctx, token, current)
}

func (r *Resolver) authenticateAnonymous(ctx context.Context, token *Token, binder IdentityBinder) (Identity, error) {
	switch token.LoginMode {
	case LoginModeRequest:
		audience, err := r.audience(ctx, token)
		if err != nil {
			return nil, err
		}
		if err := binder.BindRequest(ctx, audience); err != nil {
			return nil, errors.Wrap(err, errors.CategoryAuth, "failed to bind token audience to request")
		}
		r.logger.Debug("%s bound audience %s to request", token, audience.ID())
		return audience, nil

	case LoginModeSession:
		audience, err := r.audience(ctx, token)
		if err != nil {
			return nil, err
		}
		if err := binder.EstablishSession(ctx, audience); err != nil {
			return nil, errors.Wrap(err, errors.CategoryAuth, "failed to establish session for token audience")
		}
		r.logger.Debug("%s established session for audience %s", token, audience.ID())
		return audience, nil

	default:
		return nil, nil
	}
}

func (r *Resolver) authenticateKnown(ctx context.Context, token *Token, current Identity) (Identity, error) {
	if token.LoginMode == LoginModeNone {
		return current, nil
	}

	if token.UserID != nil && token.UserID.String() == current.ID() {
		return current, nil
	}

	return nil, audienceMismatchError(token, current)
}

// audience loads the principal the token was minted for.
func (r *Resolver) audience(ctx context.Context, token *Token) (Identity, error) {
	identity, err := r.provider.FindIdentityByIdentifier(ctx, token.UserID.String())
	if err != nil {
		return nil, errors.Wrap(err, ErrIdentityNotFound.Category, ErrIdentityNotFound.Message).
			WithTextCode(ErrIdentityNotFound.TextCode).
			WithCode(errors.CodeForbidden).
			WithMetadata(map[string]any{"user_id": token.UserID.String()})
	}
	if identity == nil {
		return nil, annotate(ErrIdentityNotFound, "token audience does not exist", map[string]any{
			"user_id": token.UserID.String(),
		})
	}
	return identity, nil
}
