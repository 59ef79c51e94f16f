package requesttoken

import (
	"context"

	"github.com/goliatone/go-router"
)

// Validator runs the full token use pipeline: decode, load, scope check,
// use-cap check, identity resolution. Business rejections are recorded in
// the usage ledger before they surface; decode failures and unknown token
// ids never reach the ledger since there is no stored token to charge.
type Validator struct {
	codec    TokenDecoder
	repo     RepositoryManager
	resolver *Resolver
	logger   Logger
}

// NewValidator wires the validation pipeline.
func NewValidator(codec TokenDecoder, repo RepositoryManager, resolver *Resolver) *Validator {
	return &Validator{
		codec:    codec,
		repo:     repo,
		resolver: resolver,
		logger:   &defLogger{},
	}
}

// WithLogger makes the validator use the given logger
func (v *Validator) WithLogger(logger Logger) *Validator {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// Use validates a raw token against the given scope and resolves the
// request identity. On success the use is NOT yet recorded; call Record
// once the guarded handler has produced its response status.
func (v *Validator) Use(ctx context.Context, raw, scope string, meta RequestMeta, binder IdentityBinder) (*Token, Identity, error) {
	claims, err := v.codec.Decode(raw)
	if err != nil {
		v.logger.Error("token rejected at decode: %v", err)
		return nil, nil, err
	}

	id, err := claims.TokenID()
	if err != nil {
		v.logger.Error("token rejected, bad id claim: %v", err)
		return nil, nil, err
	}

	token, err := v.repo.Tokens().GetByID(ctx, id)
	if err != nil {
		v.logger.Error("token %d rejected, not in store: %v", id, err)
		return nil, nil, err
	}

	if token.Scope != scope {
		return nil, nil, v.fail(ctx, token, meta, scopeMismatchError(token, scope))
	}

	if err := token.ValidateMaxUses(); err != nil {
		return nil, nil, v.fail(ctx, token, meta, err)
	}

	identity, err := v.resolver.Authenticate(ctx, token, meta.User, binder)
	if err != nil {
		return nil, nil, v.fail(ctx, token, meta, err)
	}

	return token, identity, nil
}

// Record writes the successful use to the ledger with the response status
// of the guarded handler.
func (v *Validator) Record(ctx context.Context, token *Token, meta RequestMeta, statusCode int) (*TokenLog, error) {
	return v.repo.Ledger().Record(ctx, token, meta, statusCode, nil)
}

// fail records the rejection in the ledger and returns the original cause.
// A ledger write failure is logged but never masks the rejection.
func (v *Validator) fail(ctx context.Context, token *Token, meta RequestMeta, cause error) error {
	if _, err := v.repo.Ledger().Record(ctx, token, meta, router.StatusForbidden, cause); err != nil {
		v.logger.Error("failed to record rejected use of %s: %v", token, err)
	}
	return cause
}
