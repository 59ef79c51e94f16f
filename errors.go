package requesttoken

import (
	"fmt"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeTokenMalformed   = "request_token_malformed"
	TextCodeTokenSignature   = "request_token_bad_signature"
	TextCodeTokenExpired     = "request_token_expired"
	TextCodeTokenImmature    = "request_token_immature"
	TextCodeTokenNotFound    = "request_token_not_found"
	TextCodeScopeMismatch    = "request_token_scope_mismatch"
	TextCodeMaxUseExceeded   = "request_token_max_use_exceeded"
	TextCodeAudienceMismatch = "request_token_audience_mismatch"
	TextCodeTokenInvalid     = "request_token_invalid"
)

// ErrTokenMalformed is returned when a token string cannot be decoded at all.
var ErrTokenMalformed = errors.New("request token is malformed", errors.CategoryBadInput).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeBadRequest)

// ErrTokenSignature is returned when the token signature does not verify.
var ErrTokenSignature = errors.New("request token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenSignature).
	WithCode(errors.CodeForbidden)

// ErrTokenExpired is returned when the token is past its `exp` claim.
var ErrTokenExpired = errors.New("request token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeForbidden)

// ErrTokenImmature is returned when the token is used before its `nbf` claim.
var ErrTokenImmature = errors.New("request token is not valid yet", errors.CategoryAuth).
	WithTextCode(TextCodeTokenImmature).
	WithCode(errors.CodeForbidden)

// ErrTokenNotFound is returned when a decoded `jti` does not match a stored
// token. It is distinct from the decode errors above: the claims were valid,
// the entity is gone.
var ErrTokenNotFound = errors.New("request token not found", errors.CategoryNotFound).
	WithTextCode(TextCodeTokenNotFound).
	WithCode(errors.CodeNotFound)

// ErrScopeMismatch is returned when the token scope does not match the scope
// required by the endpoint.
var ErrScopeMismatch = errors.New("request token scope mismatch", errors.CategoryAuthz).
	WithTextCode(TextCodeScopeMismatch).
	WithCode(errors.CodeForbidden)

// ErrMaxUseExceeded is returned when a token has exhausted its use cap.
var ErrMaxUseExceeded = errors.New("request token has exceeded max uses", errors.CategoryAuthz).
	WithTextCode(TextCodeMaxUseExceeded).
	WithCode(errors.CodeForbidden)

// ErrAudienceMismatch is returned when the authenticated principal is not the
// token's audience.
var ErrAudienceMismatch = errors.New("request token audience mismatch", errors.CategoryAuthz).
	WithTextCode(TextCodeAudienceMismatch).
	WithCode(errors.CodeForbidden)

// ErrTokenInvalid covers entity validation failures at save time.
var ErrTokenInvalid = errors.New("request token is invalid", errors.CategoryValidation).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeBadRequest)

// ErrIdentityNotFound is returned when a token audience cannot be resolved.
var ErrIdentityNotFound = errors.New("token audience identity not found", errors.CategoryAuth).
	WithTextCode("request_token_identity_not_found").
	WithCode(errors.CodeForbidden)

// IsDecodeError reports whether err belongs to the claims-decode class of
// failures, where no token entity was resolved and the usage ledger cannot
// be written to.
func IsDecodeError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenSignature) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenImmature)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenExpired)
}

// IsMalformedError will check for undecodable token strings
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenMalformed)
}

// IsMaxUseError will check for exhausted tokens
func IsMaxUseError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrMaxUseExceeded)
}

// AsRichError normalizes any error into a rich error, wrapping unknown
// errors as internal.
func AsRichError(err error) *errors.Error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}
	return errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
		WithCode(errors.CodeInternal)
}

// annotate clones a sentinel with a contextual message and metadata while
// keeping errors.Is against the sentinel working through Source.
func annotate(sentinel *errors.Error, message string, metadata map[string]any) error {
	clone := sentinel.Clone()
	if clone == nil {
		return sentinel
	}
	clone.Message = message
	clone.Source = sentinel
	if metadata != nil {
		return clone.WithMetadata(metadata)
	}
	return clone
}

func scopeMismatchError(token *Token, required string) error {
	return annotate(ErrScopeMismatch,
		fmt.Sprintf("request token [%d] scope mismatch: '%s' != '%s'", token.ID, token.Scope, required),
		map[string]any{"token_id": token.ID, "scope": token.Scope, "required": required},
	)
}

func maxUseError(token *Token) error {
	return annotate(ErrMaxUseExceeded,
		fmt.Sprintf("request token [%d] has exceeded max uses", token.ID),
		map[string]any{"token_id": token.ID, "max_uses": token.MaxUses, "used_to_date": token.UsedToDate},
	)
}

func audienceMismatchError(token *Token, current Identity) error {
	audience := ""
	if token.UserID != nil {
		audience = token.UserID.String()
	}
	return annotate(ErrAudienceMismatch,
		fmt.Sprintf("request token [%d] audience mismatch: '%s' != '%s'", token.ID, current.ID(), audience),
		map[string]any{"token_id": token.ID, "current": current.ID(), "audience": audience},
	)
}

func tokenNotFoundError(id int64) error {
	return annotate(ErrTokenNotFound,
		fmt.Sprintf("request token [%d] not found", id),
		map[string]any{"token_id": id},
	)
}
