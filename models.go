package requesttoken

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LoginMode governs how a validated token affects the request identity
type LoginMode string

const (
	// LoginModeNone does not touch the request identity
	LoginModeNone LoginMode = "None"
	// LoginModeRequest authenticates the audience for the original request only
	LoginModeRequest LoginMode = "Request"
	// LoginModeSession authenticates fully, for single-use short-duration links
	LoginModeSession LoginMode = "Session"
)

// Marker returns the compact `mod` claim value for the mode.
func (m LoginMode) Marker() string {
	if m == "" {
		return ""
	}
	return strings.ToLower(string(m)[:1])
}

// ParseLoginMode maps a `mod` claim marker back onto a LoginMode.
func ParseLoginMode(marker string) (LoginMode, bool) {
	switch marker {
	case "n":
		return LoginModeNone, true
	case "r":
		return LoginModeRequest, true
	case "s":
		return LoginModeSession, true
	}
	return "", false
}

// Token is a link token, targeted for use by a known principal.
//
// Each token must have a scope, which ties it to the endpoint protected with
// a matching scope. The token may be bound to an audience principal, time
// bound through NotBeforeTime/ExpirationTime, and capped through MaxUses.
// UsedToDate is derived from the usage ledger, never incremented in place.
type Token struct {
	bun.BaseModel `bun:"table:request_tokens,alias:rtk"`

	ID             int64          `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Scope          string         `bun:"scope,notnull" json:"scope,omitempty"`
	LoginMode      LoginMode      `bun:"login_mode,notnull" json:"login_mode,omitempty"`
	UserID         *uuid.UUID     `bun:"user_id,type:uuid" json:"user_id,omitempty"`
	ExpirationTime *time.Time     `bun:"expiration_time,nullzero" json:"expiration_time,omitempty"`
	NotBeforeTime  *time.Time     `bun:"not_before_time,nullzero" json:"not_before_time,omitempty"`
	Data           map[string]any `bun:"data,type:jsonb" json:"data,omitempty"`
	IssuedAt       *time.Time     `bun:"issued_at,nullzero" json:"issued_at,omitempty"`
	MaxUses        int            `bun:"max_uses,notnull" json:"max_uses,omitempty"`
	UsedToDate     int            `bun:"used_to_date,notnull,default:0" json:"used_to_date"`
}

func (t *Token) String() string {
	return fmt.Sprintf("request token #%d", t.ID)
}

// Claims builds the signed claim set for the token. Absent fields produce
// absent claims; the Data payload is never part of the claim set.
func (t *Token) Claims() *TokenClaims {
	claims := &TokenClaims{
		MaxUses:   t.MaxUses,
		LoginMode: t.LoginMode.Marker(),
	}
	claims.Subject = t.Scope
	if t.ID != 0 {
		claims.ID = strconv.FormatInt(t.ID, 10)
	}
	if t.UserID != nil {
		claims.Audience = jwt.ClaimStrings{t.UserID.String()}
	}
	if t.ExpirationTime != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*t.ExpirationTime)
	}
	if t.IssuedAt != nil {
		claims.IssuedAt = jwt.NewNumericDate(*t.IssuedAt)
	}
	if t.NotBeforeTime != nil {
		claims.NotBefore = jwt.NewNumericDate(*t.NotBeforeTime)
	}
	return claims
}

// JWT encodes the token claims into their signed compact form.
func (t *Token) JWT(encoder TokenEncoder) (string, error) {
	return encoder.Encode(t.Claims())
}

// Clean validates the login-mode invariants. Session tokens must be bound to
// a principal, single use, and time bound; Request tokens must be bound to a
// principal. Invalid tokens are never persisted.
func (t *Token) Clean() error {
	fields := []*validation.FieldRules{
		validation.Field(&t.Scope, validation.Required),
		validation.Field(&t.MaxUses, validation.Required, validation.Min(1)),
		validation.Field(&t.LoginMode, validation.Required, validation.In(
			LoginModeNone, LoginModeRequest, LoginModeSession,
		)),
	}

	switch t.LoginMode {
	case LoginModeSession:
		fields = append(fields,
			validation.Field(&t.UserID,
				validation.Required.Error("session token must have a user")),
			validation.Field(&t.MaxUses,
				validation.Required.Error("session token must have max_uses of 1"),
				validation.In(1).Error("session token must have max_uses of 1")),
			validation.Field(&t.ExpirationTime,
				validation.Required.Error("session token must have an expiration_time")),
		)
	case LoginModeRequest:
		fields = append(fields,
			validation.Field(&t.UserID,
				validation.Required.Error("request token must have a user")),
		)
	}

	if err := validation.ValidateStruct(t, fields...); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "request token is invalid").
			WithTextCode(TextCodeTokenInvalid).
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"fields": err.Error()})
	}

	return nil
}

// ValidateMaxUses checks the token use cap is still valid. Pure read.
func (t *Token) ValidateMaxUses() error {
	if t.UsedToDate >= t.MaxUses {
		return maxUseError(t)
	}
	return nil
}

// Expire forces immediate expiry. Tokens are never deleted by this package,
// so back-dating the expiration is the manual revocation mechanism.
func (t *Token) Expire() {
	now := time.Now()
	t.ExpirationTime = &now
}

// TokenLog records one attempted use of a Token. Entries are immutable once
// written.
type TokenLog struct {
	bun.BaseModel `bun:"table:request_token_logs,alias:rtl"`

	ID         int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	TokenID    int64      `bun:"token_id,notnull" json:"token_id,omitempty"`
	UserID     *uuid.UUID `bun:"user_id,type:uuid" json:"user_id,omitempty"`
	UserAgent  string     `bun:"user_agent" json:"user_agent,omitempty"`
	ClientIP   *string    `bun:"client_ip" json:"client_ip,omitempty"`
	StatusCode int        `bun:"status_code" json:"status_code,omitempty"`
	Timestamp  time.Time  `bun:"timestamp,notnull" json:"timestamp,omitempty"`
}

func (l *TokenLog) String() string {
	if l.UserID == nil {
		return fmt.Sprintf("request token #%d used at %s", l.TokenID, l.Timestamp.Format(time.RFC3339))
	}
	return fmt.Sprintf("request token #%d used by %s at %s", l.TokenID, l.UserID, l.Timestamp.Format(time.RFC3339))
}

// TokenErrorLog attaches the failure reason to a rejected use. At most one
// per TokenLog; attempts with an attached error never count toward max_uses.
type TokenErrorLog struct {
	bun.BaseModel `bun:"table:request_token_error_logs,alias:rte"`

	ID           int64  `bun:"id,pk,autoincrement" json:"id,omitempty"`
	TokenID      int64  `bun:"token_id,notnull" json:"token_id,omitempty"`
	LogID        int64  `bun:"log_id,notnull,unique" json:"log_id,omitempty"`
	ErrorType    string `bun:"error_type,notnull" json:"error_type,omitempty"`
	ErrorMessage string `bun:"error_message,notnull" json:"error_message,omitempty"`
}

func (e *TokenErrorLog) String() string {
	return e.ErrorMessage
}

func newTokenErrorLog(entry *TokenLog, cause error) *TokenErrorLog {
	return &TokenErrorLog{
		TokenID:      entry.TokenID,
		LogID:        entry.ID,
		ErrorType:    errorKind(cause),
		ErrorMessage: cause.Error(),
	}
}

// errorKind names the failure for the error log, preferring the rich error
// text code over the Go type name.
func errorKind(err error) string {
	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode != "" {
		return rich.TextCode
	}
	return fmt.Sprintf("%T", err)
}
