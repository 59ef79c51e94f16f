package requesttoken

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims is the claim set carried by a request token JWT.
//
// Registered claims map as: jti is the Token ID, sub is the scope, aud is
// the audience principal ID, exp/iat/nbf are the time bounds. The custom
// `max` claim carries the use cap and `mod` the login mode marker.
type TokenClaims struct {
	jwt.RegisteredClaims
	MaxUses   int    `json:"max"`
	LoginMode string `json:"mod,omitempty"`
}

// Scope returns the endpoint scope the token was minted for.
func (c *TokenClaims) Scope() string {
	return c.Subject
}

// TokenID parses the jti claim back into the stored token id.
func (c *TokenClaims) TokenID() (int64, error) {
	id, err := strconv.ParseInt(c.ID, 10, 64)
	if err != nil {
		return 0, annotate(ErrTokenMalformed, "token id claim is not an integer", map[string]any{
			"jti": c.ID,
		})
	}
	return id, nil
}

// AudienceID returns the audience principal id, if the claim is present.
func (c *TokenClaims) AudienceID() (uuid.UUID, bool) {
	if len(c.Audience) == 0 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.Audience[0])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Mode maps the mod claim marker back onto a LoginMode.
func (c *TokenClaims) Mode() (LoginMode, bool) {
	return ParseLoginMode(c.LoginMode)
}

// checkMandatoryClaims rejects claim sets missing jti, sub, or mod. Applied
// on both encode and decode so we never sign or accept an unidentifiable
// token.
func checkMandatoryClaims(c *TokenClaims) error {
	missing := []string{}
	if c.ID == "" {
		missing = append(missing, "jti")
	}
	if c.Subject == "" {
		missing = append(missing, "sub")
	}
	if c.LoginMode == "" {
		missing = append(missing, "mod")
	}
	if len(missing) > 0 {
		return annotate(ErrTokenMalformed, "missing mandatory claims", map[string]any{
			"claims": missing,
		})
	}
	return nil
}
