package requesttoken

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenCodec signs and verifies request token JWTs using an HMAC key.
type TokenCodec struct {
	signingKey []byte
	method     jwt.SigningMethod
	logger     Logger
}

// NewTokenCodec builds a codec for the given key. An unrecognized method
// name falls back to HS256.
func NewTokenCodec(signingKey []byte, method string, logger Logger) *TokenCodec {
	if logger == nil {
		logger = &defLogger{}
	}
	m := jwt.GetSigningMethod(method)
	if m == nil {
		m = jwt.SigningMethodHS256
	}
	return &TokenCodec{
		signingKey: signingKey,
		method:     m,
		logger:     logger,
	}
}

// Encode signs the claim set into its compact form. Claim sets missing any
// of the mandatory claims are rejected before signing.
func (c *TokenCodec) Encode(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", errors.New("cannot encode nil claims", errors.CategoryBadInput).
			WithTextCode(TextCodeTokenInvalid).
			WithCode(errors.CodeBadRequest)
	}

	if err := checkMandatoryClaims(claims); err != nil {
		return "", err
	}

	raw, err := jwt.NewWithClaims(c.method, claims).SignedString(c.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token").
			WithCode(errors.CodeInternal)
	}

	return raw, nil
}

// Decode verifies the signature and time claims, returning the claim set.
// Failures map onto the token error taxonomy, so callers can classify them
// with errors.Is.
func (c *TokenCodec) Decode(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}

	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	})
	if err != nil {
		c.logger.Debug("token decode failed: %v", err)
		return nil, c.decodeError(err)
	}

	if err := checkMandatoryClaims(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

func (c *TokenCodec) decodeError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return annotate(ErrTokenExpired, "token has expired", nil)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return annotate(ErrTokenImmature, "token is not valid yet", nil)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return annotate(ErrTokenSignature, "token signature is invalid", nil)
	default:
		return annotate(ErrTokenMalformed, "token is malformed", map[string]any{
			"cause": err.Error(),
		})
	}
}
