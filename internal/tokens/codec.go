package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/devteria/identity_service/internal/apperr"
)

// Issuer is embedded in every token and checked nowhere else; it identifies
// which deployment minted a bearer credential.
const Issuer = "devteria.com"

// Claims is the single token shape used for both the access and the refresh
// role. Scope is a space-joined list of ROLE_<name> and permission names.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Codec builds and parses signed session tokens. Pure: the only state is the
// symmetric signing key, so a Codec is safe for concurrent use.
type Codec struct {
	Key []byte
}

// Issue mints a compact HS512 token for subject with a fresh jti.
func (c *Codec) Issue(subject, scope string, now time.Time, validFor time.Duration) (string, *Claims, error) {
	claims := &Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validFor)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.Key)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", apperr.ErrSigningFailure, err)
	}
	return signed, claims, nil
}

// Parse decodes raw and verifies its MAC. Registered time claims are NOT
// validated here: the lifecycle manager substitutes its own effective expiry
// in refresh context, so expiry checks belong to the caller.
func (c *Codec) Parse(raw string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.Key, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, fmt.Errorf("%w: %v", apperr.ErrMalformedToken, err)
		}
		// Bad signature or wrong algorithm: the token is forged or keyed
		// against another deployment.
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	return &claims, nil
}
