package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/searchlab/pkg/idx"
)

// MinSecretLength is the shortest HMAC secret NewCodec accepts.
const MinSecretLength = 32

// Verification failures. Verify wraps or returns exactly one of these.
var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
	ErrWrongType    = errors.New("jwtx: wrong token type")
)

// Codec mints and validates HS256 tokens with a single shared secret.
// Access tokens are verified statelessly; refresh tokens become stateful only
// through the refresh token store, which keys them by fingerprint.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration

	// Now is the clock used for minting and expiry checks.
	Now func() time.Time
}

// NewCodec builds a codec. Zero TTLs fall back to the package defaults.
func NewCodec(secret []byte, issuer string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwtx: secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &Codec{
		secret:     key,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		Now:        time.Now,
	}, nil
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// MintAccess signs a short-lived access token for subject carrying scopes.
func (c *Codec) MintAccess(subject string, scopes []string) (string, Claims, error) {
	claims := c.newClaims(subject, TokenTypeAccess, c.accessTTL)
	claims.Scopes = scopes
	return c.sign(claims)
}

// MintRefresh signs a long-lived refresh token for subject.
func (c *Codec) MintRefresh(subject string) (string, Claims, error) {
	return c.sign(c.newClaims(subject, TokenTypeRefresh, c.refreshTTL))
}

func (c *Codec) newClaims(subject, typ string, ttl time.Duration) Claims {
	now := c.Now().UTC()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        idx.New().String(),
		},
		Type: typ,
	}
}

func (c *Codec) sign(claims Claims) (string, Claims, error) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("jwtx: sign: %w", err)
	}
	return tok, claims, nil
}

// Validate checks signature and structure only. Expiry is left to IsExpired
// and Verify so callers can still inspect expired tokens (revocation).
func (c *Codec) Validate(token string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, ErrInvalidSig
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return Claims{}, ErrInvalidClaim
	}
	if claims.Type != TokenTypeAccess && claims.Type != TokenTypeRefresh {
		return Claims{}, ErrInvalidClaim
	}

	return claims, nil
}

// IsExpired reports whether the token is past its expiry. Any validation
// failure counts as expired.
func (c *Codec) IsExpired(token string) bool {
	claims, err := c.Validate(token)
	if err != nil {
		return true
	}
	return claims.ValidateExpiry(c.Now()) != nil
}

// IsRefreshType reports whether the token is a valid refresh token.
func (c *Codec) IsRefreshType(token string) bool {
	claims, err := c.Validate(token)
	return err == nil && claims.Type == TokenTypeRefresh
}

// ExtractScopes returns the scopes carried by a valid token.
func (c *Codec) ExtractScopes(token string) ([]string, error) {
	claims, err := c.Validate(token)
	if err != nil {
		return nil, err
	}
	return claims.Scopes, nil
}

// Verify is the full check for protected endpoints: signature, issuer,
// expiry and the access type. Refresh tokens are rejected here.
func (c *Codec) Verify(token string) (Claims, error) {
	claims, err := c.Validate(token)
	if err != nil {
		return Claims{}, err
	}

	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(c.Now()); err != nil {
		return Claims{}, err
	}
	if claims.Type != TokenTypeAccess {
		return Claims{}, ErrWrongType
	}

	return claims, nil
}
