package auth

import (
	"fmt"
	"time"

	"alignlab/internal/utils"
	"alignlab/pkg/types"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// TokenService mints and parses the signed half of an access token. Tokens
// are HS256 JWTs whose jti points at an auth_tokens row; the row is the
// source of truth for revocation, the signature only proves we issued it.
type TokenService struct {
	key    jwk.Key
	issuer string
	ttl    time.Duration
}

func NewTokenService(secret, issuer string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("set TOKEN_SECRET")
	}

	key, err := jwk.Import([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}

	return &TokenService{key: key, issuer: issuer, ttl: ttl}, nil
}

// Mint returns the signed token string together with the row to persist.
func (t *TokenService) Mint(userID string) (string, *types.AuthToken, error) {
	now := time.Now()
	record := &types.AuthToken{
		ID:        utils.NanoID(),
		UserID:    userID,
		ExpiresAt: now.Add(t.ttl),
		CreatedAt: now,
	}

	tok, err := jwt.NewBuilder().
		JwtID(record.ID).
		Subject(userID).
		Issuer(t.issuer).
		IssuedAt(now).
		Expiration(record.ExpiresAt).
		Build()
	if err != nil {
		return "", nil, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), t.key))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), record, nil
}

// Parse verifies the signature and standard claims and returns the token id
// and subject. Callers still have to look the id up before trusting it.
func (t *TokenService) Parse(raw string) (tokenID, userID string, err error) {
	tok, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.HS256(), t.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(t.issuer),
	)
	if err != nil {
		return "", "", types.ErrInvalidToken
	}

	tokenID, ok := tok.JwtID()
	if !ok || tokenID == "" {
		return "", "", types.ErrInvalidToken
	}

	userID, ok = tok.Subject()
	if !ok || userID == "" {
		return "", "", types.ErrInvalidToken
	}

	return tokenID, userID, nil
}
