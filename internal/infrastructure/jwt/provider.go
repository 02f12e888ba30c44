package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/citizen-services/auth-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenTypeAccess and TokenTypeRefresh tag the token_type claim so a
	// refresh token can never be replayed as an access token or vice versa.
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	// minSecretLen is the minimum HMAC key length for HS256. Shorter
	// configured secrets are zero-padded up to this length; they are never
	// truncated.
	minSecretLen = 32
)

// Claims holds the JWT payload fields. Sub carries the primary contact
// address (email for password logins, mobile for OTP logins).
type Claims struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs. Tokens are stateless: validity is
// a function of signature and embedded timestamps only, nothing is persisted.
type Provider struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewProvider(secret string, accessTTL, refreshTTL time.Duration) (*Provider, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	key := []byte(secret)
	if len(key) < minSecretLen {
		padded := make([]byte, minSecretLen)
		copy(padded, key)
		key = padded
	}
	return &Provider{secret: key, accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

// MintAccess creates a signed access token carrying the account id, contact
// and role.
func (p *Provider) MintAccess(accountID, contact string, role domain.Role) (string, error) {
	return p.mint(&Claims{
		AccountID: accountID,
		Role:      string(role),
		TokenType: TokenTypeAccess,
	}, contact, p.accessTTL)
}

// MintRefresh creates a signed refresh token. Refresh tokens carry no role:
// the role is re-resolved from the account on refresh.
func (p *Provider) MintRefresh(accountID, contact string) (string, error) {
	return p.mint(&Claims{
		AccountID: accountID,
		TokenType: TokenTypeRefresh,
	}, contact, p.refreshTTL)
}

func (p *Provider) mint(claims *Claims, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Claims verifies the signature and decodes the payload. Expired tokens map
// to domain.ErrExpiredToken; any other structural or signature failure maps
// to domain.ErrMalformedToken.
func (p *Provider) Claims(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token expired: %w", domain.ErrExpiredToken)
		}
		return nil, fmt.Errorf("parse token: %w", domain.ErrMalformedToken)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrMalformedToken)
	}
	return claims, nil
}

// VerifyAccess decodes an access token, rejecting refresh tokens.
func (p *Provider) VerifyAccess(tokenStr string) (*Claims, error) {
	claims, err := p.Claims(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("token is not an access token: %w", domain.ErrMalformedToken)
	}
	return claims, nil
}

// VerifyRefresh reports whether the token is a well-formed, unexpired
// refresh token.
func (p *Provider) VerifyRefresh(tokenStr string) bool {
	claims, err := p.Claims(tokenStr)
	return err == nil && claims.TokenType == TokenTypeRefresh
}
