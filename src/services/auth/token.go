package auth

import (
	"time"

	"go-order-api/src/apperrors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload. TwoFAPending marks the short-lived token issued
// between password verification and TOTP verification; such a token grants
// access to nothing but the 2FA login endpoint.
type Claims struct {
	jwt.RegisteredClaims
	TwoFAPending bool `json:"2fa_pending,omitempty"`
}

// TokenManager signs and verifies session tokens. Signing is HMAC-SHA256;
// the signing internals are trusted, this type only decides what goes into
// the payload.
type TokenManager struct {
	secret     []byte
	issuer     string
	sessionTTL time.Duration
	pendingTTL time.Duration
}

func NewTokenManager(secret, issuer string, sessionTTL, pendingTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		sessionTTL: sessionTTL,
		pendingTTL: pendingTTL,
	}
}

// IssueSession creates a full session token for the given account.
func (m *TokenManager) IssueSession(email string) (string, error) {
	return m.sign(email, m.sessionTTL, false)
}

// IssuePending creates the short-lived 2FA-pending token.
func (m *TokenManager) IssuePending(email string) (string, error) {
	return m.sign(email, m.pendingTTL, true)
}

func (m *TokenManager) sign(email string, ttl time.Duration, pending bool) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TwoFAPending: pending,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse verifies signature, structure and expiry, returning the claims or an
// AuthError.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.NewAuthError("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.NewAuthError("invalid token")
	}
	return claims, nil
}
