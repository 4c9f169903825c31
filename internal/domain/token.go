package domain

import "time"

// TokenKind distinguishes signed bearer tokens issued by the service
type TokenKind string

const (
	// TokenKindAccess is a regular access token
	TokenKindAccess TokenKind = "access"
	// TokenKindMfa is a short-lived ticket issued after the password step of an
	// MFA login. It is only exchangeable for a token pair together with a valid
	// second factor and is never accepted as an access token.
	TokenKindMfa TokenKind = "mfa"
)

// TokenClaims represents the decoded claims of a signed bearer token
type TokenClaims struct {
	UserID int64     `json:"id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
	Kind   TokenKind `json:"typ"`
	JTI    string    `json:"jti"`
	Exp    int64     `json:"exp"`
	Iat    int64     `json:"iat"`
}

// IsExpired checks if the token is expired
func (tc TokenClaims) IsExpired() bool {
	return time.Now().Unix() > tc.Exp
}

// RefreshToken is the persisted form of a refresh token. Only the SHA-256 hash
// of the opaque secret is stored; the raw value appears once in the issuing
// response and is never recoverable.
type RefreshToken struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
