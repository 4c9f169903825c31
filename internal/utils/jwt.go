package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/homeopshq/homeops-api/internal/domain"
)

// JWTManager manages signed bearer tokens: access tokens and MFA tickets
type JWTManager struct {
	secret            []byte
	accessTokenExpiry time.Duration
	mfaTicketExpiry   time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, accessTokenExpiry, mfaTicketExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:            []byte(secret),
		accessTokenExpiry: accessTokenExpiry,
		mfaTicketExpiry:   mfaTicketExpiry,
	}
}

// GenerateAccessToken generates a new access token for a user
func (j *JWTManager) GenerateAccessToken(user *domain.User) (string, error) {
	return j.sign(user, domain.TokenKindAccess, j.accessTokenExpiry)
}

// GenerateMfaTicket generates the short-lived ticket issued after the password
// step of an MFA login. It carries typ=mfa and is rejected by access-token
// validation.
func (j *JWTManager) GenerateMfaTicket(user *domain.User) (string, error) {
	return j.sign(user, domain.TokenKindMfa, j.mfaTicketExpiry)
}

func (j *JWTManager) sign(user *domain.User, kind domain.TokenKind, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"typ":   string(kind),
		"jti":   uuid.New().String(),
		"exp":   now.Add(expiry).Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateAccessToken validates an access token and returns its claims.
// MFA tickets are rejected here so a ticket can never act as an access token.
func (j *JWTManager) ValidateAccessToken(tokenString string) (*domain.TokenClaims, error) {
	claims, err := j.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != domain.TokenKindAccess {
		return nil, fmt.Errorf("token is not an access token")
	}
	return claims, nil
}

// ValidateMfaTicket validates an MFA ticket and returns its claims
func (j *JWTManager) ValidateMfaTicket(tokenString string) (*domain.TokenClaims, error) {
	claims, err := j.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != domain.TokenKindMfa {
		return nil, fmt.Errorf("token is not an mfa ticket")
	}
	return claims, nil
}

func (j *JWTManager) parse(tokenString string) (*domain.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	id, ok := mapClaims["id"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid id in token")
	}

	email, ok := mapClaims["email"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid email in token")
	}

	role, ok := mapClaims["role"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid role in token")
	}

	exp, ok := mapClaims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid exp in token")
	}

	iat, ok := mapClaims["iat"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid iat in token")
	}

	// Legacy single-secret tokens predate the typ claim; treat them as access
	// tokens so older sessions keep working.
	kind := domain.TokenKindAccess
	if typ, ok := mapClaims["typ"].(string); ok {
		kind = domain.TokenKind(typ)
	}

	jti, _ := mapClaims["jti"].(string)

	claims := &domain.TokenClaims{
		UserID: int64(id),
		Email:  email,
		Role:   domain.Role(role),
		Kind:   kind,
		JTI:    jti,
		Exp:    int64(exp),
		Iat:    int64(iat),
	}

	if claims.IsExpired() {
		return nil, fmt.Errorf("token is expired")
	}

	return claims, nil
}

// GetAccessTokenExpiry returns the access token expiry duration in seconds
func (j *JWTManager) GetAccessTokenExpiry() int {
	return int(j.accessTokenExpiry.Seconds())
}
