package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	TokenTypeAccess = "access"
	TokenTypeSSE    = "sse"
)

var ErrInvalidToken = errors.New("invalid token")

type Service interface {
	GenerateAccessToken(identity user.Identity) (token string, expiresAt int64, err error)
	GenerateSSEToken(identity user.Identity) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (user.Identity, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenTTL time.Duration
	tokenAuth      *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// NewJWTService verifies HS256 tokens issued by the identity provider. Access
// tokens are minted here only for tooling and tests.
func NewJWTService(secretKey string, accessTokenTTL time.Duration) Service {
	if accessTokenTTL <= 0 {
		accessTokenTTL = 15 * time.Minute
	}
	return &JWTService{
		accessTokenTTL: accessTokenTTL,
		tokenAuth:      jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(identity user.Identity) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":     identity.UserID,
		"employee_id": identity.WorkerID,
		"role":        string(identity.Role),
		"type":        TokenTypeAccess,
		"exp":         expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(identity user.Identity) (token string, expiresIn int, err error) {
	// SSE tokens are short-lived (5 minutes)
	expiresIn = 300
	expiresAt := time.Now().Add(5 * time.Minute).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":     identity.UserID,
		"employee_id": identity.WorkerID,
		"role":        string(identity.Role),
		"type":        TokenTypeSSE,
		"exp":         expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateSSEToken validates an SSE token and returns the caller it names
func (j *JWTService) ValidateSSEToken(tokenString string) (user.Identity, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return user.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return user.Identity{}, ErrInvalidToken
	}
	if tokenType, _ := claims["type"].(string); tokenType != TokenTypeSSE {
		return user.Identity{}, ErrInvalidToken
	}

	return IdentityFromClaims(claims)
}

// IdentityFromClaims reads the caller out of verified token claims.
func IdentityFromClaims(claims map[string]interface{}) (user.Identity, error) {
	userID, _ := claims["user_id"].(string)
	workerID, _ := claims["employee_id"].(string)
	roleStr, _ := claims["role"].(string)

	if userID == "" || workerID == "" {
		return user.Identity{}, ErrInvalidToken
	}
	role, err := user.ParseRole(roleStr)
	if err != nil {
		return user.Identity{}, ErrInvalidToken
	}

	return user.Identity{UserID: userID, WorkerID: workerID, Role: role}, nil
}
