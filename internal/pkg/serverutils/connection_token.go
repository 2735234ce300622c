package serverutils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ai-orchestrator-be/internal/apperror"
)

// Connection tokens are short-lived credentials scoped to one session. They
// only open the realtime stream; they grant no REST access.
const connectionTokenScope = "session.connect"

type ConnectionClaims struct {
	UserId    uuid.UUID
	SessionId uuid.UUID
}

func GenerateConnectionToken(secret string, userId, sessionId uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":    userId.String(),
		"session_id": sessionId.String(),
		"scope":      connectionTokenScope,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign connection token: %w", err)
	}
	return signed, nil
}

func VerifyConnectionToken(secret, tokenStr string) (*ConnectionClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.AuthFailure("Invalid connection token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperror.AuthFailure("Invalid token claims")
	}

	if scope, _ := claims["scope"].(string); scope != connectionTokenScope {
		return nil, apperror.AuthFailure("Token scope mismatch")
	}

	userIdStr, _ := claims["user_id"].(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return nil, apperror.AuthFailure("Invalid user id in token")
	}

	sessionIdStr, _ := claims["session_id"].(string)
	sessionId, err := uuid.Parse(sessionIdStr)
	if err != nil {
		return nil, apperror.AuthFailure("Invalid session id in token")
	}

	return &ConnectionClaims{UserId: userId, SessionId: sessionId}, nil
}
