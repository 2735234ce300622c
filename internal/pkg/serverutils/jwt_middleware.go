package serverutils

import (
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"ai-orchestrator-be/internal/apperror"
)

// JwtMiddleware authenticates REST requests with a bearer token and stores
// the caller's user id in ctx.Locals("user_id"). Failures flow through the
// error handler as AuthFailure.
func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return apperror.AuthFailure("Missing bearer token")
	}

	token, err := jwt.Parse(strings.TrimPrefix(authHeader, "Bearer "), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return apperror.AuthFailure("Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return apperror.AuthFailure("Invalid claims")
	}

	ctx.Locals("user_id", claims["user_id"])
	return ctx.Next()
}
