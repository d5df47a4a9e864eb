package devserver

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret"
	}
	return []byte(secret)
}

// issueToken signs a short-lived HS256 token for the given subject.
func issueToken(sub string) (string, error) {
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(12 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// jwtMiddleware validates the raw token the dashboard sends in the
// Authorization header (no Bearer scheme) and stores the subject in locals.
func jwtMiddleware(ctx *fiber.Ctx) error {
	tokenStr := ctx.Get("Authorization")
	if tokenStr == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}

	ctx.Locals("user_id", claims["sub"])
	return ctx.Next()
}

// adminOnly rejects non-admin subjects, mirroring the backend's document and
// upload routes.
func adminOnly(ctx *fiber.Ctx) error {
	if ctx.Locals("user_id") != "admin" {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Forbidden"})
	}
	return ctx.Next()
}
