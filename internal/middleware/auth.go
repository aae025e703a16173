package middleware

import (
	"strconv"
	"strings"

	"riverfeed/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// parseBearerToken validates the Authorization header and returns the user id
// from the token's "sub" claim, or 0 when the header is absent.
func parseBearerToken(c *fiber.Ctx) (uint, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return 0, nil
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "Invalid authorization header format")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	subStr, ok := claims["sub"].(string)
	if !ok {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "Invalid token subject")
	}

	userID, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil || userID == 0 {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "Invalid token subject")
	}

	return uint(userID), nil
}

// AuthRequired enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	userID, err := parseBearerToken(c)
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(fiber.Map{"err": fe.Message})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"err": "Unauthorized"})
	}
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"err": "Authorization header required"})
	}

	c.Locals("userID", userID)
	return c.Next()
}

// AuthOptional resolves the viewer when a token is supplied but lets
// anonymous requests through. Feed and single-post endpoints serve anonymous
// viewers with reduced visibility rather than rejecting them.
func AuthOptional(c *fiber.Ctx) error {
	userID, err := parseBearerToken(c)
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(fiber.Map{"err": fe.Message})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"err": "Unauthorized"})
	}
	if userID != 0 {
		c.Locals("userID", userID)
	}
	return c.Next()
}

// CurrentUserID returns the authenticated user's id, or 0 for anonymous requests.
func CurrentUserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}
