package middleware

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ClerkIDKey is the locals key holding the verified external subject id.
// Empty string means anonymous.
const ClerkIDKey = "clerk_id"

// RequireAuth verifies the Bearer token and rejects the request when it is
// missing or invalid. Used on all mutation routes.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		clerkID, err := verifyToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}
		c.Locals(ClerkIDKey, clerkID)
		return c.Next()
	}
}

// OptionalAuth attaches the subject id when a valid token is present and lets
// the request through as anonymous otherwise. Query handlers degrade to
// empty/false/null results for anonymous callers.
func OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		clerkID, err := verifyToken(c)
		if err != nil {
			clerkID = ""
		}
		c.Locals(ClerkIDKey, clerkID)
		return c.Next()
	}
}

// ClerkID reads the subject id set by RequireAuth/OptionalAuth.
func ClerkID(c *fiber.Ctx) string {
	if v, ok := c.Locals(ClerkIDKey).(string); ok {
		return v
	}
	return ""
}

func verifyToken(c *fiber.Ctx) (string, error) {
	tokenString := extractToken(c)
	if tokenString == "" {
		return "", fmt.Errorf("missing token")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		secret := os.Getenv("AUTH_JWT_SECRET")
		if secret == "" {
			return nil, fmt.Errorf("AUTH_JWT_SECRET environment variable not set")
		}
		return []byte(secret), nil
	})
	if err != nil {
		log.Printf("auth: token parse failed: %v", err)
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	if issuer := os.Getenv("AUTH_ISSUER"); issuer != "" && claims.Issuer != issuer {
		return "", fmt.Errorf("invalid token issuer")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return claims.Subject, nil
}

func extractToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
