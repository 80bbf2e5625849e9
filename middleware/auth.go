// middleware/auth.go
package middleware

import (
	"os"
	"strings"
	"time"

	"quizhub/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWTSecret returns the signing secret, with a development fallback.
func JWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "quizhub-secret-change-in-production"
	}
	return secret
}

// AuthMiddleware requires a valid Bearer token and attaches the caller's
// identity to the request.
func AuthMiddleware(c *fiber.Ctx) error {
	identity, err := identityFromToken(bearerToken(c))
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	c.Locals("identity", identity)
	return c.Next()
}

// AdminAuthMiddleware requires a valid token carrying the admin role.
func AdminAuthMiddleware(c *fiber.Ctx) error {
	identity, err := identityFromToken(bearerToken(c))
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}
	if !identity.IsAdmin() {
		return c.Status(403).JSON(fiber.Map{"error": "Access denied. Admin privileges required."})
	}

	c.Locals("identity", identity)
	return c.Next()
}

// GetIdentity returns the identity a preceding auth middleware attached.
func GetIdentity(c *fiber.Ctx) (models.Identity, error) {
	identity, ok := c.Locals("identity").(models.Identity)
	if !ok {
		return models.Identity{}, fiber.NewError(401, "User not authenticated")
	}
	return identity, nil
}

// ParseIdentity validates a raw token string. Used by the websocket gateway,
// which receives the token as a query parameter during the upgrade.
func ParseIdentity(tokenString string) (models.Identity, error) {
	return identityFromToken(tokenString)
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return c.Cookies("token")
}

func identityFromToken(tokenString string) (models.Identity, error) {
	if tokenString == "" {
		return models.Identity{}, fiber.NewError(401, "Missing authorization token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(401, "Invalid signing method")
		}
		return []byte(JWTSecret()), nil
	})
	if err != nil || !token.Valid {
		return models.Identity{}, fiber.NewError(401, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Identity{}, fiber.NewError(401, "Invalid token claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok || time.Unix(int64(exp), 0).Before(time.Now()) {
		return models.Identity{}, fiber.NewError(401, "Token expired")
	}

	identity := models.Identity{}
	if id, ok := claims["user_id"].(float64); ok {
		identity.UserID = uint(id)
	}
	if identity.UserID == 0 {
		return models.Identity{}, fiber.NewError(401, "Invalid token claims")
	}
	if username, ok := claims["username"].(string); ok {
		identity.Username = username
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = role
	} else {
		identity.Role = models.RolePlayer
	}
	if isGuest, ok := claims["is_guest"].(bool); ok {
		identity.IsGuest = isGuest
	}

	return identity, nil
}
