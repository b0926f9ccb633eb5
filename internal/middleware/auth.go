package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/regconline/afrilearn/pkg/utils"
)

// AuthRequired validates the bearer token and stores the authenticated
// identity in Locals: the subject parsed to an int64 under "user_id" and the
// role under "role". Handlers downstream can rely on those types without
// re-parsing the claims.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := bearerClaims(c.Get("Authorization"), secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		userID, err := strconv.ParseInt(claims.UserID, 10, 64)
		if err != nil || userID <= 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token subject",
			})
		}

		c.Locals("user_id", userID)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

func bearerClaims(header, secret string) (*utils.Claims, error) {
	if header == "" {
		return nil, errors.New("Missing authorization header")
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errors.New("Invalid authorization header format")
	}

	claims, err := utils.ValidateToken(parts[1], secret)
	if err != nil {
		return nil, errors.New("Invalid or expired token")
	}
	return claims, nil
}
