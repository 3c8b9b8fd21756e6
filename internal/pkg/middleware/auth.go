package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/auth"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/usercontext"
)

// TokenValidator checks a bearer token, e.g. *auth.Validator.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (auth.Claims, error)
}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(c *fiber.Ctx, err error) error

// RequireBearer validates the Authorization bearer token and stores the
// caller in the user context. Rejections are rendered by onError.
func RequireBearer(validator TokenValidator, onError ErrorHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := ExtractBearerToken(c)
		if token == "" {
			return onError(c, auth.ErrInvalidToken)
		}

		claims, err := validator.Validate(c.UserContext(), token)
		if err != nil {
			log.Warnf("[Auth] rejected token %s: %v", tokenPrefix(token), err)
			return onError(c, err)
		}

		usercontext.Set(c, usercontext.UserContext{
			Subject:    claims.Subject,
			Email:      claims.Email,
			TokenUse:   claims.TokenUse,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}

// ExtractBearerToken returns the token of an "Authorization: Bearer" header
func ExtractBearerToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func tokenPrefix(token string) string {
	if len(token) > 10 {
		return token[:10] + "..."
	}
	return token
}
