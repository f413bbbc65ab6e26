package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PrincipalKey is the fiber.Locals key holding the request's *model.Principal.
const PrincipalKey = "principal"

// Authenticator resolves credentials into a principal.
type Authenticator interface {
	ValidateAccessToken(token string) (*model.Principal, error)
	IsAPIKey(key string) bool
	APIKeyPrincipal(ctx context.Context, onBehalfOf string) (*model.Principal, error)
}

// Auth accepts either a bearer access token or the global API key (as
// X-API-Key or as the bearer value). API key callers may add X-On-Behalf-Of
// to act as a specific user.
func Auth(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get("X-API-Key")
		var bearer string
		if authHeader := c.Get("Authorization"); authHeader != "" {
			bearer = strings.TrimPrefix(authHeader, "Bearer ")
			if bearer == authHeader {
				return c.Status(401).JSON(fiber.Map{"error": "invalid authorization format"})
			}
		}
		if apiKey == "" && bearer != "" && a.IsAPIKey(bearer) {
			apiKey, bearer = bearer, ""
		}

		var p *model.Principal
		var err error
		switch {
		case apiKey != "":
			if !a.IsAPIKey(apiKey) {
				return c.Status(401).JSON(fiber.Map{"error": "invalid api key"})
			}
			p, err = a.APIKeyPrincipal(c.UserContext(), c.Get("X-On-Behalf-Of"))
		case bearer != "":
			p, err = a.ValidateAccessToken(bearer)
		default:
			return c.Status(401).JSON(fiber.Map{"error": "missing authorization header"})
		}
		if err != nil {
			return authFailure(c, err)
		}

		c.Locals(PrincipalKey, p)
		return c.Next()
	}
}

// RequireAdmin rejects principals without the admin role. It must run after Auth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !GetPrincipal(c).IsAdmin() {
			return c.Status(403).JSON(fiber.Map{"error": "admin access required"})
		}
		return c.Next()
	}
}

func GetPrincipal(c *fiber.Ctx) *model.Principal {
	p, _ := c.Locals(PrincipalKey).(*model.Principal)
	return p
}

func authFailure(c *fiber.Ctx, err error) error {
	var ae *service.AuthorizationError
	if errors.As(err, &ae) {
		return c.Status(ae.Status).JSON(fiber.Map{"error": ae.Message})
	}
	return c.Status(service.StatusCode(err)).JSON(fiber.Map{"error": service.PublicMessage(err)})
}
