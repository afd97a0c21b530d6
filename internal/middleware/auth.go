// Package middleware provides authentication, logging, rate limiting and
// tracing middleware for the HTTP API.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"minisocial/internal/config"
	"minisocial/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by Verify for any token that does not
// identify a user.
var ErrInvalidToken = errors.New("invalid or expired token")

// Authenticator verifies bearer tokens issued by the identity provider.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewAuthenticator builds an Authenticator from the JWT settings in cfg.
func NewAuthenticator(cfg *config.Config) *Authenticator {
	return &Authenticator{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
	}
}

// Verify parses tokenString and returns the user id in its subject claim.
func (a *Authenticator) Verify(tokenString string) (uint, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	// subject claim per RFC 7519
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, ErrInvalidToken
	}
	return uint(userID), nil
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func (a *Authenticator) AuthRequired() fiber.Handler {
	return a.handler(false)
}

// WebSocketAuthRequired also accepts the token from the "token" query
// parameter, since browsers cannot set headers on a websocket upgrade.
func (a *Authenticator) WebSocketAuthRequired() fiber.Handler {
	return a.handler(true)
}

func (a *Authenticator) handler(allowQuery bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := ""
		if authHeader := c.Get("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid authorization header format"))
			}
			tokenString = parts[1]
		}
		if tokenString == "" && allowQuery {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		userID, err := a.Verify(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		c.Locals("userID", userID)
		// Sync to UserContext for logging and downstream services
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))

		return c.Next()
	}
}
