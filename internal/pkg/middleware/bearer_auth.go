package middleware

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PhotoAI/app/models"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/env"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/usercontext"
)

var (
	ErrVerifierUnconfigured = errors.New("bearer token verification key is not configured")
	ErrInvalidToken         = errors.New("invalid bearer token")
)

// UserLookup resolves an identity-provider subject to the local user mirror.
type UserLookup interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

// TokenVerifier validates RS256 session tokens issued by the identity provider.
type TokenVerifier struct {
	key *rsa.PublicKey
}

func NewTokenVerifier(key *rsa.PublicKey) *TokenVerifier {
	return &TokenVerifier{key: key}
}

// NewTokenVerifierFromEnv parses the PEM public key in CLERK_JWT_KEY. Literal
// "\n" sequences are accepted for single-line env files. Without a usable key
// every request is rejected and the error is logged once here.
func NewTokenVerifierFromEnv() *TokenVerifier {
	raw, ok := env.RequireEnv("CLERK_JWT_KEY")
	if !ok {
		log.Warnf("[Auth] CLERK_JWT_KEY not set; bearer authentication disabled")
		return &TokenVerifier{}
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(strings.ReplaceAll(raw, `\n`, "\n")))
	if err != nil {
		log.Errorf("[Auth] CLERK_JWT_KEY is not a valid RSA public key: %v", err)
		return &TokenVerifier{}
	}
	return &TokenVerifier{key: key}
}

func (v *TokenVerifier) Configured() bool {
	return v != nil && v.key != nil
}

// Subject verifies the token signature and registered claims and returns sub.
func (v *TokenVerifier) Subject(token string) (string, error) {
	if !v.Configured() {
		return "", ErrVerifierUnconfigured
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return sub, nil
}

// BearerAuthMiddleware authenticates requests carrying an identity-provider
// session token and sets the user context for the mirrored local user.
func BearerAuthMiddleware(verifier *TokenVerifier, users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return unauthorized(c, "Missing bearer token")
		}

		sub, err := verifier.Subject(token)
		if err != nil {
			if errors.Is(err, ErrVerifierUnconfigured) {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"success": false, "error": "service_unavailable", "message": "Authentication is not configured"})
			}
			return unauthorized(c, "Invalid bearer token")
		}

		user, err := users.GetByExternalID(c.UserContext(), sub)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return unauthorized(c, "Unknown user")
			}
			log.Errorf("[Auth] user lookup for %s failed: %v", sub, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "internal_server_error", "message": "User lookup failed"})
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     user.ID,
			ExternalID: user.ExternalID,
			Name:       user.Name,
			Email:      user.Email,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "unauthorized", "message": msg})
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
