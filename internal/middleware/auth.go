package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/models"
	"github.com/tonetrace/tonetrace/internal/services"
)

// MinAPIKeyLength is the minimum accepted length of a configured API key
const MinAPIKeyLength = 32

// APIKeyHeader is the preferred header for presenting an API key
const APIKeyHeader = "X-API-Key"

// ValidateAPIKey reports whether key is strong enough to be configured
func ValidateAPIKey(key string) bool {
	return len(key) >= MinAPIKeyLength && strings.TrimSpace(key) != ""
}

// APIKeyAuth rejects requests that do not carry one of apiKeys.
// Keys shorter than MinAPIKeyLength are ignored at startup.
func APIKeyAuth(logger *logging.Logger, apiKeys []string, enabled bool) fiber.Handler {
	if !enabled {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	keys := make([][]byte, 0, len(apiKeys))
	for _, key := range apiKeys {
		if key == "" {
			continue
		}
		if !ValidateAPIKey(key) {
			logger.Warn("Ignoring weak API key",
				"key_length", len(key),
				"min_required", MinAPIKeyLength,
				"key_prefix", maskAPIKey(key))
			continue
		}
		keys = append(keys, []byte(key))
	}
	if len(keys) == 0 {
		logger.Error("Authentication enabled without any valid API key; every request will be rejected",
			"configured_keys", len(apiKeys))
	}

	return func(c *fiber.Ctx) error {
		apiKey := presentedKey(c)
		if apiKey == "" {
			logger.WithContext(c.UserContext()).Warn("API key missing",
				"path", c.Path(),
				"method", c.Method(),
				"ip", c.IP())
			return unauthorized(c, "API key is required. Provide it via the X-API-Key or Authorization header.")
		}

		if !knownKey(keys, apiKey) {
			logger.WithContext(c.UserContext()).Warn("Invalid API key",
				"path", c.Path(),
				"method", c.Method(),
				"ip", c.IP(),
				"key_prefix", maskAPIKey(apiKey))
			return unauthorized(c, "Invalid API key.")
		}

		return c.Next()
	}
}

// presentedKey reads the key from X-API-Key, then from Authorization with or
// without a Bearer prefix.
func presentedKey(c *fiber.Ctx) string {
	if key := c.Get(APIKeyHeader); key != "" {
		return key
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return auth
}

func knownKey(keys [][]byte, presented string) bool {
	p := []byte(presented)
	found := false
	for _, k := range keys {
		if subtle.ConstantTimeCompare(k, p) == 1 {
			found = true
		}
	}
	return found
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    services.CodeUnauthorized,
			Message: message,
			Path:    c.Path(),
		},
	})
}

// maskAPIKey keeps the first four characters of key for logs
func maskAPIKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
