package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/internal/repository"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

const (
	ShopContextKey   = "shop"
	ShopDomainHeader = "X-Shop-Domain"

	apiKeyCost = 10
)

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   true,
		"message": message,
		"code":    errors.CodeUnauthorized,
	})
}

// AuthMiddleware authenticates admin API requests. The shop is named by
// X-Shop-Domain and proven by its API key in a Bearer token; the key is
// checked against the bcrypt hash stored on the shop row.
func AuthMiddleware(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopDomain := strings.ToLower(strings.TrimSpace(c.GetHeader(ShopDomainHeader)))
		if shopDomain == "" {
			unauthorized(c, "missing "+ShopDomainHeader+" header")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "missing authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "invalid authorization header format")
			return
		}
		apiKey := strings.TrimSpace(parts[1])
		if apiKey == "" {
			unauthorized(c, "missing API key")
			return
		}

		shop, err := repos.Shop.GetByDomain(c.Request.Context(), shopDomain)
		if err != nil {
			if _, ok := err.(*errors.ErrNotFound); !ok {
				logger.Error("Failed to load shop", zap.String("shop", shopDomain), zap.Error(err))
			}
			unauthorized(c, "invalid API key")
			return
		}
		if !VerifyAPIKey(apiKey, shop.APIKeyHash) {
			logger.Warn("Rejected API key", zap.String("shop", shopDomain))
			unauthorized(c, "invalid API key")
			return
		}

		c.Set(ShopContextKey, shop)
		c.Next()
	}
}

// GetShopFromContext retrieves the authenticated shop from the Gin context
func GetShopFromContext(c *gin.Context) (*domain.Shop, bool) {
	shop, exists := c.Get(ShopContextKey)
	if !exists {
		return nil, false
	}

	s, ok := shop.(*domain.Shop)
	return s, ok
}

// HashAPIKey hashes an API key using bcrypt
func HashAPIKey(apiKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), apiKeyCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAPIKey verifies an API key against a hash
func VerifyAPIKey(apiKey, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(apiKey))
	return err == nil
}
