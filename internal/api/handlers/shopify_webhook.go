package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/config"
	"github.com/jafarshop/bundleapp/internal/service"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

type shopRedactBody struct {
	ShopID     int64  `json:"shop_id"`
	ShopDomain string `json:"shop_domain"`
}

func verifyShopifyHMAC(secret string, body []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	// constant-time compare
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(header)))
}

// readVerifiedBody reads the raw body and checks X-Shopify-Hmac-Sha256. On
// failure the response has been written and ok is false.
func readVerifiedBody(c *gin.Context, cfg *config.Config) ([]byte, bool) {
	secret := strings.TrimSpace(cfg.Shopify.APISecret)
	if secret == "" {
		abortWithError(c, http.StatusServiceUnavailable, errors.CodeInternal, "shopify webhooks not configured", nil)
		return nil, false
	}

	// Shopify HMAC is computed over raw bytes
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, errors.CodeValidation, "failed to read body", nil)
		return nil, false
	}
	if !verifyShopifyHMAC(secret, body, c.GetHeader("X-Shopify-Hmac-Sha256")) {
		abortWithError(c, http.StatusUnauthorized, errors.CodeUnauthorized, "invalid webhook signature", nil)
		return nil, false
	}
	return body, true
}

// HandleShopRedactWebhook handles POST /webhooks/shopify/shop-redact.
// Shopify sends shop/redact 48 hours after uninstall; every merge group and
// the shop record are removed. Repeated deliveries are harmless.
func HandleShopRedactWebhook(cfg *config.Config, eraser *service.ShopEraser, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readVerifiedBody(c, cfg)
		if !ok {
			return
		}

		var payload shopRedactBody
		if err := json.Unmarshal(body, &payload); err != nil {
			abortWithError(c, http.StatusBadRequest, errors.CodeValidation, "invalid JSON", err.Error())
			return
		}
		shopDomain := strings.ToLower(strings.TrimSpace(payload.ShopDomain))
		if shopDomain == "" {
			shopDomain = strings.ToLower(strings.TrimSpace(c.GetHeader("X-Shopify-Shop-Domain")))
		}
		if shopDomain == "" {
			abortWithError(c, http.StatusBadRequest, errors.CodeValidation, "shop_domain required", nil)
			return
		}

		if err := eraser.EraseShop(c.Request.Context(), shopDomain); err != nil {
			respondError(c, cfg, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "shop": shopDomain})
	}
}

// HandleCustomerPrivacyWebhook handles customers/data_request and
// customers/redact. The app keeps no customer data, so both are acknowledged.
func HandleCustomerPrivacyWebhook(cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := readVerifiedBody(c, cfg); !ok {
			return
		}
		logger.Info("Acknowledged customer privacy webhook",
			zap.String("topic", c.GetHeader("X-Shopify-Topic")),
			zap.String("shop", c.GetHeader("X-Shopify-Shop-Domain")),
		)
		c.JSON(http.StatusOK, gin.H{"ok": true, "topic": c.GetHeader("X-Shopify-Topic")})
	}
}
