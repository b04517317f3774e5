// Package storefront serves the theme script that turns merge group
// selections into line item properties.
package storefront

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed assets/bundle-merge.js
var bundleMergeJS []byte

var bundleMergeETag = func() string {
	sum := sha256.Sum256(bundleMergeJS)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}()

// Script returns the embedded reconciler source.
func Script() []byte {
	return bundleMergeJS
}

// HandleScript handles GET /storefront/bundle-merge.js
func HandleScript() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=300")
		c.Header("ETag", bundleMergeETag)
		if c.GetHeader("If-None-Match") == bundleMergeETag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Data(http.StatusOK, "application/javascript; charset=utf-8", bundleMergeJS)
	}
}
