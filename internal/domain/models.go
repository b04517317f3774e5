package domain

import (
	"time"

	"github.com/google/uuid"
)

// Shop is an installed tenant.
type Shop struct {
	ID          uuid.UUID
	Domain      string  // e.g. example.myshopify.com
	AccessToken string  // offline Admin API token
	ShopGID     *string // gid://shopify/Shop/123; owner of the merge-configurations metafield
	APIKeyHash  string  // bcrypt hash of the app API key used by the admin UI
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MergeConfiguration binds one merge group to one slot for a shop.
type MergeConfiguration struct {
	ID         uuid.UUID
	Shop       string
	SlotID     SlotID
	GroupKey   string   // merchant-facing name, shown as the line item property value
	ProductIDs []string // ordered product GIDs; never empty for a stored row
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProductVariantSummary is what the editor needs to render a merge group member.
type ProductVariantSummary struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	ImageURL        *string `json:"imageUrl"`
	ProductID       string  `json:"productId"`
	ProductTitle    string  `json:"productTitle"`
	ProductImageURL *string `json:"productImageUrl"`
}

// IdempotencyRecord is a stored response for a client-supplied
// Idempotency-Key, scoped to one shop. StatusCode is 0 while the request
// that reserved the key is still running.
type IdempotencyRecord struct {
	Shop         string
	Key          string
	RequestHash  string
	StatusCode   int
	ResponseBody []byte
	CreatedAt    time.Time
}

// Pending reports whether the request holding the key has not finished.
func (r *IdempotencyRecord) Pending() bool {
	return r.StatusCode == 0
}
