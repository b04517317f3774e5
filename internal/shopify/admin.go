package shopify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

const codeRecordNotFound = "RECORD_NOT_FOUND"

// SetMetafields runs metafieldsSet. Transport failures and userErrors are
// both returned as *errors.ErrExternalWrite.
func (c *Client) SetMetafields(ctx context.Context, metafields []MetafieldsSetInput) error {
	variables := map[string]interface{}{
		"metafields": metafields,
	}
	resp, err := c.Execute(ctx, MetafieldsSetMutation, variables)
	if err != nil {
		return &errors.ErrExternalWrite{Operation: "metafieldsSet", Err: err}
	}
	var result struct {
		MetafieldsSet struct {
			UserErrors []errors.UserError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return &errors.ErrExternalWrite{Operation: "metafieldsSet", Err: fmt.Errorf("parse response: %w", err)}
	}
	if len(result.MetafieldsSet.UserErrors) > 0 {
		return &errors.ErrExternalWrite{Operation: "metafieldsSet", UserErrors: result.MetafieldsSet.UserErrors}
	}
	return nil
}

// GetShopMetafieldValue returns the raw value of a shop metafield, or
// *errors.ErrNotFound when it is not set.
func (c *Client) GetShopMetafieldValue(ctx context.Context, namespace, key string) (string, error) {
	variables := map[string]interface{}{"namespace": namespace, "key": key}
	resp, err := c.Execute(ctx, MetafieldQuery, variables)
	if err != nil {
		return "", fmt.Errorf("read metafield: %w", err)
	}
	var result struct {
		Shop struct {
			Metafield *struct {
				Value string `json:"value"`
				Type  string `json:"type"`
			} `json:"metafield"`
		} `json:"shop"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return "", fmt.Errorf("parse metafield response: %w", err)
	}
	if result.Shop.Metafield == nil {
		return "", &errors.ErrNotFound{Resource: "metafield", ID: namespace + "." + key}
	}
	return result.Shop.Metafield.Value, nil
}

// DeleteMetaobject deletes a bundle metaobject by GID. A missing object is
// reported as *errors.ErrNotFound; other failures as *errors.ErrExternalWrite.
func (c *Client) DeleteMetaobject(ctx context.Context, id string) error {
	resp, err := c.Execute(ctx, MetaobjectDeleteMutation, map[string]interface{}{"id": id})
	if err != nil {
		return &errors.ErrExternalWrite{Operation: "metaobjectDelete", Err: err}
	}
	var result struct {
		MetaobjectDelete struct {
			DeletedID  *string            `json:"deletedId"`
			UserErrors []errors.UserError `json:"userErrors"`
		} `json:"metaobjectDelete"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return &errors.ErrExternalWrite{Operation: "metaobjectDelete", Err: fmt.Errorf("parse response: %w", err)}
	}
	for _, ue := range result.MetaobjectDelete.UserErrors {
		if ue.Code == codeRecordNotFound {
			return &errors.ErrNotFound{Resource: "bundle", ID: id}
		}
	}
	if len(result.MetaobjectDelete.UserErrors) > 0 {
		return &errors.ErrExternalWrite{Operation: "metaobjectDelete", UserErrors: result.MetaobjectDelete.UserErrors}
	}
	if result.MetaobjectDelete.DeletedID == nil {
		return &errors.ErrNotFound{Resource: "bundle", ID: id}
	}
	c.logger.Debug("Deleted bundle metaobject", zap.String("shop", c.shopDomain), zap.String("id", id))
	return nil
}

// GetShopID returns the Shop GID for the client's token.
func (c *Client) GetShopID(ctx context.Context) (string, error) {
	resp, err := c.Execute(ctx, ShopIDQuery, nil)
	if err != nil {
		return "", fmt.Errorf("get shop id: %w", err)
	}
	var result struct {
		Shop struct {
			ID string `json:"id"`
		} `json:"shop"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return "", fmt.Errorf("parse shop response: %w", err)
	}
	if result.Shop.ID == "" {
		return "", fmt.Errorf("shop has no id")
	}
	return result.Shop.ID, nil
}

// GetProductVariant returns display data for a variant, or *errors.ErrNotFound.
func (c *Client) GetProductVariant(ctx context.Context, id string) (*domain.ProductVariantSummary, error) {
	resp, err := c.Execute(ctx, ProductVariantQuery, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get product variant: %w", err)
	}
	var result struct {
		ProductVariant *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Image *struct {
				URL string `json:"url"`
			} `json:"image"`
			Product struct {
				ID            string `json:"id"`
				Title         string `json:"title"`
				FeaturedMedia *struct {
					Preview *struct {
						Image *struct {
							URL string `json:"url"`
						} `json:"image"`
					} `json:"preview"`
				} `json:"featuredMedia"`
			} `json:"product"`
		} `json:"productVariant"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("parse product variant response: %w", err)
	}
	v := result.ProductVariant
	if v == nil {
		return nil, &errors.ErrNotFound{Resource: "product_variant", ID: id}
	}
	out := &domain.ProductVariantSummary{
		ID:           v.ID,
		Title:        v.Title,
		ProductID:    v.Product.ID,
		ProductTitle: v.Product.Title,
	}
	if v.Image != nil && v.Image.URL != "" {
		u := v.Image.URL
		out.ImageURL = &u
	}
	if m := v.Product.FeaturedMedia; m != nil && m.Preview != nil && m.Preview.Image != nil && m.Preview.Image.URL != "" {
		u := m.Preview.Image.URL
		out.ProductImageURL = &u
	}
	return out, nil
}
