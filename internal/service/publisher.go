package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/internal/metrics"
	"github.com/jafarshop/bundleapp/internal/shopify"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

const metafieldTypeJSON = "json"

var tracer = otel.Tracer("github.com/jafarshop/bundleapp/internal/service")

// MetafieldPublisher writes flattened documents to the shop metafield read by
// the storefront script and the cart transform function.
type MetafieldPublisher struct {
	apis   AdminAPIFactory
	logger *zap.Logger
}

// NewMetafieldPublisher creates a new publisher
func NewMetafieldPublisher(apis AdminAPIFactory, logger *zap.Logger) *MetafieldPublisher {
	return &MetafieldPublisher{apis: apis, logger: logger}
}

// Publish replaces the merge-configurations metafield on ownerID with doc.
// It makes exactly one metafieldsSet call and never retries; any failure is
// returned so the caller knows storefront and database have diverged.
func (p *MetafieldPublisher) Publish(ctx context.Context, shop *domain.Shop, ownerID string, doc *domain.FlattenedMergeDocument) error {
	ctx, span := tracer.Start(ctx, "merge.publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("shop", shop.Domain),
		attribute.Int("merge.bound_slots", doc.BoundCount()),
	)

	value, err := json.Marshal(doc)
	if err != nil {
		metrics.MergePublishTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("encode merge configurations: %w", err)
	}

	err = p.apis(shop).SetMetafields(ctx, []shopify.MetafieldsSetInput{{
		OwnerID:   ownerID,
		Namespace: domain.MergeConfigurationsNamespace,
		Key:       domain.MergeConfigurationsKey,
		Type:      metafieldTypeJSON,
		Value:     string(value),
	}})
	if err != nil {
		metrics.MergePublishTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "metafieldsSet failed")
		p.logger.Error("Failed to publish merge configurations",
			zap.String("shop", shop.Domain),
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
		if _, ok := err.(*errors.ErrExternalWrite); ok {
			return err
		}
		return &errors.ErrExternalWrite{Operation: "metafieldsSet", Err: err}
	}

	metrics.MergePublishTotal.WithLabelValues("ok").Inc()
	p.logger.Info("Published merge configurations",
		zap.String("shop", shop.Domain),
		zap.Int("bound_slots", doc.BoundCount()),
	)
	return nil
}

// ReadPublished fetches and parses the currently published document.
func (p *MetafieldPublisher) ReadPublished(ctx context.Context, shop *domain.Shop) (*domain.FlattenedMergeDocument, error) {
	raw, err := p.apis(shop).GetShopMetafieldValue(ctx, domain.MergeConfigurationsNamespace, domain.MergeConfigurationsKey)
	if err != nil {
		return nil, err
	}
	var doc domain.FlattenedMergeDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode published merge configurations: %w", err)
	}
	return &doc, nil
}
