package service

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/internal/repository"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

// MergeConfigurationService manages a shop's merge groups. Every write is
// followed by a full republish of the merge-configurations metafield.
type MergeConfigurationService struct {
	repos     *repository.Repositories
	apis      AdminAPIFactory
	publisher *MetafieldPublisher
	logger    *zap.Logger
}

// NewMergeConfigurationService creates a new merge configuration service
func NewMergeConfigurationService(
	repos *repository.Repositories,
	apis AdminAPIFactory,
	publisher *MetafieldPublisher,
	logger *zap.Logger,
) *MergeConfigurationService {
	return &MergeConfigurationService{
		repos:     repos,
		apis:      apis,
		publisher: publisher,
		logger:    logger,
	}
}

// List returns the shop's merge groups in slot order.
func (s *MergeConfigurationService) List(ctx context.Context, shop *domain.Shop) ([]*domain.MergeConfiguration, error) {
	rows, err := s.repos.MergeConfiguration.ListByShop(ctx, shop.Domain)
	if err != nil {
		return nil, err
	}
	ordered := make([]*domain.MergeConfiguration, 0, len(rows))
	for _, slot := range domain.Slots {
		for _, row := range rows {
			if row.SlotID == slot {
				ordered = append(ordered, row)
			}
		}
	}
	return ordered, nil
}

// Document returns the flattened document the next publish would write.
func (s *MergeConfigurationService) Document(ctx context.Context, shop *domain.Shop) (*domain.FlattenedMergeDocument, error) {
	rows, err := s.repos.MergeConfiguration.ListByShop(ctx, shop.Domain)
	if err != nil {
		return nil, err
	}
	return Flatten(rows, s.logger), nil
}

// Create binds a new merge group to the first free slot.
func (s *MergeConfigurationService) Create(ctx context.Context, shop *domain.Shop, req MergeGroupRequest) (*domain.MergeConfiguration, error) {
	groupKey, productIDs, err := normalizeMergeGroup(req)
	if err != nil {
		return nil, err
	}
	if len(productIDs) == 0 {
		return nil, &errors.ErrValidation{
			Message: "productIds must not be empty",
			Fields:  map[string]string{"productIds": "required"},
		}
	}

	cfg := &domain.MergeConfiguration{
		Shop:       shop.Domain,
		GroupKey:   groupKey,
		ProductIDs: productIDs,
	}
	err = s.mutate(ctx, shop, func(ctx context.Context) error {
		return s.repos.MergeConfiguration.Create(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Created merge group",
		zap.String("shop", shop.Domain),
		zap.String("slot_id", string(cfg.SlotID)),
		zap.String("group_key", cfg.GroupKey),
		zap.Int("product_count", len(cfg.ProductIDs)),
	)
	return cfg, nil
}

// Update replaces the group bound to slot. An empty product list removes the
// group and frees the slot; the returned configuration is nil in that case.
func (s *MergeConfigurationService) Update(ctx context.Context, shop *domain.Shop, slot domain.SlotID, req MergeGroupRequest) (*domain.MergeConfiguration, error) {
	if !slot.IsValid() {
		return nil, &errors.ErrValidation{
			Message: "unknown slot",
			Fields:  map[string]string{"slotId": string(slot)},
		}
	}
	groupKey, productIDs, err := normalizeMergeGroup(req)
	if err != nil {
		return nil, err
	}
	if len(productIDs) == 0 {
		return nil, s.Delete(ctx, shop, slot)
	}

	existing, err := s.repos.MergeConfiguration.GetBySlot(ctx, shop.Domain, slot)
	if err != nil {
		return nil, err
	}
	cfg := *existing
	cfg.GroupKey = groupKey
	cfg.ProductIDs = productIDs
	err = s.mutate(ctx, shop, func(ctx context.Context) error {
		return s.repos.MergeConfiguration.Update(ctx, &cfg)
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Delete removes the group bound to slot.
func (s *MergeConfigurationService) Delete(ctx context.Context, shop *domain.Shop, slot domain.SlotID) error {
	if !slot.IsValid() {
		return &errors.ErrValidation{
			Message: "unknown slot",
			Fields:  map[string]string{"slotId": string(slot)},
		}
	}
	err := s.mutate(ctx, shop, func(ctx context.Context) error {
		return s.repos.MergeConfiguration.DeleteBySlot(ctx, shop.Domain, slot)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Deleted merge group", zap.String("shop", shop.Domain), zap.String("slot_id", string(slot)))
	return nil
}

// Republish writes the current document without changing any rows. Used to
// converge after a failed publish.
func (s *MergeConfigurationService) Republish(ctx context.Context, shop *domain.Shop) (*domain.FlattenedMergeDocument, error) {
	return s.publish(ctx, shop)
}

// DriftReport compares the document derived from the rows with the one
// currently published. Published is nil when the metafield is not set.
type DriftReport struct {
	Expected  *domain.FlattenedMergeDocument
	Published *domain.FlattenedMergeDocument
	InSync    bool
}

// Verify reads the published metafield and reports whether it matches what a
// publish would write now. A missing metafield is drift.
func (s *MergeConfigurationService) Verify(ctx context.Context, shop *domain.Shop) (*DriftReport, error) {
	expected, err := s.Document(ctx, shop)
	if err != nil {
		return nil, err
	}
	report := &DriftReport{Expected: expected}

	published, err := s.publisher.ReadPublished(ctx, shop)
	var notFound *errors.ErrNotFound
	if stderrors.As(err, &notFound) {
		return report, nil
	}
	if err != nil {
		return nil, err
	}
	report.Published = published

	want, err := json.Marshal(expected)
	if err != nil {
		return nil, err
	}
	got, err := json.Marshal(published)
	if err != nil {
		return nil, err
	}
	report.InSync = bytes.Equal(want, got)
	if !report.InSync {
		s.logger.Warn("Published merge configurations drifted", zap.String("shop", shop.Domain))
	}
	return report, nil
}

// mutate runs write and, if it succeeded, republishes the whole document.
// All merge group writes go through here.
func (s *MergeConfigurationService) mutate(ctx context.Context, shop *domain.Shop, write func(ctx context.Context) error) error {
	if err := write(ctx); err != nil {
		return err
	}
	_, err := s.publish(ctx, shop)
	return err
}

func (s *MergeConfigurationService) publish(ctx context.Context, shop *domain.Shop) (*domain.FlattenedMergeDocument, error) {
	rows, err := s.repos.MergeConfiguration.ListByShop(ctx, shop.Domain)
	if err != nil {
		return nil, err
	}
	doc := Flatten(rows, s.logger)

	ownerID, err := s.ownerID(ctx, shop)
	if err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, shop, ownerID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ownerID returns the shop GID, resolving and storing it on first use.
func (s *MergeConfigurationService) ownerID(ctx context.Context, shop *domain.Shop) (string, error) {
	if shop.ShopGID != nil && *shop.ShopGID != "" {
		return *shop.ShopGID, nil
	}
	gid, err := s.apis(shop).GetShopID(ctx)
	if err != nil {
		return "", &errors.ErrExternalWrite{Operation: "shop query", Err: err}
	}
	if err := s.repos.Shop.UpdateShopGID(ctx, shop.Domain, gid); err != nil {
		s.logger.Warn("Failed to store shop GID", zap.String("shop", shop.Domain), zap.Error(err))
	}
	shop.ShopGID = &gid
	return gid, nil
}

// normalizeMergeGroup trims the key and drops duplicate product ids, keeping
// first occurrence order.
func normalizeMergeGroup(req MergeGroupRequest) (string, []string, error) {
	groupKey := strings.TrimSpace(req.GroupKey)
	if groupKey == "" {
		return "", nil, &errors.ErrValidation{
			Message: "groupKey is required",
			Fields:  map[string]string{"groupKey": "required"},
		}
	}

	seen := make(map[string]bool, len(req.ProductIDs))
	productIDs := make([]string, 0, len(req.ProductIDs))
	var invalid []errors.InvalidEntry
	for i, id := range req.ProductIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			invalid = append(invalid, errors.InvalidEntry{Index: i, Value: req.ProductIDs[i], Reason: "blank"})
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		productIDs = append(productIDs, id)
	}
	if len(invalid) > 0 {
		return "", nil, &errors.ErrValidation{Message: "productIds contains blank entries", Invalid: invalid}
	}
	return groupKey, productIDs, nil
}

// ToMergeConfigurationResponse converts a row for the editor.
func ToMergeConfigurationResponse(cfg *domain.MergeConfiguration) MergeConfigurationResponse {
	return MergeConfigurationResponse{
		SlotID:       string(cfg.SlotID),
		PropertyName: cfg.SlotID.PropertyName(),
		GroupKey:     cfg.GroupKey,
		ProductIDs:   cfg.ProductIDs,
		CreatedAt:    cfg.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    cfg.UpdatedAt.Format(time.RFC3339),
	}
}
