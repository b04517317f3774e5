package service

import (
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/domain"
)

// Flatten builds the published document from a shop's rows. It walks the
// fixed slot enumeration and takes the first row bound to each slot, so the
// result does not depend on row order unless two rows claim one slot (which
// the unique index prevents). Rows naming an unknown slot are skipped.
func Flatten(rows []*domain.MergeConfiguration, logger *zap.Logger) *domain.FlattenedMergeDocument {
	doc := domain.NewFlattenedMergeDocument()

	for _, row := range rows {
		if !row.SlotID.IsValid() {
			logger.Warn("Skipping merge configuration with unknown slot",
				zap.String("shop", row.Shop),
				zap.String("slot_id", string(row.SlotID)),
				zap.String("group_key", row.GroupKey),
			)
		}
	}

	for _, slot := range domain.Slots {
		bound := false
		for _, row := range rows {
			if row.SlotID != slot {
				continue
			}
			if bound {
				logger.Warn("Ignoring second merge configuration for slot",
					zap.String("shop", row.Shop),
					zap.String("slot_id", string(slot)),
					zap.String("group_key", row.GroupKey),
				)
				continue
			}
			doc.Bind(slot, row.GroupKey, row.ProductIDs)
			bound = true
		}
	}
	return doc
}
