package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

const uniqueViolation = "23505"

type mergeConfigurationRow struct {
	ID         uuid.UUID      `db:"id"`
	Shop       string         `db:"shop"`
	SlotID     string         `db:"slot_id"`
	GroupKey   string         `db:"group_key"`
	ProductIDs pq.StringArray `db:"product_ids"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r mergeConfigurationRow) toDomain() *domain.MergeConfiguration {
	return &domain.MergeConfiguration{
		ID:         r.ID,
		Shop:       r.Shop,
		SlotID:     domain.SlotID(r.SlotID),
		GroupKey:   r.GroupKey,
		ProductIDs: []string(r.ProductIDs),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type mergeConfigurationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewMergeConfigurationRepository creates a new merge configuration repository
func NewMergeConfigurationRepository(db *sqlx.DB, logger *zap.Logger) *mergeConfigurationRepository {
	return &mergeConfigurationRepository{db: db, logger: logger}
}

const selectMergeConfigurations = `
	SELECT id, shop, slot_id, group_key, product_ids, created_at, updated_at
	FROM merge_configurations
`

func (r *mergeConfigurationRepository) ListByShop(ctx context.Context, shop string) ([]*domain.MergeConfiguration, error) {
	var rows []mergeConfigurationRow
	query := selectMergeConfigurations + `WHERE shop = $1 ORDER BY created_at ASC, id ASC`
	if err := r.db.SelectContext(ctx, &rows, query, shop); err != nil {
		r.logger.Error("Failed to list merge configurations", zap.Error(err), zap.String("shop", shop))
		return nil, err
	}
	out := make([]*domain.MergeConfiguration, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *mergeConfigurationRepository) GetBySlot(ctx context.Context, shop string, slot domain.SlotID) (*domain.MergeConfiguration, error) {
	var row mergeConfigurationRow
	query := selectMergeConfigurations + `WHERE shop = $1 AND slot_id = $2`
	err := r.db.GetContext(ctx, &row, query, shop, string(slot))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "merge_configuration", ID: string(slot)}
	}
	if err != nil {
		r.logger.Error("Failed to get merge configuration", zap.Error(err), zap.String("shop", shop), zap.String("slot_id", string(slot)))
		return nil, err
	}
	return row.toDomain(), nil
}

// Create serializes allocation per shop with a transaction-scoped advisory
// lock, so two concurrent creates never pick the same slot.
func (r *mergeConfigurationRepository) Create(ctx context.Context, cfg *domain.MergeConfiguration) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, cfg.Shop); err != nil {
		r.logger.Error("Failed to lock shop for slot allocation", zap.Error(err), zap.String("shop", cfg.Shop))
		return err
	}

	var usedSlots []string
	if err := tx.SelectContext(ctx, &usedSlots, `SELECT slot_id FROM merge_configurations WHERE shop = $1`, cfg.Shop); err != nil {
		return err
	}
	used := make(map[domain.SlotID]bool, len(usedSlots))
	for _, s := range usedSlots {
		used[domain.SlotID(s)] = true
	}
	slot, ok := domain.AllocateSlot(used)
	if !ok {
		return &errors.ErrSlotsExhausted{Shop: cfg.Shop, Limit: domain.SlotCount}
	}

	now := time.Now()
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO merge_configurations (id, shop, slot_id, group_key, product_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, cfg.ID, cfg.Shop, string(slot), cfg.GroupKey, pq.StringArray(cfg.ProductIDs), cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &errors.ErrConflict{Message: "merge group " + cfg.GroupKey + " already exists"}
		}
		r.logger.Error("Failed to insert merge configuration", zap.Error(err), zap.String("shop", cfg.Shop))
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	cfg.SlotID = slot
	return nil
}

func (r *mergeConfigurationRepository) Update(ctx context.Context, cfg *domain.MergeConfiguration) error {
	cfg.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE merge_configurations
		SET group_key = $3, product_ids = $4, updated_at = $5
		WHERE shop = $1 AND slot_id = $2
	`, cfg.Shop, string(cfg.SlotID), cfg.GroupKey, pq.StringArray(cfg.ProductIDs), cfg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &errors.ErrConflict{Message: "merge group " + cfg.GroupKey + " already exists"}
		}
		r.logger.Error("Failed to update merge configuration", zap.Error(err), zap.String("shop", cfg.Shop))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &errors.ErrNotFound{Resource: "merge_configuration", ID: string(cfg.SlotID)}
	}
	return nil
}

func (r *mergeConfigurationRepository) DeleteBySlot(ctx context.Context, shop string, slot domain.SlotID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM merge_configurations WHERE shop = $1 AND slot_id = $2`, shop, string(slot))
	if err != nil {
		r.logger.Error("Failed to delete merge configuration", zap.Error(err), zap.String("shop", shop))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &errors.ErrNotFound{Resource: "merge_configuration", ID: string(slot)}
	}
	return nil
}

func (r *mergeConfigurationRepository) DeleteAllByShop(ctx context.Context, shop string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM merge_configurations WHERE shop = $1`, shop)
	if err != nil {
		r.logger.Error("Failed to erase merge configurations", zap.Error(err), zap.String("shop", shop))
		return 0, err
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
