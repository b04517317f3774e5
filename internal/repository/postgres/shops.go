package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

type shopRow struct {
	ID          uuid.UUID      `db:"id"`
	Domain      string         `db:"domain"`
	AccessToken string         `db:"access_token"`
	ShopGID     sql.NullString `db:"shop_gid"`
	APIKeyHash  string         `db:"api_key_hash"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type shopRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewShopRepository creates a new shop repository
func NewShopRepository(db *sqlx.DB, logger *zap.Logger) *shopRepository {
	return &shopRepository{db: db, logger: logger}
}

func (r *shopRepository) GetByDomain(ctx context.Context, shopDomain string) (*domain.Shop, error) {
	var row shopRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, domain, access_token, shop_gid, api_key_hash, created_at, updated_at
		FROM shops
		WHERE domain = $1
	`, shopDomain)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "shop", ID: shopDomain}
	}
	if err != nil {
		r.logger.Error("Failed to get shop", zap.Error(err), zap.String("shop", shopDomain))
		return nil, err
	}
	shop := &domain.Shop{
		ID:          row.ID,
		Domain:      row.Domain,
		AccessToken: row.AccessToken,
		APIKeyHash:  row.APIKeyHash,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.ShopGID.Valid {
		shop.ShopGID = &row.ShopGID.String
	}
	return shop, nil
}

func (r *shopRepository) Upsert(ctx context.Context, shop *domain.Shop) error {
	now := time.Now()
	if shop.ID == uuid.Nil {
		shop.ID = uuid.New()
	}
	if shop.CreatedAt.IsZero() {
		shop.CreatedAt = now
	}
	shop.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shops (id, domain, access_token, shop_gid, api_key_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (domain) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			shop_gid = COALESCE(EXCLUDED.shop_gid, shops.shop_gid),
			api_key_hash = EXCLUDED.api_key_hash,
			updated_at = EXCLUDED.updated_at
	`, shop.ID, shop.Domain, shop.AccessToken, shop.ShopGID, shop.APIKeyHash, shop.CreatedAt, shop.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to upsert shop", zap.Error(err), zap.String("shop", shop.Domain))
		return err
	}
	return nil
}

func (r *shopRepository) UpdateShopGID(ctx context.Context, shopDomain, shopGID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE shops SET shop_gid = $2, updated_at = NOW() WHERE domain = $1`, shopDomain, shopGID)
	if err != nil {
		r.logger.Error("Failed to store shop GID", zap.Error(err), zap.String("shop", shopDomain))
	}
	return err
}

func (r *shopRepository) Delete(ctx context.Context, shopDomain string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM shops WHERE domain = $1`, shopDomain)
	if err != nil {
		r.logger.Error("Failed to delete shop", zap.Error(err), zap.String("shop", shopDomain))
	}
	return err
}
