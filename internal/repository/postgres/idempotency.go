package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/domain"
)

type idempotencyKeyRow struct {
	Shop         string    `db:"shop"`
	Key          string    `db:"key"`
	RequestHash  string    `db:"request_hash"`
	StatusCode   int       `db:"status_code"`
	ResponseBody []byte    `db:"response_body"`
	CreatedAt    time.Time `db:"created_at"`
}

type idempotencyKeyRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewIdempotencyKeyRepository creates a new idempotency key repository
func NewIdempotencyKeyRepository(db *sqlx.DB, logger *zap.Logger) *idempotencyKeyRepository {
	return &idempotencyKeyRepository{
		db:     db,
		logger: logger,
	}
}

func (r *idempotencyKeyRepository) GetByKey(ctx context.Context, shop, key string) (*domain.IdempotencyRecord, error) {
	var row idempotencyKeyRow
	err := r.db.GetContext(ctx, &row, `
		SELECT shop, key, request_hash, status_code, response_body, created_at
		FROM idempotency_keys
		WHERE shop = $1 AND key = $2
	`, shop, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get idempotency key", zap.Error(err), zap.String("shop", shop))
		return nil, err
	}
	return &domain.IdempotencyRecord{
		Shop:         row.Shop,
		Key:          row.Key,
		RequestHash:  row.RequestHash,
		StatusCode:   row.StatusCode,
		ResponseBody: row.ResponseBody,
		CreatedAt:    row.CreatedAt,
	}, nil
}

func (r *idempotencyKeyRepository) Reserve(ctx context.Context, rec *domain.IdempotencyRecord, staleBefore time.Time) (bool, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (shop, key, request_hash, status_code, created_at)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (shop, key) DO UPDATE
		SET request_hash = EXCLUDED.request_hash, created_at = EXCLUDED.created_at
		WHERE idempotency_keys.status_code = 0 AND idempotency_keys.created_at < $5
	`, rec.Shop, rec.Key, rec.RequestHash, rec.CreatedAt, staleBefore)
	if err != nil {
		r.logger.Error("Failed to reserve idempotency key", zap.Error(err), zap.String("shop", rec.Shop))
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *idempotencyKeyRepository) Complete(ctx context.Context, rec *domain.IdempotencyRecord) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE idempotency_keys
		SET status_code = $3, response_body = $4
		WHERE shop = $1 AND key = $2
	`, rec.Shop, rec.Key, rec.StatusCode, rec.ResponseBody)
	if err != nil {
		r.logger.Error("Failed to store idempotent response", zap.Error(err), zap.String("shop", rec.Shop))
	}
	return err
}

func (r *idempotencyKeyRepository) Release(ctx context.Context, shop, key string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM idempotency_keys
		WHERE shop = $1 AND key = $2 AND status_code = 0
	`, shop, key)
	if err != nil {
		r.logger.Error("Failed to release idempotency key", zap.Error(err), zap.String("shop", shop))
	}
	return err
}

func (r *idempotencyKeyRepository) DeleteByShop(ctx context.Context, shop string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE shop = $1`, shop)
	if err != nil {
		r.logger.Error("Failed to delete idempotency keys", zap.Error(err), zap.String("shop", shop))
	}
	return err
}
