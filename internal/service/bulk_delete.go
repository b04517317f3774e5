package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jafarshop/bundleapp/internal/config"
	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/internal/metrics"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

// ValidateBulkIDs checks a bulk delete batch before any Admin API call and
// returns the trimmed ids. A single blank entry rejects the whole batch.
func ValidateBulkIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, &errors.ErrValidation{
			Message: "bundleIds must contain at least one id",
			Fields:  map[string]string{"bundleIds": "required"},
		}
	}
	if len(ids) > domain.MaxBulkDeleteIDs {
		return nil, &errors.ErrLimitExceeded{What: "bundleIds", Limit: domain.MaxBulkDeleteIDs, Got: len(ids)}
	}

	trimmed := make([]string, len(ids))
	var invalid []errors.InvalidEntry
	for i, id := range ids {
		trimmed[i] = strings.TrimSpace(id)
		if trimmed[i] == "" {
			invalid = append(invalid, errors.InvalidEntry{Index: i, Value: id, Reason: "must be a non-empty string"})
		}
	}
	if len(invalid) > 0 {
		return nil, &errors.ErrValidation{
			Message: fmt.Sprintf("%d invalid bundle id(s)", len(invalid)),
			Invalid: invalid,
		}
	}
	return trimmed, nil
}

// BulkDeleteService deletes bundle metaobjects one by one. A failed item never
// stops the rest of the batch.
type BulkDeleteService struct {
	apis        AdminAPIFactory
	concurrency int
	ratePerSec  float64
	logger      *zap.Logger
}

// NewBulkDeleteService creates a new bulk delete service
func NewBulkDeleteService(apis AdminAPIFactory, cfg config.BulkDeleteConfig, logger *zap.Logger) *BulkDeleteService {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &BulkDeleteService{
		apis:        apis,
		concurrency: concurrency,
		ratePerSec:  cfg.RateLimitPerSecond,
		logger:      logger,
	}
}

// Delete validates ids and deletes each one. The returned outcome has one
// result per requested id, in request order.
func (s *BulkDeleteService) Delete(ctx context.Context, shop *domain.Shop, ids []string) (*domain.BulkDeleteOutcome, error) {
	ids, err := ValidateBulkIDs(ids)
	if err != nil {
		return nil, err
	}

	api := s.apis(shop)
	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.ratePerSec), 1)
	}

	results := make([]domain.BulkItemResult, len(ids))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Panic deleting bundle", zap.String("shop", shop.Domain), zap.String("id", id), zap.Any("panic", r))
					results[i] = domain.BulkItemResult{ID: id, Status: domain.BulkItemFailed, Error: fmt.Sprintf("panic: %v", r)}
					metrics.BulkDeleteItemsTotal.WithLabelValues(string(domain.BulkItemFailed)).Inc()
				}
			}()
			results[i] = s.deleteOne(ctx, api, limiter, id)
			return nil
		})
	}
	// Items never return an error; a failure is recorded in its result.
	_ = g.Wait()

	outcome := domain.NewBulkDeleteOutcome(results)
	s.logger.Info("Bulk delete finished",
		zap.String("shop", shop.Domain),
		zap.Int("total", outcome.Summary.Total),
		zap.Int("succeeded", outcome.Summary.Succeeded),
		zap.Int("failed", outcome.Summary.Failed),
		zap.Int("not_found", outcome.Summary.NotFound),
	)
	return outcome, nil
}

func (s *BulkDeleteService) deleteOne(ctx context.Context, api AdminAPI, limiter *rate.Limiter, id string) domain.BulkItemResult {
	result := domain.BulkItemResult{ID: id}

	if err := limiter.Wait(ctx); err != nil {
		result.Status = domain.BulkItemFailed
		result.Error = err.Error()
		metrics.BulkDeleteItemsTotal.WithLabelValues(string(result.Status)).Inc()
		return result
	}

	err := api.DeleteMetaobject(ctx, id)
	var notFound *errors.ErrNotFound
	switch {
	case err == nil:
		result.Status = domain.BulkItemDeleted
	case stderrors.As(err, &notFound):
		result.Status = domain.BulkItemNotFound
		result.Error = err.Error()
	default:
		result.Status = domain.BulkItemFailed
		result.Error = err.Error()
		s.logger.Warn("Failed to delete bundle", zap.String("id", id), zap.Error(err))
	}
	metrics.BulkDeleteItemsTotal.WithLabelValues(string(result.Status)).Inc()
	return result
}
