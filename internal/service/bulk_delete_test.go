package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/config"
	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

func newTestBulkService(api *fakeAdminAPI) *BulkDeleteService {
	return NewBulkDeleteService(factoryFor(api), config.BulkDeleteConfig{Concurrency: 4}, zap.NewNop())
}

func TestBulkDelete_EmptyBatchIsValidationError(t *testing.T) {
	api := newFakeAdminAPI("")
	_, err := newTestBulkService(api).Delete(context.Background(), testShop("a.myshopify.com"), []string{})

	var verr *errors.ErrValidation
	require.True(t, stderrors.As(err, &verr))
	assert.Equal(t, int32(0), api.deleteCalls.Load())
}

func TestBulkDelete_OverLimitIsLimitExceeded(t *testing.T) {
	ids := make([]string, domain.MaxBulkDeleteIDs+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("gid://shopify/Metaobject/%d", i)
	}
	api := newFakeAdminAPI("")
	_, err := newTestBulkService(api).Delete(context.Background(), testShop("a.myshopify.com"), ids)

	var lerr *errors.ErrLimitExceeded
	require.True(t, stderrors.As(err, &lerr))
	assert.Equal(t, domain.MaxBulkDeleteIDs, lerr.Limit)
	assert.Equal(t, 101, lerr.Got)
	assert.Equal(t, int32(0), api.deleteCalls.Load())
}

func TestBulkDelete_ExactlyAtLimitIsAccepted(t *testing.T) {
	ids := make([]string, domain.MaxBulkDeleteIDs)
	for i := range ids {
		ids[i] = fmt.Sprintf("gid://shopify/Metaobject/%d", i)
	}
	api := newFakeAdminAPI("")
	out, err := newTestBulkService(api).Delete(context.Background(), testShop("a.myshopify.com"), ids)

	require.NoError(t, err)
	assert.Equal(t, domain.MaxBulkDeleteIDs, out.Summary.Succeeded)
	assert.Equal(t, int32(domain.MaxBulkDeleteIDs), api.deleteCalls.Load())
}

func TestBulkDelete_BlankEntryRejectsWholeBatch(t *testing.T) {
	api := newFakeAdminAPI("")
	_, err := newTestBulkService(api).Delete(context.Background(), testShop("a.myshopify.com"), []string{"a", "  ", "b"})

	var verr *errors.ErrValidation
	require.True(t, stderrors.As(err, &verr))
	require.Len(t, verr.Invalid, 1)
	assert.Equal(t, 1, verr.Invalid[0].Index)
	assert.Equal(t, "  ", verr.Invalid[0].Value)
	assert.Equal(t, int32(0), api.deleteCalls.Load())
}

func TestBulkDelete_PartialFailureKeepsGoing(t *testing.T) {
	api := newFakeAdminAPI("")
	api.deleteErrs["x2"] = &errors.ErrExternalWrite{Operation: "metaobjectDelete", Err: fmt.Errorf("throttled")}

	out, err := newTestBulkService(api).Delete(context.Background(), testShop("a.myshopify.com"), []string{"x1", "x2"})
	require.NoError(t, err)

	require.Len(t, out.Results, 2)
	assert.Equal(t, domain.BulkItemResult{ID: "x1", Status: domain.BulkItemDeleted}, out.Results[0])
	assert.Equal(t, "x2", out.Results[1].ID)
	assert.Equal(t, domain.BulkItemFailed, out.Results[1].Status)
	assert.Contains(t, out.Results[1].Error, "throttled")
	assert.Equal(t, domain.BulkSummary{Total: 2, Succeeded: 1, Failed: 1}, out.Summary)
}

func TestBulkDelete_PanickingItemIsRecordedAsFailed(t *testing.T) {
	api := newFakeAdminAPI("")
	api.deletePanics["x2"] = true

	out, err := newTestBulkService(api).Delete(context.Background(), testShop("a.myshopify.com"), []string{"x1", "x2", "x3"})
	require.NoError(t, err)
	require.NotNil(t, out)

	require.Len(t, out.Results, 3)
	assert.Equal(t, domain.BulkItemDeleted, out.Results[0].Status)
	assert.Equal(t, "x2", out.Results[1].ID)
	assert.Equal(t, domain.BulkItemFailed, out.Results[1].Status)
	assert.Contains(t, out.Results[1].Error, "panic")
	assert.Equal(t, domain.BulkItemDeleted, out.Results[2].Status)
	assert.Equal(t, domain.BulkSummary{Total: 3, Succeeded: 2, Failed: 1}, out.Summary)
	assert.Equal(t, int32(3), api.deleteCalls.Load())
}

func TestBulkDelete_EveryItemFailingIsStillAnOutcome(t *testing.T) {
	api := newFakeAdminAPI("")
	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		api.deleteErrs[id] = fmt.Errorf("boom")
	}

	out, err := newTestBulkService(api).Delete(context.Background(), testShop("a.myshopify.com"), ids)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Summary.Failed)
	assert.Equal(t, 0, out.Summary.Succeeded)
	assert.Equal(t, int32(3), api.deleteCalls.Load())
}

func TestBulkDelete_NotFoundIsReportedSeparately(t *testing.T) {
	api := newFakeAdminAPI("")
	api.deleteErrs["gone"] = &errors.ErrNotFound{Resource: "bundle", ID: "gone"}

	out, err := newTestBulkService(api).Delete(context.Background(), testShop("a.myshopify.com"), []string{"gone", "here"})
	require.NoError(t, err)

	assert.Equal(t, domain.BulkItemNotFound, out.Results[0].Status)
	assert.Equal(t, domain.BulkItemDeleted, out.Results[1].Status)
	assert.Equal(t, domain.BulkSummary{Total: 2, Succeeded: 1, Failed: 1, NotFound: 1}, out.Summary)
}

func TestBulkDelete_TrimsIDs(t *testing.T) {
	api := newFakeAdminAPI("")
	out, err := newTestBulkService(api).Delete(context.Background(), testShop("a.myshopify.com"), []string{"  gid://shopify/Metaobject/1 "})
	require.NoError(t, err)

	assert.Equal(t, "gid://shopify/Metaobject/1", out.Results[0].ID)
	assert.Equal(t, []string{"gid://shopify/Metaobject/1"}, api.deleted)
}

func TestBulkDelete_CancelledContextFailsRemainingItems(t *testing.T) {
	api := newFakeAdminAPI("")
	svc := NewBulkDeleteService(factoryFor(api), config.BulkDeleteConfig{Concurrency: 1, RateLimitPerSecond: 0.001}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := svc.Delete(ctx, testShop("a.myshopify.com"), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Summary.Failed)
	assert.Equal(t, int32(0), api.deleteCalls.Load())
}
