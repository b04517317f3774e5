package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/internal/repository"
	"github.com/jafarshop/bundleapp/internal/shopify"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

type memMergeRepo struct {
	mu   sync.Mutex
	rows map[string][]*domain.MergeConfiguration
	// listErr, when set, is returned by ListByShop
	listErr error
}

func newMemMergeRepo() *memMergeRepo {
	return &memMergeRepo{rows: make(map[string][]*domain.MergeConfiguration)}
}

func cloneRow(c *domain.MergeConfiguration) *domain.MergeConfiguration {
	out := *c
	out.ProductIDs = append([]string(nil), c.ProductIDs...)
	return &out
}

func (r *memMergeRepo) ListByShop(_ context.Context, shop string) ([]*domain.MergeConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*domain.MergeConfiguration, 0, len(r.rows[shop]))
	for _, c := range r.rows[shop] {
		out = append(out, cloneRow(c))
	}
	return out, nil
}

func (r *memMergeRepo) GetBySlot(_ context.Context, shop string, slot domain.SlotID) (*domain.MergeConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows[shop] {
		if c.SlotID == slot {
			return cloneRow(c), nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "merge_configuration", ID: string(slot)}
}

func (r *memMergeRepo) Create(_ context.Context, cfg *domain.MergeConfiguration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	used := make(map[domain.SlotID]bool)
	for _, c := range r.rows[cfg.Shop] {
		if c.GroupKey == cfg.GroupKey {
			return &errors.ErrConflict{Message: "group key already in use"}
		}
		used[c.SlotID] = true
	}
	slot, ok := domain.AllocateSlot(used)
	if !ok {
		return &errors.ErrSlotsExhausted{Shop: cfg.Shop, Limit: domain.SlotCount}
	}
	cfg.ID = uuid.New()
	cfg.SlotID = slot
	cfg.CreatedAt = time.Now()
	cfg.UpdatedAt = cfg.CreatedAt
	r.rows[cfg.Shop] = append(r.rows[cfg.Shop], cloneRow(cfg))
	return nil
}

func (r *memMergeRepo) Update(_ context.Context, cfg *domain.MergeConfiguration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows[cfg.Shop] {
		if c.SlotID != cfg.SlotID && c.GroupKey == cfg.GroupKey {
			return &errors.ErrConflict{Message: "group key already in use"}
		}
	}
	for i, c := range r.rows[cfg.Shop] {
		if c.SlotID == cfg.SlotID {
			cfg.ID = c.ID
			cfg.CreatedAt = c.CreatedAt
			cfg.UpdatedAt = time.Now()
			r.rows[cfg.Shop][i] = cloneRow(cfg)
			return nil
		}
	}
	return &errors.ErrNotFound{Resource: "merge_configuration", ID: string(cfg.SlotID)}
}

func (r *memMergeRepo) DeleteBySlot(_ context.Context, shop string, slot domain.SlotID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.rows[shop] {
		if c.SlotID == slot {
			r.rows[shop] = append(r.rows[shop][:i], r.rows[shop][i+1:]...)
			return nil
		}
	}
	return &errors.ErrNotFound{Resource: "merge_configuration", ID: string(slot)}
}

func (r *memMergeRepo) DeleteAllByShop(_ context.Context, shop string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.rows[shop]))
	delete(r.rows, shop)
	return n, nil
}

type memShopRepo struct {
	mu    sync.Mutex
	shops map[string]*domain.Shop
}

func newMemShopRepo() *memShopRepo {
	return &memShopRepo{shops: make(map[string]*domain.Shop)}
}

func (r *memShopRepo) GetByDomain(_ context.Context, d string) (*domain.Shop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shops[d]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "shop", ID: d}
	}
	out := *s
	return &out, nil
}

func (r *memShopRepo) Upsert(_ context.Context, shop *domain.Shop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := *shop
	r.shops[shop.Domain] = &s
	return nil
}

func (r *memShopRepo) UpdateShopGID(_ context.Context, d, gid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shops[d]
	if !ok {
		return &errors.ErrNotFound{Resource: "shop", ID: d}
	}
	s.ShopGID = &gid
	return nil
}

func (r *memShopRepo) Delete(_ context.Context, d string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.shops, d)
	return nil
}

type memIdempotencyRepo struct {
	mu   sync.Mutex
	keys map[string]*domain.IdempotencyRecord
}

func (r *memIdempotencyRepo) GetByKey(_ context.Context, shop, key string) (*domain.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.keys[shop+"|"+key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *memIdempotencyRepo) Reserve(_ context.Context, rec *domain.IdempotencyRecord, staleBefore time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	k := rec.Shop + "|" + rec.Key
	if held, ok := r.keys[k]; ok && !(held.Pending() && held.CreatedAt.Before(staleBefore)) {
		return false, nil
	}
	cp := *rec
	r.keys[k] = &cp
	return true, nil
}

func (r *memIdempotencyRepo) Complete(_ context.Context, rec *domain.IdempotencyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if held, ok := r.keys[rec.Shop+"|"+rec.Key]; ok {
		held.StatusCode = rec.StatusCode
		held.ResponseBody = append([]byte(nil), rec.ResponseBody...)
	}
	return nil
}

func (r *memIdempotencyRepo) Release(_ context.Context, shop, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if held, ok := r.keys[shop+"|"+key]; ok && held.Pending() {
		delete(r.keys, shop+"|"+key)
	}
	return nil
}

func (r *memIdempotencyRepo) DeleteByShop(_ context.Context, shop string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, rec := range r.keys {
		if rec.Shop == shop {
			delete(r.keys, k)
		}
	}
	return nil
}

func newMemRepos() (*repository.Repositories, *memMergeRepo, *memShopRepo) {
	merge := newMemMergeRepo()
	shops := newMemShopRepo()
	idem := &memIdempotencyRepo{keys: make(map[string]*domain.IdempotencyRecord)}
	return &repository.Repositories{Shop: shops, MergeConfiguration: merge, IdempotencyKey: idem}, merge, shops
}

// fakeAdminAPI records calls. One instance is shared by every shop unless
// the test builds a per-shop factory.
type fakeAdminAPI struct {
	mu          sync.Mutex
	shopGID     string
	setCalls    [][]shopify.MetafieldsSetInput
	setErr      error
	deleteErrs  map[string]error
	deleted     []string
	deleteCalls atomic.Int32
	getIDCalls  atomic.Int32
	variants    map[string]*domain.ProductVariantSummary
	variantHits atomic.Int32
	published   string

	// deletePanics makes DeleteMetaobject panic for the listed ids
	deletePanics map[string]bool
}

func newFakeAdminAPI(shopGID string) *fakeAdminAPI {
	return &fakeAdminAPI{
		shopGID:      shopGID,
		deleteErrs:   make(map[string]error),
		deletePanics: make(map[string]bool),
		variants:     make(map[string]*domain.ProductVariantSummary),
	}
}

func (f *fakeAdminAPI) SetMetafields(_ context.Context, metafields []shopify.MetafieldsSetInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, metafields)
	if f.setErr != nil {
		return f.setErr
	}
	if len(metafields) > 0 {
		f.published = metafields[0].Value
	}
	return nil
}

func (f *fakeAdminAPI) GetShopMetafieldValue(_ context.Context, namespace, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published == "" {
		return "", &errors.ErrNotFound{Resource: "metafield", ID: namespace + "." + key}
	}
	return f.published, nil
}

func (f *fakeAdminAPI) DeleteMetaobject(_ context.Context, id string) error {
	f.deleteCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deletePanics[id] {
		panic("delete " + id + ": nil response")
	}
	if err, ok := f.deleteErrs[id]; ok {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAdminAPI) GetShopID(context.Context) (string, error) {
	f.getIDCalls.Add(1)
	return f.shopGID, nil
}

func (f *fakeAdminAPI) GetProductVariant(_ context.Context, id string) (*domain.ProductVariantSummary, error) {
	f.variantHits.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "product_variant", ID: id}
	}
	out := *v
	return &out, nil
}

func (f *fakeAdminAPI) calls() [][]shopify.MetafieldsSetInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]shopify.MetafieldsSetInput(nil), f.setCalls...)
}

func (f *fakeAdminAPI) lastValue() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.setCalls) == 0 {
		return ""
	}
	last := f.setCalls[len(f.setCalls)-1]
	return last[0].Value
}

func factoryFor(api *fakeAdminAPI) AdminAPIFactory {
	return func(*domain.Shop) AdminAPI { return api }
}

func testShop(d string) *domain.Shop {
	return &domain.Shop{ID: uuid.New(), Domain: d, AccessToken: "shpat_test"}
}

type memProductCache struct {
	mu      sync.Mutex
	entries map[string]*domain.ProductVariantSummary
	purged  []string
}

func newMemProductCache() *memProductCache {
	return &memProductCache{entries: make(map[string]*domain.ProductVariantSummary)}
}

func (c *memProductCache) GetVariant(_ context.Context, shop, id string) (*domain.ProductVariantSummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[shop+"|"+id]
	return v, ok, nil
}

func (c *memProductCache) SetVariant(_ context.Context, shop string, v *domain.ProductVariantSummary, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[shop+"|"+v.ID] = v
	return nil
}

func (c *memProductCache) PurgeShop(_ context.Context, shop string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purged = append(c.purged, shop)
	return nil
}
