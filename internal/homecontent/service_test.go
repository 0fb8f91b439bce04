package homecontent

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/events"
	"github.com/angelmondragon/storefront-backend/internal/resolver"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLookup struct {
	inner    *catalog.Repository
	calls    int
	failNext int
}

func (c *countingLookup) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	c.calls++
	if c.failNext > 0 {
		c.failNext--
		return nil, errors.New("catalog unavailable")
	}
	return c.inner.FindByIDs(ctx, ids)
}

func (c *countingLookup) FindByExternalIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	c.calls++
	if c.failNext > 0 {
		c.failNext--
		return nil, errors.New("catalog unavailable")
	}
	return c.inner.FindByExternalIDs(ctx, ids)
}

type memoryStore struct {
	data   map[string]string
	getErr error
}

func newMemoryStore() *memoryStore { return &memoryStore{data: map[string]string{}} }

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) Incr(_ context.Context, key string) (int64, error) {
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *memoryStore) CacheKey(parts ...string) string {
	return (&pkgredis.Client{}).CacheKey(parts...)
}

type fixture struct {
	svc      Service
	repo     *Repository
	catalog  *catalog.Repository
	lookup   *countingLookup
	store    *memoryStore
	cache    Cache
	recorder *events.Recorder
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	catalogRepo := catalog.NewRepository(client.DB())
	lookup := &countingLookup{inner: catalogRepo}
	repo := NewRepository(client.DB())
	recorder := &events.Recorder{}

	f := &fixture{repo: repo, catalog: catalogRepo, lookup: lookup, recorder: recorder}
	params := ServiceParams{
		Repo:      repo,
		Resolver:  resolver.New(lookup, nil, nil),
		Publisher: recorder,
	}
	if withCache {
		f.store = newMemoryStore()
		f.cache = NewRedisCache(f.store, time.Minute, nil, nil)
		params.Cache = f.cache
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) seedProduct(t *testing.T, externalID string) models.Product {
	t.Helper()
	p := &models.Product{ExternalID: externalID, Name: "Product " + externalID, Price: decimal.NewFromInt(5)}
	_, err := f.catalog.Create(context.Background(), p)
	require.NoError(t, err)
	return *p
}

func ref(id uuid.UUID) resolver.Ref { return resolver.Ref{ProductID: &id} }

func TestGetHomeContentWithoutRowIsEmpty(t *testing.T) {
	f := newFixture(t, false)

	content, err := f.svc.GetHomeContent(context.Background())
	require.NoError(t, err)
	assert.Empty(t, content.NewArrival)
	assert.Empty(t, content.HotItems)
	assert.Empty(t, content.TrandingItems)
	assert.NotNil(t, content.NewArrival, "lists serialize as [] rather than null")
	assert.Zero(t, f.lookup.calls)
}

func TestSetListPreservesOrder(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	a, b, c := f.seedProduct(t, "a"), f.seedProduct(t, "b"), f.seedProduct(t, "c")

	_, err := f.svc.SetList(ctx, "hotItems", []resolver.Ref{ref(c.ID), {ExternalID: "a"}, ref(b.ID)})
	require.NoError(t, err)

	content, err := f.svc.GetHomeContent(ctx)
	require.NoError(t, err)
	require.Len(t, content.HotItems, 3)
	assert.Equal(t, c.ID, content.HotItems[0].Product.ID)
	assert.Equal(t, a.ID, content.HotItems[1].Product.ID)
	assert.Equal(t, b.ID, content.HotItems[2].Product.ID)
	assert.Empty(t, content.NewArrival)
	assert.NotNil(t, content.UpdatedAt)
}

func TestSetListOnlyTouchesOneColumn(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	a, b := f.seedProduct(t, "a"), f.seedProduct(t, "b")

	_, err := f.svc.SetList(ctx, "newArrival", []resolver.Ref{ref(a.ID)})
	require.NoError(t, err)
	raw, err := f.svc.SetList(ctx, "trandingItems", []resolver.Ref{ref(b.ID)})
	require.NoError(t, err)

	require.Len(t, raw.NewArrival, 1)
	assert.Equal(t, a.ID, *raw.NewArrival[0].ProductID)
	require.Len(t, raw.TrandingItems, 1)
	assert.Equal(t, b.ID, *raw.TrandingItems[0].ProductID)

	var count int64
	require.NoError(t, f.repo.db.Model(&models.HomeContent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "the aggregate stays a singleton")

	cleared, err := f.svc.ClearList(ctx, "newArrival")
	require.NoError(t, err)
	assert.Empty(t, cleared.NewArrival)
	assert.Len(t, cleared.TrandingItems, 1)
}

func TestSetListRejectsUnknownListName(t *testing.T) {
	f := newFixture(t, false)
	for _, name := range []string{"featured", "trendingItems", ""} {
		_, err := f.svc.SetList(context.Background(), name, nil)
		require.Error(t, err)
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidArgument), name)
	}
	assert.Empty(t, f.recorder.Events)
}

func TestSetListRejectsKeylessReference(t *testing.T) {
	f := newFixture(t, false)
	p := f.seedProduct(t, "a")

	_, err := f.svc.SetList(context.Background(), "newArrival", []resolver.Ref{ref(p.ID), {ExternalID: "   "}})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]any{"index": 1}, typed.Details())

	raw, err := f.svc.GetRaw(context.Background())
	require.NoError(t, err)
	assert.Empty(t, raw.NewArrival, "a rejected write leaves the list unchanged")
}

func TestDanglingReferencesStayInAdminViewOnly(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	kept := f.seedProduct(t, "kept")
	gone := f.seedProduct(t, "gone")

	_, err := f.svc.SetList(ctx, "newArrival", []resolver.Ref{ref(gone.ID), ref(kept.ID)})
	require.NoError(t, err)
	require.NoError(t, f.catalog.Delete(ctx, gone.ID))

	admin, err := f.svc.GetHomeContent(ctx)
	require.NoError(t, err)
	require.Len(t, admin.NewArrival, 2)
	assert.False(t, admin.NewArrival[0].Resolved)
	assert.Nil(t, admin.NewArrival[0].Product)
	assert.Equal(t, gone.ID, *admin.NewArrival[0].ProductID)
	assert.True(t, admin.NewArrival[1].Resolved)

	public, err := f.svc.GetPublicHomeContent(ctx)
	require.NoError(t, err)
	require.Len(t, public.NewArrival, 1)
	assert.Equal(t, kept.ID, public.NewArrival[0].Product.ID)

	raw, err := f.svc.GetRaw(ctx)
	require.NoError(t, err)
	assert.Len(t, raw.NewArrival, 2, "deleting a product never edits the list")
}

func TestGetHomeContentBoundsCatalogLookups(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	var byID, byExternal []resolver.Ref
	for i := 0; i < 20; i++ {
		p := f.seedProduct(t, uuid.NewString())
		byID = append(byID, ref(p.ID))
		byExternal = append(byExternal, resolver.Ref{ExternalID: p.ExternalID})
	}
	_, err := f.svc.SetList(ctx, "newArrival", byID)
	require.NoError(t, err)
	_, err = f.svc.SetList(ctx, "hotItems", byExternal)
	require.NoError(t, err)
	_, err = f.svc.SetList(ctx, "trandingItems", append(byID[:5:5], byExternal[5:10]...))
	require.NoError(t, err)

	f.lookup.calls = 0
	content, err := f.svc.GetHomeContent(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, f.lookup.calls, 2)
	assert.Len(t, content.TrandingItems, 10)
}

func TestCacheHitSkipsLookupsAndWritesInvalidate(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	a, b := f.seedProduct(t, "a"), f.seedProduct(t, "b")

	_, err := f.svc.SetList(ctx, "newArrival", []resolver.Ref{ref(a.ID)})
	require.NoError(t, err)

	_, err = f.svc.GetHomeContent(ctx)
	require.NoError(t, err)
	calls := f.lookup.calls

	cached, err := f.svc.GetHomeContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, calls, f.lookup.calls, "served from cache")
	require.Len(t, cached.NewArrival, 1)
	assert.Equal(t, a.ID, cached.NewArrival[0].Product.ID)

	_, err = f.svc.SetList(ctx, "newArrival", []resolver.Ref{ref(b.ID)})
	require.NoError(t, err)
	_, _, hit := f.cache.Get(ctx)
	assert.False(t, hit, "write invalidates the cache")

	fresh, err := f.svc.GetHomeContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, fresh.NewArrival[0].Product.ID)
}

func TestFailedLookupIsNotCached(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	a := f.seedProduct(t, "a")
	_, err := f.svc.SetList(ctx, "newArrival", []resolver.Ref{ref(a.ID)})
	require.NoError(t, err)

	f.lookup.failNext = 1
	degraded, err := f.svc.GetHomeContent(ctx)
	require.NoError(t, err)
	require.Len(t, degraded.NewArrival, 1)
	assert.False(t, degraded.NewArrival[0].Resolved)
	_, _, hit := f.cache.Get(ctx)
	assert.False(t, hit, "degraded aggregate stays out of the cache")

	public, err := f.svc.GetPublicHomeContent(ctx)
	require.NoError(t, err)
	require.Len(t, public.NewArrival, 1, "catalog recovered on the next read")
	assert.Equal(t, a.ID, public.NewArrival[0].Product.ID)
}

func TestStaleReadCannotRepopulateAfterWrite(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	a, b := f.seedProduct(t, "a"), f.seedProduct(t, "b")
	_, err := f.svc.SetList(ctx, "hotItems", []resolver.Ref{ref(a.ID)})
	require.NoError(t, err)

	// A reader observes the generation, then a write commits before it stores.
	_, generation, hit := f.cache.Get(ctx)
	require.False(t, hit)
	stale, err := f.svc.GetHomeContent(ctx)
	require.NoError(t, err)
	_, err = f.svc.SetList(ctx, "hotItems", []resolver.Ref{ref(b.ID)})
	require.NoError(t, err)
	f.cache.Set(ctx, generation, stale)

	fresh, err := f.svc.GetHomeContent(ctx)
	require.NoError(t, err)
	require.Len(t, fresh.HotItems, 1)
	assert.Equal(t, b.ID, fresh.HotItems[0].Product.ID)
}

func TestCacheReadErrorFallsBackToDatabase(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	a := f.seedProduct(t, "a")
	_, err := f.svc.SetList(ctx, "hotItems", []resolver.Ref{ref(a.ID)})
	require.NoError(t, err)

	f.store.getErr = errors.New("connection reset")
	content, err := f.svc.GetHomeContent(ctx)
	require.NoError(t, err)
	require.Len(t, content.HotItems, 1)
	assert.True(t, content.HotItems[0].Resolved)
}

func TestSetListPublishesEvent(t *testing.T) {
	f := newFixture(t, false)
	p := f.seedProduct(t, "a")

	_, err := f.svc.SetList(context.Background(), "hotItems", []resolver.Ref{ref(p.ID)})
	require.NoError(t, err)

	require.Len(t, f.recorder.Events, 1)
	event := f.recorder.Events[0]
	assert.Equal(t, "home_content.list_replaced", event.Type.String())
	assert.Equal(t, "hotItems", event.AggregateID)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Repo: &Repository{}})
	require.Error(t, err)
}

func TestCreatingCuratedProductRefreshesPublicView(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	catalogSvc, err := catalog.NewService(catalog.ServiceParams{Repo: f.catalog, Invalidator: f.cache})
	require.NoError(t, err)

	_, err = f.svc.SetList(ctx, "hotItems", []resolver.Ref{{ExternalID: "sku-x"}})
	require.NoError(t, err)
	before, err := f.svc.GetPublicHomeContent(ctx)
	require.NoError(t, err)
	assert.Empty(t, before.HotItems)

	_, err = catalogSvc.CreateProduct(ctx, catalog.CreateProductInput{ExternalID: "sku-x", Name: "Lamp", Price: decimal.NewFromInt(9)})
	require.NoError(t, err)

	after, err := f.svc.GetPublicHomeContent(ctx)
	require.NoError(t, err)
	require.Len(t, after.HotItems, 1)
	assert.Equal(t, "sku-x", after.HotItems[0].ExternalID)
}
