package materials

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rootsreach/rootsreach-backend/pkg/db/models"
	"github.com/rootsreach/rootsreach-backend/pkg/enums"
	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
	"github.com/rootsreach/rootsreach-backend/pkg/metrics"
)

// 1x1 transparent PNG.
var pngPixel, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

type stubSuppliers map[uuid.UUID]*models.User

func (s stubSuppliers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if m.failPut {
		return "", errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	url := "/uploads/" + key
	m.objects[url] = data
	return url, nil
}

func (m *memoryStore) Remove(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, url)
	return nil
}

type serviceFixture struct {
	svc       Service
	repo      *Repository
	images    *memoryStore
	registry  *prometheus.Registry
	suppliers stubSuppliers
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	repo := NewRepository(newTestClient(t))
	images := newMemoryStore()
	registry := prometheus.NewRegistry()
	suppliers := stubSuppliers{}
	svc, err := NewService(ServiceParams{
		Repo:          repo,
		Suppliers:     suppliers,
		Images:        images,
		MaxImageBytes: 1 << 20,
		Metrics:       metrics.NewStockMetrics(registry),
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &serviceFixture{svc: svc, repo: repo, images: images, registry: registry, suppliers: suppliers}
}

func decPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func strPtr(value string) *string { return &value }

func TestServiceCreateDerivesStockAndStatus(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	admin := uuid.New()

	created, err := f.svc.Create(ctx, admin, CreateInput{Name: "  Cotton Yarn ", Quantity: decPtr("25")}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Cotton Yarn" || created.Unit != "kg" || created.Category != "General" {
		t.Fatalf("unexpected defaults: %+v", created)
	}
	if !created.Stock.Equal(decimal.NewFromInt(25)) || created.Status != enums.MaterialStatusAvailable {
		t.Fatalf("expected stock to default to quantity, got %s %s", created.Stock, created.Status)
	}
	if created.CreatedBy == nil || *created.CreatedBy != admin {
		t.Fatalf("expected creator to be recorded")
	}

	fetched, err := f.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !fetched.Quantity.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected quantity 25, got %s", fetched.Quantity)
	}

	empty, err := f.svc.Create(ctx, admin, CreateInput{Name: "Madder Root", Quantity: decPtr("0"), Status: strPtr("Pending")}, nil)
	if err != nil {
		t.Fatalf("create empty: %v", err)
	}
	if empty.Status != enums.MaterialStatusOutOfStock {
		t.Fatalf("expected empty listing to be out of stock, got %s", empty.Status)
	}

	pending, err := f.svc.Create(ctx, admin, CreateInput{Name: "Lac", Quantity: decPtr("4"), Status: strPtr("Pending")}, nil)
	if err != nil {
		t.Fatalf("create pending: %v", err)
	}
	if pending.Status != enums.MaterialStatusPending {
		t.Fatalf("expected pending, got %s", pending.Status)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, uuid.New(), CreateInput{Name: " ", PricePerUnit: decPtr("-1")}, nil)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details := pkgerrors.As(err).Details().(map[string]string)
	for _, field := range []string{"name", "quantity", "price_per_unit"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected %s in details, got %v", field, details)
		}
	}

	_, err = f.svc.Create(ctx, uuid.New(), CreateInput{Name: "Jute", Quantity: decPtr("1"), Stock: decPtr("0.00001")}, nil)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected scale validation error, got %v", err)
	}

	_, err = f.svc.Create(ctx, uuid.New(), CreateInput{Name: "Jute", Quantity: decPtr("1e20"), PricePerUnit: decPtr("1e16")}, nil)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range validation error, got %v", err)
	}
	details = pkgerrors.As(err).Details().(map[string]string)
	for _, field := range []string{"quantity", "price_per_unit"} {
		if details[field] != "must be < 1e16" {
			t.Fatalf("expected range message for %s, got %v", field, details)
		}
	}

	_, err = f.svc.Create(ctx, uuid.New(), CreateInput{Name: "Jute", Quantity: decPtr("1"), Status: strPtr("Sold")}, nil)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected status validation error, got %v", err)
	}
}

func TestServiceCreateChecksSupplierRole(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	distributor := &models.User{ID: uuid.New(), Role: enums.RoleDistributor}
	artisan := &models.User{ID: uuid.New(), Role: enums.RoleArtisan}
	f.suppliers[distributor.ID] = distributor
	f.suppliers[artisan.ID] = artisan

	created, err := f.svc.Create(ctx, uuid.New(), CreateInput{Name: "Hemp", Quantity: decPtr("5"), SupplierID: &distributor.ID}, nil)
	if err != nil {
		t.Fatalf("create with distributor: %v", err)
	}
	if created.SupplierID == nil || *created.SupplierID != distributor.ID {
		t.Fatalf("expected supplier to be stored")
	}

	for _, id := range []uuid.UUID{artisan.ID, uuid.New()} {
		id := id
		_, err := f.svc.Create(ctx, uuid.New(), CreateInput{Name: "Hemp", Quantity: decPtr("5"), SupplierID: &id}, nil)
		if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected supplier validation error for %s, got %v", id, err)
		}
	}

	result, err := f.svc.List(ctx, ListParams{SupplierID: &distributor.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected one listing for supplier, got %d", len(result.Items))
	}
}

func TestServiceCreateStoresImage(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, uuid.New(), CreateInput{Name: "Terracotta", Quantity: decPtr("9")}, &ImageUpload{Body: bytes.NewReader(pngPixel)})
	if err != nil {
		t.Fatalf("create with image: %v", err)
	}
	if created.ImageURL == nil || !strings.HasPrefix(*created.ImageURL, "/uploads/materials/") || !strings.HasSuffix(*created.ImageURL, ".png") {
		t.Fatalf("unexpected image url %v", created.ImageURL)
	}
	if _, ok := f.images.objects[*created.ImageURL]; !ok {
		t.Fatalf("expected image to be stored")
	}

	_, err = f.svc.Create(ctx, uuid.New(), CreateInput{Name: "Terracotta", Quantity: decPtr("9")}, &ImageUpload{Body: strings.NewReader("plain text")})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected unsupported image to be rejected, got %v", err)
	}

	f.images.failPut = true
	_, err = f.svc.Create(ctx, uuid.New(), CreateInput{Name: "Terracotta", Quantity: decPtr("9")}, &ImageUpload{Body: bytes.NewReader(pngPixel)})
	if !pkgerrors.Is(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected storage failure to be a dependency error, got %v", err)
	}

	if err := f.svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := f.images.objects[*created.ImageURL]; ok {
		t.Fatalf("expected image to be removed with the listing")
	}
	if err := f.svc.Delete(ctx, created.ID); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestServiceUpdate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, uuid.New(), CreateInput{Name: "Cane", Quantity: decPtr("10"), Status: strPtr("Pending")}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.svc.Update(ctx, created.ID, UpdateInput{Category: strPtr("Cane"), PricePerUnit: decPtr("7.25"), ExpectedVersion: &created.Version})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Category != "Cane" || !updated.PricePerUnit.Equal(decimal.RequireFromString("7.25")) {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if updated.Status != enums.MaterialStatusPending {
		t.Fatalf("expected pending to survive a non-stock edit, got %s", updated.Status)
	}
	if updated.Version != created.Version+1 {
		t.Fatalf("expected version bump, got %d", updated.Version)
	}

	_, err = f.svc.Update(ctx, created.ID, UpdateInput{Name: strPtr("Stale"), ExpectedVersion: &created.Version})
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}

	drained, err := f.svc.Update(ctx, created.ID, UpdateInput{Stock: decPtr("0")})
	if err != nil {
		t.Fatalf("update stock: %v", err)
	}
	if drained.Status != enums.MaterialStatusOutOfStock {
		t.Fatalf("expected out of stock, got %s", drained.Status)
	}

	_, err = f.svc.Update(ctx, created.ID, UpdateInput{Stock: decPtr("-1")})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected negative stock to be rejected, got %v", err)
	}

	_, err = f.svc.Update(ctx, uuid.New(), UpdateInput{Name: strPtr("Ghost")})
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceAdjustStockRejectsInvalidDelta(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, uuid.New(), CreateInput{Name: "Reed", Quantity: decPtr("3")}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, delta := range []string{"0", "-0.00001", "1.23456", "1e20", "-1e16", "10000000000000000"} {
		_, err := f.svc.AdjustStock(ctx, created.ID, decimal.RequireFromString(delta), uuid.New())
		if !pkgerrors.Is(err, pkgerrors.CodeInvalidDelta) {
			t.Fatalf("expected invalid delta for %s, got %v", delta, err)
		}
	}

	_, err = f.svc.AdjustStock(ctx, uuid.New(), decimal.NewFromInt(-1), uuid.New())
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// Admin lists 25 kg of cotton yarn, the first artisan buys all of it and the
// second is turned away without changing stock.
func TestServiceCottonYarnOrderFlow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	listing, err := f.svc.Create(ctx, uuid.New(), CreateInput{Name: "Cotton Yarn", Quantity: decPtr("25"), Stock: decPtr("25"), Unit: "kg"}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	afterFirst, err := f.svc.AdjustStock(ctx, listing.ID, decimal.NewFromInt(-25), uuid.New())
	if err != nil {
		t.Fatalf("first order: %v", err)
	}
	if !afterFirst.Stock.IsZero() || afterFirst.Status != enums.MaterialStatusOutOfStock {
		t.Fatalf("expected empty listing, got %s %s", afterFirst.Stock, afterFirst.Status)
	}

	_, err = f.svc.AdjustStock(ctx, listing.ID, decimal.NewFromInt(-1), uuid.New())
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	final, err := f.svc.Get(ctx, listing.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !final.Stock.IsZero() || final.Status != enums.MaterialStatusOutOfStock {
		t.Fatalf("expected stock to remain zero, got %s %s", final.Stock, final.Status)
	}

	families, err := f.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "stock_adjustments_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" {
					counts[label.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	if counts[metrics.StockResultApplied] != 1 || counts[metrics.StockResultInsufficient] != 1 {
		t.Fatalf("unexpected stock metrics %v", counts)
	}
}

func TestServiceListAndCategories(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	for _, in := range []CreateInput{
		{Name: "Cotton Yarn", Category: "Yarn", Quantity: decPtr("25")},
		{Name: "Indigo", Category: "Dye", Quantity: decPtr("2")},
		{Name: "Clay", Category: "Pottery", Quantity: decPtr("30")},
	} {
		if _, err := f.svc.Create(ctx, uuid.New(), in, nil); err != nil {
			t.Fatalf("create %s: %v", in.Name, err)
		}
	}

	categories, err := f.svc.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if strings.Join(categories, ",") != "Dye,Pottery,Yarn" {
		t.Fatalf("unexpected categories %v", categories)
	}

	result, err := f.svc.List(ctx, ListParams{LowStock: decPtr("5")})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Name != "Indigo" {
		t.Fatalf("unexpected low stock result %+v", result.Items)
	}

	if _, err := f.svc.List(ctx, ListParams{LowStock: decPtr("-1")}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected negative threshold to be rejected, got %v", err)
	}

	empty := newServiceFixture(t)
	none, err := empty.svc.Categories(ctx)
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty category list, got %v %v", none, err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	if _, err := NewService(ServiceParams{Suppliers: stubSuppliers{}, Logger: logg}); err == nil {
		t.Fatal("expected missing repo to fail")
	}
	if _, err := NewService(ServiceParams{Repo: &Repository{}, Logger: logg}); err == nil {
		t.Fatal("expected missing supplier lookup to fail")
	}
	if _, err := NewService(ServiceParams{Repo: &Repository{}, Suppliers: stubSuppliers{}}); err == nil {
		t.Fatal("expected missing logger to fail")
	}
}
