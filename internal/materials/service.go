package materials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rootsreach/rootsreach-backend/pkg/db/models"
	"github.com/rootsreach/rootsreach-backend/pkg/enums"
	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
	"github.com/rootsreach/rootsreach-backend/pkg/metrics"
	"github.com/rootsreach/rootsreach-backend/pkg/storage"
)

const imagePrefix = "materials"

// Service exposes the material inventory and the atomic stock mutation.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateInput, image *ImageUpload) (*MaterialDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*MaterialDTO, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*MaterialDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Categories(ctx context.Context) ([]string, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal, actorID uuid.UUID) (*MaterialDTO, error)
}

type materialStore interface {
	Create(ctx context.Context, material *models.Material) (*models.Material, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Material, error)
	List(ctx context.Context, params ListParams) ([]models.Material, string, error)
	Update(ctx context.Context, material *models.Material, readVersion int64) (*models.Material, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Categories(ctx context.Context) ([]string, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal, now time.Time) (*models.Material, error)
}

type supplierLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ServiceParams bundles the service dependencies. Images, Metrics and Clock
// are optional; without an image store uploads are rejected.
type ServiceParams struct {
	Repo          materialStore
	Suppliers     supplierLookup
	Images        storage.Store
	MaxImageBytes int64
	Metrics       *metrics.StockMetrics
	Logger        *logger.Logger
	Clock         func() time.Time
}

type service struct {
	repo          materialStore
	suppliers     supplierLookup
	images        storage.Store
	maxImageBytes int64
	metrics       *metrics.StockMetrics
	logg          *logger.Logger
	now           func() time.Time
}

// NewService builds the materials service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("materials repository is required")
	}
	if params.Suppliers == nil {
		return nil, fmt.Errorf("supplier lookup is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:          params.Repo,
		suppliers:     params.Suppliers,
		images:        params.Images,
		maxImageBytes: params.MaxImageBytes,
		metrics:       params.Metrics,
		logg:          params.Logger,
		now:           clock,
	}, nil
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput, image *ImageUpload) (*MaterialDTO, error) {
	fields := map[string]string{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		fields["name"] = "required"
	}
	if input.Quantity == nil {
		fields["quantity"] = "required"
	} else {
		checkAmount(fields, "quantity", *input.Quantity)
	}
	price := decimal.Zero
	if input.PricePerUnit != nil {
		price = *input.PricePerUnit
		checkAmount(fields, "price_per_unit", price)
	}
	var stock decimal.Decimal
	switch {
	case input.Stock != nil:
		stock = *input.Stock
		checkAmount(fields, "stock", stock)
	case input.Quantity != nil:
		stock = *input.Quantity
	}
	requested, ok := parseStatus(fields, input.Status)
	if !ok || len(fields) > 0 {
		return nil, invalidMaterial(fields)
	}

	if err := s.ensureSupplier(ctx, input.SupplierID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	material := &models.Material{
		ID:           uuid.New(),
		Name:         name,
		Description:  strings.TrimSpace(input.Description),
		Category:     normalizeCategory(input.Category),
		Quantity:     *input.Quantity,
		Unit:         normalizeUnit(input.Unit),
		PricePerUnit: price,
		Stock:        stock,
		Status:       enums.DeriveMaterialStatus(stock, requested),
		SupplierID:   input.SupplierID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if actorID != uuid.Nil {
		actor := actorID
		material.CreatedBy = &actor
	}

	if image != nil && image.Body != nil {
		url, err := s.storeImage(ctx, image, now)
		if err != nil {
			return nil, err
		}
		material.ImageURL = &url
	}

	created, err := s.repo.Create(ctx, material)
	if err != nil {
		if material.ImageURL != nil {
			s.removeImage(ctx, *material.ImageURL)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create material")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"material_id": created.ID.String(),
		"actor_id":    actorID.String(),
	})
	s.logg.Info(logCtx, "materials.created")
	return FromModel(created), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*MaterialDTO, error) {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(material), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.LowStock != nil && params.LowStock.IsNegative() {
		return nil, invalidMaterial(map[string]string{"lowStock": "must be >= 0"})
	}
	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list materials")
	}
	items := make([]MaterialDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &ListResult{Items: items, NextCursor: next}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*MaterialDTO, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if input.ExpectedVersion != nil && *input.ExpectedVersion != current.Version {
		return nil, versionConflict(current.Version)
	}

	fields := map[string]string{}
	next := *current
	if input.Name != nil {
		next.Name = strings.TrimSpace(*input.Name)
		if next.Name == "" {
			fields["name"] = "required"
		}
	}
	if input.Description != nil {
		next.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		next.Category = normalizeCategory(*input.Category)
	}
	if input.Unit != nil {
		next.Unit = normalizeUnit(*input.Unit)
	}
	if input.Quantity != nil {
		next.Quantity = *input.Quantity
		checkAmount(fields, "quantity", next.Quantity)
	}
	if input.PricePerUnit != nil {
		next.PricePerUnit = *input.PricePerUnit
		checkAmount(fields, "price_per_unit", next.PricePerUnit)
	}
	if input.Stock != nil {
		next.Stock = *input.Stock
		checkAmount(fields, "stock", next.Stock)
	}
	if input.ImageURL != nil {
		url := strings.TrimSpace(*input.ImageURL)
		next.ImageURL = nil
		if url != "" {
			next.ImageURL = &url
		}
	}
	requested := current.Status
	if input.Status != nil {
		parsed, ok := parseStatus(fields, input.Status)
		if ok {
			requested = parsed
		}
	}
	if len(fields) > 0 {
		return nil, invalidMaterial(fields)
	}

	switch {
	case input.ClearSupplier:
		next.SupplierID = nil
	case input.SupplierID != nil:
		if err := s.ensureSupplier(ctx, input.SupplierID); err != nil {
			return nil, err
		}
		next.SupplierID = input.SupplierID
	}

	next.Status = enums.DeriveMaterialStatus(next.Stock, requested)
	next.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, &next, current.Version)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, versionConflict(current.Version)
		}
		return nil, mapLookupError(err)
	}
	return FromModel(updated), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapLookupError(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapLookupError(err)
	}
	if current.ImageURL != nil {
		s.removeImage(ctx, *current.ImageURL)
	}
	s.logg.Info(s.logg.WithField(ctx, "material_id", id.String()), "materials.deleted")
	return nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (s *service) AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal, actorID uuid.UUID) (*MaterialDTO, error) {
	start := s.now()
	if delta.IsZero() || !withinScale(delta) || !withinRange(delta) {
		s.metrics.Observe(metrics.StockResultInvalid, s.now().Sub(start))
		return nil, pkgerrors.New(pkgerrors.CodeInvalidDelta, "stock change must be non-zero, below 1e16 and at most 4 decimal places").
			WithDetails(map[string]any{"stockChange": delta})
	}

	material, err := s.repo.AdjustStock(ctx, id, delta, start.UTC())
	elapsed := s.now().Sub(start)
	if err != nil {
		switch {
		case pkgerrors.Is(err, pkgerrors.CodeInsufficientStock):
			s.metrics.Observe(metrics.StockResultInsufficient, elapsed)
			return nil, err
		case pkgerrors.Is(err, pkgerrors.CodeNotFound):
			s.metrics.Observe(metrics.StockResultNotFound, elapsed)
			return nil, err
		default:
			s.metrics.Observe(metrics.StockResultError, elapsed)
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjust stock")
		}
	}
	s.metrics.Observe(metrics.StockResultApplied, elapsed)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id":    actorID.String(),
		"material_id": id.String(),
		"delta":       delta.String(),
		"stock":       material.Stock.String(),
	})
	s.logg.Info(logCtx, "materials.stock_adjusted")
	return FromModel(material), nil
}

func (s *service) ensureSupplier(ctx context.Context, supplierID *uuid.UUID) error {
	if supplierID == nil {
		return nil
	}
	supplier, err := s.suppliers.FindByID(ctx, *supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidMaterial(map[string]string{"supplier_id": "unknown supplier"})
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup supplier")
	}
	if !supplier.Role.CanSupply() {
		return invalidMaterial(map[string]string{"supplier_id": "supplier must be a distributor or admin"})
	}
	return nil
}

func (s *service) storeImage(ctx context.Context, upload *ImageUpload, now time.Time) (string, error) {
	if s.images == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image uploads are not enabled")
	}
	image, err := storage.ReadImage(upload.Body, s.maxImageBytes)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmptyImage),
			errors.Is(err, storage.ErrImageTooLarge),
			errors.Is(err, storage.ErrUnsupportedImage):
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
				WithDetails(map[string]string{"image": err.Error()})
		default:
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image")
		}
	}
	key := storage.ObjectKey(imagePrefix, image.Extension, now)
	url, err := s.images.Put(ctx, key, image.ContentType, bytes.NewReader(image.Data), int64(len(image.Data)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
	}
	return url, nil
}

func (s *service) removeImage(ctx context.Context, url string) {
	if s.images == nil {
		return
	}
	if err := s.images.Remove(ctx, url); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"image_url": url, "error": err.Error()}), "materials.image_cleanup_failed")
	}
}

func checkAmount(fields map[string]string, name string, value decimal.Decimal) {
	switch {
	case value.IsNegative():
		fields[name] = "must be >= 0"
	case !withinRange(value):
		fields[name] = "must be < 1e16"
	case !withinScale(value):
		fields[name] = "at most 4 decimal places"
	}
}

func parseStatus(fields map[string]string, raw *string) (enums.MaterialStatus, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return "", true
	}
	status, err := enums.ParseMaterialStatus(strings.TrimSpace(*raw))
	if err != nil {
		fields["status"] = "must be one of Available, Out of Stock, Pending"
		return "", false
	}
	return status, true
}

func invalidMaterial(fields map[string]string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid material").WithDetails(fields)
}

func versionConflict(current int64) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "material was modified by another request").
		WithDetails(map[string]any{"current_version": current})
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "material lookup failed")
}
