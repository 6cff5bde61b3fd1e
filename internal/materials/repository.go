package materials

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rootsreach/rootsreach-backend/pkg/db"
	"github.com/rootsreach/rootsreach-backend/pkg/db/models"
	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
	"github.com/rootsreach/rootsreach-backend/pkg/pagination"
)

// ErrVersionConflict is returned when a guarded update lost a race.
var ErrVersionConflict = errors.New("material version changed")

// adjustStockSQL applies delta only when the result stays non-negative. The
// single statement is what serializes concurrent adjustments of one row.
// ROUND pins the sum to the column scale; sqlite evaluates numeric columns as
// REAL and would otherwise leave binary fractions behind.
const adjustStockSQL = `
UPDATE materials
SET stock = ROUND(stock + ?, 4),
    status = CASE WHEN ROUND(stock + ?, 4) > 0 THEN 'Available' ELSE 'Out of Stock' END,
    version = version + 1,
    updated_at = ?
WHERE id = ? AND ROUND(stock + ?, 4) >= 0
`

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Repository persists material listings.
type Repository struct {
	db *gorm.DB
	tx txRunner
}

// NewRepository builds a repository on top of the shared DB client.
func NewRepository(client *db.Client) *Repository {
	return &Repository{db: client.DB(), tx: client}
}

func (r *Repository) Create(ctx context.Context, material *models.Material) (*models.Material, error) {
	if err := r.db.WithContext(ctx).Create(material).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, material.ID)
}

// FindByID returns gorm.ErrRecordNotFound when the listing does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	var material models.Material
	if err := r.db.WithContext(ctx).First(&material, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

// List returns one page ordered newest first plus the cursor of the next page.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Material, string, error) {
	query := r.db.WithContext(ctx).Model(&models.Material{})

	if category := strings.TrimSpace(params.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if params.SupplierID != nil {
		query = query.Where("supplier_id = ?", *params.SupplierID)
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		like := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where(
			`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\')`,
			like, like, like,
		)
	}
	if params.LowStock != nil {
		query = query.Where("stock <= ?", *params.LowStock)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	cursor, err := pagination.Decode(params.Pagination.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		clause, args := cursor.Predicate()
		query = query.Where(clause, args...)
	}

	var rows []models.Material
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Pagination.FetchSize()).
		Find(&rows).Error; err != nil {
		return nil, "", err
	}

	page, next := pagination.Trim(rows, params.Pagination, func(m models.Material) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return page, next, nil
}

// Update writes every mutable column of material, guarded by the version the
// caller read. The stored version is incremented.
func (r *Repository) Update(ctx context.Context, material *models.Material, readVersion int64) (*models.Material, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Material{}).
		Where("id = ? AND version = ?", material.ID, readVersion).
		Updates(map[string]any{
			"name":           material.Name,
			"description":    material.Description,
			"category":       material.Category,
			"quantity":       material.Quantity.Round(maxScale),
			"unit":           material.Unit,
			"price_per_unit": material.PricePerUnit.Round(maxScale),
			"stock":          material.Stock.Round(maxScale),
			"status":         material.Status,
			"image_url":      material.ImageURL,
			"supplier_id":    material.SupplierID,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     material.UpdatedAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, material.ID); err != nil {
			return nil, err
		}
		return nil, ErrVersionConflict
	}
	return r.FindByID(ctx, material.ID)
}

// Delete hard-deletes the listing.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Material{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Categories returns the distinct categories in use, sorted.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := r.db.WithContext(ctx).
		Model(&models.Material{}).
		Distinct().
		Order("category ASC").
		Pluck("category", &categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// AdjustStock atomically adds delta to the listing's stock. It fails with
// NOT_FOUND for unknown listings and INSUFFICIENT_STOCK when the result would
// be negative; a failed call leaves the row untouched.
func (r *Repository) AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal, now time.Time) (*models.Material, error) {
	var updated models.Material
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Exec(adjustStockSQL, delta, delta, now, id, delta)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var current models.Material
			if err := tx.First(&current, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
				}
				return err
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"available": current.Stock,
					"requested": delta.Neg(),
				})
		}
		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
