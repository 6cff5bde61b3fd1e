package materials

import (
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rootsreach/rootsreach-backend/pkg/db/models"
	"github.com/rootsreach/rootsreach-backend/pkg/enums"
	"github.com/rootsreach/rootsreach-backend/pkg/pagination"
)

func init() {
	// quantities travel as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	defaultCategory = "General"
	defaultUnit     = "kg"
	// maxScale matches the numeric(20,4) columns.
	maxScale = 4
)

// maxAmount is the first magnitude that no longer fits numeric(20,4).
var maxAmount = decimal.New(1, 16)

// MaterialDTO is the API shape of a raw-material listing.
type MaterialDTO struct {
	ID           uuid.UUID            `json:"id"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Category     string               `json:"category"`
	Quantity     decimal.Decimal      `json:"quantity"`
	Unit         string               `json:"unit"`
	PricePerUnit decimal.Decimal      `json:"price_per_unit"`
	Stock        decimal.Decimal      `json:"stock"`
	Status       enums.MaterialStatus `json:"status"`
	ImageURL     *string              `json:"image_url,omitempty"`
	SupplierID   *uuid.UUID           `json:"supplier_id,omitempty"`
	CreatedBy    *uuid.UUID           `json:"created_by,omitempty"`
	Version      int64                `json:"version"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// FromModel converts the persisted listing to its DTO.
func FromModel(m *models.Material) *MaterialDTO {
	if m == nil {
		return nil
	}
	return &MaterialDTO{
		ID:           m.ID,
		Name:         m.Name,
		Description:  m.Description,
		Category:     m.Category,
		Quantity:     m.Quantity,
		Unit:         m.Unit,
		PricePerUnit: m.PricePerUnit,
		Stock:        m.Stock,
		Status:       m.Status,
		ImageURL:     m.ImageURL,
		SupplierID:   m.SupplierID,
		CreatedBy:    m.CreatedBy,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// CreateInput carries the fields accepted when an admin lists a material.
type CreateInput struct {
	Name         string           `json:"name" validate:"required,max=160"`
	Description  string           `json:"description" validate:"max=4000"`
	Category     string           `json:"category" validate:"max=80"`
	Quantity     *decimal.Decimal `json:"quantity" validate:"required"`
	Unit         string           `json:"unit" validate:"max=20"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit"`
	Stock        *decimal.Decimal `json:"stock"`
	Status       *string          `json:"status"`
	SupplierID   *uuid.UUID       `json:"supplier_id"`
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name            *string          `json:"name" validate:"omitempty,max=160"`
	Description     *string          `json:"description" validate:"omitempty,max=4000"`
	Category        *string          `json:"category" validate:"omitempty,max=80"`
	Quantity        *decimal.Decimal `json:"quantity"`
	Unit            *string          `json:"unit" validate:"omitempty,max=20"`
	PricePerUnit    *decimal.Decimal `json:"price_per_unit"`
	Stock           *decimal.Decimal `json:"stock"`
	Status          *string          `json:"status"`
	SupplierID      *uuid.UUID       `json:"supplier_id"`
	ClearSupplier   bool             `json:"clear_supplier"`
	ImageURL        *string          `json:"image_url"`
	ExpectedVersion *int64           `json:"expected_version"`
}

// ImageUpload is an optional image attached to a create request.
type ImageUpload struct {
	Body io.Reader
}

// ListParams filters the catalogue. Zero values disable a filter.
type ListParams struct {
	Category   string
	SupplierID *uuid.UUID
	Search     string
	LowStock   *decimal.Decimal
	Status     *enums.MaterialStatus
	Pagination pagination.Params
}

// ListResult is one page of listings.
type ListResult struct {
	Items      []MaterialDTO `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func normalizeCategory(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultCategory
	}
	return value
}

func normalizeUnit(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultUnit
	}
	return value
}

func withinScale(value decimal.Decimal) bool {
	return value.Equal(value.Truncate(maxScale))
}

func withinRange(value decimal.Decimal) bool {
	return value.Abs().LessThan(maxAmount)
}
