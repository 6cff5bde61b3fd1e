package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rootsreach/rootsreach-backend/pkg/enums"
)

// Material is an orderable raw-material listing.
type Material struct {
	ID           uuid.UUID            `gorm:"type:uuid;primaryKey"`
	Name         string               `gorm:"column:name;not null"`
	Description  string               `gorm:"column:description;not null;default:''"`
	Category     string               `gorm:"column:category;not null;default:'General';index"`
	Quantity     decimal.Decimal      `gorm:"column:quantity;type:numeric(20,4);not null"`
	Unit         string               `gorm:"column:unit;not null;default:'kg'"`
	PricePerUnit decimal.Decimal      `gorm:"column:price_per_unit;type:numeric(20,4);not null;default:0"`
	Stock        decimal.Decimal      `gorm:"column:stock;type:numeric(20,4);not null;default:0;check:stock >= 0"`
	Status       enums.MaterialStatus `gorm:"column:status;type:text;not null"`
	ImageURL     *string              `gorm:"column:image_url"`
	SupplierID   *uuid.UUID           `gorm:"column:supplier_id;type:uuid;index"`
	CreatedBy    *uuid.UUID           `gorm:"column:created_by;type:uuid"`
	Version      int64                `gorm:"column:version;not null;default:1"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an identifier when the caller did not supply one.
func (m *Material) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Version == 0 {
		m.Version = 1
	}
	return nil
}
