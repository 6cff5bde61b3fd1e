package enums

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaterialStatus reflects whether a raw-material listing can be ordered.
type MaterialStatus string

const (
	MaterialStatusAvailable  MaterialStatus = "Available"
	MaterialStatusOutOfStock MaterialStatus = "Out of Stock"
	MaterialStatusPending    MaterialStatus = "Pending"
)

var validMaterialStatuses = []MaterialStatus{
	MaterialStatusAvailable,
	MaterialStatusOutOfStock,
	MaterialStatusPending,
}

// String implements fmt.Stringer.
func (s MaterialStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known MaterialStatus.
func (s MaterialStatus) IsValid() bool {
	for _, candidate := range validMaterialStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseMaterialStatus converts raw input into a MaterialStatus.
func ParseMaterialStatus(value string) (MaterialStatus, error) {
	for _, candidate := range validMaterialStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid material status %q", value)
}

// DeriveMaterialStatus computes the status implied by stock. Empty stock is
// always Out of Stock; positive stock keeps an explicit Pending request and is
// otherwise Available.
func DeriveMaterialStatus(stock decimal.Decimal, requested MaterialStatus) MaterialStatus {
	if !stock.IsPositive() {
		return MaterialStatusOutOfStock
	}
	if requested == MaterialStatusPending {
		return MaterialStatusPending
	}
	return MaterialStatusAvailable
}
