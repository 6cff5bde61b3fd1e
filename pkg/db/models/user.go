package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rootsreach/rootsreach-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email           string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash    string     `gorm:"column:password_hash;not null"`
	Name            string     `gorm:"column:name;not null"`
	Role            enums.Role `gorm:"column:role;type:text;not null;default:'buyer'"`
	Phone           *string    `gorm:"column:phone"`
	BusinessName    *string    `gorm:"column:business_name"`
	BusinessType    *string    `gorm:"column:business_type"`
	City            *string    `gorm:"column:city"`
	State           *string    `gorm:"column:state"`
	Country         *string    `gorm:"column:country"`
	IsActive        bool       `gorm:"column:is_active;not null;default:true"`
	IsEmailVerified bool       `gorm:"column:is_email_verified;not null;default:false"`
	IsPhoneVerified bool       `gorm:"column:is_phone_verified;not null;default:false"`
	LastLoginAt     *time.Time `gorm:"column:last_login_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an identifier when the caller did not supply one.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
