package models

import (
	"github.com/delegates/backend/internal/infrastructure/persistence/delegation"
	"github.com/google/uuid"
)

// User is the primary record. Lastname and email are delegated to Contact.
type User struct {
	delegation.Model
	Firstname string   `gorm:"type:varchar(100)" validate:"required,notblank"`
	Contact   *Contact `gorm:"constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// Contact holds the attributes a User delegates.
type Contact struct {
	delegation.Model
	UserID   uuid.UUID `gorm:"type:uuid;index"`
	Lastname string    `gorm:"type:varchar(100)"`
	Email    string    `gorm:"type:varchar(200)" validate:"omitempty,email"`
}

// TableName returns the table name for GORM
func (Contact) TableName() string {
	return "contacts"
}

// AllModels returns every model in migration order.
func AllModels() []any {
	return []any{
		&User{},
		&Contact{},
	}
}
