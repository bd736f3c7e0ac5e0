package delegation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record is implemented by every model that embeds Model.
type Record interface {
	base() *Model
}

// Model provides the persistence fields and lifecycle state shared by
// primary and associated records.
type Model struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	errs      Errors
	persisted bool
	snapshot  map[string]any
}

func (m *Model) base() *Model {
	return m
}

// BeforeCreate assigns a random UUID when the record has none.
func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// AfterFind flags records loaded by any GORM query as persisted. Records
// loaded outside a Delegator have no snapshot, so a partial update writes
// all their columns.
func (m *Model) AfterFind(tx *gorm.DB) error {
	m.persisted = true
	return nil
}

// Errors returns the validation errors from the last validation run.
func (m *Model) Errors() *Errors {
	return &m.errs
}

// IsNewRecord reports whether the record has not been loaded from or saved
// to the database yet.
func (m *Model) IsNewRecord() bool {
	return !m.persisted
}
