package delegation

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type person struct {
	Model
	Firstname string     `gorm:"type:varchar(100)" validate:"required,notblank"`
	Nickname  string     `gorm:"type:varchar(100)" validate:"omitempty,max=10"`
	CompanyID *uuid.UUID `gorm:"type:uuid"`
	Company   *company
	Contact   *contact
}

func (person) TableName() string { return "people" }

type contact struct {
	Model
	PersonID uuid.UUID `gorm:"type:uuid;index"`
	Lastname string    `gorm:"type:varchar(100)"`
	Email    string    `gorm:"type:varchar(200)" validate:"omitempty,email"`
}

func (contact) TableName() string { return "contacts" }

type company struct {
	Model
	Name    string `gorm:"type:varchar(100)" validate:"required"`
	Country string `gorm:"type:varchar(2)"`
}

func (company) TableName() string { return "companies" }

// badge has attributes but does not embed Model.
type badge struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	PersonID uuid.UUID `gorm:"type:uuid"`
	Label    string
}

type tag struct {
	Model
	PersonID uuid.UUID `gorm:"type:uuid"`
	Label    string
}

type badgeHolder struct {
	Model
	Badge *badge `gorm:"foreignKey:PersonID"`
}

type tagHolder struct {
	Model
	Tags []tag `gorm:"foreignKey:PersonID"`
}

type valueHolder struct {
	Model
	Contact contact `gorm:"foreignKey:PersonID"`
}

type plain struct {
	ID   uuid.UUID
	Name string
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&company{}, &person{}, &contact{}))
	return db
}

func newPeople(t *testing.T, db *gorm.DB, opts ...Option) *Delegator[person] {
	t.Helper()

	d, err := New[person](db, append([]Option{
		To("Contact", "lastname", "email"),
		To("Company", "name", "country"),
	}, opts...)...)
	require.NoError(t, err)
	return d
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// forEachUpdateMode runs fn with partial updates off and on.
func forEachUpdateMode(t *testing.T, fn func(t *testing.T, partial bool)) {
	for _, partial := range []bool{false, true} {
		t.Run(fmt.Sprintf("partial_updates=%v", partial), func(t *testing.T) {
			fn(t, partial)
		})
	}
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func mustRead(t *testing.T, d *Delegator[person], p *person, attr string) any {
	t.Helper()
	v, err := d.Read(context.Background(), p, attr)
	require.NoError(t, err)
	return v
}
