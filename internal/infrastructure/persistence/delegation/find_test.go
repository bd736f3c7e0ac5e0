package delegation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDelegator_Find(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	d := newPeople(t, db)

	p := &person{Firstname: "Bob"}
	require.NoError(t, d.Write(ctx, p, "lastname", "Marley"))
	require.NoError(t, d.SaveStrict(ctx, p))

	t.Run("preloads delegated associations", func(t *testing.T) {
		found, err := d.Find(ctx, p.ID)
		require.NoError(t, err)

		assert.False(t, found.IsNewRecord())
		require.NotNil(t, found.Contact)
		assert.False(t, found.Contact.IsNewRecord())
		assert.Equal(t, "Marley", found.Contact.Lastname)
		assert.Nil(t, found.Company)
		assert.Empty(t, d.Changed(ctx, found))
	})

	t.Run("missing row", func(t *testing.T) {
		id := uuid.New()
		found, err := d.Find(ctx, id)
		assert.Nil(t, found)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		assert.Contains(t, err.Error(), "find person "+id.String())
	})
}

func TestDelegator_Reload(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	d := newPeople(t, db)

	p := &person{Firstname: "Bob"}
	require.NoError(t, d.Write(ctx, p, "lastname", "Marley"))
	require.NoError(t, d.SaveStrict(ctx, p))

	t.Run("discards unsaved changes", func(t *testing.T) {
		p.Firstname = "Robert"
		require.NoError(t, d.Write(ctx, p, "lastname", "Nesta"))

		require.NoError(t, d.Reload(ctx, p))
		assert.Equal(t, "Bob", p.Firstname)
		assert.Equal(t, "Marley", mustRead(t, d, p, "lastname"))
	})

	t.Run("new record", func(t *testing.T) {
		err := d.Reload(ctx, &person{})
		assert.EqualError(t, err, "reload person: record has no primary key")
	})

	t.Run("deleted record", func(t *testing.T) {
		gone := &person{Firstname: "Peter"}
		require.NoError(t, d.SaveStrict(ctx, gone))
		require.NoError(t, db.Delete(&person{}, "id = ?", gone.ID).Error)

		err := d.Reload(ctx, gone)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		assert.Equal(t, "Peter", gone.Firstname)
	})
}
