package delegation

import (
	"context"
	"errors"
	"testing"

	"github.com/delegates/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelegator_ReadWrite(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	d := newPeople(t, db)

	t.Run("new record builds its association", func(t *testing.T) {
		p := &person{Firstname: "Bob"}

		assert.Equal(t, "", mustRead(t, d, p, "lastname"))
		require.NotNil(t, p.Contact)
		assert.True(t, p.Contact.IsNewRecord())
		assert.Nil(t, p.Company, "only the association being read is resolved")
	})

	t.Run("write goes to the associated record", func(t *testing.T) {
		p := &person{Firstname: "Bob"}

		require.NoError(t, d.Write(ctx, p, "lastname", "Marley"))
		require.NoError(t, d.Write(ctx, p, "Email", "bob@example.com"))
		require.NoError(t, d.Write(ctx, p, "name", "Tuff Gong"))

		assert.Equal(t, "Marley", p.Contact.Lastname)
		assert.Equal(t, "bob@example.com", p.Contact.Email)
		assert.Equal(t, "Tuff Gong", p.Company.Name)
		assert.Equal(t, "Marley", mustRead(t, d, p, "lastname"))
		assert.Equal(t, "bob@example.com", mustRead(t, d, p, "email"))
	})

	t.Run("existing association is used as is", func(t *testing.T) {
		existing := &contact{Lastname: "Tosh"}
		p := &person{Firstname: "Peter", Contact: existing}

		assert.Equal(t, "Tosh", mustRead(t, d, p, "lastname"))
		assert.Same(t, existing, p.Contact)
	})

	t.Run("unknown attribute", func(t *testing.T) {
		p := &person{}

		_, err := d.Read(ctx, p, "firstname")
		assert.ErrorIs(t, err, shared.ErrUnknownAttribute)
		var unknown *UnknownAttributeError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "person", unknown.Model)
		assert.Equal(t, "firstname", unknown.Attribute)

		err = d.Write(ctx, p, "middlename", "x")
		assert.ErrorIs(t, err, shared.ErrUnknownAttribute)
		assert.EqualError(t, err, `unknown delegated attribute "middlename" for person`)
		assert.Nil(t, p.Contact, "a failed lookup resolves nothing")
	})

	t.Run("unassignable value", func(t *testing.T) {
		p := &person{}

		err := d.Write(ctx, p, "lastname", struct{ X int }{1})
		assert.Error(t, err)
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	d := newPeople(t, setupDB(t))
	p := &person{}
	require.NoError(t, d.Write(ctx, p, "lastname", "Marley"))

	lastname, err := Get[string](ctx, d, p, "lastname")
	require.NoError(t, err)
	assert.Equal(t, "Marley", lastname)

	_, err = Get[int](ctx, d, p, "lastname")
	assert.EqualError(t, err, `attribute "lastname" holds string, not int`)

	_, err = Get[string](ctx, d, p, "nope")
	assert.ErrorIs(t, err, shared.ErrUnknownAttribute)
}

func TestDelegator_LazyLoad(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	d := newPeople(t, db)

	p := &person{Firstname: "Bob"}
	require.NoError(t, d.Write(ctx, p, "lastname", "Marley"))
	ok, err := d.Save(ctx, p)
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("loads the association of a persisted record", func(t *testing.T) {
		var loaded person
		require.NoError(t, db.First(&loaded, "id = ?", p.ID).Error)
		require.False(t, loaded.IsNewRecord())
		require.Nil(t, loaded.Contact)

		assert.Equal(t, "Marley", mustRead(t, d, &loaded, "lastname"))
		require.NotNil(t, loaded.Contact)
		assert.False(t, loaded.Contact.IsNewRecord())
		assert.Equal(t, p.Contact.ID, loaded.Contact.ID)
	})

	t.Run("builds when a persisted record has no row", func(t *testing.T) {
		var loaded person
		require.NoError(t, db.First(&loaded, "id = ?", p.ID).Error)

		assert.Equal(t, "", mustRead(t, d, &loaded, "name"))
		require.NotNil(t, loaded.Company)
		assert.True(t, loaded.Company.IsNewRecord())
	})

	t.Run("Association returns the resolved record", func(t *testing.T) {
		var loaded person
		require.NoError(t, db.First(&loaded, "id = ?", p.ID).Error)

		assoc, err := d.Association(ctx, &loaded, "Contact")
		require.NoError(t, err)
		c, ok := assoc.(*contact)
		require.True(t, ok)
		assert.Equal(t, "Marley", c.Lastname)
		assert.Same(t, loaded.Contact, c)

		_, err = d.Association(ctx, &loaded, "Spouse")
		assert.EqualError(t, err, `person does not delegate to "Spouse"`)
	})
}
