package delegation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetach(t *testing.T) {
	id := uuid.New()
	var nilID *uuid.UUID

	assert.Equal(t, id, detach(&id))
	assert.Nil(t, detach(nilID))
	assert.Equal(t, "Bob", detach("Bob"))
	assert.Equal(t, 3, detach(3))
}

func TestChanged_PointerWrittenInPlace(t *testing.T) {
	ctx := context.Background()
	d := newPeople(t, setupDB(t))

	companyID := uuid.New()
	p := &person{Firstname: "Bob", CompanyID: &companyID}
	require.NoError(t, d.SaveStrict(ctx, p))
	require.Empty(t, d.Changed(ctx, p))

	*p.CompanyID = uuid.New()
	assert.Equal(t, []string{"company_id"}, d.Changed(ctx, p))

	p.CompanyID = nil
	assert.Equal(t, []string{"company_id"}, d.Changed(ctx, p))
}

func TestSave_SwitchingBelongsToTarget(t *testing.T) {
	ctx := context.Background()

	forEachUpdateMode(t, func(t *testing.T, partial bool) {
		db := setupDB(t)
		d := newPeople(t, db, WithPartialUpdates(partial))

		p := &person{Firstname: "Bob"}
		require.NoError(t, d.Write(ctx, p, "name", "Tuff Gong"))
		require.NoError(t, d.SaveStrict(ctx, p))
		first := p.Company.ID

		p.Company = &company{Name: "Island"}
		require.NoError(t, d.SaveStrict(ctx, p))
		require.NotEqual(t, first, p.Company.ID)

		found, err := d.Find(ctx, p.ID)
		require.NoError(t, err)
		require.NotNil(t, found.CompanyID)
		assert.Equal(t, p.Company.ID, *found.CompanyID)
		assert.Equal(t, "Island", mustRead(t, d, found, "name"))
	})
}
