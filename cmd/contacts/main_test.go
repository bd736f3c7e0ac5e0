package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/delegates/backend/internal/domain/shared"
	"github.com/delegates/backend/internal/infrastructure/config"
	"github.com/delegates/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *persistence.GormUserRepository {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 60,
		ConnMaxIdleTime: 30,
		SlowThreshold:   200 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	repo, err := persistence.NewGormUserRepository(db.DB)
	require.NoError(t, err)
	return repo
}

func runCmd(t *testing.T, repo *persistence.GormUserRepository, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), repo, args, &out)
	return out.String(), err
}

func TestRun(t *testing.T) {
	repo := setupRepo(t)

	out, err := runCmd(t, repo, "create", "-firstname", "Bob", "-email", "bob@example.com")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.Len(t, id, 36)

	out, err = runCmd(t, repo, "set", id, "lastname", "Marley")
	require.NoError(t, err)
	assert.Contains(t, out, "lastname:  Marley")

	out, err = runCmd(t, repo, "show", id)
	require.NoError(t, err)
	assert.Equal(t, "id:        "+id+"\n"+
		"firstname: Bob\n"+
		"lastname:  Marley\n"+
		"email:     bob@example.com\n", out)

	t.Run("no cascade", func(t *testing.T) {
		_, err := runCmd(t, repo, "set", id, "lastname", "Wailer", "-no-cascade")
		require.NoError(t, err)

		out, err := runCmd(t, repo, "show", id)
		require.NoError(t, err)
		assert.Contains(t, out, "lastname:  Marley")
	})

	t.Run("blank firstname", func(t *testing.T) {
		_, err := runCmd(t, repo, "set", id, "firstname", "")
		assert.ErrorIs(t, err, shared.ErrRecordInvalid)

		_, err = runCmd(t, repo, "set", "-skip-validation", id, "firstname", "")
		require.NoError(t, err)
		out, err := runCmd(t, repo, "show", id)
		require.NoError(t, err)
		assert.Contains(t, out, "firstname: \n")
	})

	t.Run("invalid email is saved with a warning", func(t *testing.T) {
		out, err := runCmd(t, repo, "create", "-firstname", "Peter")
		require.NoError(t, err)

		out, err = runCmd(t, repo, "set", strings.TrimSpace(out), "email", "nope")
		require.NoError(t, err)
		assert.Contains(t, out, "email:     nope")
		assert.Contains(t, out, "warnings:  Email is invalid")
	})
}

func TestRun_Errors(t *testing.T) {
	repo := setupRepo(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no command", nil, errUsage},
		{"unknown command", []string{"drop"}, errUsage},
		{"create bad flag", []string{"create", "-age", "3"}, errUsage},
		{"create blank", []string{"create"}, shared.ErrRecordInvalid},
		{"show arity", []string{"show"}, errUsage},
		{"show bad id", []string{"show", "42"}, shared.ErrInvalidInput},
		{"show missing", []string{"show", "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}, shared.ErrNotFound},
		{"set arity", []string{"set", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", "lastname"}, errUsage},
		{"set trailing argument", []string{"set", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", "lastname", "x", "-no-cascade", "y"}, errUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, repo, tt.args...)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("malformed id is invalid input", func(t *testing.T) {
		_, err := runCmd(t, repo, "show", "42")
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	})

	t.Run("unknown attribute", func(t *testing.T) {
		out, err := runCmd(t, repo, "create", "-firstname", "Bob")
		require.NoError(t, err)

		_, err = runCmd(t, repo, "set", strings.TrimSpace(out), "age", "3")
		assert.ErrorIs(t, err, shared.ErrUnknownAttribute)
	})
}
