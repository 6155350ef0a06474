// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package store

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pookietalk/authcore/pkg/errutil"
)

// stubMigrate implements migrator for testing.
type stubMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	steps          []int
	version        uint
	dirty          bool
	versionErr     error
	closeSourceErr error
	closeDBErr     error
}

func (m *stubMigrate) Up() error   { return m.upErr }
func (m *stubMigrate) Down() error { return m.downErr }
func (m *stubMigrate) Steps(n int) error {
	m.steps = append(m.steps, n)
	return m.stepsErr
}
func (m *stubMigrate) Version() (uint, bool, error) { return m.version, m.dirty, m.versionErr }
func (m *stubMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDBErr }

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@h:5432/db", "pgx5://u:p@h:5432/db"},
		{"postgresql://u:p@h/db?sslmode=disable", "pgx5://u:p@h/db?sslmode=disable"},
		{"pgx5://u@h/db", "pgx5://u@h/db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MigrateURL(tt.in))
	}
}

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("invalid://url")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigrator_Up(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"applies", nil, false},
		{"already current", migrate.ErrNoChange, false},
		{"fails", errors.New("syntax error"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Migrator{m: &stubMigrate{upErr: tt.err}}
			err := m.Up()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, "MIGRATION_UP_FAILED")
		})
	}
}

func TestMigrator_Down(t *testing.T) {
	require.NoError(t, (&Migrator{m: &stubMigrate{downErr: migrate.ErrNoChange}}).Down())

	err := (&Migrator{m: &stubMigrate{downErr: errors.New("lock timeout")}}).Down()
	errutil.AssertErrorCode(t, err, "MIGRATION_DOWN_FAILED")
}

func TestMigrator_Steps(t *testing.T) {
	t.Run("zero is a no-op", func(t *testing.T) {
		stub := &stubMigrate{}
		require.NoError(t, (&Migrator{m: stub}).Steps(0))
		assert.Empty(t, stub.steps)
	})

	t.Run("forwards direction", func(t *testing.T) {
		stub := &stubMigrate{}
		m := &Migrator{m: stub}
		require.NoError(t, m.Steps(-1))
		require.NoError(t, m.Steps(2))
		assert.Equal(t, []int{-1, 2}, stub.steps)
	})

	t.Run("error carries steps", func(t *testing.T) {
		err := (&Migrator{m: &stubMigrate{stepsErr: errors.New("boom")}}).Steps(-1)
		errutil.AssertErrorCode(t, err, "MIGRATION_STEPS_FAILED")
		errutil.AssertErrorContext(t, err, "steps", -1)
	})
}

func TestMigrator_Version(t *testing.T) {
	t.Run("nil version is zero", func(t *testing.T) {
		v, dirty, err := (&Migrator{m: &stubMigrate{versionErr: migrate.ErrNilVersion}}).Version()
		require.NoError(t, err)
		assert.Zero(t, v)
		assert.False(t, dirty)
	})

	t.Run("dirty", func(t *testing.T) {
		v, dirty, err := (&Migrator{m: &stubMigrate{version: 1, dirty: true}}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(1), v)
		assert.True(t, dirty)
	})

	t.Run("error", func(t *testing.T) {
		_, _, err := (&Migrator{m: &stubMigrate{versionErr: errors.New("no table")}}).Version()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_Status(t *testing.T) {
	t.Run("fresh database has everything pending", func(t *testing.T) {
		st, err := (&Migrator{m: &stubMigrate{versionErr: migrate.ErrNilVersion}}).Status()
		require.NoError(t, err)
		assert.Zero(t, st.Version)
		assert.Empty(t, st.Name)
		assert.Equal(t, []uint{1, 2}, st.Pending)
	})

	t.Run("partially migrated", func(t *testing.T) {
		st, err := (&Migrator{m: &stubMigrate{version: 1}}).Status()
		require.NoError(t, err)
		assert.Equal(t, "000001_create_users", st.Name)
		assert.Equal(t, []uint{2}, st.Pending)
	})

	t.Run("current", func(t *testing.T) {
		st, err := (&Migrator{m: &stubMigrate{version: 2}}).Status()
		require.NoError(t, err)
		assert.Empty(t, st.Pending)
	})

	t.Run("version error", func(t *testing.T) {
		_, err := (&Migrator{m: &stubMigrate{versionErr: errors.New("down")}}).Status()
		require.Error(t, err)
	})
}

func TestMigrator_Close(t *testing.T) {
	require.NoError(t, (&Migrator{m: &stubMigrate{}}).Close())

	srcErr := errors.New("source")
	dbErr := errors.New("database")
	err := (&Migrator{m: &stubMigrate{closeSourceErr: srcErr, closeDBErr: dbErr}}).Close()
	errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
	assert.ErrorIs(t, err, srcErr)
	assert.ErrorIs(t, err, dbErr)
}
