// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pookietalk/authcore/internal/auth"
	"github.com/pookietalk/authcore/internal/auth/memory"
)

func newCredential(username, email string) *auth.Credential {
	return &auth.Credential{
		Username:     username,
		PasswordHash: "$2a$04$hash",
		Email:        email,
		Role:         auth.RoleUser,
	}
}

func TestUserDirectory_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	dir := memory.NewUserDirectory()

	draft := newCredential("alice", "a@x.com")
	saved, err := dir.Save(ctx, draft)
	require.NoError(t, err)

	t.Run("save assigns id and creation time", func(t *testing.T) {
		assert.NotEqual(t, ulid.ULID{}, saved.ID)
		assert.False(t, saved.CreatedAt.IsZero())
		assert.Equal(t, ulid.ULID{}, draft.ID, "draft must not be mutated")
	})

	t.Run("find by username is case-insensitive", func(t *testing.T) {
		got, err := dir.FindByUsername(ctx, "ALICE")
		require.NoError(t, err)
		assert.Equal(t, saved, got)
	})

	t.Run("find by id", func(t *testing.T) {
		got, err := dir.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		got, err := dir.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		got.Role = auth.RoleAdmin

		again, err := dir.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleUser, again.Role)
	})

	t.Run("missing users wrap ErrNotFound", func(t *testing.T) {
		_, err := dir.FindByUsername(ctx, "bob")
		require.ErrorIs(t, err, auth.ErrNotFound)

		_, err = dir.FindByID(ctx, ulid.Make())
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserDirectory_Uniqueness(t *testing.T) {
	ctx := context.Background()
	dir := memory.NewUserDirectory()

	_, err := dir.Save(ctx, newCredential("alice", "a@x.com"))
	require.NoError(t, err)

	_, err = dir.Save(ctx, newCredential("Alice", "other@x.com"))
	require.ErrorIs(t, err, auth.ErrDuplicateUsername)

	_, err = dir.Save(ctx, newCredential("alicia", "A@X.com"))
	require.ErrorIs(t, err, auth.ErrDuplicateEmail)

	assert.Equal(t, 1, dir.Len())
}

func TestUserDirectory_ConcurrentSaveOfSameUsername(t *testing.T) {
	ctx := context.Background()
	dir := memory.NewUserDirectory()

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := dir.Save(ctx, newCredential("alice", fmt.Sprintf("a%d@x.com", n)))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, auth.ErrDuplicateUsername):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dup)
}

func TestUserDirectory_SaveNil(t *testing.T) {
	_, err := memory.NewUserDirectory().Save(context.Background(), nil)
	require.Error(t, err)
}
