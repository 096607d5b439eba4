package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLCredentialStore_LoadEmpty(t *testing.T) {
	s := NewSQLCredentialStore(setupDB(t))

	tok, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestSQLCredentialStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	fixed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	s := &sqlCredentialStore{db: db, repo: newMetadataRepo, now: func() time.Time { return fixed }}

	require.NoError(t, s.Save(ctx, "r1"))
	require.NoError(t, s.Save(ctx, "r2"))

	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", tok)

	savedAt, ok, err := CredentialSavedAt(ctx, db)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, fixed.Equal(savedAt))

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	_, ok, err = CredentialSavedAt(ctx, db)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentialSavedAt_BadValue(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	require.NoError(t, metadata.NewSQLiteRepository(db).SetString(ctx, common.RefreshTokenSavedAtKey, "yesterday"))

	_, ok, err := CredentialSavedAt(ctx, db)
	require.Error(t, err)
	assert.False(t, ok)
}

func TestSQLCredentialStore_ClosedDB(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	s := NewSQLCredentialStore(db)
	require.NoError(t, db.Close())

	_, err := s.Load(ctx)
	require.Error(t, err)
	require.Error(t, s.Save(ctx, "r1"))
	require.Error(t, s.Clear(ctx))
}

// failOnKeyRepo fails SetString for one key and delegates everything else.
type failOnKeyRepo struct {
	metadata.Repository
	key string
}

func (r failOnKeyRepo) SetString(ctx context.Context, key, value string) error {
	if key == r.key {
		return errors.New("disk full")
	}
	return r.Repository.SetString(ctx, key, value)
}

func TestSQLCredentialStore_SaveIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	require.NoError(t, NewSQLCredentialStore(db).Save(ctx, "r1"))

	s := &sqlCredentialStore{
		db:   db,
		now:  time.Now,
		repo: func(tx dbx.DBTX) metadata.Repository {
			return failOnKeyRepo{Repository: newMetadataRepo(tx), key: common.RefreshTokenSavedAtKey}
		},
	}
	require.Error(t, s.Save(ctx, "r2"))

	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", tok, "failed save must not leave a new token behind")
}
