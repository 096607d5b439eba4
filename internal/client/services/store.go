package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
)

// CredentialStore persists the renewal credential across process runs.
//
// Contract:
//   - Load returns "" with a nil error when nothing is stored.
//   - Save replaces any previous value (last writer wins).
//   - Clear is idempotent.
type CredentialStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, refreshToken string) error
	Clear(ctx context.Context) error
}

// sqlCredentialStore keeps the credential in the metadata table. repo binds
// a metadata.Repository to the database or to a running transaction.
type sqlCredentialStore struct {
	db   *sql.DB
	repo func(dbx.DBTX) metadata.Repository
	now  func() time.Time
}

// NewSQLCredentialStore returns a CredentialStore over a migrated client DB.
func NewSQLCredentialStore(db *sql.DB) CredentialStore {
	return &sqlCredentialStore{db: db, repo: newMetadataRepo, now: time.Now}
}

func newMetadataRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (s *sqlCredentialStore) Load(ctx context.Context) (string, error) {
	tok, err := s.repo(s.db).GetString(ctx, common.RefreshTokenKey)
	if err != nil {
		return "", fmt.Errorf("load refresh token: %w", err)
	}
	return tok, nil
}

// Save writes the token together with its write time in one transaction.
func (s *sqlCredentialStore) Save(ctx context.Context, refreshToken string) error {
	savedAt := s.now().UTC().Format(time.RFC3339)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		if err := repo.SetString(ctx, common.RefreshTokenKey, refreshToken); err != nil {
			return err
		}
		return repo.SetString(ctx, common.RefreshTokenSavedAtKey, savedAt)
	})
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (s *sqlCredentialStore) Clear(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		if err := repo.Delete(ctx, common.RefreshTokenKey); err != nil {
			return err
		}
		return repo.Delete(ctx, common.RefreshTokenSavedAtKey)
	})
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// CredentialSavedAt reports when the stored credential was last written.
// ok is false when nothing is recorded.
func CredentialSavedAt(ctx context.Context, db *sql.DB) (t time.Time, ok bool, err error) {
	v, err := metadata.NewSQLiteRepository(db).GetString(ctx, common.RefreshTokenSavedAtKey)
	if err != nil || v == "" {
		return time.Time{}, false, err
	}
	t, err = time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse %s: %w", common.RefreshTokenSavedAtKey, err)
	}
	return t, true, nil
}
