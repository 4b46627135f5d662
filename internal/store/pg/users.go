package pg

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/didjohn/internal/store/core"
)

func (s *Store) UpsertUser(ctx context.Context, u *core.User) error {
	meta, err := json.Marshal(u.Metadata)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO users (did, gsy_dex_address, metadata, has_verified_credential, deactivated, created_at, updated_at)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, NOW(), NOW())
		ON CONFLICT (did)
		DO UPDATE SET gsy_dex_address = COALESCE(NULLIF($2,''), users.gsy_dex_address),
		              metadata = $3,
		              has_verified_credential = $4,
		              deactivated = $5,
		              updated_at = NOW()`
	_, err = s.pool.Exec(ctx, q, u.DID, u.GSYDexAddress, meta, u.HasVerifiedCredential, u.Deactivated)
	return err
}

func (s *Store) GetUser(ctx context.Context, did string) (*core.User, error) {
	const q = `
		SELECT did, COALESCE(gsy_dex_address,''), metadata, has_verified_credential, deactivated, created_at, updated_at
		FROM users WHERE did = $1`

	var u core.User
	var meta []byte
	err := s.pool.QueryRow(ctx, q, did).Scan(
		&u.DID, &u.GSYDexAddress, &meta, &u.HasVerifiedCredential, &u.Deactivated, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &u.Metadata)
	}
	return &u, nil
}

func (s *Store) DeleteUser(ctx context.Context, did string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE did = $1`, did)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) SetUserLink(ctx context.Context, did, gsyDexAddress string) error {
	const q = `
		INSERT INTO users (did, gsy_dex_address, has_verified_credential, created_at, updated_at)
		VALUES ($1, $2, TRUE, NOW(), NOW())
		ON CONFLICT (did)
		DO UPDATE SET gsy_dex_address = EXCLUDED.gsy_dex_address,
		              has_verified_credential = TRUE,
		              updated_at = NOW()`
	_, err := s.pool.Exec(ctx, q, did, gsyDexAddress)
	return err
}

func (s *Store) SetUserDeactivated(ctx context.Context, did string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET deactivated = TRUE, updated_at = NOW() WHERE did = $1`, did)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
