package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/didjohn/internal/store/core"
)

func (s *Store) CreateCredential(ctx context.Context, c *core.Credential) error {
	const q = `
		INSERT INTO credentials (id, did, gsy_dex_address, credential_subject, credential, status, expiration_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`
	_, err := s.pool.Exec(ctx, q,
		c.ID, c.DID, c.GSYDexAddress, []byte(c.Subject), []byte(c.Document), string(c.Status), c.ExpirationDate)
	return err
}

func (s *Store) GetCredential(ctx context.Context, id string) (*core.Credential, error) {
	const q = `
		SELECT id, did, gsy_dex_address, credential_subject, credential, status, expiration_date, created_at, updated_at
		FROM credentials WHERE id = $1`

	var c core.Credential
	var subject, doc []byte
	var status string
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&c.ID, &c.DID, &c.GSYDexAddress, &subject, &doc, &status, &c.ExpirationDate, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Subject = subject
	c.Document = doc
	c.Status = core.CredentialStatus(status)
	return &c, nil
}

func (s *Store) SetCredentialStatus(ctx context.Context, id string, status core.CredentialStatus) error {
	// revoked es terminal: el WHERE impide resucitar una credencial revocada.
	const q = `
		UPDATE credentials
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND (status != 'revoked' OR $2 = 'revoked')`

	tag, err := s.pool.Exec(ctx, q, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// distinguir inexistente de transición prohibida
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM credentials WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return core.ErrNotFound
		}
		return core.ErrConflict
	}
	return nil
}

func (s *Store) ListCredentialsByDID(ctx context.Context, did string) ([]core.Credential, error) {
	const q = `
		SELECT id, did, gsy_dex_address, credential_subject, credential, status, expiration_date, created_at, updated_at
		FROM credentials WHERE did = $1 ORDER BY created_at`

	rows, err := s.pool.Query(ctx, q, did)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Credential
	for rows.Next() {
		var c core.Credential
		var subject, doc []byte
		var status string
		if err := rows.Scan(&c.ID, &c.DID, &c.GSYDexAddress, &subject, &doc, &status, &c.ExpirationDate, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Subject = subject
		c.Document = doc
		c.Status = core.CredentialStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}
