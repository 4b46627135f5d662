package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/didjohn/internal/store/core"
)

func (s *Store) CreateChallenge(ctx context.Context, c *core.Challenge) error {
	const q = `
		INSERT INTO challenges (id, did, challenge, used, created_at, expires_at)
		VALUES ($1, $2, $3, FALSE, $4, $5)`
	_, err := s.pool.Exec(ctx, q, c.ID, c.DID, c.Text, c.CreatedAt, c.ExpiresAt)
	return err
}

// ConsumeChallenge es un conditional update en una sola sentencia: con N
// verificaciones concurrentes del mismo challenge solo una fila gana; las demás
// no matchean el WHERE y ven ErrNotFound, igual que un challenge inexistente,
// ya usado, de otro DID o expirado.
func (s *Store) ConsumeChallenge(ctx context.Context, did, id string, now time.Time) (*core.Challenge, error) {
	const q = `
		UPDATE challenges
		SET used = TRUE
		WHERE id = $1 AND did = $2 AND used = FALSE AND expires_at > $3
		RETURNING id, did, challenge, used, created_at, expires_at`

	var c core.Challenge
	err := s.pool.QueryRow(ctx, q, id, did, now).Scan(
		&c.ID, &c.DID, &c.Text, &c.Used, &c.CreatedAt, &c.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SweepExpiredChallenges elimina challenges vencidos. Pensado para correr
// periódicamente desde el proceso (no hay índice TTL nativo en Postgres).
func (s *Store) SweepExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM challenges WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
