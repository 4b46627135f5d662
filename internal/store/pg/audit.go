package pg

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/dropDatabas3/didjohn/internal/store/core"
)

func (s *Store) InsertAuditLog(ctx context.Context, e *core.AuditLog) error {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO audit_logs (id, action, did, gsy_dex_address, metadata, ip_address, user_agent, success, created_at)
		VALUES ($1, $2, $3, NULLIF($4,''), $5, NULLIF($6,''), NULLIF($7,''), $8, NOW())`
	_, err = s.pool.Exec(ctx, q,
		id, string(e.Action), e.DID, e.GSYDexAddress, meta, e.IPAddress, e.UserAgent, e.Success)
	return err
}

func (s *Store) ListAuditLogsByDID(ctx context.Context, did string) ([]core.AuditLog, error) {
	const q = `
		SELECT id, action, did, COALESCE(gsy_dex_address,''), metadata, COALESCE(ip_address,''), COALESCE(user_agent,''), success, created_at
		FROM audit_logs WHERE did = $1 ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, did)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.AuditLog
	for rows.Next() {
		var e core.AuditLog
		var action string
		var meta []byte
		if err := rows.Scan(&e.ID, &action, &e.DID, &e.GSYDexAddress, &meta, &e.IPAddress, &e.UserAgent, &e.Success, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = core.AuditAction(action)
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &e.Metadata)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
