// Package redischallenge implementa core.ChallengeStore sobre Redis.
//
// Para despliegues multi-instancia: el TTL nativo de Redis hace la evicción y
// un script Lua hace el consumo condicional (check-and-set en una sola operación
// del lado del server, at-most-one-winner entre instancias).
package redischallenge

import (
	"context"
	"encoding/json"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/didjohn/internal/store/core"
)

// consume valida did y used en el server y marca used=true atómicamente.
// Devuelve el JSON previo del challenge o nil si no hay match.
var consumeScript = rdb.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then return false end
local c = cjson.decode(raw)
if c.did ~= ARGV[1] or c.used then return false end
c.used = true
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
  redis.call('SET', KEYS[1], cjson.encode(c), 'PX', ttl)
else
  redis.call('SET', KEYS[1], cjson.encode(c))
end
return raw
`)

type Store struct {
	c      *rdb.Client
	prefix string
}

func New(addr string, db int, prefix string) *Store {
	if prefix == "" {
		prefix = "didjohn:challenge:"
	}
	return &Store{c: rdb.NewClient(&rdb.Options{Addr: addr, DB: db}), prefix: prefix}
}

func (s *Store) key(id string) string { return s.prefix + id }

// Client expone el cliente subyacente para usos que comparten la conexión
// (rate limiting).
func (s *Store) Client() *rdb.Client { return s.c }

func (s *Store) Ping(ctx context.Context) error { return s.c.Ping(ctx).Err() }
func (s *Store) Close()                         { _ = s.c.Close() }

// challengeDoc es la representación serializada en Redis. No incluye tiempos
// absolutos de expiración: el TTL de la key es la fuente de verdad.
type challengeDoc struct {
	ID        string `json:"id"`
	DID       string `json:"did"`
	Text      string `json:"challenge"`
	Used      bool   `json:"used"`
	CreatedAt int64  `json:"created_at"` // unix
	ExpiresAt int64  `json:"expires_at"` // unix
}

func (s *Store) CreateChallenge(ctx context.Context, c *core.Challenge) error {
	doc := challengeDoc{
		ID:        c.ID,
		DID:       c.DID,
		Text:      c.Text,
		Used:      c.Used,
		CreatedAt: c.CreatedAt.Unix(),
		ExpiresAt: c.ExpiresAt.Unix(),
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return core.ErrInvalid
	}
	ok, err := s.c.SetNX(ctx, s.key(c.ID), raw, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrConflict
	}
	return nil
}

func (s *Store) ConsumeChallenge(ctx context.Context, did, id string, now time.Time) (*core.Challenge, error) {
	res, err := consumeScript.Run(ctx, s.c, []string{s.key(id)}, did).Result()
	if err == rdb.Nil {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	raw, ok := res.(string)
	if !ok {
		return nil, core.ErrNotFound
	}
	var doc challengeDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	expires := time.Unix(doc.ExpiresAt, 0)
	if now.After(expires) {
		// la key sobrevivió a su TTL nominal (carrera de evicción): rechazar
		return nil, core.ErrNotFound
	}
	return &core.Challenge{
		ID:        doc.ID,
		DID:       doc.DID,
		Text:      doc.Text,
		Used:      true,
		CreatedAt: time.Unix(doc.CreatedAt, 0),
		ExpiresAt: expires,
	}, nil
}
