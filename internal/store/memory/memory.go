// Package memory implementa core.Repository en memoria.
//
// Backend de referencia para desarrollo y tests. Los challenges viven en un
// go-cache con TTL (evicción automática, igual que el índice TTL de un store
// real); el resto son maps protegidos por mutex. El consumo de challenges es
// atómico bajo el lock: a lo sumo un ganador por challenge.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/didjohn/internal/store/core"
)

type Store struct {
	mu          sync.Mutex
	users       map[string]*core.User       // key: DID
	credentials map[string]*core.Credential // key: credential ID
	audit       []core.AuditLog
	challenges  *gocache.Cache // key: challenge ID, value: *core.Challenge

	challengeTTL time.Duration
}

// New crea un Store vacío. challengeTTL manda la evicción de challenges;
// si es 0 se usan 10 minutos (el TTL del protocolo).
func New(challengeTTL time.Duration) *Store {
	if challengeTTL <= 0 {
		challengeTTL = 10 * time.Minute
	}
	return &Store{
		users:        make(map[string]*core.User),
		credentials:  make(map[string]*core.Credential),
		challenges:   gocache.New(challengeTTL, time.Minute),
		challengeTTL: challengeTTL,
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close()                         {}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *Store) UpsertUser(ctx context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if prev, ok := s.users[u.DID]; ok {
		cp := *u
		cp.CreatedAt = prev.CreatedAt
		cp.UpdatedAt = now
		s.users[u.DID] = &cp
		return nil
	}
	cp := *u
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.users[u.DID] = &cp
	return nil
}

func (s *Store) GetUser(ctx context.Context, did string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[did]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) DeleteUser(ctx context.Context, did string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[did]; !ok {
		return core.ErrNotFound
	}
	delete(s.users, did)
	return nil
}

func (s *Store) SetUserLink(ctx context.Context, did, gsyDexAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	u, ok := s.users[did]
	if !ok {
		u = &core.User{DID: did, CreatedAt: now}
		s.users[did] = u
	}
	u.GSYDexAddress = gsyDexAddress
	u.HasVerifiedCredential = true
	u.UpdatedAt = now
	return nil
}

func (s *Store) SetUserDeactivated(ctx context.Context, did string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[did]
	if !ok {
		return core.ErrNotFound
	}
	u.Deactivated = true
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ---------------------------------------------------------------------------
// Challenges
// ---------------------------------------------------------------------------

func (s *Store) CreateChallenge(ctx context.Context, c *core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.challenges.Get(c.ID); ok {
		return core.ErrConflict
	}
	cp := *c
	s.challenges.Set(c.ID, &cp, time.Until(c.ExpiresAt))
	return nil
}

func (s *Store) ConsumeChallenge(ctx context.Context, did, id string, now time.Time) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.challenges.Get(id)
	if !ok {
		return nil, core.ErrNotFound
	}
	c := v.(*core.Challenge)
	// Los cuatro casos de fallo colapsan en ErrNotFound a propósito.
	if c.DID != did || c.Used || now.After(c.ExpiresAt) {
		return nil, core.ErrNotFound
	}
	c.Used = true
	cp := *c
	return &cp, nil
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

func (s *Store) CreateCredential(ctx context.Context, c *core.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[c.ID]; ok {
		return core.ErrConflict
	}
	now := time.Now().UTC()
	cp := *c
	cp.Subject = append(json.RawMessage(nil), c.Subject...)
	cp.Document = append(json.RawMessage(nil), c.Document...)
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.credentials[c.ID] = &cp
	return nil
}

func (s *Store) GetCredential(ctx context.Context, id string) (*core.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) SetCredentialStatus(ctx context.Context, id string, status core.CredentialStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return core.ErrNotFound
	}
	// revoked es terminal
	if c.Status == core.CredentialRevoked && status != core.CredentialRevoked {
		return core.ErrConflict
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) ListCredentialsByDID(ctx context.Context, did string) ([]core.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Credential
	for _, c := range s.credentials {
		if c.DID == did {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

func (s *Store) InsertAuditLog(ctx context.Context, e *core.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.audit = append(s.audit, cp)
	return nil
}

func (s *Store) ListAuditLogsByDID(ctx context.Context, did string) ([]core.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.AuditLog
	for i := len(s.audit) - 1; i >= 0; i-- { // más reciente primero
		if s.audit[i].DID == did {
			out = append(out, s.audit[i])
		}
	}
	return out, nil
}
