package core

import (
	"context"
	"time"
)

// ChallengeStore persiste challenges de autenticación de un solo uso.
// Se separa de Repository para poder sustituir solo este backend
// (ej: redis con TTL) en despliegues multi-instancia.
type ChallengeStore interface {
	// CreateChallenge persiste un challenge nuevo con used=false.
	CreateChallenge(ctx context.Context, c *Challenge) error

	// ConsumeChallenge busca por (id, did, used=false, no expirado) y marca
	// used=true en una sola operación atómica. Con N consumidores concurrentes
	// sobre el mismo challenge, a lo sumo uno gana; el resto observa ErrNotFound.
	// "No existe", "ya usado", "de otro DID" y "expirado" son indistinguibles.
	ConsumeChallenge(ctx context.Context, did, id string, now time.Time) (*Challenge, error)
}

// Repository agrupa las colecciones compartidas (users, challenges, credentials,
// audit). Toda mutación es una operación atómica del store: el diseño evita
// read-modify-write en proceso porque corren múltiples instancias sin memoria
// compartida.
type Repository interface {
	ChallengeStore

	Ping(ctx context.Context) error
	Close()

	// Users
	UpsertUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, did string) (*User, error)
	DeleteUser(ctx context.Context, did string) error
	// SetUserLink fija la dirección enlazada y hasVerifiedCredential (upsert).
	SetUserLink(ctx context.Context, did, gsyDexAddress string) error
	SetUserDeactivated(ctx context.Context, did string) error

	// Credentials
	CreateCredential(ctx context.Context, c *Credential) error
	GetCredential(ctx context.Context, id string) (*Credential, error)
	// SetCredentialStatus aplica la transición de estado. active -> revoked es
	// one-way; el adapter no debe permitir revertirla.
	SetCredentialStatus(ctx context.Context, id string, status CredentialStatus) error
	ListCredentialsByDID(ctx context.Context, did string) ([]Credential, error)

	// Audit
	InsertAuditLog(ctx context.Context, e *AuditLog) error
	ListAuditLogsByDID(ctx context.Context, did string) ([]AuditLog, error)
}
