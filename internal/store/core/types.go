package core

import (
	"encoding/json"
	"time"
)

// User es el registro de identidad de un participante, indexado por DID.
type User struct {
	DID                   string         `json:"did"`
	GSYDexAddress         string         `json:"gsyDexAddress,omitempty"`
	Metadata              map[string]any `json:"metadata,omitempty"`
	HasVerifiedCredential bool           `json:"hasVerifiedCredential"`
	Deactivated           bool           `json:"deactivated"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

// Challenge es un nonce de autenticación de un solo uso.
// Used es monotónico: false -> true, nunca vuelve atrás.
type Challenge struct {
	ID        string    `json:"id"`
	DID       string    `json:"did"`
	Text      string    `json:"challenge"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CredentialStatus es el estado almacenado de una credencial.
// La expiración NO es un estado: se deriva de ExpirationDate en lectura.
type CredentialStatus string

const (
	CredentialActive  CredentialStatus = "active"
	CredentialRevoked CredentialStatus = "revoked"
)

// Credential es el artefacto firmado que enlaza un DID con una dirección GSYDex.
// Document es el documento firmado completo (claims + proof) tal como se emitió;
// la verificación opera SOLO sobre este documento almacenado, nunca lo regenera.
type Credential struct {
	ID             string           `json:"id"`
	DID            string           `json:"did"`
	GSYDexAddress  string           `json:"gsyDexAddress"`
	Subject        json.RawMessage  `json:"credentialSubject"`
	Document       json.RawMessage  `json:"credential"`
	Status         CredentialStatus `json:"status"`
	ExpirationDate time.Time        `json:"expirationDate"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// AuditAction identifica la operación auditada.
type AuditAction string

const (
	AuditDIDCreated         AuditAction = "DID_CREATED"
	AuditDIDUpdated         AuditAction = "DID_UPDATED"
	AuditLoginAttempt       AuditAction = "LOGIN_ATTEMPT"
	AuditLoginSuccess       AuditAction = "LOGIN_SUCCESS"
	AuditLoginFailure       AuditAction = "LOGIN_FAILURE"
	AuditCredentialIssued   AuditAction = "CREDENTIAL_ISSUED"
	AuditCredentialVerified AuditAction = "CREDENTIAL_VERIFIED"
	AuditCredentialRevoked  AuditAction = "CREDENTIAL_REVOKED"
)

// AuditLog es un evento de auditoría persistido.
type AuditLog struct {
	ID            string         `json:"id"`
	Action        AuditAction    `json:"action"`
	DID           string         `json:"did"`
	GSYDexAddress string         `json:"gsyDexAddress,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	IPAddress     string         `json:"ipAddress,omitempty"`
	UserAgent     string         `json:"userAgent,omitempty"`
	Success       bool           `json:"success"`
	CreatedAt     time.Time      `json:"createdAt"`
}
