package dto

import "time"

// CreateDIDRequest body de POST /v1/did.
type CreateDIDRequest struct {
	DID          string `json:"did"`
	PublicKeyHex string `json:"publicKey"`
}

// PreparedTransactionResponse es una transacción sin firmar que el wallet del
// cliente debe firmar y difundir.
type PreparedTransactionResponse struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

// CreateDIDResponse respuesta de POST /v1/did.
type CreateDIDResponse struct {
	DID         string                      `json:"did"`
	Transaction PreparedTransactionResponse `json:"transaction"`
}

// UpdateDIDRequest body de POST /v1/did/{did}/update.
type UpdateDIDRequest struct {
	PublicKeyHex string `json:"publicKey"`
}

// ExistsResponse respuesta de GET /v1/did/{did}/exists.
type ExistsResponse struct {
	DID    string `json:"did"`
	Exists bool   `json:"exists"`
}

// AuditLogEntry es un evento de auditoría en el listado por DID.
type AuditLogEntry struct {
	ID            string         `json:"id"`
	Action        string         `json:"action"`
	DID           string         `json:"did"`
	GSYDexAddress string         `json:"gsyDexAddress,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Success       bool           `json:"success"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// AuditLogListResponse respuesta de GET /v1/did/{did}/audit.
type AuditLogListResponse struct {
	Logs  []AuditLogEntry `json:"logs"`
	Count int             `json:"count"`
}
