package dto

import (
	"encoding/json"
	"time"
)

// IssueCredentialRequest body de POST /v1/credentials/issue. El cliente firma
// Challenge con ambas claves: la del DID (ECDSA) y la de la dirección
// substrate (sr25519/ed25519 sobre el texto envuelto en <Bytes>).
type IssueCredentialRequest struct {
	DID                string `json:"did"`
	GSYDexAddress      string `json:"gsyDexAddress"`
	Challenge          string `json:"challenge"`
	DIDSignature       string `json:"didSignature"`
	SubstrateSignature string `json:"substrateSignature"`
}

// VerifyCredentialRequest body de POST /v1/credentials/verify: el documento
// completo, tal como fue emitido.
type VerifyCredentialRequest struct {
	Credential json.RawMessage `json:"credential"`
}

// VerifyCredentialResponse veredicto estructurado, con el sujeto y la
// dirección vinculada de la credencial evaluada.
type VerifyCredentialResponse struct {
	Valid         bool   `json:"valid"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	DID           string `json:"did,omitempty"`
	LinkedAddress string `json:"linkedAddress,omitempty"`
}

// CredentialSummary es una credencial en los listados.
type CredentialSummary struct {
	ID             string          `json:"id"`
	DID            string          `json:"did"`
	GSYDexAddress  string          `json:"gsyDexAddress"`
	Status         string          `json:"status"`
	ExpirationDate time.Time       `json:"expirationDate"`
	CreatedAt      time.Time       `json:"createdAt"`
	Document       json.RawMessage `json:"document"`
}

// CredentialListResponse respuesta de los listados por DID.
type CredentialListResponse struct {
	Credentials []CredentialSummary `json:"credentials"`
	Count       int                 `json:"count"`
}
