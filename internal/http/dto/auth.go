// Package dto define los request/response del API HTTP.
package dto

import "time"

// ChallengeRequest body de POST /v1/auth/challenge.
type ChallengeRequest struct {
	DID string `json:"did"`
}

// ChallengeResponse respuesta con el texto firmable.
type ChallengeResponse struct {
	ID        string    `json:"id"`
	Challenge string    `json:"challenge"`
	Timestamp time.Time `json:"timestamp"`
}

// VerifyRequest body de POST /v1/auth/verify.
type VerifyRequest struct {
	DID         string `json:"did"`
	ChallengeID string `json:"challengeId"`
	Signature   string `json:"signature"`
}

// VerifyResponse respuesta con el bearer token.
type VerifyResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	DID         string `json:"did"`
}

// UserResponse es el registro de identidad expuesto por verify-token.
type UserResponse struct {
	DID                   string    `json:"did"`
	GSYDexAddress         string    `json:"gsyDexAddress,omitempty"`
	HasVerifiedCredential bool      `json:"hasVerifiedCredential"`
	Deactivated           bool      `json:"deactivated,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
}
