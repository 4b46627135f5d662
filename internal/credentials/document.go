// Package credentials emite, verifica y revoca Verifiable Credentials que
// vinculan un DID ethr con una dirección de cadena substrate (GSY DEX).
package credentials

import "time"

// Contextos y tipos W3C del documento emitido.
const (
	ContextCredentialsV1 = "https://www.w3.org/2018/credentials/v1"
	ContextGSYDexV1      = "https://energyweb.org/contexts/gsy-dex-v1.jsonld"

	TypeVerifiableCredential = "VerifiableCredential"
	TypeGSYDexAddress        = "GSYDexAddressCredential"

	ProofType    = "EcdsaSecp256k1Signature2019"
	ProofPurpose = "assertionMethod"

	ChainGSYDex = "gsy-dex"
)

// AccountLink es el claim central: la dirección substrate vinculada.
type AccountLink struct {
	GSYDexAddress string `json:"gsyDexAddress"`
	Chain         string `json:"chain"`
}

// Subject es el credentialSubject del documento.
type Subject struct {
	ID          string      `json:"id"`
	AccountLink AccountLink `json:"accountLink"`
}

// Proof es la prueba de integridad firmada por el issuer. JWS contiene la
// firma ECDSA del documento canónico sin proof.
type Proof struct {
	Type               string    `json:"type"`
	Created            time.Time `json:"created"`
	VerificationMethod string    `json:"verificationMethod"`
	ProofPurpose       string    `json:"proofPurpose"`
	JWS                string    `json:"jws"`
}

// Document es la credencial completa en formato W3C VC Data Model.
type Document struct {
	Context        []string  `json:"@context"`
	ID             string    `json:"id"`
	Type           []string  `json:"type"`
	Issuer         string    `json:"issuer"`
	IssuanceDate   time.Time `json:"issuanceDate"`
	ExpirationDate time.Time `json:"expirationDate"`
	Subject        Subject   `json:"credentialSubject"`
	Proof          *Proof    `json:"proof,omitempty"`
}

// Unsigned devuelve una copia del documento sin proof, que es la porción
// canónica que se firma y se verifica.
func (d Document) Unsigned() Document {
	d.Proof = nil
	return d
}
