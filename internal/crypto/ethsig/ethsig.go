// Package ethsig verifies and produces EIP-191 personal-message signatures.
//
// Stateless: recovery no consulta la cadena, el caller compara la dirección
// recuperada contra la esperada.
package ethsig

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrMalformedSignature = errors.New("ethsig: malformed signature")

// RecoverSigner recupera la dirección que firmó message con personal_sign.
// Acepta hex con o sin prefijo 0x y V en {0,1,27,28}.
func RecoverSigner(message, signature string) (common.Address, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return common.Address{}, ErrMalformedSignature
	}
	if len(raw) != crypto.SignatureLength {
		return common.Address{}, ErrMalformedSignature
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, raw)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return common.Address{}, ErrMalformedSignature
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, ErrMalformedSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Sign firma message con personal_sign y devuelve la firma 0x-hex con V en
// {27,28} (formato wallet, compatible con RecoverSigner).
func Sign(message string, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

// AddressOf devuelve la dirección de la clave.
func AddressOf(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}
