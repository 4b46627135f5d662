// Package subsig verifies signatures from substrate-style accounts (the GSYDex
// side of a credential link).
//
// Verify nunca lanza: input malformado es un rechazo normal (false), no una
// condición excepcional, porque la emisión de credenciales trata el false como
// un path auditado, no como un crash.
package subsig

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"

	"github.com/ChainSafe/go-schnorrkel"
)

// signingContext es el contexto sr25519 que usan los wallets substrate.
var signingContext = []byte("substrate")

// WrapMessage envuelve el mensaje en los delimitadores estándar de firma
// (<Bytes>...</Bytes>) que aplican los wallets tipo polkadot-js, salvo que ya
// venga envuelto.
func WrapMessage(message string) string {
	if strings.HasPrefix(message, "<Bytes>") && strings.HasSuffix(message, "</Bytes>") {
		return message
	}
	return "<Bytes>" + message + "</Bytes>"
}

// Verify chequea signature (hex, con o sin 0x) sobre message contra la public
// key decodificada de address (SS58). Prueba sr25519 y ed25519, como hace la
// verificación multi-esquema de los wallets. El mensaje se envuelve en
// <Bytes>...</Bytes> si no lo está.
func Verify(message, signature, address string) bool {
	pub, err := DecodeSS58(address)
	if err != nil {
		return false
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return false
	}

	// Firmas "multi" llevan un byte de esquema delante: 0x00 ed25519, 0x01 sr25519.
	scheme := byte(0xff) // 0xff = probar ambos
	if len(raw) == 65 {
		scheme = raw[0]
		raw = raw[1:]
	}
	if len(raw) != 64 {
		return false
	}

	msg := []byte(WrapMessage(message))

	if scheme == 0x01 || scheme == 0xff {
		if verifySr25519(msg, raw, pub) {
			return true
		}
	}
	if scheme == 0x00 || scheme == 0xff {
		if ed25519.Verify(ed25519.PublicKey(pub), msg, raw) {
			return true
		}
	}
	return false
}

func verifySr25519(msg, sig, pub []byte) bool {
	var pubBytes [32]byte
	copy(pubBytes[:], pub)
	pk := new(schnorrkel.PublicKey)
	if err := pk.Decode(pubBytes); err != nil {
		return false
	}

	var sigBytes [64]byte
	copy(sigBytes[:], sig)
	s := new(schnorrkel.Signature)
	if err := s.Decode(sigBytes); err != nil {
		return false
	}

	ok, err := pk.Verify(s, schnorrkel.NewSigningContext(signingContext, msg))
	return err == nil && ok
}
