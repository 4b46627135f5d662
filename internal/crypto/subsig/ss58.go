package subsig

import (
	"bytes"
	"errors"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

var ErrInvalidAddress = errors.New("subsig: invalid ss58 address")

const ss58Prefix = "SS58PRE"

// DecodeSS58 decodifica una dirección SS58 y devuelve la public key cruda
// (32 bytes). Soporta network prefix de 1 y 2 bytes y valida el checksum
// blake2b-512.
func DecodeSS58(address string) ([]byte, error) {
	data, err := base58.Decode(address)
	if err != nil {
		return nil, ErrInvalidAddress
	}
	if len(data) < 35 {
		return nil, ErrInvalidAddress
	}

	prefixLen := 1
	if data[0] >= 64 {
		prefixLen = 2
	}
	if len(data) != prefixLen+32+2 {
		return nil, ErrInvalidAddress
	}

	body := data[:len(data)-2]
	checksum := data[len(data)-2:]

	h, err := blake2b.New512(nil)
	if err != nil {
		return nil, err
	}
	h.Write([]byte(ss58Prefix))
	h.Write(body)
	if !bytes.Equal(h.Sum(nil)[:2], checksum) {
		return nil, ErrInvalidAddress
	}
	return data[prefixLen : prefixLen+32], nil
}

// EncodeSS58 codifica una public key de 32 bytes con el network prefix dado
// (solo prefijos de 1 byte, suficiente para GSYDex y substrate genérico).
func EncodeSS58(pubkey []byte, network byte) (string, error) {
	if len(pubkey) != 32 || network >= 64 {
		return "", ErrInvalidAddress
	}
	body := append([]byte{network}, pubkey...)

	h, err := blake2b.New512(nil)
	if err != nil {
		return "", err
	}
	h.Write([]byte(ss58Prefix))
	h.Write(body)
	sum := h.Sum(nil)

	return base58.Encode(append(body, sum[:2]...)), nil
}
