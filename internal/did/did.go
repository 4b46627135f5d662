// Package did maneja identificadores did:ethr y su registro on-chain.
package did

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Method es el único método DID soportado (ERC-1056 / ethr).
const Method = "ethr"

var ErrInvalidDID = errors.New("did: invalid identifier")

// Parse valida un identificador did:ethr:<address> y devuelve la dirección
// embebida.
func Parse(did string) (common.Address, error) {
	parts := strings.Split(did, ":")
	if len(parts) != 3 || parts[0] != "did" || parts[1] != Method {
		return common.Address{}, ErrInvalidDID
	}
	if !common.IsHexAddress(parts[2]) {
		return common.Address{}, ErrInvalidDID
	}
	return common.HexToAddress(parts[2]), nil
}

// Format construye el did:ethr para una dirección.
func Format(addr common.Address) string {
	return fmt.Sprintf("did:%s:%s", Method, addr.Hex())
}

// Equal compara dos identificadores did:ethr ignorando el case de la
// dirección (el checksum EIP-55 mezcla mayúsculas y minúsculas).
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}

// EmbeddedAddress extrae la dirección como string sin validar el checksum,
// para comparaciones case-insensitive contra direcciones recuperadas.
func EmbeddedAddress(did string) (string, error) {
	parts := strings.Split(did, ":")
	if len(parts) != 3 || parts[0] != "did" {
		return "", ErrInvalidDID
	}
	return parts[2], nil
}
