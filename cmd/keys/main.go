// Command keys genera material criptográfico para el servicio: la clave
// secp256k1 del emisor de credenciales y secretos HS256 para JWT.
//
//	keys -issuer      imprime clave privada hex, dirección y DID del emisor
//	keys -jwt-secret  imprime un secreto aleatorio para JWT_SECRET
package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/dropDatabas3/didjohn/internal/did"
)

func main() {
	var (
		genIssuer = flag.Bool("issuer", false, "genera una clave de emisor secp256k1")
		genSecret = flag.Bool("jwt-secret", false, "genera un secreto HS256 para JWT_SECRET")
		secretLen = flag.Int("len", 48, "bytes de entropía para -jwt-secret (mínimo 32)")
	)
	flag.Parse()

	switch {
	case *genIssuer:
		key, err := ethcrypto.GenerateKey()
		if err != nil {
			log.Fatalf("generate key: %v", err)
		}
		addr := ethcrypto.PubkeyToAddress(key.PublicKey)
		fmt.Printf("ISSUER_PRIVATE_KEY=%s\n", hex.EncodeToString(ethcrypto.FromECDSA(key)))
		fmt.Printf("address=%s\n", addr.Hex())
		fmt.Printf("did=%s\n", did.Format(addr))

	case *genSecret:
		n := *secretLen
		if n < 32 {
			n = 32
		}
		b := make([]byte, n)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("rand: %v", err)
		}
		fmt.Printf("JWT_SECRET=%s\n", base64.RawURLEncoding.EncodeToString(b))

	default:
		flag.Usage()
		os.Exit(2)
	}
}
