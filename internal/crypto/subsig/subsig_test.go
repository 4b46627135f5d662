package subsig

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/ChainSafe/go-schnorrkel"
)

const testNetwork = 42 // substrate genérico

func sr25519Fixture(t *testing.T, message string) (address, signature string) {
	t.Helper()

	priv, pub, err := schnorrkel.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := priv.Sign(schnorrkel.NewSigningContext(signingContext, []byte(message)))
	if err != nil {
		t.Fatal(err)
	}
	sigBytes := sig.Encode()
	pubBytes := pub.Encode()

	addr, err := EncodeSS58(pubBytes[:], testNetwork)
	if err != nil {
		t.Fatal(err)
	}
	return addr, hex.EncodeToString(sigBytes[:])
}

func TestVerify_Sr25519(t *testing.T) {
	t.Parallel()

	msg := WrapMessage("link my account")
	addr, sig := sr25519Fixture(t, msg)

	if !Verify("link my account", sig, addr) {
		t.Fatal("valid sr25519 signature rejected")
	}
	// con prefijo 0x también
	if !Verify("link my account", "0x"+sig, addr) {
		t.Fatal("0x-prefixed signature rejected")
	}
	// mensaje ya envuelto: no se envuelve dos veces
	if !Verify(msg, sig, addr) {
		t.Fatal("pre-wrapped message rejected")
	}
}

func TestVerify_Ed25519(t *testing.T) {
	t.Parallel()

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	msg := WrapMessage("link my account")
	sig := ed25519.Sign(priv, []byte(msg))

	addr, err := EncodeSS58(pub, testNetwork)
	if err != nil {
		t.Fatal(err)
	}
	if !Verify("link my account", hex.EncodeToString(sig), addr) {
		t.Fatal("valid ed25519 signature rejected")
	}
}

func TestVerify_WrongMessage(t *testing.T) {
	t.Parallel()

	addr, sig := sr25519Fixture(t, WrapMessage("the real message"))
	if Verify("another message", sig, addr) {
		t.Fatal("signature over a different message accepted")
	}
}

func TestVerify_MalformedInputsReturnFalse(t *testing.T) {
	t.Parallel()

	addr, sig := sr25519Fixture(t, WrapMessage("m"))

	cases := []struct {
		name                    string
		message, signature, adr string
	}{
		{"empty signature", "m", "", addr},
		{"non-hex signature", "m", "0xzz", addr},
		{"short signature", "m", "deadbeef", addr},
		{"empty address", "m", sig, ""},
		{"garbage address", "m", sig, "not-an-address"},
		{"checksum mismatch", "m", sig, addr[:len(addr)-1] + "z"},
	}
	for _, tc := range cases {
		if Verify(tc.message, tc.signature, tc.adr) {
			t.Fatalf("%s: expected false", tc.name)
		}
	}
}

func TestDecodeSS58_RoundTrip(t *testing.T) {
	t.Parallel()

	_, pub, err := schnorrkel.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	raw := pub.Encode()
	addr, err := EncodeSS58(raw[:], testNetwork)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSS58(addr)
	if err != nil {
		t.Fatalf("DecodeSS58: %v", err)
	}
	if hex.EncodeToString(got) != hex.EncodeToString(raw[:]) {
		t.Fatal("round trip pubkey mismatch")
	}
}
