package ethsig

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestSignRecover_RoundTrip(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := "Sign this message to authenticate with GSY EWF Identity Server: abc at 2026-01-01T00:00:00Z"

	sig, err := Sign(msg, key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	got, err := RecoverSigner(msg, sig)
	if err != nil {
		t.Fatalf("RecoverSigner: %v", err)
	}
	if got != AddressOf(key) {
		t.Fatalf("recovered %s, want %s", got.Hex(), AddressOf(key).Hex())
	}
}

func TestRecoverSigner_AcceptsUnprefixedHex(t *testing.T) {
	t.Parallel()

	key, _ := crypto.GenerateKey()
	sig, err := Sign("hello", key)
	if err != nil {
		t.Fatal(err)
	}
	got, err := RecoverSigner("hello", strings.TrimPrefix(sig, "0x"))
	if err != nil {
		t.Fatalf("RecoverSigner sin 0x: %v", err)
	}
	if got != AddressOf(key) {
		t.Fatalf("recovered %s, want %s", got.Hex(), AddressOf(key).Hex())
	}
}

func TestRecoverSigner_DifferentMessageDifferentSigner(t *testing.T) {
	t.Parallel()

	key, _ := crypto.GenerateKey()
	sig, err := Sign("message one", key)
	if err != nil {
		t.Fatal(err)
	}
	got, err := RecoverSigner("message two", sig)
	if err == nil && got == AddressOf(key) {
		t.Fatal("tampered message must not recover the original signer")
	}
}

func TestRecoverSigner_Malformed(t *testing.T) {
	t.Parallel()

	for _, sig := range []string{"", "0x", "zz", "0xdeadbeef", strings.Repeat("ab", 64)} {
		if _, err := RecoverSigner("msg", sig); err == nil {
			t.Fatalf("firma %q: expected error", sig)
		}
	}
}
