package registry

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

const contractAddr = "0xdCa7EF03e98e0DC2B855bE647C39ABe984fcF21B"

var someIdentity = common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0")

// fakeCaller responde cualquier eth_call con un retorno fijo.
type fakeCaller struct {
	ret    []byte
	lastTo *common.Address
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.lastTo = msg.To
	return f.ret, nil
}

func TestIsRegistered(t *testing.T) {
	t.Parallel()

	// changed = 12345 -> registrado
	f := &fakeCaller{ret: common.LeftPadBytes(big.NewInt(12345).Bytes(), 32)}
	r, err := New(f, contractAddr)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := r.IsRegistered(context.Background(), someIdentity)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("changed != 0 debe reportar registrado")
	}
	if f.lastTo == nil || f.lastTo.Hex() != common.HexToAddress(contractAddr).Hex() {
		t.Fatal("call no dirigido al contrato del registry")
	}

	// changed = 0 -> no registrado
	f.ret = make([]byte, 32)
	ok, err = r.IsRegistered(context.Background(), someIdentity)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("changed == 0 debe reportar no registrado")
	}
}

func TestPrepareSetAttribute(t *testing.T) {
	t.Parallel()

	r, err := New(&fakeCaller{}, contractAddr)
	if err != nil {
		t.Fatal(err)
	}
	tx, err := r.PrepareSetAttribute(someIdentity, "did/pub/Ed25519/veriKey/hex", []byte{0x01, 0x02}, big.NewInt(31536000))
	if err != nil {
		t.Fatal(err)
	}
	if tx.To != common.HexToAddress(contractAddr).Hex() {
		t.Fatalf("to = %s", tx.To)
	}
	if tx.Value != "0" {
		t.Fatalf("value = %s", tx.Value)
	}
	if !strings.HasPrefix(tx.Data, "0x") {
		t.Fatalf("data sin 0x: %s", tx.Data)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(tx.Data, "0x"))
	if err != nil {
		t.Fatal(err)
	}
	// selector (4) + identity (32) + name (32) + offset bytes (32) + validity (32) + data dinámica
	if len(raw) < 4+32*4 {
		t.Fatalf("data demasiado corta: %d bytes", len(raw))
	}
}

func TestPrepareDeactivate(t *testing.T) {
	t.Parallel()

	r, err := New(&fakeCaller{}, contractAddr)
	if err != nil {
		t.Fatal(err)
	}
	tx, err := r.PrepareDeactivate(someIdentity)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := hex.DecodeString(strings.TrimPrefix(tx.Data, "0x"))
	if len(raw) != 4+32+32 {
		t.Fatalf("changeOwner data: %d bytes", len(raw))
	}
	// newOwner debe ser la zero address (desactivación permanente)
	newOwner := raw[len(raw)-32:]
	for _, b := range newOwner[12:] {
		if b != 0 {
			t.Fatal("newOwner no es la zero address")
		}
	}
}

func TestNew_InvalidContract(t *testing.T) {
	t.Parallel()

	if _, err := New(&fakeCaller{}, "not-an-address"); err == nil {
		t.Fatal("expected error")
	}
}
