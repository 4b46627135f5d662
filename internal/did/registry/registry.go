// Package registry es el cliente de solo-lectura-y-preparación del
// EthereumDIDRegistry (ERC-1056).
//
// El servicio nunca firma ni envía transacciones de registro: las escrituras
// se devuelven como {to, data, value} para que un wallet del cliente las firme
// y difunda. Es un límite de confianza deliberado — la única clave server-side
// es la del emisor de credenciales.
package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Caller es el subconjunto de ethclient.Client que usa el registry.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// PreparedTransaction es una transacción sin firmar lista para un wallet
// externo.
type PreparedTransaction struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

type Registry struct {
	caller  Caller
	address common.Address
	abi     abi.ABI
}

func New(caller Caller, contractAddress string) (*Registry, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("registry: invalid contract address %q", contractAddress)
	}
	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("registry: parse abi: %w", err)
	}
	return &Registry{caller: caller, address: common.HexToAddress(contractAddress), abi: parsed}, nil
}

func (r *Registry) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := r.abi.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return r.abi.Unpack(method, out)
}

// Changed devuelve el bloque del último cambio de la identidad (0 = nunca
// tocada). ERC-1056 lo usa como cabeza de la linked list de eventos; acá sirve
// de proxy de registro.
func (r *Registry) Changed(ctx context.Context, identity common.Address) (*big.Int, error) {
	out, err := r.call(ctx, "changed", identity)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// IdentityOwner devuelve el owner actual de la identidad. En ERC-1056 toda
// dirección es su propio owner hasta un changeOwner; owner == zero address
// significa desactivada.
func (r *Registry) IdentityOwner(ctx context.Context, identity common.Address) (common.Address, error) {
	out, err := r.call(ctx, "identityOwner", identity)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// IsRegistered responde si la identidad tiene actividad on-chain
// (changed != 0).
func (r *Registry) IsRegistered(ctx context.Context, identity common.Address) (bool, error) {
	changed, err := r.Changed(ctx, identity)
	if err != nil {
		return false, err
	}
	return changed.Sign() != 0, nil
}

// PrepareSetAttribute arma la transacción sin firmar que fija un atributo
// (ej: clave de verificación) sobre la identidad.
func (r *Registry) PrepareSetAttribute(identity common.Address, name string, value []byte, validity *big.Int) (*PreparedTransaction, error) {
	data, err := r.abi.Pack("setAttribute", identity, attributeName(name), value, validity)
	if err != nil {
		return nil, err
	}
	return r.prepared(data), nil
}

// PrepareDeactivate arma la transacción sin firmar que cambia el owner a la
// zero address, desactivando la identidad de forma permanente.
func (r *Registry) PrepareDeactivate(identity common.Address) (*PreparedTransaction, error) {
	data, err := r.abi.Pack("changeOwner", identity, common.Address{})
	if err != nil {
		return nil, err
	}
	return r.prepared(data), nil
}

func (r *Registry) prepared(data []byte) *PreparedTransaction {
	return &PreparedTransaction{
		To:    r.address.Hex(),
		Data:  hexutil.Encode(data),
		Value: "0",
	}
}

// attributeName codifica el nombre de atributo ERC-1056 como bytes32
// (truncado/padded derecha).
func attributeName(name string) [32]byte {
	var out [32]byte
	copy(out[:], name)
	return out
}
