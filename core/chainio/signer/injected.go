package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Provider is an EIP-1193 style request function. result is decoded from the
// JSON response.
type Provider interface {
	Request(ctx context.Context, method string, params []interface{}, result interface{}) error
}

// RPCProvider adapts a JSON-RPC endpoint that holds keys (an external signer,
// a dev node) to Provider.
type RPCProvider struct {
	client *rpc.Client
}

func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{client: client}
}

// DialProvider connects an RPCProvider over HTTP, WebSocket or IPC.
func DialProvider(ctx context.Context, url string) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewRPCProvider(client), nil
}

func (p *RPCProvider) Request(ctx context.Context, method string, params []interface{}, result interface{}) error {
	return p.client.CallContext(ctx, result, method, params...)
}

func (p *RPCProvider) Close() {
	p.client.Close()
}

// InjectedSigner delegates address discovery and signing to a Provider.
type InjectedSigner struct {
	provider Provider
	address  common.Address
}

// NewInjectedSigner performs the eth_requestAccounts authorization round trip
// and binds the first account.
func NewInjectedSigner(ctx context.Context, provider Provider) (*InjectedSigner, error) {
	if provider == nil {
		return nil, errors.New("injected signer requires a provider")
	}

	var accounts []common.Address
	if err := provider.Request(ctx, "eth_requestAccounts", []interface{}{}, &accounts); err != nil {
		return nil, fmt.Errorf("eth_requestAccounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, errors.New("eth_requestAccounts: provider returned no accounts")
	}

	return &InjectedSigner{provider: provider, address: accounts[0]}, nil
}

func (s *InjectedSigner) Address() common.Address {
	return s.address
}

func (s *InjectedSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	var sig hexutil.Bytes
	params := []interface{}{hexutil.Encode(message), s.address.Hex()}
	if err := s.provider.Request(ctx, "personal_sign", params, &sig); err != nil {
		return nil, fmt.Errorf("personal_sign: %w", err)
	}
	return normalizeV(sig)
}
