package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// Provider JSON-RPC провайдер кошелька (eth_accounts, eth_requestAccounts,
// eth_chainId, wallet_addEthereumChain, eth_call, eth_sendTransaction ...).
// result должен быть указателем либо nil, если ответ не нужен.
type Provider interface {
	Request(ctx context.Context, result any, method string, params ...any) error
}

// RPCProvider реализует Provider поверх клиента go-ethereum.
type RPCProvider struct {
	client *rpc.Client
}

var _ Provider = (*RPCProvider)(nil)

// Dial подключается к кошельку/узлу по HTTP, WebSocket или IPC.
func Dial(ctx context.Context, url string) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("подключение к провайдеру кошелька: %w", err)
	}
	return NewRPCProvider(client), nil
}

func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{client: client}
}

func (p *RPCProvider) Request(ctx context.Context, result any, method string, params ...any) error {
	return p.client.CallContext(ctx, result, method, params...)
}

func (p *RPCProvider) Close() {
	p.client.Close()
}
