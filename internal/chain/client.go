package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Conn is a live connection to the remote node. Subscription units read
// through it; its lifecycle belongs to the Supervisor alone.
type Conn interface {
	// SubscribeLogs opens a log subscription filtered on one contract
	// address and one topic0 signature.
	SubscribeLogs(ctx context.Context, address common.Address, topic0 common.Hash) (ethereum.Subscription, <-chan types.Log, error)
	// CallContract performs a read-only eth_call.
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Client wraps go-ethereum RPC and implements Conn.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
}

// Dial connects to the RPC endpoint. The URL must support subscriptions
// (ws:// or wss://).
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// SubscribeLogs subscribes to logs for a single address and topic0. The
// returned channel is buffered so one slow consumer does not stall the
// transport read loop.
func (c *Client) SubscribeLogs(ctx context.Context, address common.Address, topic0 common.Hash) (ethereum.Subscription, <-chan types.Log, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{address},
		Topics:    [][]common.Hash{{topic0}},
	}

	logs := make(chan types.Log, 128)
	sub, err := c.ethClient.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, nil, err
	}
	return sub, logs, nil
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}
