package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// Client holds the two node connections the voting client needs: an RPC
// endpoint for calls and transactions, and a websocket endpoint for the
// vote-cast log subscription.
type Client struct {
	rpc     *ethclient.Client
	ws      *ethclient.Client
	chainID *big.Int
	logger  *zerolog.Logger
}

// Dial connects both endpoints and resolves the chain ID. The websocket URL
// may be empty, in which case subscriptions are unavailable and opening a
// tally sync fails.
func Dial(ctx context.Context, rpcURL, wsURL string, logger *zerolog.Logger) (*Client, error) {
	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc endpoint %s: %w", rpcURL, err)
	}

	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}

	var ws *ethclient.Client
	if wsURL != "" {
		ws, err = ethclient.DialContext(ctx, wsURL)
		if err != nil {
			rpc.Close()
			return nil, fmt.Errorf("failed to dial ws endpoint %s: %w", wsURL, err)
		}
	}

	return &Client{
		rpc:     rpc,
		ws:      ws,
		chainID: chainID,
		logger:  logger,
	}, nil
}

// ChainID returns the connected network's chain ID.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Registry binds the campaign factory at the given address.
func (c *Client) Registry(address common.Address) (*Registry, error) {
	factory, _, err := parsedABIs()
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}
	return newRegistry(address, factory, c), nil
}

// Campaign binds one deployed campaign contract.
func (c *Client) Campaign(address common.Address) (*Campaign, error) {
	_, campaign, err := parsedABIs()
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}
	return newCampaign(address, campaign, c), nil
}

// Close tears down both node connections.
func (c *Client) Close() {
	c.rpc.Close()
	if c.ws != nil {
		c.ws.Close()
	}
}
