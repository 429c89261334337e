package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"voting-client/models"
)

// ErrNoSubscription is returned when a log subscription is requested but no
// websocket endpoint was configured.
var ErrNoSubscription = errors.New("no websocket endpoint configured for event subscriptions")

// Campaign is the typed client of one deployed campaign contract. Reads go
// through the RPC connection, the vote write is a signed transaction, and
// VoteCast notifications arrive over the websocket connection.
type Campaign struct {
	address common.Address
	bound   *bind.BoundContract
	watcher *bind.BoundContract
	client  *Client
}

func newCampaign(address common.Address, contractABI abi.ABI, client *Client) *Campaign {
	c := &Campaign{
		address: address,
		bound:   bind.NewBoundContract(address, contractABI, client.rpc, client.rpc, client.rpc),
		client:  client,
	}
	if client.ws != nil {
		c.watcher = bind.NewBoundContract(address, contractABI, client.ws, client.ws, client.ws)
	}
	return c
}

// Address returns the contract address this client is bound to.
func (c *Campaign) Address() common.Address {
	return c.address
}

func (c *Campaign) callString(ctx context.Context, method string) (string, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method); err != nil {
		return "", fmt.Errorf("%s call failed: %w", method, err)
	}
	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%s returned unexpected type %T", method, out[0])
	}
	return s, nil
}

func (c *Campaign) callUint64(ctx context.Context, method string) (uint64, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method); err != nil {
		return 0, fmt.Errorf("%s call failed: %w", method, err)
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%s returned unexpected type %T", method, out[0])
	}
	return n.Uint64(), nil
}

func (c *Campaign) callBool(ctx context.Context, method string, addr common.Address) (bool, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, addr); err != nil {
		return false, fmt.Errorf("%s call failed: %w", method, err)
	}
	b, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s returned unexpected type %T", method, out[0])
	}
	return b, nil
}

// Name returns the campaign title.
func (c *Campaign) Name(ctx context.Context) (string, error) {
	return c.callString(ctx, "getCampaignName")
}

// Description returns the campaign description.
func (c *Campaign) Description(ctx context.Context) (string, error) {
	return c.callString(ctx, "getCampaignDescription")
}

// StartTimeUnix returns the campaign start as unix seconds.
func (c *Campaign) StartTimeUnix(ctx context.Context) (uint64, error) {
	return c.callUint64(ctx, "getStartTime")
}

// DurationMinutes returns the campaign duration in minutes.
func (c *Campaign) DurationMinutes(ctx context.Context) (uint64, error) {
	return c.callUint64(ctx, "getCampaignDuration")
}

// EndTimeUnix returns the campaign end as unix seconds.
func (c *Campaign) EndTimeUnix(ctx context.Context) (uint64, error) {
	return c.callUint64(ctx, "getEndTime")
}

// CandidatesCount returns the number of candidates.
func (c *Campaign) CandidatesCount(ctx context.Context) (uint64, error) {
	return c.callUint64(ctx, "getCandidatesCount")
}

// Candidate returns one candidate's name and current vote count by index.
func (c *Campaign) Candidate(ctx context.Context, index uint64) (string, uint64, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "getCandidate", new(big.Int).SetUint64(index)); err != nil {
		return "", 0, fmt.Errorf("getCandidate(%d) call failed: %w", index, err)
	}
	name, ok := out[0].(string)
	if !ok {
		return "", 0, fmt.Errorf("getCandidate returned unexpected name type %T", out[0])
	}
	votes, ok := out[1].(*big.Int)
	if !ok {
		return "", 0, fmt.Errorf("getCandidate returned unexpected count type %T", out[1])
	}
	return name, votes.Uint64(), nil
}

// VotersCount returns the total number of votes cast so far.
func (c *Campaign) VotersCount(ctx context.Context) (uint64, error) {
	return c.callUint64(ctx, "getVotersCount")
}

// IsOwner reports whether the given address owns this campaign.
func (c *Campaign) IsOwner(ctx context.Context, addr common.Address) (bool, error) {
	return c.callBool(ctx, "isOwner", addr)
}

// IsVoted reports whether the given address has already voted here.
func (c *Campaign) IsVoted(ctx context.Context, addr common.Address) (bool, error) {
	return c.callBool(ctx, "isVoted", addr)
}

// Vote submits the on-chain vote for the candidate at the given index and
// waits for the transaction to be mined. A reverted transaction is reported
// as an error so the caller can return to a retryable state.
func (c *Campaign) Vote(ctx context.Context, opts *bind.TransactOpts, candidateIndex int) (*types.Receipt, error) {
	tx, err := c.bound.Transact(opts, "vote", big.NewInt(int64(candidateIndex)))
	if err != nil {
		return nil, fmt.Errorf("vote transaction failed: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.client.rpc, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for vote transaction %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("vote transaction %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}

// SupportsWatch reports whether log subscriptions are available, which
// requires a websocket endpoint.
func (c *Campaign) SupportsWatch() bool {
	return c.watcher != nil
}

type voteCastEvent struct {
	CandidateIndex *big.Int
	NewVoteCount   *big.Int
}

// WatchVoteCast opens a standing subscription to this campaign's VoteCast
// logs and delivers them as validated models.VoteCast values in arrival
// order. Malformed payloads are dropped at the boundary. The caller must
// call Unsubscribe on the returned subscription when done.
func (c *Campaign) WatchVoteCast(ctx context.Context) (<-chan models.VoteCast, event.Subscription, error) {
	if c.watcher == nil {
		return nil, nil, ErrNoSubscription
	}

	logs, sub, err := c.watcher.WatchLogs(&bind.WatchOpts{Context: ctx}, "VoteCast")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe to VoteCast logs: %w", err)
	}

	out := make(chan models.VoteCast)
	go func() {
		defer close(out)
		for {
			select {
			case lg, ok := <-logs:
				if !ok {
					return
				}
				var ev voteCastEvent
				if err := c.watcher.UnpackLog(&ev, "VoteCast", lg); err != nil {
					c.client.logger.Warn().Err(err).
						Str("campaign", c.address.Hex()).
						Msg("Dropping undecodable VoteCast log")
					continue
				}
				cast, err := models.ParseVoteCast(ev.CandidateIndex, ev.NewVoteCount)
				if err != nil {
					c.client.logger.Warn().Err(err).
						Str("campaign", c.address.Hex()).
						Msg("Dropping malformed VoteCast payload")
					continue
				}
				select {
				case out <- cast:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, sub, nil
}
