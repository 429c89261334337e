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
)

// ErrMissingCreationEvent signals that a createCampaign transaction was
// mined without the expected CampaignCreated log. The write committed, so
// callers downgrade this to a warning rather than a failure.
var ErrMissingCreationEvent = errors.New("campaign created but no creation event found in receipt")

// Registry is the typed client of the campaign factory contract: it
// enumerates deployed campaigns and deploys new ones.
type Registry struct {
	address common.Address
	bound   *bind.BoundContract
	client  *Client
}

func newRegistry(address common.Address, contractABI abi.ABI, client *Client) *Registry {
	return &Registry{
		address: address,
		bound:   bind.NewBoundContract(address, contractABI, client.rpc, client.rpc, client.rpc),
		client:  client,
	}
}

// DeployedCampaigns returns the addresses of every campaign the factory has
// deployed, in creation order.
func (r *Registry) DeployedCampaigns(ctx context.Context) ([]common.Address, error) {
	var out []interface{}
	if err := r.bound.Call(&bind.CallOpts{Context: ctx}, &out, "getDeployedCampaigns"); err != nil {
		return nil, fmt.Errorf("getDeployedCampaigns call failed: %w", err)
	}
	addresses, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("getDeployedCampaigns returned unexpected type %T", out[0])
	}
	return addresses, nil
}

type campaignCreatedEvent struct {
	CampaignAddress common.Address
}

// CreateCampaign submits the factory deploy transaction, waits for it to be
// mined and extracts the new campaign address from the CampaignCreated log.
// When the log is absent the address is zero and the error is
// ErrMissingCreationEvent: the campaign may well exist on chain.
func (r *Registry) CreateCampaign(ctx context.Context, opts *bind.TransactOpts, candidateNames []string,
	durationMinutes uint64, title, description string, startUnixSeconds uint64, startTimeDisplay string,
) (common.Address, error) {
	tx, err := r.bound.Transact(opts, "createCampaign",
		candidateNames,
		new(big.Int).SetUint64(durationMinutes),
		title,
		description,
		new(big.Int).SetUint64(startUnixSeconds),
		startTimeDisplay,
	)
	if err != nil {
		return common.Address{}, fmt.Errorf("createCampaign transaction failed: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, r.client.rpc, tx)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed waiting for createCampaign transaction %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Address{}, fmt.Errorf("createCampaign transaction %s reverted", tx.Hash().Hex())
	}

	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != r.address {
			continue
		}
		var ev campaignCreatedEvent
		if err := r.bound.UnpackLog(&ev, "CampaignCreated", *lg); err != nil {
			continue
		}
		return ev.CampaignAddress, nil
	}

	return common.Address{}, ErrMissingCreationEvent
}
