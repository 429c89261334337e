package service

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"voting-client/models"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func activeCampaign(now time.Time) models.Campaign {
	return models.Campaign{
		Address:         common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Title:           "Board election",
		Description:     "Annual board election",
		StartTime:       now.Add(-10 * time.Minute),
		DurationMinutes: 60,
		Candidates: []models.Candidate{
			{Index: 0, Name: "Alice"},
			{Index: 1, Name: "Bob"},
		},
	}
}

type fakeSigner struct {
	err error
}

func (f *fakeSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &bind.TransactOpts{}, nil
}

type fakeCaster struct {
	calls   int
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeCaster) Vote(ctx context.Context, opts *bind.TransactOpts, candidateIndex int) (*types.Receipt, error) {
	f.calls++
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

type fakeDeployer struct {
	address common.Address
	err     error

	gotNames    []string
	gotDuration uint64
	gotTitle    string
	gotStart    uint64
	gotDisplay  string
}

func (f *fakeDeployer) CreateCampaign(ctx context.Context, opts *bind.TransactOpts, candidateNames []string,
	durationMinutes uint64, title, description string, startUnixSeconds uint64, startTimeDisplay string,
) (common.Address, error) {
	f.gotNames = candidateNames
	f.gotDuration = durationMinutes
	f.gotTitle = title
	f.gotStart = startUnixSeconds
	f.gotDisplay = startTimeDisplay
	if f.err != nil {
		return common.Address{}, f.err
	}
	return f.address, nil
}

type fakeRegistry struct {
	addresses []common.Address
	err       error
}

func (f *fakeRegistry) DeployedCampaigns(ctx context.Context) ([]common.Address, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.addresses, nil
}

// fakeReader serves a campaign fixture as the contract read surface.
type fakeReader struct {
	campaign models.Campaign
	isOwner  bool
	isVoted  bool
	failWith error
}

func (f *fakeReader) Address() common.Address { return f.campaign.Address }

func (f *fakeReader) Name(ctx context.Context) (string, error) {
	return f.campaign.Title, f.failWith
}

func (f *fakeReader) Description(ctx context.Context) (string, error) {
	return f.campaign.Description, f.failWith
}

func (f *fakeReader) StartTimeUnix(ctx context.Context) (uint64, error) {
	return uint64(f.campaign.StartTime.Unix()), f.failWith
}

func (f *fakeReader) DurationMinutes(ctx context.Context) (uint64, error) {
	return f.campaign.DurationMinutes, f.failWith
}

func (f *fakeReader) EndTimeUnix(ctx context.Context) (uint64, error) {
	return uint64(f.campaign.EndTime().Unix()), f.failWith
}

func (f *fakeReader) CandidatesCount(ctx context.Context) (uint64, error) {
	return uint64(len(f.campaign.Candidates)), f.failWith
}

func (f *fakeReader) Candidate(ctx context.Context, index uint64) (string, uint64, error) {
	if index >= uint64(len(f.campaign.Candidates)) {
		return "", 0, errors.New("candidate index out of range")
	}
	c := f.campaign.Candidates[index]
	return c.Name, c.Votes, f.failWith
}

func (f *fakeReader) VotersCount(ctx context.Context) (uint64, error) {
	return f.campaign.TotalVotes, f.failWith
}

func (f *fakeReader) IsOwner(ctx context.Context, addr common.Address) (bool, error) {
	return f.isOwner, f.failWith
}

func (f *fakeReader) IsVoted(ctx context.Context, addr common.Address) (bool, error) {
	return f.isVoted, f.failWith
}
