package service

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"voting-client/chain"
)

func validInput(now time.Time) CreationInput {
	return CreationInput{
		Title:          "Budget vote",
		Description:    "Approve the yearly budget",
		StartDate:      now.Add(time.Hour),
		EndDate:        now.Add(3 * time.Hour),
		CandidateNames: []string{"Yes", "No"},
	}
}

func newTestCreation(deployer *fakeDeployer, now time.Time) *CreationService {
	clock := func() time.Time { return now }
	return NewCreationService(deployer, &fakeSigner{}, testLogger(), nil, clock)
}

func TestCreationValidate(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	svc := newTestCreation(&fakeDeployer{}, now)

	assert.NoError(svc.Validate(validInput(now)))

	input := validInput(now)
	input.Title = "  "
	assert.ErrorIs(svc.Validate(input), ErrEmptyTitle)

	input = validInput(now)
	input.Description = ""
	assert.ErrorIs(svc.Validate(input), ErrEmptyDescription)

	input = validInput(now)
	input.StartDate = time.Time{}
	assert.ErrorIs(svc.Validate(input), ErrMissingStartDate)

	input = validInput(now)
	input.StartDate = now.Add(-time.Minute)
	assert.ErrorIs(svc.Validate(input), ErrStartInPast)

	input = validInput(now)
	input.EndDate = time.Time{}
	assert.ErrorIs(svc.Validate(input), ErrMissingEndDate)

	input = validInput(now)
	input.EndDate = input.StartDate.Add(-time.Minute)
	assert.ErrorIs(svc.Validate(input), ErrEndBeforeStart)

	input = validInput(now)
	input.EndDate = input.StartDate
	assert.ErrorIs(svc.Validate(input), ErrEndBeforeStart)

	input = validInput(now)
	input.CandidateNames = []string{"Yes", " "}
	assert.ErrorIs(svc.Validate(input), ErrEmptyCandidateName)

	input = validInput(now)
	input.CandidateNames = []string{"Yes"}
	assert.ErrorIs(svc.Validate(input), ErrTooFewCandidates)
}

func TestCreationValidateOrder(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	svc := newTestCreation(&fakeDeployer{}, now)

	// Multiple violations report the first rule in order.
	input := validInput(now)
	input.Title = ""
	input.CandidateNames = nil
	assert.ErrorIs(svc.Validate(input), ErrEmptyTitle)
}

func TestCreationDurationMinutes(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	input := validInput(now)
	input.EndDate = input.StartDate.Add(90*time.Minute + 30*time.Second)

	// Partial minutes are floored.
	assert.Equal(uint64(90), input.DurationMinutes())
}

func TestCreationCreate(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	deployed := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	deployer := &fakeDeployer{address: deployed}
	svc := newTestCreation(deployer, now)

	input := validInput(now)
	address, err := svc.Create(context.Background(), input)
	assert.NoError(err)
	assert.Equal(deployed, address)
	assert.Equal([]string{"Yes", "No"}, deployer.gotNames)
	assert.Equal(uint64(120), deployer.gotDuration)
	assert.Equal(uint64(input.StartDate.Unix()), deployer.gotStart)
	assert.NotEmpty(deployer.gotDisplay)
}

func TestCreationCreateInvalidInput(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	deployer := &fakeDeployer{}
	svc := newTestCreation(deployer, now)

	input := validInput(now)
	input.Title = ""
	_, err := svc.Create(context.Background(), input)
	assert.ErrorIs(err, ErrEmptyTitle)
	assert.Empty(deployer.gotNames)
}

func TestCreationCreateMissingEvent(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	deployer := &fakeDeployer{err: chain.ErrMissingCreationEvent}
	svc := newTestCreation(deployer, now)

	address, err := svc.Create(context.Background(), validInput(now))
	assert.ErrorIs(err, chain.ErrMissingCreationEvent)
	assert.Equal(common.Address{}, address)
}
