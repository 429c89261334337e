package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"voting-client/chain"
)

// Creation-form validation errors, one per rule, checked in order with the
// first failure winning.
var (
	ErrEmptyTitle         = errors.New("campaign title must not be empty")
	ErrEmptyDescription   = errors.New("campaign description must not be empty")
	ErrMissingStartDate   = errors.New("start date is required")
	ErrStartInPast        = errors.New("start date must not be in the past")
	ErrMissingEndDate     = errors.New("end date is required")
	ErrEndBeforeStart     = errors.New("end date must be after the start date")
	ErrEmptyCandidateName = errors.New("candidate names must not be empty")
	ErrTooFewCandidates   = errors.New("a campaign needs at least two candidates")
)

// startTimeDisplayLayout renders the start instant for external display
// only; it is never used in an on-chain comparison.
const startTimeDisplayLayout = "Jan 2, 2006 3:04 PM"

// CreationInput is the campaign creation form.
type CreationInput struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	CandidateNames []string  `json:"candidate_names"`
}

// CampaignDeployer submits the factory deploy call. chain.Registry
// implements it.
type CampaignDeployer interface {
	CreateCampaign(ctx context.Context, opts *bind.TransactOpts, candidateNames []string,
		durationMinutes uint64, title, description string, startUnixSeconds uint64, startTimeDisplay string,
	) (common.Address, error)
}

// CreationService validates creation-form input and deploys new campaigns
// through the factory.
type CreationService struct {
	deployer CampaignDeployer
	signer   TransactSigner
	logger   *zerolog.Logger
	metrics  *Metrics
	now      func() time.Time
}

// NewCreationService builds the writer. now may be nil and defaults to
// time.Now.
func NewCreationService(deployer CampaignDeployer, signer TransactSigner, logger *zerolog.Logger, metrics *Metrics, now func() time.Time) *CreationService {
	if now == nil {
		now = time.Now
	}
	return &CreationService{
		deployer: deployer,
		signer:   signer,
		logger:   logger,
		metrics:  metrics,
		now:      now,
	}
}

// Validate applies the creation rules in order and returns the first
// violation: title, description, start date present and not past, end date
// present and after start, every candidate name non-empty, at least two
// candidates.
func (s *CreationService) Validate(input CreationInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(input.Description) == "" {
		return ErrEmptyDescription
	}
	if input.StartDate.IsZero() {
		return ErrMissingStartDate
	}
	if input.StartDate.Before(s.now()) {
		return ErrStartInPast
	}
	if input.EndDate.IsZero() {
		return ErrMissingEndDate
	}
	if !input.EndDate.After(input.StartDate) {
		return ErrEndBeforeStart
	}
	for _, name := range input.CandidateNames {
		if strings.TrimSpace(name) == "" {
			return ErrEmptyCandidateName
		}
	}
	if len(input.CandidateNames) < 2 {
		return ErrTooFewCandidates
	}
	return nil
}

// DurationMinutes derives the on-chain duration: end minus start, floored
// to whole minutes.
func (input CreationInput) DurationMinutes() uint64 {
	if !input.EndDate.After(input.StartDate) {
		return 0
	}
	return uint64(input.EndDate.Sub(input.StartDate) / time.Minute)
}

// Create validates the form and submits the deploy transaction, returning
// the new campaign address extracted from the creation event. When the
// transaction commits but the event is absent, the zero address is returned
// together with chain.ErrMissingCreationEvent so the caller can surface a
// warning instead of a failure.
func (s *CreationService) Create(ctx context.Context, input CreationInput) (common.Address, error) {
	if err := s.Validate(input); err != nil {
		return common.Address{}, err
	}

	opts, err := s.signer.TransactOpts(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to prepare deploy signing: %w", err)
	}

	address, err := s.deployer.CreateCampaign(ctx, opts,
		input.CandidateNames,
		input.DurationMinutes(),
		input.Title,
		input.Description,
		uint64(input.StartDate.Unix()),
		input.StartDate.Format(startTimeDisplayLayout),
	)
	if err != nil {
		if errors.Is(err, chain.ErrMissingCreationEvent) {
			s.metrics.recordCampaignCreated()
			s.logger.Warn().
				Str("title", input.Title).
				Msg("Campaign created but no creation event found in receipt")
			return common.Address{}, err
		}
		return common.Address{}, fmt.Errorf("failed to create campaign: %w", err)
	}

	s.metrics.recordCampaignCreated()
	s.logger.Info().
		Str("campaign", address.Hex()).
		Str("title", input.Title).
		Uint64("duration_minutes", input.DurationMinutes()).
		Msg("Campaign created")
	return address, nil
}
