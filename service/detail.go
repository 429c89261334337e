package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"voting-client/models"
)

// CampaignReader is the read surface of one campaign contract. It is the
// fixed method set the readers and the gate depend on; chain.Campaign
// implements it.
type CampaignReader interface {
	Address() common.Address
	Name(ctx context.Context) (string, error)
	Description(ctx context.Context) (string, error)
	StartTimeUnix(ctx context.Context) (uint64, error)
	DurationMinutes(ctx context.Context) (uint64, error)
	EndTimeUnix(ctx context.Context) (uint64, error)
	CandidatesCount(ctx context.Context) (uint64, error)
	Candidate(ctx context.Context, index uint64) (string, uint64, error)
	VotersCount(ctx context.Context) (uint64, error)
	IsOwner(ctx context.Context, addr common.Address) (bool, error)
	IsVoted(ctx context.Context, addr common.Address) (bool, error)
}

// CampaignDetail is one campaign's full view state for a given viewer:
// the campaign fields, the viewer's standing and the status derived at
// fetch time.
type CampaignDetail struct {
	Campaign models.Campaign       `json:"campaign"`
	Voter    models.VoterStatus    `json:"voter"`
	Status   models.CampaignStatus `json:"status"`
}

// DetailService loads one campaign's full detail. Every page that needs the
// campaign-read-and-vote flow consumes this one reader.
type DetailService struct {
	logger  *zerolog.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewDetailService builds the reader. now may be nil and defaults to
// time.Now.
func NewDetailService(logger *zerolog.Logger, metrics *Metrics, now func() time.Time) *DetailService {
	if now == nil {
		now = time.Now
	}
	return &DetailService{logger: logger, metrics: metrics, now: now}
}

// Load fetches the campaign's fields, candidates and the viewer's voted and
// owner flags, then derives the status against the current time.
func (s *DetailService) Load(ctx context.Context, reader CampaignReader, viewer common.Address) (*CampaignDetail, error) {
	title, err := reader.Name(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", reader.Address().Hex(), err)
	}

	description, err := reader.Description(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", reader.Address().Hex(), err)
	}

	startUnix, err := reader.StartTimeUnix(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", reader.Address().Hex(), err)
	}

	duration, err := reader.DurationMinutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", reader.Address().Hex(), err)
	}

	totalVotes, err := reader.VotersCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", reader.Address().Hex(), err)
	}

	count, err := reader.CandidatesCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", reader.Address().Hex(), err)
	}

	candidates := make([]models.Candidate, 0, count)
	for i := uint64(0); i < count; i++ {
		name, votes, err := reader.Candidate(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("failed to load candidate %d of campaign %s: %w", i, reader.Address().Hex(), err)
		}
		candidates = append(candidates, models.Candidate{
			Index: int(i),
			Name:  name,
			Votes: votes,
		})
	}

	isOwner, err := reader.IsOwner(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner flag for campaign %s: %w", reader.Address().Hex(), err)
	}

	isVoted, err := reader.IsVoted(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("failed to load voted flag for campaign %s: %w", reader.Address().Hex(), err)
	}

	campaign := models.Campaign{
		Address:         reader.Address(),
		Title:           title,
		Description:     description,
		StartTime:       time.Unix(int64(startUnix), 0),
		DurationMinutes: duration,
		TotalVotes:      totalVotes,
		Candidates:      candidates,
	}

	s.metrics.recordCampaignRead()
	s.logger.Debug().
		Str("campaign", campaign.Address.Hex()).
		Str("viewer", viewer.Hex()).
		Int("candidates", len(candidates)).
		Msg("Loaded campaign detail")

	return &CampaignDetail{
		Campaign: campaign,
		Voter:    models.VoterStatus{HasVoted: isVoted, IsOwner: isOwner},
		Status:   campaign.StatusAt(s.now()),
	}, nil
}
