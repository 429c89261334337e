package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"voting-client/models"
)

// RegistryReader enumerates the deployed campaign addresses.
type RegistryReader interface {
	DeployedCampaigns(ctx context.Context) ([]common.Address, error)
}

// CampaignOpener binds a campaign reader to an address.
type CampaignOpener func(address common.Address) (CampaignReader, error)

// DirectoryService lists every deployed campaign with its summary fields
// and a status derived at fetch time.
type DirectoryService struct {
	registry RegistryReader
	open     CampaignOpener
	logger   *zerolog.Logger
	metrics  *Metrics
	now      func() time.Time
}

// NewDirectoryService builds the directory reader. now may be nil and
// defaults to time.Now.
func NewDirectoryService(registry RegistryReader, open CampaignOpener, logger *zerolog.Logger, metrics *Metrics, now func() time.Time) *DirectoryService {
	if now == nil {
		now = time.Now
	}
	return &DirectoryService{
		registry: registry,
		open:     open,
		logger:   logger,
		metrics:  metrics,
		now:      now,
	}
}

// List fetches the summary of every deployed campaign in creation order.
// One unreadable campaign fails the listing; the directory has no partial
// view.
func (s *DirectoryService) List(ctx context.Context) ([]models.CampaignSummary, error) {
	addresses, err := s.registry.DeployedCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate campaigns: %w", err)
	}

	summaries := make([]models.CampaignSummary, 0, len(addresses))
	for _, addr := range addresses {
		reader, err := s.open(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to open campaign %s: %w", addr.Hex(), err)
		}

		summary, err := s.loadSummary(ctx, reader)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	s.metrics.recordCampaignRead()
	s.logger.Debug().Int("campaigns", len(summaries)).Msg("Listed deployed campaigns")
	return summaries, nil
}

func (s *DirectoryService) loadSummary(ctx context.Context, reader CampaignReader) (models.CampaignSummary, error) {
	addr := reader.Address()

	title, err := reader.Name(ctx)
	if err != nil {
		return models.CampaignSummary{}, fmt.Errorf("failed to read campaign %s: %w", addr.Hex(), err)
	}

	description, err := reader.Description(ctx)
	if err != nil {
		return models.CampaignSummary{}, fmt.Errorf("failed to read campaign %s: %w", addr.Hex(), err)
	}

	totalVotes, err := reader.VotersCount(ctx)
	if err != nil {
		return models.CampaignSummary{}, fmt.Errorf("failed to read campaign %s: %w", addr.Hex(), err)
	}

	startUnix, err := reader.StartTimeUnix(ctx)
	if err != nil {
		return models.CampaignSummary{}, fmt.Errorf("failed to read campaign %s: %w", addr.Hex(), err)
	}

	duration, err := reader.DurationMinutes(ctx)
	if err != nil {
		return models.CampaignSummary{}, fmt.Errorf("failed to read campaign %s: %w", addr.Hex(), err)
	}

	start := time.Unix(int64(startUnix), 0)
	return models.CampaignSummary{
		Address:     addr,
		Title:       title,
		Description: description,
		TotalVotes:  totalVotes,
		StartTime:   start,
		EndTime:     start.Add(time.Duration(duration) * time.Minute),
		Status:      models.DeriveStatus(start, duration, s.now()),
	}, nil
}
