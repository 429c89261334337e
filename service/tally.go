package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/rs/zerolog"

	"voting-client/models"
)

// VoteCastWatcher opens a standing subscription to one campaign's VoteCast
// notifications. chain.Campaign implements it.
type VoteCastWatcher interface {
	WatchVoteCast(ctx context.Context) (<-chan models.VoteCast, event.Subscription, error)
}

// TallySync keeps one campaign's displayed candidate counts and vote total
// current from live notifications, after the initial read-through fetch.
// It is additive display convenience only; the contract owns the record.
type TallySync struct {
	logger  *zerolog.Logger
	metrics *Metrics

	mu       sync.RWMutex
	campaign models.Campaign
}

// NewTallySync seeds the sync with the freshly fetched campaign state. The
// candidate list is copied so later patches do not alias the caller's
// slice.
func NewTallySync(campaign models.Campaign, logger *zerolog.Logger, metrics *Metrics) *TallySync {
	campaign.Candidates = append([]models.Candidate(nil), campaign.Candidates...)
	return &TallySync{
		logger:   logger,
		metrics:  metrics,
		campaign: campaign,
	}
}

// Apply merges one notification: an in-bounds candidate index replaces that
// candidate's count with the notified value and advances the displayed
// total by exactly one — one notification is one vote, whatever the
// magnitude of the new count. Out-of-bounds notifications are dropped.
// Notifications are applied in arrival order; duplicates are not
// deduplicated.
func (t *TallySync) Apply(cast models.VoteCast) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cast.CandidateIndex < 0 || cast.CandidateIndex >= len(t.campaign.Candidates) {
		t.metrics.recordTallyEvent(false)
		t.logger.Warn().
			Int("candidate", cast.CandidateIndex).
			Str("campaign", t.campaign.Address.Hex()).
			Msg("Dropping vote notification for unknown candidate")
		return
	}

	t.campaign.Candidates[cast.CandidateIndex].Votes = cast.NewVoteCount
	t.campaign.TotalVotes++
	t.metrics.recordTallyEvent(true)
	t.logger.Debug().
		Int("candidate", cast.CandidateIndex).
		Uint64("votes", cast.NewVoteCount).
		Uint64("total", t.campaign.TotalVotes).
		Msg("Applied vote notification")
}

// Snapshot returns a copy of the current view state.
func (t *TallySync) Snapshot() models.Campaign {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := t.campaign
	snapshot.Candidates = append([]models.Candidate(nil), t.campaign.Candidates...)
	return snapshot
}

// Run opens the subscription and applies notifications until the context is
// cancelled or the subscription errors. The subscription is torn down on
// the way out.
func (t *TallySync) Run(ctx context.Context, watcher VoteCastWatcher) error {
	events, sub, err := watcher.WatchVoteCast(ctx)
	if err != nil {
		return fmt.Errorf("failed to open tally subscription: %w", err)
	}
	defer sub.Unsubscribe()

	t.logger.Info().Str("campaign", t.campaign.Address.Hex()).Msg("Tally sync started")

	for {
		select {
		case cast, ok := <-events:
			if !ok {
				return nil
			}
			t.Apply(cast)
		case err := <-sub.Err():
			if err != nil {
				return fmt.Errorf("tally subscription failed: %w", err)
			}
			return nil
		case <-ctx.Done():
			t.logger.Info().Str("campaign", t.campaign.Address.Hex()).Msg("Tally sync stopped")
			return nil
		}
	}
}
