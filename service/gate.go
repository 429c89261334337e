package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voting-client/models"
)

// GateState is the vote-submission state machine position.
type GateState string

const (
	// GateIdle: campaign loaded but voting is not open to this caller.
	GateIdle GateState = "idle"
	// GateSelecting: voting is open, no candidate chosen yet.
	GateSelecting GateState = "selecting"
	// GateVerifying: candidate chosen, verification widgets pending.
	GateVerifying GateState = "verifying"
	// GateSubmitting: the on-chain write is in flight.
	GateSubmitting GateState = "submitting"
	// GateVoted: the write committed; terminal.
	GateVoted GateState = "voted"
	// GateFailed: the write failed; recoverable, behaves as selecting with
	// the candidate selection and verification flags retained.
	GateFailed GateState = "failed"
)

var (
	ErrVotingNotOpen       = errors.New("voting is not open for this caller")
	ErrNoCandidateSelected = errors.New("no candidate selected")
	ErrCandidateOutOfRange = errors.New("candidate index out of range")
	ErrSubmissionBlocked   = errors.New("vote submission preconditions not met")
	ErrSubmissionInFlight  = errors.New("a vote submission is already in flight")
	ErrAlreadyVoted        = errors.New("caller has already voted in this campaign")
)

// VoteCaster performs the on-chain vote write. chain.Campaign implements it.
type VoteCaster interface {
	Vote(ctx context.Context, opts *bind.TransactOpts, candidateIndex int) (*types.Receipt, error)
}

// TransactSigner supplies signing options for write calls. wallet.Provider
// implements it.
type TransactSigner interface {
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// VoteGate is the precondition state machine in front of the vote write.
// Submission is permitted only while candidate selected, captcha verified,
// biometric verified, campaign active, caller not the owner and caller not
// yet voted all hold at once; the submit trigger stays disabled otherwise
// and while a submission is outstanding.
type VoteGate struct {
	caster  VoteCaster
	signer  TransactSigner
	logger  *zerolog.Logger
	metrics *Metrics
	now     func() time.Time

	campaign models.Campaign

	mu                sync.Mutex
	state             GateState
	voter             models.VoterStatus
	selected          int
	hasSelection      bool
	captchaVerified   bool
	biometricVerified bool
	inFlight          bool
	lastError         string
}

// NewVoteGate builds the gate over a freshly loaded campaign detail. The
// gate opens into selecting when the campaign is active and the caller is
// an eligible non-owner who has not voted; it stays idle otherwise.
func NewVoteGate(detail *CampaignDetail, caster VoteCaster, signer TransactSigner,
	logger *zerolog.Logger, metrics *Metrics, now func() time.Time,
) *VoteGate {
	if now == nil {
		now = time.Now
	}

	g := &VoteGate{
		caster:   caster,
		signer:   signer,
		logger:   logger,
		metrics:  metrics,
		now:      now,
		campaign: detail.Campaign,
		voter:    detail.Voter,
		state:    GateIdle,
	}

	if g.votingOpen() {
		g.state = GateSelecting
	}
	return g
}

// votingOpen holds the Idle->Selecting conditions. Status is recomputed
// against the clock on every call, never cached.
func (g *VoteGate) votingOpen() bool {
	return g.campaign.StatusAt(g.now()) == models.StatusActive &&
		!g.voter.HasVoted &&
		!g.voter.IsOwner
}

// refreshLocked promotes an idle gate once the campaign turns active. A gate
// built over an upcoming campaign opens by itself when the clock crosses the
// start instant; the opening decision is never latched.
func (g *VoteGate) refreshLocked() {
	if g.state == GateIdle && g.votingOpen() {
		g.state = GateSelecting
	}
}

// State returns the current machine position.
func (g *VoteGate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshLocked()
	return g.state
}

// LastError returns the message of the most recent failed submission.
func (g *VoteGate) LastError() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastError
}

// SelectCandidate records the caller's choice. Allowed from selecting,
// verifying and failed; a new selection from failed clears the error
// display.
func (g *VoteGate) SelectCandidate(index int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshLocked()

	switch g.state {
	case GateSelecting, GateVerifying, GateFailed:
	default:
		return ErrVotingNotOpen
	}

	if index < 0 || index >= len(g.campaign.Candidates) {
		return ErrCandidateOutOfRange
	}

	g.selected = index
	g.hasSelection = true
	g.state = GateVerifying
	g.lastError = ""
	return nil
}

// SelectedCandidate returns the current choice, if any.
func (g *VoteGate) SelectedCandidate() (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.selected, g.hasSelection
}

// SetCaptchaVerified records the CAPTCHA widget's boolean.
func (g *VoteGate) SetCaptchaVerified(verified bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captchaVerified = verified
}

// SetBiometricVerified records the biometric widget's boolean.
func (g *VoteGate) SetBiometricVerified(verified bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.biometricVerified = verified
}

// CanSubmit reports whether the submit trigger is enabled: all five gate
// conditions hold and no submission is outstanding. This is the
// precondition surface, evaluated at the moment of asking.
func (g *VoteGate) CanSubmit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshLocked()
	return g.canSubmitLocked()
}

func (g *VoteGate) canSubmitLocked() bool {
	switch g.state {
	case GateVerifying, GateFailed:
	default:
		return false
	}
	return g.hasSelection &&
		g.captchaVerified &&
		g.biometricVerified &&
		g.votingOpen() &&
		!g.inFlight
}

// Submit performs the on-chain vote write. It refuses to run unless
// CanSubmit holds at the moment of invocation, and it keeps the trigger
// disabled for the duration of the call so a second submission cannot be
// issued for the same intent. On failure the gate returns to a retryable
// position with the selection and both verification flags retained; on
// success the local voted flag flips and no optimistic count is applied —
// the increment arrives through the tally sync or a later read.
func (g *VoteGate) Submit(ctx context.Context) error {
	g.mu.Lock()
	if g.inFlight {
		g.mu.Unlock()
		return ErrSubmissionInFlight
	}
	if g.voter.HasVoted {
		g.mu.Unlock()
		return ErrAlreadyVoted
	}
	if !g.canSubmitLocked() {
		g.mu.Unlock()
		return ErrSubmissionBlocked
	}

	candidate := g.selected
	intentID := uuid.New().String()
	g.inFlight = true
	g.state = GateSubmitting
	g.lastError = ""
	g.mu.Unlock()

	g.logger.Info().
		Str("intent_id", intentID).
		Str("campaign", g.campaign.Address.Hex()).
		Int("candidate", candidate).
		Msg("Submitting vote")

	err := g.castVote(ctx, candidate)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = false

	if err != nil {
		g.state = GateFailed
		g.lastError = err.Error()
		g.metrics.recordVoteSubmitted("failed")
		g.logger.Error().Err(err).
			Str("intent_id", intentID).
			Str("campaign", g.campaign.Address.Hex()).
			Msg("Vote submission failed")
		return err
	}

	g.state = GateVoted
	g.voter.HasVoted = true
	g.metrics.recordVoteSubmitted("success")
	g.logger.Info().
		Str("intent_id", intentID).
		Str("campaign", g.campaign.Address.Hex()).
		Int("candidate", candidate).
		Msg("Vote recorded on chain")
	return nil
}

func (g *VoteGate) castVote(ctx context.Context, candidate int) error {
	opts, err := g.signer.TransactOpts(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare vote signing: %w", err)
	}
	if _, err := g.caster.Vote(ctx, opts, candidate); err != nil {
		return err
	}
	return nil
}

// Voter returns the caller's current standing as the gate sees it.
func (g *VoteGate) Voter() models.VoterStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.voter
}

// CaptchaVerified reports the stored captcha boolean.
func (g *VoteGate) CaptchaVerified() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.captchaVerified
}

// BiometricVerified reports the stored biometric boolean.
func (g *VoteGate) BiometricVerified() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.biometricVerified
}
