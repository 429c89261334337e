package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"voting-client/models"
)

func newTestGate(detail *CampaignDetail, caster *fakeCaster, now func() time.Time) *VoteGate {
	return NewVoteGate(detail, caster, &fakeSigner{}, testLogger(), nil, now)
}

func activeDetail(now time.Time) *CampaignDetail {
	campaign := activeCampaign(now)
	return &CampaignDetail{
		Campaign: campaign,
		Voter:    models.VoterStatus{},
		Status:   campaign.StatusAt(now),
	}
}

func TestVoteGateOpensSelecting(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	clock := func() time.Time { return now }

	gate := newTestGate(activeDetail(now), &fakeCaster{}, clock)
	assert.Equal(GateSelecting, gate.State())
}

func TestVoteGateStaysIdle(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	clock := func() time.Time { return now }

	completed := activeDetail(now)
	completed.Campaign.StartTime = now.Add(-2 * time.Hour)
	gate := newTestGate(completed, &fakeCaster{}, clock)
	assert.Equal(GateIdle, gate.State())

	voted := activeDetail(now)
	voted.Voter.HasVoted = true
	gate = newTestGate(voted, &fakeCaster{}, clock)
	assert.Equal(GateIdle, gate.State())

	owner := activeDetail(now)
	owner.Voter.IsOwner = true
	gate = newTestGate(owner, &fakeCaster{}, clock)
	assert.Equal(GateIdle, gate.State())

	upcoming := activeDetail(now)
	upcoming.Campaign.StartTime = now.Add(time.Hour)
	gate = newTestGate(upcoming, &fakeCaster{}, clock)
	assert.Equal(GateIdle, gate.State())
}

func TestVoteGateOpensWhenCampaignTurnsActive(t *testing.T) {
	assert := assert.New(t)

	current := time.Now()
	clock := func() time.Time { return current }

	upcoming := activeDetail(current)
	upcoming.Campaign.StartTime = current.Add(time.Hour)
	gate := newTestGate(upcoming, &fakeCaster{}, clock)

	assert.Equal(GateIdle, gate.State())
	assert.ErrorIs(gate.SelectCandidate(0), ErrVotingNotOpen)

	// The clock crossing the start instant opens the gate without a reload.
	current = current.Add(90 * time.Minute)
	assert.Equal(GateSelecting, gate.State())
	assert.NoError(gate.SelectCandidate(0))
	assert.Equal(GateVerifying, gate.State())
}

func TestVoteGateStaysClosedForVotedViewer(t *testing.T) {
	assert := assert.New(t)

	current := time.Now()
	clock := func() time.Time { return current }

	upcoming := activeDetail(current)
	upcoming.Campaign.StartTime = current.Add(time.Hour)
	upcoming.Voter.HasVoted = true
	gate := newTestGate(upcoming, &fakeCaster{}, clock)

	current = current.Add(90 * time.Minute)
	assert.Equal(GateIdle, gate.State())
	assert.ErrorIs(gate.SelectCandidate(0), ErrVotingNotOpen)
}

func TestVoteGateSelectCandidate(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	clock := func() time.Time { return now }
	gate := newTestGate(activeDetail(now), &fakeCaster{}, clock)

	assert.ErrorIs(gate.SelectCandidate(5), ErrCandidateOutOfRange)
	assert.ErrorIs(gate.SelectCandidate(-1), ErrCandidateOutOfRange)

	assert.NoError(gate.SelectCandidate(1))
	assert.Equal(GateVerifying, gate.State())

	selected, ok := gate.SelectedCandidate()
	assert.True(ok)
	assert.Equal(1, selected)

	// Re-selection is allowed while verifying.
	assert.NoError(gate.SelectCandidate(0))
	selected, _ = gate.SelectedCandidate()
	assert.Equal(0, selected)
}

func TestVoteGateSelectWhileIdle(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	clock := func() time.Time { return now }

	voted := activeDetail(now)
	voted.Voter.HasVoted = true
	gate := newTestGate(voted, &fakeCaster{}, clock)

	assert.ErrorIs(gate.SelectCandidate(0), ErrVotingNotOpen)
}

func TestVoteGateCanSubmitConditions(t *testing.T) {
	assert := assert.New(t)

	current := time.Now()
	clock := func() time.Time { return current }
	gate := newTestGate(activeDetail(current), &fakeCaster{}, clock)

	assert.False(gate.CanSubmit())

	assert.NoError(gate.SelectCandidate(0))
	assert.False(gate.CanSubmit())

	gate.SetCaptchaVerified(true)
	assert.False(gate.CanSubmit())

	gate.SetBiometricVerified(true)
	assert.True(gate.CanSubmit())

	// Each condition disables the trigger on its own.
	gate.SetCaptchaVerified(false)
	assert.False(gate.CanSubmit())
	gate.SetCaptchaVerified(true)

	gate.SetBiometricVerified(false)
	assert.False(gate.CanSubmit())
	gate.SetBiometricVerified(true)

	assert.True(gate.CanSubmit())

	// The campaign ending between checks disables the trigger without any
	// state change.
	current = current.Add(2 * time.Hour)
	assert.False(gate.CanSubmit())
}

func TestVoteGateSubmitSuccess(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	clock := func() time.Time { return now }
	caster := &fakeCaster{}
	gate := newTestGate(activeDetail(now), caster, clock)

	assert.NoError(gate.SelectCandidate(1))
	gate.SetCaptchaVerified(true)
	gate.SetBiometricVerified(true)

	assert.NoError(gate.Submit(context.Background()))
	assert.Equal(GateVoted, gate.State())
	assert.True(gate.Voter().HasVoted)
	assert.Equal(1, caster.calls)

	// Terminal: a second submission is refused.
	assert.ErrorIs(gate.Submit(context.Background()), ErrAlreadyVoted)
	assert.Equal(1, caster.calls)
}

func TestVoteGateSubmitBlocked(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	clock := func() time.Time { return now }
	caster := &fakeCaster{}
	gate := newTestGate(activeDetail(now), caster, clock)

	assert.NoError(gate.SelectCandidate(0))
	gate.SetCaptchaVerified(true)

	assert.ErrorIs(gate.Submit(context.Background()), ErrSubmissionBlocked)
	assert.Equal(0, caster.calls)
}

func TestVoteGateSubmitFailureIsRetryable(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	clock := func() time.Time { return now }
	caster := &fakeCaster{err: errors.New("transaction reverted")}
	gate := newTestGate(activeDetail(now), caster, clock)

	assert.NoError(gate.SelectCandidate(1))
	gate.SetCaptchaVerified(true)
	gate.SetBiometricVerified(true)

	err := gate.Submit(context.Background())
	assert.Error(err)
	assert.Equal(GateFailed, gate.State())
	assert.Contains(gate.LastError(), "reverted")

	// Selection and verification flags survive the failure; no re-verification
	// is demanded.
	selected, ok := gate.SelectedCandidate()
	assert.True(ok)
	assert.Equal(1, selected)
	assert.True(gate.CaptchaVerified())
	assert.True(gate.BiometricVerified())
	assert.True(gate.CanSubmit())

	// The retry goes through once the write stops failing.
	caster.err = nil
	assert.NoError(gate.Submit(context.Background()))
	assert.Equal(GateVoted, gate.State())
	assert.Equal(2, caster.calls)
}

func TestVoteGateSingleFlight(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	clock := func() time.Time { return now }
	caster := &fakeCaster{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	gate := newTestGate(activeDetail(now), caster, clock)

	assert.NoError(gate.SelectCandidate(0))
	gate.SetCaptchaVerified(true)
	gate.SetBiometricVerified(true)

	done := make(chan error, 1)
	go func() {
		done <- gate.Submit(context.Background())
	}()

	<-caster.started
	assert.Equal(GateSubmitting, gate.State())
	assert.False(gate.CanSubmit())
	assert.ErrorIs(gate.Submit(context.Background()), ErrSubmissionInFlight)

	close(caster.release)
	assert.NoError(<-done)
	assert.Equal(1, caster.calls)
}
