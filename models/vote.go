package models

import (
	"errors"
	"math"
	"math/big"
)

// VoteCast is the typed form of a vote-cast notification from the campaign
// contract. NewVoteCount is authoritative per-candidate state; the displayed
// total is advanced by exactly one per notification regardless of its value.
type VoteCast struct {
	CandidateIndex int    `json:"candidate_index"`
	NewVoteCount   uint64 `json:"new_vote_count"`
}

var ErrMalformedVoteCast = errors.New("malformed vote cast notification")

// ParseVoteCast validates the raw big-integer payload of a VoteCast log at
// the subscription boundary before it is merged into view state.
func ParseVoteCast(candidateIndex, newVoteCount *big.Int) (VoteCast, error) {
	if candidateIndex == nil || newVoteCount == nil {
		return VoteCast{}, ErrMalformedVoteCast
	}
	if !candidateIndex.IsInt64() || candidateIndex.Sign() < 0 || candidateIndex.Int64() > math.MaxInt32 {
		return VoteCast{}, ErrMalformedVoteCast
	}
	if !newVoteCount.IsUint64() {
		return VoteCast{}, ErrMalformedVoteCast
	}
	return VoteCast{
		CandidateIndex: int(candidateIndex.Int64()),
		NewVoteCount:   newVoteCount.Uint64(),
	}, nil
}
