package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CampaignStatus is derived from wall-clock time against the campaign's
// immutable start/duration pair. It is never stored.
type CampaignStatus string

const (
	StatusUpcoming  CampaignStatus = "upcoming"
	StatusActive    CampaignStatus = "active"
	StatusCompleted CampaignStatus = "completed"
)

// Candidate is one selectable option within a campaign, identified by its
// positional index. The index is assigned once at creation and never
// reassigned; the vote count only grows.
type Candidate struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Votes       uint64 `json:"votes"`
	Description string `json:"description"`
}

// Campaign is the read-through view of one deployed campaign contract.
// The contract owns the truth; this struct is refreshed at load time and
// patched incrementally from VoteCast notifications.
type Campaign struct {
	Address         common.Address `json:"address"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	StartTime       time.Time      `json:"start_time"`
	DurationMinutes uint64         `json:"duration_minutes"`
	TotalVotes      uint64         `json:"total_votes"`
	Candidates      []Candidate    `json:"candidates"`
}

// EndTime is start plus duration.
func (c *Campaign) EndTime() time.Time {
	return c.StartTime.Add(time.Duration(c.DurationMinutes) * time.Minute)
}

// StatusAt derives the campaign status at the given instant.
func (c *Campaign) StatusAt(now time.Time) CampaignStatus {
	return DeriveStatus(c.StartTime, c.DurationMinutes, now)
}

// DeriveStatus computes the status label from a start timestamp, a duration
// in minutes and the current time: active iff start <= now < start+duration,
// completed iff now >= start+duration, upcoming otherwise. Pure function;
// callers must recompute it on every read since "now" advances independently
// of any fetch.
func DeriveStatus(start time.Time, durationMinutes uint64, now time.Time) CampaignStatus {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	switch {
	case now.Before(start):
		return StatusUpcoming
	case now.Before(end):
		return StatusActive
	default:
		return StatusCompleted
	}
}

// CampaignSummary is the directory view of one campaign: the listing fields
// plus the status derived at fetch time.
type CampaignSummary struct {
	Address     common.Address `json:"address"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	TotalVotes  uint64         `json:"total_votes"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	Status      CampaignStatus `json:"status"`
}
