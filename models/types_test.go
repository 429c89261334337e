package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	assert := assert.New(t)

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	duration := uint64(60)

	assert.Equal(StatusUpcoming, DeriveStatus(start, duration, start.Add(-time.Second)))
	assert.Equal(StatusActive, DeriveStatus(start, duration, start))
	assert.Equal(StatusActive, DeriveStatus(start, duration, start.Add(30*time.Minute)))
	assert.Equal(StatusActive, DeriveStatus(start, duration, start.Add(60*time.Minute-time.Second)))
	assert.Equal(StatusCompleted, DeriveStatus(start, duration, start.Add(60*time.Minute)))
	assert.Equal(StatusCompleted, DeriveStatus(start, duration, start.Add(24*time.Hour)))
}

func TestDeriveStatusZeroDuration(t *testing.T) {
	assert := assert.New(t)

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(StatusUpcoming, DeriveStatus(start, 0, start.Add(-time.Second)))
	assert.Equal(StatusCompleted, DeriveStatus(start, 0, start))
}

func TestCampaignEndTime(t *testing.T) {
	assert := assert.New(t)

	c := Campaign{
		StartTime:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		DurationMinutes: 90,
	}

	assert.Equal(c.StartTime.Add(90*time.Minute), c.EndTime())
}

func TestCampaignStatusAt(t *testing.T) {
	assert := assert.New(t)

	c := Campaign{
		StartTime:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		DurationMinutes: 10,
	}

	assert.Equal(StatusUpcoming, c.StatusAt(c.StartTime.Add(-time.Minute)))
	assert.Equal(StatusActive, c.StatusAt(c.StartTime.Add(time.Minute)))
	assert.Equal(StatusCompleted, c.StatusAt(c.StartTime.Add(11*time.Minute)))
}
