package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks the client's operations: campaign reads, vote
// submissions, tally notifications and verification attempts.
type Metrics struct {
	campaignReads        prometheus.Counter
	campaignsCreated     prometheus.Counter
	votesSubmitted       *prometheus.CounterVec
	tallyEventsApplied   prometheus.Counter
	tallyEventsDropped   prometheus.Counter
	verificationAttempts *prometheus.CounterVec
}

// NewMetrics initializes Prometheus metrics and registers them with the
// given registerer. A nil registerer falls back to the default one.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		campaignReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voting_client",
			Name:      "campaign_reads_total",
			Help:      "Number of campaign detail or summary fetches",
		}),
		campaignsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voting_client",
			Name:      "campaigns_created_total",
			Help:      "Number of campaign deploy transactions submitted",
		}),
		votesSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voting_client",
			Name:      "votes_submitted_total",
			Help:      "Number of vote submissions by outcome",
		},
			[]string{"outcome"},
		),
		tallyEventsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voting_client",
			Name:      "tally_events_applied_total",
			Help:      "Number of VoteCast notifications merged into view state",
		}),
		tallyEventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voting_client",
			Name:      "tally_events_dropped_total",
			Help:      "Number of VoteCast notifications dropped for being out of bounds",
		}),
		verificationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voting_client",
			Name:      "verification_attempts_total",
			Help:      "Number of verification attempts by widget",
		},
			[]string{"widget"},
		),
	}

	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if registerer != nil {
		registerer.MustRegister(m.campaignReads)
		registerer.MustRegister(m.campaignsCreated)
		registerer.MustRegister(m.votesSubmitted)
		registerer.MustRegister(m.tallyEventsApplied)
		registerer.MustRegister(m.tallyEventsDropped)
		registerer.MustRegister(m.verificationAttempts)
	}

	return m
}

func (m *Metrics) recordCampaignRead() {
	if m != nil {
		m.campaignReads.Inc()
	}
}

func (m *Metrics) recordCampaignCreated() {
	if m != nil {
		m.campaignsCreated.Inc()
	}
}

func (m *Metrics) recordVoteSubmitted(outcome string) {
	if m != nil {
		m.votesSubmitted.With(prometheus.Labels{"outcome": outcome}).Inc()
	}
}

func (m *Metrics) recordTallyEvent(applied bool) {
	if m == nil {
		return
	}
	if applied {
		m.tallyEventsApplied.Inc()
	} else {
		m.tallyEventsDropped.Inc()
	}
}

// RecordVerificationAttempt counts one widget attempt; widget is "captcha"
// or "biometric".
func (m *Metrics) RecordVerificationAttempt(widget string) {
	if m != nil {
		m.verificationAttempts.With(prometheus.Labels{"widget": widget}).Inc()
	}
}
