package verification

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/sha3"

	"voting-client/backend"
)

// FaceStatus classifies one sampled frame.
type FaceStatus string

const (
	FaceStatusNoFace     FaceStatus = "no_face"
	FaceStatusFaceTurned FaceStatus = "face_turned"
	FaceStatusEyesClosed FaceStatus = "eyes_closed"
	FaceStatusCorrect    FaceStatus = "correct"
)

// Message returns the user-facing prompt for a status.
func (s FaceStatus) Message() string {
	switch s {
	case FaceStatusNoFace:
		return "No face detected"
	case FaceStatusFaceTurned:
		return "Please center your face"
	case FaceStatusEyesClosed:
		return "Please open your eyes"
	case FaceStatusCorrect:
		return "Face is aligned correctly"
	default:
		return "Please position your face in front of the camera"
	}
}

// Point is one landmark coordinate in frame pixels.
type Point struct {
	X float64
	Y float64
}

// LandmarkFrame is one sampled detection result: the eye and nose landmark
// sets of the first detected face plus the raw still (base64 JPEG) to
// capture from. Landmark indices follow the 68-point layout the detector
// emits: eyes carry six points each, the nose seven.
type LandmarkFrame struct {
	Detected bool
	LeftEye  []Point
	RightEye []Point
	Nose     []Point
	Image    string
}

// Classifier applies the fixed geometric thresholds to a frame. The
// thresholds are internal to the widget and not part of the gate's
// contract.
type Classifier struct {
	// EyeClosedThreshold is the average vertical eye opening, in pixels,
	// below which the eyes count as closed.
	EyeClosedThreshold float64
	// TurnDeviationThreshold is the horizontal distance between the nose
	// tip and the eye center above which the face counts as turned.
	TurnDeviationThreshold float64
}

// NewClassifier returns a classifier with the production thresholds.
func NewClassifier() *Classifier {
	return &Classifier{
		EyeClosedThreshold:     6,
		TurnDeviationThreshold: 0.8,
	}
}

// Classify maps a frame to its status. Eye openness is checked before
// alignment; frames with missing landmarks count as no face.
func (c *Classifier) Classify(frame LandmarkFrame) FaceStatus {
	if !frame.Detected || len(frame.LeftEye) < 6 || len(frame.RightEye) < 6 || len(frame.Nose) < 7 {
		return FaceStatusNoFace
	}

	leftOpen := math.Abs(frame.LeftEye[1].Y - frame.LeftEye[5].Y)
	rightOpen := math.Abs(frame.RightEye[1].Y - frame.RightEye[5].Y)
	if (leftOpen+rightOpen)/2 < c.EyeClosedThreshold {
		return FaceStatusEyesClosed
	}

	faceCenterX := (frame.LeftEye[0].X + frame.RightEye[3].X) / 2
	if math.Abs(frame.Nose[6].X-faceCenterX) > c.TurnDeviationThreshold {
		return FaceStatusFaceTurned
	}

	return FaceStatusCorrect
}

// FrameSource supplies landmark frames from the camera pipeline.
type FrameSource interface {
	Frame(ctx context.Context) (LandmarkFrame, error)
}

// DefaultSampleInterval is how often the monitor polls the frame source.
const DefaultSampleInterval = 100 * time.Millisecond

// Monitor is the local-heuristic widget: it samples the frame source on a
// fixed interval, tracks the current face status and captures one still the
// first time the status reaches correct. It never re-captures within a
// session.
type Monitor struct {
	source     FrameSource
	classifier *Classifier
	interval   time.Duration
	logger     *zerolog.Logger

	mu          sync.RWMutex
	status      FaceStatus
	captured    bool
	image       string
	fingerprint string
}

// NewMonitor wires a monitor. interval <= 0 falls back to the 100ms
// default.
func NewMonitor(source FrameSource, classifier *Classifier, interval time.Duration, logger *zerolog.Logger) *Monitor {
	if classifier == nil {
		classifier = NewClassifier()
	}
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Monitor{
		source:     source,
		classifier: classifier,
		interval:   interval,
		logger:     logger,
	}
}

// Run samples until the context is cancelled. Sampling errors are logged
// and skipped; the loop keeps going.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := m.source.Frame(ctx)
			if err != nil {
				m.logger.Debug().Err(err).Msg("Failed to sample face frame")
				continue
			}
			m.apply(frame)
		}
	}
}

// Sample classifies a single frame immediately, outside the ticker loop.
func (m *Monitor) Sample(ctx context.Context) (FaceStatus, error) {
	frame, err := m.source.Frame(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to sample face frame: %w", err)
	}
	return m.apply(frame), nil
}

func (m *Monitor) apply(frame LandmarkFrame) FaceStatus {
	status := m.classifier.Classify(frame)

	m.mu.Lock()
	defer m.mu.Unlock()

	if status != m.status {
		m.logger.Debug().Str("status", string(status)).Msg(status.Message())
	}
	m.status = status

	if status == FaceStatusCorrect && !m.captured && frame.Image != "" {
		sum := sha3.Sum256([]byte(frame.Image))
		m.image = frame.Image
		m.fingerprint = hex.EncodeToString(sum[:])
		m.captured = true
		m.logger.Info().Str("fingerprint", m.fingerprint).Msg("Face image captured")
	}
	return status
}

// Status returns the last classified status.
func (m *Monitor) Status() FaceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Captured returns the one captured still and its fingerprint; ok is false
// until the first correct frame has been seen.
func (m *Monitor) Captured() (image, fingerprint string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.image, m.fingerprint, m.captured
}

// BiometricMatcher submits a captured frame for matching.
type BiometricMatcher interface {
	BiometricAuth(ctx context.Context, walletAddress, biometricImage string) (*backend.BiometricAuthResult, error)
}

// BiometricCheck is the capture-then-submit widget: it posts the captured
// frame plus the wallet address to the match endpoint and reports the
// returned match flag as its boolean. Every try counts against the attempt
// counter; the confidence scores are kept for display only.
type BiometricCheck struct {
	matcher    BiometricMatcher
	counters   CounterStore
	counterKey string

	mu         sync.Mutex
	verified   bool
	lastResult *backend.BiometricAuthResult
}

// NewBiometricCheck wires the widget.
func NewBiometricCheck(matcher BiometricMatcher, counters CounterStore, counterKey string) *BiometricCheck {
	return &BiometricCheck{
		matcher:    matcher,
		counters:   counters,
		counterKey: counterKey,
	}
}

// Verify submits one match attempt. The attempt counter is incremented on
// every try, matched or not. Transport failures still count as an attempt
// made.
func (b *BiometricCheck) Verify(ctx context.Context, walletAddress, biometricImage string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.counters.Increment(b.counterKey); err != nil {
		return false, fmt.Errorf("failed to record biometric attempt: %w", err)
	}

	result, err := b.matcher.BiometricAuth(ctx, walletAddress, biometricImage)
	if err != nil {
		return false, err
	}

	b.lastResult = result
	if result.IsMatch {
		b.verified = true
	}
	return result.IsMatch, nil
}

// Verified reports the boolean the gate consumes.
func (b *BiometricCheck) Verified() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.verified
}

// LastResult returns the most recent backend scores for display.
func (b *BiometricCheck) LastResult() *backend.BiometricAuthResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastResult
}

// Attempts returns the current attempt counter.
func (b *BiometricCheck) Attempts() (int, error) {
	return b.counters.Counter(b.counterKey)
}
