package wallet

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"voting-client/models"
)

// Session is the client-side login session: the connected address plus the
// profile the auth backend returned for it. It lives only as long as the
// process; nothing here is durable against the chain.
type Session struct {
	id        string
	address   common.Address
	startedAt time.Time

	mu      sync.RWMutex
	profile *models.UserProfile
}

// NewSession opens a session for the given connected address.
func NewSession(address common.Address) *Session {
	return &Session{
		id:        uuid.New().String(),
		address:   address,
		startedAt: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Address returns the connected account address.
func (s *Session) Address() common.Address {
	return s.address
}

// StartedAt returns when the session was opened.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// SetProfile caches the registered profile after a successful login.
func (s *Session) SetProfile(profile *models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = profile
}

// Profile returns the cached profile, or nil before login.
func (s *Session) Profile() *models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}
