package models

// VoterStatus is the caller's standing against one campaign. Both flags are
// enforced by the contract; the client only reflects them. Once HasVoted is
// true for a (voter, campaign) pair it never reverts.
type VoterStatus struct {
	HasVoted bool `json:"has_voted"`
	IsOwner  bool `json:"is_owner"`
}

// UserProfile is the registered identity the auth backend holds for a wallet
// address.
type UserProfile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}
