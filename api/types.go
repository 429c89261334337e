package api

import (
	"time"

	"voting-client/models"
	"voting-client/service"
)

type ConnectResponse struct {
	SessionID string              `json:"session_id"`
	Address   string              `json:"address"`
	Profile   *models.UserProfile `json:"profile"`
}

type RegisterRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	BiometricImage string `json:"biometric_image"`
}

type CreateCampaignRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	CandidateNames []string `json:"candidate_names"`
}

type CreateCampaignResponse struct {
	CampaignAddress string `json:"campaign_address,omitempty"`
	Warning         string `json:"warning,omitempty"`
}

type CampaignView struct {
	Detail       *service.CampaignDetail `json:"detail"`
	GateState    service.GateState       `json:"gate_state"`
	CanSubmit    bool                    `json:"can_submit"`
	LastError    string                  `json:"last_error,omitempty"`
	LoadedAt     time.Time               `json:"loaded_at"`
	TallyRunning bool                    `json:"tally_running"`
}

type SelectCandidateRequest struct {
	CandidateIndex int `json:"candidate_index"`
}

type CaptchaRequest struct {
	Token   string `json:"token"`
	Expired bool   `json:"expired"`
}

type CaptchaResponse struct {
	Verified bool `json:"verified"`
	Attempts int  `json:"attempts"`
	Locked   bool `json:"locked"`
}

type BiometricRequest struct {
	Image string `json:"image"`
}

type BiometricResponse struct {
	Verified       bool    `json:"verified"`
	Attempts       int     `json:"attempts"`
	SpoofingScore  float64 `json:"spoofing_score"`
	FaceMatchScore float64 `json:"face_match_score"`
}

type FaceFrameRequest struct {
	Detected bool         `json:"detected"`
	LeftEye  [][2]float64 `json:"left_eye"`
	RightEye [][2]float64 `json:"right_eye"`
	Nose     [][2]float64 `json:"nose"`
	Image    string       `json:"image"`
}

type FaceStatusResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Captured bool   `json:"captured"`
}
