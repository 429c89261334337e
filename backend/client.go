package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"voting-client/models"
)

// ErrNotRegistered is the login backend's 404: the wallet address has no
// profile. Surfaced to the user as a specific message, no retry offered.
var ErrNotRegistered = errors.New("wallet address is not registered")

// Client talks to the biometric/auth backend over HTTP. It owns no state
// beyond the base URL and the http client it was given.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a backend client. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type loginRequest struct {
	Address string `json:"address"`
}

// RegisterRequest is the payload of the registration endpoint: wallet
// address, identity fields and the captured face image (base64 JPEG).
type RegisterRequest struct {
	WalletAddress  string `json:"wallet_address"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	BiometricImage string `json:"biometric_image"`
}

// BiometricAuthResult carries the match flag the gate consumes plus the
// confidence scores, which are display-only.
type BiometricAuthResult struct {
	IsMatch        bool    `json:"is_match"`
	SpoofingScore  float64 `json:"spoofing_score"`
	FaceMatchScore float64 `json:"face_match_score"`
}

type biometricAuthRequest struct {
	WalletAddress  string `json:"wallet_address"`
	BiometricImage string `json:"biometric_image"`
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request to %s failed: %w", path, err)
	}
	return resp, nil
}

// Login checks whether the address is registered and returns its profile.
// A 404 maps to ErrNotRegistered.
func (c *Client) Login(ctx context.Context, address string) (*models.UserProfile, error) {
	resp, err := c.post(ctx, "/login", loginRequest{Address: address})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotRegistered
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var profile models.UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	return &profile, nil
}

// Register creates a profile for a wallet address along with its reference
// face image.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.UserProfile, error) {
	resp, err := c.post(ctx, "/register", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("registration failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var profile models.UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode registration response: %w", err)
	}
	return &profile, nil
}

// BiometricAuth submits a captured frame for matching against the address's
// registered face image.
func (c *Client) BiometricAuth(ctx context.Context, walletAddress, biometricImage string) (*BiometricAuthResult, error) {
	resp, err := c.post(ctx, "/biometric_auth", biometricAuthRequest{
		WalletAddress:  walletAddress,
		BiometricImage: biometricImage,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("biometric auth failed with status %d", resp.StatusCode)
	}

	var result BiometricAuthResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode biometric auth response: %w", err)
	}
	return &result, nil
}
