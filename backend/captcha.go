package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// CaptchaVerifier checks challenge tokens against the verification backend.
// It only answers success or failure; attempt accounting belongs to the
// widget consuming it.
type CaptchaVerifier struct {
	verifyURL  string
	httpClient *http.Client
}

// NewCaptchaVerifier builds a verifier for the given endpoint. A nil
// httpClient falls back to http.DefaultClient.
func NewCaptchaVerifier(verifyURL string, httpClient *http.Client) *CaptchaVerifier {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CaptchaVerifier{verifyURL: verifyURL, httpClient: httpClient}
}

type captchaVerifyRequest struct {
	Token string `json:"token"`
}

type captchaVerifyResponse struct {
	Success bool `json:"success"`
}

// Verify posts the challenge token and returns whether the backend accepted
// it. A non-2xx status or a false success flag both count as a failed
// challenge, not as an error: only transport problems are errors.
func (v *CaptchaVerifier) Verify(ctx context.Context, token string) (bool, error) {
	body, err := json.Marshal(captchaVerifyRequest{Token: token})
	if err != nil {
		return false, fmt.Errorf("failed to marshal captcha request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha verification request failed: %w", err)
	}
	defer resp.Body.Close()

	var result captchaVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode captcha response: %w", err)
	}
	return result.Success, nil
}
