package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"voting-client/models"
)

func TestLogin(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/login", r.URL.Path)
		assert.Equal(http.MethodPost, r.Method)

		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		assert.Equal("0xabc", req["address"])

		json.NewEncoder(w).Encode(models.UserProfile{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	profile, err := client.Login(context.Background(), "0xabc")
	assert.NoError(err)
	assert.Equal("Ada", profile.FirstName)
	assert.Equal("ada@example.com", profile.Email)
}

func TestLoginNotRegistered(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.Login(context.Background(), "0xabc")
	assert.ErrorIs(err, ErrNotRegistered)
}

func TestLoginServerError(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.Login(context.Background(), "0xabc")
	assert.Error(err)
	assert.NotErrorIs(err, ErrNotRegistered)
}

func TestRegister(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/register", r.URL.Path)

		var req RegisterRequest
		json.NewDecoder(r.Body).Decode(&req)
		assert.Equal("0xabc", req.WalletAddress)
		assert.Equal("Ada", req.FirstName)
		assert.NotEmpty(req.BiometricImage)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.UserProfile{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	profile, err := client.Register(context.Background(), RegisterRequest{
		WalletAddress:  "0xabc",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		BiometricImage: "base64-jpeg",
	})
	assert.NoError(err)
	assert.Equal("Lovelace", profile.LastName)
}

func TestBiometricAuth(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/biometric_auth", r.URL.Path)
		json.NewEncoder(w).Encode(BiometricAuthResult{IsMatch: true, FaceMatchScore: 0.91, SpoofingScore: 0.02})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	result, err := client.BiometricAuth(context.Background(), "0xabc", "image")
	assert.NoError(err)
	assert.True(result.IsMatch)
	assert.Equal(0.91, result.FaceMatchScore)
}

func TestCaptchaVerifier(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)

		success := req["token"] == "good"
		json.NewEncoder(w).Encode(map[string]bool{"success": success})
	}))
	defer server.Close()

	verifier := NewCaptchaVerifier(server.URL, nil)

	ok, err := verifier.Verify(context.Background(), "good")
	assert.NoError(err)
	assert.True(ok)

	ok, err = verifier.Verify(context.Background(), "bad")
	assert.NoError(err)
	assert.False(ok)
}
