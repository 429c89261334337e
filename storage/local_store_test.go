package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func openTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "client.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCounterBucket(t *testing.T) {
	assert := assert.New(t)

	store := openTestStore(t)
	counters := store.CounterBucket(BucketCaptchaAttempts)

	value, err := counters.Counter("device")
	assert.NoError(err)
	assert.Equal(0, value)

	value, err = counters.Increment("device")
	assert.NoError(err)
	assert.Equal(1, value)

	value, err = counters.Increment("device")
	assert.NoError(err)
	assert.Equal(2, value)

	assert.NoError(counters.SetCounter("device", 0))
	value, _ = counters.Counter("device")
	assert.Equal(0, value)
}

func TestCounterBucketsAreIsolated(t *testing.T) {
	assert := assert.New(t)

	store := openTestStore(t)
	captcha := store.CounterBucket(BucketCaptchaAttempts)
	biometric := store.CounterBucket(BucketBiometricAttempts)

	_, err := captcha.Increment("device")
	assert.NoError(err)

	value, err := biometric.Counter("device")
	assert.NoError(err)
	assert.Equal(0, value)
}

func TestCountersSurviveReopen(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "client.db")

	store, err := Open(path)
	assert.NoError(err)
	_, err = store.CounterBucket(BucketCaptchaAttempts).Increment("device")
	assert.NoError(err)
	assert.NoError(store.Close())

	reopened, err := Open(path)
	assert.NoError(err)
	defer reopened.Close()

	value, err := reopened.CounterBucket(BucketCaptchaAttempts).Counter("device")
	assert.NoError(err)
	assert.Equal(1, value)
}
