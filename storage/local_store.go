package storage

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names for the device-local state the client persists across
// restarts. Attempt counters are keyed by device, not by wallet identity.
const (
	BucketCaptchaAttempts   = "captcha_attempts"
	BucketBiometricAttempts = "biometric_attempts"
)

// LocalStore is the device-local key-value store. Verification widgets get
// handed an explicit counter bucket instead of reaching for global state.
type LocalStore struct {
	db *bolt.DB
}

// Open opens (or creates) the store file and ensures the known buckets
// exist.
func Open(path string) (*LocalStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{BucketCaptchaAttempts, BucketBiometricAttempts} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &LocalStore{db: db}, nil
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// CounterBucket returns a counter view over one bucket.
func (s *LocalStore) CounterBucket(name string) *CounterBucket {
	return &CounterBucket{db: s.db, bucket: []byte(name)}
}

// CounterBucket is a named set of persistent counters.
type CounterBucket struct {
	db     *bolt.DB
	bucket []byte
}

// Counter returns the stored value for key, zero when absent.
func (c *CounterBucket) Counter(key string) (int, error) {
	var value int
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return fmt.Errorf("bucket %s does not exist", c.bucket)
		}
		if data := b.Get([]byte(key)); data != nil {
			value = int(binary.BigEndian.Uint64(data))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// SetCounter stores an absolute value for key.
func (c *CounterBucket) SetCounter(key string, value int) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return fmt.Errorf("bucket %s does not exist", c.bucket)
		}
		var data [8]byte
		binary.BigEndian.PutUint64(data[:], uint64(value))
		return b.Put([]byte(key), data[:])
	})
}

// Increment adds one to the counter for key and returns the new value.
func (c *CounterBucket) Increment(key string) (int, error) {
	var value int
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return fmt.Errorf("bucket %s does not exist", c.bucket)
		}
		if data := b.Get([]byte(key)); data != nil {
			value = int(binary.BigEndian.Uint64(data))
		}
		value++
		var data [8]byte
		binary.BigEndian.PutUint64(data[:], uint64(value))
		return b.Put([]byte(key), data[:])
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}
