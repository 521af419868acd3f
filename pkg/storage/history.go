// Package storage persists the comparison history to disk.
// The history file can be encrypted at rest using NaCl secretbox
// with a key derived from machine-specific information.
package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mljr/facematch/pkg/logging"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// NonceSize is the size of the nonce used for encryption.
	NonceSize = 24
	// KeySize is the size of the encryption key.
	KeySize = 32
)

// ErrEncryption is returned when encryption or decryption fails.
var ErrEncryption = errors.New("encryption error")

// Record is one finished comparison.
type Record struct {
	Time       time.Time `json:"time"`
	SessionID  string    `json:"session_id"`
	Distance   float64   `json:"distance"`
	Similarity float64   `json:"similarity"`
	Match      bool      `json:"match"`
}

// HistoryStore keeps recent comparison records in a single file.
type HistoryStore struct {
	path              string
	limit             int
	encryptionEnabled bool
	encryptionKey     [KeySize]byte
	mu                sync.Mutex
}

// NewHistoryStore creates a HistoryStore writing to path, keeping at
// most limit records. With limit 0 nothing is persisted.
func NewHistoryStore(path string, limit int, encryptionEnabled bool) (*HistoryStore, error) {
	hs := &HistoryStore{
		path:              path,
		limit:             limit,
		encryptionEnabled: encryptionEnabled,
	}

	if encryptionEnabled {
		key, err := deriveKey()
		if err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		hs.encryptionKey = key
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	return hs, nil
}

// deriveKey derives an encryption key from machine-specific information,
// tying the history file to this machine.
func deriveKey() ([KeySize]byte, error) {
	var key [KeySize]byte
	var identity strings.Builder

	if machineID, err := os.ReadFile("/etc/machine-id"); err == nil {
		identity.Write(machineID)
	}
	if hostname, err := os.Hostname(); err == nil {
		identity.WriteString(hostname)
	}
	identity.WriteString(fmt.Sprintf("%d", os.Getuid()))
	identity.WriteString("facematch-v1-salt")

	hash := sha256.Sum256([]byte(identity.String()))
	copy(key[:], hash[:])

	return key, nil
}

// Append adds a record and trims the file to the configured limit.
func (hs *HistoryStore) Append(rec Record) error {
	if hs.limit == 0 {
		return nil
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	records, err := hs.loadLocked()
	if err != nil {
		return err
	}

	records = append(records, rec)
	if len(records) > hs.limit {
		records = records[len(records)-hs.limit:]
	}

	return hs.saveLocked(records)
}

// List returns all stored records, oldest first.
func (hs *HistoryStore) List() ([]Record, error) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.loadLocked()
}

// Clear removes the history file.
func (hs *HistoryStore) Clear() error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if err := os.Remove(hs.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (hs *HistoryStore) loadLocked() ([]Record, error) {
	data, err := os.ReadFile(hs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	if hs.encryptionEnabled {
		data, err = hs.decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt history: %w", err)
		}
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return records, nil
}

func (hs *HistoryStore) saveLocked(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if hs.encryptionEnabled {
		data, err = hs.encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt history: %w", err)
		}
	}

	if err := os.WriteFile(hs.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	logging.Debugf("Saved %d history record(s)", len(records))
	return nil
}

// encrypt encrypts data using NaCl secretbox.
func (hs *HistoryStore) encrypt(plaintext []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &hs.encryptionKey), nil
}

// decrypt decrypts data using NaCl secretbox.
func (hs *HistoryStore) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, ErrEncryption
	}

	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[NonceSize:], &nonce, &hs.encryptionKey)
	if !ok {
		return nil, ErrEncryption
	}

	return plaintext, nil
}
