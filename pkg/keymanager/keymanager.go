package keymanager

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha3"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xi-lua/sentinel/pkg/errs"
	"github.com/xi-lua/sentinel/pkg/log"
)

const (
	masterKeySize = 32 // 256 bits, for AES-256 and HMAC-SHA3-256 alike
	saltSize      = 32 // 32 fresh random bytes per rotation
)

// RotationFailureFunc is called whenever a scheduled rotation fails after
// its retries are exhausted. Wired by the AutoHeal facade to the
// kill-switch's report path, so repeated rotation failures count as
// suspicious activity. May be nil.
type RotationFailureFunc func(err error)

// RotateFunc is called synchronously after every successful rotation
// (initial derivation included) with the derived key, the salt it came
// from, when it was created, and when it expires. Callers never see the
// master key itself.
type RotateFunc func(count uint64, key, salt []byte, createdAt, validUntil time.Time)

// Manager derives and rotates ephemeral AEAD/signing keys from a single
// long-lived master key. The zero value is not usable; construct with
// Open or New.
type Manager struct {
	mu sync.RWMutex

	masterKey []byte
	salt      []byte
	current   []byte
	createdAt time.Time

	rotationInterval time.Duration
	rotationCount    uint64

	onRotationFailure RotationFailureFunc
	onRotate          RotateFunc

	lifecycleMu sync.Mutex
	running     bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// Options configures a new Manager.
type Options struct {
	// MasterKeyPath is where the long-lived master key is stored. If the
	// file doesn't exist, a fresh 32-byte key is generated and written
	// there with 0600 permissions.
	MasterKeyPath string

	// RotationInterval is how often the ephemeral key rotates. Defaults
	// to 300 seconds if zero.
	RotationInterval time.Duration

	// OnRotationFailure, if set, is invoked when a scheduled rotation
	// fails.
	OnRotationFailure RotationFailureFunc

	// OnRotate, if set, is invoked synchronously after every successful
	// rotation (initial key generation included), so callers can log the
	// event to the chain without this package depending on chainlog.
	OnRotate RotateFunc
}

// Open loads the master key from opts.MasterKeyPath (generating one if
// absent) and performs the first key derivation. The background rotation
// loop is not started; call Start for that.
func Open(opts Options) (*Manager, error) {
	interval := opts.RotationInterval
	if interval <= 0 {
		interval = 300 * time.Second
	}

	masterKey, err := loadOrCreateMasterKey(opts.MasterKeyPath)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		masterKey:         masterKey,
		rotationInterval:  interval,
		onRotationFailure: opts.OnRotationFailure,
		onRotate:          opts.OnRotate,
		stopCh:            make(chan struct{}),
	}

	if err := m.rotate(); err != nil {
		return nil, fmt.Errorf("keymanager: initial key derivation: %w", err)
	}

	return m, nil
}

func loadOrCreateMasterKey(path string) ([]byte, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: resolve home dir: %v", errs.ErrConfig, err)
		}
		path = filepath.Join(home, ".xi-lua", "master.key")
	}

	if data, err := os.ReadFile(path); err == nil {
		key, decErr := hex.DecodeString(string(trimNewline(data)))
		if decErr != nil || len(key) != masterKeySize {
			return nil, fmt.Errorf("%w: master key at %s is malformed", errs.ErrConfig, path)
		}
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("keymanager: read master key: %w", err)
	}

	key := make([]byte, masterKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("keymanager: generate master key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("keymanager: create master key dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("keymanager: write master key: %w", err)
	}

	return key, nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

// Start launches the background rotation loop. Idempotent: a second call
// while already running is a no-op.
func (m *Manager) Start() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})

	m.wg.Add(1)
	go m.rotationLoop(m.stopCh)
}

// Stop halts the background rotation loop. Idempotent.
func (m *Manager) Stop() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if !m.running {
		return
	}
	close(m.stopCh)
	m.wg.Wait()
	m.running = false
}

func (m *Manager) rotationLoop(stopCh chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.rotationInterval)
	defer ticker.Stop()

	logger := log.WithComponent("keymanager")
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			err := m.rotate()
			deadline := time.Now().Add(m.rotationInterval)
			for backoff := time.Second; err != nil && time.Now().Add(backoff).Before(deadline); backoff *= 2 {
				logger.Warn().Err(err).Dur("backoff", backoff).Msg("key rotation failed, retrying")
				select {
				case <-stopCh:
					return
				case <-time.After(backoff):
				}
				err = m.rotate()
			}
			if err != nil {
				logger.Error().Err(err).Msg("scheduled key rotation failed")
				if m.onRotationFailure != nil {
					m.onRotationFailure(fmt.Errorf("%w: %v", errs.ErrRotationStalled, err))
				}
			}
		}
	}
}

// rotate derives a fresh ephemeral key from a new random salt and swaps it
// in under the write lock.
func (m *Manager) rotate() error {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	m.mu.Lock()
	derived := deriveKey(m.masterKey, salt)
	m.current = derived
	m.salt = salt
	m.createdAt = time.Now().UTC()
	m.rotationCount++
	count := m.rotationCount
	createdAt := m.createdAt
	interval := m.rotationInterval
	m.mu.Unlock()

	if m.onRotate != nil {
		m.onRotate(count, derived, salt, createdAt, createdAt.Add(interval))
	}
	return nil
}

// ForceRotate rotates immediately, outside the regular schedule. Used by
// the CLI's rotate subcommand and by callers reacting to a key-expired
// condition.
func (m *Manager) ForceRotate() error {
	return m.rotate()
}

func deriveKey(masterKey, salt []byte) []byte {
	h := sha3.New256()
	h.Write(masterKey)
	h.Write(salt)
	return h.Sum(nil)
}

// snapshot returns the current key and ensures it hasn't silently expired
// past its rotation interval; if it has, it rotates before returning.
func (m *Manager) snapshot() ([]byte, error) {
	m.mu.RLock()
	key := m.current
	age := time.Since(m.createdAt)
	m.mu.RUnlock()

	if age <= m.rotationInterval {
		return key, nil
	}

	if err := m.rotate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, nil
}

// Encrypt seals plaintext under the current ephemeral key with AES-256-GCM.
// The output is nonce || ciphertext || tag.
func (m *Manager) Encrypt(plaintext []byte) ([]byte, error) {
	key, err := m.snapshot()
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("keymanager: generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens data sealed by Encrypt. A failed authentication tag yields
// errs.ErrAuthFailure.
func (m *Manager) Decrypt(data []byte) ([]byte, error) {
	key, err := m.snapshot()
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", errs.ErrAuthFailure)
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrAuthFailure, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("keymanager: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("keymanager: new gcm: %w", err)
	}
	return gcm, nil
}

// Sign produces an HMAC-SHA3-256 tag over data using the current ephemeral
// key.
func (m *Manager) Sign(data []byte) ([]byte, error) {
	key, err := m.snapshot()
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha3.New256, key)
	mac.Write(data)
	return mac.Sum(nil), nil
}

// Verify checks an HMAC-SHA3-256 tag against data in constant time.
// Returns errs.ErrAuthFailure on mismatch.
func (m *Manager) Verify(data, tag []byte) error {
	expected, err := m.Sign(data)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(expected, tag) != 1 {
		return errs.ErrAuthFailure
	}
	return nil
}

// RotationCount returns how many times the key has rotated, including the
// initial derivation at construction.
func (m *Manager) RotationCount() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rotationCount
}

// KeyAge returns how long the current key has been in use.
func (m *Manager) KeyAge() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Since(m.createdAt)
}
