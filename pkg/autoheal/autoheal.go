package autoheal

import (
	"crypto/sha3"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/xi-lua/sentinel/pkg/chainlog"
	"github.com/xi-lua/sentinel/pkg/errs"
	"github.com/xi-lua/sentinel/pkg/keymanager"
	"github.com/xi-lua/sentinel/pkg/killswitch"
	"github.com/xi-lua/sentinel/pkg/log"
	"github.com/xi-lua/sentinel/pkg/types"
)

// Options configures a new AutoHeal.
type Options struct {
	ChainLogPath        string
	MasterKeyPath       string
	RotationInterval    time.Duration
	KillSwitchThreshold int
	KillSwitchWindow    time.Duration
}

// AutoHeal combines the chain log, key manager, and kill-switch behind a
// single encrypt/decrypt/sign/verify/report/status surface. Construct with
// Open; the zero value is not usable.
type AutoHeal struct {
	chain *chainlog.Log
	keys  *keymanager.Manager
	trip  *killswitch.Switch
}

// Open wires the three subsystems together: key rotations and kill-switch
// events are mirrored onto the chain log via callbacks set up here, so
// none of the three packages needs to import another.
func Open(opts Options) (*AutoHeal, error) {
	chain, err := chainlog.Open(opts.ChainLogPath)
	if err != nil {
		return nil, err
	}

	a := &AutoHeal{chain: chain}

	a.trip = killswitch.New(killswitch.Options{
		Threshold: opts.KillSwitchThreshold,
		Window:    opts.KillSwitchWindow,
		OnEvent:   a.logToChain,
	})

	keys, err := keymanager.Open(keymanager.Options{
		MasterKeyPath:    opts.MasterKeyPath,
		RotationInterval: opts.RotationInterval,
		OnRotate:         a.logRotation,
		OnRotationFailure: func(rotErr error) {
			a.trip.Report("rotation_failure", types.Metadata{"error": rotErr.Error()})
		},
	})
	if err != nil {
		return nil, err
	}
	a.keys = keys

	return a, nil
}

// LogEvent appends an arbitrary event to the audit chain. Used by the
// Unified Monitor to record recalibrations and other non-suspicious
// state transitions that still belong on the tamper-evident record.
func (a *AutoHeal) LogEvent(event string, metadata types.Metadata) {
	a.logToChain(event, metadata)
}

func (a *AutoHeal) logToChain(event string, metadata types.Metadata) {
	if _, err := a.chain.Append(event, metadata); err != nil {
		log.WithComponent("autoheal").Error().Err(err).Str("event", event).Msg("failed to append event to chain")
	}
}

// logRotation appends spec's "Key rotation #N" event. The raw key and
// salt are never logged, only truncated SHA3-256 hashes of each, matching
// the original implementation's key_hash[:16] truncation.
func (a *AutoHeal) logRotation(count uint64, key, salt []byte, createdAt, validUntil time.Time) {
	keyHash := sha3.Sum256(key)
	saltHash := sha3.Sum256(salt)
	a.logToChain(fmt.Sprintf("Key rotation #%d", count), types.Metadata{
		"rotation_index": count,
		"key_hash_sha3":  hex.EncodeToString(keyHash[:])[:16],
		"salt_hash":      hex.EncodeToString(saltHash[:])[:16],
		"valid_until":    validUntil.Format(time.RFC3339Nano),
	})
}

// Start launches the background key-rotation loop. Idempotent.
func (a *AutoHeal) Start() {
	a.keys.Start()
}

// Stop halts the background key-rotation loop and logs a shutdown entry.
// Safe to call more than once; each call appends its own shutdown entry.
func (a *AutoHeal) Stop() {
	a.keys.Stop()
	a.logToChain("autoheal_stopped", nil)
}

// checkTripped refuses any security-sensitive operation once the
// kill-switch has activated, per the invariant that follows activate().
func (a *AutoHeal) checkTripped() error {
	return a.trip.Check()
}

// Check is the exported form of the kill-switch guard, for callers
// outside this package (the core's admission path, the Unified Monitor)
// that need to refuse work without going through Encrypt/Decrypt/Sign/
// Verify.
func (a *AutoHeal) Check() error {
	return a.checkTripped()
}

// Encrypt seals plaintext under the current ephemeral key.
func (a *AutoHeal) Encrypt(plaintext []byte) ([]byte, error) {
	if err := a.checkTripped(); err != nil {
		return nil, err
	}
	return a.keys.Encrypt(plaintext)
}

// Decrypt opens data sealed by Encrypt.
func (a *AutoHeal) Decrypt(data []byte) ([]byte, error) {
	if err := a.checkTripped(); err != nil {
		return nil, err
	}
	return a.keys.Decrypt(data)
}

// Sign produces an HMAC-SHA3-256 tag over data.
func (a *AutoHeal) Sign(data []byte) ([]byte, error) {
	if err := a.checkTripped(); err != nil {
		return nil, err
	}
	return a.keys.Sign(data)
}

// Verify checks an HMAC-SHA3-256 tag against data.
func (a *AutoHeal) Verify(data, tag []byte) error {
	if err := a.checkTripped(); err != nil {
		return err
	}
	return a.keys.Verify(data, tag)
}

// ForceRotate rotates the ephemeral key immediately, outside schedule.
func (a *AutoHeal) ForceRotate() error {
	if err := a.checkTripped(); err != nil {
		return err
	}
	return a.keys.ForceRotate()
}

// Report records a suspicious event and trips the kill-switch if the
// trailing window now holds the configured threshold or more.
func (a *AutoHeal) Report(eventType string, details types.Metadata) bool {
	return a.trip.Report(eventType, details)
}

// VerifyChain recomputes every root in the audit chain and reports whether
// it's intact. A false result without an error means tampering was
// detected, not that verification itself failed.
func (a *AutoHeal) VerifyChain() (bool, error) {
	return a.chain.Verify()
}

// Status assembles the current AutoHeal view for the Unified Monitor and
// the `xictl status` subcommand.
func (a *AutoHeal) Status() (types.AutoHealStatus, error) {
	intact, err := a.chain.Verify()
	if err != nil {
		return types.AutoHealStatus{}, fmt.Errorf("%w: %v", errs.ErrChainIntegrity, err)
	}
	return types.AutoHealStatus{
		Active:         a.trip.Armed(),
		RotationCount:  a.keys.RotationCount(),
		CurrentKeyAge:  a.keys.KeyAge(),
		MerkleRoot:     a.chain.CurrentRoot(),
		ChainLength:    a.chain.Len(),
		ChainIntegrity: intact,
	}, nil
}

// Close flushes and closes the underlying chain log file. Call after Stop.
func (a *AutoHeal) Close() error {
	return a.chain.Close()
}
