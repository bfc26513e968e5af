package keymanager

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	m, err := Open(Options{
		MasterKeyPath:    filepath.Join(dir, "master.key"),
		RotationInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return m
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	m := testManager(t)
	plaintext := []byte("Secret message from Xi-LUA")

	ciphertext, err := m.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("Encrypt() returned plaintext unchanged")
	}

	got, err := m.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Decrypt() = %q, want %q", got, plaintext)
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	m := testManager(t)
	ciphertext, err := m.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xFF

	if _, err := m.Decrypt(ciphertext); err == nil {
		t.Fatal("Decrypt() succeeded on tampered ciphertext")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	m := testManager(t)
	data := []byte("admit this action")

	tag, err := m.Sign(data)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if err := m.Verify(data, tag); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}

	if err := m.Verify([]byte("admit a different action"), tag); err == nil {
		t.Error("Verify() succeeded against mismatched data")
	}
}

func TestForceRotateChangesKey(t *testing.T) {
	m := testManager(t)
	before, err := m.Sign([]byte("probe"))
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if err := m.ForceRotate(); err != nil {
		t.Fatalf("ForceRotate() error = %v", err)
	}

	after, err := m.Sign([]byte("probe"))
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if bytes.Equal(before, after) {
		t.Fatal("ForceRotate() did not change the derived key")
	}
	if m.RotationCount() != 2 {
		t.Errorf("RotationCount() = %d, want 2", m.RotationCount())
	}
}

func TestOnRotateCallbackFires(t *testing.T) {
	dir := t.TempDir()
	var calls int
	m, err := Open(Options{
		MasterKeyPath:    filepath.Join(dir, "master.key"),
		RotationInterval: time.Hour,
		OnRotate: func(count uint64, key, salt []byte, createdAt, validUntil time.Time) {
			calls++
		},
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("OnRotate calls after Open() = %d, want 1", calls)
	}

	if err := m.ForceRotate(); err != nil {
		t.Fatalf("ForceRotate() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("OnRotate calls after ForceRotate() = %d, want 2", calls)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	m := testManager(t)
	m.Start()
	m.Start()
	m.Stop()
	m.Stop()
}
