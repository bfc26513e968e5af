package core

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xi-lua/sentinel/pkg/config"
	"github.com/xi-lua/sentinel/pkg/errs"
	"github.com/xi-lua/sentinel/pkg/omegagate"
	"github.com/xi-lua/sentinel/pkg/types"
)

func testCore(t *testing.T) *Core {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		RotationInterval:    time.Hour,
		KillSwitchThreshold: 3,
		KillSwitchWindow:    time.Minute,
		MonitorInterval:     20 * time.Millisecond,
		ChainLogPath:        filepath.Join(dir, "chain.log"),
		MasterKeyPath:       filepath.Join(dir, "master.key"),
		LogLevel:            "info",
	}
	c, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { c.Stop(); c.Close() })
	return c
}

func TestAdmitPassesOnPerfectStream(t *testing.T) {
	c := testCore(t)
	for i := 0; i < 100; i++ {
		c.RecordValidation(true)
		c.RecordWebhook(true)
	}
	components, err := c.Admit("test_action", 1.0, nil)
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if components.Omega < omegagate.DefaultThreshold {
		t.Errorf("Omega = %v, want >= %v", components.Omega, omegagate.DefaultThreshold)
	}
}

func TestAdmitFailsOnTailRiskBurst(t *testing.T) {
	c := testCore(t)
	for i := 0; i < 95; i++ {
		c.Gate.RecordAction("a", 1.0)
	}
	var components types.Components
	var err error
	for i := 0; i < 5; i++ {
		components, err = c.Admit("a", 0.10, nil)
	}
	if !errors.Is(err, errs.ErrAdmissionDenied) {
		t.Fatalf("Admit() err = %v, want ErrAdmissionDenied", err)
	}
	if components.Omega >= omegagate.DefaultThreshold {
		t.Errorf("Omega = %v, want below threshold after tail-risk burst", components.Omega)
	}
}

func TestAdmitRefusesAfterKillSwitchTrip(t *testing.T) {
	c := testCore(t)
	c.Heal.Report("failed_auth", types.Metadata{})
	c.Heal.Report("failed_auth", types.Metadata{})
	c.Heal.Report("failed_auth", types.Metadata{})

	if _, err := c.Admit("x", 1.0, nil); !errors.Is(err, errs.ErrKillSwitchTripped) {
		t.Errorf("Admit() after trip: err = %v, want ErrKillSwitchTripped", err)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := testCore(t)
	plaintext := []byte("core round trip")

	ciphertext, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	got, err := c.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if string(got) != string(plaintext) {
		t.Errorf("Decrypt() = %q, want %q", got, plaintext)
	}
}

func TestStatusAndThermodynamicStateAreConsistent(t *testing.T) {
	c := testCore(t)
	c.Admit("warmup", 0.95, nil)

	status, err := c.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.AutoHeal.Status != "ACTIVE" {
		t.Errorf("AutoHeal.Status = %q, want ACTIVE", status.AutoHeal.Status)
	}

	thermoState := c.ThermodynamicState(1e10, 10)
	if thermoState.Psi < 0 || thermoState.Psi > 1 {
		t.Errorf("Psi = %v, want within [0,1]", thermoState.Psi)
	}
}

func TestStartStopIsIdempotent(t *testing.T) {
	c := testCore(t)
	c.Start()
	c.Start()
	time.Sleep(30 * time.Millisecond)
	c.Stop()
	c.Stop()
}
