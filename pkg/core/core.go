package core

import (
	"fmt"
	"time"

	"github.com/xi-lua/sentinel/pkg/autoheal"
	"github.com/xi-lua/sentinel/pkg/config"
	"github.com/xi-lua/sentinel/pkg/errs"
	"github.com/xi-lua/sentinel/pkg/metrics"
	"github.com/xi-lua/sentinel/pkg/monitor"
	"github.com/xi-lua/sentinel/pkg/omegagate"
	"github.com/xi-lua/sentinel/pkg/stabilizer"
	"github.com/xi-lua/sentinel/pkg/thermo"
	"github.com/xi-lua/sentinel/pkg/types"
)

// Core owns every subsystem and is the one value an embedding program
// needs to construct. The zero value is not usable; construct with Open.
type Core struct {
	Heal       *autoheal.AutoHeal
	Gate       *omegagate.Gate
	Stabilizer *stabilizer.Stabilizer
	Monitor    *monitor.Monitor

	thermo *thermo.Metrics
}

// Open wires a full Core from configuration. Nothing is started yet;
// call Start to launch the rotation and monitor background loops.
func Open(cfg *config.Config) (*Core, error) {
	heal, err := autoheal.Open(autoheal.Options{
		ChainLogPath:        cfg.ChainLogPath,
		MasterKeyPath:       cfg.MasterKeyPath,
		RotationInterval:    cfg.RotationInterval,
		KillSwitchThreshold: cfg.KillSwitchThreshold,
		KillSwitchWindow:    cfg.KillSwitchWindow,
	})
	if err != nil {
		return nil, err
	}

	gate := omegagate.NewWithThreshold(cfg.OmegaThreshold)
	stab := stabilizer.New()
	mon := monitor.New(heal, stab, gate, monitor.Options{Interval: cfg.MonitorInterval})

	return &Core{
		Heal:       heal,
		Gate:       gate,
		Stabilizer: stab,
		Monitor:    mon,
		thermo:     thermo.New(),
	}, nil
}

// Start launches the key-rotation and monitor background loops.
// Idempotent.
func (c *Core) Start() {
	c.Heal.Start()
	c.Monitor.Start()
}

// Stop halts both background loops, each of which appends a shutdown entry
// to the audit chain. Call Close afterward to release the chain log's file
// handle.
func (c *Core) Stop() {
	c.Monitor.Stop()
	c.Heal.Stop()
}

// Close releases the chain log's file handle. Call after Stop.
func (c *Core) Close() error {
	return c.Heal.Close()
}

// Admit records one action's confidence against the Ω-Gate's rolling
// window and the Stabilizer's quality floor, returning the components
// that fed the decision. It refuses with errs.ErrKillSwitchTripped before
// touching either component if AutoHeal has already tripped, and with
// errs.ErrAdmissionDenied if either Ω or the Stabilizer's current
// Ψ-target rejects the action.
func (c *Core) Admit(actionType string, confidence float64, meta types.Metadata) (types.Components, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.AdmitDuration)

	if err := c.Heal.Check(); err != nil {
		return types.Components{}, err
	}

	c.Gate.RecordAction(actionType, confidence)
	pass, components := c.Gate.Check()
	c.Stabilizer.UpdateCVaR(components.CVaR)

	if !pass {
		metrics.OmegaGateDenials.Inc()
		return components, fmt.Errorf("%w: omega=%.4f below threshold=%.2f", errs.ErrAdmissionDenied, components.Omega, c.Gate.Threshold())
	}
	if !c.Stabilizer.ShouldAccept(confidence) {
		metrics.OmegaGateDenials.Inc()
		return components, fmt.Errorf("%w: action quality %.4f below stabilizer psi-target", errs.ErrAdmissionDenied, confidence)
	}

	c.Stabilizer.TryRelax()
	return components, nil
}

// RecordValidation feeds a signature/authentication check result into the
// Ω-Gate's β estimator.
func (c *Core) RecordValidation(valid bool) {
	c.Gate.RecordValidation(valid)
}

// RecordError feeds an error event into the Ω-Gate's ERR_5m estimator.
func (c *Core) RecordError() {
	c.Gate.RecordError()
}

// RecordWebhook feeds a webhook delivery's idempotency outcome into the
// Ω-Gate's Idem estimator.
func (c *Core) RecordWebhook(idempotent bool) {
	c.Gate.RecordWebhook(idempotent)
}

// Encrypt seals plaintext under AutoHeal's current ephemeral key.
func (c *Core) Encrypt(plaintext []byte) ([]byte, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.EncryptDuration)
	return c.Heal.Encrypt(plaintext)
}

// Decrypt opens data sealed by Encrypt.
func (c *Core) Decrypt(data []byte) ([]byte, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DecryptDuration)
	return c.Heal.Decrypt(data)
}

// Sign produces an HMAC-SHA3-256 tag over data.
func (c *Core) Sign(data []byte) ([]byte, error) {
	return c.Heal.Sign(data)
}

// Verify checks an HMAC-SHA3-256 tag against data.
func (c *Core) Verify(data, tag []byte) error {
	return c.Heal.Verify(data, tag)
}

// ForceRotate rotates the ephemeral key immediately, outside schedule.
func (c *Core) ForceRotate() error {
	return c.Heal.ForceRotate()
}

// ReportEvent injects a named event into the Unified Monitor; events in
// the suspicious-type set are escalated to AutoHeal's kill-switch.
func (c *Core) ReportEvent(eventType string, details types.Metadata) {
	c.Monitor.ReportEvent(eventType, details)
}

// Status assembles the Unified Monitor's published status snapshot.
func (c *Core) Status() (types.StatusSnapshot, error) {
	return c.Monitor.GetStatus()
}

// ThermodynamicState derives the reporting-only thermodynamic metric
// vector from the current Ω components and Stabilizer state. Nothing in
// Admit reads this back; it exists purely for observability and drills.
func (c *Core) ThermodynamicState(cumulativeEnergy float64, blocksPassed int) types.ThermodynamicState {
	components := c.Gate.Compute()
	state := c.Stabilizer.State()

	attackStrength := 0.0
	if state.AttackMode && stabilizer.CVaRHi > 0 {
		attackStrength = state.CVaR / stabilizer.CVaRHi
	}

	return c.thermo.ComputeFullState(
		components,
		cumulativeEnergy,
		blocksPassed,
		stabilizer.PsiDefault,
		state.PsiTarget,
		attackStrength,
	)
}

// SimulateAttack drives the Stabilizer with a fixed CVaR for the given
// duration, for operational drills.
func (c *Core) SimulateAttack(duration time.Duration, cvar float64) {
	c.Monitor.SimulateAttack(duration, cvar)
}
