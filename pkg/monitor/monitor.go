package monitor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xi-lua/sentinel/pkg/autoheal"
	"github.com/xi-lua/sentinel/pkg/log"
	"github.com/xi-lua/sentinel/pkg/metrics"
	"github.com/xi-lua/sentinel/pkg/omegagate"
	"github.com/xi-lua/sentinel/pkg/stabilizer"
	"github.com/xi-lua/sentinel/pkg/types"
)

// defaultSuspiciousTypes mirrors the original implementation's hardcoded
// set; AddSuspiciousType extends it rather than replacing it.
var defaultSuspiciousTypes = []string{
	"failed_auth",
	"invalid_signature",
	"rate_limit_exceeded",
	"unauthorized_access",
	"tampering_detected",
}

// Options configures a new Monitor.
type Options struct {
	Interval time.Duration // defaults to 5s if zero
}

// Monitor is the Unified Monitor: a periodic supervisor tying AutoHeal,
// Stabilizer-Recal, and Ω-Gate together. The zero value is not usable;
// construct with New.
type Monitor struct {
	instanceID string
	heal       *autoheal.AutoHeal
	stabilizer *stabilizer.Stabilizer
	gate       *omegagate.Gate
	interval   time.Duration

	mu              sync.Mutex
	suspiciousTypes map[string]struct{}
	lastRecalCount  uint64
	totalEvents     uint64
	securityEvents  uint64
	startedAt       time.Time

	lifecycleMu sync.Mutex
	running     bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// New constructs a Monitor supervising the given components.
func New(heal *autoheal.AutoHeal, stab *stabilizer.Stabilizer, gate *omegagate.Gate, opts Options) *Monitor {
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	suspicious := make(map[string]struct{}, len(defaultSuspiciousTypes))
	for _, t := range defaultSuspiciousTypes {
		suspicious[t] = struct{}{}
	}

	return &Monitor{
		instanceID:      uuid.New().String(),
		heal:            heal,
		stabilizer:      stab,
		gate:            gate,
		interval:        interval,
		suspiciousTypes: suspicious,
	}
}

// AddSuspiciousType extends the set of event types that ReportEvent
// forwards to AutoHeal's kill-switch. The default set
// (failed_auth, invalid_signature, rate_limit_exceeded,
// unauthorized_access, tampering_detected) is kept, not replaced.
func (m *Monitor) AddSuspiciousType(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspiciousTypes[eventType] = struct{}{}
}

// Start launches the background supervisory loop. Idempotent.
func (m *Monitor) Start() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Lock()
	m.startedAt = time.Now()
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop(m.stopCh)
}

// Stop halts the supervisory loop, joins the worker, and logs a shutdown
// entry to the audit chain. Idempotent.
func (m *Monitor) Stop() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if !m.running {
		return
	}
	close(m.stopCh)
	m.wg.Wait()
	m.running = false
	m.heal.LogEvent("monitor_stopped", types.Metadata{"instance_id": m.instanceID})
}

func (m *Monitor) loop(stopCh chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick runs one supervisory cycle: checks AutoHeal's own health, watches
// for sustained CVaR risk, and mirrors Stabilizer recalibrations onto the
// audit chain.
func (m *Monitor) tick() {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.MonitorCycleDuration)
		metrics.MonitorCyclesTotal.Inc()
	}()

	logger := log.WithComponent("monitor")

	status, err := m.heal.Status()
	if err != nil {
		logger.Error().Err(err).Msg("autoheal status check failed")
		return
	}
	metrics.ChainLength.Set(float64(status.ChainLength))
	if status.Active {
		metrics.KillSwitchTripped.Set(0)
	} else {
		metrics.KillSwitchTripped.Set(1)
		go m.Stop()
		return
	}

	if !status.ChainIntegrity {
		m.reportInternalSuspicious("chain_integrity_failure", types.Metadata{"merkle_root": status.MerkleRoot})
		metrics.ChainIntegrityFailures.Inc()
	}

	state := m.stabilizer.State()
	metrics.StabilizerPsiTarget.Set(state.PsiTarget)
	metrics.StabilizerPriceMultiplier.Set(state.PriceMultiplier)
	if state.AttackMode {
		metrics.StabilizerAttackMode.Set(1)
	} else {
		metrics.StabilizerAttackMode.Set(0)
	}
	if state.CVaR > stabilizer.CVaRHi {
		m.reportInternalSuspicious("high_cvar", types.Metadata{
			"cvar":   state.CVaR,
			"psi":    state.PsiTarget,
			"price":  state.PriceMultiplier,
			"attack": state.AttackMode,
		})
	}

	m.mu.Lock()
	lastCount := m.lastRecalCount
	m.lastRecalCount = state.RecalibrationCount
	m.mu.Unlock()
	if state.RecalibrationCount > lastCount {
		m.heal.LogEvent("recalibration", types.Metadata{
			"count":            state.RecalibrationCount,
			"psi_target":       state.PsiTarget,
			"price_multiplier": state.PriceMultiplier,
		})
		metrics.StabilizerRecalibrationsTotal.Inc()
	}

	components := m.gate.Compute()
	metrics.OmegaScore.Set(components.Omega)
	metrics.OmegaComponents.WithLabelValues("cvar").Set(components.CVaR)
	metrics.OmegaComponents.WithLabelValues("beta").Set(components.Beta)
	metrics.OmegaComponents.WithLabelValues("err_5m").Set(components.Err5m)
	metrics.OmegaComponents.WithLabelValues("idem").Set(components.Idem)
}

// reportInternalSuspicious escalates a finding made by tick() itself
// (chain tampering, sustained CVaR) straight to AutoHeal's kill-switch,
// unconditionally and regardless of the suspicious-type set: that set
// exists only to filter caller-injected events coming through
// ReportEvent, not the supervisor's own checks.
func (m *Monitor) reportInternalSuspicious(eventType string, details types.Metadata) {
	m.mu.Lock()
	m.totalEvents++
	m.securityEvents++
	m.mu.Unlock()

	m.heal.Report(eventType, details)
	metrics.SuspiciousEventsTotal.WithLabelValues(eventType).Inc()
}

// ReportEvent injects an event. Events named in the suspicious-type set
// are forwarded to AutoHeal's kill-switch; everything else is counted
// toward the monitor's own event tallies and appended to the audit chain.
func (m *Monitor) ReportEvent(eventType string, details types.Metadata) {
	m.mu.Lock()
	m.totalEvents++
	_, suspicious := m.suspiciousTypes[eventType]
	if suspicious {
		m.securityEvents++
	}
	m.mu.Unlock()

	if suspicious {
		m.heal.Report(eventType, details)
		metrics.SuspiciousEventsTotal.WithLabelValues(eventType).Inc()
	} else {
		m.heal.LogEvent(eventType, details)
	}
}

// GetStatus assembles the Unified Monitor's published status snapshot.
func (m *Monitor) GetStatus() (types.StatusSnapshot, error) {
	status, err := m.heal.Status()
	if err != nil {
		return types.StatusSnapshot{}, err
	}
	state := m.stabilizer.State()
	components := m.gate.Compute()

	m.mu.Lock()
	running := m.running
	uptime := time.Duration(0)
	if running {
		uptime = time.Since(m.startedAt)
	}
	totalEvents := m.totalEvents
	securityEvents := m.securityEvents
	m.mu.Unlock()

	var snap types.StatusSnapshot
	snap.InstanceID = m.instanceID
	snap.Monitor.Running = running
	snap.Monitor.UptimeSeconds = uptime.Seconds()
	snap.Monitor.TotalEvents = totalEvents
	snap.Monitor.SecurityEvents = securityEvents
	snap.Monitor.Recalibrations = state.RecalibrationCount

	snap.AutoHeal.Status = "ACTIVE"
	if !status.Active {
		snap.AutoHeal.Status = "TRIPPED"
	}
	snap.AutoHeal.RotationCount = status.RotationCount
	snap.AutoHeal.KeyAgeSeconds = int64(status.CurrentKeyAge.Seconds())
	snap.AutoHeal.MerkleRoot = status.MerkleRoot
	snap.AutoHeal.ChainLength = status.ChainLength
	snap.AutoHeal.ChainIntegrity = status.ChainIntegrity

	mode := "normal"
	if state.AttackMode {
		mode = "attack"
	}
	snap.Stabilizer.Mode = mode
	snap.Stabilizer.PsiTarget = state.PsiTarget
	snap.Stabilizer.CVaR = state.CVaR
	snap.Stabilizer.PriceMultiplier = state.PriceMultiplier
	snap.Stabilizer.RecalibrationCount = state.RecalibrationCount

	snap.OmegaGate.Omega = components.Omega
	snap.OmegaGate.Threshold = m.gate.Threshold()
	snap.OmegaGate.Pass = components.Omega >= m.gate.Threshold()

	return snap, nil
}

// IsRunning reports whether the supervisory loop is currently active.
func (m *Monitor) IsRunning() bool {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	return m.running
}

// SimulateAttack feeds a fixed CVaR into the Stabilizer repeatedly for
// duration, reporting a "simulated_attack" event for the run. Useful for
// operational drills and tests, mirroring the original implementation's
// simulate_attack helper.
func (m *Monitor) SimulateAttack(duration time.Duration, cvar float64) {
	m.ReportEvent("simulated_attack", types.Metadata{
		"cvar":          cvar,
		"duration_secs": duration.Seconds(),
	})

	deadline := time.Now().Add(duration)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		m.stabilizer.UpdateCVaR(cvar)
		if !time.Now().Before(deadline) {
			return
		}
		<-ticker.C
	}
}
