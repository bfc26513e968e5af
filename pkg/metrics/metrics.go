package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ω-Gate metrics
	OmegaScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xi_omega_score",
			Help: "Current Ω confidence score",
		},
	)

	OmegaComponents = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xi_omega_components",
			Help: "Individual Ω components: cvar, beta, err_5m, idem",
		},
		[]string{"component"},
	)

	OmegaGateDenials = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xi_omega_gate_denials_total",
			Help: "Total number of actions refused at admission (Ω below threshold or quality below Ψ-target)",
		},
	)

	// Stabilizer metrics
	StabilizerPsiTarget = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xi_stabilizer_psi_target",
			Help: "Current Ψ quality target",
		},
	)

	StabilizerPriceMultiplier = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xi_stabilizer_price_multiplier",
			Help: "Current price multiplier",
		},
	)

	StabilizerRecalibrationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xi_stabilizer_recalibrations_total",
			Help: "Total number of antifragile recalibrations",
		},
	)

	StabilizerAttackMode = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xi_stabilizer_attack_mode",
			Help: "Whether the stabilizer is in attack mode (1) or normal (0)",
		},
	)

	// AutoHeal / key rotation metrics
	KeyRotationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xi_autoheal_key_rotations_total",
			Help: "Total number of ephemeral key rotations",
		},
	)

	KeyRotationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xi_autoheal_key_rotation_failures_total",
			Help: "Total number of failed key rotation attempts",
		},
	)

	ChainLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xi_autoheal_chain_length",
			Help: "Number of entries in the Merkle audit chain",
		},
	)

	ChainIntegrityFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xi_autoheal_chain_integrity_failures_total",
			Help: "Total number of chain integrity verification failures detected",
		},
	)

	// Kill-switch metrics
	KillSwitchTripped = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xi_killswitch_tripped",
			Help: "Whether the kill-switch has tripped (1) or is armed (0)",
		},
	)

	SuspiciousEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xi_suspicious_events_total",
			Help: "Total number of suspicious events reported, by type",
		},
		[]string{"type"},
	)

	// Monitor metrics
	MonitorCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xi_monitor_cycles_total",
			Help: "Total number of unified monitor supervisory cycles completed",
		},
	)

	MonitorCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xi_monitor_cycle_duration_seconds",
			Help:    "Time taken for one monitor supervisory cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Admission path metrics
	AdmitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xi_admit_duration_seconds",
			Help:    "Time taken to evaluate an admission decision",
			Buckets: prometheus.DefBuckets,
		},
	)

	EncryptDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xi_encrypt_duration_seconds",
			Help:    "Time taken to encrypt data with the current ephemeral key",
			Buckets: prometheus.DefBuckets,
		},
	)

	DecryptDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xi_decrypt_duration_seconds",
			Help:    "Time taken to decrypt data with the current ephemeral key",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(OmegaScore)
	prometheus.MustRegister(OmegaComponents)
	prometheus.MustRegister(OmegaGateDenials)

	prometheus.MustRegister(StabilizerPsiTarget)
	prometheus.MustRegister(StabilizerPriceMultiplier)
	prometheus.MustRegister(StabilizerRecalibrationsTotal)
	prometheus.MustRegister(StabilizerAttackMode)

	prometheus.MustRegister(KeyRotationsTotal)
	prometheus.MustRegister(KeyRotationFailuresTotal)
	prometheus.MustRegister(ChainLength)
	prometheus.MustRegister(ChainIntegrityFailures)

	prometheus.MustRegister(KillSwitchTripped)
	prometheus.MustRegister(SuspiciousEventsTotal)

	prometheus.MustRegister(MonitorCyclesTotal)
	prometheus.MustRegister(MonitorCycleDuration)

	prometheus.MustRegister(AdmitDuration)
	prometheus.MustRegister(EncryptDuration)
	prometheus.MustRegister(DecryptDuration)
}

// Handler returns the Prometheus HTTP handler. The core never starts its
// own metrics server; callers (the CLI's serve command) mount this at
// whatever address config.Config.MetricsAddr names, if any.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
