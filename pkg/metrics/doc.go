// Package metrics defines and registers every Prometheus collector the
// core exposes: Ω-Gate component scores, Stabilizer-Recal state, AutoHeal
// key-rotation and chain-integrity counters, kill-switch status, and
// Unified Monitor cycle timing. All metrics are registered at package
// init via prometheus.MustRegister; Handler returns the promhttp handler
// for whichever HTTP mux the caller mounts it on.
//
// The Timer helper times an operation and observes its duration against
// a histogram (or, via ObserveDurationVec, a histogram vec with labels):
//
//	timer := metrics.NewTimer()
//	c.Admit(actionType, confidence, meta)
//	timer.ObserveDuration(metrics.AdmitDuration)
package metrics
