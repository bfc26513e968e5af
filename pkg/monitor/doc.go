// Package monitor implements the Unified Monitor: a periodic supervisor
// that polls AutoHeal, Stabilizer-Recal, and Ω-Gate, escalates anomalies
// back to AutoHeal's kill-switch, and publishes a single status snapshot
// stamped with a per-process instance ID (github.com/google/uuid) so
// cooperating processes' chain logs and status reports can be correlated
// externally.
package monitor
