package omegagate

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xi-lua/sentinel/pkg/types"
)

// Immutable weights and thresholds. These are fixed by the formula itself,
// not configuration: changing them would change what Ω means.
const (
	weightCVaR = 0.4
	weightBeta = 0.3
	weightErr  = 0.2
	weightIdem = 0.1

	// DefaultThreshold is the minimum Ω a system needs to pass the gate,
	// used unless OMEGA_THRESHOLD overrides it. Unlike the weights and α,
	// this is deliberately configurable (spec: "admission threshold").
	DefaultThreshold = 0.90

	// Alpha is the tail fraction CVaR is computed over.
	Alpha = 0.05

	// WindowSize is how many recent actions feed the CVaR estimate.
	WindowSize = 100

	errWindow = 5 * time.Minute
)

type action struct {
	timestamp  time.Time
	confidence float64
}

// Gate accumulates the rolling observations the Ω formula needs and
// computes the score on demand. All mutation methods are safe for
// concurrent use.
type Gate struct {
	mu sync.Mutex

	threshold         float64
	actions           []action
	errorTimestamps   []time.Time
	validationResults []bool
	totalWebhooks     uint64
	idempotentCount   uint64
}

// New returns an empty Gate using DefaultThreshold. A Gate with no
// recorded observations scores Ω=1.0: CVaR, β, and ERR5m default to 0,
// Idem defaults to 1.
func New() *Gate {
	return NewWithThreshold(DefaultThreshold)
}

// NewWithThreshold returns an empty Gate using the given admission
// threshold, typically sourced from OMEGA_THRESHOLD. A threshold outside
// (0,1] falls back to DefaultThreshold.
func NewWithThreshold(threshold float64) *Gate {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Gate{threshold: threshold}
}

// Threshold returns the admission threshold this Gate checks against.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// RecordAction records a confidence-scored action into the rolling window
// used for CVaR. confidence is clamped to [0,1] before being stored, per
// the invariant that every component feeding Ω stays in that range.
func (g *Gate) RecordAction(actionType string, confidence float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.actions = append(g.actions, action{timestamp: time.Now(), confidence: clamp01(confidence)})
	if len(g.actions) > WindowSize*2 {
		g.actions = append([]action(nil), g.actions[len(g.actions)-WindowSize:]...)
	}
}

// clamp01 restricts x to [0,1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// RecordError records an error event for the ERR5m estimator.
func (g *Gate) RecordError() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.errorTimestamps = append(g.errorTimestamps, now)
	g.errorTimestamps = pruneBefore(g.errorTimestamps, now.Add(-errWindow))
}

// RecordValidation records whether a signature/authentication check
// passed, for the β estimator.
func (g *Gate) RecordValidation(valid bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.validationResults = append(g.validationResults, valid)
	if len(g.validationResults) > WindowSize {
		g.validationResults = g.validationResults[len(g.validationResults)-WindowSize:]
	}
}

// RecordWebhook records a webhook delivery's idempotency outcome, for the
// Idem estimator.
func (g *Gate) RecordWebhook(idempotent bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.totalWebhooks++
	if idempotent {
		g.idempotentCount++
	}
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Compute returns the current Ω components.
func (g *Gate) Compute() types.Components {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-errWindow)

	start := 0
	if len(g.actions) > WindowSize {
		start = len(g.actions) - WindowSize
	}
	recent := g.actions[start:]

	confidences := make([]float64, len(recent))
	for i, a := range recent {
		confidences[i] = a.confidence
	}
	cvar := computeCVaR(confidences, Alpha)

	beta := 0.0
	if n := len(g.validationResults); n > 0 {
		failures := 0
		for _, ok := range g.validationResults {
			if !ok {
				failures++
			}
		}
		beta = float64(failures) / float64(n)
	}

	recentErrors := 0
	for _, ts := range g.errorTimestamps {
		if !ts.Before(cutoff) {
			recentErrors++
		}
	}
	recentActions := 0
	for _, a := range g.actions {
		if !a.timestamp.Before(cutoff) {
			recentActions++
		}
	}
	err5m := 0.0
	if recentActions > 0 {
		err5m = float64(recentErrors) / float64(recentActions)
	}

	idem := 1.0
	if g.totalWebhooks > 0 {
		idem = float64(g.idempotentCount) / float64(g.totalWebhooks)
	}

	cvar = clamp01(cvar)
	beta = clamp01(beta)
	err5m = clamp01(err5m)
	idem = clamp01(idem)

	omega := clamp01(weightCVaR*(1-cvar) + weightBeta*(1-beta) + weightErr*(1-err5m) + weightIdem*idem)

	return types.Components{
		CVaR:  cvar,
		Beta:  beta,
		Err5m: err5m,
		Idem:  idem,
		Omega: omega,
	}
}

// computeCVaR returns the mean of the worst alpha fraction of losses
// (1-confidence). The tail size truncates toward zero like the original
// implementation's int(len*alpha), floored at one sample so a non-empty
// window always contributes something.
func computeCVaR(confidences []float64, alpha float64) float64 {
	if len(confidences) == 0 {
		return 0.0
	}

	losses := make([]float64, len(confidences))
	for i, c := range confidences {
		losses[i] = 1.0 - c
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(losses)))

	cutoff := int(float64(len(losses)) * alpha)
	if cutoff < 1 {
		cutoff = 1
	}
	if cutoff > len(losses) {
		cutoff = len(losses)
	}

	sum := 0.0
	for _, l := range losses[:cutoff] {
		sum += l
	}
	return sum / float64(cutoff)
}

// Check reports whether the current Ω passes this Gate's threshold,
// alongside the components that produced it.
func (g *Gate) Check() (bool, types.Components) {
	components := g.Compute()
	return components.Omega >= g.threshold, components
}

// ActionCount returns how many actions are currently tracked, for status
// reporting.
func (g *Gate) ActionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.actions)
}

// Report renders a short, operator-facing summary of the components, in
// the same spirit as the original's get_status_report but without the
// box-drawing.
func Report(c types.Components, threshold float64) string {
	verdict := "PASS"
	if c.Omega < threshold {
		verdict = "FAIL"
	}
	return fmt.Sprintf(
		"Omega=%.4f (%s, threshold=%.2f) cvar=%.4f beta=%.4f err5m=%.4f idem=%.4f",
		c.Omega, verdict, threshold, c.CVaR, c.Beta, c.Err5m, c.Idem,
	)
}
