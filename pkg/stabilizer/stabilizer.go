package stabilizer

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/xi-lua/sentinel/pkg/log"
	"github.com/xi-lua/sentinel/pkg/types"
)

// Immutable constants. CVaRHi/CVaRLo and the confirm/relax windows define
// the bifurcation behavior; changing them changes what "attack" means.
const (
	CVaRHi = 0.15 // danger threshold: sustained excess triggers recalibration
	CVaRLo = 0.10 // safety threshold: sustained deficit triggers relaxation

	ConfirmWindow     = 5 * time.Second  // how long CVaR must exceed CVaRHi
	ConfirmMinSamples = 3                // minimum samples within ConfirmWindow
	RelaxWindow       = 30 * time.Second // how long CVaR must stay under CVaRLo
	RelaxMinSamples   = 10               // minimum samples within RelaxWindow

	historyRetention = 10 * time.Second // how long raw CVaR samples are kept

	PsiMin     = 0.85
	PsiMax     = 0.98
	PsiDefault = 0.90
	PsiStep    = 0.02

	PriceMin      = 1.0
	PriceMax      = 3.0
	PriceStepUp   = 1.20 // multiplicative step on recalibration
	priceStepDown = 1.0 / PriceStepUp
)

type cvarSample struct {
	timestamp time.Time
	cvar      float64
}

// Stabilizer is the antifragile controller. The zero value is not usable;
// construct with New.
type Stabilizer struct {
	mu      sync.Mutex
	state   types.SystemState
	history []cvarSample
}

// New returns a Stabilizer at its default quality floor and price.
func New() *Stabilizer {
	return &Stabilizer{
		state: types.SystemState{
			PsiTarget:         PsiDefault,
			CVaR:              0,
			PriceMultiplier:   1.0,
			LastRecalibration: time.Now().UTC(),
			AttackMode:        false,
		},
	}
}

// UpdateCVaR records a fresh CVaR sample and recalibrates if the
// confirmation condition is now met. NaN is treated as worse than any
// real value — a failed estimator reads as an attack signal rather than
// silently passing the gate.
func (s *Stabilizer) UpdateCVaR(cvar float64) bool {
	if math.IsNaN(cvar) {
		cvar = CVaRHi + 1e-9
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.history = append(s.history, cvarSample{timestamp: now, cvar: cvar})
	s.history = pruneBefore(s.history, now.Add(-historyRetention))
	s.state.CVaR = cvar

	if s.shouldRecalibrateLocked(now) {
		s.recalibrateLocked()
		return true
	}
	return false
}

func pruneBefore(history []cvarSample, cutoff time.Time) []cvarSample {
	kept := history[:0]
	for _, h := range history {
		if h.timestamp.After(cutoff) || h.timestamp.Equal(cutoff) {
			kept = append(kept, h)
		}
	}
	return kept
}

func (s *Stabilizer) samplesSince(since time.Time) []cvarSample {
	var out []cvarSample
	for _, h := range s.history {
		if !h.timestamp.Before(since) {
			out = append(out, h)
		}
	}
	return out
}

func (s *Stabilizer) shouldRecalibrateLocked(now time.Time) bool {
	recent := s.samplesSince(now.Add(-ConfirmWindow))
	if len(recent) < ConfirmMinSamples {
		return false
	}
	for _, h := range recent {
		if h.cvar <= CVaRHi {
			return false
		}
	}
	return true
}

func (s *Stabilizer) recalibrateLocked() {
	oldPsi := s.state.PsiTarget
	oldPrice := s.state.PriceMultiplier

	newPsi := math.Min(PsiMax, oldPsi+PsiStep)
	newPrice := math.Min(PriceMax, oldPrice*PriceStepUp)

	s.state.PsiTarget = newPsi
	s.state.PriceMultiplier = newPrice
	s.state.LastRecalibration = time.Now().UTC()
	s.state.RecalibrationCount++
	s.state.AttackMode = true

	log.WithComponent("stabilizer").Warn().
		Float64("cvar", s.state.CVaR).
		Float64("psi_from", oldPsi).
		Float64("psi_to", newPsi).
		Float64("price_from", oldPrice).
		Float64("price_to", newPrice).
		Uint64("count", s.state.RecalibrationCount).
		Msg("recalibration: attack mode activated")
}

// TryRelax checks whether the stability condition has been met and, if
// so, relaxes the quality floor and price one step back toward default.
// Only meaningful once attack mode is active; returns false outside it.
func (s *Stabilizer) TryRelax() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.AttackMode {
		return false
	}

	now := time.Now()
	recent := s.samplesSince(now.Add(-RelaxWindow))
	if len(recent) < RelaxMinSamples {
		return false
	}
	for _, h := range recent {
		if h.cvar >= CVaRLo {
			return false
		}
	}

	s.relaxLocked()
	return true
}

func (s *Stabilizer) relaxLocked() {
	oldPsi := s.state.PsiTarget
	oldPrice := s.state.PriceMultiplier

	newPsi := math.Max(PsiDefault, oldPsi-PsiStep)
	newPrice := math.Max(PriceMin, oldPrice*priceStepDown)

	s.state.PsiTarget = newPsi
	s.state.PriceMultiplier = newPrice

	logger := log.WithComponent("stabilizer")
	if newPsi <= PsiDefault && newPrice <= PriceMin {
		s.state.AttackMode = false
		logger.Info().Msg("attack mode deactivated: system normalized")
	}

	logger.Info().
		Float64("cvar", s.state.CVaR).
		Float64("psi_from", oldPsi).
		Float64("psi_to", newPsi).
		Float64("price_from", oldPrice).
		Float64("price_to", newPrice).
		Msg("relaxation")
}

// AdjustedPrice scales basePrice by the current price multiplier.
func (s *Stabilizer) AdjustedPrice(basePrice float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return basePrice * s.state.PriceMultiplier
}

// ShouldAccept reports whether actionQuality clears the current Ψ-target.
func (s *Stabilizer) ShouldAccept(actionQuality float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return actionQuality >= s.state.PsiTarget
}

// State returns a copy of the current system state.
func (s *Stabilizer) State() types.SystemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Report renders a short, operator-facing summary of the state, in the
// same spirit as the original's get_status_report but without the
// box-drawing.
func Report(state types.SystemState) string {
	mode := "normal"
	if state.AttackMode {
		mode = "attack"
	}
	return fmt.Sprintf(
		"mode=%s psi_target=%.2f cvar=%.4f price=%.2fx recalibrations=%d last=%s",
		mode, state.PsiTarget, state.CVaR, state.PriceMultiplier,
		state.RecalibrationCount, state.LastRecalibration.Format(time.RFC3339),
	)
}
