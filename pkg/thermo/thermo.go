package thermo

import (
	"math"
	"sync"

	"github.com/xi-lua/sentinel/pkg/types"
)

// Physical constants, carried for dimensional consistency rather than
// because the process genuinely operates at quantum or thermal scales.
const (
	boltzmann = 1.380649e-23 // J/K
	hbar      = 1.054571817e-34
)

// Metrics accumulates the history needed for the history-dependent
// derivations (Φ_jump needs the previous Ψ) and computes the seven
// metrics on demand.
type Metrics struct {
	mu         sync.Mutex
	prevPsi    float64
	hasPrevPsi bool
}

// New returns an empty Metrics tracker.
func New() *Metrics {
	return &Metrics{}
}

// Psi is the information coherence: Ω scaled down by tail risk.
func Psi(omega, cvar float64) float64 {
	psi := omega * (1.0 - cvar)
	return math.Max(0.0, math.Min(1.0, psi))
}

// SPsi is the Shannon entropy of the coherence state, peaking at Ψ=0.5.
func SPsi(psi float64) float64 {
	if psi <= 0 || psi >= 1 {
		return 0.0
	}
	return -boltzmann * (psi*math.Log(psi) + (1-psi)*math.Log(1-psi))
}

// ProbReversal is the probability of reversing a temporal anchor,
// exp(−E/(k_B·D·B)): it decays exponentially with accumulated energy E,
// while more elapsed blocks B enlarge the denominator and raise it back
// toward 1.
func ProbReversal(cumulativeEnergy float64, blocksPassed int, difficultyFactor float64) float64 {
	if difficultyFactor <= 0 {
		difficultyFactor = 100.0
	}
	if cumulativeEnergy <= 0 || blocksPassed == 0 {
		return 1.0
	}

	tEff := difficultyFactor * float64(blocksPassed)
	exponent := -cumulativeEnergy / (boltzmann * tEff)
	exponent = math.Max(-100, math.Min(0, exponent))

	return math.Exp(exponent)
}

// IQIR is the quantum information resilience ratio: coherent information
// per unit of entropic disorder.
func IQIR(psi, sPsi float64) float64 {
	if sPsi <= 0 {
		return 0.0
	}
	return (hbar * psi) / sPsi
}

// LambdaAF is the antifragility coefficient: the relative change in Ψ
// across an attack, normalized by the attack's strength. Positive means
// the system gained from the stress.
func LambdaAF(psiBefore, psiAfter, attackStrength float64) float64 {
	if psiBefore <= 0 || attackStrength <= 0 {
		return 0.0
	}
	relativeChange := (psiAfter - psiBefore) / psiBefore
	return relativeChange / attackStrength
}

// PhiJump is the phase-transition indicator: the rate of change of Ψ
// relative to its current value. Spikes flag a state transition, such as
// entering attack mode.
func PhiJump(psiNow, psiPrev, dt float64) float64 {
	if psiNow <= 0 || dt <= 0 {
		return 0.0
	}
	dPsiDt := math.Abs(psiNow-psiPrev) / dt
	return dPsiDt / psiNow
}

// SInfo is the informational entropy of the normalized Ω components.
func SInfo(components types.Components) float64 {
	values := []float64{components.CVaR, components.Beta, components.Err5m, components.Idem}

	total := 1e-10
	for _, v := range values {
		total += v
	}

	entropy := 0.0
	for _, v := range values {
		p := v / total
		if p > 0 {
			entropy -= p * math.Log(p)
		}
	}

	return boltzmann * entropy
}

// ComputeFullState derives all seven metrics for one observation. psiPrev
// is used for Φ_jump; pass the same value for psiBefore/psiAfter (or leave
// them at the current Ψ) when no attack comparison applies, which yields
// Λ_AF=0.
func (m *Metrics) ComputeFullState(components types.Components, cumulativeEnergy float64, blocksPassed int, psiBeforeAttack, psiAfterAttack, attackStrength float64) types.ThermodynamicState {
	psi := Psi(components.Omega, components.CVaR)
	sPsi := SPsi(psi)
	probRev := ProbReversal(cumulativeEnergy, blocksPassed, 100.0)
	iQIR := IQIR(psi, sPsi)

	lambdaAF := 0.0
	if psiBeforeAttack > 0 && attackStrength > 0 {
		lambdaAF = LambdaAF(psiBeforeAttack, psiAfterAttack, attackStrength)
	}

	m.mu.Lock()
	phiJump := 0.0
	if m.hasPrevPsi {
		phiJump = PhiJump(psi, m.prevPsi, 1.0)
	}
	m.prevPsi = psi
	m.hasPrevPsi = true
	m.mu.Unlock()

	sInfo := SInfo(components)

	return types.ThermodynamicState{
		Psi:          psi,
		SPsi:         sPsi,
		ProbReversal: probRev,
		IQIR:         iQIR,
		LambdaAF:     lambdaAF,
		PhiJump:      phiJump,
		SInfo:        sInfo,
	}
}
