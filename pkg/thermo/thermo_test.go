package thermo

import (
	"math"
	"testing"

	"github.com/xi-lua/sentinel/pkg/types"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func TestPsiClampsToUnitInterval(t *testing.T) {
	if got := Psi(0.95, 0.05); !almostEqual(got, 0.9025, 1e-9) {
		t.Errorf("Psi(0.95, 0.05) = %v, want 0.9025", got)
	}
	if got := Psi(1.0, -5.0); got > 1.0 {
		t.Errorf("Psi() = %v, want clamped to <= 1.0", got)
	}
}

func TestSPsiPeaksAtHalf(t *testing.T) {
	atHalf := SPsi(0.5)
	atQuarter := SPsi(0.25)
	if atHalf <= atQuarter {
		t.Errorf("SPsi(0.5)=%v should exceed SPsi(0.25)=%v", atHalf, atQuarter)
	}
	if SPsi(0) != 0 || SPsi(1) != 0 {
		t.Error("SPsi() at the boundaries should be 0")
	}
}

func TestProbReversalIsOneWithoutEnergyAndStaysInUnitInterval(t *testing.T) {
	if got := ProbReversal(0, 100, 100); got != 1.0 {
		t.Errorf("ProbReversal with zero energy = %v, want 1.0", got)
	}
	low := ProbReversal(1000, 10, 100)
	high := ProbReversal(1000, 10000, 100)
	if !(low >= 0 && low <= 1 && high >= 0 && high <= 1) {
		t.Fatalf("ProbReversal out of [0,1]: low=%v high=%v", low, high)
	}
}

func TestLambdaAFPositiveWhenSystemImproves(t *testing.T) {
	lambda := LambdaAF(0.85, 0.92, 0.18)
	if lambda <= 0 {
		t.Errorf("LambdaAF() = %v, want > 0 for an improving system", lambda)
	}
}

func TestLambdaAFZeroWithoutAttackContext(t *testing.T) {
	if got := LambdaAF(0, 0.9, 0.1); got != 0 {
		t.Errorf("LambdaAF() with psiBefore=0 = %v, want 0", got)
	}
}

func TestComputeFullStateTracksPreviousPsi(t *testing.T) {
	m := New()
	components := types.Components{CVaR: 0.05, Beta: 0.02, Err5m: 0.01, Idem: 0.98, Omega: 0.95}

	first := m.ComputeFullState(components, 1000, 1000, 0, 0, 0)
	if first.PhiJump != 0 {
		t.Errorf("first ComputeFullState() PhiJump = %v, want 0 (no history yet)", first.PhiJump)
	}

	attackComponents := types.Components{CVaR: 0.18, Beta: 0.05, Err5m: 0.03, Idem: 0.95, Omega: 0.88}
	second := m.ComputeFullState(attackComponents, 1500, 1050, first.Psi, 0.92, 0.18)
	if second.PhiJump == 0 {
		t.Error("second ComputeFullState() PhiJump = 0, want a nonzero jump after Ψ changed")
	}
	if second.LambdaAF <= 0 {
		t.Errorf("second ComputeFullState() LambdaAF = %v, want > 0", second.LambdaAF)
	}
}
