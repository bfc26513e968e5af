package omegagate

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEmptyGateScoresPerfect(t *testing.T) {
	g := New()
	pass, c := g.Check()
	if !pass {
		t.Fatalf("Check() = false for an untouched gate, components = %+v", c)
	}
	if !almostEqual(c.Omega, 1.0) {
		t.Errorf("Omega = %v, want 1.0", c.Omega)
	}
	if c.Idem != 1.0 {
		t.Errorf("Idem = %v, want 1.0 (no webhooks yet)", c.Idem)
	}
}

func TestPerfectActivitySeriesPasses(t *testing.T) {
	g := New()
	for i := 0; i < 100; i++ {
		g.RecordAction("deploy", 1.0)
		g.RecordValidation(true)
		g.RecordWebhook(true)
	}

	pass, c := g.Check()
	if !pass {
		t.Fatalf("Check() = false for a perfect series, components = %+v", c)
	}
	if !almostEqual(c.Omega, 1.0) {
		t.Errorf("Omega = %v, want 1.0", c.Omega)
	}
}

func TestValidationFailuresLowerBeta(t *testing.T) {
	g := New()
	for i := 0; i < 20; i++ {
		g.RecordValidation(i%4 != 0) // 25% failures
	}

	c := g.Compute()
	if !almostEqual(c.Beta, 0.25) {
		t.Errorf("Beta = %v, want 0.25", c.Beta)
	}
}

func TestCrisisScenarioFailsGate(t *testing.T) {
	g := New()
	for i := 0; i < 100; i++ {
		confidence := 0.85
		if i%3 == 0 {
			confidence = 0.60
		}
		g.RecordAction("deploy", confidence)
		g.RecordValidation(i%5 != 0) // 20% validation failures
		g.RecordWebhook(i%3 != 0)    // ~33% not idempotent
	}
	for i := 0; i < 30; i++ {
		g.RecordError()
	}

	pass, c := g.Check()
	if pass {
		t.Fatalf("Check() = true for a crisis scenario, components = %+v", c)
	}
}

func TestIdemReflectsWebhookRatio(t *testing.T) {
	g := New()
	for i := 0; i < 10; i++ {
		g.RecordWebhook(i < 7)
	}
	c := g.Compute()
	if !almostEqual(c.Idem, 0.7) {
		t.Errorf("Idem = %v, want 0.7", c.Idem)
	}
}

func TestComputeCVaRUsesWorstTail(t *testing.T) {
	confidences := make([]float64, 100)
	for i := range confidences {
		confidences[i] = 0.95
	}
	// Worst 5 confidences (5% of 100) are much lower.
	for i := 0; i < 5; i++ {
		confidences[i] = 0.10
	}

	cvar := computeCVaR(confidences, Alpha)
	// Worst 5% tail is exactly the five 0.10-confidence entries: loss 0.90 each.
	if !almostEqual(cvar, 0.90) {
		t.Errorf("computeCVaR() = %v, want 0.90", cvar)
	}
}
