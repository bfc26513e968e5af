// Package stabilizer implements the antifragile recalibration controller:
// when risk (CVaR) stays high for a confirmation window, the system raises
// its quality floor and its price rather than merely refusing traffic, so
// an attack becomes more expensive to sustain instead of merely blocked.
// When risk falls back and stays low for a longer stability window, both
// relax back toward the defaults.
//
// Constants (bifurcation point, thresholds, step sizes) are fixed, not
// configurable: they define what "recalibration" means.
package stabilizer
