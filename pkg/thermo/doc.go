// Package thermo derives seven reporting-only scalar metrics from the
// Ω-Gate and Stabilizer state: information coherence (Ψ), its entropy,
// a reversal probability, a quantum-information-resilience ratio, an
// antifragility coefficient, a phase-transition indicator, and an
// informational entropy over the Ω components. Nothing in the admission
// path reads these back; they exist to characterize the system's
// behavior over time, not to gate it.
package thermo
