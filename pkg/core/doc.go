// Package core assembles AutoHeal, Ω-Gate, Stabilizer-Recal, and the
// Unified Monitor into a single owned Core value. Unlike the original
// implementation's process-wide singletons, nothing here is reachable
// through a package-level variable: callers construct a Core with Open,
// pass it around explicitly, and tear it down with Close. Core.Admit is
// the one entry point that ties Ω-Gate's admission threshold to
// Stabilizer's antifragile Ψ-target, so a caller observing a single
// action gets one pass/fail decision instead of juggling two components.
package core
