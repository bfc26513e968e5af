// Package autoheal is the facade combining the chain log, the key
// manager, and the kill-switch into the single AutoHeal component spec'd
// as "an ephemeral-key manager with forward secrecy, an append-only
// Merkle-chain audit log, and a rate-triggered kill-switch." It wires the
// three subsystems' callbacks together so rotations, suspicious events,
// and kill-switch trips all land on the chain without chainlog, keymanager,
// or killswitch importing each other.
package autoheal
