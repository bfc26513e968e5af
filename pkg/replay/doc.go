// Package replay is a bbolt-backed store of (epoch, nonce) pairs a caller
// has already seen, resolving the core-level replay question the spec
// leaves to the caller: signatures alone don't prevent a captured,
// untouched message from being replayed, so a bounded, disk-backed set of
// seen nonces gives callers a shared replay guard instead of each
// implementing its own. The store is standalone: the key manager's Verify
// does not consult it.
//
// Entries are pruned by epoch: CheckAndRecord records a nonce against the
// epoch it was presented in, and Prune drops every epoch older than a
// retention cutoff, bounding the store's size regardless of traffic volume.
package replay
