// Package keymanager manages the ephemeral AEAD and signing keys AutoHeal
// rotates on a timer. A long-lived master key (generated once, stored at
// 0600 on disk) never encrypts data directly; instead each rotation derives
// a fresh ephemeral key as SHA3-256(master || salt) with a random salt, so
// compromising one ephemeral key never recovers the master key or any
// other epoch's key.
//
// The current key is guarded by a RWMutex: Encrypt/Decrypt/Sign/Verify take
// a read lock so concurrent callers never block each other, and rotation
// takes the write lock only for the brief swap of the key fields.
package keymanager
