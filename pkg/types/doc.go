/*
Package types holds the typed records shared across the core: chain-log
entries, Ω-Gate components, Stabilizer state, and the status snapshot the
Unified Monitor publishes.

The only free-form value left in the model is Metadata, attached to a
ChainEntry. It is intentionally restricted to scalars and nested maps of the
same shape (see Metadata) rather than arbitrary interface{}, so that
canonical serialization stays deterministic without a reflection-heavy
encoder.
*/
package types
