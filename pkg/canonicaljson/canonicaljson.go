// Package canonicaljson implements the deterministic JSON encoding the
// Merkle chain depends on: sorted object keys, no insignificant whitespace,
// and number formatting pinned to encoding/json's behavior (shortest
// round-tripping representation, so 1.0 encodes as "1").
//
// encoding/json.Marshal already sorts map[string]any keys and emits no
// extra whitespace; this package exists to make that contract explicit and
// pin it to one entry point so the chain log's hash computation can never
// drift from it, rather than relying on every caller remembering to pass a
// map instead of a struct.
package canonicaljson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Marshal encodes v deterministically. Maps are walked and re-emitted with
// lexicographically sorted keys at every level; all other values defer to
// encoding/json, whose scalar formatting (numbers, strings, escaping) is
// already stable across calls within one Go version.
func Marshal(v any) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, fmt.Errorf("canonicaljson: %w", err)
	}
	var buf bytes.Buffer
	if err := encode(&buf, normalized); err != nil {
		return nil, fmt.Errorf("canonicaljson: %w", err)
	}
	return buf.Bytes(), nil
}

// normalize round-trips v through encoding/json so struct field tags,
// time.Time, and custom MarshalJSON implementations are honored, then
// decodes into generic map[string]any/[]any/scalars for sorted re-encoding.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return generic, nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encode(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		// scalars: string, bool, nil, json.Number — encoding/json's own
		// formatting is deterministic and is the one we pin to.
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

// Unmarshal is the inverse of Marshal, provided so callers can verify the
// round-trip property (parse ∘ Marshal ∘ parse = Marshal on canonical
// input) without importing encoding/json directly.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
