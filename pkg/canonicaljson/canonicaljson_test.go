package canonicaljson

import "testing"

func TestMarshalSortsObjectKeysAtEveryLevel(t *testing.T) {
	v := map[string]any{
		"z": 1,
		"a": map[string]any{
			"y": 2,
			"b": 3,
		},
	}
	got, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"a":{"b":3,"y":2},"z":1}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestMarshalIsStableAcrossEquivalentMapOrdering(t *testing.T) {
	a := map[string]any{"first": 1, "second": 2, "third": 3}
	b := map[string]any{"third": 3, "first": 1, "second": 2}

	gotA, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal(a) error = %v", err)
	}
	gotB, err := Marshal(b)
	if err != nil {
		t.Fatalf("Marshal(b) error = %v", err)
	}
	if string(gotA) != string(gotB) {
		t.Errorf("Marshal() not stable: %s != %s", gotA, gotB)
	}
}

func TestMarshalFormatsNumbersLikeEncodingJSON(t *testing.T) {
	got, err := Marshal(map[string]any{"n": 1.0})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(got) != `{"n":1}` {
		t.Errorf("Marshal() = %s, want {\"n\":1}", got)
	}
}

func TestMarshalEncodesArraysInOrder(t *testing.T) {
	got, err := Marshal(map[string]any{"list": []any{3, 1, 2}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(got) != `{"list":[3,1,2]}` {
		t.Errorf("Marshal() = %s, want {\"list\":[3,1,2]}", got)
	}
}

func TestUnmarshalRoundTripsMarshalOutput(t *testing.T) {
	original := map[string]any{"a": 1, "b": "two"}
	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got map[string]any
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(got) != len(original) {
		t.Errorf("Unmarshal() produced %d keys, want %d", len(got), len(original))
	}
}
