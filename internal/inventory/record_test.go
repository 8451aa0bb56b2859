package inventory

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRecord_FieldOrder(t *testing.T) {
	rec := NewRecord()
	rec.Set("Name", "A")
	rec.Set("Size", nil)
	rec.Set("Vendor", "B")
	rec.Set("Name", "C") // update must not duplicate the field

	got := rec.Fields()
	want := []string{"Name", "Size", "Vendor"}
	if len(got) != len(want) {
		t.Fatalf("Fields() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Fields()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if v := rec.Value("Name"); v != "C" {
		t.Errorf("Value(Name) = %v, want C", v)
	}
}

func TestRecord_SetFront(t *testing.T) {
	rec := NewRecord()
	rec.Set("Model", "X")
	rec.SetFront("ComputerName", "host-1")

	fields := rec.Fields()
	if fields[0] != "ComputerName" {
		t.Errorf("first field = %q, want ComputerName", fields[0])
	}

	// Stamping twice must not duplicate the field
	rec.SetFront("ComputerName", "host-1")
	if rec.Len() != 2 {
		t.Errorf("Len() = %d, want 2", rec.Len())
	}
}

func TestRecord_MarshalJSON(t *testing.T) {
	rec := NewRecord()
	rec.Set("Name", "disk \"0\"")
	rec.Set("Size", nil)
	rec.Set("Raw", map[string]any{"Nested": map[string]any{"Deep": true}})

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	// Field order must be insertion order, not alphabetical
	s := string(out)
	if !strings.HasPrefix(s, `{"Name":`) {
		t.Errorf("expected Name first, got %s", s)
	}
	if strings.Index(s, `"Size"`) > strings.Index(s, `"Raw"`) {
		t.Errorf("expected Size before Raw, got %s", s)
	}

	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("round-trip unmarshal failed: %v", err)
	}
	if back["Size"] != nil {
		t.Errorf("null field lost: %v", back["Size"])
	}
	nested, ok := back["Raw"].(map[string]any)
	if !ok {
		t.Fatalf("nested object lost: %v", back["Raw"])
	}
	if _, ok := nested["Nested"]; !ok {
		t.Errorf("sub-object lost: %v", nested)
	}
}

func TestRecordSet_FieldsUnion(t *testing.T) {
	a := NewRecord()
	a.Set("Name", "x")
	a.Set("Size", 1.0)

	b := NewRecord()
	b.Set("Name", "y")
	b.Set("Vendor", "z")

	fields := RecordSet{a, b}.Fields()
	want := []string{"Name", "Size", "Vendor"}
	if len(fields) != len(want) {
		t.Fatalf("Fields() = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("Fields()[%d] = %q, want %q", i, fields[i], want[i])
		}
	}
}

func TestFailure_Unwrap(t *testing.T) {
	f := Failure{Target: "host-1", Cause: ErrChannel}
	if !errors.Is(f, ErrChannel) {
		t.Error("expected errors.Is to match ErrChannel")
	}
	if !strings.Contains(f.Error(), "host-1") {
		t.Errorf("Error() = %q, want target in message", f.Error())
	}
}
