package engine

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestTupleWriteReadRoundTrip(t *testing.T) {
	desc := testDesc()
	tup := NewTuple(*desc)
	tup.SetField(0, StringField{Value: "annie"})
	tup.SetField(1, IntField{Value: 17})

	var buf bytes.Buffer
	if err := tup.WriteTo(&buf, 32); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := ReadTupleFrom(&buf, desc, 32)
	if err != nil {
		t.Fatalf("ReadTupleFrom: %v", err)
	}

	if diff := cmp.Diff(tup.Fields, got.Fields, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round-tripped fields differ (-want +got):\n%s", diff)
	}
}

func TestTupleDescMergeAndFindField(t *testing.T) {
	left := (&TupleDesc{Fields: []FieldType{{Fname: "id", Ftype: IntType}}}).WithAlias("l")
	right := (&TupleDesc{Fields: []FieldType{{Fname: "id", Ftype: IntType}}}).WithAlias("r")
	merged := left.Merge(right)

	if len(merged.Fields) != 2 {
		t.Fatalf("merged desc has %d fields, want 2", len(merged.Fields))
	}

	idx, err := merged.FindFieldByName("r", "id")
	if err != nil {
		t.Fatalf("FindFieldByName: %v", err)
	}
	if idx != 1 {
		t.Errorf("FindFieldByName(r, id) = %d, want 1", idx)
	}
}
