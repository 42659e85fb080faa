package engine

import "testing"

func testDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{
		{Fname: "name", Ftype: StringType},
		{Fname: "age", Ftype: IntType},
	}}
}

func TestHeapPageInsertAndIterate(t *testing.T) {
	desc := testDesc()
	pid := PageID{TableID: 1, PageNo: 0}
	hp, err := NewHeapPage(pid, desc, 4096, 32, nil)
	if err != nil {
		t.Fatalf("NewHeapPage: %v", err)
	}
	if hp.NumEmptySlots() != hp.NumSlots() {
		t.Fatalf("fresh page should be all empty")
	}

	names := []string{"josie", "annie"}
	for _, n := range names {
		tup := NewTuple(*desc)
		tup.SetField(0, StringField{Value: n})
		tup.SetField(1, IntField{Value: int64(len(n))})
		if _, err := hp.Insert(tup); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	it := hp.IterTuples()
	count := 0
	for {
		tup, err := it()
		if err != nil {
			t.Fatalf("IterTuples: %v", err)
		}
		if tup == nil {
			break
		}
		count++
	}
	if count != len(names) {
		t.Errorf("got %d tuples, want %d", count, len(names))
	}
}

func TestHeapPageSerializeRoundTrip(t *testing.T) {
	desc := testDesc()
	pid := PageID{TableID: 7, PageNo: 3}
	hp, err := NewHeapPage(pid, desc, 512, 16, nil)
	if err != nil {
		t.Fatalf("NewHeapPage: %v", err)
	}

	tup := NewTuple(*desc)
	tup.SetField(0, StringField{Value: "bob"})
	tup.SetField(1, IntField{Value: 42})
	if _, err := hp.Insert(tup); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	raw, err := hp.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(raw) != 512 {
		t.Fatalf("serialized page is %d bytes, want 512", len(raw))
	}

	hp2, err := NewHeapPage(pid, desc, 512, 16, raw)
	if err != nil {
		t.Fatalf("NewHeapPage from raw: %v", err)
	}
	if hp2.NumEmptySlots() != hp.NumEmptySlots() {
		t.Fatalf("empty slot count mismatch after round trip")
	}

	it := hp2.IterTuples()
	got, err := it()
	if err != nil || got == nil {
		t.Fatalf("expected one tuple after round trip, err=%v", err)
	}
	if !got.Equals(tup) {
		t.Errorf("round-tripped tuple = %v, want %v", got, tup)
	}
}

func TestHeapPageDeleteRejectsWrongPageOrSlot(t *testing.T) {
	desc := testDesc()
	pid := PageID{TableID: 1, PageNo: 0}
	hp, _ := NewHeapPage(pid, desc, 4096, 32, nil)

	if err := hp.Delete(RecordID{Page: PageID{TableID: 1, PageNo: 1}, SlotNo: 0}); !IsKind(err, NoSuchElement) {
		t.Errorf("expected NoSuchElement for wrong page, got %v", err)
	}
	if err := hp.Delete(RecordID{Page: pid, SlotNo: 0}); !IsKind(err, NoSuchElement) {
		t.Errorf("expected NoSuchElement for unoccupied slot, got %v", err)
	}
}

func TestHeapPageBeforeImageRestoresOriginal(t *testing.T) {
	desc := testDesc()
	pid := PageID{TableID: 1, PageNo: 0}
	hp, _ := NewHeapPage(pid, desc, 4096, 32, nil)

	before := hp.BeforeImage()
	beforeRaw, _ := before.Serialize()

	tup := NewTuple(*desc)
	tup.SetField(0, StringField{Value: "x"})
	tup.SetField(1, IntField{Value: 1})
	hp.Insert(tup)

	restored := hp.BeforeImage()
	restoredRaw, _ := restored.Serialize()
	if string(restoredRaw) != string(beforeRaw) {
		t.Errorf("before-image after insert should match the pristine page")
	}
}
