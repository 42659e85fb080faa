package engine

import (
	"path/filepath"
	"testing"
)

func peopleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{
		{Fname: "name", Ftype: StringType},
		{Fname: "age", Ftype: IntType},
	}}
}

func newPeopleFile(t *testing.T, rows []struct {
	name string
	age  int64
}) (*HeapFile, *BufferPool) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StringCapacity = 16
	bp := NewBufferPool(cfg.BufferPages, cfg)
	hf, err := NewHeapFile(filepath.Join(t.TempDir(), "people.dat"), peopleDesc(), bp, cfg)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}

	tid := NewTID()
	bp.BeginTransaction(tid)
	for _, r := range rows {
		tup := NewTuple(*peopleDesc())
		tup.SetField(0, StringField{Value: r.name})
		tup.SetField(1, IntField{Value: r.age})
		if _, err := hf.InsertTuple(tid, tup); err != nil {
			t.Fatalf("InsertTuple: %v", err)
		}
	}
	if err := bp.CommitTransaction(tid); err != nil {
		t.Fatalf("CommitTransaction: %v", err)
	}
	return hf, bp
}

// tupleSliceOp is a minimal test-only Operator wrapping a fixed slice of
// tuples, used to feed Insert/Delete operators without a backing table.
type tupleSliceOp struct {
	tuples []*Tuple
	desc   *TupleDesc
	idx    int
	src    pullSource
}

func newTupleSliceOp(tuples []*Tuple, desc *TupleDesc) *tupleSliceOp {
	return &tupleSliceOp{tuples: tuples, desc: desc}
}

func (s *tupleSliceOp) Descriptor() *TupleDesc { return s.desc }
func (s *tupleSliceOp) Children() []Operator   { return nil }

func (s *tupleSliceOp) Open(tid TransactionID) error {
	s.idx = 0
	s.src.reset(func() (*Tuple, error) {
		if s.idx >= len(s.tuples) {
			return nil, nil
		}
		t := s.tuples[s.idx]
		s.idx++
		return t, nil
	})
	return nil
}

func (s *tupleSliceOp) HasNext() (bool, error) { return s.src.hasNext() }
func (s *tupleSliceOp) Next() (*Tuple, error)  { return s.src.next() }
func (s *tupleSliceOp) Close() error            { s.src.close(); return nil }
func (s *tupleSliceOp) Rewind() error           { return s.Open(0) }

func drain(t *testing.T, op Operator, tid TransactionID) []*Tuple {
	t.Helper()
	if err := op.Open(tid); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer op.Close()
	var out []*Tuple
	for {
		ok, err := op.HasNext()
		if err != nil {
			t.Fatalf("HasNext: %v", err)
		}
		if !ok {
			break
		}
		tup, err := op.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, tup)
	}
	return out
}

func TestSeqScanAndFilter(t *testing.T) {
	hf, bp := newPeopleFile(t, []struct {
		name string
		age  int64
	}{
		{"josie", 20}, {"annie", 17}, {"bob", 30},
	})

	tid := NewTID()
	bp.BeginTransaction(tid)

	scan := NewSeqScan(hf, "p")
	ageIdx, err := scan.Descriptor().FindFieldByName("p", "age")
	if err != nil {
		t.Fatalf("FindFieldByName: %v", err)
	}
	filt, err := NewFilter(
		&FieldExpr{FieldIndex: ageIdx, Field: scan.Descriptor().Fields[ageIdx]},
		OpGe,
		&ConstExpr{Value: IntField{Value: 18}, Ftype: IntType},
		scan,
	)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	rows := drain(t, filt, tid)
	bp.CommitTransaction(tid)
	if len(rows) != 2 {
		t.Fatalf("expected 2 adults, got %d", len(rows))
	}
}

func TestJoinNestedLoop(t *testing.T) {
	hf, bp := newPeopleFile(t, []struct {
		name string
		age  int64
	}{
		{"josie", 20}, {"annie", 17},
	})

	// A second table of (name, city) to join against people on name.
	cfg := DefaultConfig()
	cfg.StringCapacity = 16
	citiesDesc := &TupleDesc{Fields: []FieldType{
		{Fname: "name", Ftype: StringType},
		{Fname: "city", Ftype: StringType},
	}}
	citiesFile, err := NewHeapFile(filepath.Join(t.TempDir(), "cities.dat"), citiesDesc, bp, cfg)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	tid0 := NewTID()
	bp.BeginTransaction(tid0)
	for _, r := range []struct{ name, city string }{{"josie", "nyc"}, {"annie", "sf"}} {
		tup := NewTuple(*citiesDesc)
		tup.SetField(0, StringField{Value: r.name})
		tup.SetField(1, StringField{Value: r.city})
		if _, err := citiesFile.InsertTuple(tid0, tup); err != nil {
			t.Fatalf("InsertTuple: %v", err)
		}
	}
	bp.CommitTransaction(tid0)

	tid := NewTID()
	bp.BeginTransaction(tid)

	left := NewSeqScan(hf, "p")
	right := NewSeqScan(citiesFile, "c")
	leftNameIdx, _ := left.Descriptor().FindFieldByName("p", "name")
	rightNameIdx, _ := right.Descriptor().FindFieldByName("c", "name")

	join, err := NewJoin(
		left, &FieldExpr{FieldIndex: leftNameIdx, Field: left.Descriptor().Fields[leftNameIdx]},
		OpEq,
		right, &FieldExpr{FieldIndex: rightNameIdx, Field: right.Descriptor().Fields[rightNameIdx]},
	)
	if err != nil {
		t.Fatalf("NewJoin: %v", err)
	}

	rows := drain(t, join, tid)
	bp.CommitTransaction(tid)
	if len(rows) != 2 {
		t.Fatalf("expected 2 joined rows, got %d", len(rows))
	}
	if len(join.Descriptor().Fields) != 4 {
		t.Errorf("joined schema should have 4 fields, has %d", len(join.Descriptor().Fields))
	}
}

func TestAggregateSumByGroup(t *testing.T) {
	desc := &TupleDesc{Fields: []FieldType{
		{Fname: "dept", Ftype: StringType},
		{Fname: "salary", Ftype: IntType},
	}}
	cfg := DefaultConfig()
	cfg.StringCapacity = 16
	bp := NewBufferPool(cfg.BufferPages, cfg)
	hf, err := NewHeapFile(filepath.Join(t.TempDir(), "salaries.dat"), desc, bp, cfg)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}

	rows := []struct {
		dept   string
		salary int64
	}{
		{"eng", 100}, {"eng", 200}, {"sales", 50},
	}
	tid0 := NewTID()
	bp.BeginTransaction(tid0)
	for _, r := range rows {
		tup := NewTuple(*desc)
		tup.SetField(0, StringField{Value: r.dept})
		tup.SetField(1, IntField{Value: r.salary})
		if _, err := hf.InsertTuple(tid0, tup); err != nil {
			t.Fatalf("InsertTuple: %v", err)
		}
	}
	bp.CommitTransaction(tid0)

	tid := NewTID()
	bp.BeginTransaction(tid)
	scan := NewSeqScan(hf, "")
	agg, err := NewAggregate(scan, 1, AggSum, 0)
	if err != nil {
		t.Fatalf("NewAggregate: %v", err)
	}
	out := drain(t, agg, tid)
	bp.CommitTransaction(tid)

	if len(out) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(out))
	}
	sums := map[string]int64{}
	for _, tup := range out {
		dept := tup.Fields[0].(StringField).Value
		sum := tup.Fields[1].(IntField).Value
		sums[dept] = sum
	}
	if sums["eng"] != 300 {
		t.Errorf("eng sum = %d, want 300", sums["eng"])
	}
	if sums["sales"] != 50 {
		t.Errorf("sales sum = %d, want 50", sums["sales"])
	}
}

func TestInsertAndDeleteOperators(t *testing.T) {
	hf, bp := newPeopleFile(t, nil)

	tid := NewTID()
	bp.BeginTransaction(tid)

	rowsDesc := peopleDesc()
	seed := NewTuple(*rowsDesc)
	seed.SetField(0, StringField{Value: "zed"})
	seed.SetField(1, IntField{Value: 99})
	src := newTupleSliceOp([]*Tuple{seed}, rowsDesc)

	ins, err := NewInsert(src, hf)
	if err != nil {
		t.Fatalf("NewInsert: %v", err)
	}
	out := drain(t, ins, tid)
	if len(out) != 1 || out[0].Fields[0].(IntField).Value != 1 {
		t.Fatalf("insert should report count=1, got %v", out)
	}
	bp.CommitTransaction(tid)

	tid2 := NewTID()
	bp.BeginTransaction(tid2)
	scan := NewSeqScan(hf, "")
	del := NewDelete(scan, hf)
	delOut := drain(t, del, tid2)
	if len(delOut) != 1 || delOut[0].Fields[0].(IntField).Value != 1 {
		t.Fatalf("delete should report count=1, got %v", delOut)
	}
	bp.CommitTransaction(tid2)

	tid3 := NewTID()
	bp.BeginTransaction(tid3)
	remaining := drain(t, NewSeqScan(hf, ""), tid3)
	bp.CommitTransaction(tid3)
	if len(remaining) != 0 {
		t.Errorf("expected table empty after delete, got %d rows", len(remaining))
	}
}
