package engine

import "fmt"

// AggOp is the set of supported aggregate functions.
type AggOp int

const (
	AggCount AggOp = iota
	AggSum
	AggAvg
	AggMax
	AggMin
)

func (op AggOp) String() string {
	switch op {
	case AggCount:
		return "count"
	case AggSum:
		return "sum"
	case AggAvg:
		return "avg"
	case AggMax:
		return "max"
	case AggMin:
		return "min"
	default:
		return "unknown"
	}
}

// AggState accumulates one group's running aggregate value. All arithmetic
// is int64; AVG truncates like integer division.
type AggState interface {
	Init(fname string)
	Copy() AggState
	AddValue(v DBValue) error
	Finalize(desc *TupleDesc) *Tuple
	GetTupleDesc() *TupleDesc
}

type countState struct {
	fname string
	count int64
}

func (s *countState) Init(fname string) { s.fname = fname }
func (s *countState) Copy() AggState    { c := *s; return &c }
func (s *countState) AddValue(v DBValue) error {
	s.count++
	return nil
}
func (s *countState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: s.fname, Ftype: IntType}}}
}
func (s *countState) Finalize(desc *TupleDesc) *Tuple {
	t := NewTuple(*desc)
	t.SetField(0, IntField{Value: s.count})
	return t
}

type sumState struct {
	fname string
	sum   int64
}

func (s *sumState) Init(fname string) { s.fname = fname }
func (s *sumState) Copy() AggState    { c := *s; return &c }
func (s *sumState) AddValue(v DBValue) error {
	iv, ok := v.(IntField)
	if !ok {
		return newErr(IllegalArgument, "sum requires an int field")
	}
	s.sum += iv.Value
	return nil
}
func (s *sumState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: s.fname, Ftype: IntType}}}
}
func (s *sumState) Finalize(desc *TupleDesc) *Tuple {
	t := NewTuple(*desc)
	t.SetField(0, IntField{Value: s.sum})
	return t
}

type avgState struct {
	fname string
	sum   int64
	count int64
}

func (s *avgState) Init(fname string) { s.fname = fname }
func (s *avgState) Copy() AggState    { c := *s; return &c }
func (s *avgState) AddValue(v DBValue) error {
	iv, ok := v.(IntField)
	if !ok {
		return newErr(IllegalArgument, "avg requires an int field")
	}
	s.sum += iv.Value
	s.count++
	return nil
}
func (s *avgState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: s.fname, Ftype: IntType}}}
}
func (s *avgState) Finalize(desc *TupleDesc) *Tuple {
	var avg int64
	if s.count > 0 {
		avg = s.sum / s.count
	}
	t := NewTuple(*desc)
	t.SetField(0, IntField{Value: avg})
	return t
}

type maxState struct {
	fname string
	max   int64
	seen  bool
}

func (s *maxState) Init(fname string) { s.fname = fname }
func (s *maxState) Copy() AggState    { c := *s; return &c }
func (s *maxState) AddValue(v DBValue) error {
	iv, ok := v.(IntField)
	if !ok {
		return newErr(IllegalArgument, "max requires an int field")
	}
	if !s.seen || iv.Value > s.max {
		s.max = iv.Value
		s.seen = true
	}
	return nil
}
func (s *maxState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: s.fname, Ftype: IntType}}}
}
func (s *maxState) Finalize(desc *TupleDesc) *Tuple {
	t := NewTuple(*desc)
	t.SetField(0, IntField{Value: s.max})
	return t
}

type minState struct {
	fname string
	min   int64
	seen  bool
}

func (s *minState) Init(fname string) { s.fname = fname }
func (s *minState) Copy() AggState    { c := *s; return &c }
func (s *minState) AddValue(v DBValue) error {
	iv, ok := v.(IntField)
	if !ok {
		return newErr(IllegalArgument, "min requires an int field")
	}
	if !s.seen || iv.Value < s.min {
		s.min = iv.Value
		s.seen = true
	}
	return nil
}
func (s *minState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: s.fname, Ftype: IntType}}}
}
func (s *minState) Finalize(desc *TupleDesc) *Tuple {
	t := NewTuple(*desc)
	t.SetField(0, IntField{Value: s.min})
	return t
}

// newAggState constructs a fresh, zeroed accumulator for op. Only COUNT is
// defined over string fields; callers must reject Sum/Avg/Max/Min against
// a StringType field before ever calling this.
func newAggState(op AggOp) AggState {
	switch op {
	case AggCount:
		return &countState{}
	case AggSum:
		return &sumState{}
	case AggAvg:
		return &avgState{}
	case AggMax:
		return &maxState{}
	case AggMin:
		return &minState{}
	default:
		panic(fmt.Sprintf("unknown aggregate op %d", op))
	}
}
