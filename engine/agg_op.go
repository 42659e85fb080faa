package engine

import (
	"bytes"
	"encoding/binary"
)

// Aggregate computes a single aggregate value per group, or one value over
// the whole input when groupField is -1. It materializes its child fully
// on Open (a single pass, hash-based group-by keyed by the group field's
// value), then streams the finalized per-group tuples. It is single-pass:
// it does not support Rewind.
type Aggregate struct {
	child      Operator
	aggField   int
	aggOp      AggOp
	groupField int // -1 for no grouping

	desc *TupleDesc

	tid TransactionID
	src pullSource
}

// NewAggregate builds an aggregate of child's aggField column using aggOp,
// grouped by groupField (pass -1 for no grouping). Any op but COUNT
// against a StringType aggField is rejected at construction.
func NewAggregate(child Operator, aggField int, aggOp AggOp, groupField int) (*Aggregate, error) {
	fields := child.Descriptor().Fields
	if aggField < 0 || aggField >= len(fields) {
		return nil, newErr(IllegalArgument, "aggregate field index %d out of range", aggField)
	}
	if aggOp != AggCount && fields[aggField].Ftype != IntType {
		return nil, newErr(IllegalArgument, "UnsupportedAggregate: %s is only defined over int fields", aggOp)
	}
	if groupField >= len(fields) {
		return nil, newErr(IllegalArgument, "group field index %d out of range", groupField)
	}

	aggName := aggOp.String() + "(" + fields[aggField].Fname + ")"
	var desc *TupleDesc
	if groupField < 0 {
		desc = &TupleDesc{Fields: []FieldType{{Fname: aggName, Ftype: IntType}}}
	} else {
		desc = &TupleDesc{Fields: []FieldType{
			fields[groupField],
			{Fname: aggName, Ftype: IntType},
		}}
	}

	return &Aggregate{child: child, aggField: aggField, aggOp: aggOp, groupField: groupField, desc: desc}, nil
}

func (a *Aggregate) Descriptor() *TupleDesc { return a.desc }
func (a *Aggregate) Children() []Operator   { return []Operator{a.child} }

// groupKey produces a stable map key for a group value so distinct values
// never collide, without committing to one of the field's own DBValue
// representations as the key type.
func groupKey(v DBValue) string {
	var buf bytes.Buffer
	switch f := v.(type) {
	case IntField:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(f.Value))
		buf.WriteByte('i')
		buf.Write(b[:])
	case StringField:
		buf.WriteByte('s')
		buf.WriteString(f.Value)
	}
	return buf.String()
}

func (a *Aggregate) Open(tid TransactionID) error {
	a.tid = tid
	if err := a.child.Open(tid); err != nil {
		return err
	}

	order := make([]string, 0)
	states := make(map[string]AggState)
	groupVal := make(map[string]DBValue)

	for {
		ok, err := a.child.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := a.child.Next()
		if err != nil {
			return err
		}

		var key string
		if a.groupField >= 0 {
			key = groupKey(t.Fields[a.groupField])
		}
		st, ok := states[key]
		if !ok {
			st = newAggState(a.aggOp)
			st.Init(a.desc.Fields[len(a.desc.Fields)-1].Fname)
			states[key] = st
			order = append(order, key)
			if a.groupField >= 0 {
				groupVal[key] = t.Fields[a.groupField]
			}
		}
		if err := st.AddValue(t.Fields[a.aggField]); err != nil {
			return err
		}
	}

	idx := 0
	a.src.reset(func() (*Tuple, error) {
		if idx >= len(order) {
			return nil, nil
		}
		key := order[idx]
		idx++
		st := states[key]

		out := NewTuple(*a.desc)
		if a.groupField < 0 {
			fin := st.Finalize(&TupleDesc{Fields: []FieldType{a.desc.Fields[0]}})
			out.Fields[0] = fin.Fields[0]
			return out, nil
		}
		if err := out.SetField(0, groupVal[key]); err != nil {
			return nil, err
		}
		fin := st.Finalize(&TupleDesc{Fields: []FieldType{a.desc.Fields[1]}})
		out.Fields[1] = fin.Fields[0]
		return out, nil
	})
	return nil
}

func (a *Aggregate) HasNext() (bool, error) { return a.src.hasNext() }
func (a *Aggregate) Next() (*Tuple, error)  { return a.src.next() }

func (a *Aggregate) Close() error {
	a.src.close()
	return a.child.Close()
}

// Rewind is unsupported: Aggregate's group table is built once on Open
// from a single pass over its child.
func (a *Aggregate) Rewind() error {
	return newErr(DbError, "Aggregate does not support Rewind")
}
