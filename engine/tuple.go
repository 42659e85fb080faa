package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// TupleDesc is the schema of a row: a non-empty ordered sequence of
// (Type, optional Name) pairs. size() is stable for the life of a table.
type TupleDesc struct {
	Fields []FieldType
}

// Size returns the fixed on-disk row size in bytes under the supplied
// string capacity.
func (td *TupleDesc) Size(stringCapacity int) int {
	n := 0
	for _, f := range td.Fields {
		n += f.Len(stringCapacity)
	}
	return n
}

// Equals compares two TupleDescs by type only, ignoring names.
func (td *TupleDesc) Equals(other *TupleDesc) bool {
	if len(td.Fields) != len(other.Fields) {
		return false
	}
	for i := range td.Fields {
		if td.Fields[i].Ftype != other.Fields[i].Ftype {
			return false
		}
	}
	return true
}

// Copy makes a shallow copy of the field slice.
func (td *TupleDesc) Copy() *TupleDesc {
	fields := make([]FieldType, len(td.Fields))
	copy(fields, td.Fields)
	return &TupleDesc{Fields: fields}
}

// WithAlias returns a copy of td with every field's TableQualifier set to
// alias. Used by SeqScan to prefix emitted field names.
func (td *TupleDesc) WithAlias(alias string) *TupleDesc {
	c := td.Copy()
	if alias == "" {
		return c
	}
	for i := range c.Fields {
		c.Fields[i].TableQualifier = alias
	}
	return c
}

// Merge concatenates two TupleDescs: the fields of other are appended
// after the fields of td, producing a third TupleDesc. Used by Join to
// build its output schema.
func (td *TupleDesc) Merge(other *TupleDesc) *TupleDesc {
	fields := make([]FieldType, 0, len(td.Fields)+len(other.Fields))
	fields = append(fields, td.Fields...)
	fields = append(fields, other.Fields...)
	return &TupleDesc{Fields: fields}
}

// FindFieldByName returns the index of the first field named name. Prefers
// a match on TableQualifier when qualifier is non-empty, but will fall back
// to an unqualified name match.
func (td *TupleDesc) FindFieldByName(qualifier, name string) (int, error) {
	best := -1
	for i, f := range td.Fields {
		if f.Fname != name {
			continue
		}
		if qualifier != "" && f.TableQualifier == qualifier {
			return i, nil
		}
		if best == -1 {
			best = i
		}
	}
	if best == -1 {
		return -1, newErr(NoSuchElement, "field %s.%s not found", qualifier, name)
	}
	return best, nil
}

// ================== DBValue ======================

// DBValue is a typed field value. EvalPred compares v against another
// DBValue of the same concrete type using op.
type DBValue interface {
	EvalPred(v DBValue, op BoolOp) bool
}

// IntField is a 32-bit signed integer field value (stored widened as
// int64 in memory; serialized as a 4-byte big-endian two's complement).
type IntField struct {
	Value int64
}

func (f IntField) EvalPred(v DBValue, op BoolOp) bool {
	other, ok := v.(IntField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == other.Value
	case OpNeq:
		return f.Value != other.Value
	case OpLt:
		return f.Value < other.Value
	case OpLe:
		return f.Value <= other.Value
	case OpGt:
		return f.Value > other.Value
	case OpGe:
		return f.Value >= other.Value
	default:
		return false
	}
}

// StringField is a fixed-capacity, zero-padded string field value.
type StringField struct {
	Value string
}

func (f StringField) EvalPred(v DBValue, op BoolOp) bool {
	other, ok := v.(StringField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == other.Value
	case OpNeq:
		return f.Value != other.Value
	case OpLt:
		return f.Value < other.Value
	case OpLe:
		return f.Value <= other.Value
	case OpGt:
		return f.Value > other.Value
	case OpGe:
		return f.Value >= other.Value
	case OpLike:
		return strings.Contains(f.Value, other.Value)
	default:
		return false
	}
}

// ================== Tuple ======================

// Tuple is a schema-bound row. Fields may be nil during construction; Rid
// is set once the tuple is placed on a page.
type Tuple struct {
	Desc   TupleDesc
	Fields []DBValue
	Rid    *RecordID
}

// NewTuple builds a tuple with nil (unset) fields, ready for SetField.
func NewTuple(desc TupleDesc) *Tuple {
	return &Tuple{Desc: desc, Fields: make([]DBValue, len(desc.Fields))}
}

// SetField sets the value at index i. The caller is responsible for
// supplying a value whose concrete type matches desc.Fields[i].Ftype; it is
// not re-checked here.
func (t *Tuple) SetField(i int, v DBValue) error {
	if i < 0 || i >= len(t.Fields) {
		return newErr(DbError, "field index %d out of range (tuple has %d fields)", i, len(t.Fields))
	}
	t.Fields[i] = v
	return nil
}

// Equals compares two tuples for equality: equal TupleDescs (type-only) and
// equal field values.
func (t *Tuple) Equals(other *Tuple) bool {
	if t == nil && other == nil {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	if len(t.Fields) != len(other.Fields) {
		return false
	}
	if !t.Desc.Equals(&other.Desc) {
		return false
	}
	for i := range t.Fields {
		if t.Fields[i] != other.Fields[i] {
			return false
		}
	}
	return true
}

// JoinTuples merges two tuples: the fields of t2 are appended to those of
// t1, and the resulting TupleDesc is the merge of the two input schemas.
func JoinTuples(t1, t2 *Tuple) *Tuple {
	if t1 == nil {
		return t2
	}
	if t2 == nil {
		return t1
	}
	fields := make([]DBValue, 0, len(t1.Fields)+len(t2.Fields))
	fields = append(fields, t1.Fields...)
	fields = append(fields, t2.Fields...)
	return &Tuple{
		Desc:   *t1.Desc.Merge(&t2.Desc),
		Fields: fields,
	}
}

// WriteTo serializes the tuple's field values, in schema order, into buf.
// Integers are 4-byte big-endian two's complement. Strings are a 4-byte
// big-endian length prefix followed by stringCapacity bytes of payload,
// zero-padded.
func (t *Tuple) WriteTo(buf *bytes.Buffer, stringCapacity int) error {
	for i, field := range t.Fields {
		switch v := field.(type) {
		case IntField:
			if err := binary.Write(buf, binary.BigEndian, int32(v.Value)); err != nil {
				return newErr(IoError, "writing int field %d: %v", i, err)
			}
		case StringField:
			payload := []byte(v.Value)
			if len(payload) > stringCapacity {
				payload = payload[:stringCapacity]
			}
			if err := binary.Write(buf, binary.BigEndian, int32(len(payload))); err != nil {
				return newErr(IoError, "writing string length for field %d: %v", i, err)
			}
			padded := make([]byte, stringCapacity)
			copy(padded, payload)
			if _, err := buf.Write(padded); err != nil {
				return newErr(IoError, "writing string payload for field %d: %v", i, err)
			}
		default:
			return newErr(DbError, "unsupported field type %T at index %d", field, i)
		}
	}
	return nil
}

// ReadTupleFrom deserializes a tuple of the given schema from buf.
func ReadTupleFrom(buf *bytes.Buffer, desc *TupleDesc, stringCapacity int) (*Tuple, error) {
	t := &Tuple{Desc: *desc, Fields: make([]DBValue, len(desc.Fields))}
	for i, ft := range desc.Fields {
		switch ft.Ftype {
		case IntType:
			var v int32
			if err := binary.Read(buf, binary.BigEndian, &v); err != nil {
				return nil, newErr(IoError, "reading int field %d: %v", i, err)
			}
			t.Fields[i] = IntField{Value: int64(v)}
		case StringType:
			var n int32
			if err := binary.Read(buf, binary.BigEndian, &n); err != nil {
				return nil, newErr(IoError, "reading string length for field %d: %v", i, err)
			}
			payload := make([]byte, stringCapacity)
			if _, err := buf.Read(payload); err != nil {
				return nil, newErr(IoError, "reading string payload for field %d: %v", i, err)
			}
			if int(n) < 0 || int(n) > stringCapacity {
				n = int32(stringCapacity)
			}
			t.Fields[i] = StringField{Value: string(payload[:n])}
		default:
			return nil, newErr(DbError, "unsupported field type %v at index %d", ft.Ftype, i)
		}
	}
	return t, nil
}

// Key computes a comparable key for a tuple's field values, usable as a
// map key (e.g. for Project-style duplicate elimination or a hash
// aggregate's group table). Two tuples with equal field values always
// produce equal keys.
func (t *Tuple) Key(stringCapacity int) (string, error) {
	var buf bytes.Buffer
	if err := t.WriteTo(&buf, stringCapacity); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		switch v := f.(type) {
		case IntField:
			parts[i] = fmt.Sprintf("%d", v.Value)
		case StringField:
			parts[i] = v.Value
		default:
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ",")
}
