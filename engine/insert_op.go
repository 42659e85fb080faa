package engine

// Insert drains its child entirely on the first Next call, inserting each
// tuple into file via the buffer manager, and yields exactly one output
// tuple: a single IntType field holding the number of tuples inserted.
// Insert is single-pass; it does not support Rewind.
type Insert struct {
	child Operator
	file  DBFile
	desc  *TupleDesc

	tid  TransactionID
	src  pullSource
	done bool
}

// NewInsert constructs an insert of child's output into file. The child's
// schema must match file's schema exactly in field types, else this fails
// with a schema-mismatch DbError.
func NewInsert(child Operator, file DBFile) (*Insert, error) {
	if !child.Descriptor().Equals(file.Descriptor()) {
		return nil, newErr(DbError, "SchemaMismatch: insert child schema does not match table schema")
	}
	desc := &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}}
	return &Insert{child: child, file: file, desc: desc}, nil
}

func (in *Insert) Descriptor() *TupleDesc { return in.desc }
func (in *Insert) Children() []Operator   { return []Operator{in.child} }

func (in *Insert) Open(tid TransactionID) error {
	in.tid = tid
	in.done = false
	if err := in.child.Open(tid); err != nil {
		return err
	}
	in.src.reset(func() (*Tuple, error) {
		if in.done {
			return nil, nil
		}
		in.done = true
		var count int64
		for {
			ok, err := in.child.HasNext()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			t, err := in.child.Next()
			if err != nil {
				return nil, err
			}
			if _, err := in.file.InsertTuple(in.tid, t); err != nil {
				return nil, err
			}
			count++
		}
		out := NewTuple(*in.desc)
		if err := out.SetField(0, IntField{Value: count}); err != nil {
			return nil, err
		}
		return out, nil
	})
	return nil
}

func (in *Insert) HasNext() (bool, error) { return in.src.hasNext() }
func (in *Insert) Next() (*Tuple, error)  { return in.src.next() }

func (in *Insert) Close() error {
	in.src.close()
	return in.child.Close()
}

// Rewind is unsupported: Insert is a single-pass, side-effecting operator.
func (in *Insert) Rewind() error {
	return newErr(DbError, "Insert does not support Rewind")
}
