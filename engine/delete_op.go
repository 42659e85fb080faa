package engine

// Delete drains its child entirely on the first Next call, deleting each
// tuple from its owning page via the buffer manager (using the tuple's
// RecordID), and yields exactly one output tuple: a single IntType field
// holding the number of tuples deleted. Delete is single-pass; it does not
// support Rewind.
type Delete struct {
	child Operator
	desc  *TupleDesc

	tid  TransactionID
	src  pullSource
	done bool
	file DBFile
}

// NewDelete constructs a delete of every tuple child produces. file must
// be the table the child's tuples were read from, since deletion is
// addressed by RecordID through the owning heap file.
func NewDelete(child Operator, file DBFile) *Delete {
	desc := &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}}
	return &Delete{child: child, file: file, desc: desc}
}

func (d *Delete) Descriptor() *TupleDesc { return d.desc }
func (d *Delete) Children() []Operator   { return []Operator{d.child} }

func (d *Delete) Open(tid TransactionID) error {
	d.tid = tid
	d.done = false
	if err := d.child.Open(tid); err != nil {
		return err
	}
	d.src.reset(func() (*Tuple, error) {
		if d.done {
			return nil, nil
		}
		d.done = true
		var count int64
		for {
			ok, err := d.child.HasNext()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			t, err := d.child.Next()
			if err != nil {
				return nil, err
			}
			if _, err := d.file.DeleteTuple(d.tid, t); err != nil {
				return nil, err
			}
			count++
		}
		out := NewTuple(*d.desc)
		if err := out.SetField(0, IntField{Value: count}); err != nil {
			return nil, err
		}
		return out, nil
	})
	return nil
}

func (d *Delete) HasNext() (bool, error) { return d.src.hasNext() }
func (d *Delete) Next() (*Tuple, error)  { return d.src.next() }

func (d *Delete) Close() error {
	d.src.close()
	return d.child.Close()
}

// Rewind is unsupported: Delete is a single-pass, side-effecting operator.
func (d *Delete) Rewind() error {
	return newErr(DbError, "Delete does not support Rewind")
}
