package engine

// Filter yields only child tuples satisfying `field op constant` (or, more
// generally, `left op right` over any two expressions evaluated against
// each child tuple). LIKE is defined only over strings, as substring
// containment.
type Filter struct {
	op    BoolOp
	left  Expr
	right Expr
	child Operator

	tid TransactionID
	src pullSource
}

// NewFilter constructs a filter with predicate `left op right`.
func NewFilter(left Expr, op BoolOp, right Expr, child Operator) (*Filter, error) {
	if op == OpLike {
		if left.GetExprType().Ftype != StringType || right.GetExprType().Ftype != StringType {
			return nil, newErr(IllegalArgument, "LIKE is only defined over strings")
		}
	}
	return &Filter{left: left, op: op, right: right, child: child}, nil
}

func (f *Filter) Descriptor() *TupleDesc { return f.child.Descriptor() }
func (f *Filter) Children() []Operator   { return []Operator{f.child} }

func (f *Filter) Open(tid TransactionID) error {
	f.tid = tid
	if err := f.child.Open(tid); err != nil {
		return err
	}
	f.src.reset(func() (*Tuple, error) {
		for {
			ok, err := f.child.HasNext()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			t, err := f.child.Next()
			if err != nil {
				return nil, err
			}
			lv, err := f.left.EvalExpr(t)
			if err != nil {
				return nil, err
			}
			rv, err := f.right.EvalExpr(t)
			if err != nil {
				return nil, err
			}
			if lv.EvalPred(rv, f.op) {
				return t, nil
			}
		}
	})
	return nil
}

func (f *Filter) HasNext() (bool, error) { return f.src.hasNext() }
func (f *Filter) Next() (*Tuple, error)  { return f.src.next() }

func (f *Filter) Close() error {
	f.src.close()
	return f.child.Close()
}

func (f *Filter) Rewind() error {
	if err := f.child.Rewind(); err != nil {
		return err
	}
	return f.Open(f.tid)
}
