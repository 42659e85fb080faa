package engine

// Join is a simple nested-loop join: left is the outer relation, right is
// the inner. For every left tuple, the entire right child is iterated
// (rewound for each new left tuple); every right tuple matching
// `leftField op rightField` is emitted paired with the current left
// tuple. Output schema is merge(left, right).
type Join struct {
	leftField, rightField Expr
	op                    BoolOp
	left, right           Operator

	tid TransactionID
	src pullSource

	curLeft *Tuple
}

// NewJoin constructs a nested-loop join. leftField and rightField must
// agree in type.
func NewJoin(left Operator, leftField Expr, op BoolOp, right Operator, rightField Expr) (*Join, error) {
	if leftField.GetExprType().Ftype != rightField.GetExprType().Ftype {
		return nil, newErr(IllegalArgument, "join fields must agree in type")
	}
	return &Join{leftField: leftField, rightField: rightField, op: op, left: left, right: right}, nil
}

// Descriptor is the union of the left and right child schemas.
func (j *Join) Descriptor() *TupleDesc { return j.left.Descriptor().Merge(j.right.Descriptor()) }
func (j *Join) Children() []Operator   { return []Operator{j.left, j.right} }

func (j *Join) Open(tid TransactionID) error {
	j.tid = tid
	j.curLeft = nil
	if err := j.left.Open(tid); err != nil {
		return err
	}
	if err := j.right.Open(tid); err != nil {
		return err
	}
	j.src.reset(func() (*Tuple, error) {
		for {
			if j.curLeft == nil {
				ok, err := j.left.HasNext()
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, nil
				}
				lt, err := j.left.Next()
				if err != nil {
					return nil, err
				}
				j.curLeft = lt
				if err := j.right.Rewind(); err != nil {
					return nil, err
				}
			}

			for {
				ok, err := j.right.HasNext()
				if err != nil {
					return nil, err
				}
				if !ok {
					j.curLeft = nil
					break
				}
				rt, err := j.right.Next()
				if err != nil {
					return nil, err
				}
				lv, err := j.leftField.EvalExpr(j.curLeft)
				if err != nil {
					return nil, err
				}
				rv, err := j.rightField.EvalExpr(rt)
				if err != nil {
					return nil, err
				}
				if lv.EvalPred(rv, j.op) {
					return JoinTuples(j.curLeft, rt), nil
				}
			}
		}
	})
	return nil
}

func (j *Join) HasNext() (bool, error) { return j.src.hasNext() }
func (j *Join) Next() (*Tuple, error)  { return j.src.next() }

func (j *Join) Close() error {
	j.src.close()
	if err := j.left.Close(); err != nil {
		return err
	}
	return j.right.Close()
}

// Rewind resets both children; all in-progress join state (the current
// left tuple and the inner child's position) is lost.
func (j *Join) Rewind() error {
	if err := j.left.Rewind(); err != nil {
		return err
	}
	if err := j.right.Rewind(); err != nil {
		return err
	}
	return j.Open(j.tid)
}
