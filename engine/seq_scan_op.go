package engine

// SeqScan iterates a table's heap file page by page, acquiring each
// fetched page with READ intent through the buffer manager. Its emitted
// TupleDesc has field names prefixed by alias, if alias is non-empty.
type SeqScan struct {
	file  DBFile
	alias string
	desc  *TupleDesc

	tid TransactionID
	src pullSource
}

// NewSeqScan constructs a scan of file, aliasing emitted field names.
func NewSeqScan(file DBFile, alias string) *SeqScan {
	return &SeqScan{
		file:  file,
		alias: alias,
		desc:  file.Descriptor().WithAlias(alias),
	}
}

func (s *SeqScan) Descriptor() *TupleDesc  { return s.desc }
func (s *SeqScan) Children() []Operator    { return nil }

func (s *SeqScan) Open(tid TransactionID) error {
	s.tid = tid
	it, err := s.file.Iterator(tid)
	if err != nil {
		return err
	}
	s.src.reset(func() (*Tuple, error) {
		t, err := it()
		if err != nil || t == nil {
			return nil, err
		}
		out := &Tuple{Desc: *s.desc, Fields: t.Fields, Rid: t.Rid}
		return out, nil
	})
	return nil
}

func (s *SeqScan) HasNext() (bool, error) { return s.src.hasNext() }
func (s *SeqScan) Next() (*Tuple, error)  { return s.src.next() }

func (s *SeqScan) Close() error {
	s.src.close()
	return nil
}

func (s *SeqScan) Rewind() error {
	return s.Open(s.tid)
}
