package engine

import (
	"math"

	boom "github.com/tylertreat/BoomFilters"
)

// columnStats holds the per-column exact histogram plus the approximate
// structures that supplement it: a HyperLogLog for distinct-value
// cardinality and a Count-Min Sketch for point-frequency estimates,
// neither of which a fixed-bucket histogram gives cheaply.
type columnStats struct {
	ftype FieldType

	intHist    *IntHistogram
	stringHist *StringHistogram

	hll *boom.HyperLogLog
	cms *boom.CountMinSketch
}

// TableStats summarizes one table's on-disk cost and per-column value
// distribution, built by two sequential scans of its heap file: the first
// determines each int column's [min, max], the second populates the
// histograms and approximate structures now that ranges are known.
type TableStats struct {
	numPages    int
	numTuples   int64
	ioCostPerPage int
	columns     []columnStats
}

// NewTableStats scans file twice, under its own short-lived read-only
// transaction, to build statistics for planning: table scan cost
// estimation and per-predicate selectivity estimation. bp is the buffer
// pool file's pages are cached through; the transaction is committed (a
// no-op for an all-shared-lock read) before returning, so the statistics
// pass never holds locks past its own lifetime.
func NewTableStats(file DBFile, bp *BufferPool, ioCostPerPage int, numHistBins int) (*TableStats, error) {
	desc := file.Descriptor()

	mins := make([]int64, len(desc.Fields))
	maxs := make([]int64, len(desc.Fields))
	seen := make([]bool, len(desc.Fields))

	tid := NewTID()
	if err := bp.BeginTransaction(tid); err != nil {
		return nil, err
	}
	defer bp.CommitTransaction(tid)

	it, err := file.Iterator(tid)
	if err != nil {
		return nil, err
	}
	var numTuples int64
	for {
		t, err := it()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		numTuples++
		for i, f := range t.Fields {
			iv, ok := f.(IntField)
			if !ok {
				continue
			}
			if !seen[i] || iv.Value < mins[i] {
				mins[i] = iv.Value
			}
			if !seen[i] || iv.Value > maxs[i] {
				maxs[i] = iv.Value
			}
			seen[i] = true
		}
	}

	ts := &TableStats{
		numPages:      file.NumPages(),
		numTuples:     numTuples,
		ioCostPerPage: ioCostPerPage,
		columns:       make([]columnStats, len(desc.Fields)),
	}
	for i, ft := range desc.Fields {
		hll, err := boom.NewDefaultHyperLogLog(0.01)
		if err != nil {
			return nil, err
		}
		cs := columnStats{ftype: ft, hll: hll, cms: boom.NewCountMinSketch(0.001, 0.99)}
		if ft.Ftype == IntType {
			lo, hi := mins[i], maxs[i]
			if !seen[i] {
				lo, hi = 0, 0
			}
			cs.intHist = NewIntHistogram(numHistBins, lo, hi)
		} else {
			cs.stringHist = NewStringHistogram(numHistBins)
		}
		ts.columns[i] = cs
	}

	it2, err := file.Iterator(tid)
	if err != nil {
		return nil, err
	}
	for {
		t, err := it2()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		for i, f := range t.Fields {
			cs := &ts.columns[i]
			switch v := f.(type) {
			case IntField:
				cs.intHist.AddValue(v.Value)
				var b [8]byte
				for j := 0; j < 8; j++ {
					b[j] = byte(v.Value >> (8 * j))
				}
				cs.hll.Add(b[:])
				cs.cms.Add(b[:])
			case StringField:
				cs.stringHist.AddValue(v.Value)
				cs.hll.Add([]byte(v.Value))
				cs.cms.Add([]byte(v.Value))
			}
		}
	}

	return ts, nil
}

// ScanCost is the estimated cost of a full sequential scan: pages times
// the configured per-page I/O cost.
func (ts *TableStats) ScanCost() float64 {
	return float64(ts.numPages) * float64(ts.ioCostPerPage)
}

// Cardinality estimates the number of tuples a predicate of the given
// selectivity will match against this table.
func (ts *TableStats) Cardinality(selectivity float64) int64 {
	return int64(math.Round(selectivity * float64(ts.numTuples)))
}

// Estimate returns the selectivity of `field op constant` using the
// column's histogram.
func (ts *TableStats) Estimate(field int, op BoolOp, constant DBValue) (float64, error) {
	if field < 0 || field >= len(ts.columns) {
		return 0, newErr(IllegalArgument, "field index %d out of range", field)
	}
	cs := &ts.columns[field]
	switch v := constant.(type) {
	case IntField:
		if cs.intHist == nil {
			return 0, newErr(IllegalArgument, "field %d is not an int column", field)
		}
		return cs.intHist.Estimate(op, v.Value), nil
	case StringField:
		if cs.stringHist == nil {
			return 0, newErr(IllegalArgument, "field %d is not a string column", field)
		}
		return cs.stringHist.Estimate(op, v.Value), nil
	default:
		return 0, newErr(IllegalArgument, "unsupported constant type %T", constant)
	}
}

// ApproxDistinctCount returns the HyperLogLog estimate of the number of
// distinct values in the given column.
func (ts *TableStats) ApproxDistinctCount(field int) (uint64, error) {
	if field < 0 || field >= len(ts.columns) {
		return 0, newErr(IllegalArgument, "field index %d out of range", field)
	}
	return ts.columns[field].hll.Count(), nil
}

// ApproxFrequency returns the Count-Min Sketch estimate of how many times
// value v occurs in the given int column.
func (ts *TableStats) ApproxFrequency(field int, v int64) (uint64, error) {
	if field < 0 || field >= len(ts.columns) {
		return 0, newErr(IllegalArgument, "field index %d out of range", field)
	}
	var b [8]byte
	for j := 0; j < 8; j++ {
		b[j] = byte(v >> (8 * j))
	}
	return ts.columns[field].cms.Count(b[:]), nil
}

// NumTuples is the tuple count observed during the statistics scan.
func (ts *TableStats) NumTuples() int64 { return ts.numTuples }
