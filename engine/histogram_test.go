package engine

import "testing"

func TestIntHistogramEstimateEquals(t *testing.T) {
	h := NewIntHistogram(10, 1, 100)
	for v := int64(1); v <= 100; v++ {
		h.AddValue(v)
	}

	lt := h.Estimate(OpLt, 50)
	if lt < 0.4 || lt > 0.6 {
		t.Errorf("estimate(<,50) = %f, want close to 0.49", lt)
	}

	eq := h.Estimate(OpEq, 50)
	if eq <= 0 || eq > 0.2 {
		t.Errorf("estimate(=,50) = %f, want a small positive selectivity", eq)
	}
}

func TestIntHistogramComplementaryOps(t *testing.T) {
	h := NewIntHistogram(20, 0, 199)
	for v := int64(0); v < 200; v++ {
		h.AddValue(v)
	}

	for _, v := range []int64{0, 50, 100, 199} {
		le := h.Estimate(OpLe, v)
		gt := h.Estimate(OpGt, v)
		if diff := (le + gt) - 1; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("<=(%d) + >(%d) = %f, want 1", v, v, le+gt)
		}

		eq := h.Estimate(OpEq, v)
		neq := h.Estimate(OpNeq, v)
		if diff := (eq + neq) - 1; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("=(%d) + !=(%d) = %f, want 1", v, v, eq+neq)
		}
	}
}

func TestIntHistogramOutOfRangeIgnored(t *testing.T) {
	h := NewIntHistogram(5, 0, 9)
	h.AddValue(-5)
	h.AddValue(100)
	if eq := h.Estimate(OpEq, 3); eq != 0 {
		t.Errorf("a histogram that ignored all out-of-range values should have zero mass, got estimate(=,3)=%f", eq)
	}
}

func TestStringHistogramOrdering(t *testing.T) {
	h := NewStringHistogram(10)
	words := []string{"apple", "banana", "cherry", "date", "fig", "grape"}
	for _, w := range words {
		h.AddValue(w)
	}
	ltB := h.Estimate(OpLt, "banana")
	gtB := h.Estimate(OpGt, "banana")
	if ltB < 0 || ltB > 1 || gtB < 0 || gtB > 1 {
		t.Errorf("string histogram selectivity out of [0,1]: lt=%f gt=%f", ltB, gtB)
	}
}
