package engine

import "testing"

func statsWithTuples(t *testing.T, n int64, pages int, ioCost int) *TableStats {
	t.Helper()
	return &TableStats{numPages: pages, numTuples: n, ioCostPerPage: ioCost, columns: nil}
}

func TestPlannerPrefersSmallestTableFirst(t *testing.T) {
	small := statsWithTuples(t, 10, 1, 1000)
	big := statsWithTuples(t, 10000, 100, 1000)

	pl := NewPlanner(map[int32]*TableStats{1: small, 2: big}, nil)
	plan, err := pl.Plan([]int32{1, 2})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Order) != 2 {
		t.Fatalf("expected a 2-table order, got %v", plan.Order)
	}
	if plan.Order[0] != 1 {
		t.Errorf("expected the smaller table (id 1) first in a cartesian join, got order %v", plan.Order)
	}
}

func TestPlannerSingleTable(t *testing.T) {
	st := statsWithTuples(t, 5, 1, 1000)
	pl := NewPlanner(map[int32]*TableStats{1: st}, nil)
	plan, err := pl.Plan([]int32{1})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Order) != 1 || plan.Order[0] != 1 {
		t.Errorf("single-table plan should just be that table, got %v", plan.Order)
	}
}
