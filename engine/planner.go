package engine

// JoinPredicate describes one equality or comparison predicate between two
// tables participating in a multi-way join, in terms of each side's table
// ID and field index within that table's own schema.
type JoinPredicate struct {
	LeftTable  int32
	LeftField  int
	Op         BoolOp
	RightTable int32
	RightField int
}

// joinDefaultSelectivity is used for any predicate connecting two tables
// when no histogram-backed estimate is available for the pair; it stands
// in for "some join selectivity, not a full cross product".
const joinDefaultSelectivity = 0.1

// JoinPlan is one candidate left-deep join order: tables are scanned and
// joined in the given sequence, left to right, each newly added table
// becoming the inner (right) side of a nested-loop join against the
// accumulated outer plan.
type JoinPlan struct {
	Order         []int32
	EstimatedCost float64
	EstimatedRows float64
}

// Planner chooses a left-deep join order over a fixed set of tables,
// minimizing the nested-loop cost Σ(outer_rows × inner_scan_cost) via
// subset-DP (System R style). It only ever needs a table's scan cost and
// row count; join selectivity is approximated since exact per-pair
// histograms over arbitrary predicates are out of scope.
type Planner struct {
	stats       map[int32]*TableStats
	predicates  []JoinPredicate
}

// NewPlanner builds a planner over the given per-table statistics and
// cross-table join predicates.
func NewPlanner(stats map[int32]*TableStats, predicates []JoinPredicate) *Planner {
	return &Planner{stats: stats, predicates: predicates}
}

// connected reports whether any predicate joins a table in `have` to
// table `next`.
func (pl *Planner) connected(have map[int32]bool, next int32) bool {
	for _, p := range pl.predicates {
		if p.LeftTable == next && have[p.RightTable] {
			return true
		}
		if p.RightTable == next && have[p.LeftTable] {
			return true
		}
	}
	return false
}

// Plan runs subset-DP over tables (at most 20 of them; this is a planning
// aid, not expected to scale to wide multi-way joins) and returns the
// lowest-cost left-deep order found. Cartesian products are allowed only
// when no subset connects via a predicate, never preferred over a
// predicate-connected alternative.
func (pl *Planner) Plan(tables []int32) (*JoinPlan, error) {
	n := len(tables)
	if n == 0 {
		return &JoinPlan{}, nil
	}
	if n > 20 {
		return nil, newErr(IllegalArgument, "planner supports at most 20 tables, got %d", n)
	}

	type entry struct {
		cost      float64
		rows      float64
		order     []int32
		cartesian bool // some step of order had no connecting predicate
	}
	best := make(map[int]*entry, 1<<n)

	for i, t := range tables {
		st := pl.stats[t]
		if st == nil {
			return nil, newErr(IllegalArgument, "no statistics for table %d", t)
		}
		mask := 1 << i
		best[mask] = &entry{cost: st.ScanCost(), rows: float64(st.NumTuples()), order: []int32{t}}
	}

	for mask := 1; mask < (1 << n); mask++ {
		if best[mask] == nil {
			continue
		}
		for i, t := range tables {
			bit := 1 << i
			if mask&bit != 0 {
				continue
			}
			newMask := mask | bit
			prev := best[mask]
			st := pl.stats[t]

			have := make(map[int32]bool)
			for j, id := range tables {
				if mask&(1<<j) != 0 {
					have[id] = true
				}
			}
			selectivity := 1.0
			connected := pl.connected(have, t)
			if connected {
				selectivity = joinDefaultSelectivity
			}

			addedCost := prev.rows * st.ScanCost()
			newCost := prev.cost + addedCost
			newRows := prev.rows * float64(st.NumTuples()) * selectivity
			cartesian := prev.cartesian || !connected

			cand := best[newMask]
			if cand == nil || (cand.cartesian && !cartesian) ||
				(cand.cartesian == cartesian && newCost < cand.cost) {
				order := make([]int32, len(prev.order)+1)
				copy(order, prev.order)
				order[len(prev.order)] = t
				best[newMask] = &entry{cost: newCost, rows: newRows, order: order, cartesian: cartesian}
			}
		}
	}

	full := (1 << n) - 1
	e := best[full]
	if e == nil {
		return nil, newErr(DbError, "planner failed to find a complete join order")
	}
	return &JoinPlan{Order: e.order, EstimatedCost: e.cost, EstimatedRows: e.rows}, nil
}
