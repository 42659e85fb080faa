package engine

// IntHistogram is a fixed-width equi-width histogram over an int column's
// observed range [min, max], used to estimate selectivity of a comparison
// against a constant without scanning the table.
type IntHistogram struct {
	buckets []int64
	min     int64
	max     int64
	width   float64
	total   int64
}

// NewIntHistogram builds an empty histogram with the given bucket count
// over [min, max].
func NewIntHistogram(buckets int, min, max int64) *IntHistogram {
	if buckets < 1 {
		buckets = 1
	}
	width := float64(max-min+1) / float64(buckets)
	if width <= 0 {
		width = 1
	}
	return &IntHistogram{buckets: make([]int64, buckets), min: min, max: max, width: width}
}

func (h *IntHistogram) bucketOf(v int64) int {
	if v < h.min {
		return -1
	}
	idx := int(float64(v-h.min) / h.width)
	if idx >= len(h.buckets) {
		idx = len(h.buckets) - 1
	}
	return idx
}

// AddValue records one occurrence of v. Values outside [min, max] are
// silently ignored.
func (h *IntHistogram) AddValue(v int64) {
	if v < h.min || v > h.max {
		return
	}
	b := h.bucketOf(v)
	if b < 0 {
		return
	}
	h.buckets[b]++
	h.total++
}

// Estimate returns the fraction of values satisfying `field op v`,
// in [0, 1]. LIKE is not defined over ints and always returns 1 (no
// selectivity information).
func (h *IntHistogram) Estimate(op BoolOp, v int64) float64 {
	switch op {
	case OpLt:
		return h.estimateLess(v)
	case OpLe:
		return h.estimateLess(v + 1)
	case OpGt:
		return 1 - h.estimateLess(v+1)
	case OpGe:
		return 1 - h.estimateLess(v)
	case OpEq:
		return h.estimateLess(v+1) - h.estimateLess(v)
	case OpNeq:
		return 1 - (h.estimateLess(v+1) - h.estimateLess(v))
	default:
		return 1
	}
}

// estimateLess returns the fraction of values strictly less than v.
func (h *IntHistogram) estimateLess(v int64) float64 {
	if h.total == 0 {
		return 0
	}
	if v <= h.min {
		return 0
	}
	if v > h.max {
		return 1
	}
	b := h.bucketOf(v - 1)
	var count float64
	for i := 0; i < b; i++ {
		count += float64(h.buckets[i])
	}
	// Partial credit for the bucket v falls into: assume uniform density
	// within the bucket.
	bucketStart := h.min + int64(float64(b)*h.width)
	bucketWidth := h.width
	if bucketWidth <= 0 {
		bucketWidth = 1
	}
	frac := float64(v-bucketStart) / bucketWidth
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	count += frac * float64(h.buckets[b])
	return count / float64(h.total)
}

// StringHistogram estimates selectivity over a string column by coding
// each string's leading bytes into an integer key and delegating to an
// internal IntHistogram. See DESIGN.md for the coding scheme.
type StringHistogram struct {
	inner *IntHistogram
}

// stringKey codes the first 4 bytes of s (clamped to 0-127 each, so the
// resulting big-endian base-128 integer is monotonic in string order) into
// a single int64 suitable for IntHistogram's range.
func stringKey(s string) int64 {
	var key int64
	for i := 0; i < 4; i++ {
		var b byte
		if i < len(s) {
			b = s[i]
			if b > 127 {
				b = 127
			}
		}
		key = key*128 + int64(b)
	}
	return key
}

// NewStringHistogram builds an empty histogram with the given bucket
// count over the full representable string-key range.
func NewStringHistogram(buckets int) *StringHistogram {
	return &StringHistogram{inner: NewIntHistogram(buckets, 0, stringKey(string([]byte{127, 127, 127, 127})))}
}

func (h *StringHistogram) AddValue(s string) {
	h.inner.AddValue(stringKey(s))
}

func (h *StringHistogram) Estimate(op BoolOp, s string) float64 {
	if op == OpLike {
		// Substring containment carries no histogram information.
		return 1
	}
	return h.inner.Estimate(op, stringKey(s))
}
