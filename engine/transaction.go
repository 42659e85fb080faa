package engine

import "sync/atomic"

// TransactionID is an opaque, process-locally monotonic 64-bit transaction
// identifier. There is no nesting: a transaction is begun once and ends in
// exactly one commit or abort.
type TransactionID int64

var nextTID int64

// NewTID allocates a fresh TransactionID from a process-wide atomic
// counter.
func NewTID() TransactionID {
	return TransactionID(atomic.AddInt64(&nextTID, 1))
}
