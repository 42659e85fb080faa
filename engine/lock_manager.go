package engine

import (
	"log"
	"sync"
	"time"
)

// LockKind is the granted kind of lock held on a page.
type LockKind int

const (
	Shared LockKind = iota
	Exclusive
)

// LockManager grants per-page shared/exclusive locks to transactions under
// strict two-phase locking, and detects deadlock via cycle detection on a
// directed wait-for graph. All state is protected by a single mutex;
// fine-grained locking is a permitted but unrequired optimization.
type LockManager struct {
	mu sync.Mutex

	tidToPages map[TransactionID]map[PageID]struct{}
	pageHolders map[PageID]map[TransactionID]struct{}
	pageKind    map[PageID]LockKind

	waitFor map[TransactionID]map[TransactionID]struct{}

	retryQuantum time.Duration
}

// NewLockManager constructs an empty lock manager that retries blocked
// acquires every quantum.
func NewLockManager(quantum time.Duration) *LockManager {
	return &LockManager{
		tidToPages:  make(map[TransactionID]map[PageID]struct{}),
		pageHolders: make(map[PageID]map[TransactionID]struct{}),
		pageKind:    make(map[PageID]LockKind),
		waitFor:     make(map[TransactionID]map[TransactionID]struct{}),
		retryQuantum: quantum,
	}
}

// blocked reports whether tid must wait to acquire kind on pid, given the
// current holder set. Must be called with mu held.
func (lm *LockManager) blocked(tid TransactionID, pid PageID, kind LockKind) bool {
	holders := lm.pageHolders[pid]
	if len(holders) == 0 {
		return false
	}
	if _, already := holders[tid]; already {
		curKind := lm.pageKind[pid]
		if kind == Shared {
			return false // already holds shared or exclusive, either suffices
		}
		// kind == Exclusive: blocked unless tid is the sole holder (upgrade)
		if curKind == Exclusive {
			return false
		}
		return len(holders) != 1
	}
	// tid does not yet hold pid.
	if kind == Shared {
		return lm.pageKind[pid] == Exclusive
	}
	return true // exclusive always blocked by any other holder
}

// Acquire blocks (retrying every retryQuantum) until tid holds kind on pid,
// or returns TransactionAborted if granting the lock would complete a
// cycle in the wait-for graph.
func (lm *LockManager) Acquire(tid TransactionID, pid PageID, kind LockKind) error {
	for {
		lm.mu.Lock()
		if !lm.blocked(tid, pid, kind) {
			lm.grant(tid, pid, kind)
			lm.mu.Unlock()
			return nil
		}

		added := lm.addWaitEdges(tid, pid)
		if lm.hasCycleFrom(tid) {
			lm.removeWaitEdges(tid, added)
			lm.mu.Unlock()
			log.Printf("lock manager: aborting transaction %d, deadlocked waiting on page %v", tid, pid)
			return newErr(TransactionAborted, "transaction %d deadlocked waiting on page %v", tid, pid)
		}
		lm.mu.Unlock()
		time.Sleep(lm.retryQuantum)
	}
}

// grant records that tid now holds kind on pid. Must be called with mu
// held.
func (lm *LockManager) grant(tid TransactionID, pid PageID, kind LockKind) {
	if lm.pageHolders[pid] == nil {
		lm.pageHolders[pid] = make(map[TransactionID]struct{})
	}
	lm.pageHolders[pid][tid] = struct{}{}
	// Never weaken an existing hold: a tid re-acquiring Shared after it
	// already holds Exclusive (read-your-own-writes) must not downgrade
	// the recorded kind, or a concurrent Shared acquirer would see it as
	// unheld-exclusive and observe this tid's uncommitted writes.
	if kind == Exclusive || lm.pageKind[pid] != Exclusive {
		lm.pageKind[pid] = kind
	}

	if lm.tidToPages[tid] == nil {
		lm.tidToPages[tid] = make(map[PageID]struct{})
	}
	lm.tidToPages[tid][pid] = struct{}{}

	// tid is no longer waiting on anyone for this page.
	for waiter := range lm.waitFor {
		delete(lm.waitFor[waiter], tid)
	}
}

// addWaitEdges adds holder -> tid for every current holder of pid other
// than tid itself, returning the edges actually added (for rollback on a
// detected deadlock). Must be called with mu held.
func (lm *LockManager) addWaitEdges(tid TransactionID, pid PageID) []TransactionID {
	var added []TransactionID
	for holder := range lm.pageHolders[pid] {
		if holder == tid {
			continue
		}
		if lm.waitFor[holder] == nil {
			lm.waitFor[holder] = make(map[TransactionID]struct{})
		}
		if _, exists := lm.waitFor[holder][tid]; !exists {
			lm.waitFor[holder][tid] = struct{}{}
			added = append(added, holder)
		}
	}
	return added
}

func (lm *LockManager) removeWaitEdges(tid TransactionID, holders []TransactionID) {
	for _, holder := range holders {
		delete(lm.waitFor[holder], tid)
	}
}

// hasCycleFrom runs an iterative-in-spirit DFS (implemented recursively
// with explicit visited/on-stack sets, O(V+E)) to determine whether any
// cycle is reachable from tid in the wait-for graph. Must be called with
// mu held.
func (lm *LockManager) hasCycleFrom(start TransactionID) bool {
	visited := make(map[TransactionID]bool)
	onStack := make(map[TransactionID]bool)

	var dfs func(tid TransactionID) bool
	dfs = func(tid TransactionID) bool {
		visited[tid] = true
		onStack[tid] = true
		for next := range lm.waitFor[tid] {
			if onStack[next] {
				return true
			}
			if !visited[next] {
				if dfs(next) {
					return true
				}
			}
		}
		onStack[tid] = false
		return false
	}
	return dfs(start)
}

// Release drops tid's lock on pid, if any.
func (lm *LockManager) Release(tid TransactionID, pid PageID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.releaseLocked(tid, pid)
}

func (lm *LockManager) releaseLocked(tid TransactionID, pid PageID) {
	if holders := lm.pageHolders[pid]; holders != nil {
		delete(holders, tid)
		if len(holders) == 0 {
			delete(lm.pageHolders, pid)
			delete(lm.pageKind, pid)
		}
	}
	delete(lm.tidToPages[tid], pid)
}

// ReleaseAll drops every lock tid holds, in any order. After it returns,
// Holds(tid, pid) is false for every pid.
func (lm *LockManager) ReleaseAll(tid TransactionID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	pages := lm.tidToPages[tid]
	for pid := range pages {
		lm.releaseLocked(tid, pid)
	}
	delete(lm.tidToPages, tid)
	delete(lm.waitFor, tid)
	for waiter := range lm.waitFor {
		delete(lm.waitFor[waiter], tid)
	}
}

// Holds reports whether tid currently holds any lock on pid.
func (lm *LockManager) Holds(tid TransactionID, pid PageID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	_, ok := lm.pageHolders[pid][tid]
	return ok
}

// HeldPages returns the set of pages tid currently holds a lock on.
func (lm *LockManager) HeldPages(tid TransactionID) []PageID {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	pages := make([]PageID, 0, len(lm.tidToPages[tid]))
	for pid := range lm.tidToPages[tid] {
		pages = append(pages, pid)
	}
	return pages
}
