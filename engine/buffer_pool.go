package engine

import (
	"log"
	"sync"
)

// RWPerm is the intent a caller fetches a page with.
type RWPerm int

const (
	ReadPerm RWPerm = iota
	WritePerm
)

func (perm RWPerm) lockKind() LockKind {
	if perm == WritePerm {
		return Exclusive
	}
	return Shared
}

// BufferPool is the bounded in-memory page cache every page access is
// mediated through. It acquires page locks via its LockManager, enforces
// NO-STEAL eviction, and performs the FORCE flush-or-restore dance on
// transaction completion.
type BufferPool struct {
	mu       sync.Mutex
	capacity int
	pages    map[PageID]Page
	owner    map[PageID]DBFile

	locks *LockManager

	active map[TransactionID]struct{}
}

// NewBufferPool creates a buffer pool with the given page capacity, its
// own lock manager, and the given lock-retry quantum.
func NewBufferPool(capacity int, cfg *Config) *BufferPool {
	return &BufferPool{
		capacity: capacity,
		pages:    make(map[PageID]Page),
		owner:    make(map[PageID]DBFile),
		locks:    NewLockManager(cfg.LockRetryQuantum),
		active:   make(map[TransactionID]struct{}),
	}
}

// BeginTransaction registers tid as active. Returns IllegalArgument if tid
// is already running.
func (bp *BufferPool) BeginTransaction(tid TransactionID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if _, ok := bp.active[tid]; ok {
		return newErr(IllegalArgument, "transaction %d is already running", tid)
	}
	bp.active[tid] = struct{}{}
	return nil
}

// GetPage fetches pid on behalf of tid with the given permission,
// acquiring the corresponding lock first (blocking, possibly aborting tid
// on a detected deadlock), then serving from cache or reading through
// file.
func (bp *BufferPool) GetPage(tid TransactionID, pid PageID, perm RWPerm, file DBFile) (Page, error) {
	if err := bp.locks.Acquire(tid, pid, perm.lockKind()); err != nil {
		bp.abortInternal(tid)
		return nil, err
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if p, ok := bp.pages[pid]; ok {
		return p, nil
	}

	if len(bp.pages) >= bp.capacity {
		if err := bp.evictLocked(); err != nil {
			return nil, err
		}
	}

	p, err := file.ReadPage(int(pid.PageNo))
	if err != nil {
		return nil, err
	}
	bp.pages[pid] = p
	bp.owner[pid] = file
	return p, nil
}

// evictLocked selects any clean page and drops it from the cache. NO-STEAL:
// a dirty page may never be written out to make room, so if every cached
// page is dirty this fails with DbError (CachePressure). Must be called
// with mu held.
func (bp *BufferPool) evictLocked() error {
	for pid, p := range bp.pages {
		if _, dirty := p.IsDirty(); dirty {
			continue
		}
		delete(bp.pages, pid)
		delete(bp.owner, pid)
		return nil
	}
	log.Printf("buffer pool: eviction failed, all %d cached pages are dirty", len(bp.pages))
	return newErr(DbError, "buffer pool is full of dirty pages (CachePressure)")
}

// abortInternal is used when lock acquisition itself reports deadlock: the
// caller's in-flight GetPage failed, but the aborted transaction's prior
// writes still need to be undone and its locks released.
func (bp *BufferPool) abortInternal(tid TransactionID) {
	bp.TransactionComplete(tid, false)
}

// TransactionComplete ends tid: on commit, every page it dirtied is
// flushed to disk before locks are released; on abort, every page it
// dirtied is restored from its before-image before locks are released, so
// no other transaction can observe the aborted writes through a cache
// hit. Lock release always follows the flush/restore step.
func (bp *BufferPool) TransactionComplete(tid TransactionID, commit bool) error {
	bp.mu.Lock()

	var firstErr error
	for pid, p := range bp.pages {
		dirtyBy, dirty := p.IsDirty()
		if !dirty || dirtyBy != tid {
			continue
		}
		if commit {
			file := bp.owner[pid]
			if err := file.WritePage(p); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			p.MarkDirty(tid, false)
			if hp, ok := p.(*HeapPage); ok {
				hp.ClearBeforeImage()
			}
		} else {
			restored := p.BeforeImage()
			restored.MarkDirty(tid, false)
			bp.pages[pid] = restored
			if hp, ok := restored.(*HeapPage); ok {
				hp.ClearBeforeImage()
			}
		}
	}
	bp.mu.Unlock()

	// An I/O failure flushing a commit forces the transaction to abort
	// instead: its writes must not be considered durable.
	if commit && firstErr != nil {
		bp.TransactionComplete(tid, false)
		return firstErr
	}

	bp.locks.ReleaseAll(tid)

	bp.mu.Lock()
	delete(bp.active, tid)
	bp.mu.Unlock()
	return nil
}

// CommitTransaction is TransactionComplete(tid, true).
func (bp *BufferPool) CommitTransaction(tid TransactionID) error {
	return bp.TransactionComplete(tid, true)
}

// AbortTransaction is TransactionComplete(tid, false).
func (bp *BufferPool) AbortTransaction(tid TransactionID) error {
	return bp.TransactionComplete(tid, false)
}

// FlushAllPages is an administrative entry point for recovery tooling: it
// bypasses locking entirely, flushing every dirty cached page to disk.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for pid, p := range bp.pages {
		if _, dirty := p.IsDirty(); !dirty {
			continue
		}
		file := bp.owner[pid]
		if err := file.WritePage(p); err != nil {
			return err
		}
		p.MarkDirty(0, false)
		if hp, ok := p.(*HeapPage); ok {
			hp.ClearBeforeImage()
		}
	}
	return nil
}

// DiscardPage drops pid from the cache without flushing it. Administrative
// entry point; bypasses locking.
func (bp *BufferPool) DiscardPage(pid PageID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	delete(bp.pages, pid)
	delete(bp.owner, pid)
}

// NumCachedPages reports the current cache occupancy (used by tests to
// assert the eviction bound is respected).
func (bp *BufferPool) NumCachedPages() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pages)
}

// Locks exposes the buffer pool's lock manager, e.g. for tests asserting
// lock-exclusion/two-phase invariants directly.
func (bp *BufferPool) Locks() *LockManager { return bp.locks }
