package engine

import (
	"path/filepath"
	"testing"
)

func newTestHeapFile(t *testing.T, pageSize, bufferPages int) (*HeapFile, *BufferPool, *Config) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PageSize = pageSize
	cfg.StringCapacity = 16
	cfg.BufferPages = bufferPages

	bp := NewBufferPool(bufferPages, cfg)
	path := filepath.Join(t.TempDir(), "people.dat")
	hf, err := NewHeapFile(path, testDesc(), bp, cfg)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	return hf, bp, cfg
}

func mkTuple(name string, age int64) *Tuple {
	tup := NewTuple(*testDesc())
	tup.SetField(0, StringField{Value: name})
	tup.SetField(1, IntField{Value: age})
	return tup
}

func TestHeapFileInsertGrowsAndIterates(t *testing.T) {
	hf, bp, _ := newTestHeapFile(t, 128, 50)

	tid := NewTID()
	if err := bp.BeginTransaction(tid); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}

	const n = 40
	for i := 0; i < n; i++ {
		if _, err := hf.InsertTuple(tid, mkTuple("p", int64(i))); err != nil {
			t.Fatalf("InsertTuple %d: %v", i, err)
		}
	}
	if err := bp.CommitTransaction(tid); err != nil {
		t.Fatalf("CommitTransaction: %v", err)
	}
	if hf.NumPages() < 2 {
		t.Fatalf("expected the file to have grown past one page, has %d", hf.NumPages())
	}

	tid2 := NewTID()
	bp.BeginTransaction(tid2)
	it, err := hf.Iterator(tid2)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	count := 0
	for {
		tup, err := it()
		if err != nil {
			t.Fatalf("iterator: %v", err)
		}
		if tup == nil {
			break
		}
		count++
	}
	bp.CommitTransaction(tid2)
	if count != n {
		t.Errorf("iterated %d tuples, want %d", count, n)
	}
}

func TestHeapFileDeleteByRecordID(t *testing.T) {
	hf, bp, _ := newTestHeapFile(t, 256, 50)

	tid := NewTID()
	bp.BeginTransaction(tid)
	tup := mkTuple("josie", 20)
	if _, err := hf.InsertTuple(tid, tup); err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	if tup.Rid == nil {
		t.Fatalf("InsertTuple did not set Rid")
	}
	if _, err := hf.DeleteTuple(tid, tup); err != nil {
		t.Fatalf("DeleteTuple: %v", err)
	}
	bp.CommitTransaction(tid)

	tid2 := NewTID()
	bp.BeginTransaction(tid2)
	it, _ := hf.Iterator(tid2)
	got, _ := it()
	bp.CommitTransaction(tid2)
	if got != nil {
		t.Errorf("expected no tuples after delete, got %v", got)
	}
}

func TestHeapFileAbortRestoresPriorState(t *testing.T) {
	hf, bp, _ := newTestHeapFile(t, 256, 50)

	tid1 := NewTID()
	bp.BeginTransaction(tid1)
	hf.InsertTuple(tid1, mkTuple("josie", 20))
	bp.CommitTransaction(tid1)

	tid2 := NewTID()
	bp.BeginTransaction(tid2)
	hf.InsertTuple(tid2, mkTuple("annie", 17))
	bp.AbortTransaction(tid2)

	tid3 := NewTID()
	bp.BeginTransaction(tid3)
	it, _ := hf.Iterator(tid3)
	count := 0
	for {
		tup, _ := it()
		if tup == nil {
			break
		}
		count++
	}
	bp.CommitTransaction(tid3)
	if count != 1 {
		t.Errorf("after abort expected 1 tuple, got %d", count)
	}
}
