package engine

import (
	"path/filepath"
	"testing"
)

func TestMemCatalogRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StringCapacity = 16
	bp := NewBufferPool(cfg.BufferPages, cfg)
	hf, err := NewHeapFile(filepath.Join(t.TempDir(), "t.dat"), testDesc(), bp, cfg)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}

	cat := NewMemCatalog()
	cat.AddTable("people", hf)

	got, err := cat.GetTable(hf.TableID())
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if got.TableID() != hf.TableID() {
		t.Errorf("GetTable returned a different table")
	}

	name, err := cat.GetTableName(hf.TableID())
	if err != nil || name != "people" {
		t.Errorf("GetTableName = %q, %v, want \"people\", nil", name, err)
	}

	if _, err := cat.GetTable(999); !IsKind(err, NoSuchElement) {
		t.Errorf("expected NoSuchElement for unknown table id, got %v", err)
	}

	ids := cat.IterTableIds()
	if len(ids) != 1 || ids[0] != hf.TableID() {
		t.Errorf("IterTableIds = %v, want [%d]", ids, hf.TableID())
	}
}
