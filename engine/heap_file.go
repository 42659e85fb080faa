package engine

import (
	"bytes"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"sync"

	natomic "github.com/natefinch/atomic"
	"github.com/ncw/directio"
)

// DBFile is the interface the buffer manager and operators use to reach a
// table's backing storage. HeapFile is this core's only implementation.
type DBFile interface {
	TableID() int32
	Descriptor() *TupleDesc
	NumPages() int
	ReadPage(pageNo int) (Page, error)
	WritePage(p Page) error
	InsertTuple(tid TransactionID, t *Tuple) ([]Page, error)
	DeleteTuple(tid TransactionID, t *Tuple) ([]Page, error)
	Iterator(tid TransactionID) (func() (*Tuple, error), error)
}

// tableID hashes a file's canonical absolute path into a deterministic
// 32-bit id, stable across processes for the same path. Any 32-bit hash
// satisfying that is acceptable per spec; FNV-1a is what we pick.
func tableID(canonicalPath string) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(canonicalPath))
	return int32(h.Sum32())
}

// HeapFile is an unordered collection of fixed-schema tuples, backed by a
// single file of contiguous page_size-byte pages.
type HeapFile struct {
	backingFile string
	tid         int32
	desc        *TupleDesc
	bp          *BufferPool
	cfg         *Config

	growMu sync.Mutex // serializes table growth (append-new-page)
}

// NewHeapFile opens (or prepares to create) fromFile as the backing store
// for a table with the given schema, caching pages through bp.
func NewHeapFile(fromFile string, desc *TupleDesc, bp *BufferPool, cfg *Config) (*HeapFile, error) {
	abs, err := filepath.Abs(fromFile)
	if err != nil {
		return nil, newErr(IoError, "resolving canonical path for %s: %v", fromFile, err)
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		// Atomically create an empty backing file so a concurrent opener
		// of the same path never observes a partially-created one.
		if err := natomic.WriteFile(abs, bytes.NewReader(nil)); err != nil {
			return nil, newErr(IoError, "creating backing file %s: %v", abs, err)
		}
	}
	hf := &HeapFile{
		backingFile: abs,
		tid:         tableID(abs),
		desc:        desc,
		bp:          bp,
		cfg:         cfg,
	}
	return hf, nil
}

func (f *HeapFile) TableID() int32       { return f.tid }
func (f *HeapFile) Descriptor() *TupleDesc { return f.desc }
func (f *HeapFile) BackingFile() string  { return f.backingFile }

// NumPages is floor(file_size / page_size).
func (f *HeapFile) NumPages() int {
	info, err := os.Stat(f.backingFile)
	if err != nil {
		return 0
	}
	return int(info.Size() / int64(f.cfg.PageSize))
}

// directioEligible reports whether the configured page size is aligned
// enough for unbuffered O_DIRECT page I/O.
func (f *HeapFile) directioEligible() bool {
	return f.cfg.PageSize > 0 && f.cfg.PageSize%directio.AlignSize == 0
}

// ReadPage seeks to pageNo*page_size and reads exactly page_size bytes,
// constructing a HeapPage. Synchronous; no OS-level buffering is assumed
// when the page size is directio-aligned.
func (f *HeapFile) ReadPage(pageNo int) (Page, error) {
	pid := PageID{TableID: f.tid, PageNo: int32(pageNo)}
	offset := int64(pageNo) * int64(f.cfg.PageSize)

	var raw []byte
	if f.directioEligible() {
		fh, err := directio.OpenFile(f.backingFile, os.O_RDONLY, 0666)
		if err != nil {
			return nil, newErr(IoError, "opening %s for direct read: %v", f.backingFile, err)
		}
		defer fh.Close()
		block := directio.AlignedBlock(f.cfg.PageSize)
		if _, err := fh.Seek(offset, io.SeekStart); err != nil {
			return nil, newErr(IoError, "seeking to page %d: %v", pageNo, err)
		}
		if _, err := io.ReadFull(fh, block); err != nil {
			return nil, newErr(IoError, "reading page %d: %v", pageNo, err)
		}
		raw = block
	} else {
		fh, err := os.OpenFile(f.backingFile, os.O_RDONLY, 0666)
		if err != nil {
			return nil, newErr(IoError, "opening %s: %v", f.backingFile, err)
		}
		defer fh.Close()
		raw = make([]byte, f.cfg.PageSize)
		if _, err := fh.ReadAt(raw, offset); err != nil {
			return nil, newErr(IoError, "reading page %d: %v", pageNo, err)
		}
	}

	return NewHeapPage(pid, f.desc, f.cfg.PageSize, f.cfg.StringCapacity, raw)
}

// WritePage seeks and writes the serialized image of p back to its offset
// in the backing file.
func (f *HeapFile) WritePage(p Page) error {
	hp, ok := p.(*HeapPage)
	if !ok {
		return newErr(DbError, "heap file cannot write page of type %T", p)
	}
	raw, err := hp.Serialize()
	if err != nil {
		return err
	}
	offset := int64(hp.pid.PageNo) * int64(f.cfg.PageSize)

	if f.directioEligible() {
		fh, err := directio.OpenFile(f.backingFile, os.O_RDWR, 0666)
		if err != nil {
			return newErr(IoError, "opening %s for direct write: %v", f.backingFile, err)
		}
		defer fh.Close()
		block := directio.AlignedBlock(f.cfg.PageSize)
		copy(block, raw)
		if _, err := fh.Seek(offset, io.SeekStart); err != nil {
			return newErr(IoError, "seeking to page %d: %v", hp.pid.PageNo, err)
		}
		if _, err := fh.Write(block); err != nil {
			return newErr(IoError, "writing page %d: %v", hp.pid.PageNo, err)
		}
		return nil
	}

	fh, err := os.OpenFile(f.backingFile, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return newErr(IoError, "opening %s: %v", f.backingFile, err)
	}
	defer fh.Close()
	if _, err := fh.WriteAt(raw, offset); err != nil {
		return newErr(IoError, "writing page %d: %v", hp.pid.PageNo, err)
	}
	return nil
}

// growByOnePage appends a zero-initialized empty page at end-of-file under
// the file-wide mutex, returning its page number. The caller must then
// fetch that page through the buffer manager (acquiring its lock there)
// rather than touching it directly -- this repairs the source's race of
// appending before acquiring the new page's lock (design note 9.3).
func (f *HeapFile) growByOnePage() (int, error) {
	f.growMu.Lock()
	defer f.growMu.Unlock()

	pageNo := f.NumPages()
	empty, err := NewHeapPage(PageID{TableID: f.tid, PageNo: int32(pageNo)}, f.desc, f.cfg.PageSize, f.cfg.StringCapacity, nil)
	if err != nil {
		return 0, err
	}
	if err := f.WritePage(empty); err != nil {
		return 0, err
	}
	return pageNo, nil
}

// InsertTuple finds the first page with a free slot (scanning 0..num_pages
// under WRITE intent through the buffer manager), or grows the table by
// one page and inserts there. Returns the page(s) touched.
func (f *HeapFile) InsertTuple(tid TransactionID, t *Tuple) ([]Page, error) {
	if !t.Desc.Equals(f.desc) {
		return nil, newErr(DbError, "tuple schema does not match table schema")
	}
	numPages := f.NumPages()
	for pageNo := 0; pageNo < numPages; pageNo++ {
		page, err := f.bp.GetPage(tid, PageID{TableID: f.tid, PageNo: int32(pageNo)}, WritePerm, f)
		if err != nil {
			return nil, err
		}
		hp := page.(*HeapPage)
		if hp.NumEmptySlots() > 0 {
			if _, err := hp.Insert(t); err != nil {
				return nil, err
			}
			hp.MarkDirty(tid, true)
			return []Page{hp}, nil
		}
	}

	newPageNo, err := f.growByOnePage()
	if err != nil {
		return nil, err
	}
	page, err := f.bp.GetPage(tid, PageID{TableID: f.tid, PageNo: int32(newPageNo)}, WritePerm, f)
	if err != nil {
		return nil, err
	}
	hp := page.(*HeapPage)
	if _, err := hp.Insert(t); err != nil {
		return nil, err
	}
	hp.MarkDirty(tid, true)
	return []Page{hp}, nil
}

// DeleteTuple fetches the page named by t.Rid with WRITE intent and
// deletes the tuple there.
func (f *HeapFile) DeleteTuple(tid TransactionID, t *Tuple) ([]Page, error) {
	if t.Rid == nil {
		return nil, newErr(DbError, "cannot delete a tuple with no record id")
	}
	page, err := f.bp.GetPage(tid, t.Rid.Page, WritePerm, f)
	if err != nil {
		return nil, err
	}
	hp := page.(*HeapPage)
	if err := hp.Delete(*t.Rid); err != nil {
		return nil, err
	}
	hp.MarkDirty(tid, true)
	return []Page{hp}, nil
}

// Iterator yields tuples page by page in ascending page_no, each page
// fetched lazily (one at a time) with READ intent through the buffer
// manager.
func (f *HeapFile) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	pageNo := 0
	var cur func() (*Tuple, error)

	var next func() (*Tuple, error)
	next = func() (*Tuple, error) {
		for {
			if cur == nil {
				if pageNo >= f.NumPages() {
					return nil, nil
				}
				page, err := f.bp.GetPage(tid, PageID{TableID: f.tid, PageNo: int32(pageNo)}, ReadPerm, f)
				if err != nil {
					return nil, err
				}
				hp := page.(*HeapPage)
				cur = hp.IterTuples()
			}
			t, err := cur()
			if err != nil {
				return nil, err
			}
			if t == nil {
				cur = nil
				pageNo++
				continue
			}
			return t, nil
		}
	}
	return next, nil
}
