package engine

import (
	"bytes"
)

// Page is the capability set the buffer manager and heap file need from a
// cached page, independent of its concrete layout. HeapPage is the only
// implementation this core ships.
type Page interface {
	ID() PageID
	Serialize() ([]byte, error)
	IsDirty() (TransactionID, bool)
	MarkDirty(tid TransactionID, dirty bool)
	BeforeImage() Page
	SetBeforeImage()
}

// HeapPage is the on-disk layout for HeapFile pages: a slot-occupancy
// bitmap header followed by num_slots fixed-size tuple slots.
//
// num_slots = floor((page_size*8) / (tuple_size*8 + 1)); the header is
// ceil(num_slots/8) bytes, bit i (MSB-first within its byte) set iff slot i
// is occupied. Serialization is always exactly page_size bytes.
type HeapPage struct {
	pid            PageID
	desc           *TupleDesc
	stringCapacity int
	pageSize       int
	tupleSize      int
	numSlots       int
	tuples         []*Tuple // tuples[i] == nil iff slot i is unoccupied

	dirty     bool
	dirtyBy   TransactionID
	before    []byte // raw before-image snapshot, captured on first dirty
	hasBefore bool
}

// NewHeapPage constructs an empty page, or one initialized from raw bytes
// if raw is non-nil. raw must be exactly pageSize bytes.
func NewHeapPage(pid PageID, desc *TupleDesc, pageSize, stringCapacity int, raw []byte) (*HeapPage, error) {
	tupleSize := desc.Size(stringCapacity)
	if tupleSize <= 0 {
		return nil, newErr(DbError, "tuple desc has zero on-disk size")
	}
	numSlots := (pageSize * 8) / (tupleSize*8 + 1)
	if numSlots < 1 {
		return nil, newErr(IllegalArgument, "page_size %d too small to hold a single tuple of size %d", pageSize, tupleSize)
	}

	p := &HeapPage{
		pid:            pid,
		desc:           desc,
		stringCapacity: stringCapacity,
		pageSize:       pageSize,
		tupleSize:      tupleSize,
		numSlots:       numSlots,
		tuples:         make([]*Tuple, numSlots),
	}

	if raw == nil {
		return p, nil
	}
	if len(raw) != pageSize {
		return nil, newErr(IoError, "raw page buffer is %d bytes, want %d", len(raw), pageSize)
	}
	if err := p.initFromBuffer(raw); err != nil {
		return nil, err
	}
	return p, nil
}

func headerBytes(numSlots int) int {
	return (numSlots + 7) / 8
}

func (p *HeapPage) ID() PageID { return p.pid }

// NumSlots returns the number of tuple slots this page has room for.
func (p *HeapPage) NumSlots() int { return p.numSlots }

// NumEmptySlots returns the count of currently-unoccupied slots.
func (p *HeapPage) NumEmptySlots() int {
	n := 0
	for _, t := range p.tuples {
		if t == nil {
			n++
		}
	}
	return n
}

func (p *HeapPage) slotOccupied(i int) bool { return p.tuples[i] != nil }

func (p *HeapPage) captureBeforeImageIfAbsent() {
	if p.hasBefore {
		return
	}
	raw, err := p.Serialize()
	if err != nil {
		return
	}
	p.before = raw
	p.hasBefore = true
}

// Insert writes t into the lowest-indexed free slot, assigns t.Rid, and
// returns NoSpace (DbError) if the page is full.
func (p *HeapPage) Insert(t *Tuple) (RecordID, error) {
	for i := 0; i < p.numSlots; i++ {
		if p.tuples[i] != nil {
			continue
		}
		p.captureBeforeImageIfAbsent()
		rid := RecordID{Page: p.pid, SlotNo: int32(i)}
		placed := &Tuple{Desc: *p.desc, Fields: append([]DBValue(nil), t.Fields...), Rid: &rid}
		p.tuples[i] = placed
		t.Rid = &rid
		return rid, nil
	}
	return RecordID{}, newErr(DbError, "no available slots for tuple insertion (page %v is full)", p.pid)
}

// Delete requires rid.Page == p.pid and that the slot is occupied; clears
// the slot. Returns NoSuchElement otherwise.
func (p *HeapPage) Delete(rid RecordID) error {
	if rid.Page != p.pid {
		return newErr(NoSuchElement, "record id %v does not belong to page %v", rid, p.pid)
	}
	if rid.SlotNo < 0 || int(rid.SlotNo) >= p.numSlots || p.tuples[rid.SlotNo] == nil {
		return newErr(NoSuchElement, "slot %d on page %v is not occupied", rid.SlotNo, p.pid)
	}
	p.captureBeforeImageIfAbsent()
	p.tuples[rid.SlotNo] = nil
	return nil
}

// IterTuples returns a single-pass function yielding occupied slots in
// ascending slot order; it is invalidated by any subsequent mutation of p.
func (p *HeapPage) IterTuples() func() (*Tuple, error) {
	i := 0
	snapshot := make([]*Tuple, len(p.tuples))
	copy(snapshot, p.tuples)
	return func() (*Tuple, error) {
		for i < len(snapshot) {
			t := snapshot[i]
			i++
			if t != nil {
				return t, nil
			}
		}
		return nil, nil
	}
}

func (p *HeapPage) IsDirty() (TransactionID, bool) {
	return p.dirtyBy, p.dirty
}

func (p *HeapPage) MarkDirty(tid TransactionID, dirty bool) {
	p.dirty = dirty
	if dirty {
		p.dirtyBy = tid
	}
}

// BeforeImage returns a fresh HeapPage reconstructed from the captured
// before-image bytes, or a copy of the current page if nothing was ever
// dirtied (defensive; callers should check IsDirty first).
func (p *HeapPage) BeforeImage() Page {
	if !p.hasBefore {
		cur, _ := p.Serialize()
		np, _ := NewHeapPage(p.pid, p.desc, p.pageSize, p.stringCapacity, cur)
		return np
	}
	np, _ := NewHeapPage(p.pid, p.desc, p.pageSize, p.stringCapacity, p.before)
	return np
}

// SetBeforeImage snapshots the current serialized bytes as the new
// before-image, replacing any previously-captured one. The buffer pool's
// commit path does not call it; it drops the before-image with
// ClearBeforeImage instead.
func (p *HeapPage) SetBeforeImage() {
	raw, err := p.Serialize()
	if err != nil {
		return
	}
	p.before = raw
	p.hasBefore = true
}

// ClearBeforeImage drops the captured before-image so the next dirtying
// transaction captures a fresh one. Called once a transaction's outcome
// (commit or abort) has been applied to this page.
func (p *HeapPage) ClearBeforeImage() {
	p.before = nil
	p.hasBefore = false
}

// Serialize produces the exact page_size-byte on-disk image: the bitmap
// header (MSB-first within each byte) followed by the tuple slots in
// schema order. Unoccupied slot bytes are zero.
func (p *HeapPage) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	hdr := make([]byte, headerBytes(p.numSlots))
	for i := 0; i < p.numSlots; i++ {
		if p.tuples[i] == nil {
			continue
		}
		hdr[i/8] |= 1 << (7 - uint(i%8))
	}
	buf.Write(hdr)

	for i := 0; i < p.numSlots; i++ {
		if p.tuples[i] == nil {
			buf.Write(make([]byte, p.tupleSize))
			continue
		}
		before := buf.Len()
		if err := p.tuples[i].WriteTo(buf, p.stringCapacity); err != nil {
			return nil, err
		}
		written := buf.Len() - before
		if written != p.tupleSize {
			return nil, newErr(IoError, "serialized tuple at slot %d is %d bytes, want %d", i, written, p.tupleSize)
		}
	}

	out := buf.Bytes()
	if len(out) < p.pageSize {
		out = append(out, make([]byte, p.pageSize-len(out))...)
	}
	return out[:p.pageSize], nil
}

// initFromBuffer parses raw (exactly pageSize bytes) into p's slots.
func (p *HeapPage) initFromBuffer(raw []byte) error {
	hdrLen := headerBytes(p.numSlots)
	hdr := raw[:hdrLen]
	body := bytes.NewBuffer(append([]byte(nil), raw[hdrLen:]...))

	for i := 0; i < p.numSlots; i++ {
		occupied := hdr[i/8]&(1<<(7-uint(i%8))) != 0
		if !occupied {
			body.Next(p.tupleSize)
			continue
		}
		slotBuf := bytes.NewBuffer(body.Next(p.tupleSize))
		t, err := ReadTupleFrom(slotBuf, p.desc, p.stringCapacity)
		if err != nil {
			return err
		}
		rid := RecordID{Page: p.pid, SlotNo: int32(i)}
		t.Rid = &rid
		p.tuples[i] = t
	}
	return nil
}
