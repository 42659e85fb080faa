package engine

// DBType is the type of a tuple field.
type DBType int

const (
	// IntType is a 4-byte big-endian signed integer.
	IntType DBType = iota
	// StringType is a fixed-capacity, zero-padded byte string.
	StringType
)

func (t DBType) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// FieldType describes one column of a TupleDesc: its type and an optional
// name. TableQualifier is set by operators (SeqScan's alias, join merges)
// and ignored by TupleDesc equality.
type FieldType struct {
	Fname          string
	TableQualifier string
	Ftype          DBType
}

// Len returns the on-disk footprint in bytes of a field of this type,
// given the engine's configured string capacity.
func (f FieldType) Len(stringCapacity int) int {
	switch f.Ftype {
	case IntType:
		return 4
	case StringType:
		return 4 + stringCapacity
	default:
		return 0
	}
}

// PageID is the logical address of a page: the table it belongs to and its
// 0-based offset within that table. Equality and hashing are structural.
type PageID struct {
	TableID int32
	PageNo  int32
}

// RecordID is the on-disk address of a tuple: its page plus a slot number
// within that page. Immutable once a tuple has been placed.
type RecordID struct {
	Page   PageID
	SlotNo int32
}
