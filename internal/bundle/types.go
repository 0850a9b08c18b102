// Package bundle defines the node bundle data model (§3): the
// persisted unit the codec (internal/codec) serializes and the bundle
// store (internal/sqlstore) keys by node id.
package bundle

import "github.com/rogerblanton/jackrabbit/internal/nodeid"

// QName is a qualified name: a (namespace-index, name-index) pair
// into the shared name index (C1). Property names, node type names,
// mixin names, and child names are all QNames.
type QName struct {
	NamespaceIndex uint32
	NameIndex      uint32
}

// PropertyType enumerates the value types a PropertyEntry can hold.
// Numeric codes are the wire-format discriminator byte and, once
// assigned, are as immutable as the rest of the codec version they
// first shipped under.
type PropertyType uint8

const (
	TypeString PropertyType = 1
	TypeBinary PropertyType = 2
	TypeLong   PropertyType = 3
	TypeDouble PropertyType = 4
	TypeDate   PropertyType = 5
	TypeBool   PropertyType = 6
	TypeName   PropertyType = 7
	TypePath   PropertyType = 8
	TypeReference PropertyType = 9
	TypeDecimal   PropertyType = 10
	TypeURI           PropertyType = 11
	TypeWeakReference PropertyType = 12
)

func (t PropertyType) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeBinary:
		return "Binary"
	case TypeLong:
		return "Long"
	case TypeDouble:
		return "Double"
	case TypeDate:
		return "Date"
	case TypeBool:
		return "Boolean"
	case TypeName:
		return "Name"
	case TypePath:
		return "Path"
	case TypeReference:
		return "Reference"
	case TypeDecimal:
		return "Decimal"
	case TypeURI:
		return "URI"
	case TypeWeakReference:
		return "WeakReference"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is one of the twelve known property types.
func (t PropertyType) Valid() bool {
	return t >= TypeString && t <= TypeWeakReference
}

// Value holds exactly one property value. Which field is populated
// depends on Type; see the constructors below.
type Value struct {
	Type PropertyType

	Str    string // STRING, NAME, PATH, URI, REFERENCE, WEAKREFERENCE, DECIMAL, DATE (ISO-8601 lexical)
	Bin    []byte // BINARY, inline bytes; nil when externalized
	BlobID string // BINARY, externalized id; empty when inline
	BinLen int64  // BINARY, original length; -1 for an external value read back by the codec, which does not store it
	Long   int64  // LONG
	Double float64 // DOUBLE
	Bool   bool    // BOOLEAN
}

// IsExternalBinary reports whether a BINARY value was split out to
// the blob store rather than carried inline.
func (v Value) IsExternalBinary() bool {
	return v.Type == TypeBinary && v.BlobID != ""
}

func NewString(s string) Value   { return Value{Type: TypeString, Str: s} }
func NewName(s string) Value     { return Value{Type: TypeName, Str: s} }
func NewPath(s string) Value     { return Value{Type: TypePath, Str: s} }
func NewURI(s string) Value      { return Value{Type: TypeURI, Str: s} }
func NewReference(s string) Value       { return Value{Type: TypeReference, Str: s} }
func NewWeakReference(s string) Value   { return Value{Type: TypeWeakReference, Str: s} }
func NewDecimal(lexical string) Value   { return Value{Type: TypeDecimal, Str: lexical} }
func NewDate(iso8601 string) Value      { return Value{Type: TypeDate, Str: iso8601} }
func NewLong(n int64) Value             { return Value{Type: TypeLong, Long: n} }
func NewDouble(f float64) Value         { return Value{Type: TypeDouble, Double: f} }
func NewBool(b bool) Value              { return Value{Type: TypeBool, Bool: b} }

// NewBinaryInline constructs a BINARY value carried inline in the
// bundle payload.
func NewBinaryInline(data []byte) Value {
	return Value{Type: TypeBinary, Bin: data, BinLen: int64(len(data))}
}

// NewBinaryExternal constructs a BINARY value whose bytes live in the
// blob store under blobID.
func NewBinaryExternal(blobID string, length int64) Value {
	return Value{Type: TypeBinary, BlobID: blobID, BinLen: length}
}

// PropertyEntry is one property's full value set (§3).
type PropertyEntry struct {
	Name         QName
	Type         PropertyType
	MultiValued  bool
	Values       []Value // at least one value, except an empty multi-valued property, which has none
	ModCount     uint16
}

// ChildEntry is one ordered (name, id) pair in a bundle's child list.
// Same-name siblings may repeat Name; Id is unique within a bundle.
type ChildEntry struct {
	Name QName
	ID   nodeid.ID
}

// NodePropBundle is the persisted unit described in §3.
type NodePropBundle struct {
	ID             nodeid.ID
	ParentID       *nodeid.ID // nil for the root
	NodeTypeName   QName
	MixinTypeNames []QName // unordered set; duplicates are the caller's error to avoid
	DefinitionID   [16]byte // legacy; may be all zero

	// Properties preserves encoding order, which is insertion order.
	Properties []PropertyEntry

	// ChildEntries preserves order; it is significant.
	ChildEntries []ChildEntry

	Referenceable bool
	ModCount      uint16

	// IsNew and SizeHint are transient bookkeeping, never serialized.
	IsNew    bool
	SizeHint uint64
}

// FindProperty returns the entry named name, if present.
func (b *NodePropBundle) FindProperty(name QName) (*PropertyEntry, bool) {
	for i := range b.Properties {
		if b.Properties[i].Name == name {
			return &b.Properties[i], true
		}
	}
	return nil, false
}

// HasMixin reports whether name is present in MixinTypeNames.
func (b *NodePropBundle) HasMixin(name QName) bool {
	for _, m := range b.MixinTypeNames {
		if m == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of b, suitable for a consistency-repair
// pass that must mutate a copy without disturbing the original.
func (b *NodePropBundle) Clone() *NodePropBundle {
	clone := *b
	if b.ParentID != nil {
		p := *b.ParentID
		clone.ParentID = &p
	}
	clone.MixinTypeNames = append([]QName(nil), b.MixinTypeNames...)
	clone.Properties = make([]PropertyEntry, len(b.Properties))
	for i, p := range b.Properties {
		clone.Properties[i] = p
		clone.Properties[i].Values = append([]Value(nil), p.Values...)
	}
	clone.ChildEntries = append([]ChildEntry(nil), b.ChildEntries...)
	return &clone
}
