// Package nodeid defines the 128-bit node identifier and the two
// storage models the engine can bind it under.
package nodeid

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Size is the length in bytes of a NodeId.
const Size = 16

// ID is a 128-bit node identifier. The zero value is not a valid id;
// use New or Parse.
type ID [Size]byte

// sentinelSuffix is the reserved low 6 bytes that mark a sentinel id
// (a system-internal placeholder never materialized as a bundle row).
var sentinelSuffix = [6]byte{0xba, 0xbe, 0xca, 0xfe, 0xba, 0xbe}

// New generates a fresh random NodeId.
func New() ID {
	return ID(uuid.New())
}

// Parse decodes the canonical hyphenated or 32-char hex string form.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("nodeid: parse %q: %w", s, err)
	}
	return ID(u), nil
}

// FromBytes copies a 16-byte slice into an ID.
func FromBytes(b []byte) (ID, error) {
	if len(b) != Size {
		return ID{}, fmt.Errorf("nodeid: expected %d bytes, got %d", Size, len(b))
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// FromHiLo reconstructs an ID from the split-long storage model: the
// high 8 bytes (big-endian) followed by the low 8 bytes.
func FromHiLo(hi, lo uint64) ID {
	var id ID
	binary.BigEndian.PutUint64(id[0:8], hi)
	binary.BigEndian.PutUint64(id[8:16], lo)
	return id
}

// HiLo splits the id into the two 64-bit halves used by the split-long
// storage model.
func (id ID) HiLo() (hi, lo uint64) {
	hi = binary.BigEndian.Uint64(id[0:8])
	lo = binary.BigEndian.Uint64(id[8:16])
	return hi, lo
}

// Bytes returns the 16 raw bytes, as bound under the binary-keys
// storage model.
func (id ID) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, id[:])
	return b
}

// IsZero reports whether id is the zero value (used for legacy
// all-zero definitionId fields, never a real node id).
func (id ID) IsZero() bool {
	return id == ID{}
}

// String renders the canonical hyphenated UUID form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Hex renders the id as 32 lowercase hex characters, no separators.
func (id ID) Hex() string {
	return hex.EncodeToString(id[:])
}

// IsSentinel reports whether id's low 6 bytes match the reserved
// sentinel suffix babecafebabe. Sentinel ids denote system-internal
// placeholders that the consistency checker must never flag as
// missing children.
func IsSentinel(id ID) bool {
	return [6]byte(id[10:16]) == sentinelSuffix
}

// StorageModel selects how a NodeId's 128 bits are bound to key
// columns in the bundle and references tables. Chosen at construction
// and immutable thereafter.
type StorageModel int

const (
	// BinaryKeys binds the id to a single 16-byte column.
	BinaryKeys StorageModel = iota
	// SplitLong binds the id to two 64-bit columns (high, low).
	SplitLong
)

func (m StorageModel) String() string {
	switch m {
	case BinaryKeys:
		return "binary-keys"
	case SplitLong:
		return "split-long"
	default:
		return fmt.Sprintf("StorageModel(%d)", int(m))
	}
}
