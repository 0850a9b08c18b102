package codec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// escapeByte marks a varint whose value does not fit in a single
// byte. A lone byte below escapeByte is the value itself; a lone
// escapeByte is followed by 8 more bytes carrying the full uint64,
// big-endian.
const escapeByte = 0xff

// nameIndexTerminator is the reserved nameIndex value (all bits set)
// that the properties loop uses to mark "no more entries" (§4.1:
// "terminator marker (0xff in the name-index varint slot)"). Real
// name indices are assigned sequentially starting at 1 and never
// approach this value.
const nameIndexTerminator uint64 = ^uint64(0)

// writeVarint encodes v as described above.
func writeVarint(w io.Writer, v uint64) error {
	if v < escapeByte {
		_, err := w.Write([]byte{byte(v)})
		return err
	}
	var buf [9]byte
	buf[0] = escapeByte
	binary.BigEndian.PutUint64(buf[1:], v)
	_, err := w.Write(buf[:])
	return err
}

// readVarint decodes a value written by writeVarint.
func readVarint(r io.ByteReader) (uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != escapeByte {
		return uint64(b), nil
	}
	var buf [8]byte
	for i := range buf {
		nb, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("codec: truncated varint escape: %w", err)
		}
		buf[i] = nb
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// zigzagEncode maps a signed length field (§4.1 BINARY encoding: "if
// len < 0, the absolute value is a blobId length") onto the unsigned
// varint domain.
func zigzagEncode(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}

func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

func writeSignedVarint(w io.Writer, n int64) error {
	return writeVarint(w, zigzagEncode(n))
}

func readSignedVarint(r io.ByteReader) (int64, error) {
	u, err := readVarint(r)
	if err != nil {
		return 0, err
	}
	return zigzagDecode(u), nil
}
