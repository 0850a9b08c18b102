package codec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"

	"github.com/rogerblanton/jackrabbit/internal/blobstore"
	"github.com/rogerblanton/jackrabbit/internal/bundle"
	"github.com/rogerblanton/jackrabbit/internal/nodeid"
	"github.com/rogerblanton/jackrabbit/internal/perrors"
)

// valueContext carries the identity a BINARY value needs to derive a
// fresh blob id (§4.2 CreateID) if it gets externalized during this
// encode.
type valueContext struct {
	ownerID     nodeid.ID
	propName    bundle.QName
	valueIndex  int
	minBlobSize int64
	blobs       blobstore.Store
}

func encodeValue(ctx context.Context, w io.Writer, v bundle.Value, vc valueContext) error {
	switch v.Type {
	case bundle.TypeString, bundle.TypeName, bundle.TypePath, bundle.TypeURI,
		bundle.TypeReference, bundle.TypeWeakReference, bundle.TypeDecimal, bundle.TypeDate:
		return writeLenPrefixedString(w, v.Str)

	case bundle.TypeLong:
		var buf [8]byte
		putInt64(buf[:], v.Long)
		_, err := w.Write(buf[:])
		return err

	case bundle.TypeDouble:
		var buf [8]byte
		putUint64(buf[:], math.Float64bits(v.Double))
		_, err := w.Write(buf[:])
		return err

	case bundle.TypeBool:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		_, err := w.Write([]byte{b})
		return err

	case bundle.TypeBinary:
		return encodeBinaryValue(ctx, w, v, vc)

	default:
		return perrors.New(perrors.EncodingError, fmt.Sprintf("unknown property type %d", v.Type))
	}
}

// encodeBinaryValue implements §4.1's BINARY framing and §4.1's
// externalization policy. If v already carries a BlobID (it was
// loaded from storage, not freshly assigned), that external reference
// is preserved verbatim rather than re-derived.
func encodeBinaryValue(ctx context.Context, w io.Writer, v bundle.Value, vc valueContext) error {
	if v.BlobID != "" {
		if err := writeSignedVarint(w, -int64(len(v.BlobID))); err != nil {
			return err
		}
		_, err := io.WriteString(w, v.BlobID)
		return err
	}

	if int64(len(v.Bin)) >= vc.minBlobSize && vc.minBlobSize >= 0 {
		if vc.blobs == nil {
			return perrors.New(perrors.EncodingError, "binary value exceeds minBlobSize but no blob store is configured")
		}
		blobID := blobstore.CreateID(vc.ownerID, vc.propName.NamespaceIndex, vc.propName.NameIndex, vc.valueIndex)
		if err := vc.blobs.Put(ctx, blobID, bytes.NewReader(v.Bin), int64(len(v.Bin))); err != nil {
			return perrors.WrapItem(perrors.BlobError, "externalize binary value", blobID, err)
		}
		if err := writeSignedVarint(w, -int64(len(blobID))); err != nil {
			return err
		}
		_, err := io.WriteString(w, blobID)
		return err
	}

	if err := writeSignedVarint(w, int64(len(v.Bin))); err != nil {
		return err
	}
	_, err := w.Write(v.Bin)
	return err
}

func decodeValue(r io.ByteReader, typ bundle.PropertyType) (bundle.Value, error) {
	switch typ {
	case bundle.TypeString, bundle.TypeName, bundle.TypePath, bundle.TypeURI,
		bundle.TypeReference, bundle.TypeWeakReference, bundle.TypeDecimal, bundle.TypeDate:
		s, err := readLenPrefixedString(r)
		if err != nil {
			return bundle.Value{}, err
		}
		return bundle.Value{Type: typ, Str: s}, nil

	case bundle.TypeLong:
		n, err := readInt64(r)
		if err != nil {
			return bundle.Value{}, err
		}
		return bundle.Value{Type: typ, Long: n}, nil

	case bundle.TypeDouble:
		bits, err := readUint64(r)
		if err != nil {
			return bundle.Value{}, err
		}
		return bundle.Value{Type: typ, Double: math.Float64frombits(bits)}, nil

	case bundle.TypeBool:
		b, err := r.ReadByte()
		if err != nil {
			return bundle.Value{}, err
		}
		return bundle.Value{Type: typ, Bool: b != 0}, nil

	case bundle.TypeBinary:
		return decodeBinaryValue(r)

	default:
		return bundle.Value{}, perrors.New(perrors.DecodingError, fmt.Sprintf("unknown property type %d", typ))
	}
}

func decodeBinaryValue(r io.ByteReader) (bundle.Value, error) {
	length, err := readSignedVarint(r)
	if err != nil {
		return bundle.Value{}, err
	}
	if length < 0 {
		blobLen := -length
		buf := make([]byte, blobLen)
		for i := range buf {
			b, err := r.ReadByte()
			if err != nil {
				return bundle.Value{}, fmt.Errorf("codec: truncated blob id: %w", err)
			}
			buf[i] = b
		}
		return bundle.NewBinaryExternal(string(buf), -1), nil
	}

	buf := make([]byte, length)
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return bundle.Value{}, fmt.Errorf("codec: truncated inline binary: %w", err)
		}
		buf[i] = b
	}
	return bundle.NewBinaryInline(buf), nil
}

func writeLenPrefixedString(w io.Writer, s string) error {
	if err := writeVarint(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readLenPrefixedString(r io.ByteReader) (string, error) {
	n, err := readVarint(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("codec: truncated string: %w", err)
		}
		buf[i] = b
	}
	return string(buf), nil
}

func putInt64(buf []byte, n int64) { putUint64(buf, uint64(n)) }

func putUint64(buf []byte, n uint64) {
	for i := 7; i >= 0; i-- {
		buf[i] = byte(n)
		n >>= 8
	}
}

func readInt64(r io.ByteReader) (int64, error) {
	n, err := readUint64(r)
	return int64(n), err
}

func readUint64(r io.ByteReader) (uint64, error) {
	var n uint64
	for i := 0; i < 8; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("codec: truncated fixed-width integer: %w", err)
		}
		n = n<<8 | uint64(b)
	}
	return n, nil
}
