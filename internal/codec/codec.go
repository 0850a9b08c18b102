// Package codec implements the bundle binary codec (C2, §4.1): a
// length-framed, self-describing binary format that reads from and
// writes to a byte stream with big-endian multi-byte integers and the
// custom variable-length integer scheme in varint.go.
package codec

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/rogerblanton/jackrabbit/internal/blobstore"
	"github.com/rogerblanton/jackrabbit/internal/bundle"
	"github.com/rogerblanton/jackrabbit/internal/nodeid"
	"github.com/rogerblanton/jackrabbit/internal/perrors"
)

// CurrentVersion is the only version this codec writes. A reader for
// version v must refuse versions > v (§6); there is no upgrade-on-read.
const CurrentVersion = 1

// EncodeOptions configures externalization during Encode.
type EncodeOptions struct {
	// MinBlobSize is the length threshold (§3, §4.1) at or above which
	// a fresh BINARY value is written to Blobs instead of inline.
	MinBlobSize int64
	// Blobs is consulted only when a value needs externalizing; it may
	// be nil if the bundle carries no BINARY properties.
	Blobs blobstore.Store
}

// Encode serializes b per §4.1's encoding order, externalizing any
// BINARY property value at or above opts.MinBlobSize via opts.Blobs.
func Encode(ctx context.Context, b *bundle.NodePropBundle, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(CurrentVersion)

	if err := writeQName(&buf, b.NodeTypeName); err != nil {
		return nil, perrors.Wrap(perrors.EncodingError, "encode nodeTypeName", err)
	}

	if b.ParentID != nil {
		buf.WriteByte(1)
		buf.Write(b.ParentID.Bytes())
	} else {
		buf.WriteByte(0)
	}

	buf.Write(b.DefinitionID[:])

	if err := writeVarint(&buf, uint64(len(b.MixinTypeNames))); err != nil {
		return nil, perrors.Wrap(perrors.EncodingError, "encode mixinCount", err)
	}
	for _, m := range b.MixinTypeNames {
		if err := writeQName(&buf, m); err != nil {
			return nil, perrors.Wrap(perrors.EncodingError, "encode mixin name", err)
		}
	}

	for i, p := range b.Properties {
		if err := encodeProperty(ctx, &buf, b.ID, p, opts); err != nil {
			return nil, perrors.WrapItem(perrors.EncodingError, fmt.Sprintf("encode property %d", i), b.ID.String(), err)
		}
	}
	// Terminator: namespaceIndex slot is unused filler (0), nameIndex
	// slot carries the reserved all-ones sentinel (§4.1).
	if err := writeVarint(&buf, 0); err != nil {
		return nil, err
	}
	if err := writeVarint(&buf, nameIndexTerminator); err != nil {
		return nil, err
	}

	if err := writeVarint(&buf, uint64(len(b.ChildEntries))); err != nil {
		return nil, perrors.Wrap(perrors.EncodingError, "encode childCount", err)
	}
	for _, c := range b.ChildEntries {
		if err := writeQName(&buf, c.Name); err != nil {
			return nil, err
		}
		buf.Write(c.ID.Bytes())
	}

	referenceable := byte(0)
	if b.Referenceable {
		referenceable = 1
	}
	buf.WriteByte(referenceable)

	var modCountBuf [2]byte
	modCountBuf[0] = byte(b.ModCount >> 8)
	modCountBuf[1] = byte(b.ModCount)
	buf.Write(modCountBuf[:])

	return buf.Bytes(), nil
}

func encodeProperty(ctx context.Context, w *bytes.Buffer, ownerID nodeid.ID, p bundle.PropertyEntry, opts EncodeOptions) error {
	if err := writeQName(w, p.Name); err != nil {
		return err
	}
	w.WriteByte(byte(p.Type))

	multi := byte(0)
	if p.MultiValued {
		multi = 1
	}
	w.WriteByte(multi)

	w.WriteByte(byte(p.ModCount >> 8))
	w.WriteByte(byte(p.ModCount))

	if err := writeVarint(w, uint64(len(p.Values))); err != nil {
		return err
	}

	for i, v := range p.Values {
		vc := valueContext{
			ownerID:     ownerID,
			propName:    p.Name,
			valueIndex:  i,
			minBlobSize: opts.MinBlobSize,
			blobs:       opts.Blobs,
		}
		if err := encodeValue(ctx, w, v, vc); err != nil {
			return err
		}
	}
	return nil
}

func writeQName(w io.Writer, q bundle.QName) error {
	if err := writeVarint(w, uint64(q.NamespaceIndex)); err != nil {
		return err
	}
	return writeVarint(w, uint64(q.NameIndex))
}

// Decode deserializes a byte stream written by Encode. Unknown
// versions fail with a DecodingError (§4.1).
func Decode(data []byte) (*bundle.NodePropBundle, error) {
	b, _, err := decode(bytes.NewReader(data), int64(len(data)))
	return b, err
}

// decode is Decode's implementation, shared with Check. On error it
// also reports the byte offset at which parsing failed, computed from
// r's remaining length; total is the original stream length.
func decode(r *bytes.Reader, total int64) (*bundle.NodePropBundle, int64, error) {
	offset := func() int64 { return total - int64(r.Len()) }

	version, err := r.ReadByte()
	if err != nil {
		return nil, offset(), perrors.Wrap(perrors.DecodingError, "read version", err)
	}
	if version != CurrentVersion {
		return nil, offset(), perrors.New(perrors.DecodingError, fmt.Sprintf("unsupported format version %d", version))
	}

	b := &bundle.NodePropBundle{}

	b.NodeTypeName, err = readQName(r)
	if err != nil {
		return nil, offset(), perrors.Wrap(perrors.DecodingError, "read nodeTypeName", err)
	}

	parentPresent, err := r.ReadByte()
	if err != nil {
		return nil, offset(), perrors.Wrap(perrors.DecodingError, "read parentPresent", err)
	}
	if parentPresent == 1 {
		var idBytes [nodeid.Size]byte
		if _, err := io.ReadFull(r, idBytes[:]); err != nil {
			return nil, offset(), perrors.Wrap(perrors.DecodingError, "read parentId", err)
		}
		parentID, err := nodeid.FromBytes(idBytes[:])
		if err != nil {
			return nil, offset(), perrors.Wrap(perrors.DecodingError, "parse parentId", err)
		}
		b.ParentID = &parentID
	}

	if _, err := io.ReadFull(r, b.DefinitionID[:]); err != nil {
		return nil, offset(), perrors.Wrap(perrors.DecodingError, "read definitionId", err)
	}

	mixinCount, err := readVarint(r)
	if err != nil {
		return nil, offset(), perrors.Wrap(perrors.DecodingError, "read mixinCount", err)
	}
	b.MixinTypeNames = make([]bundle.QName, mixinCount)
	for i := range b.MixinTypeNames {
		b.MixinTypeNames[i], err = readQName(r)
		if err != nil {
			return nil, offset(), perrors.Wrap(perrors.DecodingError, "read mixin name", err)
		}
	}

	for {
		namespaceIndex, err := readVarint(r)
		if err != nil {
			return nil, offset(), perrors.Wrap(perrors.DecodingError, "read property namespaceIndex", err)
		}
		nameIndex, err := readVarint(r)
		if err != nil {
			return nil, offset(), perrors.Wrap(perrors.DecodingError, "read property nameIndex", err)
		}
		if nameIndex == nameIndexTerminator {
			break
		}

		prop, err := decodeProperty(r, bundle.QName{NamespaceIndex: uint32(namespaceIndex), NameIndex: uint32(nameIndex)})
		if err != nil {
			return nil, offset(), err
		}
		b.Properties = append(b.Properties, prop)
	}

	childCount, err := readVarint(r)
	if err != nil {
		return nil, offset(), perrors.Wrap(perrors.DecodingError, "read childCount", err)
	}
	b.ChildEntries = make([]bundle.ChildEntry, childCount)
	for i := range b.ChildEntries {
		name, err := readQName(r)
		if err != nil {
			return nil, offset(), perrors.Wrap(perrors.DecodingError, "read child name", err)
		}
		var idBytes [nodeid.Size]byte
		if _, err := io.ReadFull(r, idBytes[:]); err != nil {
			return nil, offset(), perrors.Wrap(perrors.DecodingError, "read child id", err)
		}
		id, err := nodeid.FromBytes(idBytes[:])
		if err != nil {
			return nil, offset(), perrors.Wrap(perrors.DecodingError, "parse child id", err)
		}
		b.ChildEntries[i] = bundle.ChildEntry{Name: name, ID: id}
	}

	referenceable, err := r.ReadByte()
	if err != nil {
		return nil, offset(), perrors.Wrap(perrors.DecodingError, "read referenceable", err)
	}
	b.Referenceable = referenceable != 0

	modCountHi, err := r.ReadByte()
	if err != nil {
		return nil, offset(), perrors.Wrap(perrors.DecodingError, "read modCount", err)
	}
	modCountLo, err := r.ReadByte()
	if err != nil {
		return nil, offset(), perrors.Wrap(perrors.DecodingError, "read modCount", err)
	}
	b.ModCount = uint16(modCountHi)<<8 | uint16(modCountLo)

	return b, offset(), nil
}

func decodeProperty(r *bytes.Reader, name bundle.QName) (bundle.PropertyEntry, error) {
	typByte, err := r.ReadByte()
	if err != nil {
		return bundle.PropertyEntry{}, perrors.Wrap(perrors.DecodingError, "read property type", err)
	}
	typ := bundle.PropertyType(typByte)
	if !typ.Valid() {
		return bundle.PropertyEntry{}, perrors.New(perrors.DecodingError, fmt.Sprintf("invalid property type %d", typByte))
	}

	multiByte, err := r.ReadByte()
	if err != nil {
		return bundle.PropertyEntry{}, perrors.Wrap(perrors.DecodingError, "read multiValued", err)
	}

	modHi, err := r.ReadByte()
	if err != nil {
		return bundle.PropertyEntry{}, perrors.Wrap(perrors.DecodingError, "read property modCount", err)
	}
	modLo, err := r.ReadByte()
	if err != nil {
		return bundle.PropertyEntry{}, perrors.Wrap(perrors.DecodingError, "read property modCount", err)
	}

	valueCount, err := readVarint(r)
	if err != nil {
		return bundle.PropertyEntry{}, perrors.Wrap(perrors.DecodingError, "read valueCount", err)
	}

	values := make([]bundle.Value, valueCount)
	for i := range values {
		v, err := decodeValue(r, typ)
		if err != nil {
			return bundle.PropertyEntry{}, perrors.Wrap(perrors.DecodingError, "read property value", err)
		}
		values[i] = v
	}

	return bundle.PropertyEntry{
		Name:        name,
		Type:        typ,
		MultiValued: multiByte != 0,
		ModCount:    uint16(modHi)<<8 | uint16(modLo),
		Values:      values,
	}, nil
}

func readQName(r io.ByteReader) (bundle.QName, error) {
	ns, err := readVarint(r)
	if err != nil {
		return bundle.QName{}, err
	}
	n, err := readVarint(r)
	if err != nil {
		return bundle.QName{}, err
	}
	return bundle.QName{NamespaceIndex: uint32(ns), NameIndex: uint32(n)}, nil
}

// CollectBlobIDs walks b's properties and returns every externalized
// blob id referenced, used when destroying a bundle (§4.1
// "externalized blobId is scheduled for removal... as part of the
// same transaction").
func CollectBlobIDs(b *bundle.NodePropBundle) []string {
	var ids []string
	for _, p := range b.Properties {
		if p.Type != bundle.TypeBinary {
			continue
		}
		for _, v := range p.Values {
			if v.IsExternalBinary() {
				ids = append(ids, v.BlobID)
			}
		}
	}
	return ids
}
