package codec

import "bytes"

// Check parses data without returning the materialized bundle,
// reporting only whether it is well-formed and, on failure, the byte
// offset at which parsing broke down. The consistency checker (C9)
// uses this to pinpoint corrupt rows during a full bundle scan. It
// runs the same decoder as Decode, so the bundle is still built in
// memory and then discarded.
func Check(data []byte) (offset int64, err error) {
	_, offset, err = decode(bytes.NewReader(data), int64(len(data)))
	return offset, err
}
