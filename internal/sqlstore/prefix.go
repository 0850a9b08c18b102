package sqlstore

import (
	"fmt"
	"strings"
)

// SanitizePrefix uppercases raw and escapes every character outside
// [A-Z0-9_] to _xHHHH_, HHHH being the lowercase hex of the code point
// zero-padded to 4 digits (§4.5). Applied once at init; the result is
// prepended to every table name.
func SanitizePrefix(raw string) string {
	upper := strings.ToUpper(raw)
	var b strings.Builder
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			continue
		}
		fmt.Fprintf(&b, "_x%04x_", r)
	}
	return b.String()
}
