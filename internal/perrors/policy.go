package perrors

import "strings"

// Policy governs the per-error soft-diagnostic behavior described in
// the last paragraph of §7: it affects only C2's mixin decode
// leniency and C9's missing-reference severity, never whether an
// in-transaction failure rolls back.
type Policy struct {
	// LenientMixins: an unresolved mixin type name reference during
	// decode is logged and skipped instead of promoted to a
	// DecodingError. Set by flag 'm'.
	LenientMixins bool

	// LenientMissingChild: the consistency checker logs a missing
	// child reference but does not count it toward a failing exit
	// status. Set by flag 'c'. (It is always eligible for repair;
	// this flag only affects reporting severity.)
	LenientMissingChild bool

	// Verbose: set by flag 'v' and carried on the Policy. No component
	// reads it; the consistency checker logs codec.Check byte offsets
	// and per-entry problems whether or not it is set.
	Verbose bool
}

// ParsePolicy parses the errorHandling configuration string (§6) into
// a Policy. Unrecognized characters are ignored, matching the
// permissive single-character-flag convention the option describes.
func ParsePolicy(flags string) Policy {
	var p Policy
	for _, c := range flags {
		switch c {
		case 'm':
			p.LenientMixins = true
		case 'c':
			p.LenientMissingChild = true
		case 'v':
			p.Verbose = true
		}
	}
	return p
}

// String renders the policy back to its flag-character form, in the
// fixed order m, c, v for determinism.
func (p Policy) String() string {
	var b strings.Builder
	if p.LenientMixins {
		b.WriteByte('m')
	}
	if p.LenientMissingChild {
		b.WriteByte('c')
	}
	if p.Verbose {
		b.WriteByte('v')
	}
	return b.String()
}
