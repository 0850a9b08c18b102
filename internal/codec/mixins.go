package codec

import "github.com/rogerblanton/jackrabbit/internal/bundle"

// UnresolvedMixins returns the subset of b.MixinTypeNames for which
// resolve reports false — a mixin reference whose QName has no entry
// in the shared name index. The wire format carries only the QName
// pair (§4.1), so the codec itself never resolves names; this check
// runs as a post-decode pass against whichever name index is live,
// gated by the errorHandling policy's mixin leniency flag.
func UnresolvedMixins(b *bundle.NodePropBundle, resolve func(bundle.QName) bool) []bundle.QName {
	var unresolved []bundle.QName
	for _, m := range b.MixinTypeNames {
		if !resolve(m) {
			unresolved = append(unresolved, m)
		}
	}
	return unresolved
}

// DropMixins returns mixins with every entry in drop removed,
// preserving the order of what remains. When drop is empty, mixins
// itself is returned; otherwise the result is a new slice.
func DropMixins(mixins []bundle.QName, drop []bundle.QName) []bundle.QName {
	if len(drop) == 0 {
		return mixins
	}
	skip := make(map[bundle.QName]bool, len(drop))
	for _, m := range drop {
		skip[m] = true
	}
	kept := make([]bundle.QName, 0, len(mixins))
	for _, m := range mixins {
		if !skip[m] {
			kept = append(kept, m)
		}
	}
	return kept
}
