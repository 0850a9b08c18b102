package bundle

import "github.com/rogerblanton/jackrabbit/internal/nodeid"

// PropertyID identifies one property on one node: the owning node's
// id plus the property's qualified name.
type PropertyID struct {
	OwnerID nodeid.ID
	Name    QName
}

// NodeReferences is the set of properties referring to TargetID,
// keyed by the target in the references store (C6). Created on first
// non-empty write, destroyed when empty (§3 Lifecycles).
type NodeReferences struct {
	TargetID    nodeid.ID
	PropertyIDs []PropertyID

	// IsNew mirrors NodePropBundle.IsNew: the caller's change log says
	// whether this target already has a references row, so the store
	// doesn't infer insert-vs-update from a read-before-write. Transient,
	// never serialized.
	IsNew bool
}

// IsEmpty reports whether the reference set has no members, which
// per §3 means the references store row should not exist.
func (r *NodeReferences) IsEmpty() bool {
	return len(r.PropertyIDs) == 0
}

// Add appends pid if not already present.
func (r *NodeReferences) Add(pid PropertyID) {
	for _, existing := range r.PropertyIDs {
		if existing == pid {
			return
		}
	}
	r.PropertyIDs = append(r.PropertyIDs, pid)
}

// Remove deletes pid from the set, if present.
func (r *NodeReferences) Remove(pid PropertyID) {
	for i, existing := range r.PropertyIDs {
		if existing == pid {
			r.PropertyIDs = append(r.PropertyIDs[:i], r.PropertyIDs[i+1:]...)
			return
		}
	}
}
