package blobstore

import (
	"testing"

	"github.com/rogerblanton/jackrabbit/internal/nodeid"
)

func TestCreateIDIsInjective(t *testing.T) {
	parent1, parent2 := nodeid.New(), nodeid.New()

	seen := make(map[string]bool)
	collide := func(id string) {
		if seen[id] {
			t.Fatalf("collision on id %q", id)
		}
		seen[id] = true
	}

	collide(CreateID(parent1, 0, 1, 0))
	collide(CreateID(parent1, 0, 1, 1))
	collide(CreateID(parent1, 0, 2, 0))
	collide(CreateID(parent1, 1, 1, 0))
	collide(CreateID(parent2, 0, 1, 0))
}

func TestCreateIDDeterministic(t *testing.T) {
	parent := nodeid.New()
	a := CreateID(parent, 3, 7, 2)
	b := CreateID(parent, 3, 7, 2)
	if a != b {
		t.Errorf("CreateID not deterministic: %q != %q", a, b)
	}
}
