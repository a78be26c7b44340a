package cluster

import (
	"reflect"
	"testing"
)

func TestGroupsExcludesSingletons(t *testing.T) {
	uf := New(5)
	uf.Union(0, 1)
	// 2, 3, 4 remain singletons.
	groups := uf.Groups()
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if !reflect.DeepEqual(groups[0], []int{0, 1}) {
		t.Fatalf("unexpected group: %v", groups[0])
	}
}

func TestGroupsOrderedBySmallestMember(t *testing.T) {
	uf := New(6)
	uf.Union(4, 5)
	uf.Union(1, 2)
	groups := uf.Groups()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0][0] != 1 || groups[1][0] != 4 {
		t.Fatalf("groups not ordered by smallest member: %v", groups)
	}
}

func TestAllIdenticalGroupsOfN(t *testing.T) {
	uf := New(4)
	uf.Union(0, 1)
	uf.Union(1, 2)
	uf.Union(2, 3)
	groups := uf.Groups()
	if len(groups) != 1 || len(groups[0]) != 4 {
		t.Fatalf("expected single group of 4, got %v", groups)
	}
}

func TestEmptyHasNoGroups(t *testing.T) {
	uf := New(0)
	if groups := uf.Groups(); len(groups) != 0 {
		t.Fatalf("expected no groups, got %v", groups)
	}
}
