package vango

import (
	"reflect"
	"testing"
)

func TestSlabReuse(t *testing.T) {
	var s slab[string]
	a := s.insert("a")
	b := s.insert("b")
	c := s.insert("c")
	if a != 0 || b != 1 || c != 2 {
		t.Fatalf("insert() = %d, %d, %d, want 0, 1, 2", a, b, c)
	}

	s.remove(a)
	s.remove(c)
	if got := s.len(); got != 1 {
		t.Errorf("len() = %d, want 1", got)
	}
	if _, ok := s.get(c); ok {
		t.Error("get() found a removed slot")
	}
	if s.remove(c) {
		t.Error("remove() of a free slot reported true")
	}

	// Freed slots come back last-in first-out.
	if got := s.insert("d"); got != c {
		t.Errorf("insert() = %d, want %d", got, c)
	}
	if got := s.insert("e"); got != a {
		t.Errorf("insert() = %d, want %d", got, a)
	}
	if got := s.insert("f"); got != 3 {
		t.Errorf("insert() = %d, want 3", got)
	}

	var seen []string
	s.each(func(_ uint32, v string) { seen = append(seen, v) })
	if want := []string{"e", "b", "d", "f"}; !reflect.DeepEqual(seen, want) {
		t.Errorf("each() = %v, want %v", seen, want)
	}
}

func TestLongestIncreasing(t *testing.T) {
	tests := []struct {
		in   []int
		want []int
	}{
		{[]int{0, 1, 2}, []int{0, 1, 2}},
		{[]int{2, 0, 1}, []int{1, 2}},
		{[]int{1, 2, 0}, []int{0, 1}},
		{[]int{4, 3, 0, 1, 2}, []int{2, 3, 4}},
		{[]int{noIndex, 1, noIndex, 0}, []int{3}},
		{[]int{3, noIndex, 1, 2, noIndex, 4}, []int{2, 3, 5}},
		{[]int{noIndex, noIndex}, nil},
		{nil, nil},
	}
	for _, tt := range tests {
		if got := longestIncreasing(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("longestIncreasing(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOrderedSet(t *testing.T) {
	var o orderedSet
	for _, v := range []scopeOrder{{2, 5}, {1, 9}, {2, 3}, {0, 0}, {1, 9}} {
		o.insert(v)
	}
	if o.len() != 4 {
		t.Fatalf("len() = %d, want 4", o.len())
	}
	o.remove(scopeOrder{2, 3})
	o.remove(scopeOrder{7, 7})

	var got []scopeOrder
	for {
		v, ok := o.popFirst()
		if !ok {
			break
		}
		got = append(got, v)
	}
	want := []scopeOrder{{0, 0}, {1, 9}, {2, 5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pop order = %v, want %v", got, want)
	}
}

func TestIsAncestorPath(t *testing.T) {
	tests := []struct {
		a, b []uint8
		want bool
	}{
		{[]uint8{0}, []uint8{0, 1, 2}, true},
		{[]uint8{0, 1}, []uint8{0, 1}, true},
		{[]uint8{0, 2}, []uint8{0, 1, 2}, false},
		{[]uint8{0, 1, 2}, []uint8{0, 1}, false},
		{[]uint8{1}, []uint8{0}, false},
	}
	for _, tt := range tests {
		if got := isAncestorPath(tt.a, tt.b); got != tt.want {
			t.Errorf("isAncestorPath(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
