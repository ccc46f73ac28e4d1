package vdom

import "strconv"

// ElementID is the stable handle a renderer uses for a node it created.
// ElementID 0 is the root container the application is mounted into.
type ElementID uint32

// RootElement is the container every rebuild appends to.
const RootElement ElementID = 0

// String returns the id as a decimal string.
func (id ElementID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// MountID identifies a mounted VNode inside a runtime. The zero value means the
// node is not mounted.
type MountID uint32

// Mounted reports whether the id refers to a live mount.
func (m MountID) Mounted() bool { return m != 0 }
