// Package vtest provides a harness for testing components against the
// runtime.
//
// A Harness owns a runtime and a render.Document. Every batch of edits the
// runtime produces is applied to the document, so tests can assert on the
// resulting markup, on the edits themselves, or on both. A batch the
// document cannot apply fails the test.
//
// # Quick Start
//
//	func TestCounter(t *testing.T) {
//	    h := vtest.New(t, Counter, CounterProps{})
//	    vtest.ExpectContains(t, h.Root(), "count: 0")
//
//	    h.Click("inc")
//	    vtest.ExpectContains(t, h.Root(), "count: 1")
//	    vtest.ExpectEdits(t, h.Last(), `SetNodeText{value: "count: 1", id: 3}`)
//	}
//
// # Tasks
//
// Await blocks until every spawned task has finished, rendering after each
// completion:
//
//	h := vtest.New(t, Profile, ProfileProps{ID: 7})
//	vtest.ExpectContains(t, h.Root(), "loading")
//	h.Await(time.Second)
//	vtest.ExpectContains(t, h.Root(), "Ada")
package vtest
