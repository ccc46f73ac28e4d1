package vdom

import (
	"reflect"
	"testing"
)

func TestMutationString(t *testing.T) {
	tmpl := NewTemplate("item", El("li", Dyn(0)))
	tests := []struct {
		m    Mutation
		want string
	}{
		{Mutation{Op: OpAppendChildren, ID: 0, M: 2}, "AppendChildren{id: 0, m: 2}"},
		{Mutation{Op: OpLoadTemplate, Template: tmpl, Index: 0, ID: 1}, `LoadTemplate{name: "item", index: 0, id: 1}`},
		{Mutation{Op: OpHydrateText, Path: []uint8{0}, Text: "a", ID: 2}, `HydrateText{path: [0], value: "a", id: 2}`},
		{Mutation{Op: OpSetAttribute, Name: "class", Value: TextAttr("class", "x").Value, ID: 3}, `SetAttribute{name: "class", value: "x", id: 3}`},
		{Mutation{Op: OpSetAttribute, Name: "class", ID: 3}, `SetAttribute{name: "class", value: None, id: 3}`},
		{Mutation{Op: OpPushRoot, ID: 7}, "PushRoot{id: 7}"},
		{Mutation{Op: OpPopRoot}, "PopRoot{}"},
		{Mutation{Op: OpReplacePlaceholder, Path: []uint8{1, 0}, M: 3}, "ReplacePlaceholder{path: [1 0], m: 3}"},
		{Mutation{Op: OpCreateEventListener, Name: "click", ID: 4}, `CreateEventListener{name: "click", id: 4}`},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}

func TestMutationsRecordAndReplay(t *testing.T) {
	tmpl := NewTemplate("item", El("li", Dyn(0)))

	var rec Mutations
	rec.LoadTemplate(tmpl, 0, 1)
	rec.HydrateText([]uint8{0}, "hello", 2)
	rec.LoadTemplate(tmpl, 0, 3)
	rec.AppendChildren(RootElement, 2)
	rec.SetNodeText("bye", 2)
	rec.PopRoot()

	if rec.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", rec.Len())
	}
	if len(rec.Templates) != 1 || rec.Templates[0] != tmpl {
		t.Errorf("Templates = %v, want [item]", rec.Templates)
	}

	var replay Mutations
	rec.ReplayTo(&replay)
	if !reflect.DeepEqual(replay.Strings(), rec.Strings()) {
		t.Errorf("replay = %v, want %v", replay.Strings(), rec.Strings())
	}

	taken := rec.Take()
	if len(taken) != 6 || rec.Len() != 0 || len(rec.Templates) != 0 {
		t.Errorf("Take() left %d edits, %d templates", rec.Len(), len(rec.Templates))
	}

	rec.LoadTemplate(tmpl, 0, 9)
	if len(rec.Templates) != 1 {
		t.Error("Reset should forget seen templates")
	}
}

func TestMutationsCopyPaths(t *testing.T) {
	path := []uint8{0, 1}
	var rec Mutations
	rec.AssignNodeID(path, 5)
	path[1] = 9
	if got := rec.Edits[0].Path[1]; got != 1 {
		t.Errorf("recorded path aliased caller slice: %v", rec.Edits[0].Path)
	}
}

func TestMutationOpString(t *testing.T) {
	for op := OpAppendChildren; op <= OpPopRoot; op++ {
		if op.String() == "Unknown" {
			t.Errorf("MutationOp(%d) has no name", op)
		}
	}
	if MutationOp(0).String() != "Unknown" {
		t.Error("MutationOp(0) should be Unknown")
	}
}
