package vdom

import (
	"fmt"
	"strings"
)

// MutationOp is the type of a mutation.
type MutationOp uint8

const (
	OpAppendChildren      MutationOp = 0x01 // Pop m nodes, append them to id
	OpAssignNodeID        MutationOp = 0x02 // Give the node at path (under stack top) an id
	OpCreatePlaceholder   MutationOp = 0x03 // Push a new placeholder
	OpCreateTextNode      MutationOp = 0x04 // Push a new text node
	OpHydrateText         MutationOp = 0x05 // Turn the hole at path into text with an id
	OpLoadTemplate        MutationOp = 0x06 // Push a clone of template root index
	OpReplaceNodeWith     MutationOp = 0x07 // Pop m nodes, replace id with them
	OpReplacePlaceholder  MutationOp = 0x08 // Pop m nodes, replace the hole at path with them
	OpInsertNodesAfter    MutationOp = 0x09 // Pop m nodes, insert them after id
	OpInsertNodesBefore   MutationOp = 0x0A // Pop m nodes, insert them before id
	OpSetAttribute        MutationOp = 0x0B // Set (or remove, for None) an attribute
	OpSetNodeText         MutationOp = 0x0C // Change the text of a text node
	OpCreateEventListener MutationOp = 0x0D // Start delivering events of a name
	OpRemoveEventListener MutationOp = 0x0E // Stop delivering events of a name
	OpRemoveNode          MutationOp = 0x0F // Remove a node
	OpPushRoot            MutationOp = 0x10 // Push an existing node
	OpPopRoot             MutationOp = 0x11 // Pop the stack top
)

// String returns the string representation of the MutationOp.
func (op MutationOp) String() string {
	switch op {
	case OpAppendChildren:
		return "AppendChildren"
	case OpAssignNodeID:
		return "AssignNodeID"
	case OpCreatePlaceholder:
		return "CreatePlaceholder"
	case OpCreateTextNode:
		return "CreateTextNode"
	case OpHydrateText:
		return "HydrateText"
	case OpLoadTemplate:
		return "LoadTemplate"
	case OpReplaceNodeWith:
		return "ReplaceNodeWith"
	case OpReplacePlaceholder:
		return "ReplacePlaceholder"
	case OpInsertNodesAfter:
		return "InsertNodesAfter"
	case OpInsertNodesBefore:
		return "InsertNodesBefore"
	case OpSetAttribute:
		return "SetAttribute"
	case OpSetNodeText:
		return "SetNodeText"
	case OpCreateEventListener:
		return "CreateEventListener"
	case OpRemoveEventListener:
		return "RemoveEventListener"
	case OpRemoveNode:
		return "RemoveNode"
	case OpPushRoot:
		return "PushRoot"
	case OpPopRoot:
		return "PopRoot"
	default:
		return "Unknown"
	}
}

// Mutation is one recorded edit. Which fields are meaningful depends on Op.
type Mutation struct {
	Op        MutationOp
	ID        ElementID
	M         int       // node count for stack-popping edits
	Index     int       // template root index for LoadTemplate
	Path      []uint8   // path below the stack top (root index excluded)
	Name      string    // attribute or event name
	Namespace string    // attribute namespace
	Text      string    // text content
	Value     AttrValue // attribute value
	Template  *Template // template for LoadTemplate
}

// String returns a compact, stable rendering used in logs and tests.
func (m Mutation) String() string {
	switch m.Op {
	case OpAppendChildren, OpReplaceNodeWith, OpInsertNodesAfter, OpInsertNodesBefore:
		return fmt.Sprintf("%s{id: %d, m: %d}", m.Op, m.ID, m.M)
	case OpAssignNodeID:
		return fmt.Sprintf("%s{path: %v, id: %d}", m.Op, m.Path, m.ID)
	case OpCreatePlaceholder, OpRemoveNode, OpPushRoot:
		return fmt.Sprintf("%s{id: %d}", m.Op, m.ID)
	case OpCreateTextNode, OpSetNodeText:
		return fmt.Sprintf("%s{value: %q, id: %d}", m.Op, m.Text, m.ID)
	case OpHydrateText:
		return fmt.Sprintf("%s{path: %v, value: %q, id: %d}", m.Op, m.Path, m.Text, m.ID)
	case OpLoadTemplate:
		name := "<nil>"
		if m.Template != nil {
			name = m.Template.Name
		}
		return fmt.Sprintf("%s{name: %q, index: %d, id: %d}", m.Op, name, m.Index, m.ID)
	case OpReplacePlaceholder:
		return fmt.Sprintf("%s{path: %v, m: %d}", m.Op, m.Path, m.M)
	case OpSetAttribute:
		var b strings.Builder
		fmt.Fprintf(&b, "%s{name: %q", m.Op, m.Name)
		if m.Namespace != "" {
			fmt.Fprintf(&b, ", ns: %q", m.Namespace)
		}
		if m.Value.Kind == AttrNone {
			b.WriteString(", value: None")
		} else {
			fmt.Fprintf(&b, ", value: %q", m.Value.String())
		}
		fmt.Fprintf(&b, ", id: %d}", m.ID)
		return b.String()
	case OpCreateEventListener, OpRemoveEventListener:
		return fmt.Sprintf("%s{name: %q, id: %d}", m.Op, m.Name, m.ID)
	case OpPopRoot:
		return "PopRoot{}"
	default:
		return fmt.Sprintf("Unknown{op: %d}", m.Op)
	}
}

// MutationSink receives edits from the runtime. Implementations keep a stack
// of node handles; see the package documentation for stack semantics.
type MutationSink interface {
	AppendChildren(id ElementID, m int)
	AssignNodeID(path []uint8, id ElementID)
	CreatePlaceholder(id ElementID)
	CreateTextNode(value string, id ElementID)
	HydrateText(path []uint8, value string, id ElementID)
	LoadTemplate(t *Template, index int, id ElementID)
	ReplaceNodeWith(id ElementID, m int)
	ReplacePlaceholder(path []uint8, m int)
	InsertNodesAfter(id ElementID, m int)
	InsertNodesBefore(id ElementID, m int)
	SetAttribute(name, namespace string, value AttrValue, id ElementID)
	SetNodeText(value string, id ElementID)
	CreateEventListener(name string, id ElementID)
	RemoveEventListener(name string, id ElementID)
	RemoveNode(id ElementID)
	PushRoot(id ElementID)
	PopRoot()
}

// Apply replays a single mutation onto sink.
func Apply(sink MutationSink, m Mutation) {
	switch m.Op {
	case OpAppendChildren:
		sink.AppendChildren(m.ID, m.M)
	case OpAssignNodeID:
		sink.AssignNodeID(m.Path, m.ID)
	case OpCreatePlaceholder:
		sink.CreatePlaceholder(m.ID)
	case OpCreateTextNode:
		sink.CreateTextNode(m.Text, m.ID)
	case OpHydrateText:
		sink.HydrateText(m.Path, m.Text, m.ID)
	case OpLoadTemplate:
		sink.LoadTemplate(m.Template, m.Index, m.ID)
	case OpReplaceNodeWith:
		sink.ReplaceNodeWith(m.ID, m.M)
	case OpReplacePlaceholder:
		sink.ReplacePlaceholder(m.Path, m.M)
	case OpInsertNodesAfter:
		sink.InsertNodesAfter(m.ID, m.M)
	case OpInsertNodesBefore:
		sink.InsertNodesBefore(m.ID, m.M)
	case OpSetAttribute:
		sink.SetAttribute(m.Name, m.Namespace, m.Value, m.ID)
	case OpSetNodeText:
		sink.SetNodeText(m.Text, m.ID)
	case OpCreateEventListener:
		sink.CreateEventListener(m.Name, m.ID)
	case OpRemoveEventListener:
		sink.RemoveEventListener(m.Name, m.ID)
	case OpRemoveNode:
		sink.RemoveNode(m.ID)
	case OpPushRoot:
		sink.PushRoot(m.ID)
	case OpPopRoot:
		sink.PopRoot()
	}
}
