package protocol

import (
	"github.com/vango-dev/vango-core/pkg/vdom"
)

// Batch is one render cycle's worth of edits as sent to a renderer.
type Batch struct {
	// Seq numbers batches from 1 within a session.
	Seq uint64 `cbor:"1,keyasint"`

	// Templates holds definitions the renderer has not seen yet, in first-use
	// order. They must be registered before Edits are applied.
	Templates []TemplateDef `cbor:"2,keyasint,omitempty"`

	Edits []Edit `cbor:"3,keyasint,omitempty"`
}

// TemplateDef carries a template's static structure. ID is the template
// fingerprint; LoadTemplate edits refer to templates by it.
type TemplateDef struct {
	ID    uint64              `cbor:"1,keyasint"`
	Name  string              `cbor:"2,keyasint"`
	Roots []vdom.TemplateNode `cbor:"3,keyasint"`
}

// Edit is the wire form of a vdom.Mutation. Only the fields the opcode uses
// are set.
type Edit struct {
	Op        vdom.MutationOp `cbor:"1,keyasint"`
	ID        vdom.ElementID  `cbor:"2,keyasint,omitempty"`
	M         int             `cbor:"3,keyasint,omitempty"`
	Index     int             `cbor:"4,keyasint,omitempty"`
	Path      []byte          `cbor:"5,keyasint,omitempty"`
	Template  uint64          `cbor:"6,keyasint,omitempty"`
	Name      string          `cbor:"7,keyasint,omitempty"`
	Namespace string          `cbor:"8,keyasint,omitempty"`
	Text      string          `cbor:"9,keyasint,omitempty"`
	Value     *Value          `cbor:"10,keyasint,omitempty"`
}

// Value is the wire form of an attribute value. Listeners never reach the
// wire; AttrAny values are sent as their text rendering.
type Value struct {
	Kind  vdom.AttrKind `cbor:"1,keyasint"`
	Text  string        `cbor:"2,keyasint,omitempty"`
	Float float64       `cbor:"3,keyasint,omitempty"`
	Int   int64         `cbor:"4,keyasint,omitempty"`
	Bool  bool          `cbor:"5,keyasint,omitempty"`
}

func valueOf(v vdom.AttrValue) *Value {
	switch v.Kind {
	case vdom.AttrText:
		return &Value{Kind: vdom.AttrText, Text: v.Text}
	case vdom.AttrFloat:
		return &Value{Kind: vdom.AttrFloat, Float: v.Float}
	case vdom.AttrInt:
		return &Value{Kind: vdom.AttrInt, Int: v.Int}
	case vdom.AttrBool:
		return &Value{Kind: vdom.AttrBool, Bool: v.Bool}
	case vdom.AttrAny:
		return &Value{Kind: vdom.AttrText, Text: v.String()}
	default:
		return &Value{Kind: vdom.AttrNone}
	}
}

// AttrValue converts v back to a vdom value. A nil Value is None.
func (v *Value) AttrValue() vdom.AttrValue {
	if v == nil {
		return vdom.AttrValue{}
	}
	return vdom.AttrValue{Kind: v.Kind, Text: v.Text, Float: v.Float, Int: v.Int, Bool: v.Bool}
}

// EditOf converts a mutation to its wire form.
func EditOf(m vdom.Mutation) Edit {
	e := Edit{Op: m.Op}
	switch m.Op {
	case vdom.OpAppendChildren, vdom.OpReplaceNodeWith, vdom.OpInsertNodesAfter, vdom.OpInsertNodesBefore:
		e.ID, e.M = m.ID, m.M
	case vdom.OpAssignNodeID:
		e.Path, e.ID = m.Path, m.ID
	case vdom.OpCreatePlaceholder, vdom.OpRemoveNode, vdom.OpPushRoot:
		e.ID = m.ID
	case vdom.OpCreateTextNode, vdom.OpSetNodeText:
		e.Text, e.ID = m.Text, m.ID
	case vdom.OpHydrateText:
		e.Path, e.Text, e.ID = m.Path, m.Text, m.ID
	case vdom.OpLoadTemplate:
		e.Template, e.Index, e.ID = m.Template.Fingerprint(), m.Index, m.ID
	case vdom.OpReplacePlaceholder:
		e.Path, e.M = m.Path, m.M
	case vdom.OpSetAttribute:
		e.Name, e.Namespace, e.Value, e.ID = m.Name, m.Namespace, valueOf(m.Value), m.ID
	case vdom.OpCreateEventListener, vdom.OpRemoveEventListener:
		e.Name, e.ID = m.Name, m.ID
	}
	return e
}

// TemplateCache remembers which templates a session's renderer already holds,
// so each definition crosses the wire once. It is not safe for concurrent use.
type TemplateCache struct {
	sent map[uint64]struct{}
}

// NewTemplateCache creates an empty cache.
func NewTemplateCache() *TemplateCache {
	return &TemplateCache{sent: make(map[uint64]struct{})}
}

// Len returns the number of templates sent so far.
func (c *TemplateCache) Len() int { return len(c.sent) }

// Batch converts a recorded cycle into a wire batch, attaching definitions for
// templates not sent before.
func (c *TemplateCache) Batch(seq uint64, muts *vdom.Mutations) *Batch {
	b := &Batch{Seq: seq}
	for _, t := range muts.Templates {
		id := t.Fingerprint()
		if _, ok := c.sent[id]; ok {
			continue
		}
		c.sent[id] = struct{}{}
		b.Templates = append(b.Templates, TemplateDef{ID: id, Name: t.Name, Roots: t.Roots})
	}
	if len(muts.Edits) > 0 {
		b.Edits = make([]Edit, len(muts.Edits))
		for i, m := range muts.Edits {
			b.Edits[i] = EditOf(m)
		}
	}
	return b
}
