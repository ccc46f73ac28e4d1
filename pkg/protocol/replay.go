package protocol

import (
	"fmt"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

func malformed(err error) error {
	return vangoerrors.New("E060").Wrap(err)
}

// Replayer is the renderer side of a session. It rebuilds templates from their
// definitions and turns batches back into vdom.MutationSink calls.
type Replayer struct {
	templates map[uint64]*vdom.Template
	last      uint64
}

// NewReplayer creates a replayer expecting batch 1 next.
func NewReplayer() *Replayer {
	return &Replayer{templates: make(map[uint64]*vdom.Template)}
}

// LastSeq returns the sequence number of the last applied batch.
func (r *Replayer) LastSeq() uint64 { return r.last }

// Apply validates b and replays its edits onto sink. Nothing reaches sink
// unless the whole batch is valid.
func (r *Replayer) Apply(b *Batch, sink vdom.MutationSink) error {
	if b.Seq != r.last+1 {
		return malformed(fmt.Errorf("batch %d out of order, expected %d", b.Seq, r.last+1))
	}
	for _, def := range b.Templates {
		t, err := buildTemplate(def)
		if err != nil {
			return err
		}
		r.templates[def.ID] = t
	}

	muts := make([]vdom.Mutation, len(b.Edits))
	for i, e := range b.Edits {
		m, err := r.mutation(e)
		if err != nil {
			return err
		}
		muts[i] = m
	}
	for _, m := range muts {
		vdom.Apply(sink, m)
	}
	r.last = b.Seq
	return nil
}

func buildTemplate(def TemplateDef) (t *vdom.Template, err error) {
	defer func() {
		if p := recover(); p != nil {
			t, err = nil, malformed(fmt.Errorf("%v", p))
		}
	}()
	t = vdom.NewTemplate(def.Name, def.Roots...)
	if t.Fingerprint() != def.ID {
		return nil, malformed(fmt.Errorf("template %q fingerprint mismatch", def.Name))
	}
	return t, nil
}

func (r *Replayer) mutation(e Edit) (vdom.Mutation, error) {
	m := vdom.Mutation{
		Op:        e.Op,
		ID:        e.ID,
		M:         e.M,
		Index:     e.Index,
		Path:      e.Path,
		Name:      e.Name,
		Namespace: e.Namespace,
		Text:      e.Text,
	}
	switch e.Op {
	case vdom.OpLoadTemplate:
		t, ok := r.templates[e.Template]
		if !ok {
			return m, vangoerrors.New("E062").WithDetail(fmt.Sprintf("template %016x", e.Template))
		}
		if e.Index < 0 || e.Index >= len(t.Roots) {
			return m, malformed(fmt.Errorf("template %q has no root %d", t.Name, e.Index))
		}
		m.Template = t
	case vdom.OpSetAttribute:
		m.Value = e.Value.AttrValue()
	}
	if e.Op < vdom.OpAppendChildren || e.Op > vdom.OpPopRoot {
		return m, vangoerrors.New("E061").WithDetail(fmt.Sprintf("opcode 0x%02x", uint8(e.Op)))
	}
	if e.M < 0 {
		return m, malformed(fmt.Errorf("%s with negative count", e.Op))
	}
	return m, nil
}
