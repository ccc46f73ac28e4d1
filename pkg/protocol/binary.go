package protocol

import (
	"fmt"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

// maxTemplateDepth bounds recursion when decoding template definitions.
const maxTemplateDepth = 255

// Binary is the compact hand-written codec. Integers are varints and strings
// are length-prefixed; each edit is its opcode byte followed by the fields the
// opcode uses, in vdom.Mutation order.
var Binary Codec = binaryCodec{}

type binaryCodec struct{}

func (binaryCodec) Name() string { return CodecBinary }

func (binaryCodec) EncodeBatch(b *Batch) ([]byte, error) {
	e := NewEncoderWithCap(64 + 8*len(b.Edits))
	e.WriteUvarint(b.Seq)
	e.WriteUvarint(uint64(len(b.Templates)))
	for i := range b.Templates {
		def := &b.Templates[i]
		e.WriteUint64(def.ID)
		e.WriteString(def.Name)
		encodeNodes(e, def.Roots)
	}
	e.WriteUvarint(uint64(len(b.Edits)))
	for i := range b.Edits {
		if err := encodeEdit(e, &b.Edits[i]); err != nil {
			return nil, err
		}
	}
	return e.Bytes(), nil
}

func encodeNodes(e *Encoder, nodes []vdom.TemplateNode) {
	e.WriteUvarint(uint64(len(nodes)))
	for i := range nodes {
		n := &nodes[i]
		e.WriteByte(byte(n.Kind))
		switch n.Kind {
		case vdom.TemplateElement:
			e.WriteString(n.Tag)
			e.WriteString(n.Namespace)
			e.WriteUvarint(uint64(len(n.Attrs)))
			for _, a := range n.Attrs {
				e.WriteBool(a.Dynamic)
				if a.Dynamic {
					e.WriteUvarint(uint64(a.Slot))
					continue
				}
				e.WriteString(a.Name)
				e.WriteString(a.Value)
				e.WriteString(a.Namespace)
			}
			encodeNodes(e, n.Children)
		case vdom.TemplateText:
			e.WriteString(n.Text)
		case vdom.TemplateDynamic:
			e.WriteUvarint(uint64(n.Slot))
		}
	}
}

func encodeEdit(e *Encoder, ed *Edit) error {
	e.WriteByte(byte(ed.Op))
	switch ed.Op {
	case vdom.OpAppendChildren, vdom.OpReplaceNodeWith, vdom.OpInsertNodesAfter, vdom.OpInsertNodesBefore:
		e.WriteUvarint(uint64(ed.ID))
		e.WriteUvarint(uint64(ed.M))
	case vdom.OpAssignNodeID:
		e.WriteLenBytes(ed.Path)
		e.WriteUvarint(uint64(ed.ID))
	case vdom.OpCreatePlaceholder, vdom.OpRemoveNode, vdom.OpPushRoot:
		e.WriteUvarint(uint64(ed.ID))
	case vdom.OpCreateTextNode, vdom.OpSetNodeText:
		e.WriteString(ed.Text)
		e.WriteUvarint(uint64(ed.ID))
	case vdom.OpHydrateText:
		e.WriteLenBytes(ed.Path)
		e.WriteString(ed.Text)
		e.WriteUvarint(uint64(ed.ID))
	case vdom.OpLoadTemplate:
		e.WriteUint64(ed.Template)
		e.WriteUvarint(uint64(ed.Index))
		e.WriteUvarint(uint64(ed.ID))
	case vdom.OpReplacePlaceholder:
		e.WriteLenBytes(ed.Path)
		e.WriteUvarint(uint64(ed.M))
	case vdom.OpSetAttribute:
		e.WriteString(ed.Name)
		e.WriteString(ed.Namespace)
		encodeValue(e, ed.Value)
		e.WriteUvarint(uint64(ed.ID))
	case vdom.OpCreateEventListener, vdom.OpRemoveEventListener:
		e.WriteString(ed.Name)
		e.WriteUvarint(uint64(ed.ID))
	case vdom.OpPopRoot:
	default:
		return vangoerrors.New("E061").WithDetail(fmt.Sprintf("opcode 0x%02x", uint8(ed.Op)))
	}
	return nil
}

func encodeValue(e *Encoder, v *Value) {
	if v == nil {
		e.WriteByte(byte(vdom.AttrNone))
		return
	}
	e.WriteByte(byte(v.Kind))
	switch v.Kind {
	case vdom.AttrText:
		e.WriteString(v.Text)
	case vdom.AttrFloat:
		e.WriteFloat64(v.Float)
	case vdom.AttrInt:
		e.WriteSvarint(v.Int)
	case vdom.AttrBool:
		e.WriteBool(v.Bool)
	}
}

func (binaryCodec) DecodeBatch(data []byte) (*Batch, error) {
	b, err := decodeBatch(NewDecoder(data))
	if err != nil {
		if vangoerrors.Code(err) != "" {
			return nil, err
		}
		return nil, malformed(err)
	}
	return b, nil
}

func decodeBatch(d *Decoder) (*Batch, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	b := &Batch{Seq: seq}

	n, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		b.Templates = make([]TemplateDef, n)
	}
	for i := range b.Templates {
		def := &b.Templates[i]
		if def.ID, err = d.ReadUint64(); err != nil {
			return nil, err
		}
		if def.Name, err = d.ReadString(); err != nil {
			return nil, err
		}
		if def.Roots, err = decodeNodes(d, 0); err != nil {
			return nil, err
		}
	}

	if n, err = d.ReadCollectionCount(); err != nil {
		return nil, err
	}
	if n > 0 {
		b.Edits = make([]Edit, n)
	}
	for i := range b.Edits {
		if err := decodeEdit(d, &b.Edits[i]); err != nil {
			return nil, err
		}
	}
	return b, d.Done()
}

func decodeNodes(d *Decoder, depth int) ([]vdom.TemplateNode, error) {
	if depth > maxTemplateDepth {
		return nil, fmt.Errorf("protocol: template nested deeper than %d", maxTemplateDepth)
	}
	n, err := d.ReadCollectionCount()
	if err != nil || n == 0 {
		return nil, err
	}
	nodes := make([]vdom.TemplateNode, n)
	for i := range nodes {
		node := &nodes[i]
		kind, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		node.Kind = vdom.TemplateKind(kind)
		switch node.Kind {
		case vdom.TemplateElement:
			if node.Tag, err = d.ReadString(); err != nil {
				return nil, err
			}
			if node.Namespace, err = d.ReadString(); err != nil {
				return nil, err
			}
			if node.Attrs, err = decodeAttrs(d); err != nil {
				return nil, err
			}
			if node.Children, err = decodeNodes(d, depth+1); err != nil {
				return nil, err
			}
		case vdom.TemplateText:
			if node.Text, err = d.ReadString(); err != nil {
				return nil, err
			}
		case vdom.TemplateDynamic:
			if node.Slot, err = readInt(d); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("protocol: unknown template node kind %d", kind)
		}
	}
	return nodes, nil
}

func decodeAttrs(d *Decoder) ([]vdom.TemplateAttr, error) {
	n, err := d.ReadCollectionCount()
	if err != nil || n == 0 {
		return nil, err
	}
	attrs := make([]vdom.TemplateAttr, n)
	for i := range attrs {
		a := &attrs[i]
		if a.Dynamic, err = d.ReadBool(); err != nil {
			return nil, err
		}
		if a.Dynamic {
			if a.Slot, err = readInt(d); err != nil {
				return nil, err
			}
			continue
		}
		if a.Name, err = d.ReadString(); err != nil {
			return nil, err
		}
		if a.Value, err = d.ReadString(); err != nil {
			return nil, err
		}
		if a.Namespace, err = d.ReadString(); err != nil {
			return nil, err
		}
	}
	return attrs, nil
}

func readInt(d *Decoder) (int, error) {
	v, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if v > MaxCollectionCount {
		return 0, ErrCollectionTooLarge
	}
	return int(v), nil
}

func readID(d *Decoder) (vdom.ElementID, error) {
	v, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(^uint32(0)) {
		return 0, fmt.Errorf("protocol: element id %d out of range", v)
	}
	return vdom.ElementID(v), nil
}

func decodeEdit(d *Decoder, ed *Edit) error {
	op, err := d.ReadByte()
	if err != nil {
		return err
	}
	ed.Op = vdom.MutationOp(op)
	switch ed.Op {
	case vdom.OpAppendChildren, vdom.OpReplaceNodeWith, vdom.OpInsertNodesAfter, vdom.OpInsertNodesBefore:
		if ed.ID, err = readID(d); err != nil {
			return err
		}
		ed.M, err = readInt(d)
	case vdom.OpAssignNodeID:
		if ed.Path, err = d.ReadLenBytes(); err != nil {
			return err
		}
		ed.ID, err = readID(d)
	case vdom.OpCreatePlaceholder, vdom.OpRemoveNode, vdom.OpPushRoot:
		ed.ID, err = readID(d)
	case vdom.OpCreateTextNode, vdom.OpSetNodeText:
		if ed.Text, err = d.ReadString(); err != nil {
			return err
		}
		ed.ID, err = readID(d)
	case vdom.OpHydrateText:
		if ed.Path, err = d.ReadLenBytes(); err != nil {
			return err
		}
		if ed.Text, err = d.ReadString(); err != nil {
			return err
		}
		ed.ID, err = readID(d)
	case vdom.OpLoadTemplate:
		if ed.Template, err = d.ReadUint64(); err != nil {
			return err
		}
		if ed.Index, err = readInt(d); err != nil {
			return err
		}
		ed.ID, err = readID(d)
	case vdom.OpReplacePlaceholder:
		if ed.Path, err = d.ReadLenBytes(); err != nil {
			return err
		}
		ed.M, err = readInt(d)
	case vdom.OpSetAttribute:
		if ed.Name, err = d.ReadString(); err != nil {
			return err
		}
		if ed.Namespace, err = d.ReadString(); err != nil {
			return err
		}
		if ed.Value, err = decodeValue(d); err != nil {
			return err
		}
		ed.ID, err = readID(d)
	case vdom.OpCreateEventListener, vdom.OpRemoveEventListener:
		if ed.Name, err = d.ReadString(); err != nil {
			return err
		}
		ed.ID, err = readID(d)
	case vdom.OpPopRoot:
	default:
		return vangoerrors.New("E061").WithDetail(fmt.Sprintf("opcode 0x%02x", op))
	}
	return err
}

func decodeValue(d *Decoder) (*Value, error) {
	kind, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	v := &Value{Kind: vdom.AttrKind(kind)}
	switch v.Kind {
	case vdom.AttrNone:
	case vdom.AttrText:
		v.Text, err = d.ReadString()
	case vdom.AttrFloat:
		v.Float, err = d.ReadFloat64()
	case vdom.AttrInt:
		v.Int, err = d.ReadSvarint()
	case vdom.AttrBool:
		v.Bool, err = d.ReadBool()
	default:
		return nil, fmt.Errorf("protocol: attribute kind %d cannot cross the wire", kind)
	}
	return v, err
}

func (binaryCodec) EncodeEvent(ev *Event) ([]byte, error) {
	e := NewEncoderWithCap(16 + len(ev.Name) + len(ev.Data))
	e.WriteUvarint(ev.Seq)
	e.WriteUvarint(uint64(ev.ID))
	e.WriteString(ev.Name)
	e.WriteLenBytes(ev.Data)
	return e.Bytes(), nil
}

func (binaryCodec) DecodeEvent(data []byte) (*Event, error) {
	d := NewDecoder(data)
	ev := &Event{}
	var err error
	if ev.Seq, err = d.ReadUvarint(); err != nil {
		return nil, malformed(err)
	}
	if ev.ID, err = readID(d); err != nil {
		return nil, malformed(err)
	}
	if ev.Name, err = d.ReadString(); err != nil {
		return nil, malformed(err)
	}
	if ev.Data, err = d.ReadLenBytes(); err != nil {
		return nil, malformed(err)
	}
	if err := d.Done(); err != nil {
		return nil, malformed(err)
	}
	return ev, nil
}
