package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

func TestCodecByName(t *testing.T) {
	tests := []struct {
		name string
		want string
		code string
	}{
		{"", CodecBinary, ""},
		{"binary", CodecBinary, ""},
		{"cbor", CodecCBOR, ""},
		{"msgpack", "", "E063"},
	}
	for _, tt := range tests {
		c, err := CodecByName(tt.name)
		if code := vangoerrors.Code(err); code != tt.code {
			t.Errorf("CodecByName(%q) error = %v, want code %q", tt.name, err, tt.code)
			continue
		}
		if err == nil && c.Name() != tt.want {
			t.Errorf("CodecByName(%q).Name() = %q, want %q", tt.name, c.Name(), tt.want)
		}
	}
	if diff := cmp.Diff([]string{"binary", "cbor"}, CodecNames()); diff != "" {
		t.Errorf("CodecNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestEventCodecs(t *testing.T) {
	events := []*Event{
		{Seq: 1, ID: 4, Name: "click"},
		{Seq: 2, ID: 9, Name: "input", Data: []byte(`{"value":"héllo"}`)},
		{Seq: 1 << 40, ID: 1<<32 - 1, Name: "scroll", Data: []byte(`[1,2]`)},
	}
	for _, codec := range []Codec{Binary, CBOR} {
		t.Run(codec.Name(), func(t *testing.T) {
			for _, want := range events {
				data, err := codec.EncodeEvent(want)
				if err != nil {
					t.Fatalf("EncodeEvent() error = %v", err)
				}
				got, err := codec.DecodeEvent(data)
				if err != nil {
					t.Fatalf("DecodeEvent() error = %v", err)
				}
				if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
					t.Errorf("event mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestEventPayload(t *testing.T) {
	tests := []struct {
		name string
		data string
		want any
		code string
	}{
		{name: "empty", data: "", want: nil},
		{name: "object", data: `{"value":"abc"}`, want: map[string]any{"value": "abc"}},
		{name: "number", data: `12.5`, want: 12.5},
		{name: "invalid", data: `{"value"`, code: "E060"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &Event{Name: "input", Data: []byte(tt.data)}
			got, err := ev.Payload()
			if code := vangoerrors.Code(err); code != tt.code {
				t.Fatalf("Payload() error = %v, want code %q", err, tt.code)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Payload() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBinaryDecodeErrors(t *testing.T) {
	valid, err := Binary.EncodeBatch(&Batch{
		Seq: 3,
		Templates: []TemplateDef{{
			ID:    1,
			Name:  "t",
			Roots: []vdom.TemplateNode{vdom.El("p", vdom.DynAttr(0), vdom.Dyn(0))},
		}},
		Edits: []Edit{
			{Op: vdom.OpLoadTemplate, Template: 1, ID: 1},
			{Op: vdom.OpSetAttribute, Name: "title", Value: &Value{Kind: vdom.AttrText, Text: "x"}, ID: 1},
			{Op: vdom.OpAppendChildren, ID: 0, M: 1},
		},
	})
	if err != nil {
		t.Fatalf("EncodeBatch() error = %v", err)
	}

	tests := []struct {
		name string
		data []byte
		code string
	}{
		{"empty", nil, "E060"},
		{"truncated", valid[:len(valid)-1], "E060"},
		{"trailing", append(append([]byte{}, valid...), 0x00), "E060"},
		{"unknown opcode", []byte{0x01, 0x00, 0x01, 0x7F}, "E061"},
		{"huge count", []byte{0x01, 0xFF, 0xFF, 0xFF, 0x0F}, "E060"},
		{"listener value", []byte{0x01, 0x00, 0x01, byte(vdom.OpSetAttribute), 0x01, 'n', 0x00, byte(vdom.AttrListener), 0x01}, "E060"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Binary.DecodeBatch(tt.data)
			if code := vangoerrors.Code(err); code != tt.code {
				t.Errorf("DecodeBatch() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestEncodeUnknownOpcode(t *testing.T) {
	b := &Batch{Seq: 1, Edits: []Edit{{Op: 0x40}}}
	for _, codec := range []Codec{Binary, CBOR} {
		if _, err := codec.EncodeBatch(b); vangoerrors.Code(err) != "E061" {
			t.Errorf("%s EncodeBatch() error = %v, want E061", codec.Name(), err)
		}
	}
}

func TestCBORDecodeGarbage(t *testing.T) {
	if _, err := CBOR.DecodeBatch([]byte{0xFF, 0x00}); vangoerrors.Code(err) != "E060" {
		t.Errorf("DecodeBatch() error = %v, want E060", err)
	}
	if _, err := CBOR.DecodeEvent([]byte{0x5F}); vangoerrors.Code(err) != "E060" {
		t.Errorf("DecodeEvent() error = %v, want E060", err)
	}
}

func TestTemplateCacheSendsOnce(t *testing.T) {
	a := vdom.NewTemplate("cache-a", vdom.El("p", vdom.Dyn(0)))
	b := vdom.NewTemplate("cache-b", vdom.El("span"))

	var m vdom.Mutations
	m.LoadTemplate(a, 0, 1)
	m.LoadTemplate(a, 0, 2)
	m.LoadTemplate(b, 0, 3)

	c := NewTemplateCache()
	first := c.Batch(1, &m)
	if len(first.Templates) != 2 || first.Templates[0].Name != "cache-a" || first.Templates[1].Name != "cache-b" {
		t.Errorf("first batch templates = %+v, want cache-a then cache-b", first.Templates)
	}
	if len(first.Edits) != 3 || first.Edits[1].Template != a.Fingerprint() {
		t.Errorf("first batch edits = %+v", first.Edits)
	}

	second := c.Batch(2, &m)
	if len(second.Templates) != 0 {
		t.Errorf("second batch resent %d templates", len(second.Templates))
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}
