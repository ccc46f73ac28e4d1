package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
)

func TestFrameHeader(t *testing.T) {
	f := &Frame{Type: FrameMutations, Flags: FlagCompressed, Payload: []byte{0xAA, 0xBB}}
	got := f.Encode()
	want := []byte{0x02, 0x01, 0x00, 0x00, 0x00, 0x02, 0xAA, 0xBB}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = %x, want %x", got, want)
	}

	back, err := DecodeFrame(got)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	if back.Type != FrameMutations || !back.Flags.Has(FlagCompressed) || !bytes.Equal(back.Payload, f.Payload) {
		t.Errorf("DecodeFrame() = %+v, want %+v", back, f)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{0x01, 0x00}, io.ErrUnexpectedEOF},
		{"short payload", []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x05, 0x01}, io.ErrUnexpectedEOF},
		{"trailing bytes", []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01}, io.ErrUnexpectedEOF},
		{"unknown type", []byte{0x09, 0x00, 0x00, 0x00, 0x00, 0x00}, ErrInvalidFrameType},
		{"too large", []byte{0x02, 0x00, 0xFF, 0xFF, 0xFF, 0xFF}, ErrFrameTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeFrame() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	frames := []*Frame{
		{Type: FrameHandshake, Payload: EncodeClientHello(NewClientHello(CodecCBOR))},
		{Type: FrameAck, Payload: EncodeAck(&Ack{LastSeq: 300})},
		{Type: FrameControl, Payload: EncodeControl(NewPing(7))},
	}
	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame() error = %v", err)
		}
	}
	for _, want := range frames {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		if got.Type != want.Type || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("ReadFrame() = %v %x, want %v %x", got.Type, got.Payload, want.Type, want.Payload)
		}
	}
	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("ReadFrame() at end error = %v, want io.EOF", err)
	}
}

func TestPackCompression(t *testing.T) {
	repetitive := []byte(strings.Repeat("<li>item</li>", 200))
	tests := []struct {
		name       string
		payload    []byte
		threshold  int
		compressed bool
	}{
		{"disabled", repetitive, 0, false},
		{"below threshold", repetitive, len(repetitive) + 1, false},
		{"at threshold", repetitive, len(repetitive), true},
		{"incompressible", []byte{0x01, 0x02, 0x03}, 1, false},
		{"empty", nil, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := Pack(FrameMutations, tt.payload, tt.threshold)
			raw, err := DecodeFrame(data)
			if err != nil {
				t.Fatalf("DecodeFrame() error = %v", err)
			}
			if got := raw.Flags.Has(FlagCompressed); got != tt.compressed {
				t.Errorf("compressed = %v, want %v", got, tt.compressed)
			}
			if tt.compressed && len(raw.Payload) >= len(tt.payload) {
				t.Errorf("compressed payload is %d bytes, input %d", len(raw.Payload), len(tt.payload))
			}

			f, err := Unpack(data)
			if err != nil {
				t.Fatalf("Unpack() error = %v", err)
			}
			if !bytes.Equal(f.Payload, tt.payload) {
				t.Errorf("Unpack() payload differs from input")
			}
			if f.Flags.Has(FlagCompressed) {
				t.Error("Unpack() left FlagCompressed set")
			}
		})
	}
}

func TestUnpackCorrupt(t *testing.T) {
	f := &Frame{Type: FrameMutations, Flags: FlagCompressed, Payload: []byte("not zstd")}
	_, err := Unpack(f.Encode())
	if code := vangoerrors.Code(err); code != "E060" {
		t.Errorf("Unpack() error = %v, want E060", err)
	}
}

func TestHandshakeMessages(t *testing.T) {
	ch, err := DecodeClientHello(EncodeClientHello(NewClientHello(CodecCBOR)))
	if err != nil {
		t.Fatalf("DecodeClientHello() error = %v", err)
	}
	if ch.Version != CurrentVersion || ch.Codec != CodecCBOR {
		t.Errorf("ClientHello = %+v", ch)
	}
	if !ch.Version.Compatible() {
		t.Error("Compatible() = false for the current version")
	}
	if (ProtocolVersion{Major: CurrentVersion.Major + 1}).Compatible() {
		t.Error("Compatible() = true for the next major version")
	}

	sh, err := DecodeServerHello(EncodeServerHello(NewServerHello("s-1", CodecBinary)))
	if err != nil {
		t.Fatalf("DecodeServerHello() error = %v", err)
	}
	if sh.Status != HandshakeOK || sh.SessionID != "s-1" || sh.Codec != CodecBinary {
		t.Errorf("ServerHello = %+v", sh)
	}

	if _, err := DecodeServerHello([]byte{0x00, 0x03}); vangoerrors.Code(err) != "E060" {
		t.Errorf("DecodeServerHello(truncated) error = %v, want E060", err)
	}
}

func TestControlMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  *Control
	}{
		{"ping", NewPing(1700000000000)},
		{"pong", NewPong(1700000000001)},
		{"close", NewClose(CloseServerShutdown, "bye")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeControl(EncodeControl(tt.msg))
			if err != nil {
				t.Fatalf("DecodeControl() error = %v", err)
			}
			if *got != *tt.msg {
				t.Errorf("DecodeControl() = %+v, want %+v", got, tt.msg)
			}
		})
	}
	if _, err := DecodeControl([]byte{0x7F}); vangoerrors.Code(err) != "E060" {
		t.Errorf("DecodeControl(unknown) error = %v, want E060", err)
	}
}

func TestErrorMessage(t *testing.T) {
	em := ErrorMessageOf(vangoerrors.New("E062"), true)
	got, err := DecodeErrorMessage(EncodeErrorMessage(em))
	if err != nil {
		t.Fatalf("DecodeErrorMessage() error = %v", err)
	}
	if *got != *em {
		t.Errorf("DecodeErrorMessage() = %+v, want %+v", got, em)
	}
	if got.Code != "E062" || !strings.HasPrefix(got.Error(), "fatal: ") {
		t.Errorf("ErrorMessage = %+v, Error() = %q", got, got.Error())
	}
}
