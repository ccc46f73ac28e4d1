package protocol

import (
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 6

	// MaxPayloadSize is the largest payload a frame may carry.
	MaxPayloadSize = HardMaxAllocation
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameHandshake FrameType = 0x00 // Connection setup
	FrameEvent     FrameType = 0x01 // Renderer → host events
	FrameMutations FrameType = 0x02 // Host → renderer edit batches
	FrameControl   FrameType = 0x03 // Ping, pong, close
	FrameAck       FrameType = 0x04 // Batch acknowledgment
	FrameError     FrameType = 0x05 // Error message
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameHandshake:
		return "Handshake"
	case FrameEvent:
		return "Event"
	case FrameMutations:
		return "Mutations"
	case FrameControl:
		return "Control"
	case FrameAck:
		return "Ack"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// FrameFlags are optional flags for frame processing.
type FrameFlags uint8

const (
	FlagCompressed FrameFlags = 0x01 // Payload is zstd compressed
)

// Has returns true if the flags contain the specified flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is a protocol frame with header and payload.
//
// Wire format (6 byte header + variable payload):
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//	│                                                             │
//	│  Payload (variable length)                                  │
//	│                                                             │
//	└─────────────────────────────────────────────────────────────┘
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() []byte {
	e := NewEncoderWithCap(FrameHeaderSize + len(f.Payload))
	f.EncodeTo(e)
	return e.Bytes()
}

// EncodeTo encodes the frame using the provided encoder.
func (f *Frame) EncodeTo(e *Encoder) {
	e.WriteByte(byte(f.Type))
	e.WriteByte(byte(f.Flags))
	e.WriteUint32(uint32(len(f.Payload)))
	e.WriteBytes(f.Payload)
}

// DecodeFrame decodes a frame from bytes. The input must hold exactly one
// frame.
func DecodeFrame(data []byte) (*Frame, error) {
	d := NewDecoder(data)
	ft, flags, length, err := decodeHeader(d)
	if err != nil {
		return nil, err
	}
	if d.Remaining() != length {
		return nil, io.ErrUnexpectedEOF
	}
	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:])
	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

func decodeHeader(d *Decoder) (FrameType, FrameFlags, int, error) {
	ft, err := d.ReadByte()
	if err != nil {
		return 0, 0, 0, err
	}
	if FrameType(ft) > FrameError {
		return 0, 0, 0, ErrInvalidFrameType
	}
	flags, err := d.ReadByte()
	if err != nil {
		return 0, 0, 0, err
	}
	length, err := d.ReadUint32()
	if err != nil {
		return 0, 0, 0, err
	}
	if length > MaxPayloadSize {
		return 0, 0, 0, ErrFrameTooLarge
	}
	return FrameType(ft), FrameFlags(flags), int(length), nil
}

// ReadFrame reads a complete frame from an io.Reader.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	ft, flags, length, err := decodeHeader(NewDecoder(header))
	if err != nil {
		return nil, err
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}
	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

// WriteFrame writes a complete frame to an io.Writer.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}

// Pack frames payload as type ft. Payloads of at least threshold bytes are
// compressed when that makes them smaller; a threshold of zero or less
// disables compression.
func Pack(ft FrameType, payload []byte, threshold int) []byte {
	f := &Frame{Type: ft, Payload: payload}
	if threshold > 0 && len(payload) >= threshold {
		if z := compress(payload); len(z) < len(payload) {
			f.Flags |= FlagCompressed
			f.Payload = z
		}
	}
	return f.Encode()
}

// Unpack decodes a frame produced by Pack, inflating its payload if needed.
func Unpack(data []byte) (*Frame, error) {
	f, err := DecodeFrame(data)
	if err != nil {
		return nil, malformed(err)
	}
	if f.Flags.Has(FlagCompressed) {
		p, err := decompress(f.Payload)
		if err != nil {
			return nil, malformed(err)
		}
		f.Payload = p
		f.Flags &^= FlagCompressed
	}
	return f, nil
}
