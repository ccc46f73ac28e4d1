package protocol

import (
	"sort"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
)

// Codec serializes batches and events. Both ends of a session agree on one
// codec during the handshake.
type Codec interface {
	Name() string
	EncodeBatch(b *Batch) ([]byte, error)
	DecodeBatch(data []byte) (*Batch, error)
	EncodeEvent(ev *Event) ([]byte, error)
	DecodeEvent(data []byte) (*Event, error)
}

// Codec names.
const (
	CodecBinary = "binary"
	CodecCBOR   = "cbor"
)

var codecs = map[string]Codec{
	CodecBinary: Binary,
	CodecCBOR:   CBOR,
}

// CodecByName returns the codec registered under name. An empty name selects
// the binary codec.
func CodecByName(name string) (Codec, error) {
	if name == "" {
		return Binary, nil
	}
	c, ok := codecs[name]
	if !ok {
		return nil, vangoerrors.New("E063").WithDetail("codec " + name)
	}
	return c, nil
}

// CodecNames lists the available codecs in sorted order.
func CodecNames() []string {
	names := make([]string, 0, len(codecs))
	for n := range codecs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
