package protocol

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

// CBOR encodes batches and events as deterministic CBOR (RFC 8949 core
// deterministic encoding). Struct fields use small integer keys.
var CBOR Codec = cborCodec{}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("protocol: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels:  maxTemplateDepth*2 + 8,
		MaxArrayElements: MaxCollectionCount,
		MaxMapPairs:      MaxCollectionCount,
	}.DecMode()
	if err != nil {
		panic("protocol: CBOR decoder initialization failed: " + err.Error())
	}
}

type cborCodec struct{}

func (cborCodec) Name() string { return CodecCBOR }

func (cborCodec) EncodeBatch(b *Batch) ([]byte, error) {
	for i := range b.Edits {
		if op := b.Edits[i].Op; op < vdom.OpAppendChildren || op > vdom.OpPopRoot {
			return nil, vangoerrors.New("E061")
		}
	}
	return encMode.Marshal(b)
}

func (cborCodec) DecodeBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := decMode.Unmarshal(data, &b); err != nil {
		return nil, malformed(err)
	}
	return &b, nil
}

func (cborCodec) EncodeEvent(ev *Event) ([]byte, error) {
	return encMode.Marshal(ev)
}

func (cborCodec) DecodeEvent(data []byte) (*Event, error) {
	var ev Event
	if err := decMode.Unmarshal(data, &ev); err != nil {
		return nil, malformed(err)
	}
	return &ev, nil
}
