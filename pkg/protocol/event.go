package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vango-dev/vango-core/pkg/vdom"
)

// Event is a renderer-originated input event addressed to an element.
type Event struct {
	// Seq numbers events from 1 within a session; the host acknowledges them
	// in order.
	Seq  uint64         `cbor:"1,keyasint"`
	ID   vdom.ElementID `cbor:"2,keyasint"`
	Name string         `cbor:"3,keyasint"`

	// Data is the event payload as JSON, e.g. {"value":"abc"} for input.
	Data []byte `cbor:"4,keyasint,omitempty"`
}

// Payload decodes Data. Objects decode to map[string]any; empty data is nil.
func (e *Event) Payload() (any, error) {
	if len(e.Data) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return nil, malformed(fmt.Errorf("event %q payload: %w", e.Name, err))
	}
	return v, nil
}
