package protocol

// Ack acknowledges every batch up to and including LastSeq. The host uses it
// to bound the number of unacknowledged batches in flight.
type Ack struct {
	LastSeq uint64
}

// EncodeAck encodes an Ack to bytes.
func EncodeAck(ack *Ack) []byte {
	e := NewEncoderWithCap(10)
	e.WriteUvarint(ack.LastSeq)
	return e.Bytes()
}

// DecodeAck decodes an Ack from bytes.
func DecodeAck(data []byte) (*Ack, error) {
	d := NewDecoder(data)
	lastSeq, err := d.ReadUvarint()
	if err != nil {
		return nil, malformed(err)
	}
	return &Ack{LastSeq: lastSeq}, nil
}
