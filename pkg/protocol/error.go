package protocol

import (
	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
)

// ErrorMessage reports a failure to the peer. Code is a registered error code
// such as "E060", or empty when the error has none.
type ErrorMessage struct {
	Code    string
	Message string
	Fatal   bool // If true, the connection is closed after sending
}

// EncodeErrorMessage encodes an ErrorMessage to bytes.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteString(em.Code)
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage decodes an ErrorMessage from bytes.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	em := &ErrorMessage{}
	var err error
	if em.Code, err = d.ReadString(); err != nil {
		return nil, malformed(err)
	}
	if em.Message, err = d.ReadString(); err != nil {
		return nil, malformed(err)
	}
	if em.Fatal, err = d.ReadBool(); err != nil {
		return nil, malformed(err)
	}
	return em, nil
}

// ErrorMessageOf builds the message sent for err.
func ErrorMessageOf(err error, fatal bool) *ErrorMessage {
	return &ErrorMessage{Code: vangoerrors.Code(err), Message: err.Error(), Fatal: fatal}
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	msg := em.Message
	if em.Fatal {
		msg = "fatal: " + msg
	}
	return msg
}
