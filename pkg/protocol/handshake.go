package protocol

// HandshakeStatus represents the result of a handshake.
type HandshakeStatus uint8

const (
	HandshakeOK               HandshakeStatus = 0x00
	HandshakeVersionMismatch  HandshakeStatus = 0x01
	HandshakeUnsupportedCodec HandshakeStatus = 0x02
	HandshakeServerBusy       HandshakeStatus = 0x03
	HandshakeInvalidFormat    HandshakeStatus = 0x04 // Malformed handshake message
	HandshakeInternalError    HandshakeStatus = 0x05 // Server error
)

// String returns the string representation of the handshake status.
func (hs HandshakeStatus) String() string {
	switch hs {
	case HandshakeOK:
		return "OK"
	case HandshakeVersionMismatch:
		return "VersionMismatch"
	case HandshakeUnsupportedCodec:
		return "UnsupportedCodec"
	case HandshakeServerBusy:
		return "ServerBusy"
	case HandshakeInvalidFormat:
		return "InvalidFormat"
	case HandshakeInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// ProtocolVersion represents a protocol version as major.minor.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the current protocol version.
var CurrentVersion = ProtocolVersion{Major: 3, Minor: 0}

// Compatible reports whether a peer speaking v can talk to this build.
func (v ProtocolVersion) Compatible() bool {
	return v.Major == CurrentVersion.Major
}

// ClientHello is the first frame a renderer sends. Handshake frames always use
// the binary layout regardless of the codec being negotiated.
type ClientHello struct {
	Version ProtocolVersion
	Codec   string // requested codec, empty for binary
}

// ServerHello is the host's answer to ClientHello.
type ServerHello struct {
	Status    HandshakeStatus
	Version   ProtocolVersion
	Codec     string // codec used for the rest of the session
	SessionID string
}

// EncodeClientHello encodes a ClientHello to bytes.
func EncodeClientHello(ch *ClientHello) []byte {
	e := NewEncoder()
	e.WriteByte(ch.Version.Major)
	e.WriteByte(ch.Version.Minor)
	e.WriteString(ch.Codec)
	return e.Bytes()
}

// DecodeClientHello decodes a ClientHello from bytes.
func DecodeClientHello(data []byte) (*ClientHello, error) {
	d := NewDecoder(data)
	ch := &ClientHello{}
	var err error

	if ch.Version.Major, err = d.ReadByte(); err != nil {
		return nil, malformed(err)
	}
	if ch.Version.Minor, err = d.ReadByte(); err != nil {
		return nil, malformed(err)
	}
	if ch.Codec, err = d.ReadString(); err != nil {
		return nil, malformed(err)
	}
	return ch, nil
}

// EncodeServerHello encodes a ServerHello to bytes.
func EncodeServerHello(sh *ServerHello) []byte {
	e := NewEncoder()
	e.WriteByte(byte(sh.Status))
	e.WriteByte(sh.Version.Major)
	e.WriteByte(sh.Version.Minor)
	e.WriteString(sh.Codec)
	e.WriteString(sh.SessionID)
	return e.Bytes()
}

// DecodeServerHello decodes a ServerHello from bytes.
func DecodeServerHello(data []byte) (*ServerHello, error) {
	d := NewDecoder(data)
	sh := &ServerHello{}

	status, err := d.ReadByte()
	if err != nil {
		return nil, malformed(err)
	}
	sh.Status = HandshakeStatus(status)
	if sh.Version.Major, err = d.ReadByte(); err != nil {
		return nil, malformed(err)
	}
	if sh.Version.Minor, err = d.ReadByte(); err != nil {
		return nil, malformed(err)
	}
	if sh.Codec, err = d.ReadString(); err != nil {
		return nil, malformed(err)
	}
	if sh.SessionID, err = d.ReadString(); err != nil {
		return nil, malformed(err)
	}
	return sh, nil
}

// NewClientHello creates a ClientHello for the current version.
func NewClientHello(codec string) *ClientHello {
	return &ClientHello{Version: CurrentVersion, Codec: codec}
}

// NewServerHello creates a successful ServerHello.
func NewServerHello(sessionID, codec string) *ServerHello {
	return &ServerHello{
		Status:    HandshakeOK,
		Version:   CurrentVersion,
		Codec:     codec,
		SessionID: sessionID,
	}
}

// NewServerHelloError creates a ServerHello with an error status.
func NewServerHelloError(status HandshakeStatus) *ServerHello {
	return &ServerHello{Status: status, Version: CurrentVersion}
}
