// Package client is a Go renderer for liveview sessions. It performs the
// handshake, replays mutation batches into a render.Document and sends
// events back, which makes it usable for load generation and end-to-end
// tests without a browser.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/protocol"
	"github.com/vango-dev/vango-core/pkg/render"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

var (
	// ErrClosed is returned once the server closed the session.
	ErrClosed = errors.New("client: session closed by server")

	// ErrNotFound is returned by Find when no element matches.
	ErrNotFound = errors.New("client: element not found")
)

// HandshakeError is returned by Dial when the server rejects the hello.
type HandshakeError struct {
	Status protocol.HandshakeStatus
}

func (e *HandshakeError) Error() string {
	return "client: handshake rejected: " + e.Status.String()
}

// Stats counts traffic on one connection.
type Stats struct {
	Batches    uint64
	Edits      uint64
	BytesIn    uint64
	BytesOut   uint64
	Events     uint64
	ErrorsSeen uint64
}

// Config configures Dial.
type Config struct {
	// Codec requests a codec. Empty lets the server choose.
	Codec string

	// Header is sent with the upgrade request.
	Header http.Header

	// OnError receives non-fatal error frames.
	OnError func(*protocol.ErrorMessage)

	// OnEdit sees every replayed edit, after it was applied.
	OnEdit func(protocol.Edit)

	// AutoAck acknowledges every batch after applying it.
	AutoAck bool
}

// Option configures a Client.
type Option func(*Config)

// WithCodec requests a wire codec.
func WithCodec(name string) Option { return func(c *Config) { c.Codec = name } }

// WithHeader sets the upgrade request headers.
func WithHeader(h http.Header) Option { return func(c *Config) { c.Header = h } }

// WithErrorHandler sets the handler for non-fatal error frames.
func WithErrorHandler(fn func(*protocol.ErrorMessage)) Option {
	return func(c *Config) { c.OnError = fn }
}

// WithEditHandler observes replayed edits.
func WithEditHandler(fn func(protocol.Edit)) Option {
	return func(c *Config) { c.OnEdit = fn }
}

// WithAutoAck acknowledges batches as they are applied.
func WithAutoAck() Option { return func(c *Config) { c.AutoAck = true } }

// Client is one renderer connection. Next and the Send methods may be called
// from different goroutines; Next itself must not be called concurrently.
type Client struct {
	SessionID string

	conn     *websocket.Conn
	codec    protocol.Codec
	config   Config
	replayer *protocol.Replayer
	doc      *render.Document

	writeMu sync.Mutex
	seq     uint64

	statsMu sync.Mutex
	stats   Stats
}

// Dial connects to a liveview endpoint such as ws://localhost:8080/_vango/live
// and performs the handshake.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("client: dial: %w", err)
	}
	c := &Client{
		conn:     conn,
		config:   cfg,
		replayer: protocol.NewReplayer(),
		doc:      render.NewDocument(),
	}
	if err := c.handshake(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) handshake(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(deadline)
		defer c.conn.SetReadDeadline(time.Time{})
	}
	hello := protocol.EncodeClientHello(protocol.NewClientHello(c.config.Codec))
	if err := c.writeFrame(protocol.FrameHandshake, hello); err != nil {
		return fmt.Errorf("client: handshake write: %w", err)
	}

	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("client: handshake read: %w", err)
	}
	frame, err := protocol.Unpack(msg)
	if err != nil {
		return err
	}
	if frame.Type != protocol.FrameHandshake {
		return vangoerrors.New("E065").WithDetail("expected Handshake, got " + frame.Type.String())
	}
	sh, err := protocol.DecodeServerHello(frame.Payload)
	if err != nil {
		return err
	}
	if sh.Status != protocol.HandshakeOK {
		return &HandshakeError{Status: sh.Status}
	}
	codec, err := protocol.CodecByName(sh.Codec)
	if err != nil {
		return err
	}
	c.codec = codec
	c.SessionID = sh.SessionID
	return nil
}

// Codec returns the negotiated codec.
func (c *Client) Codec() protocol.Codec { return c.codec }

// Document returns the replayed document. It is only safe to read between
// calls to Next.
func (c *Client) Document() *render.Document { return c.doc }

// HTML renders the replayed document.
func (c *Client) HTML() string { return render.HTML(c.doc.Root()) }

// Stats returns a snapshot of the traffic counters.
func (c *Client) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *Client) count(fn func(*Stats)) {
	c.statsMu.Lock()
	fn(&c.stats)
	c.statsMu.Unlock()
}

// LastSeq returns the sequence number of the last applied batch.
func (c *Client) LastSeq() uint64 { return c.replayer.LastSeq() }

// Next reads frames until a mutation batch arrives, applies it and returns
// it. Pings are answered on the way. A Close frame from the server yields
// ErrClosed and a fatal error frame yields the *protocol.ErrorMessage.
func (c *Client) Next(ctx context.Context) (*protocol.Batch, error) {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(deadline)
		defer c.conn.SetReadDeadline(time.Time{})
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrClosed
			}
			return nil, err
		}
		c.count(func(s *Stats) { s.BytesIn += uint64(len(msg)) })

		frame, err := protocol.Unpack(msg)
		if err != nil {
			return nil, err
		}

		switch frame.Type {
		case protocol.FrameMutations:
			return c.apply(frame.Payload)

		case protocol.FrameControl:
			ctl, err := protocol.DecodeControl(frame.Payload)
			if err != nil {
				return nil, err
			}
			switch ctl.Type {
			case protocol.ControlPing:
				if err := c.writeControl(protocol.NewPong(ctl.Timestamp)); err != nil {
					return nil, err
				}
			case protocol.ControlClose:
				return nil, fmt.Errorf("%w: %s %s", ErrClosed, ctl.Reason, ctl.Message)
			}

		case protocol.FrameError:
			em, err := protocol.DecodeErrorMessage(frame.Payload)
			if err != nil {
				return nil, err
			}
			c.count(func(s *Stats) { s.ErrorsSeen++ })
			if em.Fatal {
				return nil, em
			}
			if c.config.OnError != nil {
				c.config.OnError(em)
			}
		}
	}
}

func (c *Client) apply(payload []byte) (*protocol.Batch, error) {
	b, err := c.codec.DecodeBatch(payload)
	if err != nil {
		return nil, err
	}
	if err := c.replayer.Apply(b, c.doc); err != nil {
		return nil, err
	}
	if err := c.doc.Err(); err != nil {
		return nil, err
	}
	c.count(func(s *Stats) {
		s.Batches++
		s.Edits += uint64(len(b.Edits))
	})
	if c.config.OnEdit != nil {
		for _, e := range b.Edits {
			c.config.OnEdit(e)
		}
	}
	if c.config.AutoAck {
		if err := c.Ack(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// WaitFor applies batches until cond holds for the document.
func (c *Client) WaitFor(ctx context.Context, cond func(*render.Document) bool) error {
	for !cond(c.doc) {
		if _, err := c.Next(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the element id of the first node carrying attr=value.
func (c *Client) Find(attr, value string) (vdom.ElementID, error) {
	var found *render.Node
	c.doc.Root().Walk(func(n *render.Node) bool {
		if v, ok := n.Attr(attr); ok && v.String() == value {
			found = n
			return false
		}
		return true
	})
	if found == nil || found.ID == vdom.RootElement {
		return 0, fmt.Errorf("%w: %s=%q", ErrNotFound, attr, value)
	}
	return found.ID, nil
}

// Send sends an event. data is encoded as JSON; nil sends no payload.
func (c *Client) Send(name string, id vdom.ElementID, data any) error {
	var raw []byte
	if data != nil {
		var err error
		if raw, err = json.Marshal(data); err != nil {
			return fmt.Errorf("client: event payload: %w", err)
		}
	}

	c.writeMu.Lock()
	c.seq++
	ev := &protocol.Event{Seq: c.seq, ID: id, Name: name, Data: raw}
	c.writeMu.Unlock()

	payload, err := c.codec.EncodeEvent(ev)
	if err != nil {
		return err
	}
	if err := c.writeFrame(protocol.FrameEvent, payload); err != nil {
		return err
	}
	c.count(func(s *Stats) { s.Events++ })
	return nil
}

// Click sends a click to the element carrying attr=value.
func (c *Client) Click(attr, value string) error {
	id, err := c.Find(attr, value)
	if err != nil {
		return err
	}
	return c.Send("click", id, nil)
}

// Ack acknowledges every batch applied so far.
func (c *Client) Ack() error {
	return c.writeFrame(protocol.FrameAck, protocol.EncodeAck(&protocol.Ack{LastSeq: c.replayer.LastSeq()}))
}

// Ping sends a ping stamped with the current time.
func (c *Client) Ping() error {
	return c.writeControl(protocol.NewPing(uint64(time.Now().UnixMilli())))
}

// Close says goodbye and closes the connection.
func (c *Client) Close() error {
	_ = c.writeControl(protocol.NewClose(protocol.CloseNormal, "client closing"))
	return c.conn.Close()
}

func (c *Client) writeControl(ctl *protocol.Control) error {
	return c.writeFrame(protocol.FrameControl, protocol.EncodeControl(ctl))
}

func (c *Client) writeFrame(ft protocol.FrameType, payload []byte) error {
	f := &protocol.Frame{Type: ft, Payload: payload}
	data := f.Encode()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	c.count(func(s *Stats) { s.BytesOut += uint64(len(data)) })
	return nil
}
