package server

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/protocol"
)

// readLoop continuously reads frames from the WebSocket connection. It
// answers control frames itself and queues events for the host loop. It
// returns when the connection fails or the client says goodbye.
func (s *Session) readLoop(ctx context.Context) error {
	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
				s.wsError("read")
			}
			return err
		}
		s.touch(len(msg))

		frame, err := protocol.Unpack(msg)
		if err != nil {
			s.logger.Warn("frame decode error", "error", err)
			s.wsError("protocol")
			_ = s.writeError(err, false)
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			if err := s.handleEventFrame(ctx, frame.Payload); err != nil {
				return err
			}

		case protocol.FrameControl:
			if err := s.handleControlFrame(frame.Payload); err != nil {
				return err
			}

		case protocol.FrameAck:
			s.handleAckFrame(frame.Payload)

		default:
			s.logger.Warn("unexpected frame type", "type", frame.Type)
			_ = s.writeError(vangoerrors.New("E065").WithDetail(frame.Type.String()), false)
		}
	}
}

// handleEventFrame decodes an event and queues it. A full queue drops the
// event and tells the client.
func (s *Session) handleEventFrame(ctx context.Context, payload []byte) error {
	ev, err := s.codec.DecodeEvent(payload)
	if err != nil {
		s.logger.Warn("event decode error", "error", err)
		s.wsError("protocol")
		return s.writeError(err, false)
	}

	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.logger.Warn("event queue full", "event", ev.Name, "seq", ev.Seq)
		return s.writeError(vangoerrors.New("E081").WithDetail(ev.Name), false)
	}
}

// handleControlFrame handles ping, pong and close.
func (s *Session) handleControlFrame(payload []byte) error {
	c, err := protocol.DecodeControl(payload)
	if err != nil {
		s.logger.Warn("control decode error", "error", err)
		s.wsError("protocol")
		return nil
	}

	switch c.Type {
	case protocol.ControlPing:
		return s.writeControl(protocol.NewPong(c.Timestamp))

	case protocol.ControlPong:
		rtt := time.Since(time.UnixMilli(int64(c.Timestamp)))
		s.logger.Debug("received pong", "rtt", rtt)

	case protocol.ControlClose:
		s.logger.Info("client closing", "reason", c.Reason, "message", c.Message)
		return ErrClientClosed
	}
	return nil
}

func (s *Session) handleAckFrame(payload []byte) {
	ack, err := protocol.DecodeAck(payload)
	if err != nil {
		s.logger.Warn("ack decode error", "error", err)
		return
	}
	for {
		cur := s.acked.Load()
		if ack.LastSeq <= cur || s.acked.CompareAndSwap(cur, ack.LastSeq) {
			return
		}
	}
}

// write sends one encoded frame. Writes from the read and host loops are
// serialized.
func (s *Session) write(data []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.conn == nil {
		return ErrNoConnection
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.wsError("write")
		return err
	}
	s.sent.Add(int64(len(data)))
	return nil
}

func (s *Session) writeControl(c *protocol.Control) error {
	f := &protocol.Frame{Type: protocol.FrameControl, Payload: protocol.EncodeControl(c)}
	return s.write(f.Encode())
}

func (s *Session) writeError(err error, fatal bool) error {
	f := &protocol.Frame{Type: protocol.FrameError, Payload: protocol.EncodeErrorMessage(protocol.ErrorMessageOf(err, fatal))}
	return s.write(f.Encode())
}

func (s *Session) wsError(kind string) {
	if s.metrics != nil {
		s.metrics.WebSocketError(kind)
	}
}
