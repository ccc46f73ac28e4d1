package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/middleware"
	"github.com/vango-dev/vango-core/pkg/protocol"
	"github.com/vango-dev/vango-core/pkg/vango"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

// Session is one live connection: a websocket, the runtime behind it, and
// the per-connection protocol state.
//
// The runtime is only touched by the host loop. The read loop decodes frames
// and hands events over through a channel.
type Session struct {
	// Identity
	ID        string
	CreatedAt time.Time

	conn    *websocket.Conn
	rt      *vango.Runtime
	codec   protocol.Codec
	cache   *protocol.TemplateCache
	config  *SessionConfig
	logger  *slog.Logger
	metrics *middleware.Metrics

	events chan *protocol.Event

	// seq is the last batch sequence number sent. Host loop only.
	seq uint64

	acked      atomic.Uint64
	lastActive atomic.Int64
	received   atomic.Int64
	sent       atomic.Int64

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

func newSession(id string, conn *websocket.Conn, rt *vango.Runtime, codec protocol.Codec,
	config *SessionConfig, logger *slog.Logger, metrics *middleware.Metrics) *Session {
	now := time.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		conn:      conn,
		rt:        rt,
		codec:     codec,
		cache:     protocol.NewTemplateCache(),
		config:    config,
		logger:    logger,
		metrics:   metrics,
		events:    make(chan *protocol.Event, config.MaxEventQueue),
	}
	s.lastActive.Store(now.UnixNano())
	return s
}

// Run drives the session until the client disconnects, the runtime fails, or
// ctx is cancelled. It closes the connection and the runtime before
// returning. A normal disconnect returns nil.
func (s *Session) Run(ctx context.Context) error {
	defer s.rt.Close()
	defer s.Close()

	// The group context is not derived from ctx so that on shutdown the host
	// loop can still send its Close frame before the connection goes away.
	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.hostLoop(ctx, gctx) })
	g.Go(func() error {
		// Unblocks the read loop once either loop has finished.
		<-gctx.Done()
		s.Close()
		return nil
	})

	err := g.Wait()
	switch {
	case err == nil,
		errors.Is(err, ErrClientClosed),
		errors.Is(err, ErrSessionClosed),
		errors.Is(err, context.Canceled),
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		s.logger.Info("session ended",
			"duration", time.Since(s.CreatedAt),
			"batches", s.seq,
			"bytes_sent", s.sent.Load(),
			"bytes_received", s.received.Load())
		return nil
	}
	s.logger.Error("session failed", "error", err)
	return NewSessionError(s.ID, "run", err)
}

// hostLoop owns the runtime. It sends the initial build, then renders after
// every batch of events and every task completion.
func (s *Session) hostLoop(parent, ctx context.Context) error {
	var m vdom.Mutations
	err := s.rt.Rebuild(&m)
	if ferr := s.flush(&m); ferr != nil {
		return ferr
	}
	if err != nil {
		return s.fail(err)
	}

	var heartbeat <-chan time.Time
	if s.config.HeartbeatInterval > 0 {
		ticker := time.NewTicker(s.config.HeartbeatInterval)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case <-parent.Done():
			_ = s.writeControl(protocol.NewClose(protocol.CloseServerShutdown, "server shutting down"))
			return parent.Err()

		case <-ctx.Done():
			return ctx.Err()

		case ev := <-s.events:
			s.dispatch(ev)
			s.drainEvents()

		case <-s.rt.Wake():

		case now := <-heartbeat:
			if err := s.writeControl(protocol.NewPing(uint64(now.UnixMilli()))); err != nil {
				return err
			}
			continue
		}

		if err := s.render(); err != nil {
			return err
		}
	}
}

// drainEvents dispatches everything already queued so a burst of input
// produces one batch.
func (s *Session) drainEvents() {
	for {
		select {
		case ev := <-s.events:
			s.dispatch(ev)
		default:
			return
		}
	}
}

func (s *Session) dispatch(ev *protocol.Event) {
	data, err := ev.Payload()
	if err != nil {
		s.logger.Warn("event payload rejected", "event", ev.Name, "error", err)
		_ = s.writeError(err, false)
		return
	}
	res := s.rt.Dispatch(ev.ID, ev.Name, data)
	s.logger.Debug("event dispatched",
		"event", ev.Name,
		"id", uint32(ev.ID),
		"seq", ev.Seq,
		"listeners", res.Listeners)
}

func (s *Session) render() error {
	var m vdom.Mutations
	err := s.rt.RenderImmediate(&m)
	if ferr := s.flush(&m); ferr != nil {
		return ferr
	}
	if err != nil {
		return s.fail(err)
	}
	return nil
}

// flush sends m as the next batch. Empty cycles send nothing.
func (s *Session) flush(m *vdom.Mutations) error {
	if len(m.Edits) == 0 {
		return nil
	}
	b := s.cache.Batch(s.seq+1, m)
	payload, err := s.codec.EncodeBatch(b)
	if err != nil {
		return err
	}
	data := protocol.Pack(protocol.FrameMutations, payload, s.config.CompressThreshold)
	if err := s.write(data); err != nil {
		return err
	}
	s.seq = b.Seq
	if s.metrics != nil {
		s.metrics.BatchSent(len(data))
	}
	return nil
}

// fail reports a fatal runtime error to the client and ends the session.
func (s *Session) fail(err error) error {
	s.logger.Error("runtime failed", "error", err, "code", vangoerrors.Code(err))
	_ = s.writeError(err, true)
	_ = s.writeControl(protocol.NewClose(protocol.CloseError, err.Error()))
	return err
}

// Close closes the connection. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

// LastActive returns when the client last sent a frame.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// LastAcked returns the highest batch sequence number the client acknowledged.
func (s *Session) LastAcked() uint64 {
	return s.acked.Load()
}

func (s *Session) touch(n int) {
	s.lastActive.Store(time.Now().UnixNano())
	s.received.Add(int64(n))
}
