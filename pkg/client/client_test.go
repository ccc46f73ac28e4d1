package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vango-core/internal/demo"
	"github.com/vango-dev/vango-core/pkg/protocol"
	"github.com/vango-dev/vango-core/pkg/render"
	"github.com/vango-dev/vango-core/pkg/server"
	"github.com/vango-dev/vango-core/pkg/vango"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

func startServer(t *testing.T, app server.AppFunc) string {
	t.Helper()
	srv := server.New(app, &server.ServerConfig{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		SessionConfig: &server.SessionConfig{CompressThreshold: protocol.DefaultCompressThreshold},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ts.Close()
	})
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/_vango/live"
}

func dial(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, opts...)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func waitText(t *testing.T, c *Client, text string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.WaitFor(ctx, func(*render.Document) bool {
		return strings.Contains(c.HTML(), text)
	})
	if err != nil {
		t.Fatalf("waiting for %q: %v\nhtml: %s", text, err, c.HTML())
	}
}

func TestDemoSession(t *testing.T) {
	for _, codec := range protocol.CodecNames() {
		t.Run(codec, func(t *testing.T) {
			var mu sync.Mutex
			edits := map[vdom.MutationOp]int{}
			c := dial(t, startServer(t, server.Mount(demo.App, demo.Props{Todos: []string{"milk"}})),
				WithCodec(codec),
				WithAutoAck(),
				WithEditHandler(func(e protocol.Edit) {
					mu.Lock()
					edits[e.Op]++
					mu.Unlock()
				}))

			if c.Codec().Name() != codec {
				t.Errorf("Codec() = %q, want %q", c.Codec().Name(), codec)
			}
			if c.SessionID == "" {
				t.Error("SessionID is empty")
			}

			waitText(t, c, demo.DefaultQuote)
			if c.LastSeq() == 0 {
				t.Error("LastSeq() = 0 after the first batch")
			}

			if err := c.Click("id", "inc"); err != nil {
				t.Fatalf("Click() error = %v", err)
			}
			waitText(t, c, "count: 1 (odd)")

			id, err := c.Find("id", "new")
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if err := c.Send("input", id, map[string]any{"value": "bread"}); err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if err := c.Click("id", "add"); err != nil {
				t.Fatalf("Click() error = %v", err)
			}
			waitText(t, c, "2 of 2 left")

			st := c.Stats()
			if st.Batches < 3 || st.Events != 3 || st.BytesIn == 0 || st.BytesOut == 0 {
				t.Errorf("Stats() = %+v", st)
			}
			mu.Lock()
			defer mu.Unlock()
			if edits[vdom.OpLoadTemplate] == 0 || edits[vdom.OpSetNodeText] == 0 {
				t.Errorf("edit counts = %v, want template loads and text updates", edits)
			}
		})
	}
}

func TestFindMissing(t *testing.T) {
	c := dial(t, startServer(t, server.Mount(demo.App, demo.Props{})))
	waitText(t, c, "count: 0")

	if _, err := c.Find("id", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find() error = %v, want ErrNotFound", err)
	}
	if err := c.Click("id", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Click() error = %v, want ErrNotFound", err)
	}
}

func TestHandshakeRejected(t *testing.T) {
	url := startServer(t, server.Mount(demo.App, demo.Props{}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Dial(ctx, url, WithCodec("protobuf"))
	var he *HandshakeError
	if !errors.As(err, &he) {
		t.Fatalf("Dial() error = %v, want *HandshakeError", err)
	}
	if he.Status != protocol.HandshakeUnsupportedCodec {
		t.Errorf("Status = %v, want %v", he.Status, protocol.HandshakeUnsupportedCodec)
	}
}

func TestNonFatalErrorFrame(t *testing.T) {
	got := make(chan *protocol.ErrorMessage, 1)
	c := dial(t, startServer(t, server.Mount(demo.App, demo.Props{})),
		WithErrorHandler(func(em *protocol.ErrorMessage) { got <- em }))
	waitText(t, c, "count: 0")

	c.writeMu.Lock()
	err := c.conn.WriteMessage(websocket.BinaryMessage, []byte{0x01})
	c.writeMu.Unlock()
	if err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	// The session survives; the next click still renders.
	if err := c.Click("id", "inc"); err != nil {
		t.Fatalf("Click() error = %v", err)
	}
	waitText(t, c, "count: 1")

	select {
	case em := <-got:
		if em.Code != "E060" || em.Fatal {
			t.Errorf("error frame = %+v, want non-fatal E060", em)
		}
	default:
		t.Fatal("error handler was not called")
	}
	if c.Stats().ErrorsSeen != 1 {
		t.Errorf("ErrorsSeen = %d, want 1", c.Stats().ErrorsSeen)
	}
}

var fatalTmpl = vdom.NewTemplate("client-fatal",
	vdom.El("button", vdom.Attr("id", "die"), vdom.DynAttr(0), "die"),
)

func fatalApp(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
	return vdom.NewVNode(fatalTmpl).
		Attr(0, vdom.OnErr("click", func(*vdom.Event) error { return errors.New("unrecoverable") })), nil
}

func TestFatalErrorFrame(t *testing.T) {
	c := dial(t, startServer(t, server.Mount(fatalApp, struct{}{})))
	waitText(t, c, "die")

	if err := c.Click("id", "die"); err != nil {
		t.Fatalf("Click() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := c.Next(ctx)

	var em *protocol.ErrorMessage
	if !errors.As(err, &em) {
		t.Fatalf("Next() error = %v, want *protocol.ErrorMessage", err)
	}
	if !em.Fatal || em.Code != "E004" {
		t.Errorf("error frame = %+v, want fatal E004", em)
	}
	if _, err := c.Next(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Next() after fatal error = %v, want ErrClosed", err)
	}
}

func TestServerShutdown(t *testing.T) {
	srv := server.New(server.Mount(demo.App, demo.Props{}), &server.ServerConfig{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		SessionConfig: &server.SessionConfig{},
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c := dial(t, "ws"+strings.TrimPrefix(ts.URL, "http")+"/_vango/live")
	waitText(t, c, "count: 0")

	go srv.Shutdown(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, err := c.Next(ctx)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Next() error = %v, want ErrClosed", err)
		}
		return
	}
}

func TestPing(t *testing.T) {
	c := dial(t, startServer(t, server.Mount(demo.App, demo.Props{})))
	waitText(t, c, "count: 0")
	if err := c.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	// The pong is consumed by Next; a click afterwards still arrives.
	if err := c.Click("id", "inc"); err != nil {
		t.Fatalf("Click() error = %v", err)
	}
	waitText(t, c, "count: 1")
}
