package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/vango-core/internal/demo"
	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/protocol"
	"github.com/vango-dev/vango-core/pkg/server"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

func strPtr(s string) *string { return &s }

func TestParseEvent(t *testing.T) {
	tests := []struct {
		spec string
		want scriptedEvent
	}{
		{"click:4", scriptedEvent{Spec: "click:4", Name: "click", ID: 4}},
		{"click:#inc", scriptedEvent{Spec: "click:#inc", Name: "click", HTMLID: "inc"}},
		{"input:#new=bread", scriptedEvent{Spec: "input:#new=bread", Name: "input", HTMLID: "new", Value: strPtr("bread")}},
		{"input:7=", scriptedEvent{Spec: "input:7=", Name: "input", ID: 7, Value: strPtr("")}},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := parseEvent(tt.spec)
			if err != nil {
				t.Fatalf("parseEvent() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseEvent() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseEventErrors(t *testing.T) {
	for _, spec := range []string{"click", ":4", "click:", "click:#", "click:abc", "click:0"} {
		if _, err := parseEvent(spec); vangoerrors.Code(err) != "E140" {
			t.Errorf("parseEvent(%q) error = %v, want E140", spec, err)
		}
	}
}

func TestRenderLocal(t *testing.T) {
	for _, codec := range protocol.CodecNames() {
		t.Run(codec, func(t *testing.T) {
			script, err := parseScript([]string{"click:#inc", "input:#new=bread", "click:#add"})
			if err != nil {
				t.Fatal(err)
			}
			res, err := renderLocal(context.Background(), renderOptions{
				codec:     codec,
				threshold: 0,
				wait:      time.Second,
				html:      true,
				todos:     []string{"milk"},
			}, script)
			if err != nil {
				t.Fatalf("renderLocal() error = %v", err)
			}

			var labels []string
			for _, s := range res.Steps {
				labels = append(labels, s.Label)
			}
			want := []string{"rebuild", "task", "click:#inc", "input:#new=bread", "click:#add"}
			if diff := cmp.Diff(want, labels); diff != "" {
				t.Errorf("step labels mismatch (-want +got):\n%s", diff)
			}
			for i, s := range res.Steps {
				if s.Seq != uint64(i+1) {
					t.Errorf("step %d seq = %d, want %d", i, s.Seq, i+1)
				}
			}
			for _, text := range []string{"count: 1 (odd)", "2 of 2 left", "<span>bread</span>", demo.DefaultQuote} {
				if !strings.Contains(res.HTML, text) {
					t.Errorf("html lacks %q:\n%s", text, res.HTML)
				}
			}
		})
	}
}

func TestRenderLocalUnknownTarget(t *testing.T) {
	script, _ := parseScript([]string{"click:#missing"})
	res, err := renderLocal(context.Background(), renderOptions{codec: protocol.CodecBinary}, script)
	if vangoerrors.Code(err) != "E140" {
		t.Fatalf("renderLocal() error = %v, want E140", err)
	}
	if res == nil || len(res.Steps) == 0 || res.Steps[0].Label != "rebuild" {
		t.Errorf("steps before the failure should be kept, got %+v", res)
	}
}

func TestWriteRender(t *testing.T) {
	res := &renderResult{
		Codec: "binary",
		Steps: []step{{Label: "rebuild", Seq: 1, Bytes: 42, Edits: []string{"AppendChildren id=0 m=1"}}},
		HTML:  "<div></div>",
	}

	var text bytes.Buffer
	if err := writeRender(&text, renderOptions{format: "text"}, res); err != nil {
		t.Fatal(err)
	}
	wantText := "== rebuild (seq 1, 42 bytes, 1 edits, binary)\n  AppendChildren id=0 m=1\n\n<div></div>\n"
	if diff := cmp.Diff(wantText, text.String()); diff != "" {
		t.Errorf("text output mismatch (-want +got):\n%s", diff)
	}

	var js bytes.Buffer
	if err := writeRender(&js, renderOptions{format: "json"}, res); err != nil {
		t.Fatal(err)
	}
	var got renderResult
	if err := json.Unmarshal(js.Bytes(), &got); err != nil {
		t.Fatalf("json output does not parse: %v", err)
	}
	if diff := cmp.Diff(*res, got); diff != "" {
		t.Errorf("json output mismatch (-want +got):\n%s", diff)
	}

	if err := writeRender(&js, renderOptions{format: "xml"}, res); err == nil {
		t.Error("writeRender(xml) should fail")
	}
}

func TestRenderRemote(t *testing.T) {
	// A quote that never arrives keeps task batches out of the event steps.
	props := demo.Props{Quote: func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	srv := server.New(server.Mount(demo.App, props), &server.ServerConfig{
		Logger:        cliLogger(false),
		SessionConfig: &server.SessionConfig{},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ts.Close()
	})

	script, _ := parseScript([]string{"click:#inc", "click:#inc"})
	res, err := renderRemote(context.Background(), renderOptions{
		url:   "ws" + strings.TrimPrefix(ts.URL, "http") + "/_vango/live",
		codec: protocol.CodecCBOR,
		wait:  5 * time.Second,
		html:  true,
	}, script)
	if err != nil {
		t.Fatalf("renderRemote() error = %v", err)
	}
	if res.Codec != protocol.CodecCBOR {
		t.Errorf("Codec = %q, want cbor", res.Codec)
	}
	if len(res.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(res.Steps))
	}
	last := res.Steps[2]
	if !strings.Contains(strings.Join(last.Edits, "\n"), `text="count: 2 (even)"`) {
		t.Errorf("last step edits = %v, want the counter update", last.Edits)
	}
	if !strings.Contains(res.HTML, "count: 2 (even)") {
		t.Errorf("html = %s", res.HTML)
	}
}

func TestFormatEdit(t *testing.T) {
	tests := []struct {
		edit protocol.Edit
		want string
	}{
		{protocol.Edit{Op: vdom.OpSetNodeText, ID: 3, Text: "hi"}, `SetNodeText id=3 text="hi"`},
		{protocol.Edit{Op: vdom.OpAppendChildren, M: 2}, "AppendChildren m=2"},
		{protocol.Edit{Op: vdom.OpCreateEventListener, ID: 5, Name: "click"}, "CreateEventListener id=5 name=click"},
	}
	for _, tt := range tests {
		if got := formatEdit(tt.edit); got != tt.want {
			t.Errorf("formatEdit(%v) = %q, want %q", tt.edit.Op, got, tt.want)
		}
	}
}
