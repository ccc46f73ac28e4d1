package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/vango-core/pkg/protocol"
	"github.com/vango-dev/vango-core/pkg/vtest"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, 1},
		{0.5, 5},
		{0.95, 10},
		{0.1, 1},
		{1, 10},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Errorf("percentile(nil) = %v, want 0", got)
	}
}

func TestParseBytes(t *testing.T) {
	tests := map[string]int64{
		"512":    512,
		"1kb":    1000,
		"2KiB":   2048,
		"1.5MiB": 1572864,
		"2GiB":   2 * gib,
	}
	for in, want := range tests {
		got, err := parseBytes(in)
		if err != nil {
			t.Errorf("parseBytes(%q) error = %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("parseBytes(%q) = %d, want %d", in, got, want)
		}
	}
	for _, in := range []string{"", "GiB", "3 parsecs"} {
		if _, err := parseBytes(in); err == nil {
			t.Errorf("parseBytes(%q) should fail", in)
		}
	}
}

func TestMakeToken(t *testing.T) {
	a := makeToken(1, 1, 24)
	b := makeToken(1, 2, 24)
	c := makeToken(2, 1, 24)
	if len(a) != 24 {
		t.Errorf("len(token) = %d, want 24", len(a))
	}
	if a == b || a == c {
		t.Errorf("tokens collide: %q %q %q", a, b, c)
	}
	if got := makeToken(1, 1, 0); got != "" {
		t.Errorf("makeToken(payload 0) = %q, want empty", got)
	}
}

func TestBenchFlagsConfig(t *testing.T) {
	base := benchFlags{profile: "fast", clients: -1, rps: -1, list: -1, payload: -1, maxProcs: -1, codec: protocol.CodecBinary, format: "json"}

	cfg, err := base.config()
	if err != nil {
		t.Fatalf("config() error = %v", err)
	}
	if cfg.Clients != 50 || cfg.Duration != 10*time.Second || cfg.Output != "-" {
		t.Errorf("fast profile = %+v", cfg)
	}
	if cfg.EventTimeout != 5*time.Second {
		t.Errorf("EventTimeout = %v, want 5s", cfg.EventTimeout)
	}

	over := base
	over.clients = 3
	over.memLimit = "1GiB"
	cfg, err = over.config()
	if err != nil {
		t.Fatalf("config(overrides) error = %v", err)
	}
	if cfg.Clients != 3 || cfg.MemLimitBytes != gib {
		t.Errorf("overrides not applied: %+v", cfg)
	}

	bad := []func(*benchFlags){
		func(f *benchFlags) { f.profile = "huge" },
		func(f *benchFlags) { f.clients = 0 },
		func(f *benchFlags) { f.rps = 0 },
		func(f *benchFlags) { f.codec = "protobuf" },
		func(f *benchFlags) { f.format = "xml" },
		func(f *benchFlags) { f.memLimit = "lots" },
	}
	for i, modify := range bad {
		f := base
		modify(&f)
		if _, err := f.config(); err == nil {
			t.Errorf("case %d: config() should fail for %+v", i, f)
		}
	}
}

func TestLoadApp(t *testing.T) {
	h := vtest.New(t, loadApp, loadProps{ListSize: 5})
	if got := len(vtest.FindTag(h.Root(), "li")); got != 5 {
		t.Fatalf("rows = %d, want 5", got)
	}

	h.Dispatch(h.ID("id", "echo-input"), "input", map[string]any{"value": "tok"})
	h.Render()

	if got := h.Find("id", "echo").TextContent(); got != "tok" {
		t.Errorf("echo = %q, want tok", got)
	}
	rows := vtest.FindTag(h.Root(), "li")
	if got := rows[rowFor("tok", 5)].TextContent(); got != "tok" {
		t.Errorf("row %d = %q, want tok", rowFor("tok", 5), got)
	}
}

func TestLoadAppEmptyList(t *testing.T) {
	h := vtest.New(t, loadApp, loadProps{})
	h.Dispatch(h.ID("id", "echo-input"), "input", map[string]any{"value": "x"})
	h.Render()
	vtest.ExpectContains(t, h.Root(), `<div id="echo">x</div>`)
}

func TestRunBench(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a server and clients")
	}
	cfg := benchConfig{
		Profile:      "test",
		Clients:      3,
		Duration:     500 * time.Millisecond,
		RPS:          50,
		ListSize:     10,
		PayloadBytes: 16,
		Codec:        protocol.CodecCBOR,
		Threshold:    protocol.DefaultCompressThreshold,
		Format:       "yaml",
		EventTimeout: eventTimeout(50),
	}
	report, err := runBench(context.Background(), cfg)
	if err != nil {
		t.Fatalf("runBench() error = %v", err)
	}
	if report.Throughput.EventsTotal == 0 {
		t.Fatalf("no events completed: %+v", report.Errors)
	}
	if report.Errors.HandshakeFailures != 0 || report.Errors.TokenMissing != 0 {
		t.Errorf("errors = %+v", report.Errors)
	}
	if report.Protocol.EditOps["SetNodeText"] == 0 {
		t.Errorf("edit ops = %v, want SetNodeText updates", report.Protocol.EditOps)
	}
	if report.LatencyMS.Max < report.LatencyMS.P50 {
		t.Errorf("latency = %+v", report.LatencyMS)
	}

	var summary bytes.Buffer
	writeSummary(&summary, report)
	if !strings.Contains(summary.String(), "Clients: 3") {
		t.Errorf("summary:\n%s", summary.String())
	}

	var out bytes.Buffer
	if err := writeReport("-", "yaml", &out, report); err != nil {
		t.Fatalf("writeReport() error = %v", err)
	}
	var decoded benchReport
	if err := yaml.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("yaml report does not parse: %v", err)
	}
	if diff := cmp.Diff(report.Workload, decoded.Workload); diff != "" {
		t.Errorf("workload round trip (-want +got):\n%s", diff)
	}
}
