package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/vango-core/pkg/client"
	"github.com/vango-dev/vango-core/pkg/protocol"
	"github.com/vango-dev/vango-core/pkg/server"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

const (
	gib = int64(1024 * 1024 * 1024)
)

type profile struct {
	Name          string
	Clients       int
	Duration      time.Duration
	RPS           float64
	ListSize      int
	PayloadBytes  int
	MaxProcs      int
	MemLimitBytes int64
}

var profiles = map[string]profile{
	"fast": {
		Name:         "fast",
		Clients:      50,
		Duration:     10 * time.Second,
		RPS:          2,
		ListSize:     20,
		PayloadBytes: 24,
	},
	"standard": {
		Name:         "standard",
		Clients:      200,
		Duration:     30 * time.Second,
		RPS:          5,
		ListSize:     50,
		PayloadBytes: 24,
	},
	"stress": {
		Name:          "stress",
		Clients:       500,
		Duration:      60 * time.Second,
		RPS:           10,
		ListSize:      100,
		PayloadBytes:  24,
		MaxProcs:      4,
		MemLimitBytes: 2 * gib,
	},
}

type benchConfig struct {
	Profile       string
	Clients       int
	Duration      time.Duration
	RPS           float64
	ListSize      int
	PayloadBytes  int
	MaxProcs      int
	MemLimitBytes int64
	Codec         string
	Threshold     int
	URL           string
	Output        string
	Format        string
	EventTimeout  time.Duration
}

type benchCounters struct {
	eventsSent     atomic.Uint64
	eventsComplete atomic.Uint64
	eventBytes     atomic.Uint64
	batchBytes     atomic.Uint64
	batches        atomic.Uint64
	editsTotal     atomic.Uint64
}

type benchErrors struct {
	handshakeFailures  atomic.Uint64
	eventWriteFailures atomic.Uint64
	decodeFailures     atomic.Uint64
	serverErrorFrames  atomic.Uint64
	tokenMissing       atomic.Uint64
	totalErrors        atomic.Uint64
}

type editOpCounts struct {
	counts [256]atomic.Uint64
}

func (p *editOpCounts) add(op vdom.MutationOp) {
	p.counts[uint8(op)].Add(1)
}

func (p *editOpCounts) snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	for i := range p.counts {
		count := p.counts[i].Load()
		if count == 0 {
			continue
		}
		name := vdom.MutationOp(uint8(i)).String()
		if name == "Unknown" {
			name = fmt.Sprintf("0x%02x", i)
		}
		out[name] = count
	}
	return out
}

// benchFlags holds raw flag values; -1 and "" mean "take the profile's".
type benchFlags struct {
	profile  string
	clients  int
	duration time.Duration
	rps      float64
	list     int
	payload  int
	maxProcs int
	memLimit string
	codec    string
	thresh   int
	url      string
	output   string
	format   string
}

func benchCmd() *cobra.Command {
	f := benchFlags{
		profile:  "standard",
		clients:  -1,
		rps:      -1,
		list:     -1,
		payload:  -1,
		maxProcs: -1,
		codec:    protocol.CodecBinary,
		thresh:   protocol.DefaultCompressThreshold,
		output:   "-",
		format:   "json",
	}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load-test liveview sessions",
		Long: `Run many concurrent liveview clients against a load page.

Each client types a unique token into an input and waits until the echoed
token arrives in a mutation batch. The round trip covers event decode,
render, diff, batch encode and replay on the client.

Without --url an in-process server is started on a loopback port.

Examples:
  vango bench --profile=fast
  vango bench --clients=20 --duration=5s --format=yaml
  vango bench --url=ws://localhost:8080/_vango/live --profile=fast`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config()
			if err != nil {
				return err
			}
			if cfg.MaxProcs > 0 {
				runtime.GOMAXPROCS(cfg.MaxProcs)
			}
			if cfg.MemLimitBytes > 0 {
				debug.SetMemoryLimit(cfg.MemLimitBytes)
			}
			debug.SetGCPercent(100)

			report, err := runBench(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			writeSummary(cmd.ErrOrStderr(), report)
			return writeReport(cfg.Output, cfg.Format, cmd.OutOrStdout(), report)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.profile, "profile", f.profile, "Profile: fast|standard|stress")
	fl.IntVar(&f.clients, "clients", f.clients, "Number of concurrent clients")
	fl.DurationVar(&f.duration, "duration", 0, "Benchmark duration, e.g. 30s")
	fl.Float64Var(&f.rps, "rps", f.rps, "Target events/sec per client")
	fl.IntVar(&f.list, "list", f.list, "List size rendered per session")
	fl.IntVar(&f.payload, "payload-bytes", f.payload, "Bytes of token payload per event")
	fl.IntVar(&f.maxProcs, "max-procs", f.maxProcs, "GOMAXPROCS cap (0 to leave unchanged)")
	fl.StringVar(&f.memLimit, "mem-limit", "", "GOMEMLIMIT (e.g. 2GiB)")
	fl.StringVar(&f.codec, "codec", f.codec, "Wire codec requested by the clients")
	fl.IntVar(&f.thresh, "threshold", f.thresh, "Compression threshold of the in-process server")
	fl.StringVar(&f.url, "url", "", "Benchmark a running server instead of an in-process one")
	fl.StringVarP(&f.output, "output", "o", f.output, "Report path ('-' for stdout)")
	fl.StringVar(&f.format, "format", f.format, "Report format: json or yaml")

	return cmd
}

func (f benchFlags) config() (benchConfig, error) {
	name := strings.ToLower(strings.TrimSpace(f.profile))
	if name == "" {
		name = "standard"
	}

	base, ok := profiles[name]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", name)
	}

	cfg := benchConfig{
		Profile:       base.Name,
		Clients:       base.Clients,
		Duration:      base.Duration,
		RPS:           base.RPS,
		ListSize:      base.ListSize,
		PayloadBytes:  base.PayloadBytes,
		MaxProcs:      base.MaxProcs,
		MemLimitBytes: base.MemLimitBytes,
		Codec:         f.codec,
		Threshold:     f.thresh,
		URL:           strings.TrimSpace(f.url),
		Output:        strings.TrimSpace(f.output),
		Format:        strings.ToLower(strings.TrimSpace(f.format)),
	}

	if f.clients != -1 {
		cfg.Clients = f.clients
	}
	if f.duration != 0 {
		cfg.Duration = f.duration
	}
	if f.rps != -1 {
		cfg.RPS = f.rps
	}
	if f.list != -1 {
		cfg.ListSize = f.list
	}
	if f.payload != -1 {
		cfg.PayloadBytes = f.payload
	}
	if f.maxProcs != -1 {
		cfg.MaxProcs = f.maxProcs
	}
	if f.memLimit != "" {
		limit, err := parseBytes(f.memLimit)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid --mem-limit: %w", err)
		}
		cfg.MemLimitBytes = limit
	}
	if cfg.Output == "" {
		cfg.Output = "-"
	}

	if cfg.Clients <= 0 {
		return benchConfig{}, errors.New("--clients must be > 0")
	}
	if cfg.Duration <= 0 {
		return benchConfig{}, errors.New("--duration must be > 0")
	}
	if cfg.RPS <= 0 {
		return benchConfig{}, errors.New("--rps must be > 0")
	}
	if cfg.ListSize < 0 {
		return benchConfig{}, errors.New("--list must be >= 0")
	}
	if cfg.PayloadBytes <= 0 {
		return benchConfig{}, errors.New("--payload-bytes must be > 0")
	}
	if cfg.MaxProcs < 0 {
		return benchConfig{}, errors.New("--max-procs must be >= 0")
	}
	if cfg.MemLimitBytes < 0 {
		return benchConfig{}, errors.New("--mem-limit must be >= 0")
	}
	if _, err := protocol.CodecByName(cfg.Codec); err != nil {
		return benchConfig{}, err
	}
	if cfg.Format != "json" && cfg.Format != "yaml" {
		return benchConfig{}, fmt.Errorf("unknown report format %q", cfg.Format)
	}

	cfg.EventTimeout = eventTimeout(cfg.RPS)
	return cfg, nil
}

// runBench drives cfg.Clients clients until cfg.Duration elapses and
// returns the report.
func runBench(ctx context.Context, cfg benchConfig) (benchReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	url := cfg.URL
	var stop func()
	if url == "" {
		ln, err := net.Listen("tcp4", "127.0.0.1:0")
		if err != nil {
			return benchReport{}, fmt.Errorf("listen: %w", err)
		}
		srv := server.New(server.Mount(loadApp, loadProps{ListSize: cfg.ListSize}), &server.ServerConfig{
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			SessionConfig: &server.SessionConfig{
				CompressThreshold: cfg.Threshold,
				MaxEventQueue:     64,
			},
		})
		httpServer := &http.Server{Handler: srv.Handler()}
		g.Go(func() error {
			if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		stop = func() {
			_ = srv.Shutdown(context.Background())
			_ = httpServer.Shutdown(context.Background())
		}
		url = "ws://" + ln.Addr().String() + server.DefaultWSPath
	}

	samplesCh := make(chan time.Duration, sampleBuffer(cfg.Clients))
	var samples []time.Duration
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for rtt := range samplesCh {
			samples = append(samples, rtt)
		}
	}()

	var counters benchCounters
	var errCounts benchErrors
	var editOps editOpCounts

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	start := time.Now()
	var clients sync.WaitGroup
	clients.Add(cfg.Clients)
	for i := 0; i < cfg.Clients; i++ {
		clientID := i
		go func() {
			defer clients.Done()
			if err := runClient(gctx, url, clientID, cfg, &counters, &errCounts, &editOps, samplesCh); err != nil {
				errCounts.totalErrors.Add(1)
			}
		}()
	}
	clients.Wait()
	elapsed := time.Since(start)

	close(samplesCh)
	<-collectorDone

	if stop != nil {
		stop()
	}
	if err := g.Wait(); err != nil {
		return benchReport{}, err
	}

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	return buildReport(cfg, elapsed, samples, &counters, &errCounts, &editOps, before, after, beforeMetrics, afterMetrics), nil
}

func sampleBuffer(clients int) int {
	if clients < 1 {
		return 1024
	}
	buf := clients * 4
	if buf < 1024 {
		buf = 1024
	}
	return buf
}

func eventTimeout(rps float64) time.Duration {
	if rps <= 0 {
		return 0
	}
	period := time.Duration(float64(time.Second) / rps)
	timeout := period * 10
	if timeout < 2*time.Second {
		timeout = 2 * time.Second
	}
	return timeout
}

func parseBytes(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, errors.New("empty size")
	}

	var i int
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			i++
			continue
		}
		break
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	numPart := strings.TrimSpace(s[:i])
	suffix := strings.ToLower(strings.TrimSpace(s[i:]))

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, err
	}

	multiplier := float64(1)
	switch suffix {
	case "", "b":
		multiplier = 1
	case "kb":
		multiplier = 1e3
	case "mb":
		multiplier = 1e6
	case "gb":
		multiplier = 1e9
	case "kib":
		multiplier = 1024
	case "mib":
		multiplier = 1024 * 1024
	case "gib":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix %q", suffix)
	}

	return int64(value*multiplier + 0.5), nil
}

func runClient(
	ctx context.Context,
	url string,
	clientID int,
	cfg benchConfig,
	counters *benchCounters,
	errCounts *benchErrors,
	editOps *editOpCounts,
	samples chan<- time.Duration,
) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	c, err := client.Dial(dialCtx, url,
		client.WithCodec(cfg.Codec),
		client.WithEditHandler(func(e protocol.Edit) {
			editOps.add(e.Op)
			counters.editsTotal.Add(1)
		}))
	cancel()
	if err != nil {
		errCounts.handshakeFailures.Add(1)
		return err
	}
	defer func() {
		st := c.Stats()
		counters.eventBytes.Add(st.BytesOut)
		counters.batchBytes.Add(st.BytesIn)
		counters.batches.Add(st.Batches)
		c.Close()
	}()

	// The first batch builds the page.
	if _, err := c.Next(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		errCounts.decodeFailures.Add(1)
		return err
	}
	input, err := c.Find("id", "echo-input")
	if err != nil {
		return err
	}

	period := time.Duration(float64(time.Second) / cfg.RPS)
	var seq uint64

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		seq++
		token := makeToken(clientID, seq, cfg.PayloadBytes)
		start := time.Now()

		if err := c.Send("input", input, map[string]any{"value": token}); err != nil {
			errCounts.eventWriteFailures.Add(1)
			return fmt.Errorf("event write: %w", err)
		}
		counters.eventsSent.Add(1)

		eventCtx, cancel := context.WithTimeout(ctx, cfg.EventTimeout)
		err := waitForToken(eventCtx, c, token)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var em *protocol.ErrorMessage
			switch {
			case errors.As(err, &em):
				errCounts.serverErrorFrames.Add(1)
			case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
				errCounts.tokenMissing.Add(1)
				return errors.New("token not observed in batches")
			default:
				errCounts.decodeFailures.Add(1)
			}
			return fmt.Errorf("wait for token: %w", err)
		}

		rtt := time.Since(start)
		counters.eventsComplete.Add(1)
		samples <- rtt

		if sleep := period - time.Since(start); sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

// waitForToken applies batches until one sets a text node to token.
func waitForToken(ctx context.Context, c *client.Client, token string) error {
	for {
		b, err := c.Next(ctx)
		if err != nil {
			return err
		}
		for _, e := range b.Edits {
			if e.Op == vdom.OpSetNodeText && e.Text == token {
				return nil
			}
		}
	}
}

func makeToken(clientID int, seq uint64, payloadBytes int) string {
	if payloadBytes <= 0 {
		return ""
	}
	seed := (uint64(clientID) << 32) ^ seq
	base := strings.ToLower(strconv.FormatUint(seed, 36))
	if len(base) >= payloadBytes {
		return base[len(base)-payloadBytes:]
	}
	pad := strings.Repeat("x", payloadBytes-len(base))
	return base + pad
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
