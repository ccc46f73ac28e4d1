package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"runtime"
	"runtime/metrics"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		if s.Value.Kind() == metrics.KindBad {
			continue
		}
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:bytes":
			out.heapAllocsBytes = s.Value.Uint64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

// percentile returns the nearest-rank percentile of sorted.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type benchReport struct {
	Version    string         `json:"version" yaml:"version"`
	Run        runInfo        `json:"run" yaml:"run"`
	Workload   workloadInfo   `json:"workload" yaml:"workload"`
	LatencyMS  latencyInfo    `json:"latency_ms" yaml:"latency_ms"`
	Throughput throughputInfo `json:"throughput" yaml:"throughput"`
	GC         gcInfo         `json:"gc" yaml:"gc"`
	Protocol   protocolInfo   `json:"protocol" yaml:"protocol"`
	Errors     errorInfo      `json:"errors" yaml:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Go        string `json:"go" yaml:"go"`
	OS        string `json:"os" yaml:"os"`
	Arch      string `json:"arch" yaml:"arch"`
	CPUCount  int    `json:"cpu_count" yaml:"cpu_count"`
	GitCommit string `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
}

type workloadInfo struct {
	Profile        string  `json:"profile" yaml:"profile"`
	Target         string  `json:"target" yaml:"target"`
	Codec          string  `json:"codec" yaml:"codec"`
	Clients        int     `json:"clients" yaml:"clients"`
	DurationMS     int64   `json:"duration_ms" yaml:"duration_ms"`
	RPSPerClient   float64 `json:"rps_per_client" yaml:"rps_per_client"`
	ListSize       int     `json:"list_size" yaml:"list_size"`
	PayloadBytes   int     `json:"payload_bytes" yaml:"payload_bytes"`
	MaxProcs       int     `json:"max_procs" yaml:"max_procs"`
	MemLimitBytes  int64   `json:"mem_limit_bytes" yaml:"mem_limit_bytes"`
	EventTimeoutMS int64   `json:"event_timeout_ms" yaml:"event_timeout_ms"`
}

type latencyInfo struct {
	Min float64 `json:"min" yaml:"min"`
	P50 float64 `json:"p50" yaml:"p50"`
	P95 float64 `json:"p95" yaml:"p95"`
	P99 float64 `json:"p99" yaml:"p99"`
	Max float64 `json:"max" yaml:"max"`
}

type throughputInfo struct {
	EventsTotal        uint64  `json:"events_total" yaml:"events_total"`
	EventsPerSec       float64 `json:"events_per_sec" yaml:"events_per_sec"`
	EventsPerSecClient float64 `json:"events_per_sec_per_client" yaml:"events_per_sec_per_client"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb" yaml:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb" yaml:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc" yaml:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms" yaml:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms" yaml:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction" yaml:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects" yaml:"allocs_objects"`
}

type protocolInfo struct {
	EventBytesTotal uint64            `json:"event_bytes_total" yaml:"event_bytes_total"`
	BatchBytesTotal uint64            `json:"batch_bytes_total" yaml:"batch_bytes_total"`
	Batches         uint64            `json:"batches_total" yaml:"batches_total"`
	EditsTotal      uint64            `json:"edits_total" yaml:"edits_total"`
	AvgEventBytes   float64           `json:"avg_event_bytes" yaml:"avg_event_bytes"`
	AvgBatchBytes   float64           `json:"avg_batch_bytes" yaml:"avg_batch_bytes"`
	EditsPerEvent   float64           `json:"edits_per_event" yaml:"edits_per_event"`
	EditOps         map[string]uint64 `json:"edit_ops" yaml:"edit_ops"`
}

type errorInfo struct {
	TotalErrors        uint64 `json:"total_errors" yaml:"total_errors"`
	HandshakeFailures  uint64 `json:"handshake_failures" yaml:"handshake_failures"`
	EventWriteFailures uint64 `json:"event_write_failures" yaml:"event_write_failures"`
	DecodeFailures     uint64 `json:"decode_failures" yaml:"decode_failures"`
	ServerErrorFrames  uint64 `json:"server_error_frames" yaml:"server_error_frames"`
	TokenMissing       uint64 `json:"token_missing" yaml:"token_missing"`
}

func buildReport(
	cfg benchConfig,
	elapsed time.Duration,
	latencies []time.Duration,
	counters *benchCounters,
	errs *benchErrors,
	editOps *editOpCounts,
	before runtime.MemStats,
	after runtime.MemStats,
	beforeMetrics runtimeMetricsSnapshot,
	afterMetrics runtimeMetricsSnapshot,
) benchReport {
	eventsTotal := counters.eventsComplete.Load()
	eventsSent := counters.eventsSent.Load()
	editsTotal := counters.editsTotal.Load()
	batches := counters.batches.Load()
	eventBytes := counters.eventBytes.Load()
	batchBytes := counters.batchBytes.Load()

	elapsedSeconds := math.Max(0.001, elapsed.Seconds())
	eventsPerSec := float64(eventsTotal) / elapsedSeconds
	eventsPerSecClient := eventsPerSec / float64(cfg.Clients)

	latency := latencyInfo{}
	if len(latencies) > 0 {
		latency = latencyInfo{
			Min: ms(latencies[0]),
			P50: ms(percentile(latencies, 0.50)),
			P95: ms(percentile(latencies, 0.95)),
			P99: ms(percentile(latencies, 0.99)),
			Max: ms(latencies[len(latencies)-1]),
		}
	}

	avgEventBytes := 0.0
	if eventsSent > 0 {
		avgEventBytes = float64(eventBytes) / float64(eventsSent)
	}
	avgBatchBytes := 0.0
	editsPerEvent := 0.0
	if eventsTotal > 0 {
		avgBatchBytes = float64(batchBytes) / float64(eventsTotal)
		editsPerEvent = float64(editsTotal) / float64(eventsTotal)
	}

	target := cfg.URL
	if target == "" {
		target = "in-process"
	}

	return benchReport{
		Version: "2",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			GitCommit: gitCommit(),
		},
		Workload: workloadInfo{
			Profile:        cfg.Profile,
			Target:         target,
			Codec:          cfg.Codec,
			Clients:        cfg.Clients,
			DurationMS:     cfg.Duration.Milliseconds(),
			RPSPerClient:   cfg.RPS,
			ListSize:       cfg.ListSize,
			PayloadBytes:   cfg.PayloadBytes,
			MaxProcs:       cfg.MaxProcs,
			MemLimitBytes:  cfg.MemLimitBytes,
			EventTimeoutMS: cfg.EventTimeout.Milliseconds(),
		},
		LatencyMS: latency,
		Throughput: throughputInfo{
			EventsTotal:        eventsTotal,
			EventsPerSec:       eventsPerSec,
			EventsPerSecClient: eventsPerSecClient,
		},
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(time.Duration(after.PauseTotalNs - before.PauseTotalNs)),
			PauseAvgMS:    ms(avgPause(after, before)),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.heapAllocsObjects - beforeMetrics.heapAllocsObjects,
		},
		Protocol: protocolInfo{
			EventBytesTotal: eventBytes,
			BatchBytesTotal: batchBytes,
			Batches:         batches,
			EditsTotal:      editsTotal,
			AvgEventBytes:   avgEventBytes,
			AvgBatchBytes:   avgBatchBytes,
			EditsPerEvent:   editsPerEvent,
			EditOps:         editOps.snapshot(),
		},
		Errors: errorInfo{
			TotalErrors:        errs.totalErrors.Load(),
			HandshakeFailures:  errs.handshakeFailures.Load(),
			EventWriteFailures: errs.eventWriteFailures.Load(),
			DecodeFailures:     errs.decodeFailures.Load(),
			ServerErrorFrames:  errs.serverErrorFrames.Load(),
			TokenMissing:       errs.tokenMissing.Load(),
		},
	}
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Vango Liveview Benchmark ===")
	fmt.Fprintf(w, "Profile: %s (%s, %s)\n", report.Workload.Profile, report.Workload.Target, report.Workload.Codec)
	fmt.Fprintf(w, "Clients: %d\n", report.Workload.Clients)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Target per-client rate: %.2f events/s\n", report.Workload.RPSPerClient)
	fmt.Fprintf(w, "List size: %d\n", report.Workload.ListSize)
	fmt.Fprintf(w, "Payload bytes: %d\n", report.Workload.PayloadBytes)
	if report.Workload.MaxProcs > 0 {
		fmt.Fprintf(w, "GOMAXPROCS cap: %d\n", report.Workload.MaxProcs)
	}
	if report.Workload.MemLimitBytes > 0 {
		fmt.Fprintf(w, "GOMEMLIMIT cap: %.2f GiB\n", float64(report.Workload.MemLimitBytes)/float64(gib))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total events: %d\n", report.Throughput.EventsTotal)
	fmt.Fprintf(w, "Throughput: %.1f events/s (%.2f per client)\n", report.Throughput.EventsPerSec, report.Throughput.EventsPerSecClient)
	fmt.Fprintf(w, "Errors: %d\n", report.Errors.TotalErrors)
	fmt.Fprintln(w)

	if report.LatencyMS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "RTT (event send -> render -> batch replayed):")
		fmt.Fprintf(w, "  min: %.2f ms\n", report.LatencyMS.Min)
		fmt.Fprintf(w, "  p50: %.2f ms\n", report.LatencyMS.P50)
		fmt.Fprintf(w, "  p95: %.2f ms\n", report.LatencyMS.P95)
		fmt.Fprintf(w, "  p99: %.2f ms\n", report.LatencyMS.P99)
		fmt.Fprintf(w, "  max: %.2f ms\n", report.LatencyMS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Protocol (avg per event):")
	fmt.Fprintf(w, "  event bytes: %.1f\n", report.Protocol.AvgEventBytes)
	fmt.Fprintf(w, "  batch bytes: %.1f\n", report.Protocol.AvgBatchBytes)
	fmt.Fprintf(w, "  edits/event: %.2f\n", report.Protocol.EditsPerEvent)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", report.GC.PauseAvgMS)
	fmt.Fprintf(w, "  gc_cpu:    %.2f%%\n", report.GC.GCCPUFraction*100)
}

// writeReport writes report to path, or to stdout when path is "-".
func writeReport(path, format string, stdout io.Writer, report benchReport) error {
	out := stdout
	if path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
}

func gitCommit() string {
	if val := strings.TrimSpace(os.Getenv("VANGO_GIT_COMMIT")); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv("GIT_COMMIT")); val != "" {
		return val
	}
	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
