package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vango-core/internal/demo"
	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/client"
	"github.com/vango-dev/vango-core/pkg/protocol"
	"github.com/vango-dev/vango-core/pkg/render"
	"github.com/vango-dev/vango-core/pkg/vango"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

type renderOptions struct {
	format    string
	events    []string
	codec     string
	threshold int
	wait      time.Duration
	html      bool
	url       string
	todos     []string
	verbose   bool
}

func renderCmd() *cobra.Command {
	opts := renderOptions{
		format:    "text",
		codec:     protocol.CodecBinary,
		threshold: protocol.DefaultCompressThreshold,
		wait:      2 * time.Second,
	}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Run the demo app headless and print its mutation stream",
		Long: `Render the demo application without a browser.

Every step (the initial rebuild, completed background tasks and each
scripted event) is encoded with the chosen codec, framed, decoded again and
replayed into an in-memory document, exactly as a browser session would
see it. The edits of each step are printed.

Scripted events take the form name:target or name:target=value, where
target is an element id number or #htmlid. A value is sent as the
event's {"value": ...} payload.

With --url the events are sent to a running server instead.

Examples:
  vango render
  vango render --events click:#inc,click:#inc --html
  vango render --events input:#new=bread,click:#add --format json
  vango render --url ws://localhost:8080/_vango/live --events click:#inc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := parseScript(opts.events)
			if err != nil {
				return err
			}
			var res *renderResult
			if opts.url != "" {
				res, err = renderRemote(cmd.Context(), opts, script)
			} else {
				res, err = renderLocal(cmd.Context(), opts, script)
			}
			if res != nil {
				if werr := writeRender(cmd.OutOrStdout(), opts, res); werr != nil {
					return werr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "Output format: text or json")
	cmd.Flags().StringSliceVarP(&opts.events, "events", "e", nil, "Scripted events, e.g. click:#inc,input:#new=milk")
	cmd.Flags().StringVar(&opts.codec, "codec", opts.codec, "Wire codec: "+strings.Join(protocol.CodecNames(), " or "))
	cmd.Flags().IntVar(&opts.threshold, "threshold", opts.threshold, "Compress frames at least this large (0 compresses everything, -1 never)")
	cmd.Flags().DurationVar(&opts.wait, "wait", opts.wait, "How long to wait for background tasks after each step")
	cmd.Flags().BoolVar(&opts.html, "html", false, "Print the final document as HTML")
	cmd.Flags().StringVar(&opts.url, "url", "", "Drive a running server at this websocket URL")
	cmd.Flags().StringSliceVar(&opts.todos, "todos", []string{"write spec", "ship it"}, "Initial todo entries")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log runtime activity to stderr")

	return cmd
}

// scriptedEvent is one parsed --events entry.
type scriptedEvent struct {
	Spec   string
	Name   string
	ID     vdom.ElementID // set when the target is numeric
	HTMLID string         // set when the target is #htmlid
	Value  *string
}

func parseScript(specs []string) ([]scriptedEvent, error) {
	out := make([]scriptedEvent, 0, len(specs))
	for _, spec := range specs {
		ev, err := parseEvent(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func parseEvent(spec string) (scriptedEvent, error) {
	bad := func(reason string) (scriptedEvent, error) {
		return scriptedEvent{}, vangoerrors.New("E140").WithDetail(fmt.Sprintf("%q: %s", spec, reason))
	}

	name, target, ok := strings.Cut(strings.TrimSpace(spec), ":")
	if !ok || name == "" {
		return bad("missing event name")
	}
	ev := scriptedEvent{Spec: spec, Name: name}

	if t, v, ok := strings.Cut(target, "="); ok {
		target = t
		ev.Value = &v
	}
	switch {
	case strings.HasPrefix(target, "#"):
		if len(target) == 1 {
			return bad("empty #id")
		}
		ev.HTMLID = target[1:]
	default:
		n, err := strconv.ParseUint(target, 10, 32)
		if err != nil || n == 0 {
			return bad("target must be an element id or #htmlid")
		}
		ev.ID = vdom.ElementID(n)
	}
	return ev, nil
}

// data is the event payload sent for ev.
func (ev scriptedEvent) data() any {
	if ev.Value == nil {
		return nil
	}
	return map[string]any{"value": *ev.Value}
}

// step is one rendered batch as seen by the replaying document.
type step struct {
	Label string   `json:"label"`
	Seq   uint64   `json:"seq"`
	Bytes int      `json:"bytes"`
	Edits []string `json:"edits"`
}

type renderResult struct {
	Codec string `json:"codec"`
	Steps []step `json:"steps"`
	HTML  string `json:"html,omitempty"`
}

// pipeline carries batches from a runtime to a document through the wire
// encoding a live session uses.
type pipeline struct {
	codec     protocol.Codec
	threshold int
	cache     *protocol.TemplateCache
	replayer  *protocol.Replayer
	doc       *render.Document
	seq       uint64
	steps     []step
}

func newPipeline(codecName string, threshold int) (*pipeline, error) {
	codec, err := protocol.CodecByName(codecName)
	if err != nil {
		return nil, err
	}
	return &pipeline{
		codec:     codec,
		threshold: threshold,
		cache:     protocol.NewTemplateCache(),
		replayer:  protocol.NewReplayer(),
		doc:       render.NewDocument(),
	}, nil
}

// push ships m through encode, frame, unframe, decode and replay. Empty
// batches are skipped.
func (p *pipeline) push(label string, m *vdom.Mutations) error {
	if len(m.Edits) == 0 {
		return nil
	}
	b := p.cache.Batch(p.seq+1, m)
	payload, err := p.codec.EncodeBatch(b)
	if err != nil {
		return err
	}
	data := protocol.Pack(protocol.FrameMutations, payload, p.threshold)

	frame, err := protocol.Unpack(data)
	if err != nil {
		return err
	}
	decoded, err := p.codec.DecodeBatch(frame.Payload)
	if err != nil {
		return err
	}
	if err := p.replayer.Apply(decoded, p.doc); err != nil {
		return err
	}
	if err := p.doc.Err(); err != nil {
		return err
	}
	p.seq = b.Seq
	p.steps = append(p.steps, step{Label: label, Seq: b.Seq, Bytes: len(data), Edits: m.Strings()})
	return nil
}

func (p *pipeline) resolve(ev scriptedEvent) (vdom.ElementID, error) {
	if ev.HTMLID == "" {
		return ev.ID, nil
	}
	var found *render.Node
	p.doc.Root().Walk(func(n *render.Node) bool {
		if v, ok := n.Attr("id"); ok && v.String() == ev.HTMLID {
			found = n
			return false
		}
		return true
	})
	if found == nil || found.ID == vdom.RootElement {
		return 0, vangoerrors.New("E140").WithDetail(fmt.Sprintf("%q: no element with id %q", ev.Spec, ev.HTMLID))
	}
	return found.ID, nil
}

func cliLogger(verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func renderLocal(ctx context.Context, opts renderOptions, script []scriptedEvent) (*renderResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := newPipeline(opts.codec, opts.threshold)
	if err != nil {
		return nil, err
	}
	rt := vango.New(demo.App, demo.Props{Todos: opts.todos}, vango.WithLogger(cliLogger(opts.verbose)))
	defer rt.Close()

	result := func() *renderResult {
		res := &renderResult{Codec: p.codec.Name(), Steps: p.steps}
		if opts.html {
			res.HTML = render.HTML(p.doc.Root())
		}
		return res
	}

	var m vdom.Mutations
	if err := rt.Rebuild(&m); err != nil {
		return result(), err
	}
	if err := p.push("rebuild", &m); err != nil {
		return result(), err
	}
	if err := settle(ctx, rt, p, opts.wait); err != nil {
		return result(), err
	}

	for _, ev := range script {
		id, err := p.resolve(ev)
		if err != nil {
			return result(), err
		}
		rt.Dispatch(id, ev.Name, ev.data())
		m, err := rt.RenderImmediateToMutations()
		if perr := p.push(ev.Spec, m); perr != nil {
			return result(), perr
		}
		if err != nil {
			return result(), err
		}
		if err := settle(ctx, rt, p, opts.wait); err != nil {
			return result(), err
		}
	}
	return result(), nil
}

// settle renders task completions until no task is pending or wait
// elapses. Tasks still pending afterwards are left alone.
func settle(ctx context.Context, rt *vango.Runtime, p *pipeline, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	for rt.PendingTasks() > 0 {
		if err := rt.WaitForWork(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		m, err := rt.RenderImmediateToMutations()
		if perr := p.push("task", m); perr != nil {
			return perr
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func renderRemote(ctx context.Context, opts renderOptions, script []scriptedEvent) (*renderResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	c, err := client.Dial(dialCtx, opts.url, client.WithCodec(opts.codec), client.WithAutoAck())
	if err != nil {
		return nil, err
	}
	defer c.Close()

	res := &renderResult{Codec: c.Codec().Name()}
	next := func(label string) error {
		before := c.Stats().BytesIn
		stepCtx, cancel := context.WithTimeout(ctx, opts.wait)
		defer cancel()
		b, err := c.Next(stepCtx)
		if err != nil {
			return err
		}
		edits := make([]string, len(b.Edits))
		for i, e := range b.Edits {
			edits[i] = formatEdit(e)
		}
		res.Steps = append(res.Steps, step{
			Label: label,
			Seq:   b.Seq,
			Bytes: int(c.Stats().BytesIn - before),
			Edits: edits,
		})
		return nil
	}

	err = func() error {
		if err := next("rebuild"); err != nil {
			return err
		}
		for _, ev := range script {
			id := ev.ID
			if ev.HTMLID != "" {
				if id, err = c.Find("id", ev.HTMLID); err != nil {
					return vangoerrors.New("E140").WithDetail(ev.Spec).Wrap(err)
				}
			}
			if err := c.Send(ev.Name, id, ev.data()); err != nil {
				return err
			}
			if err := next(ev.Spec); err != nil {
				return err
			}
		}
		return nil
	}()
	if opts.html {
		res.HTML = c.HTML()
	}
	return res, err
}

// formatEdit renders a wire edit in the same shape vdom.Mutation.String
// uses for the fields that survive the wire.
func formatEdit(e protocol.Edit) string {
	var b strings.Builder
	b.WriteString(e.Op.String())
	if e.ID != 0 {
		fmt.Fprintf(&b, " id=%d", e.ID)
	}
	if e.M != 0 {
		fmt.Fprintf(&b, " m=%d", e.M)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " path=%v", e.Path)
	}
	if e.Op == vdom.OpLoadTemplate {
		fmt.Fprintf(&b, " tmpl=%016x index=%d", e.Template, e.Index)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " name=%s", e.Name)
	}
	if e.Text != "" {
		fmt.Fprintf(&b, " text=%q", e.Text)
	}
	if e.Value != nil {
		fmt.Fprintf(&b, " value=%q", e.Value.Text)
	}
	return b.String()
}

func writeRender(w io.Writer, opts renderOptions, res *renderResult) error {
	switch opts.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "text", "":
		for _, s := range res.Steps {
			fmt.Fprintf(w, "== %s (seq %d, %d bytes, %d edits, %s)\n", s.Label, s.Seq, s.Bytes, len(s.Edits), res.Codec)
			for _, e := range s.Edits {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		if res.HTML != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, res.HTML)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", opts.format)
	}
}
