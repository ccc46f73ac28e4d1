package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vango-core/internal/config"
	"github.com/vango-dev/vango-core/internal/demo"
	"github.com/vango-dev/vango-core/pkg/server"
)

type serveOptions struct {
	configPath string
	addr       string
	codec      string
	metrics    bool
	quoteDelay time.Duration
	todos      []string
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo application over liveview",
		Long: `Start the liveview host with the demo application.

Configuration is read from --config, or from vango.json / vango.yaml in the
current directory when present. Flags override the file.

Examples:
  vango serve
  vango serve --addr=127.0.0.1:3000 --codec=cbor
  vango serve --config=deploy/vango.yaml --metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(opts)
			if err != nil {
				return err
			}
			return runServe(cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to vango.json or vango.yaml")
	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "Address to listen on (default from config)")
	cmd.Flags().StringVar(&opts.codec, "codec", "", "Default wire codec (default from config)")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Serve Prometheus metrics at /metrics")
	cmd.Flags().DurationVar(&opts.quoteDelay, "quote-delay", 500*time.Millisecond, "Delay of the demo's suspended quote panel")
	cmd.Flags().StringSliceVar(&opts.todos, "todos", []string{"write spec", "ship it"}, "Initial todo entries")

	return cmd
}

// loadServeConfig resolves the configuration file and applies flag
// overrides. The result is validated.
func loadServeConfig(opts serveOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case opts.configPath != "":
		cfg, err = config.LoadFile(opts.configPath)
	case config.Exists("."):
		cfg, err = config.Load(".")
	default:
		cfg = config.New()
	}
	if err != nil {
		return nil, err
	}

	if opts.addr != "" {
		cfg.Server.Address = opts.addr
	}
	if opts.codec != "" {
		cfg.Server.Codec = opts.codec
	}
	if opts.metrics {
		cfg.Observability.Metrics = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cfg *config.Config, opts serveOptions) error {
	logger := cfg.Logger(os.Stderr)
	sc, err := cfg.ServerConfig(logger)
	if err != nil {
		return err
	}

	printBanner()
	fmt.Println("  serve")
	fmt.Println()
	success("Listening on %s", cfg.Server.Address)
	info("liveview:  %s (codec %s)", cfg.Server.WSPath, cfg.Server.Codec)
	if cfg.Observability.Metrics {
		info("metrics:   /metrics")
	}
	if cfg.Path() != "" {
		info("config:    %s", cfg.Path())
	} else {
		warn("No vango.json found, using defaults")
	}
	fmt.Println()

	srv := server.New(server.Mount(demo.App, demo.Props{
		Title:      sc.Title,
		Todos:      opts.todos,
		QuoteDelay: opts.quoteDelay,
	}), sc)
	return srv.Run()
}
