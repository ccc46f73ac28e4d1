package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ╦┌─┐┌┐┌┌─┐┌─┐
  ╚╗╔╝├─┤│││├─┤│ │
   ╚╝ ┴ ┴┘└┘┴ ┴└─┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "vango",
		Short: "Template-based UI reconciliation for Go",
		Long: `Vango renders component trees on the server and streams the
minimal DOM edits to a renderer over a WebSocket. Features include:

  • Components with hooks, memoized props and keyed lists
  • Suspense and error boundaries
  • Binary and CBOR wire codecs with zstd compression
  • Headless rendering and a liveview load generator`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		renderCmd(),
		benchCmd(),
		versionCmd(),
	)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the Vango ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
