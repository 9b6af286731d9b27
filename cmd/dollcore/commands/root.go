package commands

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool

	// logLevel is shared between the startup handler and the console
	// handler installed by the run command.
	logLevel slog.LevelVar
)

var rootCmd = &cobra.Command{
	Use:   "dollcore [blob-path]",
	Short: "Device control core for the Arunika talking doll",
	Long: `dollcore - device control core for the Arunika talking doll.

Runs the doll firmware lifecycle on a host: press to record, stream the
microphone to the cloud endpoint over the duplex WebSocket channel, play
the reply. Audio comes from real host hardware (miniaudio) or a fully
scripted mock set.

The device identity lives in a CRC-protected binary blob, by default
~/.dollcore/config.bin; a positional argument overrides the path.
Lifecycle transitions are journaled under ~/.dollcore/journal.

The log level comes from DOLLCORE_LOG (off|error|info|debug, default
info). A .env file in the working directory is loaded first.

Examples:
  # Run with mocked hardware and an interactive console
  dollcore run --backend mock --console

  # Provision a blob, then run against it
  dollcore config init --ssid Home --passphrase secret
  dollcore run

  # Inspect the last journal records
  dollcore events -n 20`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runDevice,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// The bare command runs the device loop, so it takes the run flags too.
	addRunFlags(rootCmd)
}

// initLogging installs a text handler on stderr at the DOLLCORE_LOG level.
// The run console later points the same level var at its own sink.
func initLogging() {
	w := io.Writer(os.Stderr)
	switch strings.ToLower(os.Getenv("DOLLCORE_LOG")) {
	case "off":
		w = io.Discard
	case "error":
		logLevel.Set(slog.LevelError)
	case "debug":
		logLevel.Set(slog.LevelDebug)
	default:
		logLevel.Set(slog.LevelInfo)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &logLevel})))
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
