package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/samaelod/spy/config"
	"github.com/samaelod/spy/engine"
	"github.com/samaelod/spy/tui"
)

const usage = `Usage: spy <host> <port> [<host> <port>] [<host> <port>]

       The first two addresses are pure listening, the
       third address is used to ping the interface destination
       and needs a loopback adaptor to work.
`

// NewRootCommand builds the spy command. Dumps and log lines go to the
// command's error stream; usage text goes to its output stream.
func NewRootCommand(version string) *cobra.Command {
	opts := config.Default()

	cmd := &cobra.Command{
		Use:   "spy <host> <port> [<host> <port>] [<host> <port>]",
		Short: "Hex dump raw traffic from up to three TCP endpoints",
		Long: `spy connects to up to three TCP endpoints, typically serial ports bridged
by a terminal server, and prints every read as a timestamped hex/ASCII dump.

The first pair is dumped in red with " >>> ", the second in green with " <<< ".
The third pair is dumped in cyan with " --- " and is sent a '*' probe byte
before every read, which needs a loopback adaptor on the far side.

There is no retry: a session whose connection fails or closes stays down
while the others keep running.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			_, err := config.Endpoints(args)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args, cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Color, "color", opts.Color, "color dumps: always, never or auto")
	f.IntVar(&opts.BufferSize, "buffer-size", opts.BufferSize, "read buffer size in bytes")
	f.DurationVar(&opts.KeepAliveInterval, "keepalive-interval", opts.KeepAliveInterval, "pause between probes on the third endpoint")
	f.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "log level for session events (debug, info, warn, error)")
	f.BoolVar(&opts.TUI, "tui", opts.TUI, "show dumps in an interactive viewer")

	return cmd
}

// Execute runs the command with the process arguments and returns the exit
// status.
func Execute(version string) int {
	return ExecuteArgs(context.Background(), version, os.Args[1:], os.Stdout, os.Stderr)
}

func ExecuteArgs(ctx context.Context, version string, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(version)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, config.ErrArgCount) {
			fmt.Fprint(stdout, usage)
			return 1
		}
		fmt.Fprintf(stderr, "spy: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, opts *config.Options, args []string, stderr io.Writer) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	eps, err := config.Endpoints(args)
	if err != nil {
		return err
	}
	level, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	color := opts.UseColor(stderr)
	sink := stderr
	var backlog *engine.Backlog
	if opts.TUI {
		backlog = engine.NewBacklog(0)
		sink = backlog
	}

	var ropts []engine.RendererOption
	if opts.TUI {
		ropts = append(ropts, engine.WithLineColor())
	}
	renderer := engine.NewRenderer(sink, color, ropts...)

	logger := log.New()
	logger.SetOutput(renderer.Writer())
	logger.SetLevel(level)
	logger.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		DisableColors: !color,
	})

	eng := engine.New(eps, renderer, engine.SessionOptions{
		BufferSize:        opts.BufferSize,
		KeepAliveInterval: opts.KeepAliveInterval,
		Logger:            logger,
	})

	if opts.TUI {
		return tui.Run(ctx, eng, backlog)
	}
	return eng.Run(ctx)
}
