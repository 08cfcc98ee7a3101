// Package cli implements the lognorm command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/lognorm/internal/config"
	"github.com/telhawk-systems/lognorm/internal/logging"
	"github.com/telhawk-systems/lognorm/pkg/color"
	"github.com/telhawk-systems/lognorm/pkg/output"
)

// Version is overridden at build time with -ldflags.
var Version = "0.1.0"

// app carries the state shared by every command of one invocation.
type app struct {
	cfgFile  string
	outFmt   string
	logLevel string
	noColor  bool

	cfg     *config.Config
	printer *output.Printer
	logger  *logging.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewRootCmd builds the command tree bound to the given streams.
func NewRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "lognorm",
		Short: "Normalize uploaded security logs",
		Long: `lognorm converts raw log text (JSON lines, CSV, web access logs or
free-form text) into uniform records you can filter, page and forward.

Records can be published to NATS, indexed into OpenSearch and summarized as
Prometheus metrics. Scan results are kept in a short rolling history.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.lognorm/config.yaml)")
	pf.StringVarP(&a.outFmt, "output", "o", "table", "output format: table, json, yaml")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newParseCmd(a),
		newFormatsCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		fmt.Fprintf(a.stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.logger = logging.NewWithWriter(a.stderr, logging.ParseLevel(level), cfg.Logging.Format)

	if a.noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	format, err := output.ParseFormat(a.outFmt)
	if err != nil {
		return err
	}
	a.printer = output.New(a.stdout, a.stderr, format)
	return nil
}

// Execute runs the CLI against the process streams.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		output.New(os.Stdout, os.Stderr, output.FormatTable).Error("%v", err)
		return err
	}
	return nil
}
