// =============================================================================
// avr-lint - Main Entry Point
// =============================================================================
//
// Checks embedded C for AVR microcontrollers line by line and proposes fixes.
//
// THE PIPELINE (per file):
//   1. Extractor collects includes, functions and variables
//   2. Rule engine runs the detectors over every line, in order
//   3. In-place fixes are applied and the result is re-indented
//   4. Metrics and the code profile summarise the run
//   5. CUE validator enforces the report contract
//   6. OPA evaluates the gate policy (error/warning budget)
//
// Exit status: 0 when every file passes the gate, 1 when any fails, 2 on
// usage, configuration or I/O errors.
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/robert-at-pretension-io/avr-lint/internal/config"
)

const (
	exitOK         = 0
	exitGateFailed = 1
	exitUsage      = 2
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// exitError carries a process exit status. A nil err means the output has
// already told the user what happened.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error {
	return &exitError{code: exitUsage, err: err}
}

// app holds the streams and global flags shared by all commands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	color      string
	verbose    bool
	quiet      bool

	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and maps the outcome to an exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(&app{stdin: stdin, stdout: stdout, stderr: stderr})
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitUsage
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "avr-lint",
		Short: "Static checker and fixer for AVR embedded C",
		Long: `avr-lint checks AVR microcontroller C sources for missing includes, register
misuse, long busy-wait delays, misspelled identifiers, missing semicolons and
unsafe infinite loops, proposes fixes and reports code metrics.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.verbose && a.quiet {
				return usageError(errors.New("--verbose and --quiet cannot be used together"))
			}
			a.logger = newLogger(a.stderr, a.verbose, a.quiet)
			return nil
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default: search avr_lint.json / avr_lint.toml)")
	root.PersistentFlags().StringVar(&a.color, "color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log pipeline phases")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "log errors only")

	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newSymbolsCmd(a))
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newVersionCmd(a))

	return root
}

func newLogger(w io.Writer, verbose, quiet bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads --config when given, otherwise searches from root.
func (a *app) loadConfig(root string) (*config.Config, error) {
	if a.configPath != "" {
		cfg, err := config.LoadFile(a.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", a.configPath, err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// colorEnabled resolves --color against the output stream.
func (a *app) colorEnabled() (bool, error) {
	switch a.color {
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	case "auto", "":
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		f, ok := a.stdout.(*os.File)
		return ok && isTerminal(f), nil
	}
	return false, fmt.Errorf("unknown --color value %q (want auto, on or off)", a.color)
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
