// nlexport merges NetLogo plots, world and BehaviorSpace exports into one
// analysis-ready table.
//
// Usage:
//
//	nlexport [flags] FILE[:SKIP]...
//
// Each FILE may carry a :SKIP suffix that drops that many rows from the
// front of its table. "-" reads standard input. Options may also come from
// NLEXPORT_* environment variables or a YAML job file given with
// --manifest; flags win over the job file, which wins over the environment.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/nlexport/internal/config"
	"github.com/JonMunkholm/nlexport/internal/core"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// usageError marks problems with the command line itself.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	// A missing .env is normal; real environment variables win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var ue *usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(os.Stderr, "nlexport: %v\nRun 'nlexport --help' for usage.\n", err)
			os.Exit(2)
		}
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "nlexport: %v\n", err)
		if msg := core.MapError(err); core.IsUserFacing(err) {
			fmt.Fprintf(os.Stderr, "%s (Code: %s). %s\n", msg.Message, msg.Code, msg.Action)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var f flags
	fs := f.register(cfg, stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return &usageError{err: err}
	}
	if f.version {
		fmt.Fprintf(stdout, "nlexport %s\n", version)
		return nil
	}

	job, err := f.resolve(fs, fs.Args())
	if err != nil {
		return err
	}
	return job.run(ctx, cfg, stdout, stderr)
}
