// mixin CLI - demonstrates and exercises the composable object runtime
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/chazu/mixin/config"
	"github.com/chazu/mixin/journal"
	"github.com/chazu/mixin/vm"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var log = sync.OnceValue(func() commonlog.Logger {
	return commonlog.GetLogger("mixin.cli")
})

// options are the global flags after merging with mixin.toml.
type options struct {
	cfg     *config.Config
	format  string
	journal string
	stdout  io.Writer
	stderr  io.Writer
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mixin", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to mixin.toml (default: search upward from the working directory)")
	verbosity := fs.Int("v", 0, "Log verbosity: -4 silent, 0 notice, 2 debug")
	logFile := fs.String("log", "", "Write logs to this file instead of stderr")
	journalPath := fs.String("journal", "", "Record lifecycle events to this sqlite journal")
	strict := fs.Bool("strict", false, "Panic on runtime invariant violations")
	format := fs.String("format", "text", "Output format: text or cbor")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: mixin [options] <command> [args]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  demo               Compose an Animal into a Dog and inspect each step\n")
		fmt.Fprintf(stderr, "  stress [-n N] [-iterations M]\n")
		fmt.Fprintf(stderr, "                     Race reference counting across goroutines\n")
		fmt.Fprintf(stderr, "  journal [session]  List journal sessions, or the events of one\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  mixin demo\n")
		fmt.Fprintf(stderr, "  mixin -journal trace.db -v 2 stress -n 32\n")
		fmt.Fprintf(stderr, "  mixin -journal trace.db journal\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// Flags given on the command line win over the file.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["v"] {
		cfg.Log.Verbosity = *verbosity
	}
	if set["log"] {
		cfg.Log.File = *logFile
	}
	if set["journal"] {
		cfg.Journal.Path = *journalPath
	}
	if set["strict"] {
		cfg.Runtime.Strict = strict
	}

	if *format != "text" && *format != "cbor" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n", *format)
		return 2
	}

	if set["log"] {
		commonlog.Configure(cfg.Log.Verbosity, logFile)
	} else if path := cfg.LogFile(); path != "" {
		commonlog.Configure(cfg.Log.Verbosity, &path)
	} else {
		commonlog.Configure(cfg.Log.Verbosity, nil)
	}
	vm.SetStrict(cfg.StrictMode(vm.Strict()))

	opts := &options{
		cfg:     cfg,
		format:  *format,
		journal: cfg.JournalPath(),
		stdout:  stdout,
		stderr:  stderr,
	}
	if set["journal"] {
		opts.journal = *journalPath
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "demo":
		err = runDemo(opts)
	case "stress":
		err = runStress(ctx, opts, rest)
	case "journal":
		err = runJournal(opts, rest)
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}
	if err != nil {
		log().Errorf("%s: %s", cmd, err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Default(), nil
	}
	return config.FindAndLoad(wd)
}

// openSpace returns a Space that journals its events when a journal path
// is configured. The returned close function flushes and closes the
// journal.
func openSpace(opts *options) (*vm.Space, func() error, error) {
	if opts.journal == "" {
		return vm.NewSpace(), func() error { return nil }, nil
	}
	j, err := journal.Open(opts.journal)
	if err != nil {
		return nil, nil, err
	}
	fmt.Fprintf(opts.stderr, "Journal session %s\n", j.Session())
	closer := func() error {
		traceErr := j.Err()
		closeErr := j.Close()
		if traceErr != nil {
			return fmt.Errorf("journal: %w", traceErr)
		}
		return closeErr
	}
	return vm.NewSpace(vm.WithTracer(j)), closer, nil
}
