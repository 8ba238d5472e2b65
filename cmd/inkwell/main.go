// Package main is the entry point for the inkwell editor core.
//
// inkwell loads a document, runs editor commands and key chords against it
// and prints the result. With a collaboration hub and --serve it keeps
// serving websocket observers until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dshills/inkwell/internal/app"
	"github.com/dshills/inkwell/internal/content"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type cliOptions struct {
	app          app.Options
	input        string
	inputFormat  string
	outputFormat string
	exec         []string
	serve        bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, done, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if done {
		return 0
	}

	inFormat, err := content.ParseFormat(opts.inputFormat)
	if err != nil {
		fmt.Fprintf(stderr, "Error: --input-format: %v\n", err)
		return 2
	}
	outFormat, err := content.ParseFormat(opts.outputFormat)
	if err != nil {
		fmt.Fprintf(stderr, "Error: --format: %v\n", err)
		return 2
	}
	steps, err := app.ParseSteps(opts.exec)
	if err != nil {
		fmt.Fprintf(stderr, "Error: --exec: %v\n", err)
		return 2
	}

	opts.app.LogOutput = stderr
	application, err := app.New(opts.app)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if opts.input != "" {
		if err := loadInput(application, opts.input, inFormat, stdin); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	if err := application.Run(steps); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := application.WriteDocument(stdout, outFormat); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout)

	if opts.serve {
		if application.Addr() == "" {
			fmt.Fprintln(stderr, "Error: --serve needs rtc.hub and collab.listen")
			return 1
		}
		fmt.Fprintf(stderr, "serving observers on %s\n", application.Addr())
		<-ctx.Done()
	}

	return 0
}

func loadInput(application *app.Application, path string, f content.Format, stdin io.Reader) error {
	if path == "-" {
		return application.LoadDocument(stdin, f)
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return application.LoadDocument(file, f)
}

// parseFlags parses args. done reports that help or version was printed.
func parseFlags(args []string, stderr io.Writer) (opts cliOptions, done bool, err error) {
	var (
		logLevel    string
		rtcScript   string
		hub         bool
		listen      string
		showVersion bool
	)

	fs := pflag.NewFlagSet("inkwell", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.app.ConfigPath, "config", "c", "", "Path to a TOML or YAML configuration file")
	fs.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&rtcScript, "rtc-script", "", "Lua collaboration script")
	fs.BoolVar(&hub, "hub", false, "Run the in-process collaboration hub")
	fs.StringVar(&listen, "listen", "", "Address serving hub observers over websocket")
	fs.BoolVar(&opts.serve, "serve", false, "Keep serving observers after the document is printed")
	fs.StringVarP(&opts.input, "input", "i", "", "Document to load (- for stdin)")
	fs.StringVar(&opts.inputFormat, "input-format", "html", "Input format (html, raw, text, markdown)")
	fs.StringSliceVarP(&opts.exec, "exec", "e", nil, `Steps to run: "Command name=value" or "key:Ctrl+B"`)
	fs.StringVarP(&opts.outputFormat, "format", "f", "html", "Output format (html, raw, text)")
	fs.BoolVar(&opts.app.NoEnv, "no-env", false, "Ignore INKWELL_ environment variables")
	fs.BoolVarP(&showVersion, "version", "v", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "inkwell - rich text editor core\n\n")
		fmt.Fprintf(stderr, "Usage: inkwell [options]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  inkwell -i doc.html -e SelectAll,Bold\n")
		fmt.Fprintf(stderr, "  inkwell -i - --input-format text -f html < notes.txt\n")
		fmt.Fprintf(stderr, "  inkwell --hub --listen :8080 --serve -i doc.html\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return opts, true, nil
		}
		return opts, false, err
	}

	if showVersion {
		fmt.Fprintf(stderr, "inkwell %s\n", version)
		fmt.Fprintf(stderr, "Commit: %s\n", commit)
		fmt.Fprintf(stderr, "Built: %s\n", date)
		return opts, true, nil
	}

	if fs.NArg() > 0 {
		return opts, false, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	overrides := make(map[string]any)
	if fs.Changed("log-level") {
		overrides["logging.level"] = logLevel
	}
	if fs.Changed("rtc-script") {
		overrides["rtc.script"] = rtcScript
	}
	if fs.Changed("hub") {
		overrides["rtc.hub"] = hub
	}
	if fs.Changed("listen") {
		overrides["collab.listen"] = listen
	}
	if len(overrides) > 0 {
		opts.app.Overrides = overrides
	}

	return opts, false, nil
}
