// Package main is the entry point for jsonedit, a command line editor for
// JSON configuration files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/dshills/jsonedit/internal/config"
	"github.com/dshills/jsonedit/internal/logging"
	"github.com/dshills/jsonedit/internal/project/vfs"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errUsage is returned for malformed command lines; usage was already shown.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// globalOptions are the flags accepted before the command name.
type globalOptions struct {
	configPath  string
	logLevel    string
	color       string
	showVersion bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts globalOptions
	fs := flag.NewFlagSet("jsonedit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", config.DefaultPath(), "Path to configuration file")
	fs.StringVar(&opts.configPath, "c", config.DefaultPath(), "Path to configuration file (shorthand)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.color, "color", "", "Color output (auto, always, never)")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.showVersion, "v", false, "Show version information (shorthand)")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "jsonedit %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Level(),
		Format: cfg.LogFormat(),
		Output: stderr,
		Name:   "jsonedit",
	})
	defer func() { _ = logger.Sync() }()

	a := &app{
		cfg:    cfg,
		fsys:   vfs.NewOSFS(),
		log:    logger,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		color:  useColor(cfg.Output.Color, stdout),
	}
	color.NoColor = !a.color

	cmdName, cmdArgs := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", cmdName)
		fs.Usage()
		return 2
	}

	if err := cmd.run(ctx, a, cmdArgs); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		logger.Debug("command failed", zap.String("command", cmdName), zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(opts globalOptions) (config.Config, error) {
	cfg, err := config.Load(vfs.NewOSFS(), opts.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	// Flags override file and environment.
	if opts.logLevel != "" {
		switch opts.logLevel {
		case "debug", "info", "warn", "error":
			cfg.Log.Level = opts.logLevel
		default:
			return cfg, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", opts.logLevel)
		}
	}
	if opts.color != "" {
		cfg.Output.Color = opts.color
	}
	return cfg, cfg.Validate()
}

// useColor resolves a color mode against the output device.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, "jsonedit - edit JSON files from the command line\n\n")
	fmt.Fprintf(w, "Usage: jsonedit [options] <command> [command options] <file> [args]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "\nOptions:\n")
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  jsonedit show package.json\n")
	fmt.Fprintf(w, "  jsonedit get package.json scripts.build\n")
	fmt.Fprintf(w, "  jsonedit set -w app.json overrides.yaml\n")
	fmt.Fprintf(w, "  echo '{\"plugins\":[\"x\"]}' | jsonedit merge app.json -\n")
}
