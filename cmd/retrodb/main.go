// Package main is the retrodb CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/retrodb"
	"github.com/hupe1980/retrodb/internal/config"
)

var version = "dev"

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, env *env, args []string) error
}

var commands = []command{
	{"build", "build an indexed dataset from JSON lines of token ids", runBuild},
	{"inspect", "print the layout of a dataset or knn table", runInspect},
	{"verify", "check an index, its data file and optional knn table", runVerify},
	{"knn-merge", "concatenate contiguous knn shards", runKNNMerge},
	{"publish", "upload a dataset to the configured store", runPublish},
	{"fetch", "download and verify a published corpus", runFetch},
	{"list", "list published corpora", runList},
	{"delete", "remove a published corpus", runDelete},
}

// env carries what every command needs.
type env struct {
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	logger *retrodb.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "retrodb version %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	}

	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		rest, cfg, err := loadConfig(args[1:])
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return 1
		}
		e := &env{stdout: stdout, stderr: stderr, cfg: cfg, logger: newLogger(cfg, stderr)}
		if err := c.run(ctx, e, rest); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", c.name, err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
	printUsage(stderr)
	return 2
}

// loadConfig strips a leading -config flag from args and loads the file,
// or the defaults when none is given.
func loadConfig(args []string) ([]string, *config.Config, error) {
	path := os.Getenv("RETRODB_CONFIG")
	if len(args) >= 2 && (args[0] == "-config" || args[0] == "--config") {
		path, args = args[1], args[2:]
	}
	if path == "" {
		return args, config.Default(), nil
	}
	cfg, err := config.Load(path)
	return args, cfg, err
}

func newLogger(cfg *config.Config, w io.Writer) *retrodb.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return retrodb.NewLogger(slog.NewJSONHandler(w, opts))
	}
	return retrodb.NewLogger(slog.NewTextHandler(w, opts))
}

func newFlagSet(e *env, name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: retrodb %s [-config file] %s\n\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: retrodb <command> [-config file] [flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.usage)
	}
	fmt.Fprintf(w, "  %-10s %s\n", "version", "print the version")
	fmt.Fprintf(w, "\nThe config file may also be given through RETRODB_CONFIG.\n")
}
