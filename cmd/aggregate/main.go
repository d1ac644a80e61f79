// Command aggregate merges scan snapshot files into one inventory document.
//
// Usage:
//
//	aggregate [flags] FILE|DIR...
//
// Exit status is 1 when no input could be loaded or the merge failed, and 2
// on usage errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"netcensus/internal/codec"
	"netcensus/internal/config"
	"netcensus/internal/core/aggregate"
	"netcensus/internal/loader"
	"netcensus/internal/logger"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("aggregate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	output := fs.String("o", "merged_scan.json", "output file, - for stdout")
	format := fs.String("format", "", "output format: json or yaml (default from config)")
	noTrust := fs.Bool("no-trust-preference", false, "rank records by confidence only, ignoring snapshot provenance")
	configPath := fs.String("config", "", "config file (default: search standard locations)")
	logLevel := fs.String("log-level", "", "log level override")
	jsonLogs := fs.Bool("log-json", false, "write logs as JSON instead of console text")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: aggregate [flags] FILE|DIR...\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "aggregate: %v\n", err)
		return exitUsage
	}

	logCfg := cfg.Logging
	if !*jsonLogs {
		logCfg.Format = logger.FormatConsole
	}
	if *logLevel != "" {
		logCfg.Level = *logLevel
	}
	log, err := logger.NewWithWriter(logCfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "aggregate: %v\n", err)
		return exitUsage
	}

	if *format == "" {
		*format = cfg.Output.Format
	}
	enc, err := codec.EncoderFor(*format)
	if err != nil {
		log.Error().Err(err).Msg("invalid output format")
		return exitUsage
	}

	weights := cfg.Scoring
	if *noTrust {
		weights = weights.WithoutTrustPreference()
	}

	loadOpts := []loader.Option{
		loader.WithClassifier(loader.NewClassifier(cfg.Provenance.Default, cfg.Provenance.Rules)),
		loader.WithMaxConcurrent(cfg.Snapshots.MaxConcurrentParse),
		loader.WithLogger(logger.WithComponent(log, "loader")),
	}
	if *output != "-" {
		loadOpts = append(loadOpts, loader.WithExclude(*output))
	}
	ld := loader.New(loadOpts...)
	result, err := ld.Load(ctx, fs.Args()...)
	if err != nil {
		log.Error().Err(err).Msg("failed to load snapshots")
		return exitError
	}
	for _, rej := range result.Rejected {
		log.Warn().Str("path", rej.Path).Err(rej.Err).Msg("skipping input")
	}

	engine := aggregate.New(
		aggregate.WithWeights(weights),
		aggregate.WithVersion(cfg.Output.Version),
		aggregate.WithLogger(logger.WithComponent(log, "aggregate")),
	)
	inv, err := engine.Aggregate(result.Snapshots)
	if err != nil {
		if errors.Is(err, aggregate.ErrNoValidInput) {
			log.Error().Msg("no valid input files found")
		} else {
			log.Error().Err(err).Msg("merge failed")
		}
		return exitError
	}

	if err := writeOutput(*output, stdout, func(w io.Writer) error { return enc.Encode(inv, w) }); err != nil {
		log.Error().Err(err).Str("output", *output).Msg("failed to write inventory")
		return exitError
	}

	log.Info().
		Int("files", len(result.Snapshots)).
		Int("rejected", len(result.Rejected)).
		Int("devices", inv.TotalDevices).
		Str("output", *output).
		Msg("merged scan files")
	return exitOK
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, _, err := config.LoadFromPath(path)
		return cfg, err
	}
	cfg, _, err := config.Load()
	return cfg, err
}

// writeOutput replaces path with the encoded document in one rename.
// A path of "-" writes to stdout.
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
