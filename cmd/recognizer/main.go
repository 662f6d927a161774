// Batch recognizer - reads every hand screenshot in a directory and prints its cards
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/wetcoding/cardrecognizer/internal/app"
	"github.com/wetcoding/cardrecognizer/internal/batch"
	"github.com/wetcoding/cardrecognizer/internal/config"
)

func main() {
	fs := pflag.NewFlagSet("recognizer", pflag.ExitOnError)
	config.RegisterFlags(fs)
	printHashes := fs.Bool("print-hashes", false, "print every template fingerprint and exit")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: recognizer [flags] <hands-dir>")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *printHashes {
		_, lib, err := app.LoadLibrary(ctx, cfg)
		if err != nil {
			slog.Error("failed to load templates", "error", err)
			os.Exit(1)
		}
		for _, label := range lib.Labels() {
			fps, _ := lib.Fingerprints(label)
			for i, fp := range fps {
				fmt.Printf("%s\t%d\t%s\n", label, i, fp)
			}
		}
		return
	}

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	a, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	dir := fs.Arg(0)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	fmt.Printf("Starting cards recognition for directory [%s]\n", dir)
	report, err := batch.NewRunner(a.Recognizer, cfg.Workers).Run(ctx, dir)
	if err != nil {
		slog.Error("recognition failed", "dir", dir, "error", err)
		os.Exit(1)
	}

	for _, img := range report.Images {
		if img.Skipped() {
			continue
		}
		fmt.Printf("%s - %s\n", filepath.Base(img.Path), img.Hand)
	}
	fmt.Printf("Recognition complete, unrecognized: %d\n", report.Unrecognized)
	if report.Skipped > 0 {
		slog.Info("images skipped", "count", report.Skipped)
	}
}
