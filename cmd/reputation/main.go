// Command reputation generates a reputation report from the command line.
//
// Usage:
//
//	reputation -name "Jane Doe"
//	reputation -name "Jane Doe" -handle github=janedoe -handle twitter=janedoe
//	reputation -name "Jane Doe" -photo ./jane.jpg
//
// Credentials come from REPUTATION_* environment variables; sources
// without credentials are skipped.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/moxie99/ai-reputation/pkg/config"
	"github.com/moxie99/ai-reputation/pkg/person"
	"github.com/moxie99/ai-reputation/pkg/pipeline"
)

type handleFlags map[string]string

func (h handleFlags) String() string {
	var pairs []string
	for k, v := range h {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (h handleFlags) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok || k == "" || v == "" {
		return fmt.Errorf("expected platform=handle, got %q", value)
	}
	h[k] = v
	return nil
}

func main() {
	name := flag.String("name", "", "full name of the person (required)")
	email := flag.String("email", "", "email address for disambiguation")
	photoPath := flag.String("photo", "", "path to a reference photo for identity matching")
	debug := flag.Bool("debug", false, "enable debug logging")
	handles := handleFlags{}
	flag.Var(handles, "handle", "known social handle as platform=handle (repeatable)")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "Usage: reputation -name \"Full Name\" [options]")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := run(*name, *email, *photoPath, handles, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(name, email, photoPath string, handles map[string]string, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// The CLI is one-shot; session history is not useful here.
	cfg.StorePath = ""

	target := person.Target{Name: name, Email: email}
	if len(handles) > 0 {
		target.Handles = handles
	}
	if photoPath != "" {
		photo, err := os.ReadFile(photoPath)
		if err != nil {
			return fmt.Errorf("read photo: %w", err)
		}
		target.Photo = photo
	}

	ctx := context.Background()
	p, _, err := pipeline.FromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}

	report, err := p.Generate(ctx, target)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
