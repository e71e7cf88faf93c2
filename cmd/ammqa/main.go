package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ammeterqa/ammqa/pkg/bench"
	"github.com/ammeterqa/ammqa/pkg/config"
	"github.com/ammeterqa/ammqa/pkg/device"
	"github.com/ammeterqa/ammqa/pkg/report"
)

func main() {
	var (
		configPath string
		deviceType string
		resultsDir string
		wait       time.Duration
		verbose    bool
	)
	pflag.StringVarP(&configPath, "config", "c", "", "path to YAML config (defaults to built-in registry)")
	pflag.StringVarP(&deviceType, "device", "d", "", "device type to test (default: all registered types)")
	pflag.StringVar(&resultsDir, "results", "", "override the results directory")
	pflag.DurationVar(&wait, "wait", 5*time.Second, "how long to wait for devices to become reachable")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	pflag.Parse()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Could not load configuration: %s\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if resultsDir != "" {
		cfg.Results.Path = resultsDir
	}

	log := zap.NewNop()
	if verbose {
		log, _ = zap.NewDevelopment()
	}
	defer log.Sync()

	registry, err := cfg.Registry()
	if err != nil {
		fmt.Printf("Invalid configuration: %s\n", err)
		os.Exit(1)
	}
	opts, err := cfg.BenchOptions()
	if err != nil {
		fmt.Printf("Invalid configuration: %s\n", err)
		os.Exit(1)
	}
	b, err := bench.New(registry, append(opts, bench.WithLogger(log))...)
	if err != nil {
		fmt.Printf("Could not create bench: %s\n", err)
		os.Exit(1)
	}
	store, err := report.NewStore(cfg.Results.Path)
	if err != nil {
		fmt.Printf("Could not open results store: %s\n", err)
		os.Exit(1)
	}

	types := registry.Types()
	if deviceType != "" {
		types = []string{deviceType}
	}

	ctx := context.Background()
	failed := false
	for _, t := range types {
		if ep, ok := registry.Lookup(t); ok {
			if err := device.WaitReady(ctx, ep.Addr(), wait); err != nil {
				fmt.Printf("Warning: %s\n", err)
			}
		}

		fmt.Printf("Testing %s ammeter...\n", t)
		rec, err := b.RunTest(ctx, t)
		if err != nil {
			var verr *bench.ValidationError
			if errors.As(err, &verr) {
				fmt.Printf("Error: %s\n", verr)
				os.Exit(1)
			}
			fmt.Printf("Run against %s failed: %s\n", t, err)
			failed = true
			continue
		}

		path, err := store.Save(rec)
		if err != nil {
			fmt.Printf("Could not save result: %s\n", err)
			failed = true
			continue
		}

		a := rec.Analysis
		fmt.Printf("\nResults for %s (run %s):\n", t, rec.Metadata.RunID)
		fmt.Printf("  Samples: %d (%d failures)\n", a.Count, len(rec.Measurements)-a.Count)
		fmt.Printf("  Mean current: %.3f A\n", a.Mean)
		fmt.Printf("  Standard deviation: %.3f A\n", a.StdDev)
		if a.CI != nil {
			fmt.Printf("  %.0f%% confidence interval: [%.3f, %.3f]\n", a.CI.Level*100, a.CI.Lower, a.CI.Upper)
		}
		fmt.Printf("  Reliability score: %.3f\n", a.ReliabilityScore)
		fmt.Printf("  Saved to %s\n\n", path)
	}

	if failed {
		os.Exit(1)
	}
}
