package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ammeterqa/ammqa/pkg/config"
	"github.com/ammeterqa/ammqa/pkg/emulator"
)

func main() {
	var (
		configPath string
		seed       int64
	)
	pflag.StringVarP(&configPath, "config", "c", "", "path to YAML config (defaults to built-in registry)")
	pflag.Int64Var(&seed, "seed", 0, "seed for reproducible readings (0 = random)")
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

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	registry, err := cfg.Registry()
	if err != nil {
		fmt.Printf("Invalid configuration: %s\n", err)
		os.Exit(1)
	}

	var emulators []*emulator.Emulator
	for _, t := range registry.Types() {
		ep, _ := registry.Lookup(t)
		opts := []emulator.EmulatorOption{emulator.WithEmulatorLogger(log)}
		if seed != 0 {
			opts = append(opts, emulator.WithSeed(seed))
		}
		em, err := emulator.New(ep.Device, opts...)
		if err != nil {
			fmt.Printf("Could not create %s emulator: %s\n", t, err)
			os.Exit(1)
		}
		if err := em.Start(fmt.Sprintf(":%d", ep.Port)); err != nil {
			fmt.Printf("Could not start %s emulator: %s\n", t, err)
			os.Exit(1)
		}
		emulators = append(emulators, em)
	}

	fmt.Println("Ammeter emulators are running. Press Ctrl+C to stop.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println("Shutting down emulators...")
	for _, em := range emulators {
		_ = em.Close()
	}
}
