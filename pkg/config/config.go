// Package config loads the bench configuration from YAML: the device
// registry, sampling parameters, analysis options and the fault-injection
// block.  The core packages never read configuration themselves; they
// receive the registry and options built here.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-yaml/yaml"

	"github.com/ammeterqa/ammqa/pkg/bench"
	"github.com/ammeterqa/ammqa/pkg/device"
	"github.com/ammeterqa/ammqa/pkg/faults"
)

type DeviceConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type SamplingConfig struct {
	FrequencyHz    float64 `yaml:"frequency_hz"`
	Count          int     `yaml:"count"`
	Timeout        string  `yaml:"timeout"`
	MaxFailureRate float64 `yaml:"max_failure_rate"`
}

type AnalysisConfig struct {
	ConfidenceLevel float64 `yaml:"confidence_level"`
}

type FaultConfig struct {
	Enabled bool               `yaml:"enabled"`
	Seed    int64              `yaml:"seed"`
	Rate    float64            `yaml:"rate"`
	Kinds   map[string]float64 `yaml:"kinds"`
}

type ResultsConfig struct {
	Path string `yaml:"path"`
}

type Config struct {
	Devices  map[string]DeviceConfig `yaml:"devices"`
	Sampling SamplingConfig          `yaml:"sampling"`
	Analysis AnalysisConfig          `yaml:"analysis"`
	Faults   FaultConfig             `yaml:"error_simulation"`
	Results  ResultsConfig           `yaml:"results"`
}

// Default returns the configuration used when no file is supplied: the
// three known ammeters on their conventional local ports.
func Default() *Config {
	return &Config{
		Devices: map[string]DeviceConfig{
			"greenlee": {Host: "localhost", Port: 5000},
			"entes":    {Host: "localhost", Port: 5001},
			"circutor": {Host: "localhost", Port: 5002},
		},
		Sampling: SamplingConfig{FrequencyHz: 10, Count: 50, Timeout: "2s"},
		Analysis: AnalysisConfig{ConfidenceLevel: 0.95},
		Results:  ResultsConfig{Path: "results"},
	}
}

// Load reads and validates a YAML configuration file.  Missing sections
// fall back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config %s: %v", path, err)
	}
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("could not parse config %s: %v", path, err)
	}
	c.applyDefaults()
	if _, err := c.Registry(); err != nil {
		return nil, err
	}
	if _, err := c.timeout(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyDefaults fills sections the file left out.  A devices section in
// the file defines the whole fleet and is never merged with the default
// one.
func (c *Config) applyDefaults() {
	d := Default()
	if len(c.Devices) == 0 {
		c.Devices = d.Devices
	}
	if c.Sampling.FrequencyHz == 0 {
		c.Sampling.FrequencyHz = d.Sampling.FrequencyHz
	}
	if c.Sampling.Count == 0 {
		c.Sampling.Count = d.Sampling.Count
	}
	if c.Sampling.Timeout == "" {
		c.Sampling.Timeout = d.Sampling.Timeout
	}
	if c.Analysis.ConfidenceLevel == 0 {
		c.Analysis.ConfidenceLevel = d.Analysis.ConfidenceLevel
	}
	if c.Results.Path == "" {
		c.Results.Path = d.Results.Path
	}
}

func (c *Config) timeout() (time.Duration, error) {
	if c.Sampling.Timeout == "" {
		return device.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Sampling.Timeout)
	if err != nil {
		return 0, fmt.Errorf("unrecognized measurement timeout: %s", c.Sampling.Timeout)
	}
	return d, nil
}

// Registry builds the device registry from the configured endpoints
func (c *Config) Registry() (device.MapRegistry, error) {
	reg := make(device.MapRegistry, len(c.Devices))
	for name, dc := range c.Devices {
		dev, ok := device.ByType(name)
		if !ok {
			return nil, fmt.Errorf("unknown device type in config: %s", name)
		}
		host := dc.Host
		if host == "" {
			host = "localhost"
		}
		if dc.Port <= 0 {
			return nil, fmt.Errorf("device %s requires a port", name)
		}
		reg[name] = device.Endpoint{Device: dev, Host: host, Port: dc.Port}
	}
	return reg, nil
}

// FaultConfig translates the error-simulation block, nil when disabled
func (c *Config) FaultConfig() (*faults.Config, error) {
	if !c.Faults.Enabled {
		return nil, nil
	}
	cfg := &faults.Config{Seed: c.Faults.Seed, Rate: c.Faults.Rate}
	if len(c.Faults.Kinds) > 0 {
		cfg.Kinds = make(map[device.FailureKind]float64, len(c.Faults.Kinds))
		for name, w := range c.Faults.Kinds {
			switch kind := device.FailureKind(name); kind {
			case device.Timeout, device.ConnectionRefused, device.MalformedResponse, device.EmptyResponse:
				cfg.Kinds[kind] = w
			default:
				return nil, fmt.Errorf("unknown failure kind in config: %s", name)
			}
		}
	}
	return cfg, nil
}

// BenchOptions assembles the orchestrator options implied by the config
func (c *Config) BenchOptions() ([]bench.Option, error) {
	timeout, err := c.timeout()
	if err != nil {
		return nil, err
	}
	opts := []bench.Option{
		bench.WithSampling(c.Sampling.FrequencyHz, c.Sampling.Count),
		bench.WithTimeout(timeout),
		bench.WithConfidenceLevel(c.Analysis.ConfidenceLevel),
	}
	if c.Sampling.MaxFailureRate > 0 {
		opts = append(opts, bench.WithFailureRateLimit(c.Sampling.MaxFailureRate))
	}
	fc, err := c.FaultConfig()
	if err != nil {
		return nil, err
	}
	if fc != nil {
		opts = append(opts, bench.WithFaultInjection(*fc))
	}
	return opts, nil
}
