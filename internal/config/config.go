package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Weights is the relative importance of each resource dimension in a score.
type Weights struct {
	Cpu  float64 `yaml:"cpu"`
	Mem  float64 `yaml:"mem"`
	Disk float64 `yaml:"disk"`
}

// Limits are utilization ceilings, fractions in (0, 1].
type Limits struct {
	Cpu  float64 `yaml:"cpu"`
	Mem  float64 `yaml:"mem"`
	Disk float64 `yaml:"disk"`
}

type PlacementParams struct {
	Weights Weights `yaml:"weights"`
	Limit   Limits  `yaml:"limit"`
	KPaths  int     `yaml:"k_paths"`
}

type MigrationParams struct {
	Rounds      int     `yaml:"rounds"`
	RoundLength int     `yaml:"round_length"` // seconds
	KPaths      int     `yaml:"k_paths"`
	OutputRound bool    `yaml:"output_round"`
	Weights     Weights `yaml:"weights"`
	Limit       Limits  `yaml:"limit"`
}

func (m MigrationParams) RoundInterval() time.Duration {
	return time.Duration(m.RoundLength) * time.Second
}

type ResourceConfig struct {
	Kind            string   `yaml:"kind"` // command, kubernetes, scenario, simulated
	Command         string   `yaml:"command"`
	Args            []string `yaml:"args"`
	Kubeconfig      string   `yaml:"kubeconfig"`
	NodeLabel       string   `yaml:"node_label"`
	SimulateUnknown bool     `yaml:"simulate_unknown"`
	KnownNodes      []string `yaml:"known_nodes"`
}

type TopologyConfig struct {
	Kind        string `yaml:"kind"` // sattrack, scenario
	SattrackDir string `yaml:"sattrack_dir"`
	Binary      string `yaml:"binary"`
	Scenario    string `yaml:"scenario"`
}

type StoreConfig struct {
	Kind      string `yaml:"kind"` // file, redis
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

type GeneralConfig struct {
	Name          string          `yaml:"name"`
	Listen        string          `yaml:"listen"`
	PassTimeoutMs int             `yaml:"pass_timeout_ms"`
	Placement     PlacementParams `yaml:"placement"`
	Migration     MigrationParams `yaml:"migration"`
	Resource      ResourceConfig  `yaml:"resource"`
	Topology      TopologyConfig  `yaml:"topology"`
	Store         StoreConfig     `yaml:"store"`
}

func (c *GeneralConfig) PassTimeout() time.Duration {
	return time.Duration(c.PassTimeoutMs) * time.Millisecond
}

// General constants:
const (
	MiBPerGiB     = 1024
	SecondsPerDay = 86400
)

func DefaultWeights() Weights {
	return Weights{Cpu: 0.33, Mem: 0.33, Disk: 0.34}
}

func DefaultLimits() Limits {
	return Limits{Cpu: 0.9, Mem: 0.9, Disk: 0.9}
}

// Default returns the configuration used when a key is absent from the file.
func Default() GeneralConfig {
	return GeneralConfig{
		Name:          "leovnf",
		Listen:        ":8080",
		PassTimeoutMs: 10 * 60 * 1000,
		Placement: PlacementParams{
			Weights: DefaultWeights(),
			Limit:   DefaultLimits(),
			KPaths:  5,
		},
		Migration: MigrationParams{
			Rounds:      100,
			RoundLength: 6,
			KPaths:      5,
			OutputRound: true,
			Weights:     DefaultWeights(),
			Limit:       DefaultLimits(),
		},
		Resource: ResourceConfig{
			Kind:      "simulated",
			NodeLabel: "satellite-id",
		},
		Topology: TopologyConfig{
			Kind:   "sattrack",
			Binary: "./sattrack",
		},
		Store: StoreConfig{
			Kind: "file",
			Path: "ns_vnf_config.json",
		},
	}
}

// Load reads a YAML config file on top of Default and validates the result.
func Load(path string) (*GeneralConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config %s: %w", path, err)
	}

	return Parse(yamlFile)
}

func Parse(content []byte) (*GeneralConfig, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(content, &c); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *GeneralConfig) Validate() error {
	if c.PassTimeoutMs < 0 {
		return fmt.Errorf("pass_timeout_ms must not be negative")
	}
	if c.Placement.KPaths < 1 {
		return fmt.Errorf("placement.k_paths must be at least 1, got %d", c.Placement.KPaths)
	}
	if err := c.Placement.Weights.Validate(); err != nil {
		return fmt.Errorf("placement.weights: %w", err)
	}
	if err := c.Placement.Limit.Validate(); err != nil {
		return fmt.Errorf("placement.limit: %w", err)
	}

	m := c.Migration
	if m.Rounds < 1 {
		return fmt.Errorf("migration.rounds must be at least 1, got %d", m.Rounds)
	}
	if m.RoundLength < 1 {
		return fmt.Errorf("migration.round_length must be at least 1 second, got %d", m.RoundLength)
	}
	if m.KPaths < 1 {
		return fmt.Errorf("migration.k_paths must be at least 1, got %d", m.KPaths)
	}
	if err := m.Weights.Validate(); err != nil {
		return fmt.Errorf("migration.weights: %w", err)
	}
	if err := m.Limit.Validate(); err != nil {
		return fmt.Errorf("migration.limit: %w", err)
	}

	return nil
}

// Validate rejects weights that cannot produce a meaningful score. Weights are
// expected to sum to 1 but that is not enforced.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{"cpu": w.Cpu, "mem": w.Mem, "disk": w.Disk} {
		if v < 0 {
			return fmt.Errorf("%s weight is negative (%v)", name, v)
		}
	}
	if w.Cpu+w.Mem+w.Disk <= 0 {
		return fmt.Errorf("weights sum to zero")
	}

	return nil
}

func (l Limits) Validate() error {
	for name, v := range map[string]float64{"cpu": l.Cpu, "mem": l.Mem, "disk": l.Disk} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s limit must be in (0, 1], got %v", name, v)
		}
	}

	return nil
}

func (w Weights) Slice() []float64 {
	return []float64{w.Cpu, w.Mem, w.Disk}
}

func (l Limits) Slice() []float64 {
	return []float64{l.Cpu, l.Mem, l.Disk}
}
