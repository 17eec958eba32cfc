package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// TopologyConfig holds topology defaults. All fields are pointers so we can distinguish "not set"
// from zero values.
type TopologyConfig struct {
	TP            *int64  `yaml:"tp"`
	EP            *int64  `yaml:"ep"`
	DP            *int64  `yaml:"dp"`
	PP            *int64  `yaml:"pp"`
	CP            *int64  `yaml:"cp"`
	Order         *string `yaml:"order"`
	RankOffset    *int64  `yaml:"rank_offset"`
	IndependentEP *bool   `yaml:"independent_ep"`
}

// Config represents the rankmesh configuration file (~/.config/rankmesh/config.yaml).
//
// Example:
//
//	tp: 8
//	order: tp-cp-ep-dp-pp
//	presets:
//	  moe:
//	    tp: 2
//	    ep: 4
//	    dp: 8
type Config struct {
	TopologyConfig `yaml:",inline"`

	// Output
	Format string `yaml:"format"`

	// Server
	ServerAddress string `yaml:"server_address"`
	MaxWorldSize  int64  `yaml:"max_world_size"`

	// Presets are named topologies, selected with --preset. Their fields take precedence over the
	// top-level ones.
	Presets map[string]TopologyConfig `yaml:"presets"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "rankmesh", "config.yaml")
}

// LoadConfig reads the config file at path, or at the default location if path is empty.
// Returns a zero Config if the file doesn't exist.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, errors.Wrapf(err, "reading config file %q", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing config file %q", path)
	}
	return cfg, nil
}

// Topology returns the topology defaults, with the fields of the named preset overriding the
// top-level ones.
func (cfg Config) Topology(preset string) (TopologyConfig, error) {
	if preset == "" {
		return cfg.TopologyConfig, nil
	}
	p, found := cfg.Presets[preset]
	if !found {
		return TopologyConfig{}, errors.Errorf("preset %q not found in config file", preset)
	}
	return cfg.TopologyConfig.merge(p), nil
}

func (tc TopologyConfig) merge(other TopologyConfig) TopologyConfig {
	merged := tc
	if other.TP != nil {
		merged.TP = other.TP
	}
	if other.EP != nil {
		merged.EP = other.EP
	}
	if other.DP != nil {
		merged.DP = other.DP
	}
	if other.PP != nil {
		merged.PP = other.PP
	}
	if other.CP != nil {
		merged.CP = other.CP
	}
	if other.Order != nil {
		merged.Order = other.Order
	}
	if other.RankOffset != nil {
		merged.RankOffset = other.RankOffset
	}
	if other.IndependentEP != nil {
		merged.IndependentEP = other.IndependentEP
	}
	return merged
}

// applyTopologyConfig applies config file defaults to the topology flags
// when the corresponding CLI flag was not explicitly set.
func applyTopologyConfig(c *cli.Command, tc TopologyConfig, args *topologyArgs) {
	for _, field := range []struct {
		flag string
		src  *int64
		dst  *int64
	}{
		{"tp", tc.TP, &args.tp},
		{"ep", tc.EP, &args.ep},
		{"dp", tc.DP, &args.dp},
		{"pp", tc.PP, &args.pp},
		{"cp", tc.CP, &args.cp},
		{"rank-offset", tc.RankOffset, &args.rankOffset},
	} {
		if field.src != nil && !c.IsSet(field.flag) {
			*field.dst = *field.src
		}
	}
	if tc.Order != nil && !c.IsSet("order") {
		args.order = *tc.Order
	}
	if tc.IndependentEP != nil && !c.IsSet("independent-ep") {
		args.independentEP = *tc.IndependentEP
	}
}
