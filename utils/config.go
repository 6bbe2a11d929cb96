package utils

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/nickmjain/PokerTracker-Hand-pruner/config"
	"github.com/nickmjain/PokerTracker-Hand-pruner/types"
)

// Config is the globally accessible configuration
var Config *types.Config

// ReadConfig will process a configuration
func ReadConfig(cfg *types.Config, path string) error {
	err := yaml.Unmarshal([]byte(config.DefaultConfigYml), cfg)
	if err != nil {
		return fmt.Errorf("error parsing default config: %w", err)
	}

	if path != "" {
		fileCfg := &types.Config{}
		err := readConfigFile(fileCfg, path)
		if err != nil {
			return err
		}
		err = mergo.Merge(cfg, fileCfg, mergo.WithOverride)
		if err != nil {
			return fmt.Errorf("error merging config file %v: %w", path, err)
		}
	}

	return readConfigEnv(cfg)
}

func readConfigFile(cfg *types.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening config file %v: %w", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		return fmt.Errorf("error decoding config file %v: %w", path, err)
	}
	return nil
}

func readConfigEnv(cfg *types.Config) error {
	return envconfig.Process("", cfg)
}
