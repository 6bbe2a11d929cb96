package config

import (
	_ "embed"
)

// pruner config
//
//go:embed default.config.yml
var DefaultConfigYml string
