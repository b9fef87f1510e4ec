package commands

import (
	"github.com/mosaicnetworks/tablenet/src/config"
)

//CLIConfig contains configuration for the host and join commands
type CLIConfig struct {
	Tablenet config.Config `mapstructure:",squash"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Tablenet: *config.NewDefaultConfig(),
	}
}
