package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"manifold/internal/transport"
)

// Init loads .env and the YAML config file, with MANIFOLD_* environment
// overrides.
func Init(cfgFile string) {
	// Load .env file (ignore if not exists)
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	// Environment variables
	viper.SetEnvPrefix("MANIFOLD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

// Transport decodes the transport section of the configuration on top of
// the built-in defaults.
func Transport() (*transport.Config, error) {
	cfg := transport.DefaultConfig()
	if err := viper.UnmarshalKey("transport", cfg); err != nil {
		return nil, fmt.Errorf("invalid transport config: %w", err)
	}
	return cfg, nil
}
