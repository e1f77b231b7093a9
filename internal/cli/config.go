package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Configuration keys, also settable as CAMCTL_<KEY>.
const (
	keyServerURL     = "server_url"
	keyTemplatesFile = "templates_file"
	keyTimeout       = "timeout"
)

const envPrefix = "CAMCTL"

// initConfig reads the config file and environment into v.
// A missing default config file is fine; an explicit --config file must exist.
func initConfig(v *viper.Viper, cfgFile string) error {
	home, homeErr := os.UserHomeDir()

	v.SetDefault(keyServerURL, "http://localhost:8080")
	v.SetDefault(keyTimeout, 15*time.Second)
	if homeErr == nil {
		v.SetDefault(keyTemplatesFile, filepath.Join(home, ".camctl", "templates.json"))
	} else {
		v.SetDefault(keyTemplatesFile, ".camctl-templates.json")
	}

	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Use config file from the flag.
		v.SetConfigFile(cfgFile)
	} else if homeErr == nil {
		// Search config in home directory with name ".camctl" (without extension).
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".camctl")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if cfgFile == "" && homeErr != nil {
		return nil
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}
