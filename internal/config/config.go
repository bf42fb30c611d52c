// Package config loads, validates, and writes codegraph configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// configFilePath stores the path to the loaded config file.
var configFilePath string

// Init initializes the configuration subsystem on the global viper instance.
// It searches for configuration files in priority order:
//  1. Directory specified by CODEGRAPH_CONFIG_DIR environment variable
//  2. ~/.config/codegraph/
//  3. Current working directory (.)
//
// If no config file is found, defaults are used. If a config file exists but
// is invalid or unreadable, Init returns an error.
func Init() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("CODEGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if envPath := os.Getenv("CODEGRAPH_CONFIG_DIR"); envPath != "" {
		viper.AddConfigPath(envPath)
	}

	if home := os.Getenv("HOME"); home != "" {
		viper.AddConfigPath(filepath.Join(home, ".config", "codegraph"))
	}

	viper.AddConfigPath(".")

	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file is acceptable; defaults apply.
			configFilePath = ""
			return nil
		}
		return fmt.Errorf("failed to read config; %w", err)
	}

	configFilePath = viper.ConfigFileUsed()
	return nil
}

// ConfigFilePath returns the path of the loaded config file, or "" when
// running on defaults only.
func ConfigFilePath() string {
	return configFilePath
}

// Reset clears the global viper state. Intended for tests.
func Reset() {
	viper.Reset()
	configFilePath = ""
}

// GetString returns a string value for the given key.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int value for the given key.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool value for the given key.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetPath returns a path value with a leading ~ expanded.
func GetPath(key string) string {
	return expandHome(viper.GetString(key))
}

// expandHome expands a leading ~ or ~/ to the user's home directory.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
