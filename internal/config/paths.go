package config

import (
	"os"
	"path/filepath"
)

// GetConfigDir returns the directory holding the watchdog configuration.
// The same ~/.config location is used on every platform.
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "vpn-watchdog")
}

// GetConfigPath returns the path of the configuration file.
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}
