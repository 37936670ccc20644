package utils

import (
	"fmt"
	"os"
	"path"
)

// GetConfigDir returns the path to the chatdoc configuration directory.
// The directory is located inside the user's configuration directory
// as <UserConfigDir>/.chatdoc, unless overridden by CHATDOC_CONFIG_HOME.
func GetConfigDir() (string, error) {
	if configHome := os.Getenv("CHATDOC_CONFIG_HOME"); configHome != "" {
		return configHome, nil
	}
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return path.Join(cfg, ".chatdoc"), nil
}
