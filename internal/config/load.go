package config

import (
	"fmt"
	"os"
)

// EnvConfigFile is the fallback environment variable for the settings path,
// consulted when the CLI front-end was not given an explicit -config flag.
const EnvConfigFile = "LOGMONITOR_CONFIG_FILE"

// Load reads, parses and validates the Settings document at path. If path
// is empty it falls back to EnvConfigFile, a flag-then-env resolution
// order.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path == "" {
		return nil, fmt.Errorf("config: no settings file given (-config flag or %s)", EnvConfigFile)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	s, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}
