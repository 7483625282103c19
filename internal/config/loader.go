package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPresetFile is the default preset file name.
const DefaultPresetFile = ".wdcrawl"

// ErrPresetFileNotFound is returned when the preset file does not exist.
var ErrPresetFileNotFound = errors.New("preset file not found")

// LoadPresetFile loads crawl presets from a YAML file.
// If the file does not exist, it returns ErrPresetFileNotFound.
// Callers should handle this error appropriately based on whether
// the preset file path was explicitly specified by the user.
func LoadPresetFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPresetFileNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	// Initialize Presets map if nil
	if f.Presets == nil {
		f.Presets = make(map[string]Preset)
	}

	return &f, nil
}

// FindPresetFile searches for the preset file in the following order:
// 1. If presetPath is specified, use it directly
// 2. Look for .wdcrawl in the current directory
// 3. Look for .wdcrawl in the user's home directory
//
// Returns the path to the preset file if found, or empty string if not found.
func FindPresetFile(presetPath string) string {
	// If explicit path is provided, use it
	if presetPath != "" {
		if _, err := os.Stat(presetPath); err == nil {
			return presetPath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdPreset := filepath.Join(cwd, DefaultPresetFile)
		if _, err := os.Stat(cwdPreset); err == nil {
			return cwdPreset
		}
	}

	// Check home directory
	home, err := os.UserHomeDir()
	if err == nil {
		homePreset := filepath.Join(home, DefaultPresetFile)
		if _, err := os.Stat(homePreset); err == nil {
			return homePreset
		}
	}

	return ""
}
