package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/fieldops/missiond/errors"
)

// Save writes the current Viper settings to the given TOML path, creating
// rotating backups (.back1, .back2, .back3) of any existing file first.
// Used by `missiond config set` so operator edits survive restarts.
func Save(configPath string) error {
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to back up config")
	}

	v := GetViper()
	if v == nil {
		return errors.New("configuration not initialized")
	}

	data, err := toml.Marshal(v.AllSettings())
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	// Write to a temp file then rename for atomic replacement
	tmp := configPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config")
	}
	if err := os.Rename(tmp, configPath); err != nil {
		return errors.Wrap(err, "failed to replace config")
	}

	return nil
}

// createBackup rotates backups before modifying the config file:
// .back3 is dropped, .back2 -> .back3, .back1 -> .back2, current -> .back1.
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to back up
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete oldest backup")
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read current config")
	}
	if err := os.WriteFile(back1, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write .back1")
	}

	return nil
}
