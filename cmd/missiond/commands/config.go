package commands

import (
	"fmt"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fieldops/missiond/config"
	"github.com/fieldops/missiond/errors"
)

// ConfigCmd groups configuration subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage missiond configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(); err != nil {
			return err
		}
		v := config.GetViper()
		if v == nil {
			return errors.New("configuration not initialized")
		}
		out, err := toml.Marshal(v.AllSettings())
		if err != nil {
			return errors.Wrap(err, "failed to render configuration")
		}
		fmt.Print(string(out))
		if path := config.Path(); path != "" {
			pterm.Info.Printf("loaded from %s\n", path)
		} else {
			pterm.Info.Println("using defaults (no config file found)")
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value and persist it",
	Long: `Set a configuration value and write it back to missiond.toml, rotating
backups of the previous file. Keys use dotted paths, e.g. tick.batch_size.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(); err != nil {
			return err
		}
		v := config.GetViper()
		if v == nil {
			return errors.New("configuration not initialized")
		}

		key, raw := args[0], args[1]
		v.Set(key, coerce(raw))

		path := config.Path()
		if path == "" {
			path = "missiond.toml"
		}
		if err := config.Save(path); err != nil {
			return err
		}
		config.Reset()
		if _, err := config.Load(); err != nil {
			return errors.Wrap(err, "saved value failed validation")
		}

		pterm.Success.Printf("%s = %s (saved to %s)\n", key, raw, path)
		return nil
	},
}

// coerce keeps numeric and boolean values typed in the persisted TOML.
func coerce(raw string) any {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configSetCmd)
}
