package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/limulus26/Nmapx/internal/config"
	"github.com/limulus26/Nmapx/internal/errors"
)

var configInitForce bool

// configCmd represents the config command.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the nmapx configuration file",
}

// configInitCmd represents the config init command.
var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the default settings",
	Long: `Write the default configuration, including the built-in scan plan as
an editable phases list, to path (default ./nmapx.yaml).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "nmapx.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := writeDefaultConfig(path, configInitForce); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
}

// writeDefaultConfig saves config.Default with the default plan spelled out
// as phases, so the operator can edit it in place.
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.NewConfigFieldError(errors.CodeConfiguration, "config file already exists, use --force to overwrite", "path", path)
	}

	cfg := config.Default()
	plan, err := cfg.Plan()
	if err != nil {
		return err
	}
	for _, p := range plan.Phases {
		cfg.Phases = append(cfg.Phases, config.PhaseConfig{
			Name:           p.Name,
			Flags:          p.Flags,
			PortRestricted: p.PortRestricted,
			Timeout:        p.Timeout,
		})
	}

	if err := cfg.Save(path); err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration, "failed to write config file", err)
	}
	return nil
}
