package cli

import (
	"github.com/spf13/cobra"

	"github.com/limulus26/Nmapx/internal/display"
)

// planCmd represents the plan command.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the active scan plan",
	Long: `Print the phases nmapx will run, in order, with their nmap flags,
whether they are narrowed to discovered ports, and their timeout.
Phases come from the config file when it defines any.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		plan, err := cfg.Plan()
		if err != nil {
			return err
		}
		display.RenderPlan(cmd.OutOrStdout(), plan, cfg.Scanning.PhaseTimeout)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
