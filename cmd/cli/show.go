package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/limulus26/Nmapx/internal/display"
	"github.com/limulus26/Nmapx/internal/errors"
	"github.com/limulus26/Nmapx/internal/scanning"
)

var showPhase string

// showCmd represents the show command.
var showCmd = &cobra.Command{
	Use:   "show <run-dir>",
	Short: "Render the results of an earlier run",
	Long: `Re-parse every XML artifact of an earlier run and print its open ports.
The argument is either a path or a run directory name under the results dir.`,
	Example: `  nmapx show weekly
  nmapx show results/2024-05-01_10-00-00 --phase 2.0_script_scan`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&showPhase, "phase", "", "only show this phase")
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = filepath.Join(cfg.Scanning.ResultsDir, args[0])
	}

	return showRun(cmd.OutOrStdout(), dir, showPhase)
}

// showRun renders every artifact below a run directory, phase by phase.
// Unreadable artifacts are reported inline and do not stop the listing.
func showRun(w io.Writer, dir, phaseFilter string) error {
	phases, err := os.ReadDir(dir)
	if err != nil {
		return errors.WrapScanError(errors.CodeFileNotFound, "failed to read run directory", err).
			WithContext("path", dir)
	}

	shown := 0
	for _, phase := range phases {
		if !phase.IsDir() || (phaseFilter != "" && phase.Name() != phaseFilter) {
			continue
		}

		artifacts, err := filepath.Glob(filepath.Join(dir, phase.Name(), "*.xml"))
		if err != nil {
			return err
		}

		for _, path := range artifacts {
			target := strings.TrimSuffix(filepath.Base(path), ".xml")
			_, _ = color.New(color.FgCyan, color.Bold).Fprintf(w, "\n[*] %s » %s\n", target, phase.Name())

			outcome, err := scanning.ParseFile(path)
			if err != nil {
				_, _ = fmt.Fprintf(w, "    %s %v\n", color.RedString("✗"), err)
				continue
			}
			display.RenderOutcome(w, outcome)
			shown++
		}
	}

	if shown == 0 {
		_, _ = fmt.Fprintf(w, "No results found in %s\n", dir)
	}
	return nil
}
