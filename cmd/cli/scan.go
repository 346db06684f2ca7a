package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	scanRunDir string
	scanForce  bool

	// shared by scan and schedule
	runTargetsFile string
	runShowSkipped bool
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan [targets...]",
	Short: "Run the scan plan against targets",
	Long: `Run every phase of the scan plan against each target in turn.
Phases marked port restricted only scan the ports earlier phases found open.
Artifacts go to <results-dir>/<run-dir>/<phase>/<target>.{xml,nmap,gnmap};
re-running with the same --run-dir skips pairs that already have results.`,
	Example: `  nmapx scan 10.0.0.1
  nmapx scan 10.0.0.0/24 scanme.nmap.org
  nmapx scan targets.txt --run-dir weekly
  nmapx scan -f hosts.txt --run-dir weekly --force`,
	PreRunE: bindRunFlags,
	RunE:    runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	addRunFlags(scanCmd)
	scanCmd.Flags().StringVarP(&scanRunDir, "run-dir", "o", "", "run directory name under the results dir (default: timestamp)")
	scanCmd.Flags().BoolVar(&scanForce, "force", false, "re-run phases that already have results")
}

// addRunFlags defines the flags shared by scan and schedule.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&runTargetsFile, "targets-file", "f", "", "file with one target per line")
	cmd.Flags().BoolVar(&runShowSkipped, "show-skipped", false, "print stored results of phases that were skipped")
	cmd.Flags().String("results-dir", "results", "parent directory of run directories")
	cmd.Flags().Duration("timeout", 0, "per-phase timeout (default from config)")
	cmd.Flags().String("nmap", "nmap", "nmap binary")
	cmd.Flags().Bool("elevate", true, "run nmap through the elevation helper")
}

// runFlagKeys maps shared run flags to the config keys they override.
var runFlagKeys = map[string]string{
	"results-dir": "scanning.results_dir",
	"timeout":     "scanning.phase_timeout",
	"nmap":        "scanning.binary",
	"elevate":     "scanning.elevate",
}

// bindRunFlags binds the flags the operator set to viper keys. Binding
// happens per invocation because scan and schedule share key names.
func bindRunFlags(cmd *cobra.Command, _ []string) error {
	var bindErr error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		key, ok := runFlagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		if err := viper.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("failed to bind --%s: %w", f.Name, err)
		}
	})
	return bindErr
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	targets, err := collectTargets(args, runTargetsFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(cfg, cmd.OutOrStdout(), os.Stdin)
	if err != nil {
		return err
	}
	defer p.Close()

	_, err = p.run(ctx, targets, runOptions{
		RunDir:      scanRunDir,
		Force:       scanForce,
		ShowSkipped: runShowSkipped,
	})
	return err
}
