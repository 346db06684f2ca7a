package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/limulus26/Nmapx/internal/errors"
	"github.com/limulus26/Nmapx/internal/logging"
	"github.com/limulus26/Nmapx/internal/scheduler"
)

var scheduleCron string

// scheduleCmd represents the schedule command.
var scheduleCmd = &cobra.Command{
	Use:   "schedule --cron <expr> [targets...]",
	Short: "Run the scan plan on a cron schedule",
	Long: `Run the scan plan against the targets every time the cron expression
fires. Each run writes into a fresh timestamped run directory. A tick that
fires while the previous run is still going is skipped. The elevation
password, if needed, is read once at startup.
The cron expression follows standard cron format (minute hour day month weekday).`,
	Example: `  nmapx schedule --cron "0 2 * * *" 10.0.0.0/24
  nmapx schedule --cron "@every 6h" -f hosts.txt`,
	PreRunE: bindRunFlags,
	RunE:    runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	addRunFlags(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression")
	_ = scheduleCmd.MarkFlagRequired("cron")
}

func runSchedule(cmd *cobra.Command, args []string) error {
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

	s := scheduler.NewScheduler(logging.Default())
	id, err := s.Add("scan", scheduleCron, func(ctx context.Context) error {
		_, err := p.run(ctx, targets, runOptions{ShowSkipped: runShowSkipped})
		return err
	})
	if err != nil {
		return err
	}

	if err := s.Start(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %d target(s), next run at %s\n",
		len(targets), s.Next(id).Format(time.RFC3339))

	<-ctx.Done()
	s.Stop()
	for _, job := range s.Jobs() {
		logging.Info("schedule stopped",
			"job", job.Name,
			"schedule", job.Schedule,
			"runs", job.Runs,
			"last_run", job.LastRun,
			"last_error", job.LastErr)
	}
	return errors.ErrScanCanceled(ctx.Err())
}
