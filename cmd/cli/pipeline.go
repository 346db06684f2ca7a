package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/limulus26/Nmapx/internal/config"
	"github.com/limulus26/Nmapx/internal/display"
	"github.com/limulus26/Nmapx/internal/errors"
	"github.com/limulus26/Nmapx/internal/executor"
	"github.com/limulus26/Nmapx/internal/logging"
	"github.com/limulus26/Nmapx/internal/metrics"
	"github.com/limulus26/Nmapx/internal/orchestrator"
	"github.com/limulus26/Nmapx/internal/scanning"
)

const metricsDirPerm = 0750

// runOptions are the per-run settings taken from command flags.
type runOptions struct {
	RunDir      string
	Force       bool
	ShowSkipped bool
}

// pipeline holds everything a run needs that outlives a single run: the
// plan, the resolved executor, the credential and the metrics registry.
type pipeline struct {
	cfg        *config.Config
	plan       *scanning.Plan
	exec       orchestrator.Executor
	credential executor.Secret
	metrics    *metrics.PrometheusMetrics
	out        io.Writer
	logger     *logging.Logger
}

// newPipeline resolves the nmap binary and reads the elevation credential.
// Both happen before any phase runs so that fatal problems surface first.
func newPipeline(cfg *config.Config, out io.Writer, in *os.File) (*pipeline, error) {
	plan, err := cfg.Plan()
	if err != nil {
		return nil, err
	}

	elevate := needsCredential(cfg)
	exec, err := executor.New(executor.Options{
		Binary:           cfg.Scanning.Binary,
		Elevate:          elevate,
		Helper:           cfg.Scanning.ElevationHelper,
		HelperArgs:       cfg.Scanning.ElevationArgs,
		ProgressInterval: cfg.Scanning.ProgressInterval,
		TerminateGrace:   cfg.Scanning.TerminateGrace,
		Logger:           logging.Default(),
	})
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		cfg:     cfg,
		plan:    plan,
		exec:    exec,
		metrics: metrics.GetGlobalMetrics(),
		out:     out,
		logger:  logging.Default().WithComponent("cli"),
	}

	if elevate {
		p.credential, err = promptCredential(in, os.Stderr, cfg.Scanning.ElevationHelper)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Close wipes the credential.
func (p *pipeline) Close() {
	p.credential.Wipe()
}

// run executes the plan once against targets, prints the summary and writes
// the metrics textfile into the run directory.
func (p *pipeline) run(ctx context.Context, targets []string, opts runOptions) (*orchestrator.RunSummary, error) {
	console := display.NewConsole(p.out)
	console.ShowSkipped = opts.ShowSkipped

	orch := orchestrator.New(p.plan, p.exec, orchestrator.Options{
		ResultsDir: p.cfg.Scanning.ResultsDir,
		RunDir:     opts.RunDir,
		Force:      opts.Force,
		Credential: p.credential,
		Timeout:    p.cfg.Scanning.PhaseTimeout,
		Reporter:   console,
		Metrics:    p.metrics,
		Logger:     logging.Default(),
	})

	summary, err := orch.Run(ctx, targets)
	if summary == nil {
		return nil, err
	}

	_, _ = io.WriteString(p.out, "\n")
	display.RenderSummary(p.out, summary)
	p.writeMetrics(summary.Root)

	return summary, err
}

func (p *pipeline) writeMetrics(root string) {
	if !p.cfg.Metrics.Enabled {
		return
	}
	if err := os.MkdirAll(root, metricsDirPerm); err != nil {
		p.logger.Warn("failed to create run directory for metrics", "error", err)
		return
	}
	path := filepath.Join(root, p.cfg.Metrics.Textfile)
	if err := p.metrics.WriteTextfile(path); err != nil {
		p.logger.Warn("failed to write metrics textfile", "path", path, "error", err)
		return
	}
	p.logger.Debug("metrics written", "path", path)
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if errors.IsCanceled(err) {
		return exitInterrupted
	}
	return exitFatal
}
