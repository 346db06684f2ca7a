// Package orchestrator drives a scan plan across a list of targets.
//
// Targets run one after another. For each target the phases of the plan run
// in order, and the open ports found by earlier phases narrow the
// port-restricted phases that follow. Only one nmap process runs at a time.
package orchestrator

//go:generate mockgen -destination=mocks/mock_orchestrator.go -package=mocks . Executor,Reporter

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/limulus26/Nmapx/internal/errors"
	"github.com/limulus26/Nmapx/internal/executor"
	"github.com/limulus26/Nmapx/internal/logging"
	"github.com/limulus26/Nmapx/internal/metrics"
	"github.com/limulus26/Nmapx/internal/scanning"
)

const defaultPhaseTimeout = 2 * time.Hour

// Executor runs a single nmap invocation.
type Executor interface {
	Execute(ctx context.Context, c executor.Command) *executor.Result
}

// Reporter receives pair lifecycle events as they happen.
type Reporter interface {
	// PhaseStarted receives the nmap arguments actually used, including
	// the injected output base, port list and target.
	PhaseStarted(target string, phase scanning.Phase, args []string)
	PhaseProgress(target, phase string, elapsed time.Duration)
	PhaseFinished(report PairReport)
}

// PairState is the final state of one (target, phase) pair.
type PairState int

const (
	StatePending PairState = iota
	// StateSkipped means the artifact already existed and force was off.
	StateSkipped
	// StateNoPorts means a port-restricted phase had no discovered ports to scan.
	StateNoPorts
	StateParsed
	StateExecutionFailed
	StateTimedOut
	StateMissingOutput
	StateCorruptOutput
	// StateAborted means the run was canceled while this pair was executing.
	StateAborted
)

func (s PairState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSkipped:
		return "skipped"
	case StateNoPorts:
		return "no_ports"
	case StateParsed:
		return "parsed"
	case StateExecutionFailed:
		return "execution_failed"
	case StateTimedOut:
		return "timed_out"
	case StateMissingOutput:
		return "missing_output"
	case StateCorruptOutput:
		return "corrupt_output"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Failed reports whether the pair ended in a recoverable failure.
func (s PairState) Failed() bool {
	switch s {
	case StateExecutionFailed, StateTimedOut, StateMissingOutput, StateCorruptOutput:
		return true
	default:
		return false
	}
}

// PairReport describes what happened to one (target, phase) pair.
type PairReport struct {
	Target string
	Phase  string
	State  PairState
	// OutputBase is the -oA path of the pair
	OutputBase string
	// Ports is the port list injected into a port-restricted phase
	Ports string
	// Args are the nmap arguments, without the elevation helper
	Args []string
	// Outcome is set when an artifact was parsed, including for skipped pairs
	Outcome  *scanning.ScanOutcome
	Duration time.Duration
	Err      error
}

// RunSummary collects the reports of one Run.
type RunSummary struct {
	RunID      string
	Root       string
	Targets    []string
	StartedAt  time.Time
	FinishedAt time.Time
	Pairs      []PairReport
	Aborted    bool
}

// Count returns the number of pairs that ended in state.
func (s *RunSummary) Count(state PairState) int {
	n := 0
	for i := range s.Pairs {
		if s.Pairs[i].State == state {
			n++
		}
	}
	return n
}

// Failures returns the number of pairs that ended in a recoverable failure.
func (s *RunSummary) Failures() int {
	n := 0
	for i := range s.Pairs {
		if s.Pairs[i].State.Failed() {
			n++
		}
	}
	return n
}

// Duration returns the wall time of the run.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Options configures an Orchestrator.
type Options struct {
	// ResultsDir is the parent of every run directory
	ResultsDir string
	// RunDir names this run's directory; empty means a timestamp
	RunDir string
	// Force re-runs pairs whose artifact already exists
	Force bool
	// Credential is handed to every invocation
	Credential executor.Secret
	// Timeout applies to phases without their own timeout
	Timeout  time.Duration
	Reporter Reporter
	Metrics  metrics.Recorder
	Logger   *logging.Logger
}

// Orchestrator runs a plan against targets.
type Orchestrator struct {
	plan       *scanning.Plan
	exec       Executor
	layout     Layout
	force      bool
	credential executor.Secret
	timeout    time.Duration
	reporter   Reporter
	metrics    metrics.Recorder
	logger     *logging.Logger
}

// New creates an Orchestrator. The plan must come from scanning.NewPlan.
func New(plan *scanning.Plan, exec Executor, opts Options) *Orchestrator {
	if opts.ResultsDir == "" {
		opts.ResultsDir = "results"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultPhaseTimeout
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	return &Orchestrator{
		plan:       plan,
		exec:       exec,
		layout:     NewLayout(opts.ResultsDir, opts.RunDir),
		force:      opts.Force,
		credential: opts.Credential,
		timeout:    opts.Timeout,
		reporter:   opts.Reporter,
		metrics:    opts.Metrics,
		logger:     opts.Logger.WithComponent("orchestrator"),
	}
}

// Layout returns the artifact layout of this orchestrator's run directory.
func (o *Orchestrator) Layout() Layout {
	return o.layout
}

// Run executes every phase of the plan against every target. Per-pair
// failures are reported and the run continues. Cancellation of ctx stops the
// run; the partial summary is returned with an errors.CodeCanceled error and
// completed artifacts stay on disk.
func (o *Orchestrator) Run(ctx context.Context, targets []string) (*RunSummary, error) {
	if len(targets) == 0 {
		return nil, errors.ErrInvalidTarget("")
	}
	if err := CheckTargets(targets); err != nil {
		return nil, err
	}

	summary := &RunSummary{
		RunID:     uuid.NewString(),
		Root:      o.layout.Root,
		Targets:   append([]string(nil), targets...),
		StartedAt: time.Now(),
	}
	logger := o.logger.WithRunID(summary.RunID)
	logger.Info("starting run",
		"targets", len(targets),
		"phases", o.plan.Len(),
		"output", summary.Root,
		"force", o.force)

	var runErr error
	for _, target := range targets {
		if err := o.runTarget(ctx, logger, target, summary); err != nil {
			runErr = err
			break
		}
	}

	summary.FinishedAt = time.Now()
	status := "completed"
	if runErr != nil {
		summary.Aborted = true
		status = "aborted"
		logger.Warn("run aborted", "error", runErr, "pairs_done", len(summary.Pairs))
	}
	o.metrics.ObserveRun(status, len(targets), summary.Duration())

	logger.Info("run finished",
		"status", status,
		"duration", summary.Duration(),
		"parsed", summary.Count(StateParsed),
		"skipped", summary.Count(StateSkipped),
		"failed", summary.Failures())

	return summary, runErr
}

// runTarget runs every phase for one target. The PortSet lives only for the
// duration of this call.
func (o *Orchestrator) runTarget(ctx context.Context, logger *logging.Logger, target string, summary *RunSummary) error {
	ports := scanning.NewPortSet()

	for i := range o.plan.Phases {
		if err := ctx.Err(); err != nil {
			return errors.ErrScanCanceled(err).WithTarget(target)
		}

		phase := o.plan.Phases[i]
		report := o.runPair(ctx, logger.WithPhase(phase.Name), target, phase, ports)

		summary.Pairs = append(summary.Pairs, report)
		o.metrics.ObservePhase(phase.Name, report.State.String(), report.Duration)
		o.reporter.PhaseFinished(report)

		if report.State == StateAborted {
			return report.Err
		}
	}

	return nil
}

// runPair moves one (target, phase) pair to its final state.
func (o *Orchestrator) runPair(
	ctx context.Context,
	logger *logging.Logger,
	target string,
	phase scanning.Phase,
	ports *scanning.PortSet,
) PairReport {
	report := PairReport{
		Target:     target,
		Phase:      phase.Name,
		State:      StatePending,
		OutputBase: o.layout.OutputBase(phase.Name, target),
	}
	xmlPath := o.layout.XMLPath(phase.Name, target)

	// Only an artifact that parses counts as done. nmap writes the XML
	// header at startup, so an interrupted or timed-out phase leaves a
	// truncated file that must be scanned again.
	if !o.force && o.layout.Exists(phase.Name, target) {
		outcome, err := scanning.ParseFile(xmlPath)
		if err == nil {
			report.State = StateSkipped
			report.Outcome = outcome
			ports.AddOutcome(outcome)
			logger.InfoScan("phase already scanned, skipping", target, "path", xmlPath, "open_ports", outcome.OpenPortCount())
			return report
		}
		logger.WarnScan("existing artifact is incomplete, rescanning", target, annotate(err, target, phase.Name), "path", xmlPath)
	}

	if phase.PortRestricted {
		report.Ports = ports.Snapshot()
		if report.Ports == "" {
			report.State = StateNoPorts
			logger.InfoScan("no open ports discovered yet, skipping port-restricted phase", target)
			return report
		}
	}

	if err := o.layout.EnsurePhaseDir(phase.Name); err != nil {
		report.State = StateExecutionFailed
		report.Err = annotate(err, target, phase.Name)
		logger.ErrorScan("cannot prepare output directory", target, report.Err)
		return report
	}

	timeout := phase.Timeout
	if timeout <= 0 {
		timeout = o.timeout
	}
	report.Args = phase.Arguments(report.OutputBase, target, report.Ports)

	logger.InfoScan("running phase", target, "args", report.Args, "timeout", timeout)
	o.reporter.PhaseStarted(target, phase, report.Args)
	o.metrics.ScanStarted()

	res := o.exec.Execute(ctx, executor.Command{
		Args:       report.Args,
		Credential: o.credential,
		Timeout:    timeout,
		Progress: func(elapsed time.Duration) {
			o.reporter.PhaseProgress(target, phase.Name, elapsed)
		},
	})

	o.metrics.ScanFinished()
	report.Duration = res.Duration

	switch res.Outcome {
	case executor.OutcomeCanceled:
		report.State = StateAborted
		report.Err = res.Error(target, phase.Name)
		logger.WarnScan("phase interrupted", target, report.Err, "duration", res.Duration)
		return report
	case executor.OutcomeTimedOut:
		report.State = StateTimedOut
		report.Err = res.Error(target, phase.Name)
		logger.WarnScan("phase timed out", target, report.Err, "timeout", timeout)
		return report
	case executor.OutcomeFailed:
		report.State = StateExecutionFailed
		report.Err = res.Error(target, phase.Name)
		logger.WarnScan("nmap failed", target, report.Err, "exit_code", res.ExitCode)
		return report
	}

	outcome, err := scanning.ParseFile(xmlPath)
	if err != nil {
		report.Err = annotate(err, target, phase.Name)
		if errors.IsCode(err, errors.CodeMissingOutput) {
			report.State = StateMissingOutput
			logger.WarnScan("nmap exited cleanly but wrote no XML output", target, report.Err, "path", xmlPath)
		} else {
			report.State = StateCorruptOutput
			logger.WarnScan("phase output could not be parsed", target, report.Err)
		}
		return report
	}

	report.State = StateParsed
	report.Outcome = outcome
	ports.AddOutcome(outcome)
	o.metrics.AddOpenPorts(phase.Name, outcome.OpenPortCount())
	logger.InfoScan("phase completed", target,
		"duration", res.Duration,
		"hosts", len(outcome.Hosts),
		"open_ports", outcome.OpenPortCount(),
		"known_ports", ports.Len())

	return report
}

// annotate attaches the pair to a scan error produced below the orchestrator.
func annotate(err error, target, phase string) error {
	var scanErr *errors.ScanError
	if goerrors.As(err, &scanErr) {
		scanErr.WithTarget(target).WithPhase(phase)
	}
	return err
}

type nopReporter struct{}

func (nopReporter) PhaseStarted(string, scanning.Phase, []string) {}
func (nopReporter) PhaseProgress(string, string, time.Duration)   {}
func (nopReporter) PhaseFinished(PairReport)                      {}
