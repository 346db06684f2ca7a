// Package executor runs nmap as a child process, optionally through an
// elevation helper such as sudo, and reports how the invocation ended.
package executor

import (
	"bytes"
	"context"
	goerrors "errors"
	"os/exec"
	"time"

	"github.com/limulus26/Nmapx/internal/errors"
	"github.com/limulus26/Nmapx/internal/logging"
)

const (
	defaultBinary           = "nmap"
	defaultHelper           = "sudo"
	defaultProgressInterval = 15 * time.Second
	defaultTerminateGrace   = 5 * time.Second
)

// Outcome is the terminal state of one invocation.
type Outcome int

const (
	// OutcomeCompleted means the process exited with status 0.
	OutcomeCompleted Outcome = iota
	// OutcomeFailed means the process could not start or exited non-zero.
	OutcomeFailed
	// OutcomeTimedOut means the invocation deadline passed and the process was killed.
	OutcomeTimedOut
	// OutcomeCanceled means the caller's context was canceled and the process was killed.
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ProgressFunc receives the time elapsed since the process started.
type ProgressFunc func(elapsed time.Duration)

// Options configures a ProcessExecutor.
type Options struct {
	// Binary is the nmap executable name or path
	Binary string
	// Elevate runs Binary through Helper
	Elevate bool
	// Helper is the elevation helper executable, "sudo" by default
	Helper string
	// HelperArgs go between Helper and Binary. nil means sudo's "-S -p ''",
	// which reads the credential from stdin without printing a prompt.
	HelperArgs []string
	// ProgressInterval is how often ProgressFunc is called while waiting
	ProgressInterval time.Duration
	// TerminateGrace is how long a terminated process gets before it is killed
	TerminateGrace time.Duration
	Logger         *logging.Logger
}

// Command is a single nmap invocation.
type Command struct {
	// Args follow the nmap binary on the command line
	Args []string
	// Credential is written to the child's stdin when non-zero
	Credential Secret
	// Timeout bounds the invocation; zero means no deadline
	Timeout time.Duration
	// Progress is called every ProgressInterval while the process runs
	Progress ProgressFunc
}

// Result describes how an invocation ended.
type Result struct {
	Outcome  Outcome
	ExitCode int
	Stderr   string
	Duration time.Duration
	// Err holds the spawn or wait error, if any
	Err error
}

// Error converts a non-completed result into a coded error.
func (r *Result) Error(target, phase string) error {
	switch r.Outcome {
	case OutcomeCompleted:
		return nil
	case OutcomeTimedOut:
		return errors.ErrScanTimeout(target, phase).WithContext("duration", r.Duration.String())
	case OutcomeCanceled:
		return errors.ErrScanCanceled(r.Err).WithTarget(target).WithPhase(phase)
	default:
		return errors.WrapScanErrorWithTarget(errors.CodeExecutionFailed, "nmap exited with an error", target, r.Err).
			WithPhase(phase).
			WithContext("exit_code", r.ExitCode).
			WithContext("stderr", r.Stderr)
	}
}

// ProcessExecutor runs nmap invocations one at a time.
type ProcessExecutor struct {
	binary     string
	helper     string
	helperArgs []string
	elevate    bool
	interval   time.Duration
	grace      time.Duration
	logger     *logging.Logger
}

// New resolves the nmap binary and, when elevation is enabled, the helper.
// It fails with errors.CodeMissingDependency if either cannot be found.
func New(opts Options) (*ProcessExecutor, error) {
	if opts.Binary == "" {
		opts.Binary = defaultBinary
	}
	if opts.Helper == "" {
		opts.Helper = defaultHelper
	}
	if opts.HelperArgs == nil {
		opts.HelperArgs = []string{"-S", "-p", ""}
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = defaultProgressInterval
	}
	if opts.TerminateGrace <= 0 {
		opts.TerminateGrace = defaultTerminateGrace
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	binary, err := exec.LookPath(opts.Binary)
	if err != nil {
		return nil, errors.ErrMissingDependency(opts.Binary, err)
	}

	e := &ProcessExecutor{
		binary:   binary,
		elevate:  opts.Elevate,
		interval: opts.ProgressInterval,
		grace:    opts.TerminateGrace,
		logger:   opts.Logger.WithComponent("executor"),
	}

	if opts.Elevate {
		helper, err := exec.LookPath(opts.Helper)
		if err != nil {
			return nil, errors.ErrMissingDependency(opts.Helper, err)
		}
		e.helper = helper
		e.helperArgs = append([]string(nil), opts.HelperArgs...)
	}

	return e, nil
}

// Argv returns the full argument vector used for args, starting with the
// executable path.
func (e *ProcessExecutor) Argv(args []string) []string {
	argv := make([]string, 0, len(e.helperArgs)+len(args)+2)
	if e.elevate {
		argv = append(argv, e.helper)
		argv = append(argv, e.helperArgs...)
	}
	argv = append(argv, e.binary)
	return append(argv, args...)
}

// Execute runs c and blocks until the process exits, the timeout passes or
// ctx is canceled. It never returns nil.
func (e *ProcessExecutor) Execute(ctx context.Context, c Command) *Result {
	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	argv := e.Argv(c.Args)
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...) //nolint:gosec // argv is never passed to a shell
	cmd.Cancel = func() error { return terminate(cmd.Process) }
	cmd.WaitDelay = e.grace

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	var stdin []byte
	if !c.Credential.IsZero() {
		stdin = c.Credential.line()
		cmd.Stdin = bytes.NewReader(stdin)
	}
	defer wipe(stdin)

	e.logger.Debug("starting process", "argv", argv, "timeout", c.Timeout, "credential", c.Credential)

	start := time.Now()
	result := &Result{ExitCode: -1}

	if err := cmd.Start(); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	waitErr := e.wait(cmd, start, c.Progress)

	result.Duration = time.Since(start)
	result.Stderr = stderr.String()
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case waitErr == nil:
		result.Outcome = OutcomeCompleted
	case ctx.Err() != nil:
		result.Outcome = OutcomeCanceled
		result.Err = ctx.Err()
	case goerrors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.Outcome = OutcomeTimedOut
		result.Err = runCtx.Err()
	default:
		result.Outcome = OutcomeFailed
		result.Err = waitErr
	}

	e.logger.Debug("process finished",
		"outcome", result.Outcome.String(),
		"exit_code", result.ExitCode,
		"duration", result.Duration)

	return result
}

// wait blocks on cmd.Wait and reports progress on every tick until it returns.
func (e *ProcessExecutor) wait(cmd *exec.Cmd, start time.Time, progress ProgressFunc) error {
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			if progress != nil {
				progress(time.Since(start))
			}
		}
	}
}
