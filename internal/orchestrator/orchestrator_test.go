package orchestrator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/limulus26/Nmapx/internal/errors"
	"github.com/limulus26/Nmapx/internal/executor"
	"github.com/limulus26/Nmapx/internal/logging"
	"github.com/limulus26/Nmapx/internal/orchestrator"
	"github.com/limulus26/Nmapx/internal/orchestrator/mocks"
	"github.com/limulus26/Nmapx/internal/scanning"
)

const target = "10.0.0.1"

func nmapXML(ports ...string) string {
	doc := `<?xml version="1.0"?><nmaprun args="nmap"><host><address addr="10.0.0.1" addrtype="ipv4"/><ports>`
	for _, p := range ports {
		doc += `<port protocol="tcp" portid="` + p + `"><state state="open"/><service name="svc"/></port>`
	}
	return doc + `</ports></host></nmaprun>`
}

// writesXML returns an Execute stub that behaves like nmap -oA: it writes the
// XML artifact next to the base path found in the arguments.
func writesXML(t *testing.T, ports ...string) func(context.Context, executor.Command) *executor.Result {
	return func(_ context.Context, c executor.Command) *executor.Result {
		require.GreaterOrEqual(t, len(c.Args), 2)
		require.Equal(t, "-oA", c.Args[0])
		require.NoError(t, os.WriteFile(c.Args[1]+".xml", []byte(nmapXML(ports...)), 0o600))
		return &executor.Result{Outcome: executor.OutcomeCompleted, Duration: time.Second}
	}
}

func twoPhasePlan(t *testing.T) *scanning.Plan {
	t.Helper()
	plan, err := scanning.NewPlan(
		scanning.Phase{Name: "P1", Flags: []string{"-Pn"}},
		scanning.Phase{Name: "P2", Flags: []string{"-sCV"}, PortRestricted: true},
	)
	require.NoError(t, err)
	return plan
}

func newOrchestrator(t *testing.T, plan *scanning.Plan, exec orchestrator.Executor, force bool) *orchestrator.Orchestrator {
	t.Helper()
	return orchestrator.New(plan, exec, orchestrator.Options{
		ResultsDir: t.TempDir(),
		RunDir:     "run",
		Force:      force,
		Logger:     logging.NewDiscard(),
	})
}

func TestRunInjectsDiscoveredPorts(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	o := newOrchestrator(t, twoPhasePlan(t), exec, false)

	var p2Args []string
	gomock.InOrder(
		exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writesXML(t, "80")),
		exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, c executor.Command) *executor.Result {
				p2Args = c.Args
				return writesXML(t, "80", "443")(ctx, c)
			}),
	)

	summary, err := o.Run(context.Background(), []string{target})
	require.NoError(t, err)
	require.Len(t, summary.Pairs, 2)

	base := o.Layout().OutputBase("P2", target)
	assert.Equal(t, []string{"-oA", base, "-sCV", "-p", "80", target}, p2Args)
	assert.Equal(t, "80", summary.Pairs[1].Ports)
	assert.Equal(t, 2, summary.Count(orchestrator.StateParsed))
	assert.False(t, summary.Aborted)
	assert.NotEmpty(t, summary.RunID)
}

func TestRunSkipsRestrictedPhaseWithoutPorts(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	o := newOrchestrator(t, twoPhasePlan(t), exec, false)

	// P1 finds nothing; P2 must never be invoked.
	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writesXML(t)).Times(1)

	summary, err := o.Run(context.Background(), []string{target})
	require.NoError(t, err)
	require.Len(t, summary.Pairs, 2)
	assert.Equal(t, orchestrator.StateParsed, summary.Pairs[0].State)
	assert.Equal(t, orchestrator.StateNoPorts, summary.Pairs[1].State)
}

func TestRunSkipsExistingArtifacts(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	o := newOrchestrator(t, twoPhasePlan(t), exec, false)

	layout := o.Layout()
	require.NoError(t, layout.EnsurePhaseDir("P1"))
	require.NoError(t, os.WriteFile(layout.XMLPath("P1", target), []byte(nmapXML("22")), 0o600))

	// P1 is skipped but its ports still feed P2.
	var p2Args []string
	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, c executor.Command) *executor.Result {
			p2Args = c.Args
			return writesXML(t, "22")(ctx, c)
		}).Times(1)

	summary, err := o.Run(context.Background(), []string{target})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateSkipped, summary.Pairs[0].State)
	require.NotNil(t, summary.Pairs[0].Outcome)
	assert.Equal(t, orchestrator.StateParsed, summary.Pairs[1].State)
	assert.Contains(t, p2Args, "22")
}

func TestRunResumesCompletedRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	o := newOrchestrator(t, twoPhasePlan(t), exec, false)

	layout := o.Layout()
	for _, phase := range []string{"P1", "P2"} {
		require.NoError(t, layout.EnsurePhaseDir(phase))
		require.NoError(t, os.WriteFile(layout.XMLPath(phase, target), []byte(nmapXML("80")), 0o600))
	}

	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)

	summary, err := o.Run(context.Background(), []string{target})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count(orchestrator.StateSkipped))
}

// partialXML is what nmap leaves behind when it is stopped mid-scan: the
// header and an unterminated host element.
const partialXML = `<?xml version="1.0"?><nmaprun args="nmap -Pn 10.0.0.1"><host><address addr="10.0.0.1" addrtype="ipv4"/>`

func TestRunRescansInterruptedPhase(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	resultsDir := t.TempDir()
	newRun := func() *orchestrator.Orchestrator {
		return orchestrator.New(twoPhasePlan(t), exec, orchestrator.Options{
			ResultsDir: resultsDir,
			RunDir:     "run",
			Logger:     logging.NewDiscard(),
		})
	}

	// First run: P1 is interrupted after nmap wrote its XML header.
	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c executor.Command) *executor.Result {
			require.NoError(t, os.WriteFile(c.Args[1]+".xml", []byte(partialXML), 0o600))
			return &executor.Result{Outcome: executor.OutcomeCanceled, Err: context.Canceled}
		})

	summary, err := newRun().Run(context.Background(), []string{target})
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
	assert.Equal(t, orchestrator.StateAborted, summary.Pairs[0].State)

	// Second run in the same directory: P1 runs again and its ports reach P2.
	var p2Args []string
	gomock.InOrder(
		exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writesXML(t, "443")),
		exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, c executor.Command) *executor.Result {
				p2Args = c.Args
				return writesXML(t, "443")(ctx, c)
			}),
	)

	summary, err = newRun().Run(context.Background(), []string{target})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count(orchestrator.StateParsed))
	assert.Zero(t, summary.Count(orchestrator.StateSkipped))
	assert.Zero(t, summary.Count(orchestrator.StateNoPorts))
	assert.Contains(t, p2Args, "443")
}

func TestRunRescansTimedOutPhase(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	o := newOrchestrator(t, twoPhasePlan(t), exec, false)

	layout := o.Layout()
	require.NoError(t, layout.EnsurePhaseDir("P1"))
	require.NoError(t, os.WriteFile(layout.XMLPath("P1", target), []byte(partialXML), 0o600))

	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writesXML(t, "22")).Times(2)

	summary, err := o.Run(context.Background(), []string{target})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateParsed, summary.Pairs[0].State)
	assert.Equal(t, "22", summary.Pairs[1].Ports)

	outcome, err := scanning.ParseFile(layout.XMLPath("P1", target))
	require.NoError(t, err, "the truncated artifact is overwritten")
	assert.Equal(t, 1, outcome.OpenPortCount())
}

func TestRunRejectsCollidingTargets(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)
	o := newOrchestrator(t, twoPhasePlan(t), exec, false)

	summary, err := o.Run(context.Background(), []string{"10.0.0.0/24", "10.0.0.0:24"})
	assert.Nil(t, summary)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeTargetInvalid))
}

func TestRunForceRescans(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	o := newOrchestrator(t, twoPhasePlan(t), exec, true)

	layout := o.Layout()
	require.NoError(t, layout.EnsurePhaseDir("P1"))
	require.NoError(t, os.WriteFile(layout.XMLPath("P1", target), []byte(nmapXML("22")), 0o600))

	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writesXML(t, "8080")).Times(2)

	summary, err := o.Run(context.Background(), []string{target})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count(orchestrator.StateParsed))
	assert.Equal(t, "8080", summary.Pairs[1].Ports)
}

func TestRunContinuesAfterRecoverableFailures(t *testing.T) {
	tests := []struct {
		name  string
		first func(context.Context, executor.Command) *executor.Result
		want  orchestrator.PairState
		code  errors.ErrorCode
	}{
		{
			name: "timed out",
			first: func(context.Context, executor.Command) *executor.Result {
				return &executor.Result{Outcome: executor.OutcomeTimedOut, Duration: time.Hour}
			},
			want: orchestrator.StateTimedOut,
			code: errors.CodeTimeout,
		},
		{
			name: "non-zero exit",
			first: func(context.Context, executor.Command) *executor.Result {
				return &executor.Result{Outcome: executor.OutcomeFailed, ExitCode: 1, Stderr: "QUITTING!"}
			},
			want: orchestrator.StateExecutionFailed,
			code: errors.CodeExecutionFailed,
		},
		{
			name: "missing output",
			first: func(context.Context, executor.Command) *executor.Result {
				return &executor.Result{Outcome: executor.OutcomeCompleted}
			},
			want: orchestrator.StateMissingOutput,
			code: errors.CodeMissingOutput,
		},
		{
			name: "corrupt output",
			first: func(_ context.Context, c executor.Command) *executor.Result {
				_ = os.WriteFile(c.Args[1]+".xml", []byte(`<nmaprun><host>`), 0o600)
				return &executor.Result{Outcome: executor.OutcomeCompleted}
			},
			want: orchestrator.StateCorruptOutput,
			code: errors.CodeCorruptOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			exec := mocks.NewMockExecutor(ctrl)
			plan, err := scanning.NewPlan(
				scanning.Phase{Name: "P1", Flags: []string{"-Pn"}},
				scanning.Phase{Name: "P2", Flags: []string{"-sU"}},
			)
			require.NoError(t, err)
			o := newOrchestrator(t, plan, exec, false)

			gomock.InOrder(
				exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(tt.first),
				exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writesXML(t, "53")),
			)

			summary, err := o.Run(context.Background(), []string{target})
			require.NoError(t, err)
			require.Len(t, summary.Pairs, 2)

			failed := summary.Pairs[0]
			assert.Equal(t, tt.want, failed.State)
			assert.True(t, errors.IsCode(failed.Err, tt.code), "got %v", failed.Err)

			var scanErr *errors.ScanError
			require.ErrorAs(t, failed.Err, &scanErr)
			assert.Equal(t, target, scanErr.Target)
			assert.Equal(t, "P1", scanErr.Phase)

			assert.Equal(t, orchestrator.StateParsed, summary.Pairs[1].State)
			assert.Equal(t, 1, summary.Failures())
		})
	}
}

func TestRunAbortsOnCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	plan, err := scanning.NewPlan(
		scanning.Phase{Name: "P1", Flags: []string{"-Pn"}},
		scanning.Phase{Name: "P2", Flags: []string{"-sU"}},
	)
	require.NoError(t, err)
	o := newOrchestrator(t, plan, exec, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Only the first pair runs; neither the second phase nor the second target is attempted.
	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, executor.Command) *executor.Result {
			cancel()
			return &executor.Result{Outcome: executor.OutcomeCanceled, Err: context.Canceled}
		}).Times(1)

	summary, err := o.Run(ctx, []string{target, "10.0.0.2"})
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
	require.NotNil(t, summary)
	assert.True(t, summary.Aborted)
	require.Len(t, summary.Pairs, 1)
	assert.Equal(t, orchestrator.StateAborted, summary.Pairs[0].State)
}

func TestRunCanceledBeforeStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	o := newOrchestrator(t, twoPhasePlan(t), exec, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)

	summary, err := o.Run(ctx, []string{target})
	assert.True(t, errors.IsCanceled(err))
	assert.Empty(t, summary.Pairs)
}

func TestRunPortSetIsPerTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	o := newOrchestrator(t, twoPhasePlan(t), exec, false)

	gomock.InOrder(
		// first target: P1 finds 80, P2 runs
		exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writesXML(t, "80")),
		exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writesXML(t, "80")),
		// second target: P1 finds nothing, so P2 has no ports of its own
		exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writesXML(t)),
	)

	summary, err := o.Run(context.Background(), []string{target, "10.0.0.2"})
	require.NoError(t, err)
	require.Len(t, summary.Pairs, 4)
	assert.Equal(t, orchestrator.StateNoPorts, summary.Pairs[3].State)
}

func TestRunPassesCredentialAndTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	plan, err := scanning.NewPlan(
		scanning.Phase{Name: "P1", Flags: []string{"-Pn"}},
		scanning.Phase{Name: "P2", Flags: []string{"-sU"}, Timeout: time.Minute},
	)
	require.NoError(t, err)

	cred := executor.NewSecret("pw")
	o := orchestrator.New(plan, exec, orchestrator.Options{
		ResultsDir: t.TempDir(),
		RunDir:     "run",
		Credential: cred,
		Timeout:    30 * time.Minute,
		Logger:     logging.NewDiscard(),
	})

	var timeouts []time.Duration
	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, c executor.Command) *executor.Result {
			assert.False(t, c.Credential.IsZero())
			timeouts = append(timeouts, c.Timeout)
			return writesXML(t)(ctx, c)
		}).Times(2)

	_, err = o.Run(context.Background(), []string{target})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{30 * time.Minute, time.Minute}, timeouts)
}

func TestRunReportsEveryPair(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	reporter := mocks.NewMockReporter(ctrl)

	o := orchestrator.New(twoPhasePlan(t), exec, orchestrator.Options{
		ResultsDir: t.TempDir(),
		RunDir:     "run",
		Reporter:   reporter,
		Logger:     logging.NewDiscard(),
	})

	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, c executor.Command) *executor.Result {
			c.Progress(5 * time.Second)
			return writesXML(t)(ctx, c)
		})

	gomock.InOrder(
		reporter.EXPECT().PhaseStarted(target, gomock.Any(),
			[]string{"-oA", o.Layout().OutputBase("P1", target), "-Pn", target}),
		reporter.EXPECT().PhaseProgress(target, "P1", 5*time.Second),
		reporter.EXPECT().PhaseFinished(gomock.Any()).Do(func(r orchestrator.PairReport) {
			assert.Equal(t, orchestrator.StateParsed, r.State)
		}),
		reporter.EXPECT().PhaseFinished(gomock.Any()).Do(func(r orchestrator.PairReport) {
			assert.Equal(t, orchestrator.StateNoPorts, r.State)
		}),
	)

	_, err := o.Run(context.Background(), []string{target})
	require.NoError(t, err)
}

func TestRunRejectsEmptyTargets(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newOrchestrator(t, twoPhasePlan(t), mocks.NewMockExecutor(ctrl), false)

	summary, err := o.Run(context.Background(), nil)
	assert.Nil(t, summary)
	assert.True(t, errors.IsCode(err, errors.CodeTargetInvalid))
}

func TestRunWritesUnderRunDirectory(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	o := newOrchestrator(t, twoPhasePlan(t), exec, false)

	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writesXML(t))

	summary, err := o.Run(context.Background(), []string{"192.168.0.0/24"})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(summary.Root, "P1", "192.168.0.0_24.xml"))
	assert.NoError(t, err)
}
