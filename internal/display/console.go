package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/limulus26/Nmapx/internal/orchestrator"
	"github.com/limulus26/Nmapx/internal/scanning"
)

// Console is an orchestrator.Reporter that prints status lines and result
// tables as pairs finish.
type Console struct {
	out io.Writer
	// ShowSkipped renders the stored results of skipped pairs too
	ShowSkipped bool
}

var _ orchestrator.Reporter = (*Console)(nil)

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{out: w}
}

// PhaseStarted prints the phase being run and the nmap arguments it uses.
func (c *Console) PhaseStarted(target string, phase scanning.Phase, args []string) {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Fprintf(c.out, "\n[*] %s » %s\n", target, phase.Name)
	_, _ = fmt.Fprintf(c.out, "    nmap %s\n", strings.Join(args, " "))
}

// PhaseProgress prints how long the current phase has been running.
func (c *Console) PhaseProgress(target, phase string, elapsed time.Duration) {
	_, _ = fmt.Fprintf(c.out, "    %s %s » %s running for %s\n",
		color.YellowString("⟳"), target, phase, elapsed.Round(time.Second))
}

// PhaseFinished prints the final state of a pair and, for parsed pairs, its results.
func (c *Console) PhaseFinished(r orchestrator.PairReport) {
	switch r.State {
	case orchestrator.StateParsed:
		_, _ = fmt.Fprintf(c.out, "    %s in %s\n", ColorState(r.State), r.Duration.Round(time.Second))
		RenderOutcome(c.out, r.Outcome)
	case orchestrator.StateSkipped:
		_, _ = fmt.Fprintf(c.out, "%s %s » %s already scanned\n", ColorState(r.State), r.Target, r.Phase)
		if c.ShowSkipped && r.Outcome != nil {
			RenderOutcome(c.out, r.Outcome)
		}
	case orchestrator.StateNoPorts:
		_, _ = fmt.Fprintf(c.out, "%s %s » %s no open ports to scan\n", ColorState(r.State), r.Target, r.Phase)
	default:
		_, _ = fmt.Fprintf(c.out, "    %s", ColorState(r.State))
		if r.Err != nil {
			_, _ = fmt.Fprintf(c.out, ": %v", r.Err)
		}
		_, _ = fmt.Fprintln(c.out)
	}
}
