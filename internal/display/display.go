// Package display renders scan results, plans and run summaries for the terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/limulus26/Nmapx/internal/orchestrator"
	"github.com/limulus26/Nmapx/internal/scanning"
)

// ColorState returns a colorized pair state with an icon
func ColorState(state orchestrator.PairState) string {
	s := state.String()
	switch {
	case state == orchestrator.StateParsed:
		return color.New(color.FgGreen).Sprint("✓ " + s)
	case state == orchestrator.StateSkipped || state == orchestrator.StateNoPorts:
		return color.New(color.FgYellow).Sprint("○ " + s)
	case state == orchestrator.StateAborted:
		return color.New(color.FgRed, color.Bold).Sprint("✗ " + s)
	case state.Failed():
		return color.New(color.FgRed).Sprint("✗ " + s)
	default:
		return s
	}
}

// RenderOutcome writes the open ports of a parsed outcome as a table with
// one row per script result. Ports without scripts get a single row.
func RenderOutcome(w io.Writer, outcome *scanning.ScanOutcome) {
	if outcome == nil || outcome.OpenPortCount() == 0 {
		_, _ = fmt.Fprintln(w, "No open ports.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("IP", "Protocol", "Port ID", "Service", "Script", "Script Output")

	for _, host := range outcome.Hosts {
		for _, port := range host.Ports {
			service := serviceLabel(port)
			if len(port.Scripts) == 0 {
				_ = table.Append([]string{host.Address, port.Protocol, port.PortID, service, "", ""})
				continue
			}
			for _, script := range port.Scripts {
				_ = table.Append([]string{
					host.Address,
					port.Protocol,
					port.PortID,
					service,
					script.ID,
					strings.TrimSpace(script.Output),
				})
			}
		}
	}

	_ = table.Render()
}

// serviceLabel joins name, product and version, skipping blanks.
func serviceLabel(p scanning.PortRecord) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.ServiceName, p.ServiceProduct, p.ServiceVersion} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// RenderPlan writes the phases of a plan as a table.
func RenderPlan(w io.Writer, plan *scanning.Plan, defaultTimeout time.Duration) {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Phase", "Flags", "Port Restricted", "Timeout")

	for i, p := range plan.Phases {
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		restricted := "no"
		if p.PortRestricted {
			restricted = "yes (-p <discovered>)"
		}
		_ = table.Append([]string{
			fmt.Sprintf("%d", i+1),
			p.Name,
			strings.Join(p.Flags, " "),
			restricted,
			timeout.String(),
		})
	}

	_ = table.Render()
}

// RenderSummary writes the final state of every pair of a run.
func RenderSummary(w io.Writer, summary *orchestrator.RunSummary) {
	if summary == nil {
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Target", "Phase", "State", "Open Ports", "Duration", "Error")

	for _, r := range summary.Pairs {
		openPorts := ""
		if r.Outcome != nil {
			openPorts = fmt.Sprintf("%d", r.Outcome.OpenPortCount())
		}
		duration := ""
		if r.Duration > 0 {
			duration = r.Duration.Round(time.Second).String()
		}
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		_ = table.Append([]string{r.Target, r.Phase, ColorState(r.State), openPorts, duration, errText})
	}

	_ = table.Render()

	status := color.GreenString("completed")
	if summary.Aborted {
		status = color.RedString("aborted")
	}
	_, _ = fmt.Fprintf(w, "\nRun %s %s in %s: %d parsed, %d skipped, %d failed\n",
		summary.RunID, status, summary.Duration().Round(time.Second),
		summary.Count(orchestrator.StateParsed),
		summary.Count(orchestrator.StateSkipped),
		summary.Failures())
	_, _ = fmt.Fprintf(w, "Results saved to: %s\n", color.CyanString(summary.Root))
}
