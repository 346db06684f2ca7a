// Package scanning holds the scan plan and the result model of nmapx.
//
// # Overview
//
// A Plan is the ordered list of Phase definitions applied to every target.
// Each Phase names an nmap flag set; a port-restricted phase is narrowed to
// the ports that earlier phases found open on the same target. The built-in
// plan comes from DefaultPlan and can be replaced through configuration.
//
// # Result Model
//
// Parse and ParseFile turn an nmap XML artifact into a ScanOutcome:
//   - ScanOutcome: the recorded nmap command line and one HostResult per <host>
//   - HostResult: the host address and its open ports
//   - PortRecord: protocol, service identification and NSE script output
//
// Only open ports enter the model. Closed, filtered and ambiguous states such
// as "open|filtered" are dropped while parsing. Empty or truncated documents,
// which is what an interrupted nmap leaves behind, fail with
// errors.CodeCorruptOutput; a missing file fails with errors.CodeMissingOutput.
//
// # Port Accumulation
//
// PortSet collects the open ports of one target across phases:
//
//	ports := scanning.NewPortSet()
//	ports.AddOutcome(outcome)
//	if ports.Len() > 0 {
//		args := phase.Arguments(base, target, ports.Snapshot())
//		...
//	}
//
// Snapshot renders the set sorted and comma-joined, ready for nmap's -p flag.
package scanning
