package scanning

import (
	"strings"
)

// PortState classifies the state nmap reported for a port.
type PortState string

const (
	StateOpen     PortState = "open"
	StateClosed   PortState = "closed"
	StateFiltered PortState = "filtered"
	// StateOther covers everything nmap reports that is not exactly one of
	// the three above, such as "open|filtered" or "unfiltered".
	StateOther PortState = "other"
)

// ParsePortState maps an nmap state string onto a PortState.
func ParsePortState(s string) PortState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return StateOpen
	case "closed":
		return StateClosed
	case "filtered":
		return StateFiltered
	default:
		return StateOther
	}
}

// ScriptResult is the output of one NSE script run against a port.
type ScriptResult struct {
	ID     string
	Output string
}

// PortRecord is an open port together with what nmap identified on it.
type PortRecord struct {
	// PortID is the port number as nmap printed it, e.g. "443"
	PortID string
	// Protocol is the transport protocol ("tcp", "udp" or "sctp")
	Protocol string
	// State is always StateOpen for records inside a ScanOutcome
	State PortState
	// ServiceName, ServiceProduct and ServiceVersion default to ""
	ServiceName    string
	ServiceProduct string
	ServiceVersion string
	// Scripts holds NSE results in document order
	Scripts []ScriptResult
}

// HostResult groups the open ports found on one scanned host.
type HostResult struct {
	Address string
	Ports   []PortRecord
}

// ScanOutcome is the parsed form of one phase's XML artifact for one target.
type ScanOutcome struct {
	// Args is the command line nmap recorded for the run
	Args  string
	Hosts []HostResult
}

// PortIDs returns every port ID in the outcome, in document order.
func (o *ScanOutcome) PortIDs() []string {
	if o == nil {
		return nil
	}
	var ids []string
	for i := range o.Hosts {
		for j := range o.Hosts[i].Ports {
			ids = append(ids, o.Hosts[i].Ports[j].PortID)
		}
	}
	return ids
}

// OpenPortCount returns the number of port records across all hosts.
func (o *ScanOutcome) OpenPortCount() int {
	if o == nil {
		return 0
	}
	n := 0
	for i := range o.Hosts {
		n += len(o.Hosts[i].Ports)
	}
	return n
}
