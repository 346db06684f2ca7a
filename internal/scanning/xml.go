package scanning

import (
	"bytes"
	"encoding/xml"
	goerrors "errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/Ullaakut/nmap/v3"

	"github.com/limulus26/Nmapx/internal/errors"
)

// Parse converts the contents of an nmap XML artifact into a ScanOutcome.
// Empty or malformed input, including output from an interrupted scan,
// fails with errors.CodeCorruptOutput.
func Parse(data []byte) (*ScanOutcome, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.ErrCorruptOutput(goerrors.New("empty document"))
	}

	var run nmap.Run
	if err := xml.Unmarshal(data, &run); err != nil {
		return nil, errors.ErrCorruptOutput(err)
	}

	outcome := &ScanOutcome{
		Args:  run.Args,
		Hosts: make([]HostResult, 0, len(run.Hosts)),
	}
	for i := range run.Hosts {
		outcome.Hosts = append(outcome.Hosts, convertNmapHost(&run.Hosts[i]))
	}

	return outcome, nil
}

// ParseFile reads and parses the XML artifact at path. A missing file fails
// with errors.CodeMissingOutput so callers can tell it apart from a corrupt one.
func ParseFile(path string) (*ScanOutcome, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built by the orchestrator layout
	if err != nil {
		if goerrors.Is(err, fs.ErrNotExist) {
			return nil, errors.ErrMissingOutput(path)
		}
		return nil, errors.WrapScanError(errors.CodeFileNotFound, "failed to read scan output", err).
			WithContext("path", path)
	}

	outcome, err := Parse(data)
	if err != nil {
		var scanErr *errors.ScanError
		if goerrors.As(err, &scanErr) {
			scanErr.WithContext("path", path)
		}
		return nil, err
	}
	return outcome, nil
}

// convertNmapHost converts an nmap host into a HostResult, keeping only open ports.
func convertNmapHost(h *nmap.Host) HostResult {
	host := HostResult{
		Address: hostAddress(h.Addresses),
		Ports:   make([]PortRecord, 0, len(h.Ports)),
	}

	for j := range h.Ports {
		p := &h.Ports[j]
		state := ParsePortState(p.State.State)
		if state != StateOpen {
			continue
		}

		// encoding/xml decodes every <service> element into the same struct,
		// so attributes of a later element overwrite those of an earlier one.
		record := PortRecord{
			PortID:         strconv.Itoa(int(p.ID)),
			Protocol:       p.Protocol,
			State:          state,
			ServiceName:    p.Service.Name,
			ServiceProduct: p.Service.Product,
			ServiceVersion: p.Service.Version,
		}
		for _, s := range p.Scripts {
			record.Scripts = append(record.Scripts, ScriptResult{ID: s.ID, Output: s.Output})
		}
		host.Ports = append(host.Ports, record)
	}

	return host
}

// hostAddress picks the first IP address, falling back to the first address of any type.
func hostAddress(addrs []nmap.Address) string {
	for _, a := range addrs {
		if a.AddrType == "ipv4" || a.AddrType == "ipv6" {
			return a.Addr
		}
	}
	if len(addrs) > 0 {
		return addrs[0].Addr
	}
	return ""
}
