//go:build !windows

package executor

import (
	"os"
	"syscall"
)

// terminate asks the process to exit. sudo relays SIGTERM to nmap.
func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
