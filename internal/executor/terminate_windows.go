//go:build windows

package executor

import "os"

func terminate(p *os.Process) error {
	return p.Kill()
}
