// Command nmapx runs a progressive nmap scan plan against one or more targets.
package main

import "github.com/limulus26/Nmapx/cmd/cli"

// Set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
