package metrics

import "time"

// Recorder defines the metrics the scan pipeline emits.
// This interface allows for easy mocking and testing of metrics functionality.
type Recorder interface {
	// ObservePhase records the final state of one (target, phase) pair.
	ObservePhase(phase, state string, duration time.Duration)

	// AddOpenPorts records open port records parsed from a phase's output.
	AddOpenPorts(phase string, count int)

	// ScanStarted and ScanFinished bracket one nmap process.
	ScanStarted()
	ScanFinished()

	// ObserveRun records a finished pipeline run.
	ObserveRun(status string, targets int, duration time.Duration)
}

// Nop is a Recorder that discards everything.
type Nop struct{}

func (Nop) ObservePhase(string, string, time.Duration) {}
func (Nop) AddOpenPorts(string, int)                   {}
func (Nop) ScanStarted()                               {}
func (Nop) ScanFinished()                              {}
func (Nop) ObserveRun(string, int, time.Duration)      {}

// Ensure that both implementations satisfy Recorder.
var (
	_ Recorder = (*PrometheusMetrics)(nil)
	_ Recorder = Nop{}
)
