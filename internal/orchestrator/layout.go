package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/limulus26/Nmapx/internal/errors"
)

const (
	// RunDirFormat names a run directory after its start time.
	RunDirFormat = "2006-01-02_15-04-05"

	dirPerm = 0750
)

var targetReplacer = strings.NewReplacer("/", "_", `\`, "_", ":", "_")

// Layout maps (phase, target) pairs onto artifact paths under one run directory:
// <root>/<phase>/<target>.{xml,nmap,gnmap}
type Layout struct {
	Root string
}

// NewLayout returns the layout for runDir under resultsDir. An empty runDir
// is replaced by the current time in RunDirFormat.
func NewLayout(resultsDir, runDir string) Layout {
	if runDir == "" {
		runDir = time.Now().Format(RunDirFormat)
	}
	return Layout{Root: filepath.Join(resultsDir, runDir)}
}

// SanitizeTarget makes a target usable as a file name. CIDR ranges and IPv6
// addresses contain characters that are path separators on some platforms.
func SanitizeTarget(target string) string {
	return targetReplacer.Replace(target)
}

// CheckTargets fails with errors.CodeTargetInvalid when two distinct targets
// would share an artifact file name, such as "a/b" and "a:b".
func CheckTargets(targets []string) error {
	seen := make(map[string]string, len(targets))
	for _, t := range targets {
		name := SanitizeTarget(t)
		if prev, ok := seen[name]; ok && prev != t {
			return errors.ErrInvalidTarget(t).
				WithContext("collides_with", prev).
				WithContext("file_name", name)
		}
		seen[name] = t
	}
	return nil
}

// PhaseDir is the directory holding every artifact of one phase.
func (l Layout) PhaseDir(phase string) string {
	return filepath.Join(l.Root, phase)
}

// OutputBase is the path handed to nmap's -oA flag.
func (l Layout) OutputBase(phase, target string) string {
	return filepath.Join(l.PhaseDir(phase), SanitizeTarget(target))
}

// XMLPath is the XML artifact nmap writes for OutputBase.
func (l Layout) XMLPath(phase, target string) string {
	return l.OutputBase(phase, target) + ".xml"
}

// Exists reports whether the XML artifact for the pair is already on disk.
func (l Layout) Exists(phase, target string) bool {
	info, err := os.Stat(l.XMLPath(phase, target))
	return err == nil && info.Mode().IsRegular()
}

// EnsurePhaseDir creates the phase directory if needed.
func (l Layout) EnsurePhaseDir(phase string) error {
	dir := l.PhaseDir(phase)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return errors.WrapScanError(errors.CodeDirectoryCreate, "failed to create phase directory", err).
			WithPhase(phase).
			WithContext("path", dir)
	}
	return nil
}
