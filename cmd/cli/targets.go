package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/limulus26/Nmapx/internal/errors"
	"github.com/limulus26/Nmapx/internal/orchestrator"
)

// collectTargets merges positional targets and target files into one ordered,
// deduplicated list. A positional argument ending in .txt that names an
// existing file is read as a target file.
func collectTargets(args []string, targetsFile string) ([]string, error) {
	var targets []string

	for _, arg := range args {
		if strings.HasSuffix(arg, ".txt") {
			if info, err := os.Stat(arg); err == nil && info.Mode().IsRegular() {
				fromFile, err := readTargetsFile(arg)
				if err != nil {
					return nil, err
				}
				targets = append(targets, fromFile...)
				continue
			}
		}
		targets = append(targets, arg)
	}

	if targetsFile != "" {
		fromFile, err := readTargetsFile(targetsFile)
		if err != nil {
			return nil, err
		}
		targets = append(targets, fromFile...)
	}

	targets = dedupeTargets(targets)
	if len(targets) == 0 {
		return nil, errors.NewScanError(errors.CodeTargetInvalid, "no targets given")
	}

	for _, t := range targets {
		if err := validateTarget(t); err != nil {
			return nil, err
		}
	}
	if err := orchestrator.CheckTargets(targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// readTargetsFile reads one target per line, ignoring blank lines and
// lines starting with #.
func readTargetsFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, errors.WrapScanError(errors.CodeTargetInvalid, "failed to open targets file", err).
			WithContext("path", path)
	}
	defer func() { _ = f.Close() }()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WrapScanError(errors.CodeTargetInvalid, "failed to read targets file", err).
			WithContext("path", path)
	}
	return targets, nil
}

func dedupeTargets(targets []string) []string {
	seen := make(map[string]struct{}, len(targets))
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// validateTarget rejects strings nmap would read as options or split into
// several targets.
func validateTarget(target string) error {
	if strings.HasPrefix(target, "-") {
		return errors.ErrInvalidTarget(target).WithContext("reason", "looks like a flag")
	}
	if strings.ContainsAny(target, " \t") {
		return errors.ErrInvalidTarget(target).WithContext("reason", fmt.Sprintf("contains whitespace: %q", target))
	}
	return nil
}
