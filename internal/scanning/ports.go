package scanning

import (
	"sort"
	"strconv"
	"strings"
)

// PortSet accumulates the open ports discovered for one target. It only grows.
// A PortSet is not safe for concurrent use.
type PortSet struct {
	ports map[string]struct{}
}

// NewPortSet returns an empty PortSet.
func NewPortSet() *PortSet {
	return &PortSet{ports: make(map[string]struct{})}
}

// Add inserts port IDs into the set. Blank IDs and duplicates are ignored.
func (s *PortSet) Add(ids ...string) {
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		s.ports[id] = struct{}{}
	}
}

// AddOutcome folds every open port of a parsed outcome into the set.
func (s *PortSet) AddOutcome(o *ScanOutcome) {
	s.Add(o.PortIDs()...)
}

// Len returns the number of distinct ports.
func (s *PortSet) Len() int {
	return len(s.ports)
}

// Contains reports whether id has been added.
func (s *PortSet) Contains(id string) bool {
	_, ok := s.ports[strings.TrimSpace(id)]
	return ok
}

// Snapshot renders the set as a comma-joined list suitable for nmap's -p flag.
// Numeric IDs sort numerically and come before any non-numeric ones.
func (s *PortSet) Snapshot() string {
	if len(s.ports) == 0 {
		return ""
	}

	ids := make([]string, 0, len(s.ports))
	for id := range s.ports {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})

	return strings.Join(ids, ",")
}
