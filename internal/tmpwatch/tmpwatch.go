// Package tmpwatch reports files left behind in a temporary directory
// between the phases of a run.
package tmpwatch

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Changes is the difference computed by one Check
type Changes struct {
	Added     []string
	Removed   []string
	Lingering []string // present now, absent initially, and not new in this phase
	Reported  bool
}

// Session remembers the directory contents between checks
type Session struct {
	dir      string
	log      *zap.Logger
	initial  map[string]struct{}
	previous map[string]struct{}
}

// NewSession watches dir, or os.TempDir() when dir is empty
func NewSession(dir string, log *zap.Logger) *Session {
	if dir == "" {
		dir = os.TempDir()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{dir: dir, log: log, previous: map[string]struct{}{}}
}

// Dir returns the watched directory
func (s *Session) Dir() string { return s.dir }

// Check lists the directory and warns about entries that appeared or
// disappeared since the previous check. The first check records the
// baseline. A directory that cannot be read is treated as empty.
func (s *Session) Check(phase string) Changes {
	current := s.list()
	if s.initial == nil {
		s.initial = current
	}
	added := minus(current, s.previous)
	removed := minus(s.previous, current)
	s.previous = current

	var ch Changes
	if len(added) == 0 && len(removed) == 0 {
		return ch
	}
	if sameSet(s.initial, current) {
		return ch
	}

	addedSet := make(map[string]struct{}, len(added))
	for _, p := range added {
		addedSet[p] = struct{}{}
	}
	for _, p := range minus(current, s.initial) {
		if _, ok := addedSet[p]; !ok {
			ch.Lingering = append(ch.Lingering, p)
		}
	}
	ch.Added, ch.Removed, ch.Reported = added, removed, true

	var lines []string
	for _, p := range ch.Added {
		lines = append(lines, "+ "+p)
	}
	for _, p := range ch.Removed {
		lines = append(lines, "- "+p)
	}
	for _, p := range ch.Lingering {
		lines = append(lines, "  "+p)
	}
	s.log.Warn("temporary files left behind",
		zap.String("phase", phase),
		zap.String("dir", s.dir),
		zap.String("changes", strings.Join(lines, "\n")),
	)
	return ch
}

func (s *Session) list() map[string]struct{} {
	out := map[string]struct{}{}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Debug("read temporary directory", zap.String("dir", s.dir), zap.Error(err))
		return out
	}
	for _, e := range entries {
		out[filepath.Join(s.dir, e.Name())] = struct{}{}
	}
	return out
}

// minus returns the sorted entries of a missing from b
func minus(a, b map[string]struct{}) []string {
	var out []string
	for p := range a {
		if _, ok := b[p]; !ok {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

func sameSet(a, b map[string]struct{}) bool {
	return len(a) == len(b) && len(minus(a, b)) == 0
}
