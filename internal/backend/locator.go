package backend

import "os/exec"

// DefaultWhisperCandidates lists whisper.cpp binary locations in order of
// preference: self-installed absolute paths first, then bare names on PATH.
var DefaultWhisperCandidates = []string{
	"/usr/local/bin/whisper",
	"/usr/local/bin/main",
	"/usr/local/bin/whisper-cli",
	"/usr/bin/whisper",
	"whisper",
	"main",
	"whisper-cli",
}

// Locator finds the first installed binary among an ordered candidate list.
// Lookups are not cached.
type Locator struct {
	candidates []string
	lookPath   func(string) (string, error)
}

// NewLocator creates a locator. A nil or empty list falls back to
// DefaultWhisperCandidates.
func NewLocator(candidates []string) *Locator {
	if len(candidates) == 0 {
		candidates = DefaultWhisperCandidates
	}

	return &Locator{
		candidates: append([]string(nil), candidates...),
		lookPath:   exec.LookPath,
	}
}

// Candidates returns the ordered candidate list.
func (l *Locator) Candidates() []string {
	return append([]string(nil), l.candidates...)
}

// Locate returns the first candidate that resolves to an executable.
func (l *Locator) Locate() (string, bool) {
	for _, c := range l.candidates {
		if path, err := l.lookPath(c); err == nil {
			return path, true
		}
	}

	return "", false
}
