// Package verdict classifies executor output as a completion or continuation
// signal. Any text is acceptable input; parsing never fails.
package verdict

import "strings"

// Verdict is the classification of one iteration's output.
type Verdict string

const (
	Done     Verdict = "done"
	Continue Verdict = "continue"
)

// Marker returns the literal output token corresponding to the verdict.
func (v Verdict) Marker() string {
	if v == Done {
		return DoneMarker
	}
	return ContinueMarker
}

// Literal marker tokens the executor emits in its output.
const (
	DoneMarker     = "STATUS: DONE"
	ContinueMarker = "STATUS: CONTINUE"
)

// windowSize limits marker scanning to the most recent output lines, so
// earlier chatter quoting a marker cannot trigger a false verdict.
const windowSize = 20

// matcher inspects the output window and yields a verdict, or passes.
type matcher func(window []string, doneFlag func() bool) (Verdict, bool)

// matchers is the ordered precedence list: completion marker, continuation
// marker, out-of-band completion flag. The first match wins; with no match
// the verdict defaults to Continue, failing open toward progress rather than
// stranding a task without explicit confirmation.
var matchers = []matcher{
	matchMarker(DoneMarker, Done),
	matchMarker(ContinueMarker, Continue),
	matchDoneFlag,
}

// Parse classifies output. doneFlag probes the workspace's out-of-band
// completion marker; a nil probe means no marker support.
func Parse(output string, doneFlag func() bool) Verdict {
	window := tailLines(output, windowSize)

	for _, m := range matchers {
		if v, ok := m(window, doneFlag); ok {
			return v
		}
	}
	return Continue
}

func matchMarker(token string, v Verdict) matcher {
	return func(window []string, _ func() bool) (Verdict, bool) {
		// Most recent lines first
		for i := len(window) - 1; i >= 0; i-- {
			if strings.Contains(window[i], token) {
				return v, true
			}
		}
		return "", false
	}
}

func matchDoneFlag(_ []string, doneFlag func() bool) (Verdict, bool) {
	if doneFlag != nil && doneFlag() {
		return Done, true
	}
	return "", false
}

func tailLines(output string, n int) []string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
