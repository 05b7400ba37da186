package engine

import "strings"

// signaturePatterns maps log-text markers to short failure
// classifications. First match wins; order runs from specific to broad.
var signaturePatterns = []struct {
	signature string
	markers   []string
}{
	{"out of memory", []string{"out of memory", "oomkilled", "cannot allocate memory"}},
	{"permission denied", []string{"permission denied", "access denied", "unauthorized"}},
	{"connection failure", []string{"connection refused", "connection reset", "could not resolve host", "no route to host"}},
	{"timeout", []string{"timed out", "timeout", "deadline exceeded"}},
	{"non-zero exit", []string{"exited with code", "exit code", "returned non-zero", "non-zero exit"}},
}

// extractSignature derives a short best-effort classification from raw
// log text. It is advisory only: an empty result is perfectly valid and
// nothing downstream depends on a match.
func extractSignature(logText string) string {
	text := strings.ToLower(logText)
	for _, p := range signaturePatterns {
		for _, marker := range p.markers {
			if strings.Contains(text, marker) {
				return p.signature
			}
		}
	}
	return ""
}
