package translator

import "strings"

const whitespaceCutset = " \t\n\r"

// WSPattern records the exact leading and trailing whitespace stripped
// from a source string, verbatim.
type WSPattern struct {
	Leading  string
	Trailing string
}

// StripWS splits a source string into its core text and the
// surrounding whitespace pattern. Restore(core) on the returned
// pattern reproduces the input exactly.
func StripWS(s string) (string, WSPattern) {
	core := strings.Trim(s, whitespaceCutset)
	if core == "" {
		// Whitespace-only input: everything is leading.
		return "", WSPattern{Leading: s}
	}
	start := len(s) - len(strings.TrimLeft(s, whitespaceCutset))
	end := start + len(core)
	return core, WSPattern{Leading: s[:start], Trailing: s[end:]}
}

// Restore wraps a translated core in the recorded whitespace.
func (p WSPattern) Restore(core string) string {
	return p.Leading + core + p.Trailing
}
