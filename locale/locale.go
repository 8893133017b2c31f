// Package locale resolves requested language codes against the evidence
// a catalog offers: its Language header field, its folder path, or
// nothing at all. Matching is deliberately conservative — exact,
// separator-normalized, or base-language fallback, never prefix guessing.
package locale

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/pescheckit/gpt-po/pofile"
)

// MatchResult classifies how a candidate string relates to a requested
// language code.
type MatchResult int

const (
	// NoMatch means the candidate is unrelated to the requested code.
	NoMatch MatchResult = iota
	// Match means the candidate equals the requested code, ignoring
	// case and the -/_ separator difference.
	Match
	// MatchByFallback means the base languages agree ("fr_CA" vs "fr").
	MatchByFallback
)

func (r MatchResult) String() string {
	switch r {
	case Match:
		return "match"
	case MatchByFallback:
		return "match-by-fallback"
	default:
		return "no-match"
	}
}

// Canonicalize normalizes a locale code to the ll-RR shape: separators
// become "-", the language is lowercased, the region uppercased.
func Canonicalize(code string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Base returns the language segment before the first separator
// ("fr_CA" -> "fr").
func Base(code string) string {
	normalized := Canonicalize(code)
	if idx := strings.Index(normalized, "-"); idx > 0 {
		return normalized[:idx]
	}
	return normalized
}

// MatchCode compares a requested language code with a candidate string
// (catalog header field or folder name). Rules in order, first hit wins:
// exact equality ignoring case, separator-normalized equality, then
// base-language equality as a fallback. An empty candidate never matches.
func MatchCode(requested, candidate string) MatchResult {
	if strings.TrimSpace(candidate) == "" {
		return NoMatch
	}
	if strings.EqualFold(requested, candidate) {
		return Match
	}
	reqNorm := Canonicalize(requested)
	candNorm := Canonicalize(candidate)
	if reqNorm == candNorm {
		return Match
	}
	if Base(reqNorm) == Base(candNorm) {
		return MatchByFallback
	}
	return NoMatch
}

// DisplayName returns the English name of a language code for use in
// prompts ("fr_CA" -> "Canadian French"). Unparseable codes fall back
// to the code itself.
func DisplayName(code string) string {
	tag, err := language.Parse(Canonicalize(code))
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// FileLanguage determines which of the requested languages a catalog
// belongs to. The catalog's Language header is consulted first; when it
// yields nothing and folder inference is enabled, path segments
// (LC_MESSAGES parents, language directories, and flat "<lang>.po"
// names) are tried. Exact matches win over base-language fallbacks.
// Returns the requested code (not the candidate) so downstream lookups
// use the caller's spelling.
func FileLanguage(path string, cat *pofile.File, requested []string, folderLanguage bool) (string, MatchResult) {
	header := cat.Language()

	if lang, res := bestMatch(requested, header); res != NoMatch {
		return lang, res
	}

	if folderLanguage {
		for _, part := range pathCandidates(path) {
			if lang, res := bestMatch(requested, part); res != NoMatch {
				return lang, res
			}
		}
	}

	return "", NoMatch
}

// bestMatch returns the first requested code with an exact match
// against the candidate, falling back to the first base-language match.
func bestMatch(requested []string, candidate string) (string, MatchResult) {
	fallback := ""
	for _, req := range requested {
		switch MatchCode(req, candidate) {
		case Match:
			return req, Match
		case MatchByFallback:
			if fallback == "" {
				fallback = req
			}
		}
	}
	if fallback != "" {
		return fallback, MatchByFallback
	}
	return "", NoMatch
}

// pathCandidates extracts language-code candidates from a catalog path:
// every directory segment plus the file name without extension.
func pathCandidates(path string) []string {
	var candidates []string
	dir := filepath.Dir(path)
	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		if part == "" || part == "." || part == "LC_MESSAGES" {
			continue
		}
		candidates = append(candidates, part)
	}
	base := filepath.Base(path)
	candidates = append(candidates, strings.TrimSuffix(base, filepath.Ext(base)))
	return candidates
}

// DetectLanguages scans a folder for .po catalogs and collects the
// distinct Language header values, sorted. Unreadable or malformed
// files are skipped — detection is best-effort. An error is returned
// only when no catalogs exist or none declare a language.
func DetectLanguages(folder string) ([]string, error) {
	seen := make(map[string]bool)
	poFiles := 0

	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".po") {
			return err
		}
		poFiles++
		cat, perr := pofile.ParseFile(path)
		if perr != nil {
			return nil
		}
		if lang := cat.Language(); lang != "" {
			seen[lang] = true
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if poFiles == 0 {
		return nil, fmt.Errorf("no .po files found in %s", folder)
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("no Language metadata in %d .po files under %s; specify target languages explicitly", poFiles, folder)
	}

	detected := make([]string, 0, len(seen))
	for lang := range seen {
		detected = append(detected, lang)
	}
	sort.Strings(detected)
	return detected, nil
}
