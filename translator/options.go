// Package translator is the orchestration core: it plans batches,
// builds prompts, dispatches them to a provider, validates what comes
// back, and writes accepted translations into the catalog.
package translator

import (
	"github.com/pescheckit/gpt-po/locale"
	"github.com/pescheckit/gpt-po/provider"
)

const (
	// DefaultBatchSize is the bulk batch size when none is configured.
	DefaultBatchSize = 50
	// DefaultVerboseMultiplier flags translations longer than this
	// multiple of the source as likely explanatory text.
	DefaultVerboseMultiplier = 3.0
	// DefaultVerboseFloor keeps short strings from tripping the
	// verbosity check ("OK" legitimately translates to longer text).
	DefaultVerboseFloor = 40
	// maxAttempts bounds content-level retries per entry: one initial
	// request plus two stricter retries.
	maxAttempts = 3
)

// FuzzyMode selects how fuzzy-flagged entries are handled.
type FuzzyMode string

const (
	// FuzzyOff leaves fuzzy entries untouched.
	FuzzyOff FuzzyMode = "off"
	// FuzzyFix retranslates fuzzy entries and clears the flag only
	// when the new translation validates.
	FuzzyFix FuzzyMode = "fix-fuzzy"
	// FuzzyLegacyStrip drops all fuzzy markers without translating.
	// Kept for compatibility with older workflows; it silently
	// discards translator review state, so it is always warned about.
	FuzzyLegacyStrip FuzzyMode = "legacy-strip"
)

// Target is one requested translation language.
type Target struct {
	// Code is the locale code ("fr", "pt_BR").
	Code string
	// DetailName optionally names the language precisely for the
	// prompt ("Canadian French"). When empty the English display name
	// of Code is used.
	DetailName string
}

// Reference returns the language wording used in prompts.
func (t Target) Reference() string {
	if t.DetailName != "" {
		return t.DetailName
	}
	return locale.DisplayName(t.Code)
}

// Options configures one translation run. The zero value of optional
// fields picks documented defaults.
type Options struct {
	// Provider is the AI backend, already constructed.
	Provider provider.Translator
	// Model is the resolved model name. Empty means provider default.
	Model string
	// Languages are the requested target languages.
	Languages []Target
	// BulkMode sends batches as one JSON-array request instead of one
	// request per entry.
	BulkMode bool
	// BatchSize caps bulk batch length. Zero means DefaultBatchSize.
	BatchSize int
	// DefaultContext disambiguates entries that carry no msgctxt.
	// A per-entry msgctxt always wins over it.
	DefaultContext string
	// TagAI appends the AI provenance marker to translated entries.
	TagAI bool
	// FuzzyMode selects fuzzy entry handling.
	FuzzyMode FuzzyMode
	// VerboseMultiplier overrides DefaultVerboseMultiplier.
	VerboseMultiplier float64
	// VerboseFloor overrides DefaultVerboseFloor.
	VerboseFloor int
	// FolderLanguage enables inferring a catalog's language from its
	// path when the header has no usable Language field.
	FolderLanguage bool

	// OnLog and OnError receive progress and warning lines. Nil
	// callbacks discard the output.
	OnLog   func(format string, args ...any)
	OnError func(format string, args ...any)
}

func (o Options) logf(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o Options) errf(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	}
}

func (o Options) model() string {
	if o.Model != "" {
		return o.Model
	}
	return o.Provider.DefaultModel()
}

func (o Options) batchSize() int {
	if o.BatchSize == 0 {
		return DefaultBatchSize
	}
	return o.BatchSize
}

func (o Options) verboseMultiplier() float64 {
	if o.VerboseMultiplier == 0 {
		return DefaultVerboseMultiplier
	}
	return o.VerboseMultiplier
}

func (o Options) verboseFloor() int {
	if o.VerboseFloor == 0 {
		return DefaultVerboseFloor
	}
	return o.VerboseFloor
}

func (o Options) codes() []string {
	codes := make([]string, len(o.Languages))
	for i, t := range o.Languages {
		codes[i] = t.Code
	}
	return codes
}

func (o Options) targetFor(code string) Target {
	for _, t := range o.Languages {
		if t.Code == code {
			return t
		}
	}
	return Target{Code: code}
}
