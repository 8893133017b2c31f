package translator

import "strings"

// Verdict is the outcome of validating one translation.
type Verdict int

const (
	// Accept means the translation is usable as-is.
	Accept Verdict = iota
	// RejectEmpty means the provider returned nothing for a non-empty
	// source.
	RejectEmpty
	// RejectVerbose means the translation is so much longer than the
	// source that it is likely explanatory text, not a translation.
	RejectVerbose
	// RejectExplanatory means the translation contains meta-commentary
	// markers instead of (or around) the translation itself.
	RejectExplanatory
)

func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case RejectEmpty:
		return "empty"
	case RejectVerbose:
		return "verbose"
	case RejectExplanatory:
		return "explanatory"
	default:
		return "unknown"
	}
}

// explanationIndicators are phrases models emit when they explain
// instead of translating.
var explanationIndicators = []string{
	"I'm sorry",
	"I cannot",
	"This refers to",
	"This means",
	"In this context",
	"Translation:",
}

// Validate checks one translation against its source. Rejection
// reasons are checked in a fixed order: empty, verbose, explanatory.
// multiplier and floor configure the verbosity threshold: a
// translation longer than max(multiplier*len(original), floor) is
// rejected as verbose.
func Validate(original, translated string, multiplier float64, floor int) Verdict {
	trimmed := strings.TrimSpace(translated)

	if trimmed == "" && strings.TrimSpace(original) != "" {
		return RejectEmpty
	}

	limit := multiplier * float64(len(original))
	if limit < float64(floor) {
		limit = float64(floor)
	}
	if float64(len(trimmed)) > limit {
		return RejectVerbose
	}

	lower := strings.ToLower(trimmed)
	for _, indicator := range explanationIndicators {
		if strings.Contains(lower, strings.ToLower(indicator)) {
			return RejectExplanatory
		}
	}

	return Accept
}
