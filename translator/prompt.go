package translator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode selects single-entry or bulk prompt shape.
type Mode int

const (
	// Single requests exactly one direct translation.
	Single Mode = iota
	// Bulk requests a JSON array of translations in input order.
	Bulk
)

// EffectiveContext resolves the context for one entry: an explicit
// msgctxt always wins over the run-wide default.
func EffectiveContext(msgctxt, defaultContext string) string {
	if msgctxt != "" {
		return msgctxt
	}
	return defaultContext
}

// BuildPrompt constructs the provider-agnostic translation instruction.
// texts must hold exactly one element in Single mode.
func BuildPrompt(texts []string, target Target, context string, mode Mode) string {
	var b strings.Builder

	if context != "" {
		fmt.Fprintf(&b, "Translation context: %s. Use this context to disambiguate ambiguous terms.\n\n", context)
	}

	ref := target.Reference()

	if mode == Bulk {
		fmt.Fprintf(&b, "Translate the following list of texts from English to %s. ", ref)
		fmt.Fprintf(&b, "Provide only the translations in a JSON array format, maintaining the original order. ")
		fmt.Fprintf(&b, "The array must contain exactly %d elements, one per input text, with no commentary outside the array. ", len(texts))
		b.WriteString("Each translation should be concise and direct, without explanations or additional context. ")
		b.WriteString("Keep special characters, placeholders, and formatting intact. ")
		b.WriteString("If a term should not be translated (like 'URL' or technical terms), keep it as is. ")
		b.WriteString("Example format: [\"Translation 1\", \"Translation 2\", ...]\n\n")
		b.WriteString("Texts to translate:\n")
		encoded, _ := json.Marshal(texts)
		b.Write(encoded)
		return b.String()
	}

	fmt.Fprintf(&b, "Translate the following text from English to %s. ", ref)
	b.WriteString("Return only the direct, word-for-word translation without any explanation or additional context. ")
	b.WriteString("Keep special characters, placeholders, and formatting intact. ")
	b.WriteString("If a term should not be translated (like 'URL' or technical terms), keep it as is. ")
	b.WriteString("Here is the text to translate:\n")
	b.WriteString(texts[0])
	return b.String()
}

// buildRetryPrompt is the stricter prompt used after a validation
// rejection.
func buildRetryPrompt(text string, target Target, context string) string {
	var b strings.Builder
	if context != "" {
		fmt.Fprintf(&b, "Translation context: %s. Use this context to disambiguate ambiguous terms.\n\n", context)
	}
	fmt.Fprintf(&b, "Translate this text concisely from English to %s. ", target.Reference())
	b.WriteString("Respond with ONLY the translation, no explanation, no commentary, no quotes. ")
	b.WriteString("Keep special characters, placeholders, and formatting intact.\n")
	b.WriteString("Text to translate:\n")
	b.WriteString(text)
	return b.String()
}
