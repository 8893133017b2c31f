package translator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pescheckit/gpt-po/pofile"
)

// fakeProvider scripts responses per prompt and records every call.
type fakeProvider struct {
	respond func(prompt string) (string, error)
	prompts []string
}

func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) DefaultModel() string { return "fake-model" }

func (f *fakeProvider) ListModels(ctx context.Context) ([]string, error) {
	return []string{"fake-model"}, nil
}

func (f *fakeProvider) Translate(ctx context.Context, model, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.respond(prompt)
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fr.po")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const frenchCatalog = `msgid ""
msgstr ""
"Language: fr\n"

msgid " hello\n"
msgstr ""

msgid "world"
msgstr ""
`

func baseOptions(p *fakeProvider) Options {
	return Options{
		Provider:  p,
		Languages: []Target{{Code: "fr"}},
		TagAI:     true,
	}
}

func TestProcessFileSingleMode(t *testing.T) {
	p := &fakeProvider{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "hello") {
			return "bonjour", nil
		}
		return "monde", nil
	}}

	path := writeCatalog(t, frenchCatalog)
	res, err := ProcessFile(context.Background(), path, baseOptions(p))
	if err != nil {
		t.Fatal(err)
	}
	if res.Translated != 2 || res.Failed != 0 || res.Skipped != 0 {
		t.Fatalf("result = %+v", res)
	}

	saved, err := pofile.ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := saved.Entries[0].MsgStr; got != " bonjour\n" {
		t.Fatalf("whitespace not preserved: %q", got)
	}
	if !saved.Entries[0].IsAIGenerated() {
		t.Fatal("entry should carry the AI marker")
	}
	if got := saved.Entries[1].MsgStr; got != "monde" {
		t.Fatalf("second entry = %q", got)
	}
}

func TestProcessFileSkipsForeignLanguage(t *testing.T) {
	p := &fakeProvider{respond: func(string) (string, error) {
		t.Error("provider must not be called for a non-matching file")
		return "", nil
	}}

	path := writeCatalog(t, frenchCatalog)
	opts := baseOptions(p)
	opts.Languages = []Target{{Code: "de"}}

	res, err := ProcessFile(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res != (FileResult{}) {
		t.Fatalf("result = %+v, want zero", res)
	}
}

func TestRetryBound(t *testing.T) {
	p := &fakeProvider{respond: func(string) (string, error) {
		return "This refers to a greeting", nil
	}}

	path := writeCatalog(t, `msgid ""
msgstr ""
"Language: fr\n"

msgid "hello"
msgstr ""
`)
	res, err := ProcessFile(context.Background(), path, baseOptions(p))
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 || res.Translated != 0 {
		t.Fatalf("result = %+v", res)
	}
	if len(p.prompts) != maxAttempts {
		t.Fatalf("provider called %d times, want %d", len(p.prompts), maxAttempts)
	}
	// Retries must use the stricter prompt.
	if !strings.Contains(p.prompts[1], "ONLY the translation") {
		t.Fatalf("retry prompt not strict:\n%s", p.prompts[1])
	}
}

func TestBulkModeHappyPath(t *testing.T) {
	p := &fakeProvider{respond: func(prompt string) (string, error) {
		if !strings.Contains(prompt, "JSON array") {
			return "", fmt.Errorf("expected a bulk prompt, got:\n%s", prompt)
		}
		return "```json\n[\"bonjour\", \"monde\"]\n```", nil
	}}

	path := writeCatalog(t, frenchCatalog)
	opts := baseOptions(p)
	opts.BulkMode = true

	res, err := ProcessFile(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Translated != 2 {
		t.Fatalf("result = %+v", res)
	}
	if len(p.prompts) != 1 {
		t.Fatalf("bulk mode should need one call, got %d", len(p.prompts))
	}

	saved, _ := pofile.ParseFile(path)
	if saved.Entries[0].MsgStr != " bonjour\n" {
		t.Fatalf("entry 0 = %q", saved.Entries[0].MsgStr)
	}
}

func TestBulkMismatchDegradesToSingle(t *testing.T) {
	p := &fakeProvider{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "JSON array") {
			return `["only one"]`, nil
		}
		if strings.Contains(prompt, "hello") {
			return "bonjour", nil
		}
		return "monde", nil
	}}

	path := writeCatalog(t, frenchCatalog)
	opts := baseOptions(p)
	opts.BulkMode = true

	res, err := ProcessFile(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Translated != 2 || res.Failed != 0 {
		t.Fatalf("result = %+v", res)
	}
	// One bulk call, then one single call per entry.
	if len(p.prompts) != 3 {
		t.Fatalf("calls = %d, want 3", len(p.prompts))
	}
}

func TestBulkRejectedItemRetriedIndividually(t *testing.T) {
	p := &fakeProvider{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "JSON array") {
			return `["bonjour", "I cannot translate that"]`, nil
		}
		return "monde", nil
	}}

	path := writeCatalog(t, frenchCatalog)
	opts := baseOptions(p)
	opts.BulkMode = true

	res, err := ProcessFile(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Translated != 2 {
		t.Fatalf("result = %+v", res)
	}
	// Bulk call plus one retry for the rejected item.
	if len(p.prompts) != 2 {
		t.Fatalf("calls = %d, want 2", len(p.prompts))
	}
}

func TestBadBatchSizeFailsRun(t *testing.T) {
	p := &fakeProvider{respond: func(string) (string, error) { return "x", nil }}

	path := writeCatalog(t, frenchCatalog)
	opts := baseOptions(p)
	opts.BulkMode = true
	opts.BatchSize = -1

	if _, err := ProcessFile(context.Background(), path, opts); err == nil {
		t.Fatal("expected error for negative batch size")
	}
}

func TestFuzzyFixScenario(t *testing.T) {
	const fuzzyCatalog = `msgid ""
msgstr ""
"Language: fr\n"

#, fuzzy
msgid "hello"
msgstr "allo"
`

	t.Run("success clears flag and tags", func(t *testing.T) {
		p := &fakeProvider{respond: func(string) (string, error) { return "bonjour", nil }}
		path := writeCatalog(t, fuzzyCatalog)
		opts := baseOptions(p)
		opts.FuzzyMode = FuzzyFix

		res, err := ProcessFile(context.Background(), path, opts)
		if err != nil {
			t.Fatal(err)
		}
		if res.Translated != 1 {
			t.Fatalf("result = %+v", res)
		}

		saved, _ := pofile.ParseFile(path)
		e := saved.Entries[0]
		if e.IsFuzzy() {
			t.Fatal("fuzzy flag should be cleared on validated success")
		}
		if e.MsgStr != "bonjour" || !e.IsAIGenerated() {
			t.Fatalf("entry = %+v", e)
		}
	})

	t.Run("failure keeps flag", func(t *testing.T) {
		p := &fakeProvider{respond: func(string) (string, error) {
			return "", errors.New("backend down")
		}}
		path := writeCatalog(t, fuzzyCatalog)
		opts := baseOptions(p)
		opts.FuzzyMode = FuzzyFix

		res, err := ProcessFile(context.Background(), path, opts)
		if err != nil {
			t.Fatal(err)
		}
		if res.Failed != 1 || res.Translated != 0 {
			t.Fatalf("result = %+v", res)
		}

		saved, _ := pofile.ParseFile(path)
		if !saved.Entries[0].IsFuzzy() {
			t.Fatal("fuzzy flag must survive a failed retranslation")
		}
		if saved.Entries[0].MsgStr != "allo" {
			t.Fatalf("msgstr = %q, want original draft", saved.Entries[0].MsgStr)
		}
	})
}

func TestLegacyStripWarnsAndStrips(t *testing.T) {
	p := &fakeProvider{respond: func(string) (string, error) { return "bonjour", nil }}

	path := writeCatalog(t, `msgid ""
msgstr ""
"Language: fr\n"

#, fuzzy
msgid "hello"
msgstr "allo"
`)
	opts := baseOptions(p)
	opts.FuzzyMode = FuzzyLegacyStrip

	var warnings []string
	opts.OnError = func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if _, err := ProcessFile(context.Background(), path, opts); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, w := range warnings {
		if strings.Contains(w, "review state is lost") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected data-loss warning, got %v", warnings)
	}

	saved, _ := pofile.ParseFile(path)
	if saved.Entries[0].IsFuzzy() {
		t.Fatal("fuzzy flag should be stripped")
	}
}

func TestWhitespaceOnlySourceSkipped(t *testing.T) {
	p := &fakeProvider{respond: func(string) (string, error) {
		t.Error("provider must not be called for whitespace-only sources")
		return "", nil
	}}

	path := writeCatalog(t, `msgid ""
msgstr ""
"Language: fr\n"

msgid "   "
msgstr ""
`)
	res, err := ProcessFile(context.Background(), path, baseOptions(p))
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 || res.Translated != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestPluralEntryFillsAllForms(t *testing.T) {
	p := &fakeProvider{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "apples") {
			return "pommes", nil
		}
		return "pomme", nil
	}}

	path := writeCatalog(t, `msgid ""
msgstr ""
"Language: fr\n"
"Plural-Forms: nplurals=2; plural=(n > 1);\n"

msgid "apple"
msgid_plural "apples"
msgstr[0] ""
msgstr[1] ""
`)
	res, err := ProcessFile(context.Background(), path, baseOptions(p))
	if err != nil {
		t.Fatal(err)
	}
	if res.Translated != 1 {
		t.Fatalf("result = %+v", res)
	}

	saved, _ := pofile.ParseFile(path)
	e := saved.Entries[0]
	if e.MsgStrPlural[0] != "pomme" || e.MsgStrPlural[1] != "pommes" {
		t.Fatalf("plural forms = %v", e.MsgStrPlural)
	}
}

func TestDefaultContextInPrompt(t *testing.T) {
	p := &fakeProvider{respond: func(string) (string, error) { return "bonjour", nil }}

	path := writeCatalog(t, `msgid ""
msgstr ""
"Language: fr\n"

msgctxt "button"
msgid "hello"
msgstr ""

msgid "world"
msgstr ""
`)
	opts := baseOptions(p)
	opts.DefaultContext = "web application"

	if _, err := ProcessFile(context.Background(), path, opts); err != nil {
		t.Fatal(err)
	}
	if len(p.prompts) != 2 {
		t.Fatalf("calls = %d", len(p.prompts))
	}
	if !strings.Contains(p.prompts[0], "Translation context: button.") {
		t.Fatalf("msgctxt must override default:\n%s", p.prompts[0])
	}
	if !strings.Contains(p.prompts[1], "Translation context: web application.") {
		t.Fatalf("default context must apply:\n%s", p.prompts[1])
	}
}

func TestFormatErrorPropagates(t *testing.T) {
	p := &fakeProvider{respond: func(string) (string, error) { return "x", nil }}

	path := writeCatalog(t, "not a catalog at all\n")
	_, err := ProcessFile(context.Background(), path, baseOptions(p))

	var fe *pofile.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *pofile.FormatError, got %v", err)
	}
}
