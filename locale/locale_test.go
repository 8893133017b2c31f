package locale

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pescheckit/gpt-po/pofile"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "fr", want: "fr"},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		if got := Canonicalize(tc.in); got != tc.want {
			t.Fatalf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMatchCode(t *testing.T) {
	cases := []struct {
		requested string
		candidate string
		want      MatchResult
	}{
		{requested: "fr_CA", candidate: "fr_CA", want: Match},
		{requested: "fr_CA", candidate: "fr-CA", want: Match},
		{requested: "fr_CA", candidate: "FR_ca", want: Match},
		{requested: "fr_CA", candidate: "fr", want: MatchByFallback},
		{requested: "fr", candidate: "fr_CA", want: MatchByFallback},
		{requested: "fr", candidate: "de", want: NoMatch},
		{requested: "fr", candidate: "", want: NoMatch},
		// No prefix guessing: "en" must not match "eng"-like strings.
		{requested: "en", candidate: "eng", want: NoMatch},
	}

	for _, tc := range cases {
		if got := MatchCode(tc.requested, tc.candidate); got != tc.want {
			t.Fatalf("MatchCode(%q, %q) = %v, want %v", tc.requested, tc.candidate, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("fr"); got != "French" {
		t.Fatalf("DisplayName(fr) = %q", got)
	}
	if got := DisplayName("pt_BR"); got != "Brazilian Portuguese" {
		t.Fatalf("DisplayName(pt_BR) = %q", got)
	}
	// Unparseable codes pass through.
	if got := DisplayName("not a code"); got != "not a code" {
		t.Fatalf("DisplayName passthrough = %q", got)
	}
}

func catalogWithLanguage(lang string) *pofile.File {
	f := pofile.NewFile()
	f.Header.MsgStr = "Language: " + lang + "\n"
	return f
}

func TestFileLanguageFromHeader(t *testing.T) {
	cat := catalogWithLanguage("fr-CA")

	lang, res := FileLanguage("po/messages.po", cat, []string{"de", "fr_CA"}, false)
	if lang != "fr_CA" || res != Match {
		t.Fatalf("FileLanguage = %q/%v, want fr_CA/Match", lang, res)
	}

	lang, res = FileLanguage("po/messages.po", cat, []string{"fr"}, false)
	if lang != "fr" || res != MatchByFallback {
		t.Fatalf("FileLanguage fallback = %q/%v", lang, res)
	}

	_, res = FileLanguage("po/messages.po", cat, []string{"de"}, false)
	if res != NoMatch {
		t.Fatalf("FileLanguage mismatch = %v, want NoMatch", res)
	}
}

func TestFileLanguageFromFolder(t *testing.T) {
	cat := pofile.NewFile() // no Language header

	lang, res := FileLanguage(filepath.Join("locale", "de", "LC_MESSAGES", "app.po"), cat, []string{"de", "fr"}, true)
	if lang != "de" || res != Match {
		t.Fatalf("folder inference = %q/%v, want de/Match", lang, res)
	}

	// Flat layout: language is the file name.
	lang, res = FileLanguage(filepath.Join("po", "pt_BR.po"), cat, []string{"pt_BR"}, true)
	if lang != "pt_BR" || res != Match {
		t.Fatalf("flat inference = %q/%v, want pt_BR/Match", lang, res)
	}

	// Folder inference disabled: no match without a header.
	_, res = FileLanguage(filepath.Join("locale", "de", "app.po"), cat, []string{"de"}, false)
	if res != NoMatch {
		t.Fatalf("disabled inference = %v, want NoMatch", res)
	}
}

func TestDetectLanguages(t *testing.T) {
	dir := t.TempDir()

	write := func(name, lang string) {
		content := "msgid \"\"\nmsgstr \"\"\n\"Language: " + lang + "\\n\"\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("fr.po", "fr")
	write("de.po", "de")
	write("dup.po", "fr")

	got, err := DetectLanguages(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"de", "fr"}) {
		t.Fatalf("DetectLanguages = %v", got)
	}

	empty := t.TempDir()
	if _, err := DetectLanguages(empty); err == nil {
		t.Fatal("expected error for folder without catalogs")
	}
}
