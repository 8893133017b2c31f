package translator

import (
	"context"
	"errors"
	"strings"

	"github.com/pescheckit/gpt-po/locale"
	"github.com/pescheckit/gpt-po/pofile"
	"github.com/pescheckit/gpt-po/provider"
)

// FileResult summarizes processing of one catalog.
type FileResult struct {
	// Translated counts entries with an accepted new translation.
	Translated int
	// Skipped counts entries with empty or whitespace-only sources.
	Skipped int
	// Failed counts entries left untranslated after exhausting retries.
	Failed int
}

// ValidateConnection sends one minimal request to confirm the provider
// accepts the configured credentials and model. Credential rejections
// surface as *provider.AuthError.
func ValidateConnection(ctx context.Context, opts Options) error {
	_, err := opts.Provider.Translate(ctx, opts.model(), "Reply with the single word OK.")
	return err
}

type run struct {
	opts    Options
	target  Target
	cat     *pofile.File
	path    string
	result  FileResult
	mutated bool
}

// ProcessFile translates one catalog in place. The file is rewritten
// only when something changed. A *pofile.FormatError means the file
// could not be parsed; individual untranslated entries are reported in
// the FileResult, never as an error.
func ProcessFile(ctx context.Context, path string, opts Options) (FileResult, error) {
	cat, err := pofile.ParseFile(path)
	if err != nil {
		return FileResult{}, err
	}

	code, match := locale.FileLanguage(path, cat, opts.codes(), opts.FolderLanguage)
	if match == locale.NoMatch {
		opts.logf("%s: language %q matches no requested language, skipping file", path, cat.Language())
		return FileResult{}, nil
	}
	if match == locale.MatchByFallback {
		opts.logf("%s: matched %q by base-language fallback", path, code)
	}

	r := &run{opts: opts, target: opts.targetFor(code), cat: cat, path: path}

	if opts.FuzzyMode == FuzzyLegacyStrip {
		if n := cat.StripFuzzy(); n > 0 {
			opts.errf("%s: stripped fuzzy markers from %d entries without retranslating; translator review state is lost", path, n)
			r.mutated = true
		}
	}

	if n := cat.CountWhitespace(); n > 0 {
		opts.logf("%s: %d entries carry leading or trailing whitespace, preserved around translations", path, n)
	}

	var singulars, plurals []*pofile.Entry
	for _, e := range r.collectPending() {
		if core, _ := StripWS(e.MsgID); core == "" {
			r.result.Skipped++
			continue
		}
		if e.MsgIDPlural != "" {
			plurals = append(plurals, e)
		} else {
			singulars = append(singulars, e)
		}
	}

	if opts.BulkMode {
		batches, err := Plan(singulars, opts.batchSize())
		if err != nil {
			return r.result, err
		}
		for _, batch := range batches {
			for _, group := range groupByContext(batch, opts.DefaultContext) {
				if err := r.translateBulkGroup(ctx, group); err != nil {
					return r.result, err
				}
			}
		}
	} else {
		for _, e := range singulars {
			if err := r.translateSingleEntry(ctx, e); err != nil {
				return r.result, err
			}
		}
	}

	for _, e := range plurals {
		if err := r.translatePluralEntry(ctx, e); err != nil {
			return r.result, err
		}
	}

	if r.mutated {
		if err := cat.WriteFile(path); err != nil {
			return r.result, err
		}
	}

	opts.logf("%s [%s]: %d translated, %d skipped, %d failed",
		path, r.target.Code, r.result.Translated, r.result.Skipped, r.result.Failed)
	return r.result, nil
}

// collectPending returns the entries this run should translate, in
// catalog order: untranslated entries, plus fuzzy ones in fix mode.
func (r *run) collectPending() []*pofile.Entry {
	var pending []*pofile.Entry
	for _, e := range r.cat.Entries {
		switch {
		case e.NeedsTranslation():
			pending = append(pending, e)
		case r.opts.FuzzyMode == FuzzyFix && e.MsgID != "" && !e.Obsolete && e.IsFuzzy():
			pending = append(pending, e)
		}
	}
	return pending
}

// contextGroup is a consecutive slice of a batch sharing one effective
// context, so a single bulk prompt can carry the context block.
type contextGroup struct {
	context string
	entries []*pofile.Entry
}

func groupByContext(batch []*pofile.Entry, defaultContext string) []contextGroup {
	var groups []contextGroup
	for _, e := range batch {
		c := EffectiveContext(e.MsgCtxt, defaultContext)
		if len(groups) == 0 || groups[len(groups)-1].context != c {
			groups = append(groups, contextGroup{context: c})
		}
		g := &groups[len(groups)-1]
		g.entries = append(g.entries, e)
	}
	return groups
}

func (r *run) translateBulkGroup(ctx context.Context, group contextGroup) error {
	cores := make([]string, len(group.entries))
	patterns := make([]WSPattern, len(group.entries))
	for i, e := range group.entries {
		cores[i], patterns[i] = StripWS(e.MsgID)
	}

	prompt := BuildPrompt(cores, r.target, group.context, Bulk)
	raw, err := r.opts.Provider.Translate(ctx, r.opts.model(), prompt)
	if err != nil {
		if fatal(ctx, err) {
			return err
		}
		r.opts.errf("%s: bulk request failed: %v", r.path, err)
		r.result.Failed += len(group.entries)
		return nil
	}

	translations, err := provider.ParseBulk(raw, len(cores))
	if err != nil {
		// Misaligned or unparseable array: the whole group degrades to
		// individual requests once, each with the full retry budget.
		r.opts.errf("%s: bulk response unusable (%v), retrying entries individually", r.path, err)
		for _, e := range group.entries {
			if err := r.translateSingleEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}

	for i, e := range group.entries {
		candidate := strings.TrimSpace(translations[i])
		verdict := Validate(cores[i], candidate, r.opts.verboseMultiplier(), r.opts.verboseFloor())
		if verdict != Accept {
			r.opts.logf("%s: bulk translation of %q rejected (%s), retrying individually",
				r.path, excerpt(cores[i]), verdict)
			// The bulk request was this entry's first attempt.
			retried, ok, rerr := r.requestWithRetries(ctx, cores[i], group.context, 2)
			if rerr != nil {
				return rerr
			}
			if !ok {
				r.fail(e)
				continue
			}
			candidate = retried
		}
		r.apply(e, patterns[i].Restore(candidate))
	}
	return nil
}

func (r *run) translateSingleEntry(ctx context.Context, e *pofile.Entry) error {
	core, pat := StripWS(e.MsgID)
	candidate, ok, err := r.requestWithRetries(ctx, core, EffectiveContext(e.MsgCtxt, r.opts.DefaultContext), 1)
	if err != nil {
		return err
	}
	if !ok {
		r.fail(e)
		return nil
	}
	r.apply(e, pat.Restore(candidate))
	return nil
}

// translatePluralEntry fills every plural form: the singular text
// becomes form 0, the plural text all remaining forms.
func (r *run) translatePluralEntry(ctx context.Context, e *pofile.Entry) error {
	nplurals := r.cat.NPlurals(r.target.Code)
	context := EffectiveContext(e.MsgCtxt, r.opts.DefaultContext)

	singularCore, singularPat := StripWS(e.MsgID)
	singular, ok, err := r.requestWithRetries(ctx, singularCore, context, 1)
	if err != nil {
		return err
	}
	if !ok {
		r.fail(e)
		return nil
	}

	forms := map[int]string{0: singularPat.Restore(singular)}
	if nplurals > 1 {
		pluralCore, pluralPat := StripWS(e.MsgIDPlural)
		plural, ok, err := r.requestWithRetries(ctx, pluralCore, context, 1)
		if err != nil {
			return err
		}
		if !ok {
			r.fail(e)
			return nil
		}
		for i := 1; i < nplurals; i++ {
			forms[i] = pluralPat.Restore(plural)
		}
	}

	e.MsgStrPlural = forms
	r.finish(e)
	return nil
}

// requestWithRetries runs the content-level retry loop for one text.
// startAttempt lets a failed bulk attempt count against the budget.
// Attempts after the first use the stricter prompt. Returns ok=false
// when every attempt was rejected; the error return is reserved for
// fatal conditions (auth failure, cancelled context).
func (r *run) requestWithRetries(ctx context.Context, core, context string, startAttempt int) (string, bool, error) {
	for attempt := startAttempt; attempt <= maxAttempts; attempt++ {
		var prompt string
		if attempt == 1 {
			prompt = BuildPrompt([]string{core}, r.target, context, Single)
		} else {
			prompt = buildRetryPrompt(core, r.target, context)
		}

		raw, err := r.opts.Provider.Translate(ctx, r.opts.model(), prompt)
		if err != nil {
			if fatal(ctx, err) {
				return "", false, err
			}
			r.opts.errf("%s: request failed on attempt %d for %q: %v", r.path, attempt, excerpt(core), err)
			continue
		}

		candidate := strings.TrimSpace(raw)
		verdict := Validate(core, candidate, r.opts.verboseMultiplier(), r.opts.verboseFloor())
		if verdict == Accept {
			return candidate, true, nil
		}
		r.opts.logf("%s: attempt %d for %q rejected (%s)", r.path, attempt, excerpt(core), verdict)
	}
	return "", false, nil
}

func (r *run) apply(e *pofile.Entry, translated string) {
	e.MsgStr = translated
	r.finish(e)
}

// finish records an accepted translation: the fuzzy flag is cleared
// only here, on validated success.
func (r *run) finish(e *pofile.Entry) {
	e.SetFuzzy(false)
	if r.opts.TagAI {
		e.TagAIGenerated()
	}
	r.result.Translated++
	r.mutated = true
}

func (r *run) fail(e *pofile.Entry) {
	r.result.Failed++
	r.opts.errf("%s [%s]: left %q untranslated after %d attempts",
		r.path, r.target.Code, excerpt(e.MsgID), maxAttempts)
}

// fatal reports errors that must abort the file: rejected credentials
// and cancelled contexts. Everything else degrades to a failed entry.
func fatal(ctx context.Context, err error) bool {
	var authErr *provider.AuthError
	if errors.As(err, &authErr) {
		return true
	}
	return ctx.Err() != nil
}

func excerpt(s string) string {
	if len(s) <= 50 {
		return s
	}
	return s[:50] + "..."
}
