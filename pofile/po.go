// Package pofile implements reading and writing of gettext PO catalogs,
// including fuzzy flag handling, AI provenance markers, and the
// whitespace bookkeeping the translation pipeline depends on.
package pofile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// AIGeneratedMarker is the bit-exact marker text written as an extracted
// comment ("#. AI-generated") on entries whose translation came from an
// AI provider. Search and removal tooling relies on this exact string.
const AIGeneratedMarker = "AI-generated"

// FormatError reports a malformed catalog file. Processing of the
// affected file is aborted; other files continue.
type FormatError struct {
	Path string
	Line int
	Err  error
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed PO catalog at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("%s: malformed PO catalog at line %d: %v", e.Path, e.Line, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Entry represents a single translatable message in a PO catalog.
type Entry struct {
	// TranslatorComments are lines starting with "# ".
	TranslatorComments []string
	// ExtractedComments are lines starting with "#." (this is where the
	// AI-generated marker lives).
	ExtractedComments []string
	// References are source code locations, lines starting with "#:".
	References []string
	// Flags are format flags, lines starting with "#,".
	Flags []string
	// PreviousMsgID stores the previous msgid for fuzzy entries ("#|").
	PreviousMsgID string

	// MsgCtxt is the message context (msgctxt).
	MsgCtxt string
	// MsgID is the untranslated string.
	MsgID string
	// MsgIDPlural is the untranslated plural string.
	MsgIDPlural string
	// MsgStr is the translated string (singular or the only form).
	MsgStr string
	// MsgStrPlural maps plural form index to translated string.
	MsgStrPlural map[int]string

	// Obsolete marks entries prefixed with "#~".
	Obsolete bool
}

// IsFuzzy reports whether the entry carries the fuzzy flag.
func (e *Entry) IsFuzzy() bool {
	for _, f := range e.Flags {
		if f == "fuzzy" {
			return true
		}
	}
	return false
}

// SetFuzzy adds or removes the fuzzy flag.
func (e *Entry) SetFuzzy(fuzzy bool) {
	if fuzzy && !e.IsFuzzy() {
		e.Flags = append(e.Flags, "fuzzy")
		return
	}
	if !fuzzy {
		filtered := e.Flags[:0]
		for _, f := range e.Flags {
			if f != "fuzzy" {
				filtered = append(filtered, f)
			}
		}
		e.Flags = filtered
	}
}

// NeedsTranslation reports whether the entry still requires a
// translation. A plural entry counts as untranslated only when every
// plural form is empty, so partially translated plural sets are left
// alone. Fuzzy entries are excluded; they are handled by the fuzzy mode.
func (e *Entry) NeedsTranslation() bool {
	if e.MsgID == "" || e.Obsolete || e.IsFuzzy() {
		return false
	}
	if e.MsgIDPlural != "" {
		for _, form := range e.MsgStrPlural {
			if strings.TrimSpace(form) != "" {
				return false
			}
		}
		return true
	}
	return strings.TrimSpace(e.MsgStr) == ""
}

// HasLeadingWS reports whether the source text begins with whitespace
// that must be preserved around the translation.
func (e *Entry) HasLeadingWS() bool {
	return e.MsgID != strings.TrimLeft(e.MsgID, " \t\n\r")
}

// HasTrailingWS reports whether the source text ends with whitespace.
func (e *Entry) HasTrailingWS() bool {
	return e.MsgID != strings.TrimRight(e.MsgID, " \t\n\r")
}

// IsAIGenerated reports whether the entry carries the AI provenance marker.
func (e *Entry) IsAIGenerated() bool {
	for _, c := range e.ExtractedComments {
		if c == AIGeneratedMarker {
			return true
		}
	}
	return false
}

// TagAIGenerated appends the AI provenance marker. Idempotent: tagging
// an already tagged entry leaves exactly one marker comment.
func (e *Entry) TagAIGenerated() {
	if !e.IsAIGenerated() {
		e.ExtractedComments = append(e.ExtractedComments, AIGeneratedMarker)
	}
}

// File represents a parsed PO catalog.
type File struct {
	// Header is the metadata entry (msgid "").
	Header *Entry
	// Entries are the translatable message entries, in file order.
	Entries []*Entry
}

// NewFile creates a new empty catalog.
func NewFile() *File {
	return &File{
		Header:  &Entry{},
		Entries: make([]*Entry, 0),
	}
}

// HeaderField returns a header field value by name (case-insensitive).
func (f *File) HeaderField(name string) string {
	if f.Header == nil {
		return ""
	}
	for _, line := range strings.Split(f.Header.MsgStr, "\n") {
		if idx := strings.Index(line, ":"); idx > 0 {
			if strings.EqualFold(strings.TrimSpace(line[:idx]), name) {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return ""
}

// Language returns the catalog's Language header field.
func (f *File) Language() string { return f.HeaderField("Language") }

// Untranslated returns entries that still need a translation, in
// catalog order.
func (f *File) Untranslated() []*Entry {
	var result []*Entry
	for _, e := range f.Entries {
		if e.NeedsTranslation() {
			result = append(result, e)
		}
	}
	return result
}

// FixableFuzzy returns entries with the fuzzy flag set, for the
// fix-fuzzy mode that retranslates them and clears the flag only on
// validated success.
func (f *File) FixableFuzzy() []*Entry {
	var result []*Entry
	for _, e := range f.Entries {
		if e.MsgID != "" && !e.Obsolete && e.IsFuzzy() {
			result = append(result, e)
		}
	}
	return result
}

// StripFuzzy removes the fuzzy flag from every entry without
// translating anything, returning how many entries were affected.
// This is the deprecated all-or-nothing mode: it discards translator
// review markers, so callers must warn before using it.
func (f *File) StripFuzzy() int {
	n := 0
	for _, e := range f.Entries {
		if e.IsFuzzy() {
			e.SetFuzzy(false)
			n++
		}
	}
	if f.Header != nil && f.Header.IsFuzzy() {
		f.Header.SetFuzzy(false)
	}
	return n
}

// CountWhitespace returns how many entries have leading or trailing
// whitespace in their source text. Callers emit a single aggregate
// warning per file, not one per entry.
func (f *File) CountWhitespace() int {
	n := 0
	for _, e := range f.Entries {
		if e.MsgID == "" || e.Obsolete {
			continue
		}
		if e.HasLeadingWS() || e.HasTrailingWS() {
			n++
		}
	}
	return n
}

// AIGenerated returns entries carrying the AI provenance marker.
func (f *File) AIGenerated() []*Entry {
	var result []*Entry
	for _, e := range f.Entries {
		if e.IsAIGenerated() {
			result = append(result, e)
		}
	}
	return result
}

// RemoveAIMarkers strips the AI provenance marker from all entries,
// returning how many entries were affected.
func (f *File) RemoveAIMarkers() int {
	n := 0
	for _, e := range f.Entries {
		if !e.IsAIGenerated() {
			continue
		}
		filtered := e.ExtractedComments[:0]
		for _, c := range e.ExtractedComments {
			if c != AIGeneratedMarker {
				filtered = append(filtered, c)
			}
		}
		e.ExtractedComments = filtered
		n++
	}
	return n
}

// Stats returns translation statistics for the catalog.
func (f *File) Stats() (total, translated, fuzzy, untranslated int) {
	for _, e := range f.Entries {
		if e.MsgID == "" || e.Obsolete {
			continue
		}
		total++
		switch {
		case e.IsFuzzy():
			fuzzy++
		case e.NeedsTranslation():
			untranslated++
		default:
			translated++
		}
	}
	return
}

// Parse reads a PO catalog from a reader. Any line that is not a
// comment, a known keyword, or a string continuation makes the catalog
// malformed and yields a *FormatError.
func Parse(r io.Reader) (*File, error) {
	f := NewFile()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var current *Entry
	var lastField string
	lineNum := 0
	sawHeader := false

	flush := func() {
		if current == nil {
			return
		}
		if current.MsgID == "" && !current.Obsolete && !sawHeader {
			f.Header = current
			sawHeader = true
		} else {
			f.Entries = append(f.Entries, current)
		}
		current = nil
		lastField = ""
	}

	fail := func(format string, args ...any) error {
		return &FormatError{Line: lineNum, Err: fmt.Errorf(format, args...)}
	}

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if current == nil {
			current = &Entry{MsgStrPlural: make(map[int]string)}
		}

		if strings.HasPrefix(line, "#~ ") {
			current.Obsolete = true
			line = line[3:]
		}

		switch {
		case strings.HasPrefix(line, "#:"):
			current.References = append(current.References, strings.TrimSpace(line[2:]))
			continue
		case strings.HasPrefix(line, "#,"):
			for _, flag := range strings.Split(line[2:], ",") {
				if flag = strings.TrimSpace(flag); flag != "" {
					current.Flags = append(current.Flags, flag)
				}
			}
			continue
		case strings.HasPrefix(line, "#."):
			current.ExtractedComments = append(current.ExtractedComments, strings.TrimSpace(line[2:]))
			continue
		case strings.HasPrefix(line, "#|"):
			prev := strings.TrimSpace(line[2:])
			if strings.HasPrefix(prev, "msgid ") {
				current.PreviousMsgID = unquote(strings.TrimPrefix(prev, "msgid "))
			}
			continue
		case strings.HasPrefix(line, "#"):
			comment := strings.TrimPrefix(line[1:], " ")
			current.TranslatorComments = append(current.TranslatorComments, comment)
			continue
		}

		switch {
		case strings.HasPrefix(line, "msgctxt "):
			current.MsgCtxt = unquote(strings.TrimPrefix(line, "msgctxt "))
			lastField = "msgctxt"

		case strings.HasPrefix(line, "msgid_plural "):
			current.MsgIDPlural = unquote(strings.TrimPrefix(line, "msgid_plural "))
			lastField = "msgid_plural"

		case strings.HasPrefix(line, "msgid "):
			current.MsgID = unquote(strings.TrimPrefix(line, "msgid "))
			lastField = "msgid"

		case strings.HasPrefix(line, "msgstr["):
			end := strings.Index(line, "]")
			if end < 0 {
				return nil, fail("unterminated msgstr index: %s", line)
			}
			idx, err := strconv.Atoi(line[len("msgstr["):end])
			if err != nil || idx < 0 {
				return nil, fail("invalid msgstr index: %s", line)
			}
			current.MsgStrPlural[idx] = unquote(line[end+1:])
			lastField = "msgstr[" + strconv.Itoa(idx) + "]"

		case strings.HasPrefix(line, "msgstr "):
			current.MsgStr = unquote(strings.TrimPrefix(line, "msgstr "))
			lastField = "msgstr"

		case strings.HasPrefix(line, "\""):
			val := unquote(line)
			switch {
			case lastField == "msgctxt":
				current.MsgCtxt += val
			case lastField == "msgid":
				current.MsgID += val
			case lastField == "msgid_plural":
				current.MsgIDPlural += val
			case lastField == "msgstr":
				current.MsgStr += val
			case strings.HasPrefix(lastField, "msgstr["):
				idx, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(lastField, "msgstr["), "]"))
				current.MsgStrPlural[idx] += val
			default:
				return nil, fail("string continuation without a preceding field: %s", line)
			}

		default:
			return nil, fail("unrecognized line: %s", line)
		}
	}

	flush()

	if err := scanner.Err(); err != nil {
		return nil, &FormatError{Line: lineNum, Err: err}
	}

	return f, nil
}

// ParseFile reads a PO catalog from disk. Format problems are reported
// as *FormatError carrying the file path.
func ParseFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		if fe, ok := err.(*FormatError); ok {
			fe.Path = path
		}
		return nil, err
	}
	return f, nil
}

// Write serializes the catalog to a writer in standard gettext textual
// format. Untouched entries round-trip unchanged.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if f.Header != nil {
		writeEntry(bw, f.Header)
	}
	for _, e := range f.Entries {
		fmt.Fprintln(bw)
		writeEntry(bw, e)
	}

	return bw.Flush()
}

// WriteFile persists the catalog to disk.
func (f *File) WriteFile(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return f.Write(out)
}

func writeEntry(w *bufio.Writer, e *Entry) {
	prefix := ""
	if e.Obsolete {
		prefix = "#~ "
	}

	for _, c := range e.TranslatorComments {
		fmt.Fprintf(w, "# %s\n", c)
	}
	for _, c := range e.ExtractedComments {
		fmt.Fprintf(w, "#. %s\n", c)
	}
	for _, ref := range e.References {
		fmt.Fprintf(w, "#: %s\n", ref)
	}
	if len(e.Flags) > 0 {
		fmt.Fprintf(w, "#, %s\n", strings.Join(e.Flags, ", "))
	}
	if e.PreviousMsgID != "" {
		fmt.Fprintf(w, "#| msgid %s\n", quote(e.PreviousMsgID))
	}

	if e.MsgCtxt != "" {
		writeQuotedField(w, prefix+"msgctxt", e.MsgCtxt)
	}
	writeQuotedField(w, prefix+"msgid", e.MsgID)
	if e.MsgIDPlural != "" {
		writeQuotedField(w, prefix+"msgid_plural", e.MsgIDPlural)
	}

	if e.MsgIDPlural != "" && len(e.MsgStrPlural) > 0 {
		indices := make([]int, 0, len(e.MsgStrPlural))
		for idx := range e.MsgStrPlural {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			writeQuotedField(w, fmt.Sprintf("%smsgstr[%d]", prefix, idx), e.MsgStrPlural[idx])
		}
	} else {
		writeQuotedField(w, prefix+"msgstr", e.MsgStr)
	}
}

// writeQuotedField writes a PO field with multiline quoting when the
// value contains newlines.
func writeQuotedField(w *bufio.Writer, field, value string) {
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s %s\n", field, quote(value))
		return
	}

	fmt.Fprintf(w, "%s \"\"\n", field)
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		if i < len(parts)-1 {
			fmt.Fprintf(w, "%s\n", quote(part+"\n"))
		} else if part != "" {
			fmt.Fprintf(w, "%s\n", quote(part))
		}
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return `"` + s + `"`
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]

	var result strings.Builder
	result.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				result.WriteByte('\n')
				i++
			case 't':
				result.WriteByte('\t')
				i++
			case '\\':
				result.WriteByte('\\')
				i++
			case '"':
				result.WriteByte('"')
				i++
			default:
				result.WriteByte(s[i])
			}
		} else {
			result.WriteByte(s[i])
		}
	}
	return result.String()
}
