// gpt-po — AI-assisted gettext catalog translator.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pescheckit/gpt-po/config"
	"github.com/pescheckit/gpt-po/locale"
	"github.com/pescheckit/gpt-po/pofile"
	"github.com/pescheckit/gpt-po/provider"
	"github.com/pescheckit/gpt-po/translator"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gpt-po",
		Short: "Translate gettext PO catalogs with AI providers",
		Long: `gpt-po — AI-assisted gettext catalog translator.

Scans a folder for .po catalogs, matches each one against the requested
target languages, and fills untranslated entries through an AI provider
while preserving structure, whitespace, fuzzy flags, and msgctxt.

Commands:
  translate   Translate untranslated catalog entries
  status      Show translation statistics per catalog
  models      List models available from a provider
  marker      Inspect or remove AI provenance markers

AI Providers:
  openai         OpenAI — OPENAI_API_KEY
  azure-openai   Azure OpenAI — AZURE_OPENAI_API_KEY + AZURE_OPENAI_ENDPOINT
  anthropic      Anthropic — ANTHROPIC_API_KEY
  deepseek       DeepSeek — DEEPSEEK_API_KEY
  ollama         Ollama local server — OLLAMA_BASE_URL (optional)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTranslateCmd(),
		newStatusCmd(),
		newModelsCmd(),
		newMarkerCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gpt-po version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		s           config.Settings
		langs       string
		detailLangs string
		fuzzyMode   string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate untranslated catalog entries using AI",
		Long: `Translate untranslated entries in .po catalogs using an AI provider.

Settings come from flags, a .gpt-po.yaml file in the working directory,
and environment credentials, in that order of precedence.

Examples:
  # Translate French and German catalogs with OpenAI
  gpt-po translate --folder ./locales --lang fr,de

  # Bulk mode against a local Ollama model
  gpt-po translate --provider ollama --model llama3.2 --bulk --lang nl

  # Retranslate fuzzy entries, with precise language wording in prompts
  gpt-po translate --lang fr_CA --detail-lang "Canadian French" --fuzzy-mode fix-fuzzy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s.Languages = splitList(langs)
			s.DetailLanguages = splitList(detailLangs)
			s.FuzzyMode = translator.FuzzyMode(fuzzyMode)
			return runTranslate(s, dryRun)
		},
	}

	cmd.Flags().StringVar(&s.Provider, "provider", "", "AI provider: openai, azure-openai, anthropic, deepseek, ollama")
	cmd.Flags().StringVar(&s.Model, "model", "", "Model name (default: provider default)")
	cmd.Flags().StringVar(&s.APIKey, "api-key", "", "API key (or the provider's env var)")
	cmd.Flags().StringVar(&s.BaseURL, "base-url", "", "Custom API base URL")
	cmd.Flags().StringVar(&s.AzureEndpoint, "azure-endpoint", "", "Azure OpenAI resource endpoint")

	cmd.Flags().StringVar(&s.Folder, "folder", "", "Folder to scan for .po catalogs (default \".\")")
	cmd.Flags().StringVar(&langs, "lang", "", "Target languages, comma-separated (default: detect from catalogs)")
	cmd.Flags().StringVar(&detailLangs, "detail-lang", "", "Precise language names for prompts, comma-separated, matching --lang")

	cmd.Flags().BoolVar(&s.Bulk, "bulk", false, "Send batches as one JSON-array request")
	cmd.Flags().IntVar(&s.BatchSize, "batch-size", 0, "Entries per bulk batch (default 50)")
	cmd.Flags().StringVar(&s.DefaultContext, "context", "", "Default context for entries without msgctxt")
	cmd.Flags().BoolVar(&s.TagAI, "tag-ai", true, "Mark translated entries with the AI provenance comment")
	cmd.Flags().StringVar(&fuzzyMode, "fuzzy-mode", "", "Fuzzy entry handling: off, fix-fuzzy, legacy-strip")
	cmd.Flags().BoolVar(&s.FolderLanguage, "folder-language", false, "Infer catalog language from its path when the header lacks one")
	cmd.Flags().Float64Var(&s.VerboseMultiplier, "verbose-multiplier", 0, "Verbosity rejection threshold as a multiple of source length (default 3)")

	cmd.Flags().DurationVar(&s.Timeout, "timeout", 0, "Request timeout (0 = provider default)")
	cmd.Flags().StringVar(&s.Proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().BoolVar(&s.Verbose, "verbose", false, "Enable request tracing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report pending entries without calling the provider")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"openai\tOpenAI — API key required",
			"azure-openai\tAzure OpenAI — API key + endpoint",
			"anthropic\tAnthropic — API key required",
			"deepseek\tDeepSeek — API key required",
			"ollama\tOllama local server",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runTranslate(s config.Settings, dryRun bool) error {
	fileCfg, err := config.Load(".")
	if err != nil {
		return err
	}
	s.Apply(fileCfg)
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Folder == "" {
		s.Folder = "."
	}

	paths, err := findCatalogs(s.Folder)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .po files found under %s", s.Folder)
	}

	if len(s.Languages) == 0 {
		detected, err := locale.DetectLanguages(s.Folder)
		if err != nil {
			return &config.ValidationError{Field: "languages", Reason: err.Error()}
		}
		logInfo("no target languages configured, detected from catalogs: %s", strings.Join(detected, ", "))
		s.Languages = detected
	}

	prov, err := provider.New(s.Provider, s.ProviderConfig())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := translator.Options{
		Provider:          prov,
		Languages:         s.Targets(),
		BulkMode:          s.Bulk,
		BatchSize:         s.BatchSize,
		DefaultContext:    s.DefaultContext,
		TagAI:             s.TagAI,
		FuzzyMode:         s.FuzzyMode,
		VerboseMultiplier: s.VerboseMultiplier,
		FolderLanguage:    s.FolderLanguage,
		OnLog:             logInfo,
		OnError:           logWarning,
	}

	if dryRun {
		return reportPending(paths, opts)
	}

	opts.Model = provider.ResolveModel(ctx, prov, s.Model, logWarning)

	if err := translator.ValidateConnection(ctx, opts); err != nil {
		return fmt.Errorf("%s connectivity check failed: %w", prov.Name(), err)
	}
	logSuccess("%s connection validated, using model %s", prov.Name(), opts.Model)

	start := time.Now()
	var total translator.FileResult
	parseFailures := 0

	for _, path := range paths {
		res, err := translator.ProcessFile(ctx, path, opts)
		if err != nil {
			var fe *pofile.FormatError
			if errors.As(err, &fe) {
				logError("%v", fe)
				parseFailures++
				continue
			}
			return err
		}
		total.Translated += res.Translated
		total.Skipped += res.Skipped
		total.Failed += res.Failed
	}

	logSuccess("done in %s: %d translated, %d skipped, %d failed across %d catalogs",
		time.Since(start).Round(time.Second), total.Translated, total.Skipped, total.Failed, len(paths))
	if total.Failed > 0 {
		logWarning("%d entries remain untranslated, rerun to retry them", total.Failed)
	}
	if parseFailures > 0 {
		return fmt.Errorf("%d catalog files could not be parsed", parseFailures)
	}
	return nil
}

// reportPending lists what a run would translate, without any provider
// traffic.
func reportPending(paths []string, opts translator.Options) error {
	parseFailures := 0
	for _, path := range paths {
		cat, err := pofile.ParseFile(path)
		if err != nil {
			logError("%v", err)
			parseFailures++
			continue
		}

		codes := make([]string, len(opts.Languages))
		for i, t := range opts.Languages {
			codes[i] = t.Code
		}
		code, match := locale.FileLanguage(path, cat, codes, opts.FolderLanguage)
		if match == locale.NoMatch {
			logInfo("%s: language %q matches no requested language, would skip", path, cat.Language())
			continue
		}

		pending := len(cat.Untranslated())
		if opts.FuzzyMode == translator.FuzzyFix {
			pending += len(cat.FixableFuzzy())
		}
		logInfo("%s [%s]: %d entries pending", path, code, pending)
	}
	if parseFailures > 0 {
		return fmt.Errorf("%d catalog files could not be parsed", parseFailures)
	}
	return nil
}

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show translation statistics per catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := findCatalogs(folder)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no .po files found under %s", folder)
			}

			parseFailures := 0
			for _, path := range paths {
				cat, err := pofile.ParseFile(path)
				if err != nil {
					logError("%v", err)
					parseFailures++
					continue
				}
				total, translated, fuzzy, untranslated := cat.Stats()
				lang := cat.Language()
				if lang == "" {
					lang = "?"
				}
				fmt.Printf("%-40s %-8s %4d entries: %d translated, %d fuzzy, %d untranslated, %d AI-tagged\n",
					path, lang, total, translated, fuzzy, untranslated, len(cat.AIGenerated()))
			}
			if parseFailures > 0 {
				return fmt.Errorf("%d catalog files could not be parsed", parseFailures)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", ".", "Folder to scan for .po catalogs")
	return cmd
}

// ---------------------------------------------------------------------------
// models
// ---------------------------------------------------------------------------

func newModelsCmd() *cobra.Command {
	var s config.Settings

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models available from a provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			fileCfg, err := config.Load(".")
			if err != nil {
				return err
			}
			s.Apply(fileCfg)
			if err := s.Validate(); err != nil {
				return err
			}

			prov, err := provider.New(s.Provider, s.ProviderConfig())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			models, err := prov.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("listing %s models: %w", prov.Name(), err)
			}
			for _, m := range models {
				marker := " "
				if m == prov.DefaultModel() {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, m)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&s.Provider, "provider", "", "AI provider to query")
	cmd.Flags().StringVar(&s.APIKey, "api-key", "", "API key (or the provider's env var)")
	cmd.Flags().StringVar(&s.BaseURL, "base-url", "", "Custom API base URL")
	cmd.Flags().StringVar(&s.AzureEndpoint, "azure-endpoint", "", "Azure OpenAI resource endpoint")
	return cmd
}

// ---------------------------------------------------------------------------
// marker (AI provenance tooling)
// ---------------------------------------------------------------------------

func newMarkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marker",
		Short: "Inspect or remove AI provenance markers",
	}
	cmd.AddCommand(newMarkerListCmd(), newMarkerRemoveCmd())
	return cmd
}

func newMarkerListCmd() *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries carrying the AI provenance marker",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := findCatalogs(folder)
			if err != nil {
				return err
			}
			for _, path := range paths {
				cat, err := pofile.ParseFile(path)
				if err != nil {
					logError("%v", err)
					continue
				}
				for _, e := range cat.AIGenerated() {
					fmt.Printf("%s: %q -> %q\n", path, e.MsgID, e.MsgStr)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", ".", "Folder to scan for .po catalogs")
	return cmd
}

func newMarkerRemoveCmd() *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove AI provenance markers from catalogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := findCatalogs(folder)
			if err != nil {
				return err
			}
			removed := 0
			for _, path := range paths {
				cat, err := pofile.ParseFile(path)
				if err != nil {
					logError("%v", err)
					continue
				}
				n := cat.RemoveAIMarkers()
				if n == 0 {
					continue
				}
				if err := cat.WriteFile(path); err != nil {
					return err
				}
				logInfo("%s: removed %d markers", path, n)
				removed += n
			}
			logSuccess("removed %d markers total", removed)
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", ".", "Folder to scan for .po catalogs")
	return cmd
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// findCatalogs walks a folder and returns every .po file, sorted by
// the walk order (lexical per directory).
func findCatalogs(folder string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".po") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", folder, err)
	}
	return paths, nil
}

// splitList parses a comma-separated flag value.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
