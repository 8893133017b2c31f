// Package config resolves the run configuration: a .gpt-po.yaml file
// in the working directory, environment credentials, and CLI flag
// overrides merged into one validated Settings object.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pescheckit/gpt-po/provider"
	"github.com/pescheckit/gpt-po/translator"
)

// FileName is the default config file name.
const FileName = ".gpt-po.yaml"

// ValidationError reports an invalid run configuration. It is fatal
// for the run and raised before any catalog is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// File is the .gpt-po.yaml schema. Every field is optional; unset
// fields fall back to flag values or defaults.
type File struct {
	// Provider selects the AI backend ("openai", "azure-openai",
	// "anthropic", "deepseek", "ollama").
	Provider string `yaml:"provider,omitempty"`
	// Model names the model; empty picks the provider default.
	Model string `yaml:"model,omitempty"`
	// Folder is the catalog directory to scan.
	Folder string `yaml:"folder,omitempty"`
	// Languages are the target language codes.
	Languages []string `yaml:"languages,omitempty"`
	// DetailLanguages optionally names each language precisely for
	// prompts, positionally matching Languages.
	DetailLanguages []string `yaml:"detail_languages,omitempty"`
	// Bulk enables batched JSON-array requests.
	Bulk *bool `yaml:"bulk,omitempty"`
	// BatchSize caps bulk batch length (default 50).
	BatchSize int `yaml:"batch_size,omitempty"`
	// DefaultContext disambiguates entries without a msgctxt.
	DefaultContext string `yaml:"default_context,omitempty"`
	// TagAI marks translated entries with the AI provenance comment.
	TagAI *bool `yaml:"tag_ai,omitempty"`
	// FuzzyMode is "off", "fix-fuzzy", or "legacy-strip".
	FuzzyMode string `yaml:"fuzzy_mode,omitempty"`
	// FolderLanguage infers a catalog's language from its path when
	// the header is missing one.
	FolderLanguage *bool `yaml:"folder_language,omitempty"`
	// VerboseMultiplier tunes the translation verbosity threshold.
	VerboseMultiplier float64 `yaml:"verbose_multiplier,omitempty"`
}

// Load reads .gpt-po.yaml from the given directory. Returns nil if the
// file does not exist.
func Load(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

// Settings is the fully resolved run configuration handed to the
// translation core.
type Settings struct {
	Provider          string
	Model             string
	Folder            string
	Languages         []string
	DetailLanguages   []string
	Bulk              bool
	BatchSize         int
	DefaultContext    string
	TagAI             bool
	FuzzyMode         translator.FuzzyMode
	FolderLanguage    bool
	VerboseMultiplier float64

	// Connection settings, resolved from environment and flags.
	APIKey          string
	BaseURL         string
	AzureEndpoint   string
	AzureAPIVersion string
	Proxy           string
	Timeout         time.Duration
	Verbose         bool
}

// Apply merges file values into settings, filling only fields the
// flags left unset.
func (s *Settings) Apply(f *File) {
	if f == nil {
		return
	}
	if s.Provider == "" {
		s.Provider = f.Provider
	}
	if s.Model == "" {
		s.Model = f.Model
	}
	if s.Folder == "" {
		s.Folder = f.Folder
	}
	if len(s.Languages) == 0 {
		s.Languages = f.Languages
	}
	if len(s.DetailLanguages) == 0 {
		s.DetailLanguages = f.DetailLanguages
	}
	if f.Bulk != nil {
		s.Bulk = *f.Bulk
	}
	if s.BatchSize == 0 {
		s.BatchSize = f.BatchSize
	}
	if s.DefaultContext == "" {
		s.DefaultContext = f.DefaultContext
	}
	if f.TagAI != nil {
		s.TagAI = *f.TagAI
	}
	if s.FuzzyMode == "" {
		s.FuzzyMode = translator.FuzzyMode(f.FuzzyMode)
	}
	if f.FolderLanguage != nil {
		s.FolderLanguage = *f.FolderLanguage
	}
	if s.VerboseMultiplier == 0 {
		s.VerboseMultiplier = f.VerboseMultiplier
	}
}

// Validate checks the settings and fills defaults. All violations are
// *ValidationError.
func (s *Settings) Validate() error {
	if s.Provider == "" {
		s.Provider = provider.OpenAI
	}
	known := false
	for _, name := range provider.Names() {
		if s.Provider == name {
			known = true
		}
	}
	if !known {
		return &ValidationError{
			Field:  "provider",
			Reason: fmt.Sprintf("unknown provider %q (known: %s)", s.Provider, strings.Join(provider.Names(), ", ")),
		}
	}

	if s.BatchSize < 0 {
		return &ValidationError{
			Field:  "batch_size",
			Reason: fmt.Sprintf("must be at least 1, got %d", s.BatchSize),
		}
	}

	if len(s.DetailLanguages) > 0 && len(s.DetailLanguages) != len(s.Languages) {
		return &ValidationError{
			Field:  "detail_languages",
			Reason: fmt.Sprintf("%d detail names for %d languages", len(s.DetailLanguages), len(s.Languages)),
		}
	}

	switch s.FuzzyMode {
	case "":
		s.FuzzyMode = translator.FuzzyOff
	case translator.FuzzyOff, translator.FuzzyFix, translator.FuzzyLegacyStrip:
	default:
		return &ValidationError{
			Field:  "fuzzy_mode",
			Reason: fmt.Sprintf("unknown mode %q (known: off, fix-fuzzy, legacy-strip)", s.FuzzyMode),
		}
	}

	if s.VerboseMultiplier < 0 {
		return &ValidationError{
			Field:  "verbose_multiplier",
			Reason: "must be positive",
		}
	}

	return nil
}

// Targets zips languages and detail names into translator targets.
// Validate must have accepted the settings first.
func (s *Settings) Targets() []translator.Target {
	targets := make([]translator.Target, len(s.Languages))
	for i, code := range s.Languages {
		targets[i] = translator.Target{Code: code}
		if i < len(s.DetailLanguages) {
			targets[i].DetailName = s.DetailLanguages[i]
		}
	}
	return targets
}

// ProviderConfig builds the provider connection settings, layering
// environment credentials under any explicit values.
func (s *Settings) ProviderConfig() provider.Config {
	cfg := provider.Config{
		APIKey:          s.APIKey,
		BaseURL:         s.BaseURL,
		AzureEndpoint:   s.AzureEndpoint,
		AzureAPIVersion: s.AzureAPIVersion,
		Proxy:           s.Proxy,
		Timeout:         s.Timeout,
		Verbose:         s.Verbose,
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(apiKeyEnv(s.Provider))
	}
	switch s.Provider {
	case provider.AzureOpenAI:
		if cfg.AzureEndpoint == "" {
			cfg.AzureEndpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
		}
		if cfg.AzureAPIVersion == "" {
			cfg.AzureAPIVersion = os.Getenv("AZURE_OPENAI_API_VERSION")
		}
	case provider.Ollama:
		if cfg.BaseURL == "" {
			cfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
	return cfg
}

func apiKeyEnv(providerName string) string {
	switch providerName {
	case provider.OpenAI:
		return "OPENAI_API_KEY"
	case provider.AzureOpenAI:
		return "AZURE_OPENAI_API_KEY"
	case provider.Anthropic:
		return "ANTHROPIC_API_KEY"
	case provider.DeepSeek:
		return "DEEPSEEK_API_KEY"
	default:
		return ""
	}
}
