package config

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Output mode constants
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Default adapter-layer values. These govern only CLI-adapter defaults, never
// the core engine's algorithmic contracts (SPEC §6: "the only environment
// input the core consults is the working directory").
const (
	DefaultMaxFileSize   = int64(1024 * 1024) // 1 MiB
	DefaultMaxResults    = 10
	DefaultContextLines  = 1
	DefaultMaxContextLines = 30
)

// Settings holds adapter-layer configuration for the ns CLI: defaults that
// seed CLI flags when the user doesn't override them, plus output/logging
// preferences. The core engine (internal/nsengine) never reads Settings
// directly; each subcommand resolves its own nsengine options from the
// merged flag values.
type Settings struct {
	MaxFileSize  int64  `mapstructure:"max_file_size"`
	MaxResults   int    `mapstructure:"max_results"`
	ContextLines int    `mapstructure:"context_lines"`
	Output       string `mapstructure:"output"` // OutputText or OutputJSON
	Verbose      bool   `mapstructure:"verbose"`
}

// LoadSettings loads settings from environment variables and defaults, with
// no CLI flag overrides.
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > defaults.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault("max_file_size", DefaultMaxFileSize)
	v.SetDefault("max_results", DefaultMaxResults)
	v.SetDefault("context_lines", DefaultContextLines)
	v.SetDefault("output", OutputText)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("NS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("max_file_size", "NS_MAX_FILE_SIZE")
	_ = v.BindEnv("max_results", "NS_MAX_RESULTS")
	_ = v.BindEnv("context_lines", "NS_CONTEXT_LINES")
	_ = v.BindEnv("output", "NS_OUTPUT")
	_ = v.BindEnv("verbose", "NS_VERBOSE")

	if flags != nil {
		if f := flags.Lookup("max-file-size"); f != nil {
			_ = v.BindPFlag("max_file_size", f)
		}
		if f := flags.Lookup("max-count"); f != nil {
			_ = v.BindPFlag("max_results", f)
		}
		if f := flags.Lookup("context"); f != nil {
			_ = v.BindPFlag("context_lines", f)
		}
		if f := flags.Lookup("verbose"); f != nil {
			_ = v.BindPFlag("verbose", f)
		}
		if jsonFlag := flags.Lookup("json"); jsonFlag != nil {
			if asBool, err := flags.GetBool("json"); err == nil && asBool {
				v.Set("output", OutputJSON)
			}
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// ValidateSettings checks for conflicting or out-of-range configuration.
func ValidateSettings(s *Settings) error {
	switch s.Output {
	case OutputText, OutputJSON:
		// valid
	default:
		return errors.New("output must be 'text' or 'json', got: " + s.Output)
	}

	if s.MaxFileSize <= 0 {
		return errors.New("max-file-size must be positive")
	}
	if s.MaxResults <= 0 {
		return errors.New("max-count must be positive")
	}
	if s.ContextLines < 0 {
		return errors.New("context must not be negative")
	}

	return nil
}
