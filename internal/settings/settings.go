// Package settings holds the engine configuration: an immutable
// per-interaction snapshot, a provider interface, and a viper-backed
// file provider supporting live changes.
package settings

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// DisplayMode selects how translations are presented.
const (
	DisplayTooltip = "tooltip"
	DisplayInline  = "inline"
)

// Snapshot is a read-only view of the configuration, taken once per
// interaction. Mutating a copy never affects the provider.
type Snapshot struct {
	SourceLang         string
	TargetLang         string
	ContextMode        bool
	ContextWindowChars int
	DisplayMode        string
	UseCache           bool
	Enabled            bool

	MaxTextLength      int
	RequestTimeout     time.Duration
	MinRequestInterval time.Duration
	ToastDuration      time.Duration

	Endpoint string
	Model    string

	CachePath    string
	CacheTTLDays int

	SupportedLanguages []string
}

// Provider yields configuration snapshots.
type Provider interface {
	Get() Snapshot
}

// Setter is implemented by providers supporting live changes.
type Setter interface {
	Set(key string, value any) error
}

// Default returns the built-in configuration, mirroring a local
// LM Studio deployment.
func Default() Snapshot {
	return Snapshot{
		SourceLang:         "auto",
		TargetLang:         "English",
		ContextMode:        true,
		ContextWindowChars: 200,
		DisplayMode:        DisplayTooltip,
		UseCache:           true,
		Enabled:            true,
		MaxTextLength:      500,
		RequestTimeout:     30 * time.Second,
		MinRequestInterval: 300 * time.Millisecond,
		ToastDuration:      4 * time.Second,
		Endpoint:           "http://localhost:1234/v1/chat/completions",
		Model:              "gemma-2-27b-it",
		CachePath:          "./cache/translations.db",
		CacheTTLDays:       30,
		SupportedLanguages: []string{"English", "German", "French", "Spanish", "Italian"},
	}
}

// Validate checks the snapshot bounds.
func (s Snapshot) Validate() error {
	if s.MaxTextLength < 1 {
		return fmt.Errorf("invalid max text length: %d", s.MaxTextLength)
	}
	if s.ContextWindowChars < 1 {
		return fmt.Errorf("invalid context window: %d", s.ContextWindowChars)
	}
	if s.RequestTimeout < time.Second {
		return fmt.Errorf("invalid request timeout: %s", s.RequestTimeout)
	}
	if s.CacheTTLDays < 1 {
		return fmt.Errorf("invalid cache TTL: %d days", s.CacheTTLDays)
	}
	if s.DisplayMode != DisplayTooltip && s.DisplayMode != DisplayInline {
		return fmt.Errorf("invalid display mode: %q", s.DisplayMode)
	}
	if s.TargetLang == "" {
		return fmt.Errorf("target language must not be empty")
	}
	return nil
}

// Static is a fixed-snapshot provider, mostly for tests and one-shot
// CLI runs. It satisfies Setter so live changes work against it too.
type Static struct {
	S Snapshot
}

func (p *Static) Get() Snapshot { return p.S }

// Set applies one live configuration change.
func (p *Static) Set(key string, value any) error {
	next, err := apply(p.S, key, value)
	if err != nil {
		return err
	}
	p.S = next
	return nil
}

// File is a viper-backed provider reading a YAML configuration file
// of the same shape as Default.
type File struct {
	v *viper.Viper
}

// Load reads path. A missing file yields the defaults; a malformed
// one is an error.
func Load(path string) (*File, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
		}
	}
	f := &File{v: v}
	if err := f.Get().Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return f, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("translation.source_lang", d.SourceLang)
	v.SetDefault("translation.target_lang", d.TargetLang)
	v.SetDefault("translation.context_mode", d.ContextMode)
	v.SetDefault("translation.context_window_chars", d.ContextWindowChars)
	v.SetDefault("translation.display_mode", d.DisplayMode)
	v.SetDefault("translation.max_text_length", d.MaxTextLength)
	v.SetDefault("translation.supported_languages", d.SupportedLanguages)
	v.SetDefault("translation.enabled", d.Enabled)
	v.SetDefault("llm.endpoint", d.Endpoint)
	v.SetDefault("llm.model", d.Model)
	v.SetDefault("llm.timeout", d.RequestTimeout)
	v.SetDefault("engine.min_request_interval", d.MinRequestInterval)
	v.SetDefault("engine.toast_duration", d.ToastDuration)
	v.SetDefault("cache.enabled", d.UseCache)
	v.SetDefault("cache.path", d.CachePath)
	v.SetDefault("cache.ttl_days", d.CacheTTLDays)
}

func (f *File) Get() Snapshot {
	v := f.v
	return Snapshot{
		SourceLang:         v.GetString("translation.source_lang"),
		TargetLang:         v.GetString("translation.target_lang"),
		ContextMode:        v.GetBool("translation.context_mode"),
		ContextWindowChars: v.GetInt("translation.context_window_chars"),
		DisplayMode:        v.GetString("translation.display_mode"),
		UseCache:           v.GetBool("cache.enabled"),
		Enabled:            v.GetBool("translation.enabled"),
		MaxTextLength:      v.GetInt("translation.max_text_length"),
		RequestTimeout:     v.GetDuration("llm.timeout"),
		MinRequestInterval: v.GetDuration("engine.min_request_interval"),
		ToastDuration:      v.GetDuration("engine.toast_duration"),
		Endpoint:           v.GetString("llm.endpoint"),
		Model:              v.GetString("llm.model"),
		CachePath:          v.GetString("cache.path"),
		CacheTTLDays:       v.GetInt("cache.ttl_days"),
		SupportedLanguages: v.GetStringSlice("translation.supported_languages"),
	}
}

// Set applies one live configuration change, rejecting values that
// would leave the configuration invalid.
func (f *File) Set(key string, value any) error {
	if _, err := apply(f.Get(), key, value); err != nil {
		return err
	}
	f.v.Set(configKey(key), value)
	return nil
}

// configKey maps the short live-change keys to their config paths.
func configKey(key string) string {
	switch key {
	case "source_lang", "target_lang", "context_mode", "context_window_chars",
		"display_mode", "max_text_length", "enabled":
		return "translation." + key
	case "use_cache":
		return "cache.enabled"
	case "endpoint", "model":
		return "llm." + key
	}
	return key
}

// apply validates one change against a snapshot and returns the
// updated copy.
func apply(s Snapshot, key string, value any) (Snapshot, error) {
	switch key {
	case "source_lang":
		str, err := asString(value)
		if err != nil {
			return s, err
		}
		s.SourceLang = str
	case "target_lang":
		str, err := asString(value)
		if err != nil {
			return s, err
		}
		s.TargetLang = str
	case "display_mode":
		str, err := asString(value)
		if err != nil {
			return s, err
		}
		s.DisplayMode = str
	case "endpoint":
		str, err := asString(value)
		if err != nil {
			return s, err
		}
		s.Endpoint = str
	case "model":
		str, err := asString(value)
		if err != nil {
			return s, err
		}
		s.Model = str
	case "context_mode":
		b, err := asBool(value)
		if err != nil {
			return s, err
		}
		s.ContextMode = b
	case "use_cache":
		b, err := asBool(value)
		if err != nil {
			return s, err
		}
		s.UseCache = b
	case "enabled":
		b, err := asBool(value)
		if err != nil {
			return s, err
		}
		s.Enabled = b
	case "context_window_chars":
		n, err := asInt(value)
		if err != nil {
			return s, err
		}
		s.ContextWindowChars = n
	case "max_text_length":
		n, err := asInt(value)
		if err != nil {
			return s, err
		}
		s.MaxTextLength = n
	default:
		return s, fmt.Errorf("unknown setting: %q", key)
	}
	return s, s.Validate()
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", v)
	}
	return b, nil
}

func asInt(v any) (int, error) {
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("expected int, got %T", v)
	}
	return n, nil
}
