package config

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	// TypeString is a plain string value (the default for all config values).
	TypeString OptionType = "string"
	// TypeBool is a boolean value (true/false/yes/no/1/0/on/off).
	TypeBool OptionType = "bool"
	// TypeInt is an integer value.
	TypeInt OptionType = "int"
	// TypeDuration is a Go time.Duration value (e.g. "30s", "5m", "1h").
	TypeDuration OptionType = "duration"
	// TypeURL is an absolute http or https URL.
	TypeURL OptionType = "url"
)

// ConfigOption declares a single configuration option with its type, default,
// documentation, and environment variable override.
type ConfigOption struct {
	// Key is the fully qualified option name, e.g. "log.level".
	Key string
	// Type is the expected value type for validation.
	Type OptionType
	// Default is the default value as a string, or "" for no default.
	Default string
	// Description is a human-readable description of the option.
	Description string
	// EnvVar is the environment variable that overrides this option, or "".
	EnvVar string
	// Choices, if set, restricts the value to one of the listed strings.
	Choices []string
}

// ConfigSchema declares the expected configuration options.
// It is used for validation, documentation, typed resolution, and env var
// mapping.
type ConfigSchema struct {
	options []*ConfigOption
	byKey   map[string]*ConfigOption
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		byKey: make(map[string]*ConfigOption),
	}
}

// Register adds a ConfigOption to the schema. Duplicate keys are silently
// overwritten (last registration wins).
func (s *ConfigSchema) Register(opt ConfigOption) {
	if prev, ok := s.byKey[opt.Key]; ok {
		*prev = opt
		return
	}
	ref := new(ConfigOption)
	*ref = opt
	s.options = append(s.options, ref)
	s.byKey[opt.Key] = ref
}

// RegisterAll adds multiple ConfigOptions to the schema.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the ConfigOption for key, or nil if it is not registered.
func (s *ConfigSchema) Lookup(key string) *ConfigOption {
	return s.byKey[key]
}

// Options returns all registered options in registration order.
func (s *ConfigSchema) Options() []ConfigOption {
	out := make([]ConfigOption, 0, len(s.options))
	for _, o := range s.options {
		out = append(out, *o)
	}
	return out
}

// Resolve returns the effective value for key by checking, in order: (1) the
// environment variable declared in the schema for this key, (2) the config
// value, (3) the schema default. Returns "" if the key is not found anywhere.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	opt := s.Lookup(key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if c != nil {
		if v, ok := c.GetOption(key); ok {
			return v
		}
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ResolveInt resolves key and parses it as an integer, falling back to the
// schema default if the effective value does not parse.
func (s *ConfigSchema) ResolveInt(c *Config, key string) int {
	if i, err := strconv.Atoi(s.Resolve(c, key)); err == nil {
		return i
	}
	if opt := s.Lookup(key); opt != nil {
		i, _ := strconv.Atoi(opt.Default)
		return i
	}
	return 0
}

// ResolveDuration resolves key and parses it as a time.Duration, falling
// back to the schema default if the effective value does not parse.
func (s *ConfigSchema) ResolveDuration(c *Config, key string) time.Duration {
	if d, err := time.ParseDuration(s.Resolve(c, key)); err == nil {
		return d
	}
	if opt := s.Lookup(key); opt != nil {
		d, _ := time.ParseDuration(opt.Default)
		return d
	}
	return 0
}

// ValidateConfig checks a loaded Config against the schema and returns a list
// of human-readable issues (empty if the config is valid).
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string

	for key, value := range c.Options {
		opt := s.Lookup(key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown option: %q (value: %q)", key, value))
			continue
		}
		if err := validateOption(opt, value); err != nil {
			issues = append(issues, fmt.Sprintf("option %q: %v", key, err))
		}
	}

	sort.Strings(issues)
	return issues
}

func validateOption(opt *ConfigOption, value string) error {
	if len(opt.Choices) > 0 && !slices.Contains(opt.Choices, value) {
		return fmt.Errorf("expected one of %s, got %q", strings.Join(opt.Choices, ", "), value)
	}
	return validateType(opt.Type, value)
}

// validateType checks that a string value matches the expected OptionType.
func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	case TypeURL:
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("expected http or https URL, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// FormatHelp returns a formatted, human-readable reference of all registered
// options in the schema.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder
	b.WriteString("Options:\n")
	for _, o := range s.options {
		writeOptionHelp(&b, *o)
	}
	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-24s %s", o.Key, o.Description)
	parts := make([]string, 0, 4)
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, fmt.Sprintf("type: %s", o.Type))
	}
	if len(o.Choices) > 0 {
		parts = append(parts, fmt.Sprintf("one of: %s", strings.Join(o.Choices, "|")))
	}
	if o.Default != "" {
		parts = append(parts, fmt.Sprintf("default: %s", o.Default))
	}
	if o.EnvVar != "" {
		parts = append(parts, fmt.Sprintf("env: %s", o.EnvVar))
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// Option keys.
const (
	KeyLogLevel         = "log.level"
	KeyLogFile          = "log.file"
	KeyLogMaxSizeMB     = "log.max-size-mb"
	KeyLogMaxFiles      = "log.max-files"
	KeyLogBufferSize    = "log.buffer-size"
	KeySettingsBackend  = "settings.backend"
	KeySettingsDir      = "settings.dir"
	KeyTimelineBaseURL  = "timeline.base-url"
	KeyTimelineTimeout  = "timeline.timeout"
	KeyAppMsgAckTimeout = "appmsg.ack-timeout"
	KeyDeviceSerial     = "device.serial"
	KeyDevicePlatform   = "device.platform"
	KeyDeviceModel      = "device.model"
	KeyDeviceLanguage   = "device.language"
	KeyDeviceFirmware   = "device.firmware"
)

// DefaultSchema returns the canonical schema declaring all known jskit
// configuration options.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: KeyLogLevel, Type: TypeString, Default: "info", Description: "Log level", EnvVar: "JSKIT_LOG_LEVEL", Choices: []string{"debug", "info", "warn", "warning", "error"}},
		{Key: KeyLogFile, Type: TypeString, Description: "Log file path (JSON lines)", EnvVar: "JSKIT_LOG_FILE"},
		{Key: KeyLogMaxSizeMB, Type: TypeInt, Default: "10", Description: "Max log file size in MB before rotation"},
		{Key: KeyLogMaxFiles, Type: TypeInt, Default: "5", Description: "Max number of rotated log backup files"},
		{Key: KeyLogBufferSize, Type: TypeInt, Default: "1000", Description: "In-memory log buffer size (entries)"},

		{Key: KeySettingsBackend, Type: TypeString, Default: "fs", Description: "Settings backend", Choices: []string{"fs", "memory"}},
		{Key: KeySettingsDir, Type: TypeString, Description: "Settings directory (default: user config dir)", EnvVar: "JSKIT_SETTINGS_DIR"},

		{Key: KeyTimelineBaseURL, Type: TypeURL, Default: "https://timeline-api.rebble.io", Description: "Timeline service base URL", EnvVar: "JSKIT_TIMELINE_URL"},
		{Key: KeyTimelineTimeout, Type: TypeDuration, Default: "30s", Description: "Timeline request timeout"},

		{Key: KeyAppMsgAckTimeout, Type: TypeDuration, Default: "10s", Description: "AppMessage acknowledgement timeout"},

		{Key: KeyDeviceSerial, Type: TypeString, Description: "Watch serial number"},
		{Key: KeyDevicePlatform, Type: TypeString, Default: "basalt", Description: "Watch platform name"},
		{Key: KeyDeviceModel, Type: TypeString, Description: "Watch model (default: pebble_black)"},
		{Key: KeyDeviceLanguage, Type: TypeString, Default: "en_US", Description: "Watch language"},
		{Key: KeyDeviceFirmware, Type: TypeString, Default: "v4.4.0", Description: "Watch firmware version"},
	})
	return s
}
