package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the host configuration.
type Config struct {
	// Options holds every option by its fully qualified key. Options that
	// appear under a [section] header are stored as "section.key".
	Options map[string]string
	// Warnings contains any warnings generated during config loading
	Warnings []string
}

// NewConfig creates a new empty configuration.
func NewConfig() *Config {
	return &Config{
		Options:  make(map[string]string),
		Warnings: make([]string, 0),
	}
}

// Load loads configuration from the default config file path.
func Load() (*Config, error) {
	configPath, err := ResolveConfigPath("")
	if err != nil {
		return nil, err
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads configuration from the specified file path.
// The file uses dnsmasq-style format: optionName remainingLineIsTheValue
//
// Symlinks are rejected. A missing file yields an empty config.
func LoadFromPath(path string) (*Config, error) {
	// Lstat checks the final path component only.
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewConfig(), nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("symlink not allowed in config path: %s", path)
	}

	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	config := NewConfig()
	scanner := bufio.NewScanner(r)

	var section string
	var lineNo int

	for scanner.Scan() {
		lineNo++
		line, ok, err := parseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !ok {
			continue
		}
		if line.header {
			section = line.section
			continue
		}

		name := qualify(section, line.name)
		if _, dup := config.Options[name]; dup {
			config.addWarning("duplicate option %q on line %d overrides earlier value", name, lineNo)
		}
		config.Options[name] = line.value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	for _, issue := range ValidateConfig(config, DefaultSchema()) {
		config.addWarning("%s", issue)
	}

	return config, nil
}

// configLine is a non-blank, non-comment line of a config file.
type configLine struct {
	header  bool
	section string
	name    string
	value   string
}

// parseLine classifies raw. ok is false for blank lines and comments.
//
// A [section] header prefixes the keys that follow it; [] returns to the
// global section. Any other line is "optionName remainingLineIsTheValue".
func parseLine(raw string) (line configLine, ok bool, err error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return configLine{}, false, nil
	}
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		section := strings.TrimSpace(strings.Trim(trimmed, "[]"))
		if strings.ContainsAny(section, " \t") {
			return configLine{}, false, fmt.Errorf("invalid section name %q", section)
		}
		return configLine{header: true, section: section}, true, nil
	}
	name, value, _ := strings.Cut(trimmed, " ")
	return configLine{name: name, value: strings.TrimSpace(value)}, true, nil
}

// qualify returns the fully qualified key for name read under section.
func qualify(section, name string) string {
	if section == "" {
		return name
	}
	return section + "." + name
}

// addWarning adds a warning to the config's warnings list.
func (c *Config) addWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Warnings = append(c.Warnings, msg)
	slog.Warn("[Config] " + msg)
}

// parseBool parses a boolean value from string.
// Accepts: true, false, 1, 0, yes, no, on, off (case-insensitive)
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}

// GetOption returns a configuration option.
func (c *Config) GetOption(name string) (string, bool) {
	value, exists := c.Options[name]
	return value, exists
}

// SetOption sets a configuration option.
func (c *Config) SetOption(name, value string) {
	c.Options[name] = value
}

// GetString returns the option value for key, or "" if not set.
func (c *Config) GetString(key string) string {
	v, _ := c.GetOption(key)
	return v
}

// GetBool returns the option value for key parsed as a boolean. Returns
// false if the key is not set or the value cannot be parsed.
func (c *Config) GetBool(key string) bool {
	v, ok := c.GetOption(key)
	if !ok {
		return false
	}
	b, err := parseBool(v)
	if err != nil {
		return false
	}
	return b
}

// GetInt returns the option value for key parsed as an integer. Returns 0 if
// the key is not set or the value cannot be parsed.
func (c *Config) GetInt(key string) int {
	v, ok := c.GetOption(key)
	if !ok {
		return 0
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return i
}

// GetDuration returns the option value for key parsed as a time.Duration.
// Returns 0 if the key is not set or the value cannot be parsed.
func (c *Config) GetDuration(key string) time.Duration {
	v, ok := c.GetOption(key)
	if !ok {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

// GetWarnings returns any warnings generated during config loading.
func (c *Config) GetWarnings() []string {
	return c.Warnings
}

// HasWarnings returns true if there are any warnings.
func (c *Config) HasWarnings() bool {
	return len(c.Warnings) > 0
}
