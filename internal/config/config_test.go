package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestConfigParsing(t *testing.T) {
	t.Parallel()
	configContent := `# Global options
log.level debug
timeline.base-url http://localhost:9000

[device]
serial Q102AB3C4D5E
firmware v4.3.0-rc2

[appmsg]
ack-timeout 2s`

	config, err := LoadFromReader(strings.NewReader(configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	want := map[string]string{
		"log.level":          "debug",
		"timeline.base-url":  "http://localhost:9000",
		"device.serial":      "Q102AB3C4D5E",
		"device.firmware":    "v4.3.0-rc2",
		"appmsg.ack-timeout": "2s",
	}
	for key, value := range want {
		if got, ok := config.GetOption(key); !ok || got != value {
			t.Errorf("Expected %s=%s, got %q (exists: %v)", key, value, got, ok)
		}
	}
	if config.HasWarnings() {
		t.Errorf("Unexpected warnings: %v", config.GetWarnings())
	}
}

func TestEmptyConfig(t *testing.T) {
	t.Parallel()
	config, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Failed to load empty config: %v", err)
	}

	if len(config.Options) != 0 {
		t.Errorf("Expected empty config, got %v", config.Options)
	}
}

func TestConfigWithComments(t *testing.T) {
	t.Parallel()
	configContent := `# This is a comment
log.level warn
# Another comment

[settings]
# Section comment
backend memory`

	config, err := LoadFromReader(strings.NewReader(configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if v := config.GetString(KeyLogLevel); v != "warn" {
		t.Errorf("Expected log.level=warn, got %q", v)
	}
	if v := config.GetString(KeySettingsBackend); v != "memory" {
		t.Errorf("Expected settings.backend=memory, got %q", v)
	}
}

func TestConfigEmptySectionReturnsToGlobal(t *testing.T) {
	t.Parallel()
	config, err := LoadFromReader(strings.NewReader("[device]\nserial A\n[]\nlog.level info\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if v := config.GetString(KeyDeviceSerial); v != "A" {
		t.Errorf("Expected device.serial=A, got %q", v)
	}
	if v := config.GetString(KeyLogLevel); v != "info" {
		t.Errorf("Expected log.level=info, got %q", v)
	}
}

func TestConfigInvalidSectionName(t *testing.T) {
	t.Parallel()
	_, err := LoadFromReader(strings.NewReader("log.level info\n[bad name]\n"))
	if err == nil || !strings.Contains(err.Error(), `line 2: invalid section name "bad name"`) {
		t.Fatalf("Expected invalid section error, got %v", err)
	}
}

func TestConfigWarnings(t *testing.T) {
	t.Parallel()
	config, err := LoadFromReader(strings.NewReader("log.level info\nlog.level debug\nunknown.key 1\nlog.max-files x\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if v := config.GetString(KeyLogLevel); v != "debug" {
		t.Errorf("Expected later value to win, got %q", v)
	}
	warnings := strings.Join(config.GetWarnings(), "\n")
	for _, want := range []string{
		`duplicate option "log.level" on line 2`,
		`unknown option: "unknown.key"`,
		`option "log.max-files": expected int`,
	} {
		if !strings.Contains(warnings, want) {
			t.Errorf("Expected warning %q in %q", want, warnings)
		}
	}
}

func TestTypedGetters(t *testing.T) {
	t.Parallel()
	config := NewConfig()
	config.SetOption("b", "on")
	config.SetOption("i", "12")
	config.SetOption("d", "1m")
	config.SetOption("bad", "x")

	if !config.GetBool("b") || config.GetBool("bad") || config.GetBool("missing") {
		t.Error("GetBool returned unexpected values")
	}
	if config.GetInt("i") != 12 || config.GetInt("bad") != 0 || config.GetInt("missing") != 0 {
		t.Error("GetInt returned unexpected values")
	}
	if config.GetDuration("d").Minutes() != 1 || config.GetDuration("bad") != 0 {
		t.Error("GetDuration returned unexpected values")
	}
	if config.GetString("missing") != "" {
		t.Error("GetString should return empty for missing key")
	}
}

func TestLoadFromPathMissing(t *testing.T) {
	t.Parallel()
	config, err := LoadFromPath(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if len(config.Options) != 0 {
		t.Errorf("Expected empty config, got %v", config.Options)
	}
}

func TestLoadFromPathExisting(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("device.platform chalk\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if v := config.GetString(KeyDevicePlatform); v != "chalk" {
		t.Errorf("Expected device.platform=chalk, got %q", v)
	}
}

func TestLoadFromPathRejectsSymlink(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "config")
	if err := os.WriteFile(target, []byte("log.level info\n"), 0644); err != nil {
		t.Fatalf("Failed to write target: %v", err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	_, err := LoadFromPath(link)
	if err == nil || !strings.Contains(err.Error(), "symlink not allowed") {
		t.Fatalf("Expected symlink rejection, got %v", err)
	}
}

func TestLoadUsesConfigPathEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("settings.backend memory\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv(ConfigPathEnv, path)

	config, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v := config.GetString(KeySettingsBackend); v != "memory" {
		t.Errorf("Expected settings.backend=memory, got %q", v)
	}
}
