package config

import (
	"strings"
	"testing"
	"time"
)

func TestNewSchema(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	if s == nil {
		t.Fatal("NewSchema returned nil")
	}
	if len(s.Options()) != 0 {
		t.Fatalf("expected empty options, got %d", len(s.Options()))
	}
}

func TestSchemaRegisterAndLookup(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: "a.x", Type: TypeInt, Default: "1"},
		{Key: "a.y", Type: TypeBool},
	})

	opt := s.Lookup("a.x")
	if opt == nil || opt.Default != "1" || opt.Type != TypeInt {
		t.Fatalf("unexpected lookup result: %+v", opt)
	}
	if s.Lookup("a.z") != nil {
		t.Fatal("expected nil for unregistered key")
	}
	if len(s.Options()) != 2 {
		t.Fatalf("expected 2 options, got %d", len(s.Options()))
	}
}

func TestSchemaDuplicateOverwrites(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	s.Register(ConfigOption{Key: "k", Default: "first"})
	s.Register(ConfigOption{Key: "k", Default: "second"})

	if got := s.Lookup("k").Default; got != "second" {
		t.Fatalf("expected last registration to win, got %q", got)
	}
	if n := len(s.Options()); n != 1 {
		t.Fatalf("expected a single option, got %d", n)
	}
}

func TestOptionsReturnsCopy(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	s.Register(ConfigOption{Key: "k", Default: "v"})

	opts := s.Options()
	opts[0].Default = "mutated"

	if got := s.Lookup("k").Default; got != "v" {
		t.Fatalf("schema mutated through Options(): %q", got)
	}
}

func TestValidateConfig_AllValid(t *testing.T) {
	t.Parallel()
	c := NewConfig()
	c.SetOption(KeyLogLevel, "debug")
	c.SetOption(KeyLogMaxFiles, "3")
	c.SetOption(KeyTimelineTimeout, "5s")
	c.SetOption(KeyTimelineBaseURL, "http://127.0.0.1:8080")
	c.SetOption(KeySettingsBackend, "memory")

	if issues := ValidateConfig(c, DefaultSchema()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
}

func TestValidateConfig_Issues(t *testing.T) {
	t.Parallel()
	c := NewConfig()
	c.SetOption("bogus", "1")
	c.SetOption(KeyLogMaxFiles, "many")
	c.SetOption(KeySettingsBackend, "sqlite")
	c.SetOption(KeyTimelineBaseURL, "ftp://example.com")

	issues := ValidateConfig(c, DefaultSchema())
	if len(issues) != 4 {
		t.Fatalf("expected 4 issues, got %v", issues)
	}
	joined := strings.Join(issues, "\n")
	for _, want := range []string{
		`unknown option: "bogus"`,
		`option "log.max-files": expected int, got "many"`,
		`option "settings.backend": expected one of fs, memory, got "sqlite"`,
		`option "timeline.base-url": expected http or https URL`,
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected issue containing %q in %v", want, issues)
		}
	}
}

func TestValidateType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		typ     OptionType
		value   string
		wantErr bool
	}{
		{TypeString, "anything", false},
		{"", "anything", false},
		{TypeBool, "yes", false},
		{TypeBool, "maybe", true},
		{TypeInt, "42", false},
		{TypeInt, "4.2", true},
		{TypeDuration, "1m30s", false},
		{TypeDuration, "90", true},
		{TypeURL, "https://x", false},
		{TypeURL, "x", true},
		{"mystery", "x", true},
	}
	for _, tt := range tests {
		err := validateType(tt.typ, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateType(%q, %q) error = %v, wantErr %v", tt.typ, tt.value, err, tt.wantErr)
		}
	}
}

func TestSchemaResolve(t *testing.T) {
	s := DefaultSchema()
	c := NewConfig()

	t.Setenv("JSKIT_LOG_LEVEL", "")
	// Set but empty still overrides.
	if got := s.Resolve(c, KeyLogLevel); got != "" {
		t.Fatalf("expected env override to win, got %q", got)
	}

	c.SetOption(KeyLogMaxFiles, "9")
	if got := s.Resolve(c, KeyLogMaxFiles); got != "9" {
		t.Fatalf("expected config value, got %q", got)
	}
	if got := s.Resolve(c, KeyLogMaxSizeMB); got != "10" {
		t.Fatalf("expected schema default, got %q", got)
	}
	if got := s.Resolve(nil, KeyDeviceLanguage); got != "en_US" {
		t.Fatalf("expected schema default with nil config, got %q", got)
	}
	if got := s.Resolve(c, "not.registered"); got != "" {
		t.Fatalf("expected empty for unknown key, got %q", got)
	}
}

func TestSchemaResolveTyped(t *testing.T) {
	t.Parallel()
	s := DefaultSchema()
	c := NewConfig()
	c.SetOption(KeyLogBufferSize, "250")
	c.SetOption(KeyLogMaxFiles, "lots")
	c.SetOption(KeyAppMsgAckTimeout, "250ms")
	c.SetOption(KeyTimelineTimeout, "soon")

	if got := s.ResolveInt(c, KeyLogBufferSize); got != 250 {
		t.Errorf("ResolveInt(buffer-size) = %d", got)
	}
	if got := s.ResolveInt(c, KeyLogMaxFiles); got != 5 {
		t.Errorf("ResolveInt(max-files) should fall back to default, got %d", got)
	}
	if got := s.ResolveDuration(c, KeyAppMsgAckTimeout); got != 250*time.Millisecond {
		t.Errorf("ResolveDuration(ack-timeout) = %v", got)
	}
	if got := s.ResolveDuration(c, KeyTimelineTimeout); got != 30*time.Second {
		t.Errorf("ResolveDuration(timeline.timeout) should fall back to default, got %v", got)
	}
}

func TestDefaultSchema_Keys(t *testing.T) {
	t.Parallel()
	s := DefaultSchema()
	for _, key := range []string{
		KeyLogLevel, KeyLogFile, KeyLogMaxSizeMB, KeyLogMaxFiles, KeyLogBufferSize,
		KeySettingsBackend, KeySettingsDir,
		KeyTimelineBaseURL, KeyTimelineTimeout,
		KeyAppMsgAckTimeout,
		KeyDeviceSerial, KeyDevicePlatform, KeyDeviceModel, KeyDeviceLanguage, KeyDeviceFirmware,
	} {
		opt := s.Lookup(key)
		if opt == nil {
			t.Errorf("missing option %q", key)
			continue
		}
		if opt.Default != "" {
			if err := validateOption(opt, opt.Default); err != nil {
				t.Errorf("default for %q is invalid: %v", key, err)
			}
		}
	}
}

func TestFormatHelp(t *testing.T) {
	t.Parallel()
	help := DefaultSchema().FormatHelp()
	for _, want := range []string{
		"Options:",
		"log.level",
		"env: JSKIT_LOG_LEVEL",
		"one of: fs|memory",
		"type: duration",
		"default: 30s",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("expected %q in help:\n%s", want, help)
		}
	}
}
