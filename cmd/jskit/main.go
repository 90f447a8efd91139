package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joeycumines/jskit/internal/appmsg"
	"github.com/joeycumines/jskit/internal/blobdb"
	"github.com/joeycumines/jskit/internal/config"
	"github.com/joeycumines/jskit/internal/jskit"
	"github.com/joeycumines/jskit/internal/scripting"
	"github.com/joeycumines/jskit/internal/settings"
	"github.com/joeycumines/jskit/internal/timeline"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	app        string
	name       string
	autoAck    bool
	events     bool
	wait       time.Duration
	configPath string
	set        string
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	var o options
	fs := flag.NewFlagSet("jskit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.app, "app", "", "app UUID (default: random)")
	fs.StringVar(&o.name, "name", "", "app short name (default: script file name)")
	fs.BoolVar(&o.autoAck, "auto-ack", false, "acknowledge every app message as soon as it is written")
	fs.BoolVar(&o.events, "events", false, "read JSON-lines events from stdin; EOF stops the app")
	fs.DurationVar(&o.wait, "wait", 0, "stop the app after this long (0: wait for interrupt)")
	fs.StringVar(&o.configPath, "config", "", "config file path (default: $"+config.ConfigPathEnv+" or ~/.jskit/config)")
	fs.StringVar(&o.set, "set", "", "persist key=value into the config file and exit")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "Usage: jskit [flags] <script.js>")
		_, _ = fmt.Fprintln(stderr, "\nRuns a PebbleKit JS script against native services.")
		_, _ = fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
		_, _ = fmt.Fprintf(stderr, "\nConfig file %s", config.DefaultSchema().FormatHelp())
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if *showVersion {
		_, _ = fmt.Fprintf(stderr, "jskit %s\n", version)
		return nil, nil, flag.ErrHelp
	}
	return &o, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	configPath, err := config.ResolveConfigPath(opts.configPath)
	if err != nil {
		return err
	}

	if opts.set != "" {
		key, value, ok := strings.Cut(opts.set, "=")
		if !ok || key == "" {
			return fmt.Errorf("-set expects key=value, got %q", opts.set)
		}
		if config.DefaultSchema().Lookup(key) == nil {
			return fmt.Errorf("unknown config option %q", key)
		}
		return config.SetKeyInFile(configPath, key, value)
	}

	if len(rest) != 1 {
		return errors.New("expected exactly one script path")
	}
	scriptPath := rest[0]

	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		return err
	}

	app, err := appInfo(opts, scriptPath)
	if err != nil {
		return err
	}

	code, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	env, err := newEnvironment(ctx, cfg, config.DefaultSchema(), stdout, stderr, opts.autoAck)
	if err != nil {
		return err
	}
	defer env.Close()

	if _, err := env.manager.Launch(app); err != nil {
		return err
	}
	defer env.manager.Stop()

	if err := env.runtime.LoadScript(filepath.Base(scriptPath), string(code)); err != nil {
		return err
	}

	env.manager.Dispatch("ready", nil)

	var eventsDone <-chan struct{}
	if opts.events {
		done := make(chan struct{})
		eventsDone = done
		go func() {
			defer close(done)
			if err := pumpEvents(stdin, env.manager, env.messages, env.logger); err != nil {
				env.logger.Error("event stream failed", "error", err)
			}
		}()
	}

	var timeout <-chan time.Time
	if opts.wait > 0 {
		timer := time.NewTimer(opts.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		env.logger.Info("interrupted")
	case <-timeout:
	case <-eventsDone:
	case <-env.runtime.Done():
	}
	return nil
}

func appInfo(opts *options, scriptPath string) (jskit.AppInfo, error) {
	id := uuid.New()
	if opts.app != "" {
		var err error
		if id, err = uuid.Parse(opts.app); err != nil {
			return jskit.AppInfo{}, fmt.Errorf("invalid -app: %w", err)
		}
	}
	name := opts.name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
	}
	return jskit.AppInfo{UUID: id, ShortName: name}, nil
}

// environment is the set of native services a script runs against.
type environment struct {
	logger   *slog.Logger
	runtime  *scripting.Runtime
	manager  *jskit.Manager
	messages *appmsg.Service
	timeline *timeline.Client
	records  *blobdb.MemoryStore
	settings settings.Backend
	closers  []io.Closer
}

func newEnvironment(ctx context.Context, cfg *config.Config, schema *config.ConfigSchema, stdout, stderr io.Writer, autoAck bool) (_ *environment, err error) {
	env := &environment{}
	defer func() {
		if err != nil {
			env.Close()
		}
	}()

	level, err := scripting.ParseLevel(schema.Resolve(cfg, config.KeyLogLevel))
	if err != nil {
		return nil, err
	}
	tee := stderr
	if path := schema.Resolve(cfg, config.KeyLogFile); path != "" {
		w, err := scripting.NewRotatingFileWriter(path,
			schema.ResolveInt(cfg, config.KeyLogMaxSizeMB),
			schema.ResolveInt(cfg, config.KeyLogMaxFiles))
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, w)
		tee = w
	}
	diag := scripting.NewDiagnosticsLogger(level, schema.ResolveInt(cfg, config.KeyLogBufferSize), tee)
	env.logger = diag.Logger()

	if env.settings, err = settings.Open(
		schema.Resolve(cfg, config.KeySettingsBackend),
		schema.Resolve(cfg, config.KeySettingsDir),
	); err != nil {
		return nil, err
	}

	var link appmsg.Link = appmsg.NewWriterLink(stdout)
	var auto *appmsg.AutoAckLink
	if autoAck {
		auto = &appmsg.AutoAckLink{Link: link}
		link = auto
	}
	env.messages = appmsg.NewService(link,
		appmsg.WithAckTimeout(schema.ResolveDuration(cfg, config.KeyAppMsgAckTimeout)),
		appmsg.WithLogger(env.logger))
	if auto != nil {
		auto.Service = env.messages
	}

	if env.timeline, err = timeline.NewClient(
		schema.Resolve(cfg, config.KeyTimelineBaseURL),
		timeline.WithTimeout(schema.ResolveDuration(cfg, config.KeyTimelineTimeout)),
		timeline.WithLogger(env.logger),
	); err != nil {
		return nil, err
	}

	env.records = blobdb.NewMemoryStore()

	if env.runtime, err = scripting.NewRuntime(ctx); err != nil {
		return nil, err
	}

	if env.manager, err = jskit.NewManager(env.runtime, jskit.Services{
		AppMessages: env.messages,
		Timeline:    env.timeline,
		Records:     env.records,
		Settings:    env.settings,
		Device: jskit.StaticDevice{
			SerialNumber: schema.Resolve(cfg, config.KeyDeviceSerial),
			PlatformName: schema.Resolve(cfg, config.KeyDevicePlatform),
			Model:        schema.Resolve(cfg, config.KeyDeviceModel),
			Lang:         schema.Resolve(cfg, config.KeyDeviceLanguage),
			Firmware:     schema.Resolve(cfg, config.KeyDeviceFirmware),
		},
		Notifier: logNotifier{logger: env.logger},
	}, jskit.WithLogger(env.logger)); err != nil {
		return nil, err
	}
	env.manager.Register(env.runtime.Registry())

	return env, nil
}

// Close tears services down in reverse dependency order.
func (e *environment) Close() {
	if e.manager != nil {
		e.manager.Stop()
	}
	if e.runtime != nil {
		_ = e.runtime.Close()
	}
	if e.messages != nil {
		_ = e.messages.Close()
	}
	if e.timeline != nil {
		_ = e.timeline.Close()
	}
	if e.records != nil {
		e.records.Wait()
	}
	if e.settings != nil {
		if err := e.settings.Close(); err != nil && e.logger != nil {
			e.logger.Warn("failed to close settings", "error", err)
		}
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i].Close()
	}
}

// logNotifier reports notifications and URL requests through the logger.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(app uuid.UUID, pin jskit.Pin) {
	n.logger.Info("notification",
		"app", app,
		"id", pin.ID,
		"title", pin.Layout.Title,
		"body", pin.Layout.Body)
}

func (n logNotifier) OpenURL(app uuid.UUID, url string) {
	n.logger.Info("open url", "app", app, "url", url)
}
