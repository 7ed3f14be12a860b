package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/lmittmann/tint"
	log "log/slog"

	"voxbar/internal/apps"
	"voxbar/internal/bus"
	"voxbar/internal/config"
	"voxbar/internal/datetime"
	"voxbar/internal/ipc"
	"voxbar/internal/launch"
	"voxbar/internal/notify"
	"voxbar/internal/proxy"
	"voxbar/internal/reminder"
	"voxbar/internal/storage"
	"voxbar/internal/tts"
	"voxbar/internal/vox"
	"voxbar/internal/webapi"
)

var version = "dev"

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address")
	dataDir := cli.StringP("data", "d", "", "Data directory")
	settingsPath := cli.String("settings", "", "Settings file path")
	wsAddr := cli.String("ws", "", "Websocket listen address")
	socket := cli.String("socket", "", "Control socket path")
	storageKind := cli.String("storage", "", "Reminder storage: file or sqlite")
	seed := cli.Int64("seed", 0, "Seed for canned reply selection")
	cli.Parse()

	_ = godotenv.Load(*envFile)
	cfg := config.FromEnv()
	overlay(&cfg.LogLevel, "log", *logLevel)
	overlay(&cfg.Proxy, "proxy", *proxyAddr)
	overlay(&cfg.DataDir, "data", *dataDir)
	overlay(&cfg.SettingsPath, "settings", *settingsPath)
	overlay(&cfg.WSAddr, "ws", *wsAddr)
	overlay(&cfg.Socket, "socket", *socket)
	overlay(&cfg.Storage, "storage", *storageKind)
	if cli.CommandLine.Changed("seed") {
		cfg.Seed = *seed
	}

	level, ok := logLevelMap[cfg.LogLevel]
	if !ok {
		level = log.LevelInfo
	}
	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	log.Info("Booting up", "version", version)

	if err := run(cfg); err != nil {
		log.Error("Daemon stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Shut down")
}

func overlay(dst *string, flag, value string) {
	if cli.CommandLine.Changed(flag) {
		*dst = value
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}

	store, err := storage.Open(cfg.Storage, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()
	log.Debug("Loaded storage", "kind", cfg.Storage)

	settings, err := config.OpenSettings(cfg.SettingsPath)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	log.Debug("Loaded settings", "path", settings.Path())

	hub := bus.NewHub(log.Default())
	hub.AttachActions(settings)

	reminders := reminder.New(store, notify.Desktop{Icon: "alarm-symbolic"},
		reminder.WithFireHook(func(r reminder.Reminder) { hub.ReminderFired(r.Text) }))
	defer reminders.Close()
	reminders.Load()

	index := apps.NewIndex()
	dirs := cfg.AppDirs
	if len(dirs) == 0 {
		dirs = apps.DefaultDirs()
	}
	log.Debug("Indexed applications", "count", index.Scan(dirs))

	httpClient, err := proxy.NewClient(cfg.Proxy, 15*time.Second)
	if err != nil {
		return fmt.Errorf("proxy %s: %w", cfg.Proxy, err)
	}
	web, err := webapi.New(httpClient, webapi.Config{})
	if err != nil {
		return err
	}

	current := settings.Current()
	speaker := tts.NewSpeaker(voiceOf(current))
	if _, err := exec.LookPath("pactl"); err == nil {
		speaker.Duck = tts.NewDucker("espeak-ng", "voxbar")
	}
	settings.OnChange(func(s config.Settings) {
		speaker.SetVoice(voiceOf(s))
		log.Info("Settings reloaded", "engine", s.SearchEngine, "actions", len(s.CustomActions))
	})

	var v *vox.Vox
	launcher := launch.New(func(kind string) {
		if v != nil {
			v.CommandFailed(kind)
		}
	})

	v = vox.New(vox.Deps{
		Surface:   hub,
		Speaker:   speaker,
		Player:    notify.NewPlayer(cfg.Assets),
		Launcher:  launcher,
		Apps:      index,
		Web:       web,
		Reminders: reminders,
		Settings:  settings,
	}, vox.Options{
		Version: version,
		Seed:    uint64(cfg.Seed),
		Log:     log.Default(),
	})
	hub.Attach(v)
	hub.Idle(v.IdleGreeting())

	log.Info("Boot up - successful")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return config.NewWatcher(settings, 0).Run(ctx)
	})
	if cfg.WSAddr != "" {
		g.Go(func() error { return hub.Serve(ctx, cfg.WSAddr) })
	}
	if cfg.Socket != "" {
		g.Go(func() error {
			return ipc.Serve(ctx, cfg.Socket, control(v, reminders, settings))
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func voiceOf(s config.Settings) tts.Voice {
	return tts.Voice{Name: s.PreferredVoice, Pitch: s.Pitch, Rate: s.Rate}
}

func control(v *vox.Vox, reminders *reminder.Store, settings *config.SettingsStore) ipc.Handler {
	return func(msg ipc.ControlMessage) ipc.Reply {
		var err error
		switch msg.Cmd {
		case ipc.CmdQuery:
			err = v.Submit(msg.Text)
		case ipc.CmdSelect:
			err = v.Select(msg.Index)
		case ipc.CmdAbandon:
			v.Abandon()
		case ipc.CmdReset:
			err = v.Reset(settings.ClearActions)
		case ipc.CmdReminders:
			var lines []string
			for _, r := range reminders.List() {
				lines = append(lines, fmt.Sprintf("%s  %s  %s", r.ID, datetime.Short(r.FireAt.Local()), r.Text))
			}
			return ipc.Reply{OK: true, Lines: lines}
		case ipc.CmdActions:
			var lines []string
			for i, a := range settings.Actions() {
				lines = append(lines, fmt.Sprintf("%d. %s", i+1, a.Summary()))
			}
			return ipc.Reply{OK: true, Lines: lines}
		case ipc.CmdActionAdd:
			if msg.Action == nil {
				err = errors.New("no action given")
				break
			}
			err = settings.AddAction(*msg.Action)
		case ipc.CmdActionRemove:
			err = settings.RemoveAction(msg.Index)
		case ipc.CmdStatus:
			state := "idle"
			if v.Busy() {
				state = "busy"
			}
			return ipc.Reply{OK: true, Lines: []string{"version " + version, "state " + state}}
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			err = fmt.Errorf("unknown command %q", msg.Cmd)
		}
		if err != nil {
			return ipc.Fail(err)
		}
		return ipc.Reply{OK: true}
	}
}
