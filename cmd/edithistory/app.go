package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/runtimeeditor/history/internal/config"
	"github.com/runtimeeditor/history/internal/dispatcher"
	"github.com/runtimeeditor/history/internal/history"
	"github.com/runtimeeditor/history/internal/influx"
	"github.com/runtimeeditor/history/internal/logging"
	intOtel "github.com/runtimeeditor/history/internal/otel"
	"github.com/runtimeeditor/history/internal/scene"
	"github.com/runtimeeditor/history/internal/session"
	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/internal/storage"
	"github.com/runtimeeditor/history/internal/stream"
)

// app holds every service of one editor session.
type app struct {
	start     time.Time
	sessionID string
	logsDir   string

	logFile *os.File
	logs    *logging.SlogManager
	logger  *slog.Logger
	zlog    zerolog.Logger
	otel    *intOtel.Provider

	world      *scene.Scene
	store      *snapshot.Store
	hist       *history.History
	ctrl       *session.Controller
	dispatcher *dispatcher.Dispatcher
	backend    storage.Backend

	stream *stream.Client
	influx *influx.Manager
}

// newApp wires the session. console receives log output when no log file
// can be opened.
func newApp(ctx context.Context, console io.Writer) (*app, error) {
	a := &app{
		start:     time.Now(),
		sessionID: uuid.NewString(),
		logsDir:   config.GetString("logsDir"),
	}
	level := config.GetString("logLevel")

	var logOut io.Writer = console
	logFile, err := logging.OpenLogFile(logging.LogFilePath(a.logsDir, appName, a.start))
	if err == nil {
		a.logFile = logFile
		logOut = logFile
	}

	otelCfg := intOtel.FromConfig(config.GetOTelConfig(), logOut)
	otelCfg.ServiceVersion = CurrentVersion
	a.otel, err = intOtel.New(otelCfg)
	if err != nil {
		return nil, err
	}

	a.logs = logging.NewSlogManager()
	a.logs.Setup(logging.Options{
		File:        logOut,
		Level:       level,
		Provider:    a.otel.LoggerProvider(),
		ServiceName: a.otel.ServiceName(),
		Context:     a.historyAttrs,
	})
	a.logger = a.logs.Logger()
	a.zlog = logging.NewZerolog(logOut, level)
	if logFile == nil {
		a.logger.Warn("Failed to open log file, logging to console", "error", err)
	}

	a.world = scene.New()
	a.store = snapshot.NewStore(a.world, a.logs.Component("snapshot"))

	histCfg := config.GetHistoryConfig()
	a.hist, err = history.New(a.store, histCfg, a.logs.Component("history"))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.backend, err = a.createStorageBackend(config.GetStorageConfig())
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.backend.Init(); err != nil {
		a.logger.Error("Failed to initialize storage backend", "error", err)
		a.backend = nil
		a.Close()
		return nil, err
	}

	a.ctrl, err = session.New(session.Dependencies{
		World:      a.world,
		Store:      a.store,
		History:    a.hist,
		Backend:    a.backend,
		LogManager: a.logs,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.dispatcher, err = dispatcher.New(logging.NewZerologAdapter(a.zlog))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ctrl.RegisterHandlers(a.dispatcher)

	a.connectStream(histCfg)
	a.connectInflux(ctx)

	a.logger.Info("Session started", "session", a.sessionID, "storage", config.GetStorageConfig().Type)
	return a, nil
}

// historyAttrs adds the stack depths to every log record.
func (a *app) historyAttrs() []slog.Attr {
	if a.hist == nil {
		return nil
	}
	st := a.hist.State()
	return []slog.Attr{
		slog.Int("undo", st.UndoLen),
		slog.Int("redo", st.RedoLen),
	}
}

func (a *app) connectStream(histCfg config.HistoryConfig) {
	cfg := config.GetStreamConfig()
	if !cfg.Enabled {
		return
	}
	client := stream.New(cfg, stream.HelloPayload{Session: a.sessionID, Capacity: histCfg.Capacity}, a.logs.Component("stream"))
	if err := client.Connect(); err != nil {
		a.logger.Warn("Editor stream unavailable", "url", cfg.URL, "error", err)
		_ = client.Close()
		return
	}
	a.stream = client
	a.hist.Subscribe(client.Observer())
	a.ctrl.AddAuditor(client)
}

func (a *app) connectInflux(ctx context.Context) {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return
	}
	backup := filepath.Join(a.logsDir, "influx_backup_"+a.start.Format("20060102_150405")+".lp.gz")
	m := influx.NewManager(a.zlog, cfg, backup)
	if err := m.Connect(ctx); err != nil {
		a.logger.Warn("History audit disabled", "error", err)
		return
	}
	a.influx = m
	a.ctrl.AddAuditor(influx.NewAuditor(m))
}

// Close shuts services down in reverse order of creation.
func (a *app) Close() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.stream != nil {
		_ = a.stream.Close()
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.logger.Error("Failed to close influx", "error", err)
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if a.hist != nil {
		a.hist.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.logs != nil {
		_ = a.logs.Flush(ctx)
	}
	if a.otel != nil {
		_ = a.otel.Shutdown(ctx)
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
