package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/homedash/internal/pkg/config"
	"github.com/anicoll/homedash/internal/pkg/contxt"
	"github.com/anicoll/homedash/internal/pkg/dashboard"
	"github.com/anicoll/homedash/internal/pkg/database"
	"github.com/anicoll/homedash/internal/pkg/database/migration"
	"github.com/anicoll/homedash/internal/pkg/homeapi"
	"github.com/anicoll/homedash/internal/pkg/mqtt"
	"github.com/anicoll/homedash/internal/pkg/prefs"
	"github.com/anicoll/homedash/internal/pkg/publisher"
	"github.com/anicoll/homedash/internal/pkg/server"
	"github.com/anicoll/homedash/internal/pkg/weather"
	"github.com/anicoll/homedash/pkg/hasher"
)

const jobTimeout = 2 * time.Minute

var errCron = errors.New("cron error")

func ServeCommand(c *cli.Context) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("listen-addr") {
		cfg.Server.ListenAddr = c.String("listen-addr")
	}
	if c.IsSet("dashboard-id") {
		cfg.Dashboard.ID = c.String("dashboard-id")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	deps, closers, err := build(c.Context, cfg)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("failed to close dependency", zap.Error(err))
			}
		}
	}()
	if err != nil {
		return err
	}
	deps.logger = logger

	err = run(c.Context, cfg, deps)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func MigrateCommand(c *cli.Context) error {
	return migration.Migrate(c.String("database-url"), c.String("migrations-folder"))
}

// HashPasswordCommand prints the bcrypt hash expected in
// DASHBOARD_EDIT_PASSWORD_HASH.
func HashPasswordCommand(c *cli.Context) error {
	password := c.Args().First()
	if password == "" {
		return errors.New("usage: homedash hash-password <password>")
	}
	hash, err := hasher.HashPassword([]byte(password))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, hash)
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	var err error
	logCfg := zap.NewProductionConfig()

	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

type dependencies struct {
	controller Controller
	handler    http.Handler
	history    HistoryStore
	errorChan  chan error
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// build wires the dashboard service and its stores. Closers are returned
// even on error so partially opened resources are released.
func build(ctx context.Context, cfg *config.Config) (*dependencies, []io.Closer, error) {
	var closers []io.Closer

	apiOpts := []homeapi.Option{
		homeapi.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		homeapi.WithMaxRetries(cfg.API.MaxRetries),
	}
	switch {
	case cfg.API.Token != "":
		apiOpts = append(apiOpts, homeapi.WithToken(cfg.API.Token))
	case cfg.API.Email != "":
		apiOpts = append(apiOpts, homeapi.WithCredentials(cfg.API.Email, cfg.API.Password))
	}
	client := homeapi.New(cfg.API.URL, apiOpts...)

	var db *database.Database
	if cfg.DatabaseURL != "" {
		if err := migration.Migrate(cfg.DatabaseURL, cfg.MigrationsFolder); err != nil {
			return nil, closers, fmt.Errorf("failed to migrate database: %w", err)
		}
		var err error
		if db, err = database.Connect(ctx, cfg.DatabaseURL); err != nil {
			return nil, closers, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, db)
	}

	var store prefs.Store
	switch cfg.Prefs.Driver {
	case config.PrefsSQLite:
		sqlite, err := prefs.OpenSQLite(ctx, cfg.Prefs.Path)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, sqlite)
		store = sqlite
	case config.PrefsPostgres:
		store = db
	default:
		store = prefs.NewMemoryStore()
	}

	registry := publisher.New()
	if db != nil {
		if err := registry.RegisterPublisher("postgres", db); err != nil {
			return nil, closers, err
		}
	}
	if cfg.MqttCfg.Host != "" {
		mqttSvc := mqtt.New(mqtt.NewClient(cfg.MqttCfg.Host, cfg.MqttCfg.Username, cfg.MqttCfg.Password, cfg.MqttCfg.ClientID), cfg.MqttCfg.TopicPrefix)
		if err := mqttSvc.Connect(); err != nil {
			return nil, closers, fmt.Errorf("failed to connect to mqtt: %w", err)
		}
		closers = append(closers, mqttSvc)
		if err := registry.RegisterPublisher("mqtt", mqttSvc); err != nil {
			return nil, closers, err
		}
	}

	stream := server.NewStream(cfg.Server.PingIntervalSecs)
	closers = append(closers, closerFunc(func() error {
		stream.Close()
		return nil
	}))

	weatherSvc := weather.New(weather.Config{
		GeocodingURL: cfg.Weather.GeocodingURL,
		ForecastURL:  cfg.Weather.ForecastURL,
		TTL:          cfg.Weather.TTL,
	}, nil)

	dash := dashboard.New(client,
		dashboard.WithDashboardID(cfg.Dashboard.ID),
		dashboard.WithPreferences(prefs.New(store)),
		dashboard.WithPublisher(registry),
		dashboard.WithWeather(weatherSvc),
		dashboard.WithStateListener(stream.Publish),
		dashboard.WithPollInterval(cfg.Dashboard.PollInterval),
		dashboard.WithDebounce(cfg.Dashboard.Debounce),
	)
	stream.Attach(dash)

	srvOpts := []server.Option{
		server.WithStream(stream),
		server.WithEditPassword(cfg.Dashboard.EditPasswordHash),
		server.WithSessionTTL(cfg.Dashboard.SessionTTL),
	}
	deps := &dependencies{
		controller: dash,
		errorChan:  make(chan error, 1000),
	}
	if db != nil {
		srvOpts = append(srvOpts, server.WithHistory(db))
		deps.history = db
	}
	handler, err := server.New(dash, srvOpts...).Handler()
	if err != nil {
		return nil, closers, err
	}
	deps.handler = handler
	return deps, closers, nil
}

func run(ctx context.Context, cfg *config.Config, deps *dependencies) error {
	logger := deps.logger
	if logger == nil {
		logger = zap.L()
	}
	newBackOff := deps.newBackOff
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 0
			b.MaxInterval = time.Minute
			return b
		}
	}
	defer deps.controller.Close()

	scheduler, err := schedule(ctx, cfg, deps.controller, deps.history, deps.errorChan)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		// the API may not be reachable yet at boot.
		return backoff.RetryNotify(func() error {
			return deps.controller.Load(ctx)
		}, backoff.WithContext(newBackOff(), ctx), func(err error, next time.Duration) {
			logger.Warn("failed to load dashboard, retrying", zap.Error(err), zap.Duration("retry_in", next))
		})
	})

	eg.Go(func() error {
		scheduler.Start()
		<-ctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	eg.Go(func() error {
		srv := &http.Server{
			Handler:      deps.handler,
			Addr:         cfg.Server.ListenAddr,
			WriteTimeout: cfg.Server.WriteTimeout,
			ReadTimeout:  cfg.Server.ReadTimeout,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("http server listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		// handle any async errors from service
		for {
			select {
			case err := <-deps.errorChan:
				logger.Error("background job failed", zap.Error(err))
			case <-ctx.Done():
				logger.Info("context done")
				return ctx.Err()
			}
		}
	})

	return eg.Wait()
}

// schedule registers the periodic aggregate reload and, with a history
// store, the retention cleanup. An invalid cron spec is a startup error.
func schedule(ctx context.Context, cfg *config.Config, ctrl Controller, history HistoryStore, errChan chan<- error) (*cron.Cron, error) {
	c := cron.New()
	if cfg.Cron.Reload != "" {
		if _, err := c.AddFunc(cfg.Cron.Spec(cfg.Cron.Reload), func() {
			if err := ctrl.Reload(contxt.NewContext(ctx, jobTimeout)); err != nil && !errors.Is(err, dashboard.ErrNotLoaded) {
				errChan <- fmt.Errorf("%w: reload dashboard: %w", errCron, err)
				return
			}
			zap.L().Debug("dashboard reloaded")
		}); err != nil {
			return nil, fmt.Errorf("invalid reload schedule: %w", err)
		}
	}
	if history != nil && cfg.Cron.Cleanup != "" {
		if _, err := c.AddFunc(cfg.Cron.Spec(cfg.Cron.Cleanup), func() {
			removed, err := history.Cleanup(contxt.NewContext(ctx, jobTimeout), cfg.Cron.Retention)
			if err != nil {
				errChan <- fmt.Errorf("%w: clean up state history: %w", errCron, err)
				return
			}
			zap.L().Info("cleaned up state history", zap.Int64("removed", removed))
		}); err != nil {
			return nil, fmt.Errorf("invalid cleanup schedule: %w", err)
		}
	}
	return c, nil
}
