// Package app wires configuration into a running advisor: storage, pricing,
// rule engine, alerting, metrics and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yapay-ai/llm-cost-advisor/internal/config"
	"github.com/yapay-ai/llm-cost-advisor/internal/logging"
	"github.com/yapay-ai/llm-cost-advisor/internal/metrics"
	"github.com/yapay-ai/llm-cost-advisor/internal/proxy"
	"github.com/yapay-ai/llm-cost-advisor/internal/server"
	"github.com/yapay-ai/llm-cost-advisor/pkg/abtest"
	"github.com/yapay-ai/llm-cost-advisor/pkg/alerts"
	"github.com/yapay-ai/llm-cost-advisor/pkg/engine"
	"github.com/yapay-ai/llm-cost-advisor/pkg/providers"
	"github.com/yapay-ai/llm-cost-advisor/pkg/storage"
	"github.com/yapay-ai/llm-cost-advisor/pkg/tokenizer"
	"github.com/yapay-ai/llm-cost-advisor/pkg/tracker"
)

const shutdownTimeout = 10 * time.Second

// App holds the wired components of one advisor process.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *providers.Registry
	Store    storage.Storage
	Tracker  *tracker.UsageTracker
	Metrics  *metrics.Metrics

	logCloser io.Closer
}

// New builds every component from cfg. Log output goes to logOut unless a log file is configured.
func New(ctx context.Context, cfg *config.Config, logOut io.Writer) (*App, error) {
	logger, logCloser, err := logging.New(cfg.Logging, logOut)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	registry, err := NewRegistry(cfg)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	if dir := filepath.Dir(cfg.Storage.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logCloser.Close()
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := storage.NewSQLite(cfg.Storage.Path)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Registry:  registry,
		Store:     store,
		logCloser: logCloser,
	}

	var engineOpts []engine.Option
	var trackerOpts []tracker.Option
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		engineOpts = append(engineOpts, engine.WithObserver(a.Metrics))
		trackerOpts = append(trackerOpts, tracker.WithObserver(a.Metrics))
	}

	estimator := abtest.NewEstimator(
		abtest.NewRandomMeasurer(cfg.ABTest.Seed),
		logger,
		abtest.WithDefaultSampleSize(cfg.ABTest.DefaultSampleSize),
		abtest.WithMaxQualityLoss(cfg.ABTest.MaxQualityLossPct),
	)
	trackerOpts = append(trackerOpts, tracker.WithEstimator(estimator))

	dispatcher := tracker.NewAlertDispatcher(alerts.Thresholds{
		MinMonthlyImpact:      cfg.Alerts.MinMonthlyImpact,
		CriticalMonthlyImpact: cfg.Alerts.CriticalMonthlyImpact,
	}, Notifiers(cfg), logger)

	a.Tracker = tracker.NewUsageTracker(
		tracker.NewNormalizer(tracker.NewCostCalculator(registry), logger),
		engine.NewDefault(cfg.Rules.Assumptions, logger, engineOpts...),
		store,
		dispatcher,
		logger,
		trackerOpts...,
	)

	if err := a.Tracker.RestoreRuleSettings(ctx, cfg.Rules.Disabled); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// NewRegistry loads the embedded price tables and overlays cfg.Pricing.Dir when set.
func NewRegistry(cfg *config.Config) (*providers.Registry, error) {
	registry, err := providers.DefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("load default pricing: %w", err)
	}
	if cfg.Pricing.Dir != "" {
		if _, err := providers.LoadDir(registry, cfg.Pricing.Dir); err != nil {
			return nil, fmt.Errorf("load pricing dir: %w", err)
		}
	}
	return registry, nil
}

// Notifiers creates the alert notifiers configured in cfg.
func Notifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier
	if cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(cfg.Alerts.Slack.WebhookURL, cfg.Alerts.Slack.Channel))
	}
	if cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}
	return notifiers
}

// Handler returns the complete HTTP handler: API, proxy and metrics as configured.
func (a *App) Handler() http.Handler {
	opts := []server.Option{server.WithDefaultOrg(a.Config.Defaults.OrgID)}

	if a.Config.Proxy.Enabled {
		popts := proxy.Options{
			DefaultOrgID:   a.Config.Defaults.OrgID,
			AddCostHeaders: a.Config.Proxy.AddCostHeaders,
			MaxBodySize:    a.Config.Proxy.MaxBodySize,
			Counter:        tokenizer.NewCounter(),
			Registry:       a.Registry,
		}
		if a.Metrics != nil {
			popts.Recorder = a.Metrics
		}
		opts = append(opts, server.WithProxy(proxy.NewHandler(a.Tracker, popts, a.Logger)))
	}
	if a.Metrics != nil {
		opts = append(opts, server.WithMetrics(a.Metrics.Handler()))
	}

	return server.NewServer(a.Tracker, a.Logger, opts...).Handler()
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.Config.Server.Listen,
		Handler:      a.Handler(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("advisor started",
			"listen", srv.Addr,
			"proxy", a.Config.Proxy.Enabled,
			"metrics", a.Metrics != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close releases storage and the log file.
func (a *App) Close() error {
	return errors.Join(a.Store.Close(), a.logCloser.Close())
}
