package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kilianp07/cpm/api/schedule"
	"github.com/kilianp07/cpm/config"
	coremetrics "github.com/kilianp07/cpm/core/metrics"
	coremon "github.com/kilianp07/cpm/core/monitoring"
	"github.com/kilianp07/cpm/core/project"
	"github.com/kilianp07/cpm/core/runlog"
	"github.com/kilianp07/cpm/core/scheduling"
	"github.com/kilianp07/cpm/infra/logger"
	"github.com/kilianp07/cpm/infra/metrics"
	"github.com/kilianp07/cpm/infra/monitoring"
	"github.com/kilianp07/cpm/infra/mqtt"
	"github.com/kilianp07/cpm/infra/sqlite"
	"github.com/kilianp07/cpm/internal/eventbus"
)

// busBuffer sizes subscriber queues so a batch run does not drop events.
const busBuffer = 256

// Service wires the scheduler to its storage, transports and observers.
type Service struct {
	Manager *scheduling.Manager
	Repo    project.Repository

	cfg     *config.Config
	bus     *eventbus.Bus
	sink    coremetrics.MetricsSink
	mqtt    mqtt.Client
	cron    *cron.Cron
	handler http.Handler
	log     logger.Logger
}

// OpenRepository opens the project store selected by cfg.
func OpenRepository(cfg config.StoreConfig) (project.Repository, error) {
	switch cfg.Backend {
	case "memory":
		return project.NewMemoryStore(), nil
	case "sqlite":
		return sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %s", cfg.Backend)
	}
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	repo, err := OpenRepository(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	rl, err := runlog.Open(cfg.Logging.RunLogOptions())
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("run log: %w", err)
	}
	bus := eventbus.NewWithBuffer(busBuffer)
	mgr, err := scheduling.NewManager(repo, cfg.Scheduler, bus, logger.New("scheduler"))
	if err != nil {
		_ = repo.Close()
		_ = rl.Close()
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	mgr.SetRunLog(rl)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = mgr.Close()
		_ = repo.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	svc := &Service{
		Manager: mgr,
		Repo:    repo,
		cfg:     cfg,
		bus:     bus,
		sink:    sink,
		log:     logg,
	}
	if cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqtt = client
	}

	rc := schedule.RouterConfig{Scheduler: mgr, Repo: repo, RunLog: rl, Token: cfg.HTTP.Token}
	if cfg.HTTP.RatePerSecond > 0 {
		rc.Limiter = schedule.NewLimiter(cfg.HTTP.RatePerSecond, cfg.HTTP.Burst, 10*time.Minute)
	}
	svc.handler = schedule.NewRouter(rc)
	return svc, nil
}

// Handler returns the API handler.
func (s *Service) Handler() http.Handler { return s.handler }

// Run starts the observers, the periodic rescheduler and the HTTP API, and
// blocks until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	collectorDone := metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("metrics"))

	notifierDone := closedChan()
	if s.mqtt != nil {
		notifierDone = mqtt.NewNotifier(s.mqtt, s.cfg.MQTT.TopicPrefix, logger.New("mqtt_notifier")).Start(ctx, s.bus)
		if topic := s.cfg.MQTT.RequestTopic; topic != "" {
			if err := mqtt.ListenRequests(ctx, s.mqtt, topic, s.Manager, logger.New("mqtt_requests")); err != nil {
				return fmt.Errorf("mqtt requests: %w", err)
			}
		}
	}

	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		coremon.Go(func() {
			if err := metrics.StartPromServer(ctx, port); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		})
	}

	if expr := s.cfg.Scheduler.Cron; expr != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(expr, func() { s.rescheduleAll(ctx) }); err != nil {
			return fmt.Errorf("cron: %w", err)
		}
		s.cron.Start()
		s.log.Infof("rescheduling every project on %q", expr)
	}

	srv := &http.Server{Addr: s.cfg.HTTP.Addr, Handler: s.handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	coremon.Go(func() {
		s.log.Infof("api listening on %s", s.cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	})

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("api shutdown: %v", err)
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.bus.Close()
	<-collectorDone
	<-notifierDone
	return runErr
}

func (s *Service) rescheduleAll(ctx context.Context) {
	n, err := s.Manager.ScheduleAll(scheduling.WithTrigger(ctx, "cron"))
	if err != nil {
		s.log.Warnf("periodic reschedule: %d projects scheduled, errors: %v", n, err)
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	s.bus.Close()
	err := errors.Join(s.Manager.Close(), s.Repo.Close())
	coremon.Flush(2 * time.Second)
	return err
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
