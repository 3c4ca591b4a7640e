package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/dronecoord/api"
	"github.com/kilianp07/dronecoord/config"
	"github.com/kilianp07/dronecoord/core/assignment"
	"github.com/kilianp07/dronecoord/core/assignment/logging"
	"github.com/kilianp07/dronecoord/core/conflict"
	"github.com/kilianp07/dronecoord/core/events"
	"github.com/kilianp07/dronecoord/core/inventory"
	coremetrics "github.com/kilianp07/dronecoord/core/metrics"
	coremon "github.com/kilianp07/dronecoord/core/monitoring"
	"github.com/kilianp07/dronecoord/core/roster"
	"github.com/kilianp07/dronecoord/core/store"
	"github.com/kilianp07/dronecoord/infra/logger"
	"github.com/kilianp07/dronecoord/infra/metrics"
	"github.com/kilianp07/dronecoord/infra/monitoring"
	"github.com/kilianp07/dronecoord/infra/mqtt"
	_ "github.com/kilianp07/dronecoord/infra/recordstore"
	"github.com/kilianp07/dronecoord/internal/eventbus"
)

// Service wires the record store, the engines and their outer surfaces.
type Service struct {
	Store       store.RecordStore
	Roster      *roster.Engine
	Inventory   *inventory.Engine
	Assignments *assignment.Engine
	Conflicts   *conflict.Detector

	cfg           *config.Config
	audit         logging.LogStore
	sink          coremetrics.MetricsSink
	assignmentBus *eventbus.TypedBus[events.AssignmentEvent]
	conflictBus   *eventbus.TypedBus[events.ConflictScanEvent]
	notifier      *mqtt.Notifier
	log           logger.Logger
}

// New creates a Service from the configuration. Resources opened before a
// failure are released.
func New(cfg *config.Config) (svc *Service, err error) {
	if err := logger.SetGlobalLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	s := &Service{
		cfg:           cfg,
		log:           logger.New("service"),
		assignmentBus: eventbus.NewTyped[events.AssignmentEvent](),
		conflictBus:   eventbus.NewTyped[events.ConflictScanEvent](),
	}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	if s.Store, err = store.NewBackend(cfg.Store); err != nil {
		return nil, fmt.Errorf("record store %s: %w", cfg.Store.Type, err)
	}
	if s.audit, err = logging.Open(cfg.Audit); err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}
	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	if cfg.MQTT.Enabled {
		if s.notifier, err = mqtt.NewNotifier(cfg.MQTT); err != nil {
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
	}

	s.Roster = roster.New(s.Store, logger.New("roster"))
	s.Inventory = inventory.New(s.Store, logger.New("inventory"))
	s.Assignments = assignment.New(s.Store, s.Roster, s.Inventory, logger.New("assignment"),
		assignment.WithLogStore(s.audit),
		assignment.WithMetrics(s.sink),
		assignment.WithEventBus(s.assignmentBus),
	)
	s.Conflicts = conflict.New(s.Store, logger.New("conflict"),
		conflict.WithMetrics(s.sink),
		conflict.WithEventBus(s.conflictBus),
	)
	s.log.Infof("service ready: store=%s audit=%s sinks=%d mqtt=%t",
		cfg.Store.Type, cfg.Audit.Backend, len(cfg.Metrics.Sinks), cfg.MQTT.Enabled)
	return s, nil
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	return api.NewRouter(api.Services{
		Roster:      s.Roster,
		Inventory:   s.Inventory,
		Assignments: s.Assignments,
		Conflicts:   s.Conflicts,
		Audit:       s.audit,
		AuditToken:  s.cfg.API.AuditToken,
		Log:         logger.New("api"),
	})
}

// AuditLog returns the assignment audit trail.
func (s *Service) AuditLog() logging.LogStore { return s.audit }

// ConflictEvents subscribes to the scans published by DetectAll.
func (s *Service) ConflictEvents() <-chan events.ConflictScanEvent {
	return s.conflictBus.Subscribe()
}

// AssignmentEvents subscribes to assignment outcomes.
func (s *Service) AssignmentEvents() <-chan events.AssignmentEvent {
	return s.assignmentBus.Subscribe()
}

// Run starts the API server, the notifier, the Prometheus listener and the
// periodic conflict scan. It blocks until the context is cancelled or the
// API listener fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.notifier != nil {
		assignments, scans := s.assignmentBus.Subscribe(), s.conflictBus.Subscribe()
		go func() {
			defer coremon.Recover("mqtt_notifier")
			s.notifier.Run(ctx, assignments, scans)
		}()
	}
	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, port); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.Conflicts.Enabled {
		go s.scanLoop(ctx, s.cfg.Conflicts.Interval())
	}

	if s.cfg.API.Address == "" {
		<-ctx.Done()
		return nil
	}
	srv := &http.Server{Addr: s.cfg.API.Address, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("serving API on %s", s.cfg.API.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) scanLoop(ctx context.Context, every time.Duration) {
	defer coremon.Recover("conflict_scan")
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Conflicts.DetectAll(ctx); err != nil {
				s.log.Errorf("scheduled conflict scan: %v", err)
				coremon.CaptureException(err, map[string]string{"module": "conflict_scan"})
			}
		}
	}
}

// Close releases resources held by the service and flushes pending error
// reports.
func (s *Service) Close() error {
	defer coremon.Flush(2 * time.Second)
	s.assignmentBus.Close()
	s.conflictBus.Close()
	if s.notifier != nil {
		s.notifier.Disconnect()
	}
	var errs []error
	for _, r := range []any{s.audit, s.sink, s.Store} {
		if c, ok := r.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
