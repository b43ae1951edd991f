package dependencies

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"PulseWatch/internal/backend/services"
	"PulseWatch/internal/backend/storage"
	"PulseWatch/internal/config"
	"PulseWatch/internal/incidents"
	"PulseWatch/internal/maintenance"
	"PulseWatch/internal/prober"
	"PulseWatch/internal/recorder"
	"PulseWatch/internal/scheduler"
	"PulseWatch/internal/slo"
	"PulseWatch/internal/telemetry"
	"PulseWatch/pkg/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Container контейнер зависимостей
type Container struct {
	// Config
	Config *config.Config

	// Logger
	Logger *slog.Logger

	// Storage
	Store storage.Store
	DB    *pgxpool.Pool

	// Публикация переходов
	Hub       *recorder.Hub
	Publisher storage.Publisher

	// Движок проверок
	Telemetry *telemetry.Telemetry
	Validator *validator.Validator
	Prober    *prober.Prober
	Recorder  *recorder.Recorder
	Failsafe  *scheduler.Failsafe
	Scheduler *scheduler.Scheduler

	// Services
	MonitorService     *services.MonitorService
	SLOService         *services.SLOService
	MaintenanceService *services.MaintenanceService
	IncidentService    *services.IncidentService
	MetricsService     *services.MetricsService
	EngineService      *services.EngineService
}

// NewContainer создает и инициализирует контейнер зависимостей
func NewContainer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Container, error) {
	container := &Container{
		Config: cfg,
		Logger: log,
	}

	if err := container.initStorage(ctx); err != nil {
		return nil, err
	}

	if err := container.initPublishers(); err != nil {
		container.Close()
		return nil, err
	}

	container.initEngine()
	container.initServices()

	log.Info("Dependency container initialized successfully",
		"storage", cfg.Storage.Driver,
		"redis", cfg.Redis.Enabled,
		"failsafe", cfg.Failsafe.Enabled,
	)
	return container, nil
}

func (c *Container) initStorage(ctx context.Context) error {
	if c.Config.Storage.Driver != "postgres" {
		c.Store = storage.NewMemoryStore()
		c.Logger.Warn("using in-memory storage, data is lost on restart")
		return nil
	}

	db, err := storage.NewPostgres(ctx, &c.Config.Database, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	c.DB = db
	c.Store = storage.NewPostgresStore(db)
	return nil
}

func (c *Container) initPublishers() error {
	c.Hub = recorder.NewHub(c.Logger.With("component", "hub"))

	if !c.Config.Redis.Enabled {
		return nil
	}

	publisher, err := storage.NewRedisPublisher(&c.Config.Redis, c.Logger.With("component", "redis"))
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.Publisher = publisher
	return nil
}

func (c *Container) initEngine() {
	cfg := c.Config

	c.Telemetry = telemetry.New()

	c.Validator = NewTargetValidator(&cfg.Validator, c.Telemetry, c.Logger.With("component", "validator"))

	c.Prober = prober.New(
		prober.Config{
			DefaultTimeout: cfg.Scheduler.DefaultTimeout,
			MaxBodyBytes:   cfg.Scheduler.MaxBodyBytes,
			UserAgent:      cfg.Scheduler.UserAgent,
			DialGuard:      cfg.Validator.DialGuard,
		},
		c.Validator,
		c.Logger.With("component", "prober"),
	)

	publishers := []recorder.TransitionPublisher{
		recorder.NewLogPublisher(c.Logger.With("component", "transitions")),
		c.Hub,
	}
	if c.Publisher != nil {
		publishers = append(publishers, c.Publisher)
	}
	c.Recorder = recorder.New(c.Store, c.Logger.With("component", "recorder"), publishers...)

	c.Failsafe = scheduler.NewFailsafe(
		scheduler.FailsafeConfig{
			TriggerPercent: cfg.Failsafe.TriggerPercent,
			RequiredCycles: cfg.Failsafe.ConsecutiveCycles,
			MinMonitors:    cfg.Failsafe.MinMonitors,
		},
		c.Telemetry,
		c.Logger.With("component", "failsafe"),
	)

	// Выключенный failsafe не передается в планировщик и никогда не срабатывает
	var failsafe *scheduler.Failsafe
	if cfg.Failsafe.Enabled {
		failsafe = c.Failsafe
	}

	c.Scheduler = scheduler.New(
		scheduler.Config{
			TickInterval:   cfg.Scheduler.Tick,
			MaxInFlight:    cfg.Scheduler.MaxInFlight,
			PersistTimeout: cfg.Scheduler.PersistTimeout,
		},
		c.Store,
		c.Prober,
		c.Recorder,
		c.Telemetry,
		failsafe,
		c.Logger.With("component", "scheduler"),
	)
}

// NewTargetValidator проверка целей с резолвером из настроек: свой DNS сервер
// через miekg/dns или системный резолвер
func NewTargetValidator(cfg *config.ValidatorConfig, counter validator.BlockCounter, logger *slog.Logger) *validator.Validator {
	var resolver validator.Resolver = validator.NewSystemResolver()
	if cfg.DNSServer != "" {
		resolver = validator.NewDNSResolver(cfg.DNSServer, cfg.DNSTimeout)
	}

	return validator.New(
		validator.Config{
			CacheTTL:         cfg.CacheTTL,
			RequireHostname:  cfg.RequireHostname,
			BlockedHostnames: cfg.BlockedHostnames,
		},
		resolver,
		counter,
		logger,
	)
}

func (c *Container) initServices() {
	cfg := c.Config
	logger := c.Logger

	sloCfg := services.SLOServiceConfig{
		DefaultTarget:     cfg.SLO.DefaultTarget,
		MinTarget:         cfg.SLO.MinTarget,
		MaxTarget:         cfg.SLO.MaxTarget,
		DefaultWindowDays: cfg.SLO.DefaultWindowDays,
		MaxWindowDays:     cfg.SLO.MaxWindowDays,
	}

	engine := slo.NewEngine(slo.Thresholds{
		Warn:     cfg.SLO.WarnBurnRate,
		High:     cfg.SLO.HighBurnRate,
		Critical: cfg.SLO.CriticalBurnRate,
	})

	c.MonitorService = services.NewMonitorService(
		c.Store,
		c.Validator,
		sloCfg,
		logger.With("service", "monitor"),
	)

	c.SLOService = services.NewSLOService(
		c.Store,
		engine,
		sloCfg,
		logger.With("service", "slo"),
	)

	c.MaintenanceService = services.NewMaintenanceService(
		c.Store,
		maintenance.Policy{
			MinDuration: cfg.Maintenance.MinDuration,
			MaxDuration: cfg.Maintenance.MaxDuration,
			MaxLeadTime: cfg.Maintenance.MaxLeadTime,
			PastGrace:   cfg.Maintenance.PastGrace,
		},
		services.TrustAllDomains{},
		logger.With("service", "maintenance"),
	)

	c.IncidentService = services.NewIncidentService(
		c.Store,
		incidents.NewAggregator(cfg.Incidents.DailyThreshold),
		services.IncidentServiceConfig{
			DefaultLookbackDays: cfg.Incidents.DefaultLookbackDays,
			MaxLookbackDays:     cfg.Incidents.MaxLookbackDays,
			DefaultLimit:        cfg.Incidents.DefaultLimit,
			MaxLimit:            cfg.Incidents.MaxLimit,
		},
		logger.With("service", "incidents"),
	)

	c.MetricsService = services.NewMetricsService(
		c.Store,
		c.SLOService,
		c.IncidentService,
		logger.With("service", "metrics"),
	)

	c.EngineService = services.NewEngineService(
		c.Telemetry,
		c.Failsafe,
		c.Validator,
		logger.With("service", "engine"),
	)
}

// SeedMonitors создает мониторы из файла seed.monitors_file, если он задан
func (c *Container) SeedMonitors(ctx context.Context) error {
	path := c.Config.Seed.MonitorsFile
	if path == "" {
		return nil
	}

	seeds, err := config.LoadSeedMonitors(path)
	if err != nil {
		return fmt.Errorf("failed to load seed monitors: %w", err)
	}

	created, err := c.MonitorService.SeedMonitors(ctx, seeds)
	if err != nil {
		return fmt.Errorf("failed to seed monitors: %w", err)
	}

	c.Logger.Info("seed monitors loaded", "file", path, "total", len(seeds), "created", created)
	return nil
}

// Ping проверяет доступность хранилища
func (c *Container) Ping(ctx context.Context) error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Ping(ctx)
}

// Close закрывает все соединения
func (c *Container) Close() error {
	var errs []error

	if c.Hub != nil {
		if err := c.Hub.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.DB != nil {
		c.DB.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %w", errors.Join(errs...))
	}

	return nil
}
