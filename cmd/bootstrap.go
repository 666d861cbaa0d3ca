// Package cmd is the composition root: the single place where ports meet
// adapters. It binds the handler registry to concrete dependencies through
// the injector and assembles the message bus; nothing outside this package
// constructs a unit of work or a transport client.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	httpserver "allocation/internal/adapters/in/http"
	"allocation/internal/adapters/out/notifications"
	postgres_adapter "allocation/internal/adapters/out/postgres"
	"allocation/internal/adapters/out/postgres/eventlog"
	"allocation/internal/adapters/out/redispub"
	"allocation/internal/core/application/inject"
	"allocation/internal/core/application/messagebus"
	"allocation/internal/core/application/registry"
	"allocation/internal/core/application/usecases/queries"
	"allocation/internal/core/ports"
	"allocation/internal/jobs"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// migrateOnce guards schema migration: bootstrapping twice in one process
// migrates once, the second call is a no-op.
var migrateOnce sync.Once

type settings struct {
	uowFactory    ports.UnitOfWorkFactory
	notifications ports.NotificationSender
	publisher     ports.EventPublisher
	logger        *logrus.Logger
	queueCap      int
	migrate       bool
}

// Option customizes the bootstrap wiring. The set is closed: an option
// that does not exist cannot be passed, so there is no "unrecognized
// option" failure mode.
type Option func(*settings)

// WithUnitOfWorkFactory substitutes the persistence layer, e.g. the
// in-memory fake in tests. The bus creates a fresh unit of work from the
// factory for every invocation.
func WithUnitOfWorkFactory(factory ports.UnitOfWorkFactory) Option {
	return func(s *settings) { s.uowFactory = factory }
}

// WithNotifications substitutes the notification sender.
func WithNotifications(sender ports.NotificationSender) Option {
	return func(s *settings) { s.notifications = sender }
}

// WithPublisher substitutes the external event publisher.
func WithPublisher(publisher ports.EventPublisher) Option {
	return func(s *settings) { s.publisher = publisher }
}

// WithPersistenceMappings controls whether bootstrap runs schema migration
// against the database. Defaults to true; only the first migrating
// bootstrap in a process actually migrates.
func WithPersistenceMappings(migrate bool) Option {
	return func(s *settings) { s.migrate = migrate }
}

// WithLogger sets the bus logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithQueueCap overrides the bus queue cap.
func WithQueueCap(queueCap int) Option {
	return func(s *settings) { s.queueCap = queueCap }
}

// CompositionRoot holds the assembled application: the message bus plus the
// handles the outer layers need (HTTP server, scheduled jobs).
type CompositionRoot struct {
	config     Config
	db         *gorm.DB
	uowFactory ports.UnitOfWorkFactory
	bus        *messagebus.MessageBus
}

// NewCompositionRoot assembles the application for the given config. Every
// dependency not substituted by an option is built production-style:
// Postgres unit of work, Redis publisher, SMTP notifications.
func NewCompositionRoot(config Config, opts ...Option) (*CompositionRoot, error) {
	s := settings{migrate: true}
	for _, opt := range opts {
		opt(&s)
	}

	root := &CompositionRoot{config: config}

	if s.uowFactory == nil {
		db, err := gorm.Open(gorm_postgres.Open(config.postgresDSN()), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: open database: %w", err)
		}

		if s.migrate {
			var migrateErr error
			migrateOnce.Do(func() {
				migrateErr = postgres_adapter.Migrate(db)
			})
			if migrateErr != nil {
				return nil, fmt.Errorf("bootstrap: migrate schema: %w", migrateErr)
			}
		}

		root.db = db
		s.uowFactory = postgres_adapter.NewGormUnitOfWorkFactory(db)
	}

	root.uowFactory = s.uowFactory

	if s.publisher == nil {
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		s.publisher = redispub.NewPublisher(client)
	}

	if s.notifications == nil {
		s.notifications = notifications.NewEmailSender(config.SMTPAddr, config.SMTPFrom, nil)
	}

	bus, err := buildBus(s)
	if err != nil {
		return nil, err
	}

	root.bus = bus
	return root, nil
}

// Bootstrap assembles a message bus. The zero-arg call reads the
// environment and produces the fully production-wired bus; options
// substitute individual dependencies.
func Bootstrap(opts ...Option) (*messagebus.MessageBus, error) {
	root, err := NewCompositionRoot(configFromEnv(), opts...)
	if err != nil {
		return nil, err
	}
	return root.Bus(), nil
}

// Bus returns the assembled message bus.
func (c *CompositionRoot) Bus() *messagebus.MessageBus {
	return c.bus
}

// CreateGetAllocationsQueryHandler creates the read-side query handler over
// the assembled view store.
func (c *CompositionRoot) CreateGetAllocationsQueryHandler() queries.GetAllocationsQueryHandler {
	return queries.NewGetAllocationsQueryHandler(c.uowFactory.Create().AllocationViewRepository())
}

// CreateHTTPServer creates the echo server and registers the API routes.
func (c *CompositionRoot) CreateHTTPServer() *echo.Echo {
	e := echo.New()
	server := httpserver.NewServer(c.bus, c.CreateGetAllocationsQueryHandler())
	server.RegisterRoutes(e)
	return e
}

// CreateJobManager creates the scheduled-job manager. Jobs replay the
// Postgres event log, so they are only available with the production
// persistence wiring.
func (c *CompositionRoot) CreateJobManager(logger *slog.Logger) (*jobs.JobManager, error) {
	if c.db == nil {
		return nil, errors.New("bootstrap: scheduled jobs require the postgres wiring")
	}

	return jobs.NewJobManager(
		eventlog.NewGormEventLog(c.db),
		c.uowFactory.Create().AllocationViewRepository(),
		c.config.RebuildSchedule,
		logger,
	), nil
}

// buildBus constructs the bus over a binder that rebinds the registry
// against each invocation's fresh unit of work. The binder is run once
// here, so a handler whose dependencies cannot be resolved fails at
// assembly time, not on first dispatch.
func buildBus(s settings) (*messagebus.MessageBus, error) {
	bind := newBinder(s.notifications, s.publisher)

	if _, err := bind(s.uowFactory.Create()); err != nil {
		return nil, err
	}

	return messagebus.New(s.uowFactory, bind, s.logger, s.queueCap), nil
}

// newBinder closes over the invocation-independent dependencies and binds
// every registry handler to them plus the given unit of work.
func newBinder(sender ports.NotificationSender, publisher ports.EventPublisher) messagebus.Binder {
	return func(uow ports.UnitOfWork) (messagebus.HandlerTables, error) {
		deps := inject.Dependencies{
			"uow":           uow,
			"notifications": sender,
			"publish":       publisher,
		}

		tables := messagebus.HandlerTables{
			Commands: make(map[string]inject.BoundHandler),
			Events:   make(map[string][]inject.BoundHandler),
		}

		for name, handler := range registry.Commands() {
			bound, err := inject.Bind(handler, deps)
			if err != nil {
				return messagebus.HandlerTables{}, fmt.Errorf("bootstrap: bind command %s: %w", name, err)
			}
			tables.Commands[name] = bound
		}

		for name, handlers := range registry.Events() {
			bound := make([]inject.BoundHandler, 0, len(handlers))
			for _, handler := range handlers {
				h, err := inject.Bind(handler, deps)
				if err != nil {
					return messagebus.HandlerTables{}, fmt.Errorf("bootstrap: bind event %s handler: %w", name, err)
				}
				bound = append(bound, h)
			}
			tables.Events[name] = bound
		}

		return tables, nil
	}
}

func configFromEnv() Config {
	return Config{
		HTTPPort:        os.Getenv("HTTP_PORT"),
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          os.Getenv("DB_PORT"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          os.Getenv("DB_NAME"),
		DBSslMode:       os.Getenv("DB_SSLMODE"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		SMTPAddr:        os.Getenv("SMTP_ADDR"),
		SMTPFrom:        os.Getenv("SMTP_FROM"),
		RebuildSchedule: os.Getenv("REBUILD_SCHEDULE"),
	}
}
