package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	freighthttp "freight/internal/adapters/in/http"
	"freight/internal/adapters/out/callable"
	"freight/internal/adapters/out/kafka"
	"freight/internal/adapters/out/postgres/shipmentrepo"
	"freight/internal/adapters/out/rabbitmq"
	"freight/internal/adapters/out/sqlite/shipmentstore"
	"freight/internal/core/application/documents"
	"freight/internal/core/application/usecases/commands"
	"freight/internal/core/application/usecases/queries"
	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/services"
	"freight/internal/core/ports"
	"freight/internal/jobs"

	"github.com/labstack/echo/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// CompositionRoot owns the store and the outbound adapters and builds the
// handlers on top of them.
type CompositionRoot struct {
	cfg    Config
	logger *slog.Logger

	store   ports.DraftStore
	gormDB  *gorm.DB
	closers []io.Closer

	generator ports.DocumentGenerator
	publisher ports.EventPublisher
	notifier  ports.Notifier
}

// NewCompositionRoot opens the configured store. Outbound adapters are
// connected separately by ConnectAdapters.
func NewCompositionRoot(cfg Config, logger *slog.Logger) (*CompositionRoot, error) {
	c := &CompositionRoot{cfg: cfg, logger: logger}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		c.gormDB = db
		c.store = shipmentrepo.NewGormShipmentRepository(db)
		c.closers = append(c.closers, sqlDB)
	case StoreDriverSQLite:
		store, err := shipmentstore.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		c.store = store
		c.closers = append(c.closers, store)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	return c, nil
}

// Migrate brings the store schema up to date. The SQLite store migrates
// itself when it is opened.
func (c *CompositionRoot) Migrate() error {
	if c.gormDB == nil {
		return nil
	}
	return shipmentrepo.Migrate(c.gormDB)
}

// ConnectAdapters builds the document client and, when configured, the Kafka
// publisher and the RabbitMQ notifier.
func (c *CompositionRoot) ConnectAdapters() error {
	client, err := callable.NewClient(c.cfg.CallableBaseURL, c.cfg.CallableTimeout)
	if err != nil {
		return fmt.Errorf("document client: %w", err)
	}
	c.generator = client

	if c.cfg.KafkaHost != "" {
		publisher := kafka.NewPublisher(c.cfg.KafkaHost, c.cfg.KafkaShipmentEventsTopic, c.logger)
		c.publisher = publisher
		c.closers = append(c.closers, publisher)
	} else {
		c.logger.Warn("KAFKA_HOST not set, shipment events are not published")
	}

	if c.cfg.RabbitMQURL != "" {
		notifier, err := rabbitmq.Dial(c.cfg.RabbitMQURL, c.cfg.RabbitMQNotificationQueue, c.logger)
		if err != nil {
			return fmt.Errorf("notification queue: %w", err)
		}
		c.notifier = notifier
		c.closers = append(c.closers, notifier)
	} else {
		c.logger.Warn("RABBITMQ_URL not set, booking confirmations are not requested")
	}
	return nil
}

func (c *CompositionRoot) CreateAllocateShipmentIDCommandHandler() commands.AllocateShipmentIDCommandHandler {
	return commands.NewAllocateShipmentIDCommandHandler(c.store, kernel.RandomSymbol, c.logger)
}

func (c *CompositionRoot) CreateSaveDraftCommandHandler() commands.SaveDraftCommandHandler {
	return commands.NewSaveDraftCommandHandler(c.store, c.publisher, c.logger)
}

func (c *CompositionRoot) CreateBookShipmentCommandHandler() commands.BookShipmentCommandHandler {
	return commands.NewBookShipmentCommandHandler(
		c.store,
		services.NewBookingValidator(),
		c.CreateAllocateShipmentIDCommandHandler(),
		c.createPipeline(),
		c.publisher,
		c.notifier,
		c.logger,
	)
}

func (c *CompositionRoot) CreateRetryDocumentsCommandHandler() commands.RetryDocumentsCommandHandler {
	return commands.NewRetryDocumentsCommandHandler(c.store, c.createPipeline(), c.publisher, c.logger)
}

func (c *CompositionRoot) CreateGetShipmentQueryHandler() queries.GetShipmentQueryHandler {
	return queries.NewGetShipmentQueryHandler(c.store)
}

func (c *CompositionRoot) CreateListDraftsQueryHandler() queries.ListDraftsQueryHandler {
	return queries.NewListDraftsQueryHandler(c.store)
}

func (c *CompositionRoot) CreateDocumentRetryJob() *jobs.DocumentRetryJob {
	return jobs.NewDocumentRetryJob(c.store, c.CreateRetryDocumentsCommandHandler(), jobs.DocumentRetryConfig{
		Schedule:    c.cfg.DocumentRetrySchedule,
		MaxAttempts: c.cfg.DocumentRetryMaxAttempts,
		Batch:       c.cfg.DocumentRetryBatch,
	}, c.logger)
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(c.CreateDocumentRetryJob())
}

func (c *CompositionRoot) CreateWebServer(ctx context.Context) (*echo.Echo, error) {
	doc, err := freighthttp.LoadOpenAPI(ctx)
	if err != nil {
		return nil, err
	}
	server := freighthttp.NewServer(freighthttp.Handlers{
		Allocate:   c.CreateAllocateShipmentIDCommandHandler(),
		SaveDraft:  c.CreateSaveDraftCommandHandler(),
		Book:       c.CreateBookShipmentCommandHandler(),
		Retry:      c.CreateRetryDocumentsCommandHandler(),
		Get:        c.CreateGetShipmentQueryHandler(),
		ListDrafts: c.CreateListDraftsQueryHandler(),
		Validator:  services.NewBookingValidator(),
	}, c.logger)
	return freighthttp.NewRouter(server, doc, c.logger)
}

// Close releases adapters and the store in reverse order of creation.
func (c *CompositionRoot) Close() error {
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, c.closers[i].Close())
	}
	c.closers = nil
	return err
}

func (c *CompositionRoot) createPipeline() *documents.Pipeline {
	return documents.NewPipeline(c.generator, c.logger)
}
