package container

import (
	"context"
	"fmt"
	"log"

	"sheetview/adapters/blob"
	"sheetview/adapters/memstore"
	"sheetview/adapters/spreadsheet"
	"sheetview/adapters/sqlstore"
	"sheetview/internal"
	"sheetview/internal/config"
	"sheetview/internal/header"
	"sheetview/internal/session"
	"sheetview/internal/window"
	"sheetview/internal/worker"
	"sheetview/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB    *sqlx.DB
	Store ports.RecordStore

	Worker  *worker.Worker
	Session *session.Session
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{Config: cfg}, nil
}

// Init opens the configured store, starts the worker and builds the session.
// The worker stops when ctx is cancelled.
func (c *Container) Init(ctx context.Context) error {
	store, err := c.openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", c.Config.Store.Backend, err)
	}
	c.Store = store

	logger := internal.NewLogger(internal.ParseLogLevel(c.Config.Logging.Level), "Detector")
	c.Worker = worker.Start(ctx, c.Pipeline(), worker.Options{
		OnLog: func(m worker.LogMessage) {
			logger.Debug("%s: %s", m.RequestID, m.Message)
		},
	})

	c.Session = session.New(c.Worker, c.Store, session.Options{
		Window: window.Options{
			EstimateSize: c.Config.Viewing.RowHeight,
			Overscan:     c.Config.Viewing.Overscan,
		},
	})

	log.Printf("Container initialized with %s store", c.Config.Store.Backend)
	return nil
}

// Pipeline returns the decode pipeline tuned by the ingest settings
func (c *Container) Pipeline() *worker.Pipeline {
	opts := header.DefaultOptions()
	opts.SearchDepth = c.Config.Ingest.HeaderSearchDepth
	return &worker.Pipeline{Reader: spreadsheet.NewReader(), Detector: opts}
}

func (c *Container) openStore(ctx context.Context) (ports.RecordStore, error) {
	cfg := c.Config
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return memstore.New(), nil

	case config.BackendFile:
		local, err := blob.NewLocalBlobStore(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return blob.NewSnapshotStore(local), nil

	case config.BackendPostgres, config.BackendSQLite:
		driver := sqlstore.DriverPostgres
		if cfg.Store.Backend == config.BackendSQLite {
			driver = sqlstore.DriverSQLite
		}
		db, err := sqlstore.Open(ctx, driver, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		c.DB = db
		return sqlstore.NewStore(db), nil

	case config.BackendMinio:
		client, err := blob.NewMinioClient(blob.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		objects, err := blob.NewMinioBlobStore(ctx, client, cfg.Minio.Bucket, cfg.Minio.Prefix)
		if err != nil {
			return nil, err
		}
		return blob.NewSnapshotStore(objects), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// Close stops the worker and releases the database
func (c *Container) Close() error {
	if c.Worker != nil {
		c.Worker.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
