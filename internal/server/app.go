// Package server wires the credeval components together and runs the gRPC
// API, the HTTP API and the ingestion worker until the process is stopped.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/dmitrijs2005/credeval/internal/server/config"
	"github.com/dmitrijs2005/credeval/internal/server/httpapi"
	"github.com/dmitrijs2005/credeval/internal/server/ingest"
	"github.com/dmitrijs2005/credeval/internal/server/ledger"
	"github.com/dmitrijs2005/credeval/internal/server/lifecycle"
	"github.com/dmitrijs2005/credeval/internal/server/queue"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/credeval/internal/server/rules"
	"github.com/dmitrijs2005/credeval/internal/server/services"
	"github.com/dmitrijs2005/credeval/internal/server/timeline"
	"github.com/go-redis/redis/v8"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/credeval/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       *redis.Client
	broker      *queue.RabbitMQ
	local       *queue.Local
	ingestor    *ingest.Ingestor
	evaluations *services.EvaluationService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	app := &App{
		config: c,
		logger: logging.NewJSONLogger(os.Stdout, c.LogLevel),
	}
	if err := app.init(ctx); err != nil {
		return nil, multierr.Append(err, app.close())
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	cache, err := app.ruleCache(ctx)
	if err != nil {
		return err
	}
	resolver := rules.NewResolver(db, m, cache, app.logger)
	if c.CountrySeedFile != "" {
		f, err := rules.ReadSeedFile(c.CountrySeedFile)
		if err != nil {
			return err
		}
		n, err := resolver.Seed(ctx, f)
		if err != nil {
			return fmt.Errorf("seed countries: %w", err)
		}
		app.logger.Info(ctx, "countries seeded", "count", n, "file", c.CountrySeedFile)
	}

	l := ledger.New(db, m, app.logger)
	engine := lifecycle.NewEngine(db, m, l, resolver, app.logger)
	projector := timeline.NewProjector(db, m, l)

	rasterizer, err := ingest.NewPDFRasterizer(c.UnidocLicenseKey)
	if err != nil {
		return fmt.Errorf("pdf backend: %w", err)
	}
	fetcher, err := ingest.NewS3FetcherFromConfig(ctx, c)
	if err != nil {
		return fmt.Errorf("object storage: %w", err)
	}
	app.ingestor = ingest.NewIngestor(db, m, rasterizer, fetcher, c, app.logger)

	publisher, err := app.publisher()
	if err != nil {
		return err
	}

	app.evaluations = services.NewEvaluationService(engine, l, projector, app.ingestor, publisher, resolver, app.logger)
	return nil
}

// ruleCache is Redis-backed when an address is configured, otherwise an
// in-process map.
func (app *App) ruleCache(ctx context.Context) (rules.Cache, error) {
	if app.config.RedisAddr == "" {
		return rules.NewMemoryCache(app.config.RulesCacheTTL), nil
	}
	client := redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	app.redis = client
	return rules.NewRedisCache(client, app.config.RulesCacheTTL, app.logger), nil
}

// publisher dials RabbitMQ when configured. Without a broker, jobs run in
// this process.
func (app *App) publisher() (queue.Publisher, error) {
	if app.config.AMQPURL == "" {
		app.local = queue.NewLocal(queue.IngestHandler(app.ingestor), app.logger)
		return app.local, nil
	}
	b, err := queue.Dial(app.config.AMQPURL, app.config.IngestQueue, app.logger)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: %w", err)
	}
	app.broker = b
	return b, nil
}

// Run serves until SIGINT/SIGTERM or until one of the servers fails, then
// releases every resource.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.evaluations, app.config.SecretKey).Run(ctx)
	})
	g.Go(func() error {
		return httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.evaluations, app.config.SecretKey).Run(ctx)
	})
	if app.broker != nil {
		g.Go(func() error {
			return app.broker.Consume(ctx, app.config.IngestWorkers, queue.IngestHandler(app.ingestor))
		})
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
	}
	err = multierr.Append(err, app.close())

	app.logger.Info(context.Background(), "App stopped")
	return err
}

func (app *App) close() error {
	var err error
	if app.local != nil {
		app.local.Wait()
	}
	if app.broker != nil {
		err = multierr.Append(err, app.broker.Close())
	}
	if app.redis != nil {
		err = multierr.Append(err, app.redis.Close())
	}
	if app.db != nil {
		err = multierr.Append(err, app.db.Close())
	}
	return err
}
