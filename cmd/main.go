package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/internal/export"
	"github.com/Koyo-os/form-builder/internal/repository"
	"github.com/Koyo-os/form-builder/internal/service"
	"github.com/Koyo-os/form-builder/pkg/closer"
	"github.com/Koyo-os/form-builder/pkg/config"
	"github.com/Koyo-os/form-builder/pkg/health"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/Koyo-os/form-builder/pkg/retrier"
	"github.com/Koyo-os/form-builder/pkg/transport/casher"
	"github.com/Koyo-os/form-builder/pkg/transport/consumer"
	"github.com/Koyo-os/form-builder/pkg/transport/listener"
	"github.com/Koyo-os/form-builder/pkg/transport/publisher"
	"github.com/Koyo-os/form-builder/pkg/transport/rest"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	connectRetries  = 3
	connectInterval = 2 // seconds
	eventBuffer     = 64
)

type store interface {
	service.Repository
	health.Healther
	closer.Closer
}

func main() {
	cfg, err := config.Init(".env", "config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error init config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.Config{
		LogFile:   cfg.LogFile,
		LogLevel:  cfg.LogLevel,
		AppName:   cfg.AppName,
		AddCaller: true,
	}

	if err = logger.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "error init logger: %v\n", err)
		os.Exit(1)
	}

	defer logger.Sync()

	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, cfg, log); err != nil {
		log.Error("service stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	log.Info("service stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	closers := closer.NewCloserGroup()
	defer func() {
		if err := closers.Close(); err != nil {
			log.Error("error release resources", zap.Error(err))
		}
	}()

	checker := health.NewHealthChecker(log.Named("health"))

	formatter, err := export.NewTimeFormatter(cfg.Export.Timezone)
	if err != nil {
		return err
	}

	repo, err := openStore(ctx, cfg, log.Named("repository"))
	if err != nil {
		return fmt.Errorf("error open %s storage: %w", cfg.Storage.Driver, err)
	}

	closers.Add(repo)
	checker.Register("storage", repo)

	cache, err := openCache(ctx, cfg, log.Named("cache"), checker, closers)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var (
		pub    service.Publisher = publisher.Nop{Logger: log.Named("publisher")}
		events chan entity.Event
		cons   *consumer.Consumer
	)

	if cfg.Urls.Rabbitmq != "" {
		var p *publisher.Publisher

		p, cons, err = openBroker(cfg, log)
		if err != nil {
			return err
		}

		pub = p
		events = make(chan entity.Event, eventBuffer)

		closers.Add(p, cons)
		checker.Register("publisher", p).Register("consumer", cons)
	} else {
		log.Warn("RABBITMQ_URL is empty, events are not published")
	}

	svc := service.Init(cache, repo, pub, cfg.RequestTimeout, log.Named("service"), formatter)

	if cons != nil {
		list := listener.Init(events, log.Named("listener"), cfg, svc)

		g.Go(func() error {
			cons.ConsumeMessages(gctx, events)
			return nil
		})
		g.Go(func() error {
			list.Listen(gctx)
			return nil
		})
	}

	g.Go(func() error {
		return rest.Serve(gctx, cfg.HTTPAddr, rest.NewRouter(rest.NewHandler(svc, log.Named("http"))), log)
	})
	g.Go(func() error {
		return checker.Serve(gctx, cfg.HealthAddr)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn("using in-memory storage, forms are lost on restart")
		return repository.NewMemory(), nil

	case "sqlite", "mysql":
		db, err := retrier.Connect(connectRetries, connectInterval, func() (*gorm.DB, error) {
			return repository.OpenGorm(cfg.Storage.Driver, cfg.Storage.DSN)
		})
		if err != nil {
			return nil, err
		}

		repo := repository.Init(db, log)
		if err = repo.Migrate(); err != nil {
			repo.Close()
			return nil, fmt.Errorf("error migrate: %w", err)
		}

		return repo, nil

	case "mongo":
		client, err := retrier.Connect(connectRetries, connectInterval, func() (*mongo.Client, error) {
			cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			return repository.ConnectMongo(cctx, cfg.Storage.DSN)
		})
		if err != nil {
			return nil, err
		}

		return repository.NewMongo(client, cfg.Storage.MongoDatabase, log), nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func openCache(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	checker *health.HealthChecker,
	closers *closer.CloserGroup,
) (service.Casher, error) {
	if cfg.Urls.Redis == "" {
		log.Warn("REDIS_URL is empty, caching disabled")
		return casher.Nop{}, nil
	}

	client, err := retrier.Connect(connectRetries, connectInterval, func() (*redis.Client, error) {
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		return casher.Connect(cctx, cfg.Urls.Redis)
	})
	if err != nil {
		return nil, fmt.Errorf("error connect redis: %w", err)
	}

	c := casher.Init(client, cfg.Cache.TTL, log)

	closers.Add(c)
	checker.Register("cache", c)

	return c, nil
}

// openBroker dials one connection for publishing and one for consuming
func openBroker(cfg *config.Config, log *logger.Logger) (*publisher.Publisher, *consumer.Consumer, error) {
	conns, err := retrier.MultiConnects(2, func() (*amqp.Connection, error) {
		return amqp.Dial(cfg.Urls.Rabbitmq)
	}, &retrier.RetrierOpts{
		Count:    connectRetries,
		Interval: connectInterval,
	}, func(conn *amqp.Connection) {
		conn.Close()
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error connect rabbitmq: %w", err)
	}

	pub, err := publisher.Init(cfg, log.Named("publisher"), conns[0])
	if err != nil {
		conns[1].Close()
		return nil, nil, err
	}

	cons, err := consumer.Init(cfg, log.Named("consumer"), conns[1])
	if err != nil {
		pub.Close()
		conns[1].Close()
		return nil, nil, err
	}

	for _, reqType := range []string{
		cfg.Reqs.SaveRequestType,
		cfg.Reqs.SubmitRequestType,
		cfg.Reqs.DeleteFormRequestType,
	} {
		if err = cons.Subscribe(cfg.Exchange.Request, reqType, cfg.Queue.Request); err != nil {
			pub.Close()
			cons.Close()
			return nil, nil, err
		}
	}

	return pub, cons, nil
}
