package main

import (
	"context"
	"expvar"
	"log"
	"runtime"
	"time"

	"github.com/google/uuid"
	_ "github.com/hilthontt/duet/docs"
	"github.com/hilthontt/duet/internal/application/usecases/connection"
	"github.com/hilthontt/duet/internal/application/usecases/entry"
	"github.com/hilthontt/duet/internal/application/usecases/room"
	"github.com/hilthontt/duet/internal/domain"
	"github.com/hilthontt/duet/internal/infrastructure/configs"
	"github.com/hilthontt/duet/internal/infrastructure/events"
	"github.com/hilthontt/duet/internal/infrastructure/jobs"
	"github.com/hilthontt/duet/internal/infrastructure/logging"
	"github.com/hilthontt/duet/internal/infrastructure/messaging"
	"github.com/hilthontt/duet/internal/infrastructure/metrics"
	"github.com/hilthontt/duet/internal/infrastructure/password"
	"github.com/hilthontt/duet/internal/infrastructure/pubsub"
	"github.com/hilthontt/duet/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/duet/internal/infrastructure/repository"
	"github.com/hilthontt/duet/internal/infrastructure/tracing"
	"github.com/hilthontt/duet/internal/infrastructure/ws"
	"github.com/hilthontt/duet/internal/persistence/db"
	persistence "github.com/hilthontt/duet/internal/persistence/repository"
	"github.com/hilthontt/duet/internal/presentation/api"
	"github.com/hilthontt/duet/internal/presentation/handler/health"
	"github.com/hilthontt/duet/internal/presentation/handler/rooms"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	serviceName = "duet-api"

	busBuffer = 64
)

var startedAt = time.Now()

//	@title			Duet API
//	@version		1.0
//	@description	Ephemeral, password-gated two-party video rooms.
//	@BasePath		/

func main() {
	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logger.FilePath,
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
		Logger:   cfg.Logger.Logger,
	})
	if err != nil {
		log.Fatal(err)
	}
	logger.Init()

	sh, err := tracing.InitTracer(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
	})
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to initialize the tracer", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(context.Background())

	logger.Info(logging.General, logging.Startup, "configuration loaded", map[logging.ExtraKey]any{
		"path":   configPath,
		"driver": cfg.RoomStore.Driver,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Identifies this replica on the broker so it can skip its own events.
	instanceID := uuid.NewString()
	bus := pubsub.NewBus(busBuffer, logger)

	checks := map[string]health.Check{}

	var (
		roomRepository  domain.RoomRepository
		auditRepository domain.RoomAuditRepository
	)

	switch cfg.RoomStore.Driver {
	case configs.StoreDriverMongo:
		store, err := db.Open(ctx, db.MongoConfig{
			URI:               cfg.Mongo.URI,
			Database:          cfg.Mongo.Database,
			ConnectionTimeout: cfg.Mongo.ConnectionTimeout,
		}, logger)
		if err != nil {
			logger.Fatal(logging.Mongo, logging.Startup, "failed to connect to mongodb", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		defer store.Close(context.Background())

		database := store.Database

		mongoRooms := persistence.NewRoomRepository(database)
		if err := mongoRooms.EnsureIndexes(ctx); err != nil {
			logger.Fatal(logging.Mongo, logging.Startup, "failed to create room indexes", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}

		auditLogs := persistence.NewRoomAuditLogRepository(database)
		if err := auditLogs.EnsureIndexes(ctx); err != nil {
			logger.Fatal(logging.Mongo, logging.Startup, "failed to create audit indexes", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}

		roomRepository = mongoRooms
		auditRepository = auditLogs
		checks["mongodb"] = store.Ping
	default:
		roomRepository = repository.NewRoomRepository()
	}

	publishers := events.Publishers{events.NewLocalPublisher(bus, instanceID)}

	if cfg.RabbitMQ.Enabled {
		rabbitmq, err := messaging.NewRabbitMQ(ctx, cfg.RabbitMQ.URI, logger)
		if err != nil {
			logger.Fatal(logging.RabbitMQ, logging.Startup, "failed to connect to rabbitmq", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		defer rabbitmq.Close()

		publishers = append(publishers, events.NewRoomPublisher(rabbitmq, instanceID))

		roomConsumer := events.NewRoomConsumer(rabbitmq, bus, instanceID, logger)
		go func() {
			if err := roomConsumer.Listen(ctx); err != nil {
				logger.Error(logging.RabbitMQ, logging.Consume, "room consumer stopped", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
		}()
	}

	roomUseCase := room.NewRoomUseCase(
		roomRepository,
		password.NewHasher(),
		publishers,
		auditRepository,
		m,
		logger,
		room.Options{
			TTL:       cfg.Rooms.TTL,
			MaxActive: cfg.Rooms.MaxActive,
		},
	)

	gate, err := entry.NewGate(entry.Options{
		Secret: cfg.Entry.Secret,
		TTL:    cfg.Entry.TokenTTL,
	})
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to create the entry gate", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	machine := connection.NewMachine(roomRepository, m, logger, connection.Options{})

	wsCore := ws.NewCore(ws.NewRoomManager(), bus, gate, machine, m, logger, ws.Options{
		RequireAdmission:     cfg.Relay.RequireAdmission,
		MaxMessageBytes:      cfg.Relay.MaxMessageBytes,
		MaxMessagesPerSecond: cfg.Relay.MaxMessagesPerSecond,
		SendBuffer:           cfg.Relay.SendBuffer,
	})
	machine.SetNotifier(wsCore)
	go wsCore.Run(ctx)

	sweepJob := jobs.NewRoomSweepJob(roomUseCase, logger, cfg.Rooms.SweepInterval)
	go sweepJob.Start(ctx)
	defer sweepJob.Stop()

	var cache ratelimiter.GetterSetter
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = ratelimiter.NewRedis(client, cfg.Redis.Prefix)
		defer cache.Close()

		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}

	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond:  cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:          cfg.RateLimiter.MaxBurst,
		Cache:             cache,
		CacheTTL:          cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:   cfg.RateLimiter.SourceHeaderKey,
		TrustSourceHeader: cfg.HTTP.TrustProxyHeaders,
	})

	attempts := ratelimiter.NewAttemptLimiter(cfg.RateLimiter.AttemptsPerWindow, cfg.RateLimiter.AttemptWindow)
	defer attempts.Close()

	roomHandler := rooms.NewHandler(roomUseCase, gate, machine, attempts, logger)
	healthHandler := health.NewHandler(checks)

	app := api.NewApplication(
		*cfg,
		roomHandler,
		healthHandler,
		wsCore.ServeWS,
		metrics.Handler(reg),
		m,
		logger,
		rl,
	)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("started_at", expvar.Func(func() any {
		return startedAt.Format(time.RFC3339)
	}))

	mux := app.Mount()
	if err := app.Run(otelhttp.NewHandler(mux, serviceName)); err != nil {
		logger.Error(logging.General, logging.Shutdown, "server stopped with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
