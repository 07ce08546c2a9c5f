package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gitlab.com/judge-relay.net/internal/adapter/crypto"
	"gitlab.com/judge-relay.net/internal/adapter/httpexec"
	"gitlab.com/judge-relay.net/internal/adapter/logging"
	"gitlab.com/judge-relay.net/internal/adapter/memory"
	"gitlab.com/judge-relay.net/internal/adapter/postgres/ownerrepository"
	"gitlab.com/judge-relay.net/internal/adapter/postgres/problemrepository"
	"gitlab.com/judge-relay.net/internal/adapter/postgres/submissionrepository"
	"gitlab.com/judge-relay.net/internal/adapter/redis/ephemeralstore"
	"gitlab.com/judge-relay.net/internal/adapter/redis/taskqueue"
	"gitlab.com/judge-relay.net/internal/adapter/redis/workerport"
	"gitlab.com/judge-relay.net/internal/config"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/core/services/callback"
	"gitlab.com/judge-relay.net/internal/core/services/dispatch"
	"gitlab.com/judge-relay.net/internal/core/services/encoder"
	"gitlab.com/judge-relay.net/internal/core/services/hub"
	"gitlab.com/judge-relay.net/internal/core/services/polling"
	"gitlab.com/judge-relay.net/internal/core/services/reconcile"
	"gitlab.com/judge-relay.net/internal/core/services/standing"
	"gitlab.com/judge-relay.net/internal/core/services/submission"
	"gitlab.com/judge-relay.net/internal/core/services/worker"
	"gitlab.com/judge-relay.net/internal/domain"
	http2 "gitlab.com/judge-relay.net/internal/http"
	"gitlab.com/judge-relay.net/internal/metrics"
	"gitlab.com/judge-relay.net/internal/schedulerengine"
	"gitlab.com/judge-relay.net/internal/tcp"
)

// storage is the set of ledger ports backed by one store
type storage struct {
	submissions secondary.SubmissionRepository
	ledger      secondary.LedgerStore
	problems    secondary.ProblemRepository
	owners      secondary.OwnerRepository
	close       func() error
}

func main() {
	InitReader()
	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sysCfg := config.NewSystemConfig()
	logger := logging.NewZapLogger(sysCfg.DebugMode)
	defer logger.Sync()
	logger.Info("Starting judge relay", "dispatchBackend", sysCfg.DispatchConfig.Backend, "ownerMode", sysCfg.SubmissionConfig.OwnerKind)

	ctxBg, stopAll := context.WithCancel(context.Background())
	defer stopAll()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store, err := setupStorage(sysCfg, logger)
	if err != nil {
		logger.Error("Failed to set up database", "error", err)
		os.Exit(1)
	}
	defer store.close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     sysCfg.RedisConfig.Url,
		Password: sysCfg.RedisConfig.Password,
		DB:       sysCfg.RedisConfig.DB,
	})
	defer redisClient.Close()
	redisUp := redisClient.Ping(ctxBg).Err() == nil
	if !redisUp && !sysCfg.DebugMode {
		logger.Error("Redis is unreachable", "addr", sysCfg.RedisConfig.Url)
		os.Exit(1)
	}

	// SECONDARY PORTS
	var ephemeral secondary.EphemeralResultStore
	if redisUp {
		ephemeral = ephemeralstore.NewStore(redisClient, sysCfg.EphemeralConfig.TTL, logger)
	} else {
		logger.Warn("Redis unavailable, run results are kept in memory")
		ephemeral = memory.NewEphemeralStore(sysCfg.EphemeralConfig.TTL, time.Now)
	}

	//services
	liveHub := hub.NewHub(logger, m)
	reconciler := reconcile.NewReconciler(store.ledger, logger, m)
	callbackSvc := callback.NewCallbackService(reconciler, ephemeral, liveHub, logger)
	pollingGateway := polling.NewPollingGateway(store.submissions, ephemeral, logger)
	standingSvc := standing.NewStandingService(store.owners, store.problems, store.submissions, sysCfg.SubmissionConfig.OwnerKind, logger)

	var workerService worker.IWorkerRegistrationService
	var tcpServer *tcp.TCPServer
	if redisUp {
		workerService = worker.NewWorkerRegistrationService(workerport.NewWorkerRepository(redisClient, logger), logger)
		tcpServer = tcp.NewTCPServer(workerService, callbackSvc, logger, tcp.WithAddress(sysCfg.ServerConfig.TcpAddr))
	}

	backend, err := selectBackend(sysCfg.DispatchConfig, redisClient, redisUp, tcpServer, logger)
	if err != nil {
		logger.Error("Failed to set up dispatch backend", "error", err)
		os.Exit(1)
	}
	dispatcher := dispatch.NewDispatcher(backend, sysCfg.DispatchConfig.Timeout, logger, m)
	submissionSvc := submission.NewSubmissionService(
		store.submissions,
		store.problems,
		ephemeral,
		encoder.NewEncoder(),
		dispatcher,
		sysCfg.SubmissionConfig,
		logger,
	)

	//primary ports
	jwtProvider := crypto.NewJWTService(sysCfg.JwtConfig)
	serviceProvider := http2.NewServiceProvider(
		submissionSvc,
		callbackSvc,
		pollingGateway,
		standingSvc,
		workerService,
		liveHub,
		jwtProvider,
	)

	//server
	httpServer := http2.NewServer(sysCfg.ServerConfig.HttpPort, "judge-relay", *serviceProvider, sysCfg.WebhookConfig.Secret, registry, logger)
	if err := httpServer.Init(); err != nil {
		logger.Error("Failed to initialise http server", "error", err)
		os.Exit(1)
	}
	httpServer.Start(ctxBg)
	if tcpServer != nil {
		if err := tcpServer.Start(); err != nil {
			logger.Error("Failed to start tcp server", "error", err)
			os.Exit(1)
		}
	}

	engine := schedulerengine.NewSchedulerEngine(sysCfg.MaintenanceCfg, store.submissions, workerService, m, logger)
	engine.Start(ctxBg)

	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Stop(ctx); err != nil {
		logger.Error("Http server forced to shutdown", "error", err)
	}
	if tcpServer != nil {
		if err := tcpServer.Stop(ctx); err != nil {
			logger.Error("Tcp server forced to shutdown", "error", err)
		}
	}
	liveHub.Close()
	stopAll()
	engine.Wait()

	logger.Info("successfully shutdown server")
}

func setupStorage(cfg *config.AppConfig, logger *logging.ZapLogger) (*storage, error) {
	if cfg.DebugMode && cfg.PostgresConfig.Url == "memory" {
		logger.Warn("Using in-memory ledger with demo data")
		ledger := memory.NewLedger()
		seedDemoLedger(ledger, time.Now())
		return &storage{
			submissions: ledger,
			ledger:      ledger,
			problems:    ledger,
			owners:      ledger,
			close:       func() error { return nil },
		}, nil
	}

	db, err := setupDatabase(cfg.PostgresConfig.Url)
	if err != nil {
		return nil, err
	}
	submissions := submissionrepository.NewSubmissionRepository(db, logger.With("repo", "submissions"), cfg.PostgresConfig.Schema)
	return &storage{
		submissions: submissions,
		ledger:      submissions,
		problems:    problemrepository.NewProblemRepository(db, logger.With("repo", "problems"), cfg.PostgresConfig.Schema),
		owners:      ownerrepository.NewOwnerRepository(db, logger.With("repo", "owners"), cfg.PostgresConfig.Schema),
		close:       db.Close,
	}, nil
}

// seedDemoLedger opens one event with a single problem and one owner of each
// kind, enough to exercise the pipeline locally.
func seedDemoLedger(ledger *memory.Ledger, now time.Time) {
	start, end := now.Add(-time.Hour), now.Add(24*time.Hour)
	ledger.PutEvent(domain.Event{ID: 1, Name: "local", StartAt: &start, EndAt: &end})
	ledger.PutProblem(domain.Problem{ID: 1, EventID: 1, Title: "A + B", Points: 100})
	ledger.PutOwner(domain.OwnerAggregate{Kind: domain.OwnerKindTeam, ID: 1, EventID: 1, Name: "local team"})
	ledger.PutOwner(domain.OwnerAggregate{Kind: domain.OwnerKindUser, ID: 1, EventID: 1, Name: "local user"})
}

// setupDatabase sets up the PostgreSQL connection
func setupDatabase(connStr string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Test the connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func selectBackend(
	cfg *config.DispatchConfig,
	redisClient *redis.Client,
	redisUp bool,
	tcpServer *tcp.TCPServer,
	logger *logging.ZapLogger,
) (secondary.TaskBackend, error) {
	switch cfg.Backend {
	case config.DispatchBackendHTTP:
		return httpexec.NewClient(cfg.ExecutionApiUrl, &http.Client{Timeout: cfg.Timeout}, logger), nil
	case config.DispatchBackendTCP:
		if tcpServer == nil {
			return nil, fmt.Errorf("dispatch backend %s requires redis", cfg.Backend)
		}
		return tcpServer, nil
	default:
		if !redisUp {
			return nil, fmt.Errorf("dispatch backend %s requires redis", cfg.Backend)
		}
		return taskqueue.NewQueue(redisClient, cfg.Queues, logger), nil
	}
}

func InitReader() {
	environment := ""
	if len(os.Args) < 2 {
		log.Fatalf("Env not supplied in argument")
	} else {
		environment = os.Args[1]
	}

	err := godotenv.Load(environment + ".env")
	if err != nil {
		log.Fatalf("Error loading %s.env file", environment)
	}
}
