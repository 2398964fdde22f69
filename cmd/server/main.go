package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"landledger/internal/access"
	"landledger/internal/escrow"
	escrowmetrics "landledger/internal/escrow/metrics"
	"landledger/internal/events"
	"landledger/internal/events/kafka"
	jwttoken "landledger/internal/jwt_token"
	"landledger/internal/ledger"
	"landledger/internal/platform/config"
	"landledger/internal/platform/httpserver"
	"landledger/internal/platform/logger"
	"landledger/internal/platform/metrics"
	platformredis "landledger/internal/platform/redis"
	"landledger/internal/proof"
	"landledger/internal/registry"
	registrycache "landledger/internal/registry/cache"
	httptransport "landledger/internal/transport/http"
	"landledger/internal/verification"
	id "landledger/pkg/domain"
	"landledger/pkg/platform/sequence"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event pipeline: in-memory store always, Kafka sink when brokers are
	// configured.
	var eventStore events.Store = events.NewInMemoryStore()
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := kafka.New(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer sink.Close()
		eventStore = sink
		log.Info("kafka event sink enabled", "brokers", cfg.KafkaBrokers)
	}
	publisher := events.NewPublisher(eventStore,
		events.WithAsyncBuffer(cfg.EventBufferSize),
		events.WithLogger(log),
	)
	defer publisher.Close()

	// Stores: Postgres for the durable tables when configured, in-memory
	// otherwise.
	var roleStore access.Store = access.NewInMemoryStore()
	var parcelStore registry.Store = registry.NewInMemoryStore()
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		roleStore = access.NewPostgres(db)
		parcelStore = registry.NewPostgres(db)
		log.Info("postgres stores enabled")
	}

	roles := access.NewService(roleStore, publisher)
	if err := roles.Bootstrap(ctx, id.Account(cfg.OperatorAccount)); err != nil {
		return err
	}

	verificationSvc := verification.NewService(verification.NewInMemoryStore(), roleStore, sequence.New(), publisher)
	proofSvc := proof.NewService(proof.NewInMemoryStore(), roleStore, publisher)
	ledgerSvc := ledger.NewService(ledger.NewInMemoryStore(), roleStore, sequence.New(), publisher)

	funds := escrow.NewInMemoryFunds()
	escrowSvc := escrow.NewService(
		escrow.NewInMemoryStore(), funds, ledgerSvc, roleStore, sequence.New(), publisher,
		escrow.WithMetrics(escrowmetrics.New()),
		escrow.WithLogger(log),
	)

	coordinatorOpts := []registry.CoordinatorOption{}
	redisClient, err := platformredis.New(cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		parcelCache := registrycache.New(redisClient.Client,
			registrycache.WithTTL(config.ParcelCacheTTL),
			registrycache.WithLogger(log),
		)
		coordinatorOpts = append(coordinatorOpts, registry.WithCache(parcelCache))
		log.Info("parcel cache enabled")
	}
	coordinator := registry.NewCoordinator(parcelStore, roles, verificationSvc, proofSvc, ledgerSvc, escrowSvc, publisher, coordinatorOpts...)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "landledger", "landledger-api")
	handler := httptransport.NewHandler(coordinator, jwtService, log, metrics.New())
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting landledger", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
