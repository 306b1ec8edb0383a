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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	_ "github.com/jackc/pgx/v5/stdlib"

	"intake/internal/application/handler"
	applicationService "intake/internal/application/service"
	documentStore "intake/internal/application/store/document"
	"intake/internal/application/store/draft"
	"intake/internal/audit"
	"intake/internal/document"
	jwttoken "intake/internal/jwt_token"
	"intake/internal/payment"
	"intake/internal/platform/config"
	"intake/internal/platform/httpserver"
	"intake/internal/platform/logger"
	"intake/internal/platform/metrics"
	platformredis "intake/internal/platform/redis"
)

const auditBufferSize = 256

// draftStore is the union of the draft operations the services need. Both
// the postgres and the in-memory store satisfy it.
type draftStore interface {
	applicationService.DraftStore
	payment.DraftStore
}

// documentsStore is the union of document listing and content operations.
type documentsStore interface {
	applicationService.DocumentLister
	document.Store
}

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
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

	drafts, documents, dbClose, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer dbClose()

	publisher, auditClose, err := buildAudit(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer auditClose()

	m := metrics.New()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		// The cache is an optimization; the store stays authoritative.
		log.Warn("redis unavailable, snapshot cache disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	appOpts := []applicationService.Option{
		applicationService.WithLogger(log),
		applicationService.WithAuditPublisher(publisher),
		applicationService.WithMetrics(m),
	}
	if redisClient != nil {
		appOpts = append(appOpts, applicationService.WithSnapshotCache(
			applicationService.NewSnapshotCache(redisClient, config.SnapshotTTL, log)))
	}
	appSvc := applicationService.New(drafts, documents, appOpts...)
	docSvc := document.New(documents, drafts,
		document.WithLogger(log),
		document.WithAuditPublisher(publisher),
		document.WithMetrics(m),
	)
	paySvc := payment.New(drafts, cfg.ApplicationFee,
		payment.WithLogger(log),
		payment.WithAuditPublisher(publisher),
		payment.WithMetrics(m),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "intake", "intake-api")
	h := handler.New(appSvc, docSvc, paySvc, jwtService,
		jwttoken.NewJWTServiceAdapter(jwtService), log, m)

	router := chi.NewRouter()
	h.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting intake server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildStores selects postgres-backed stores when DATABASE_URL is set and
// falls back to in-memory stores for local development.
func buildStores(ctx context.Context, cfg config.Server, log *slog.Logger) (
	draftStore, documentsStore, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, drafts will not survive a restart")
		return draft.NewInMemory(), documentStore.NewInMemory(), func() {}, nil
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return draft.NewPostgres(db), documentStore.NewPostgres(db),
		func() { db.Close() }, nil
}

// buildAudit prefers the Kafka sink when brokers are configured and
// otherwise records to the structured log.
func buildAudit(ctx context.Context, cfg config.Server, log *slog.Logger) (
	*audit.Publisher, func(), error) {
	var sink audit.Sink
	var sinkClose func()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			return nil, nil, err
		}
		sink = kafkaSink
		sinkClose = kafkaSink.Close
	} else {
		sink = audit.NewLogSink(log)
		sinkClose = func() {}
	}

	publisher := audit.NewPublisher(sink,
		audit.WithAsyncBuffer(auditBufferSize),
		audit.WithLogger(log))
	return publisher, func() {
		publisher.Close()
		sinkClose()
	}, nil
}
