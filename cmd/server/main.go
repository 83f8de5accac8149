// Command server runs the geofenced attendance engine: the authenticated
// registration routes, the admin management surface and the audit outbox
// relay, all behind one HTTP listener.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"geoasistencia/internal/assignment"
	"geoasistencia/internal/attendance"
	"geoasistencia/internal/audit"
	"geoasistencia/internal/audit/outbox"
	"geoasistencia/internal/authtoken"
	"geoasistencia/internal/geofence"
	"geoasistencia/internal/platform/config"
	"geoasistencia/internal/platform/httpserver"
	"geoasistencia/internal/platform/kafka/producer"
	"geoasistencia/internal/platform/logger"
	"geoasistencia/internal/platform/metrics"
	platformredis "geoasistencia/internal/platform/redis"
	"geoasistencia/internal/profile"
	"geoasistencia/internal/storage"
	httpapi "geoasistencia/internal/transport/http"
)

const (
	tokenIssuer     = "geoasistencia"
	shutdownTimeout = 10 * time.Second
)

// The postgres and memory stores both satisfy every consumer-side interface.
// These unions let the wiring below pick a backend once and stay branch-free
// afterwards.
type profileStore interface {
	profile.Store
	attendance.ProfileStore
}

type assignmentStore interface {
	assignment.Store
	attendance.AssignmentSource
	geofence.AssignmentChecker
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn("invalid ATTENDANCE_TZ, falling back to UTC", "tz", cfg.Timezone, "error", err)
		location = time.UTC
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var (
		profiles    profileStore
		zones       geofence.Store
		assignments assignmentStore
		events      attendance.EventStore
		ledger      audit.Store
		outboxStore outbox.Store
		runner      txRunner
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}

		auditPG := audit.NewPostgres(db)
		profiles = profile.NewPostgres(db)
		zones = geofence.NewPostgres(db)
		assignments = assignment.NewPostgres(db)
		events = attendance.NewPostgres(db)
		ledger = auditPG
		outboxStore = auditPG
		runner = storage.NewPostgresRunner(db)
	} else {
		log.Warn("DATABASE_URL not set, running on in-memory stores")
		profileMem := profile.NewInMemoryStore()
		zoneMem := geofence.NewInMemoryStore()
		assignMem := assignment.NewInMemoryStore(profileMem, zoneMem)
		eventMem := attendance.NewInMemoryStore()
		auditMem := audit.NewInMemoryStore(profileMem)
		profiles = profileMem
		zones = zoneMem
		assignments = assignMem
		events = eventMem
		ledger = auditMem
		runner = storage.NewMemoryRunner(profileMem, zoneMem, assignMem, eventMem, auditMem)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	guard := attendance.NewIdempotencyGuard(redisClient, cfg.IdempotencyTTL)

	kafkaProducer, err := producer.New(ctx, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
	}

	auditSvc := audit.NewService(ledger, m)
	profileSvc := profile.NewService(profiles, auditSvc, runner)
	geofenceSvc := geofence.NewService(zones, assignments, auditSvc, runner)
	assignmentSvc := assignment.NewService(assignments, profiles, zones, auditSvc, runner)
	attendanceSvc := attendance.NewService(profiles, assignments, events, guard, runner, m, location, log)

	tokens := authtoken.NewService(cfg.JWTSigningKey, tokenIssuer)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:      log,
		Metrics:     m,
		Validator:   authtoken.NewAdapter(tokens),
		Attendance:  attendance.NewHandler(attendanceSvc, log),
		Assignments: assignment.NewHandler(assignmentSvc, log),
		Geofences:   geofence.NewHandler(geofenceSvc, log),
		Profiles:    profile.NewHandler(profileSvc, log),
		Audit:       audit.NewHandler(auditSvc, log),
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr, "timezone", location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// The relay needs both a durable outbox and a broker; without either the
	// ledger alone remains the source of truth.
	if kafkaProducer != nil && outboxStore != nil {
		relay := outbox.NewRelay(outboxStore, kafkaProducer, log, m, cfg.Kafka.PollInterval)
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
