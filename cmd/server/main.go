package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"vetdocs/internal/breach"
	"vetdocs/internal/catalog"
	"vetdocs/internal/files"
	"vetdocs/internal/hipaa/audit"
	"vetdocs/internal/hipaa/crypto"
	"vetdocs/internal/hipaa/phi"
	"vetdocs/internal/hipaa/retention"
	"vetdocs/internal/intake"
	"vetdocs/internal/platform/config"
	"vetdocs/internal/platform/httpserver"
	"vetdocs/internal/platform/logger"
	"vetdocs/internal/platform/metrics"
	"vetdocs/internal/platform/postgres"
	"vetdocs/internal/platform/redis"
	"vetdocs/internal/ratelimit"
	httptransport "vetdocs/internal/transport/http"
	"vetdocs/pkg/platform/middleware/auth"
	"vetdocs/pkg/platform/middleware/metadata"
)

// main wires dependencies and runs the HTTP server alongside the retention
// sweeper. Business logic lives in the internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vetdocs: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Server.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := postgres.Migrate(db, cfg.DB.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		// Rate limiting falls back to the in-process store; the outage is
		// operationally visible but not fatal.
		log.Warn("redis unavailable, using in-memory rate limit store", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	met := metrics.New()
	detector := phi.NewDetector(phi.WithMetrics(met))

	// PHI encryption is optional at process level. Without a secret the
	// intake and file surfaces refuse PHI-bearing submissions.
	var engine *crypto.Engine
	if cfg.HIPAA.EncryptionSecret != "" {
		engine, err = crypto.New(cfg.HIPAA.EncryptionSecret, cfg.HIPAA.KDFIterations)
		if err != nil {
			return fmt.Errorf("init encryption engine: %w", err)
		}
	} else {
		log.Warn("no encryption secret configured, PHI submissions will be refused")
	}

	auditStore := audit.NewPostgresStore(db)
	auditOpts := []audit.Option{
		audit.WithMetrics(met),
		audit.WithPolicies(cfg.HIPAA.WritePolicy, cfg.HIPAA.ReadPolicy),
	}
	var mirror *audit.Mirror
	if cfg.KafkaEnabled() {
		mirror, err = audit.NewMirror(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return fmt.Errorf("init kafka audit mirror: %w", err)
		}
		defer mirror.Close()
		auditOpts = append(auditOpts, audit.WithPublisher(mirror))
	}
	auditor := audit.NewLogger(auditStore, detector, log, auditOpts...)

	scheduler := retention.NewScheduler(
		retention.NewPostgresStore(db),
		auditor,
		cfg.HIPAA.RetentionYears,
		log,
		retention.WithMetrics(met),
		retention.WithAuditPurge(auditStore, cfg.HIPAA.AuditRetentionYears),
	)

	contactStore := intake.NewPostgresContactStore(db)
	consultationStore := intake.NewPostgresConsultationStore(db)
	intakeService := intake.NewService(contactStore, consultationStore, engine, detector, auditor, scheduler, log)
	scheduler.RegisterPurger(intake.ResourceContacts, retention.PurgeFunc(intakeService.DeleteContact))
	scheduler.RegisterPurger(intake.ResourceConsultations, retention.PurgeFunc(intakeService.DeleteConsultation))

	breachService := breach.NewService(breach.NewPostgresStore(db), auditor, log)

	var filesService *files.Service
	if cfg.FilesEnabled() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Files.AWSRegion))
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		objects := files.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Files.S3Bucket)
		filesService = files.NewService(files.NewPostgresStore(db), objects, auditor, scheduler, cfg.Files.MaxSizeBytes, log)
		scheduler.RegisterPurger(files.ResourceFiles, filesService)
	} else {
		log.Info("no S3 bucket configured, file uploads disabled")
	}

	var rlStore ratelimit.Store
	if redisClient != nil {
		rlStore = ratelimit.NewRedisStore(redisClient.Client)
	} else {
		rlStore = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.NewLimiter(rlStore, cfg.RateLimit.PerMinute, log)
	rateLimit := ratelimit.NewMiddleware(limiter, auditor, log,
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
		ratelimit.WithMetrics(met),
	)

	authMW := auth.New(cfg.Auth.JWTSigningKey, func(r *http.Request, reason string) {
		_, logErr := auditor.Log(r.Context(), audit.Record{
			EventType:    audit.EventAccessDenied,
			ClientIP:     metadata.GetClientIP(r.Context()),
			UserAgent:    metadata.GetUserAgent(r.Context()),
			ResourceType: "admin",
			Action:       r.Method + " " + r.URL.Path,
			Outcome:      audit.OutcomeFailure,
			Detail:       map[string]any{"reason": reason},
		})
		if logErr != nil {
			log.Error("audit denied admin request", "error", logErr)
		}
	})

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:  log,
		Metrics: met,
		Catalog: httptransport.NewCatalogHandler(catalog.NewPostgresStore(db), log),
		Intake:  httptransport.NewIntakeHandler(intakeService, log),
		HIPAA:   httptransport.NewHIPAAHandler(auditor, scheduler, breachService, log),
		Files:   httptransport.NewFilesHandler(filesService, log),
		Health: httptransport.NewHealthHandler(httptransport.Capabilities{
			Encryption: engine != nil,
			Files:      filesService != nil,
			Redis:      redisClient != nil,
			Kafka:      mirror != nil,
		}),
		RateLimit: rateLimit,
		Auth:      authMW,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Run(gctx, cfg.HIPAA.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
