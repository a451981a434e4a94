package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bryanwahyu/rightsdesk/internal/application"
	appanalyses "github.com/bryanwahyu/rightsdesk/internal/application/analyses"
	appauth "github.com/bryanwahyu/rightsdesk/internal/application/auth"
	"github.com/bryanwahyu/rightsdesk/internal/application/licensing"
	apprequests "github.com/bryanwahyu/rightsdesk/internal/application/requests"
	appuploads "github.com/bryanwahyu/rightsdesk/internal/application/uploads"
	"github.com/bryanwahyu/rightsdesk/internal/config"
	domainanalyses "github.com/bryanwahyu/rightsdesk/internal/domain/analyses"
	domainrequests "github.com/bryanwahyu/rightsdesk/internal/domain/requests"
	domainuploads "github.com/bryanwahyu/rightsdesk/internal/domain/uploads"
	domainusers "github.com/bryanwahyu/rightsdesk/internal/domain/users"
	llm "github.com/bryanwahyu/rightsdesk/internal/infra/ai/openai"
	"github.com/bryanwahyu/rightsdesk/internal/infra/cache"
	dbpool "github.com/bryanwahyu/rightsdesk/internal/infra/db"
	mysqlp "github.com/bryanwahyu/rightsdesk/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/rightsdesk/internal/infra/db/postgres"
	"github.com/bryanwahyu/rightsdesk/internal/infra/httpserver"
	"github.com/bryanwahyu/rightsdesk/internal/infra/logger"
	minioStore "github.com/bryanwahyu/rightsdesk/internal/infra/storage"
	"github.com/bryanwahyu/rightsdesk/internal/middleware"
)

type repositories struct {
	users    domainusers.Repository
	uploads  domainuploads.Repository
	analyses domainanalyses.Repository
	requests domainrequests.Repository
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// connect database
	db, repos, err := openDatabase(ctx, cfg)
	if err != nil {
		zl.Fatal("database connect error", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close()

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		zl.Fatal("minio init error", zap.Error(err))
	}

	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
		"storage":  store,
	}

	// rate limiter
	var limiter middleware.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zl.Fatal("redis connect error", zap.Error(err))
		}
		defer rdb.Close()
		limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		checkers["redis"] = &cache.HealthChecker{Client: rdb}
	default:
		mem := middleware.NewMemoryLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		go mem.RunSweeper(ctx, 5*time.Minute)
		limiter = mem
	}

	// init LLM + analyzer
	gen := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.MaxTokens)
	analyzer := licensing.NewAnalyzer(gen,
		licensing.WithMaxRetries(cfg.LLM.MaxRetries),
		licensing.WithInitialDelay(cfg.LLM.InitialDelay.Duration),
		licensing.WithLogger(zl.Named("licensing")),
	)

	clock := application.SystemClock{}

	// init services
	authSvc := &appauth.Service{
		Users:  repos.users,
		Secret: []byte(cfg.Auth.JWTSecret),
		TTL:    cfg.Auth.TokenTTL.Duration,
		Clock:  clock,
		Log:    zl.Named("auth"),
	}
	uploadsSvc := &appuploads.Service{
		Repo:     repos.uploads,
		Analyses: repos.analyses,
		Store:    store,
		Clock:    clock,
		Log:      zl.Named("uploads"),
		MaxBytes: cfg.Upload.MaxBytes,
	}
	analysesSvc := &appanalyses.Service{
		Repo:            repos.analyses,
		Uploads:         repos.uploads,
		Store:           store,
		Analyzer:        analyzer,
		Clock:           clock,
		Log:             zl.Named("analyses"),
		MaxContentBytes: cfg.Analysis.MaxContentBytes,
	}
	requestsSvc := &apprequests.Service{
		Repo:     repos.requests,
		Uploads:  repos.uploads,
		Analyses: repos.analyses,
		LLM:      analyzer,
		Clock:    clock,
		Log:      zl.Named("requests"),
	}

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(httpserver.Deps{
		Auth:           authSvc,
		Uploads:        uploadsSvc,
		Analyses:       analysesSvc,
		Requests:       requestsSvc,
		Limiter:        limiter,
		HealthCheckers: checkers,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Log:            zl.Named("http"),
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		zl.Info("server listening", zap.String("addr", addr), zap.String("db", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	zl.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		zl.Error("shutdown error", zap.Error(err))
	}
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, repositories, error) {
	pool := dbpool.Pool{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime.Duration,
	}
	switch cfg.Database.Driver {
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.PostgresDSN(), pool)
		if err != nil {
			return nil, repositories{}, err
		}
		return db, repositories{
			users:    pgp.NewUserRepository(db),
			uploads:  pgp.NewUploadRepository(db),
			analyses: pgp.NewAnalysisRepository(db),
			requests: pgp.NewRequestRepository(db),
		}, nil
	default:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN(), pool)
		if err != nil {
			return nil, repositories{}, err
		}
		return db, repositories{
			users:    mysqlp.NewUserRepository(db),
			uploads:  mysqlp.NewUploadRepository(db),
			analyses: mysqlp.NewAnalysisRepository(db),
			requests: mysqlp.NewRequestRepository(db),
		}, nil
	}
}
