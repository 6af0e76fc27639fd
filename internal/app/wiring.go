package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/nestfeed/internal/auth"
	"github.com/hitoshi/nestfeed/internal/config"
	"github.com/hitoshi/nestfeed/internal/database"
	"github.com/hitoshi/nestfeed/internal/freet"
	"github.com/hitoshi/nestfeed/internal/friend"
	"github.com/hitoshi/nestfeed/internal/handler"
	"github.com/hitoshi/nestfeed/internal/metrics"
	"github.com/hitoshi/nestfeed/internal/middleware"
	"github.com/hitoshi/nestfeed/internal/nest"
	"github.com/hitoshi/nestfeed/internal/repository"
	"github.com/hitoshi/nestfeed/internal/security"
	"github.com/hitoshi/nestfeed/internal/times"
	"github.com/hitoshi/nestfeed/internal/user"
	"github.com/hitoshi/nestfeed/internal/worker/cleanup"
)

// pingFunc は関数をhandler.HealthCheckerとして扱うアダプタ。
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// storage は選択されたバックエンドのリポジトリと接続のライフサイクルをまとめる。
type storage struct {
	repos  *repository.Repositories
	health handler.HealthChecker
	close  func()
}

// openStorage はSTORAGE_DRIVERに応じてバックエンドへ接続し、リポジトリを構築する。
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, db, err := database.OpenMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		slog.Info("mongo connection established", slog.String("database", cfg.MongoDatabase))
		return &storage{
			repos:  repository.NewMongoRepositories(db),
			health: pingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) }),
			close:  func() { disconnectMongo(client) },
		}, nil

	case config.StorageMemory:
		slog.Warn("using in-memory storage; data is lost on restart")
		return &storage{
			repos: repository.NewMemoryRepositories(),
			close: func() {},
		}, nil

	default:
		db, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("database connection established")
		return &storage{
			repos:  repository.NewPostgresRepositories(db),
			health: pingFunc(db.PingContext),
			close:  func() { db.Close() },
		}, nil
	}
}

func openPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := database.Open(url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func disconnectMongo(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		slog.Error("failed to disconnect mongo", slog.String("error", err.Error()))
	}
}

// services はドメインサービスの依存グラフ。
type services struct {
	auth    *auth.Service
	user    *user.Service
	friends *friend.Service
	nests   *nest.Service
	times   *times.Service
	freets  *freet.Service
}

func newServices(cfg *config.Config, repos *repository.Repositories, collector *metrics.Collector) *services {
	friendService := friend.NewService(repos.Users, repos.Friends, collector)
	timeService := times.NewService(repos.Users, repos.Nests, repos.Times, collector)
	nestService := nest.NewService(repos.Users, repos.Nests, repos.Freets, timeService, collector)
	freetService := freet.NewService(repos.Users, repos.Freets, security.NewContentSanitizer(), cfg.FreetMaxLength, collector)

	authService := auth.NewService(repos.Users, repos.Sessions, friendService, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
		BcryptCost:    cfg.BcryptCost,
	})
	userService := user.NewService(repos.Users, repos.Sessions, authService, user.Deleters{
		Freets:  freetService,
		Nests:   nestService,
		Times:   timeService,
		Friends: friendService,
	})

	return &services{
		auth:    authService,
		user:    userService,
		friends: friendService,
		nests:   nestService,
		times:   timeService,
		freets:  freetService,
	}
}

// newHandler はAPIサーバーのhttp.Handlerを構築する。
// 戻り値のRateLimiterはシャットダウン時にStopすること。
func newHandler(cfg *config.Config, store *storage) (http.Handler, *middleware.RateLimiter) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	svc := newServices(cfg, store.repos, collector)

	limiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitCreate),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     store.repos.Sessions,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter:    limiter,
		HTTPMetrics:    collector,
		MetricsHandler: metrics.Handler(registry),
		HealthChecker:  store.health,

		Users: store.repos.Users,

		AuthService: svc.auth,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		UserService: svc.user,

		FriendService: svc.friends,
		NestService:   svc.nests,
		TimeService:   svc.times,
		FreetService:  svc.freets,
	})

	return router, limiter
}

// newWorker はワーカーのクリーンアップジョブと、そのメトリクスを公開するhttp.Handlerを構築する。
func newWorker(store *storage) (*cleanup.CleanupJob, http.Handler) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	job := cleanup.NewCleanupJob(store.repos.Sessions, store.repos.Times, collector, slog.Default())

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler(registry))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if store.health != nil {
			if err := store.health.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return job, mux
}
