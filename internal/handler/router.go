package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/nestfeed/internal/middleware"
)

// HealthChecker はストレージの疎通確認インターフェース。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	HTTPMetrics       middleware.HTTPMetricsRecorder // 任意
	MetricsHandler    http.Handler                   // 任意。GET /metrics
	HealthChecker     HealthChecker                  // 任意

	// ガードがユーザーを解決するために使う
	Users UserLookup

	// 認証・ユーザー
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig
	UserService UserServiceInterface

	// ドメイン
	FriendService FriendServiceInterface
	NestService   NestServiceInterface
	TimeService   TimeServiceInterface
	FreetService  FreetServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → Metrics → Session → RateLimit(General) → JSONBody
//
// /health、/metrics、/api/csrf-token はCSRF検証の外に配置する。
// 各ルートの前提条件はガード（認証 → 存在 → 権限 → 入力形式）で表現する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
	r.Use(deps.RateLimiter.GeneralMiddleware())
	r.Use(middleware.NewJSONBodyMiddleware())

	g := &guards{
		users:   deps.Users,
		friends: deps.FriendService,
		nests:   deps.NestService,
		times:   deps.TimeService,
		freets:  deps.FreetService,
	}
	create := deps.RateLimiter.CreateMiddleware()

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)
	friendHandler := NewFriendHandler(deps.FriendService)
	nestHandler := NewNestHandler(deps.NestService)
	timeHandler := NewTimeHandler(deps.TimeService)
	freetHandler := NewFreetHandler(deps.FreetService)

	// --- CSRF検証の外 ---

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- API ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// ユーザーとセッション
		r.Route("/api/users", func(r chi.Router) {
			r.With(create, g.requireLoggedOut, g.validUserFields(true)).Post("/", authHandler.Register)
			r.With(g.requireUser, g.validUserFields(false)).Put("/", userHandler.Update)
			r.With(g.requireUser).Delete("/", userHandler.Withdraw)

			r.Get("/session", authHandler.Session)
			r.With(g.requireLoggedOut).Post("/session", authHandler.Login)
			r.With(g.requireUser).Delete("/session", authHandler.Logout)
		})

		// フレンド
		r.Route("/api/friends", func(r chi.Router) {
			r.With(
				middleware.WhenQueryAbsent("user", http.HandlerFunc(friendHandler.List)),
				g.requireUser, g.userQueryExists("user"),
			).Get("/", friendHandler.ListByUser)
			r.With(g.requireUser, g.userQueryExists("user")).Get("/mutual", friendHandler.Mutual)
			r.With(g.requireUser, g.userQueryExists("user")).Get("/suggested", friendHandler.Suggested)
			r.With(create, g.requireUser, g.recipientExists, g.notSelf, g.notAlreadyFriends).Post("/", friendHandler.Add)
			r.With(g.requireUser, g.recipientExists).Delete("/", friendHandler.Remove)
		})

		// Nest
		r.Route("/api/nests", func(r chi.Router) {
			r.With(
				middleware.WhenQueryAbsent("creator", http.HandlerFunc(nestHandler.List)),
				g.userQueryExists("creator"), g.nestViewerByCreator,
			).Get("/", nestHandler.ListByCreator)
			r.With(create, g.requireUser, g.validNestName).Post("/", nestHandler.Create)

			r.Route("/{nestId}", func(r chi.Router) {
				r.With(g.requireUser, g.nestExists, g.nestModifier).Delete("/", nestHandler.Delete)
				r.With(g.requireUser, g.nestExists, g.nestMemberViewer).Get("/members", nestHandler.Members)
				r.With(g.requireUser, g.nestExists, g.nestPostViewer).Get("/posts", nestHandler.Posts)
				r.With(g.requireUser, g.nestExists, g.nestModifier, g.freetBodyExists, g.validOperation).Put("/posts", nestHandler.UpdatePosts)
				r.With(g.requireUser, g.memberExists, g.nestExists, g.nestModifier, g.validOperation).Put("/members", nestHandler.UpdateMembers)
			})
		})

		// Time
		r.Route("/api/times", func(r chi.Router) {
			byGroup := chi.Chain(
				middleware.WhenQueryAbsent("group", http.HandlerFunc(timeHandler.List)),
				g.requireUser, g.groupQueryExists,
			).HandlerFunc(timeHandler.ListByGroup)
			r.With(
				middleware.WhenQueryAbsent("creator", byGroup),
				g.userQueryExists("creator"),
			).Get("/", timeHandler.ListByCreator)
			r.With(create, g.requireUser, g.groupBodyExists, g.groupOwner, g.validClock("startTime", "endTime")).Post("/", timeHandler.Create)

			r.Route("/{timeId}", func(r chi.Router) {
				r.With(g.requireUser, g.timeExists, g.timeModifier).Delete("/", timeHandler.Delete)
				r.With(g.requireUser, g.timeExists, g.timeModifier, g.validClock("startTime")).Put("/startTime", timeHandler.UpdateStart)
				r.With(g.requireUser, g.timeExists, g.timeModifier, g.validClock("endTime")).Put("/endTime", timeHandler.UpdateEnd)
			})
		})

		// Freet
		r.Route("/api/freets", func(r chi.Router) {
			r.With(
				middleware.WhenQueryAbsent("author", http.HandlerFunc(freetHandler.List)),
				g.userQueryExists("author"),
			).Get("/", freetHandler.ListByAuthor)
			r.With(create, g.requireUser, g.validFreetContent).Post("/", freetHandler.Create)

			r.Route("/{freetId}", func(r chi.Router) {
				r.With(g.requireUser, g.freetParamExists, g.freetModifier, g.validFreetContent).Put("/", freetHandler.Update)
				r.With(g.requireUser, g.freetParamExists, g.freetModifier).Delete("/", freetHandler.Delete)
			})
		})
	})

	return r
}

// healthHandler はストレージの疎通を確認するハンドラーを返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := checker.Ping(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
