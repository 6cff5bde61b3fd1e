package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rootsreach/rootsreach-backend/api/controllers"
	"github.com/rootsreach/rootsreach-backend/api/middleware"
	"github.com/rootsreach/rootsreach-backend/internal/ai"
	"github.com/rootsreach/rootsreach-backend/internal/auth"
	"github.com/rootsreach/rootsreach-backend/internal/materials"
	"github.com/rootsreach/rootsreach-backend/internal/users"
	"github.com/rootsreach/rootsreach-backend/pkg/config"
	"github.com/rootsreach/rootsreach-backend/pkg/enums"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
	"github.com/rootsreach/rootsreach-backend/pkg/metrics"
	"github.com/rootsreach/rootsreach-backend/pkg/redis"
)

// Store backs idempotency replay and auth rate limiting.
type Store interface {
	redis.IdempotencyStore
	middleware.RateLimiter
}

// Deps collects what the router needs to build its handlers.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	Gate    middleware.Authenticator
	Store   Store
	Metrics *metrics.HTTPMetrics
	// Gatherer serves /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	// Health maps dependency names to readiness checks.
	Health map[string]controllers.Pinger

	Auth      auth.Service
	Users     users.Service
	Materials materials.Service
	AI        ai.Service

	// Uploads serves locally stored images under the storage base URL when set.
	Uploads http.Handler
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)
	if cfg.App.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.App.RequestTimeout))
	}

	limits := cfg.AuthRateLimit
	loginThrottle := middleware.Throttle("login", limits.LoginWindow, d.Store, logg,
		middleware.ByClientIP(limits.LoginIPLimit),
		middleware.ByEmail(limits.LoginEmailLimit),
	)
	registerThrottle := middleware.Throttle("register", limits.RegisterWindow, d.Store, logg,
		middleware.ByClientIP(limits.RegisterIPLimit),
		middleware.ByEmail(limits.RegisterEmailLimit),
	)
	idempotent := middleware.Idempotent(d.Store, middleware.DefaultIdempotencyTTL, logg)
	stockIdempotent := middleware.Idempotent(d.Store, middleware.StockIdempotencyTTL, logg)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Health))
	})

	if base := strings.TrimRight(cfg.Storage.PublicBaseURL, "/"); d.Uploads != nil && strings.HasPrefix(base, "/") {
		r.Handle(base+"/*", http.StripPrefix(base, d.Uploads))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(loginThrottle).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(loginThrottle).Post("/admin/login", controllers.AdminAuthLogin(d.Auth, logg))
			r.With(registerThrottle, idempotent).Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.Gate, logg))

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", controllers.UserProfile(d.Users, logg))
				r.Patch("/", controllers.UserUpdateProfile(d.Users, logg))
			})

			r.Route("/admin/users", func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, enums.RoleAdmin))
				r.Patch("/{userId}/role", controllers.AdminUserRole(d.Users, logg))
				r.Patch("/{userId}/status", controllers.AdminUserStatus(d.Users, logg))
			})

			r.Route("/materials", func(r chi.Router) {
				r.Get("/", controllers.MaterialList(d.Materials, logg))
				r.Get("/categories", controllers.MaterialCategories(d.Materials, logg))
				r.Get("/{id}", controllers.MaterialDetail(d.Materials, logg))
				r.With(stockIdempotent).Patch("/{id}/stock", controllers.MaterialAdjustStock(d.Materials, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRoles(logg, enums.RoleAdmin))
					r.With(idempotent).Post("/", controllers.MaterialCreate(d.Materials, cfg.Storage.MaxImageBytes(), logg))
					r.Put("/{id}", controllers.MaterialUpdate(d.Materials, logg))
					r.Delete("/{id}", controllers.MaterialDelete(d.Materials, logg))
				})
			})

			r.Route("/ai", func(r chi.Router) {
				r.Post("/generate-description", controllers.AIGenerateDescription(d.AI, logg))
				r.Post("/translate", controllers.AITranslate(d.AI, logg))
				r.Post("/generate-voice", controllers.AIGenerateVoice(d.AI, logg))
			})
		})
	})

	return r
}
