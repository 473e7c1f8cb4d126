package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-like-relay/internal/application/intake"
	"github.com/go-like-relay/internal/application/profile"
	"github.com/go-like-relay/internal/application/verification"
	"github.com/go-like-relay/internal/config"
	jwtinfra "github.com/go-like-relay/internal/infrastructure/jwt"
	"github.com/go-like-relay/internal/transport/http/handler"
	appmiddleware "github.com/go-like-relay/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	RequestRepo RequestRepository
	ProfileRepo ProfileRepository
	Lookup      intake.PlayerLookup  // optional
	Shortener   intake.LinkShortener // optional
	JWTProvider *jwtinfra.Provider   // nil rejects every authenticated route
}

// NewRouter builds and returns the application router. ctx bounds background
// work owned by the router, such as rate-limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10, per client IP.
	publicRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	verifySvc := verification.NewService(deps.RequestRepo, nil)
	intakeSvc := intake.NewService(intake.ServiceDeps{
		Requests:      deps.RequestRepo,
		Lookup:        deps.Lookup,
		Shortener:     deps.Shortener,
		PublicBaseURL: cfg.PublicBaseURL,
		TTL:           cfg.VerificationTTL,
	})
	profileSvc := profile.NewService(deps.ProfileRepo, cfg, nil)

	healthH := handler.NewHealthHandler()
	verifyH := handler.NewVerifyHandler(verifySvc)
	requestH := handler.NewRequestHandler(intakeSvc, verifySvc)
	profileH := handler.NewProfileHandler(profileSvc)

	// Opened by end users in a browser; answers in plain text.
	r.With(publicRL.Limit).Get("/verify/{code}", verifyH.Verify)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.With(appmiddleware.RequireRole(jwtinfra.RoleBot)).Post("/requests", requestH.Submit)

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(jwtinfra.RoleBot, jwtinfra.RoleOperator))

				r.Get("/requests/{code}", requestH.Get)
				r.Get("/profiles/{id}", profileH.Get)
			})

			// Operator-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(jwtinfra.RoleOperator))

				r.Put("/profiles/{id}/privilege", profileH.GrantPrivilege)
				r.Delete("/profiles/{id}/privilege", profileH.RevokePrivilege)
			})
		})
	})

	return r
}
