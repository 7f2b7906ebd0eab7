package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Eyad010/postfeed/internal/common"
	"github.com/Eyad010/postfeed/internal/server/ratelimit"
)

// RouterOptions configures the cross-cutting parts of the router.
type RouterOptions struct {
	CORSOrigins []string
	// Limiter throttles the credential routes; nil disables throttling.
	Limiter ratelimit.Limiter
	// TrustProxy rewrites RemoteAddr from forwarding headers. Enable only
	// behind a proxy that overwrites them.
	TrustProxy bool
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Ping backs /healthz when set.
	Ping func(ctx context.Context) error
}

var errTooManyRequests = common.NewError(common.ErrorRateLimited,
	"Too many requests from this IP, please try again later.")

func (h *Handler) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(h.instrument)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Set-Cookie"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.health(opts.Ping))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	limit := func(scope string) func(http.Handler) http.Handler {
		if opts.Limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return ratelimit.Middleware(opts.Limiter, scope, h.log, func(w http.ResponseWriter, r *http.Request) {
			h.metrics.AuthEvent(scope, errTooManyRequests)
			h.writeError(w, r, errTooManyRequests)
		})
	}

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.With(limit("login")).Post("/login", h.Login)
		r.Get("/logout", h.Logout)
		r.With(limit("forgot_password")).Post("/forgotPassword", h.ForgotPassword)
		r.With(limit("verify_reset_code")).Post("/verifyResetCode", h.VerifyResetCode)
		r.With(limit("reset_password")).Patch("/resetPassword", h.ResetPassword)
		r.Get("/getAllUsers", h.GetAllUsers)

		r.Group(func(r chi.Router) {
			r.Use(h.protect)
			r.Get("/getUserById/{id}", h.GetUserByID)
			r.Patch("/updateMyPassword", h.UpdatePassword)
			r.Get("/me", h.Me)
			r.Patch("/updateMe", h.UpdateMe)
			r.Patch("/updateMyPhoto", h.UpdateMyPhoto)
			r.Delete("/deleteMe", h.DeleteMe)
		})
	})

	r.Route("/api/v1/posts", func(r chi.Router) {
		r.Get("/", h.AllPosts)
		r.Get("/last-10-posts", h.LatestPosts)
		r.Get("/getAllCategories", h.Categories)
		r.Get("/category/{category}", h.PostsByCategory)
		r.Get("/search/{query}", h.SearchPosts)

		r.Group(func(r chi.Router) {
			r.Use(h.protect)
			r.Post("/", h.CreatePost)
			r.Get("/{id}", h.GetPost)
			r.Patch("/{id}", h.UpdatePost)
			r.Delete("/{id}", h.DeletePost)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, common.Errorf(common.ErrorNotFound, "Can't find %s on this server!", r.URL.Path))
	})

	return r
}

func (h *Handler) health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				h.log.Error(r.Context(), "health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, envelope{"status": "error", "message": "database unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, envelope{"status": "ok"})
	}
}
