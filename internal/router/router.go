package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"jobprep-backend/internal/handlers"
	"jobprep-backend/internal/middleware"
	"jobprep-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	categoryHandler *handlers.CategoryHandler,
	interviewHandler *handlers.InterviewHandler,
	feedbackHandler *handlers.FeedbackHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/resend-verification", authHandler.ResendVerification)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Job Category Routes ────
		r.Route("/categories", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", categoryHandler.List)
			r.Get("/{id}", categoryHandler.Get)
		})

		// ──── Interview Routes ────
		r.Route("/interviews", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/start", interviewHandler.Start)
			r.Get("/", interviewHandler.List)
			r.Get("/{id}", interviewHandler.Get)
			r.Post("/{id}/message", interviewHandler.Message)
			r.Post("/{id}/end", interviewHandler.End)
			r.Get("/{id}/feedback", feedbackHandler.GetBySession)
		})

		// ──── Feedback Routes ────
		r.Route("/feedback", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/summary", feedbackHandler.Summary)
		})

		// ──── Subscription Routes ────
		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/plans", subscriptionHandler.Plans) // Public

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/me", subscriptionHandler.Me)
				r.Put("/plan", subscriptionHandler.ChangePlan)
			})
		})

		// ──── User Routes ────
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", userHandler.Me)
			r.Put("/me", userHandler.UpdateProfile)
			r.Put("/password", authHandler.ChangePassword)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
