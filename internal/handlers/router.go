package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/config"
	_ "github.com/eventhub/backend/internal/docs"
	"github.com/eventhub/backend/internal/middleware"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/realtime"
	"github.com/eventhub/backend/internal/services"
)

// Services is everything the HTTP surface calls into.
type Services struct {
	Auth          *services.AuthService
	Captcha       *services.RecaptchaVerifier
	Events        *services.EventService
	Reports       *services.ReportService
	Chat          *services.ChatService
	Notifications *services.NotificationService
	Admin         *services.AdminService
	Images        *services.ImageService
	Relay         *realtime.Relay
}

type RouterConfig struct {
	Version        string
	Env            string
	AllowedOrigins []string
	RateLimit      config.RateLimitConfig
	MaxUploadSize  int64

	// UploadDir is served under /uploads/ when images are stored locally.
	UploadDir string

	// AccessLog turns on chi's request logger.
	AccessLog bool
}

func NewRouter(cfg RouterConfig, svc Services, log *zap.Logger) http.Handler {
	errs := NewErrors(log, cfg.Env == config.EnvDevelopment)

	authHandler := NewAuthHandler(svc.Auth, svc.Captcha, errs)
	eventHandler := NewEventHandler(svc.Events, svc.Reports, errs)
	adminHandler := NewAdminHandler(svc.Admin, svc.Events, svc.Reports, errs)
	chatHandler := NewChatHandler(svc.Chat, errs)
	notificationHandler := NewNotificationHandler(svc.Notifications, errs)
	imageHandler := NewImageHandler(svc.Images, cfg.MaxUploadSize, errs)
	socketHandler := NewSocketHandler(svc.Relay)
	healthHandler := NewHealthHandler(cfg.Version, cfg.Env, svc.Relay)

	authn := middleware.Authenticate(svc.Auth)
	optional := middleware.OptionalAuth(svc.Auth)
	rl := cfg.RateLimit

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.AccessLog {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Route not found"))
	})

	r.Get("/health", healthHandler.Plain)
	r.Get("/ws", svc.Relay.ServeWS)
	r.Get("/api-docs/*", httpSwagger.Handler(httpSwagger.URL("/api-docs/doc.json")))
	if cfg.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(rl.MaxRequests, rl.Window,
			"Too many requests from this IP, please try again later", middleware.KeyByIP))

		r.Get("/health", healthHandler.API)

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(rl.AuthMax, rl.Window,
					"Too many authentication attempts, please try again later", middleware.KeyByIP))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/forgot-password", authHandler.ForgotPassword)
				r.Post("/reset-password", authHandler.ResetPassword)
			})
			r.Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
				r.Put("/profile", authHandler.UpdateProfile)
				r.Put("/change-password", authHandler.ChangePassword)
			})
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/stats", eventHandler.Stats)

			r.Group(func(r chi.Router) {
				r.Use(optional)
				r.Get("/", eventHandler.List)
				r.Get("/{id}", eventHandler.Get)
			})

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.With(middleware.RateLimit(rl.CreateEventMax, rl.CreateEventWindow,
					"Too many events created, please try again later", middleware.KeyByUser)).
					Post("/", eventHandler.Create)
				r.Put("/{id}", eventHandler.Update)
				r.Delete("/{id}", eventHandler.Delete)
				r.Post("/{id}/join", eventHandler.Join)
				r.Post("/{id}/leave", eventHandler.Leave)
				r.Post("/{id}/report", eventHandler.Report)
				r.Get("/user/created", eventHandler.Created)
				r.Get("/user/joined", eventHandler.Joined)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authn)
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Get("/dashboard", adminHandler.Dashboard)
			r.Get("/stats", adminHandler.QuickStats)
			r.Get("/events", adminHandler.Events)
			r.Get("/events/pending", adminHandler.PendingEvents)
			r.Put("/events/{id}/approve", adminHandler.Approve)
			r.Put("/events/{id}/reject", adminHandler.Reject)
			r.Get("/reports", adminHandler.Reports)
			r.Post("/reports/{id}/review", adminHandler.ReviewReport)
			r.Get("/users", adminHandler.Users)
			r.Put("/users/{id}/toggle-role", adminHandler.ToggleRole)
			r.Post("/users/{id}/block", adminHandler.Block)
			r.Post("/users/{id}/unblock", adminHandler.Unblock)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Use(authn)

			r.Get("/events/{eventId}/messages", chatHandler.Messages)
			r.With(middleware.RateLimit(rl.ChatMax, rl.ChatWindow,
				"Too many messages, slow down", middleware.KeyByUser)).
				Post("/events/{eventId}/messages", chatHandler.Send)
			r.Get("/events/{eventId}/participants", chatHandler.Participants)
			r.Post("/events/{eventId}/settings", chatHandler.UpdateSettings)
			r.Put("/messages/{messageId}", chatHandler.Edit)
			r.Delete("/messages/{messageId}", chatHandler.Delete)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(authn)

			r.Get("/", notificationHandler.List)
			r.Get("/unread-count", notificationHandler.UnreadCount)
			r.Put("/mark-all-read", notificationHandler.MarkAllRead)
			r.Put("/{id}/read", notificationHandler.MarkRead)
			r.Delete("/{id}", notificationHandler.Delete)
		})

		r.Route("/socket", func(r chi.Router) {
			r.Use(authn)

			r.Get("/stats", socketHandler.Stats)
			r.Get("/user/{userId}/online", socketHandler.UserOnline)
		})

		r.Route("/uploads", func(r chi.Router) {
			r.Use(authn)

			r.Post("/", imageHandler.Upload)
			r.Delete("/{imageId}", imageHandler.Delete)
		})
	})

	return r
}
