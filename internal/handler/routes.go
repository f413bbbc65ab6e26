package handler

import (
	"time"

	"github.com/adrianoneco/app-chatapp/internal/middleware"
	"github.com/adrianoneco/app-chatapp/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the HTTP layer needs. DB may be nil when running
// without Postgres.
type Deps struct {
	DB            Pinger
	Auth          *service.AuthService
	Users         *service.UserService
	Channels      *service.ChannelService
	Conversations *service.ConversationService
	Messages      *service.MessageService
	Uploads       *service.UploadService
	Corrector     Corrector
	Hub           *service.WSHub

	UserCount         Counter
	ConversationCount Counter

	CORSOrigins string
	// RequestLog enables the filtered request logger.
	RequestLog bool
}

// NewApp builds the fiber application with every route registered.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    int(d.Uploads.MaxBytes()) + 1<<20,
	})

	app.Use(recover.New())
	if d.RequestLog {
		app.Use(middleware.Logger())
	}
	app.Use(middleware.Metrics())
	app.Use(middleware.CORS(d.CORSOrigins))

	healthH := NewHealthHandler(d.DB)
	app.Get("/health", healthH.Health)
	app.Get("/ready", healthH.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	wsH := NewWSHandler(d.Hub, d.Auth)
	app.Get("/ws", wsH.Upgrade)

	api := app.Group("/api")

	api.Static("/media", d.Uploads.MediaDir())
	api.Static("/avatars", d.Uploads.AvatarDir())

	authH := NewAuthHandler(d.Auth)
	auth := api.Group("/auth")
	auth.Post("/login", middleware.RateLimit(10, time.Minute), authH.Login)
	auth.Post("/refresh", middleware.RateLimit(20, time.Minute), authH.Refresh)
	auth.Post("/logout", authH.Logout)

	protected := api.Group("", middleware.Auth(d.Auth), middleware.RateLimit(600, time.Minute))
	protected.Get("/auth/me", authH.Me)

	adminH := NewAdminHandler(d.UserCount, d.ConversationCount, d.Hub)
	protected.Get("/admin/stats", middleware.RequireAdmin(), adminH.Stats)

	userH := NewUserHandler(d.Users, d.Uploads)
	users := protected.Group("/users")
	users.Get("/", userH.List)
	users.Post("/", userH.Create)
	users.Patch("/me/preferences", userH.UpdatePreferences)
	users.Get("/:id", userH.Get)
	users.Patch("/:id", userH.Update)
	users.Delete("/:id", userH.Delete)
	users.Post("/:id/avatar", userH.UploadAvatar)
	users.Delete("/:id/avatar", userH.DeleteAvatar)

	channelH := NewChannelHandler(d.Channels)
	channels := protected.Group("/channels")
	channels.Get("/", channelH.List)
	channels.Get("/:id", channelH.Get)
	channels.Post("/", channelH.Create)
	channels.Patch("/:id", channelH.Update)
	channels.Delete("/:id", channelH.Delete)

	convH := NewConversationHandler(d.Conversations, d.Messages)
	convs := protected.Group("/conversations")
	convs.Get("/", convH.List)
	convs.Post("/", convH.Create)
	convs.Get("/:id", convH.Get)
	convs.Patch("/:id", convH.Update)
	convs.Put("/:id/location", convH.UpdateLocation)
	convs.Post("/:id/read", convH.MarkRead)
	convs.Get("/:id/messages", convH.Messages)

	msgH := NewMessageHandler(d.Messages)
	msgs := protected.Group("/messages")
	msgs.Post("/", msgH.Send)
	msgs.Post("/:id/reactions", msgH.React)
	msgs.Post("/:id/forward", msgH.Forward)
	msgs.Patch("/:id/status", msgH.UpdateStatus)

	uploadH := NewUploadHandler(d.Uploads)
	protected.Post("/upload", uploadH.Upload)

	aiH := NewAIHandler(d.Corrector)
	protected.Post("/ai/correct-text", middleware.RateLimit(30, time.Minute), aiH.CorrectText)

	return app
}
