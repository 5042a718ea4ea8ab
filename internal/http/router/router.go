package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-escrow/internal/config"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/http/middleware"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/handler"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	Task         *handler.TaskHandler
	Application  *handler.ApplicationHandler
	Escrow       *handler.EscrowHandler
	Milestone    *handler.MilestoneHandler
	Dispute      *handler.DisputeHandler
	Verification *handler.VerificationHandler
	Conversation *handler.ConversationHandler
	Upload       *handler.UploadHandler
	Webhook      *handler.WebhookHandler
	Health       *handler.HealthHandler
	WS           *handler.WSHandler
}

type Deps struct {
	Tokens      middleware.AccessTokenParser
	Cache       middleware.ResponseCache
	Recorder    middleware.HTTPRecorder
	MetricsPage http.Handler
}

func SetupRouter(cfg *config.Config, h Handlers, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Log.WithError(err).Warn("invalid trusted proxies, using the socket address")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	if deps.Recorder != nil {
		r.Use(middleware.Metrics(deps.Recorder))
	}
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	if deps.MetricsPage != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsPage))
	}
	r.StaticFS("/uploads", http.Dir(cfg.UploadStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		credentials := middleware.RateLimitMiddleware("auth", 5, cfg.RateLimitPeriod)
		authGroup.POST("/register", credentials, h.Auth.Register)
		authGroup.POST("/login", credentials, h.Auth.Login)

		session := middleware.RateLimitMiddleware("session", cfg.RateLimitLimit, cfg.RateLimitPeriod)
		authGroup.POST("/refresh", session, h.Auth.Refresh)
		authGroup.POST("/logout", session, h.Auth.Logout)
	}

	webhooks := api.Group("/webhooks")
	webhooks.Use(middleware.RateLimitMiddleware("webhooks", cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		webhooks.POST("/payment", h.Webhook.Payment)
		webhooks.POST("/identity", h.Webhook.Identity)
	}

	// Public
	api.GET("/tasks", h.Task.ListTasks)
	api.GET("/tasks/:id", middleware.UUIDValidator("id"), h.Task.GetTask)
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(deps.Tokens))
	protected.Use(middleware.RateLimitMiddleware("api", cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		protected.POST("/tasks", h.Task.CreateTask)
		protected.POST("/tasks/:id/apply", middleware.UUIDValidator("id"), h.Application.Apply)
		protected.GET("/tasks/:id/applications", middleware.UUIDValidator("id"), h.Application.ListForTask)

		protected.GET("/applications/my", h.Application.ListMine)
		applications := protected.Group("/applications/:id", middleware.UUIDValidator("id"))
		{
			applications.GET("", h.Application.Get)
			applications.DELETE("", h.Application.Withdraw)
			applications.POST("/accept", h.Application.Accept)
			applications.POST("/reject", h.Application.Reject)
			applications.POST("/interview", h.Application.Interview)
		}

		protected.POST("/escrow/create", middleware.Idempotency(deps.Cache, cfg.IdempotencyTTL), h.Escrow.Create)
		protected.GET("/escrow/my", h.Escrow.ListMine)
		protected.POST("/escrow/milestones", h.Escrow.AddMilestone)
		escrows := protected.Group("/escrow/:id", middleware.UUIDValidator("id"))
		{
			escrows.GET("", h.Escrow.Get)
			escrows.GET("/progress", h.Escrow.Progress)
			escrows.POST("/fund", h.Escrow.Fund)
			escrows.POST("/start", h.Escrow.Start)
			escrows.POST("/complete", h.Escrow.Complete)
			escrows.POST("/release", h.Escrow.Release)
			escrows.POST("/refund", h.Escrow.Refund)
			escrows.POST("/dispute", h.Escrow.RaiseDispute)
		}

		milestones := protected.Group("/milestones/:id", middleware.UUIDValidator("id"))
		{
			milestones.POST("/start", h.Milestone.Start)
			milestones.POST("/submit", h.Milestone.Submit)
			milestones.POST("/approve", h.Milestone.Approve)
			milestones.POST("/reject", h.Milestone.Reject)
		}

		protected.POST("/uploads", h.Upload.Upload)

		protected.GET("/conversations/my", h.Conversation.ListMyConversations)
		protected.GET("/conversations/:id/messages", middleware.UUIDValidator("id"), h.Conversation.ListMessages)
		protected.POST("/conversations/:id/messages", middleware.UUIDValidator("id"), h.Conversation.SendMessage)

		protected.POST("/verification", h.Verification.Submit)
		protected.GET("/verification/my", h.Verification.ListMine)

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(valueobject.RoleAdmin))
		{
			admin.GET("/verification/requests", h.Verification.ListRequests)
			admin.POST("/verification/approve", h.Verification.Approve)
			admin.POST("/verification/reject", h.Verification.Reject)
			admin.POST("/verification/:id/lookup", middleware.UUIDValidator("id"), h.Verification.LookupNIN)

			admin.GET("/disputes", h.Dispute.ListActive)
			admin.POST("/disputes/:id/review", middleware.UUIDValidator("id"), h.Dispute.Review)
			admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), h.Dispute.Resolve)
		}
	}

	return r
}
