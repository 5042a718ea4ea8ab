// Package app assembles use cases, handlers and the router from a set of
// repositories and gateways.
package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-escrow/internal/config"
	"github.com/ignatzorin/freelance-escrow/internal/domain/gateway"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/http/middleware"
	"github.com/ignatzorin/freelance-escrow/internal/http/router"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/handler"
	"github.com/ignatzorin/freelance-escrow/internal/service"
	"github.com/ignatzorin/freelance-escrow/internal/storage"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/application"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/conversation"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/escrow"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/milestone"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/task"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/verification"
	"github.com/ignatzorin/freelance-escrow/internal/ws"
)

type Repositories struct {
	Tx            repository.Transactor
	Tasks         repository.TaskRepository
	Applications  repository.ApplicationRepository
	Escrows       repository.EscrowRepository
	Milestones    repository.MilestoneRepository
	Disputes      repository.DisputeRepository
	Ledger        repository.LedgerRepository
	Verifications repository.VerificationRepository
	Users         repository.UserRepository
	Sessions      repository.SessionRepository
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
}

// Recorder is everything the service reports to metrics.
type Recorder interface {
	escrow.Recorder
	middleware.HTTPRecorder
}

type Options struct {
	Config      *config.Config
	Repos       Repositories
	Payments    gateway.PaymentGateway
	Identity    gateway.IdentityGateway
	Hub         *ws.Hub
	Files       *storage.FileStorage
	Cache       middleware.ResponseCache
	DB          handler.Pinger
	Recorder    Recorder
	MetricsPage http.Handler
}

// NewRouter wires every use case and handler. Options.Recorder and
// Options.MetricsPage may be nil.
func NewRouter(o Options) *gin.Engine {
	cfg := o.Config
	r := o.Repos
	if o.Hub == nil {
		o.Hub = ws.NewHub(nil)
	}

	var recorder escrow.Recorder
	var httpRecorder middleware.HTTPRecorder
	if o.Recorder != nil {
		recorder = o.Recorder
		httpRecorder = o.Recorder
	}

	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(r.Users, r.Sessions, tokens)

	store := escrow.NewStore(r.Tx, r.Escrows, r.Milestones, r.Ledger, o.Hub, recorder)
	funding := escrow.FundingPolicy{TestBypass: cfg.Gateways.Payment.TestBypass && !cfg.IsProduction()}

	h := router.Handlers{
		Auth: handler.NewAuthHandler(authService),
		Task: handler.NewTaskHandler(
			task.NewCreateTaskUseCase(r.Tasks, r.Users),
			task.NewListTasksUseCase(r.Tasks),
			task.NewGetTaskUseCase(r.Tasks),
		),
		Application: handler.NewApplicationHandler(
			application.NewApplyUseCase(r.Applications, r.Tasks),
			application.NewAcceptUseCase(store, r.Applications, r.Tasks, r.Conversations, o.Hub),
			application.NewRejectUseCase(r.Applications, r.Tasks, o.Hub),
			application.NewInterviewUseCase(r.Applications, r.Tasks, o.Hub),
			application.NewWithdrawUseCase(r.Applications),
			application.NewGetUseCase(r.Applications, r.Tasks),
			application.NewListForTaskUseCase(r.Applications, r.Tasks),
			application.NewListMineUseCase(r.Applications),
		),
		Escrow: handler.NewEscrowHandler(handler.EscrowUseCases{
			Create:       escrow.NewCreateEscrowUseCase(store, r.Tasks, r.Users),
			Fund:         escrow.NewFundEscrowUseCase(store, o.Payments, funding),
			Start:        escrow.NewStartWorkUseCase(store),
			Complete:     escrow.NewMarkCompletedUseCase(store),
			Release:      escrow.NewReleaseFundsUseCase(store, r.Tasks),
			Refund:       escrow.NewRefundUseCase(store, r.Tasks),
			Get:          escrow.NewGetEscrowUseCase(r.Escrows, r.Milestones, r.Disputes, r.Ledger),
			ListMine:     escrow.NewListMyEscrowsUseCase(r.Escrows),
			RaiseDispute: escrow.NewRaiseDisputeUseCase(store, r.Disputes),
			AddMilestone: milestone.NewAddMilestoneUseCase(store),
			Progress:     milestone.NewProgressUseCase(store),
		}),
		Milestone: handler.NewMilestoneHandler(
			milestone.NewStartMilestoneUseCase(store),
			milestone.NewSubmitMilestoneUseCase(store),
			milestone.NewApproveMilestoneUseCase(store),
			milestone.NewRejectMilestoneUseCase(store),
		),
		Dispute: handler.NewDisputeHandler(
			escrow.NewReviewDisputeUseCase(r.Disputes),
			escrow.NewResolveDisputeUseCase(store, r.Disputes, r.Tasks),
			escrow.NewListActiveDisputesUseCase(r.Disputes),
		),
		Verification: handler.NewVerificationHandler(
			verification.NewSubmitUseCase(r.Verifications),
			verification.NewApproveUseCase(r.Tx, r.Verifications, r.Users),
			verification.NewRejectUseCase(r.Tx, r.Verifications, r.Users),
			verification.NewListRequestsUseCase(r.Verifications),
			verification.NewListMineUseCase(r.Verifications),
			verification.NewLookupNINUseCase(r.Verifications, o.Identity),
		),
		Conversation: handler.NewConversationHandler(
			conversation.NewListMyConversationsUseCase(r.Conversations),
			conversation.NewSendMessageUseCase(r.Conversations, r.Messages, o.Hub),
			conversation.NewListMessagesUseCase(r.Conversations, r.Messages),
		),
		Upload: handler.NewUploadHandler(o.Files),
		Webhook: handler.NewWebhookHandler(
			cfg.Gateways.Payment.SecretKey,
			cfg.Gateways.Identity.WebhookSecret,
			escrow.NewPaymentWebhookUseCase(store),
			verification.NewIdentityWebhookUseCase(r.Tx, r.Verifications, r.Users),
		),
		Health: handler.NewHealthHandler(o.DB),
		WS:     handler.NewWSHandler(o.Hub, tokens, cfg.AllowedOrigins),
	}

	return router.SetupRouter(cfg, h, router.Deps{
		Tokens:      tokens,
		Cache:       o.Cache,
		Recorder:    httpRecorder,
		MetricsPage: o.MetricsPage,
	})
}
