package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/escrow"
)

const (
	EventApplicationAccepted = "application.accepted"
	EventApplicationUpdated  = "application.updated"
)

type ApplyInput struct {
	TaskID            uuid.UUID
	FreelancerID      uuid.UUID
	ProposedBudget    int64
	BudgetType        valueobject.BudgetType
	CoverLetter       string
	EstimatedDuration string
}

type ApplyUseCase struct {
	appRepo  repository.ApplicationRepository
	taskRepo repository.TaskRepository
}

func NewApplyUseCase(appRepo repository.ApplicationRepository, taskRepo repository.TaskRepository) *ApplyUseCase {
	return &ApplyUseCase{appRepo: appRepo, taskRepo: taskRepo}
}

func (uc *ApplyUseCase) Execute(ctx context.Context, in ApplyInput) (*entity.Application, error) {
	task, err := uc.taskRepo.FindByID(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}
	if !task.IsOpen() {
		return nil, apperror.InvalidState("task", string(task.Status), "take applications")
	}
	if task.IsOwnedBy(in.FreelancerID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "cannot apply to your own task")
	}

	existing, err := uc.appRepo.FindByTaskAndFreelancer(ctx, in.TaskID, in.FreelancerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "you have already applied to this task")
	}

	app, err := entity.NewApplication(in.TaskID, in.FreelancerID, in.ProposedBudget, in.BudgetType, in.CoverLetter, in.EstimatedDuration)
	if err != nil {
		return nil, err
	}
	if err := uc.appRepo.Create(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

type AcceptInput struct {
	ApplicationID uuid.UUID
	ClientID      uuid.UUID
	PaymentType   valueobject.PaymentType
	Milestones    []escrow.MilestoneInput
	// Amount overrides the proposed budget when positive.
	Amount int64
}

type AcceptResult struct {
	Application  *entity.Application
	Escrow       *entity.Escrow
	Conversation *entity.Conversation
	Rejected     []*entity.Application
}

// AcceptUseCase hires a freelancer. Accepting, rejecting the competing
// applications, starting the task, opening the escrow and the conversation
// all commit together or not at all.
type AcceptUseCase struct {
	store    *escrow.Store
	appRepo  repository.ApplicationRepository
	taskRepo repository.TaskRepository
	convRepo repository.ConversationRepository
	notifier escrow.Notifier
}

func NewAcceptUseCase(
	store *escrow.Store,
	appRepo repository.ApplicationRepository,
	taskRepo repository.TaskRepository,
	convRepo repository.ConversationRepository,
	notifier escrow.Notifier,
) *AcceptUseCase {
	return &AcceptUseCase{store: store, appRepo: appRepo, taskRepo: taskRepo, convRepo: convRepo, notifier: notifier}
}

func (uc *AcceptUseCase) Execute(ctx context.Context, in AcceptInput) (*AcceptResult, error) {
	var (
		result  AcceptResult
		receipt escrow.Receipt
	)
	err := uc.store.WithinTx(ctx, func(ctx context.Context) error {
		app, err := uc.appRepo.FindByID(ctx, in.ApplicationID)
		if err != nil {
			return err
		}
		task, err := uc.taskRepo.FindByID(ctx, app.TaskID)
		if err != nil {
			return err
		}
		if !task.IsOwnedBy(in.ClientID) {
			return apperror.ErrForbidden
		}

		if err := app.Accept(); err != nil {
			return err
		}
		if err := uc.appRepo.Update(ctx, app); err != nil {
			return err
		}
		result.Application = app

		others, err := uc.appRepo.FindByTaskID(ctx, task.ID)
		if err != nil {
			return err
		}
		for _, other := range others {
			if other.ID == app.ID || !other.Status.IsOpen() {
				continue
			}
			if err := other.Reject(); err != nil {
				return err
			}
			if err := uc.appRepo.Update(ctx, other); err != nil {
				return err
			}
			result.Rejected = append(result.Rejected, other)
		}

		if err := task.StartWork(); err != nil {
			return err
		}
		if err := uc.taskRepo.Update(ctx, task); err != nil {
			return err
		}

		amount := app.ProposedBudget
		if in.Amount > 0 {
			amount = in.Amount
		}
		e, milestones, err := escrow.Prepare(escrow.CreateEscrowInput{
			ClientID:      in.ClientID,
			TaskID:        task.ID,
			FreelancerID:  app.FreelancerID,
			ApplicationID: &app.ID,
			Amount:        amount,
			Currency:      task.Currency,
			PaymentType:   in.PaymentType,
			Milestones:    in.Milestones,
		})
		if err != nil {
			return err
		}
		active, err := uc.store.Escrows().FindActiveByTaskID(ctx, task.ID)
		if err != nil {
			return err
		}
		if active != nil {
			return apperror.New(apperror.ErrCodeConflict, "task already has an active escrow")
		}
		receipt.Escrow = e
		if err := uc.store.Create(ctx, &receipt, milestones, &in.ClientID); err != nil {
			return err
		}
		result.Escrow = e

		conv, err := uc.convRepo.FindByParticipants(ctx, task.ID, task.ClientID, app.FreelancerID)
		if err != nil {
			return err
		}
		if conv == nil {
			if conv, err = entity.NewConversation(task.ID, task.ClientID, app.FreelancerID); err != nil {
				return err
			}
			if err := uc.convRepo.Create(ctx, conv); err != nil {
				return err
			}
		}
		result.Conversation = conv
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithField("application_id", result.Application.ID).
		WithField("rejected", len(result.Rejected)).Info("application accepted")
	uc.store.Publish(ctx, &receipt, escrow.EventEscrowUpdated, nil)
	uc.notify(ctx, result.Application.FreelancerID, EventApplicationAccepted, map[string]any{
		"application_id":  result.Application.ID,
		"task_id":         result.Application.TaskID,
		"escrow_id":       result.Escrow.ID,
		"conversation_id": result.Conversation.ID,
	})
	for _, r := range result.Rejected {
		uc.notify(ctx, r.FreelancerID, EventApplicationUpdated, statusPayload(r))
	}
	return &result, nil
}

func (uc *AcceptUseCase) notify(ctx context.Context, userID uuid.UUID, event string, data any) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.BroadcastToUser(userID, event, data); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("failed to push application event")
	}
}

func statusPayload(a *entity.Application) map[string]any {
	return map[string]any{
		"application_id": a.ID,
		"task_id":        a.TaskID,
		"status":         a.Status,
	}
}

// transition loads an application, checks the actor and saves the new status.
type transition struct {
	appRepo  repository.ApplicationRepository
	taskRepo repository.TaskRepository
	notifier escrow.Notifier
}

func (t transition) byClient(ctx context.Context, appID, clientID uuid.UUID, fn func(*entity.Application) error) (*entity.Application, error) {
	app, err := t.appRepo.FindByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	task, err := t.taskRepo.FindByID(ctx, app.TaskID)
	if err != nil {
		return nil, err
	}
	if !task.IsOwnedBy(clientID) {
		return nil, apperror.ErrForbidden
	}
	if err := fn(app); err != nil {
		return nil, err
	}
	if err := t.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	if t.notifier != nil {
		if err := t.notifier.BroadcastToUser(app.FreelancerID, EventApplicationUpdated, statusPayload(app)); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("failed to push application event")
		}
	}
	return app, nil
}

type RejectUseCase struct {
	transition
}

func NewRejectUseCase(appRepo repository.ApplicationRepository, taskRepo repository.TaskRepository, notifier escrow.Notifier) *RejectUseCase {
	return &RejectUseCase{transition{appRepo: appRepo, taskRepo: taskRepo, notifier: notifier}}
}

func (uc *RejectUseCase) Execute(ctx context.Context, appID, clientID uuid.UUID) (*entity.Application, error) {
	return uc.byClient(ctx, appID, clientID, (*entity.Application).Reject)
}

type InterviewUseCase struct {
	transition
}

func NewInterviewUseCase(appRepo repository.ApplicationRepository, taskRepo repository.TaskRepository, notifier escrow.Notifier) *InterviewUseCase {
	return &InterviewUseCase{transition{appRepo: appRepo, taskRepo: taskRepo, notifier: notifier}}
}

func (uc *InterviewUseCase) Execute(ctx context.Context, appID, clientID uuid.UUID) (*entity.Application, error) {
	return uc.byClient(ctx, appID, clientID, (*entity.Application).Interview)
}

type WithdrawUseCase struct {
	appRepo repository.ApplicationRepository
}

func NewWithdrawUseCase(appRepo repository.ApplicationRepository) *WithdrawUseCase {
	return &WithdrawUseCase{appRepo: appRepo}
}

// Execute withdraws a pending application. Anything further along is InvalidState.
func (uc *WithdrawUseCase) Execute(ctx context.Context, appID, freelancerID uuid.UUID) (*entity.Application, error) {
	app, err := uc.appRepo.FindByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !app.IsOwnedBy(freelancerID) {
		return nil, apperror.ErrForbidden
	}
	if app.Status != valueobject.ApplicationStatusPending {
		return nil, apperror.InvalidState("application", string(app.Status), "be withdrawn")
	}
	if err := app.Withdraw(); err != nil {
		return nil, err
	}
	if err := uc.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

type GetUseCase struct {
	appRepo  repository.ApplicationRepository
	taskRepo repository.TaskRepository
}

func NewGetUseCase(appRepo repository.ApplicationRepository, taskRepo repository.TaskRepository) *GetUseCase {
	return &GetUseCase{appRepo: appRepo, taskRepo: taskRepo}
}

// Execute shows an application to its freelancer and to the task owner.
func (uc *GetUseCase) Execute(ctx context.Context, appID, userID uuid.UUID) (*entity.Application, error) {
	app, err := uc.appRepo.FindByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.IsOwnedBy(userID) {
		return app, nil
	}
	task, err := uc.taskRepo.FindByID(ctx, app.TaskID)
	if err != nil {
		return nil, err
	}
	if !task.IsOwnedBy(userID) {
		return nil, apperror.ErrForbidden
	}
	return app, nil
}

type ListForTaskUseCase struct {
	appRepo  repository.ApplicationRepository
	taskRepo repository.TaskRepository
}

func NewListForTaskUseCase(appRepo repository.ApplicationRepository, taskRepo repository.TaskRepository) *ListForTaskUseCase {
	return &ListForTaskUseCase{appRepo: appRepo, taskRepo: taskRepo}
}

func (uc *ListForTaskUseCase) Execute(ctx context.Context, taskID, clientID uuid.UUID) ([]*entity.Application, error) {
	task, err := uc.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsOwnedBy(clientID) {
		return nil, apperror.ErrForbidden
	}
	return uc.appRepo.FindByTaskID(ctx, taskID)
}

type ListMineUseCase struct {
	appRepo repository.ApplicationRepository
}

func NewListMineUseCase(appRepo repository.ApplicationRepository) *ListMineUseCase {
	return &ListMineUseCase{appRepo: appRepo}
}

func (uc *ListMineUseCase) Execute(ctx context.Context, freelancerID uuid.UUID) ([]*entity.Application, error) {
	return uc.appRepo.FindByFreelancerID(ctx, freelancerID)
}
