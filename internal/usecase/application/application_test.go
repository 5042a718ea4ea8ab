package application_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/infrastructure/memory"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/application"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/escrow"
)

func TestMain(m *testing.M) {
	logger.Silence()
	os.Exit(m.Run())
}

type recordingNotifier struct {
	events map[uuid.UUID][]string
}

func (n *recordingNotifier) BroadcastToUser(userID uuid.UUID, event string, _ any) error {
	if n.events == nil {
		n.events = map[uuid.UUID][]string{}
	}
	n.events[userID] = append(n.events[userID], event)
	return nil
}

type fixture struct {
	mem      *memory.Store
	store    *escrow.Store
	notifier *recordingNotifier
	client   *entity.User
	task     *entity.Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.NewStore()
	n := &recordingNotifier{}
	f := &fixture{
		mem:      mem,
		notifier: n,
		store:    escrow.NewStore(mem, mem.Escrows(), mem.Milestones(), mem.Ledger(), n, nil),
		client:   mem.SeedUser(valueobject.RoleClient),
	}
	task, err := entity.NewTask(f.client.ID, "Logo design", "A logo for a bakery", 50000, valueobject.BudgetTypeFixed, "NGN")
	require.NoError(t, err)
	require.NoError(t, mem.Tasks().Create(context.Background(), task))
	f.task = task
	return f
}

func (f *fixture) apply(t *testing.T, budget int64) *entity.Application {
	t.Helper()
	freelancer := f.mem.SeedUser(valueobject.RoleFreelancer)
	app, err := application.NewApplyUseCase(f.mem.Applications(), f.mem.Tasks()).Execute(context.Background(), application.ApplyInput{
		TaskID:         f.task.ID,
		FreelancerID:   freelancer.ID,
		ProposedBudget: budget,
		CoverLetter:    "I have done this before",
	})
	require.NoError(t, err)
	return app
}

func (f *fixture) accept() *application.AcceptUseCase {
	return application.NewAcceptUseCase(f.store, f.mem.Applications(), f.mem.Tasks(), f.mem.Conversations(), f.notifier)
}

func TestApplyRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	apply := application.NewApplyUseCase(f.mem.Applications(), f.mem.Tasks())
	freelancer := f.mem.SeedUser(valueobject.RoleFreelancer)
	in := application.ApplyInput{TaskID: f.task.ID, FreelancerID: freelancer.ID, ProposedBudget: 50000, CoverLetter: "hello"}

	app, err := apply.Execute(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ApplicationStatusPending, app.Status)
	assert.Equal(t, valueobject.BudgetTypeFixed, app.BudgetType)

	_, err = apply.Execute(ctx, in)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))

	mine, err := application.NewListMineUseCase(f.mem.Applications()).Execute(ctx, freelancer.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestApplyValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	apply := application.NewApplyUseCase(f.mem.Applications(), f.mem.Tasks())
	freelancer := f.mem.SeedUser(valueobject.RoleFreelancer)

	_, err := apply.Execute(ctx, application.ApplyInput{TaskID: f.task.ID, FreelancerID: f.client.ID, ProposedBudget: 100, CoverLetter: "me"})
	assert.True(t, apperror.IsForbidden(err), "own task")

	_, err = apply.Execute(ctx, application.ApplyInput{TaskID: f.task.ID, FreelancerID: freelancer.ID, ProposedBudget: 0, CoverLetter: "hi"})
	assert.True(t, apperror.IsValidation(err), "zero budget")

	_, err = apply.Execute(ctx, application.ApplyInput{TaskID: f.task.ID, FreelancerID: freelancer.ID, ProposedBudget: 100, CoverLetter: " "})
	assert.True(t, apperror.IsValidation(err), "empty cover letter")

	_, err = apply.Execute(ctx, application.ApplyInput{TaskID: uuid.New(), FreelancerID: freelancer.ID, ProposedBudget: 100, CoverLetter: "hi"})
	assert.True(t, apperror.IsNotFound(err))
}

func TestAcceptHiresAtomically(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	chosen := f.apply(t, 50000)
	second := f.apply(t, 45000)
	third := f.apply(t, 60000)

	_, err := application.NewInterviewUseCase(f.mem.Applications(), f.mem.Tasks(), nil).Execute(ctx, third.ID, f.client.ID)
	require.NoError(t, err)

	res, err := f.accept().Execute(ctx, application.AcceptInput{ApplicationID: chosen.ID, ClientID: f.client.ID})
	require.NoError(t, err)

	assert.Equal(t, valueobject.ApplicationStatusAccepted, res.Application.Status)
	assert.Len(t, res.Rejected, 2)
	for _, id := range []uuid.UUID{second.ID, third.ID} {
		got, err := f.mem.Applications().FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, valueobject.ApplicationStatusRejected, got.Status)
	}

	task, err := f.mem.Tasks().FindByID(ctx, f.task.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.TaskStatusInProgress, task.Status)

	require.NotNil(t, res.Escrow)
	assert.Equal(t, valueobject.EscrowStatusPending, res.Escrow.Status)
	assert.Equal(t, int64(50000), res.Escrow.Amount.Amount)
	assert.Equal(t, chosen.FreelancerID, res.Escrow.FreelancerID)
	require.NotNil(t, res.Escrow.ApplicationID)
	assert.Equal(t, chosen.ID, *res.Escrow.ApplicationID)

	require.NotNil(t, res.Conversation)
	assert.True(t, res.Conversation.IsParticipant(chosen.FreelancerID))

	assert.Contains(t, f.notifier.events[chosen.FreelancerID], application.EventApplicationAccepted)
	assert.Contains(t, f.notifier.events[second.FreelancerID], application.EventApplicationUpdated)
}

func TestAcceptRollsBackWhenConversationFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	chosen := f.apply(t, 50000)
	other := f.apply(t, 40000)
	f.mem.FailOn("conversations.Create", errors.New("connection reset"))

	_, err := f.accept().Execute(ctx, application.AcceptInput{ApplicationID: chosen.ID, ClientID: f.client.ID})
	require.Error(t, err)

	for _, id := range []uuid.UUID{chosen.ID, other.ID} {
		got, err := f.mem.Applications().FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, valueobject.ApplicationStatusPending, got.Status)
	}
	task, err := f.mem.Tasks().FindByID(ctx, f.task.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.TaskStatusOpen, task.Status)

	active, err := f.mem.Escrows().FindActiveByTaskID(ctx, f.task.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	res, err := f.accept().Execute(ctx, application.AcceptInput{ApplicationID: chosen.ID, ClientID: f.client.ID})
	require.NoError(t, err, "accept succeeds once the failure is gone")
	assert.Equal(t, valueobject.ApplicationStatusAccepted, res.Application.Status)
}

func TestAcceptWithMilestones(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	chosen := f.apply(t, 50000)

	_, err := f.accept().Execute(ctx, application.AcceptInput{
		ApplicationID: chosen.ID,
		ClientID:      f.client.ID,
		PaymentType:   valueobject.PaymentTypeMilestones,
		Milestones:    []escrow.MilestoneInput{{Title: "Sketches", Amount: 20000}, {Title: "Final", Amount: 20000}},
	})
	assert.True(t, apperror.IsValidation(err), "milestones must add up to the amount")

	res, err := f.accept().Execute(ctx, application.AcceptInput{
		ApplicationID: chosen.ID,
		ClientID:      f.client.ID,
		PaymentType:   valueobject.PaymentTypeMilestones,
		Amount:        40000,
		Milestones:    []escrow.MilestoneInput{{Title: "Sketches", Amount: 20000}, {Title: "Final", Amount: 20000}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(40000), res.Escrow.Amount.Amount)

	ms, err := f.mem.Milestones().FindByEscrowID(ctx, res.Escrow.ID)
	require.NoError(t, err)
	assert.Len(t, ms, 2)
}

func TestAcceptChecks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	chosen := f.apply(t, 50000)
	other := f.apply(t, 40000)

	_, err := f.accept().Execute(ctx, application.AcceptInput{ApplicationID: chosen.ID, ClientID: chosen.FreelancerID})
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.accept().Execute(ctx, application.AcceptInput{ApplicationID: chosen.ID, ClientID: f.client.ID})
	require.NoError(t, err)

	_, err = f.accept().Execute(ctx, application.AcceptInput{ApplicationID: other.ID, ClientID: f.client.ID})
	assert.True(t, apperror.IsInvalidState(err), "other application was rejected by the first accept")
}

func TestWithdrawOnlyWhilePending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	withdraw := application.NewWithdrawUseCase(f.mem.Applications())

	pending := f.apply(t, 50000)
	_, err := withdraw.Execute(ctx, pending.ID, f.client.ID)
	assert.True(t, apperror.IsForbidden(err))

	got, err := withdraw.Execute(ctx, pending.ID, pending.FreelancerID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ApplicationStatusWithdrawn, got.Status)

	interviewing := f.apply(t, 50000)
	_, err = application.NewInterviewUseCase(f.mem.Applications(), f.mem.Tasks(), nil).Execute(ctx, interviewing.ID, f.client.ID)
	require.NoError(t, err)
	_, err = withdraw.Execute(ctx, interviewing.ID, interviewing.FreelancerID)
	assert.True(t, apperror.IsInvalidState(err))

	rejected := f.apply(t, 50000)
	_, err = application.NewRejectUseCase(f.mem.Applications(), f.mem.Tasks(), f.notifier).Execute(ctx, rejected.ID, f.client.ID)
	require.NoError(t, err)
	_, err = withdraw.Execute(ctx, rejected.ID, rejected.FreelancerID)
	assert.True(t, apperror.IsInvalidState(err))

	accepted := f.apply(t, 50000)
	_, err = f.accept().Execute(ctx, application.AcceptInput{ApplicationID: accepted.ID, ClientID: f.client.ID})
	require.NoError(t, err)
	_, err = withdraw.Execute(ctx, accepted.ID, accepted.FreelancerID)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestApplicationVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	app := f.apply(t, 50000)
	stranger := f.mem.SeedUser(valueobject.RoleFreelancer)
	get := application.NewGetUseCase(f.mem.Applications(), f.mem.Tasks())

	_, err := get.Execute(ctx, app.ID, app.FreelancerID)
	assert.NoError(t, err)
	_, err = get.Execute(ctx, app.ID, f.client.ID)
	assert.NoError(t, err)
	_, err = get.Execute(ctx, app.ID, stranger.ID)
	assert.True(t, apperror.IsForbidden(err))

	list := application.NewListForTaskUseCase(f.mem.Applications(), f.mem.Tasks())
	apps, err := list.Execute(ctx, f.task.ID, f.client.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
	_, err = list.Execute(ctx, f.task.ID, stranger.ID)
	assert.True(t, apperror.IsForbidden(err))
}
