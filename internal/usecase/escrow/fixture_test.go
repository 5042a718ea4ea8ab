package escrow_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/gateway"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/infrastructure/memory"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/escrow"
)

func TestMain(m *testing.M) {
	logger.Silence()
	os.Exit(m.Run())
}

type fakePayments struct {
	tx    *gateway.PaymentTransaction
	err   error
	calls int
}

func (f *fakePayments) VerifyTransaction(_ context.Context, reference string) (*gateway.PaymentTransaction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

type pushed struct {
	userID uuid.UUID
	event  string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []pushed
}

func (n *fakeNotifier) BroadcastToUser(userID uuid.UUID, event string, _ any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, pushed{userID: userID, event: event})
	return nil
}

func (n *fakeNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.event == event {
			c++
		}
	}
	return c
}

type fakeRecorder struct {
	transitions []string
	booked      map[string]int64
}

func (r *fakeRecorder) EscrowTransition(from, to string) {
	r.transitions = append(r.transitions, from+">"+to)
}

func (r *fakeRecorder) LedgerBooked(kind, _ string, amount int64) {
	if r.booked == nil {
		r.booked = map[string]int64{}
	}
	r.booked[kind] += amount
}

type fixture struct {
	mem        *memory.Store
	store      *escrow.Store
	notifier   *fakeNotifier
	recorder   *fakeRecorder
	client     *entity.User
	freelancer *entity.User
	admin      *entity.User
	task       *entity.Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.NewStore()
	f := &fixture{
		mem:        mem,
		notifier:   &fakeNotifier{},
		recorder:   &fakeRecorder{},
		client:     mem.SeedUser(valueobject.RoleClient),
		freelancer: mem.SeedUser(valueobject.RoleFreelancer),
		admin:      mem.SeedUser(valueobject.RoleAdmin),
	}
	f.store = escrow.NewStore(mem, mem.Escrows(), mem.Milestones(), mem.Ledger(), f.notifier, f.recorder)

	task, err := entity.NewTask(f.client.ID, "Landing page", "Build a landing page", 300000, valueobject.BudgetTypeFixed, "NGN")
	require.NoError(t, err)
	require.NoError(t, task.StartWork())
	require.NoError(t, mem.Tasks().Create(context.Background(), task))
	f.task = task
	return f
}

func (f *fixture) createEscrow(t *testing.T, in escrow.CreateEscrowInput) *entity.Escrow {
	t.Helper()
	if in.ClientID == uuid.Nil {
		in.ClientID = f.client.ID
	}
	if in.TaskID == uuid.Nil {
		in.TaskID = f.task.ID
	}
	if in.FreelancerID == uuid.Nil {
		in.FreelancerID = f.freelancer.ID
	}
	uc := escrow.NewCreateEscrowUseCase(f.store, f.mem.Tasks(), f.mem.Users())
	e, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)
	return e
}

func (f *fixture) fundWithTestBypass(t *testing.T, escrowID uuid.UUID) *entity.Escrow {
	t.Helper()
	uc := escrow.NewFundEscrowUseCase(f.store, nil, escrow.FundingPolicy{TestBypass: true})
	e, err := uc.Execute(context.Background(), escrowID, f.client.ID, "TEST_"+uuid.NewString())
	require.NoError(t, err)
	return e
}
