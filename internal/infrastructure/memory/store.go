// Package memory keeps every repository in process memory. Use case tests run
// against it; it honours versions, unique keys and transaction rollback the way
// the Postgres schema does.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type txKey struct{}

type state struct {
	users         map[uuid.UUID]entity.User
	sessions      map[string]entity.Session
	tasks         map[uuid.UUID]entity.Task
	applications  map[uuid.UUID]entity.Application
	escrows       map[uuid.UUID]entity.Escrow
	events        []entity.EscrowEvent
	milestones    map[uuid.UUID]entity.Milestone
	disputes      map[uuid.UUID]entity.Dispute
	ledger        []entity.LedgerEntry
	verifications map[uuid.UUID]entity.VerificationRequest
	conversations map[uuid.UUID]entity.Conversation
	messages      []entity.Message
}

func newState() state {
	return state{
		users:         map[uuid.UUID]entity.User{},
		sessions:      map[string]entity.Session{},
		tasks:         map[uuid.UUID]entity.Task{},
		applications:  map[uuid.UUID]entity.Application{},
		escrows:       map[uuid.UUID]entity.Escrow{},
		milestones:    map[uuid.UUID]entity.Milestone{},
		disputes:      map[uuid.UUID]entity.Dispute{},
		verifications: map[uuid.UUID]entity.VerificationRequest{},
		conversations: map[uuid.UUID]entity.Conversation{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.applications {
		c.applications[k] = v
	}
	for k, v := range s.escrows {
		c.escrows[k] = v
	}
	for k, v := range s.milestones {
		c.milestones[k] = v
	}
	for k, v := range s.disputes {
		c.disputes[k] = v
	}
	for k, v := range s.verifications {
		c.verifications[k] = v
	}
	for k, v := range s.conversations {
		c.conversations[k] = v
	}
	c.events = append([]entity.EscrowEvent(nil), s.events...)
	c.ledger = append([]entity.LedgerEntry(nil), s.ledger...)
	c.messages = append([]entity.Message(nil), s.messages...)
	return c
}

// Store implements every repository interface plus repository.Transactor.
type Store struct {
	mu    sync.Mutex
	data  state
	fails map[string]error
}

func NewStore() *Store {
	return &Store{data: newState(), fails: map[string]error{}}
}

// FailOn makes the next call of op (e.g. "conversations.Create") return err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[op] = err
}

func (s *Store) fail(op string) error {
	if err, ok := s.fails[op]; ok {
		delete(s.fails, op)
		return err
	}
	return nil
}

// WithinTx snapshots the state and restores it when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func conflict(constraint string) error {
	return apperror.New(apperror.ErrCodeConflict, "record already exists: "+constraint)
}

func (s *Store) Tasks() repository.TaskRepository                 { return taskRepo{s} }
func (s *Store) Applications() repository.ApplicationRepository   { return applicationRepo{s} }
func (s *Store) Escrows() repository.EscrowRepository             { return escrowRepo{s} }
func (s *Store) Milestones() repository.MilestoneRepository       { return milestoneRepo{s} }
func (s *Store) Disputes() repository.DisputeRepository           { return disputeRepo{s} }
func (s *Store) Ledger() repository.LedgerRepository              { return ledgerRepo{s} }
func (s *Store) Verifications() repository.VerificationRepository { return verificationRepo{s} }
func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Sessions() repository.SessionRepository           { return sessionRepo{s} }
func (s *Store) Conversations() repository.ConversationRepository { return conversationRepo{s} }
func (s *Store) Messages() repository.MessageRepository           { return messageRepo{s} }

// ---- tasks

type taskRepo struct{ s *Store }

func (r taskRepo) Create(_ context.Context, t *entity.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("tasks.Create"); err != nil {
		return err
	}
	if _, ok := r.s.data.tasks[t.ID]; ok {
		return conflict("tasks_pkey")
	}
	r.s.data.tasks[t.ID] = *t
	return nil
}

func (r taskRepo) Update(_ context.Context, t *entity.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("tasks.Update"); err != nil {
		return err
	}
	cur, ok := r.s.data.tasks[t.ID]
	if !ok || cur.Version != t.Version {
		return apperror.ErrStaleVersion
	}
	t.Version++
	r.s.data.tasks[t.ID] = *t
	return nil
}

func (r taskRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tasks[id]
	if !ok {
		return nil, apperror.ErrTaskNotFound
	}
	return &t, nil
}

func (r taskRepo) List(_ context.Context, f repository.TaskFilter) ([]*entity.Task, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*entity.Task
	for _, t := range r.s.data.tasks {
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if q := strings.ToLower(f.Search); q != "" &&
			!strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		all = append(all, &t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, f.Limit, f.Offset), len(all), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ---- applications

type applicationRepo struct{ s *Store }

func (r applicationRepo) checkUnique(a *entity.Application) error {
	for id, other := range r.s.data.applications {
		if id == a.ID || other.TaskID != a.TaskID {
			continue
		}
		if other.FreelancerID == a.FreelancerID {
			return conflict("applications_task_freelancer_key")
		}
		if a.Status == valueobject.ApplicationStatusAccepted && other.Status == valueobject.ApplicationStatusAccepted {
			return conflict("applications_one_accepted_per_task")
		}
	}
	return nil
}

func (r applicationRepo) Create(_ context.Context, a *entity.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("applications.Create"); err != nil {
		return err
	}
	if _, ok := r.s.data.tasks[a.TaskID]; !ok {
		return apperror.New(apperror.ErrCodeNotFound, "referenced record does not exist")
	}
	if err := r.checkUnique(a); err != nil {
		return err
	}
	r.s.data.applications[a.ID] = *a
	return nil
}

func (r applicationRepo) Update(_ context.Context, a *entity.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("applications.Update"); err != nil {
		return err
	}
	cur, ok := r.s.data.applications[a.ID]
	if !ok || cur.Version != a.Version {
		return apperror.ErrStaleVersion
	}
	if err := r.checkUnique(a); err != nil {
		return err
	}
	a.Version++
	r.s.data.applications[a.ID] = *a
	return nil
}

func (r applicationRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.data.applications[id]
	if !ok {
		return nil, apperror.ErrApplicationNotFound
	}
	return &a, nil
}

func (r applicationRepo) filter(keep func(entity.Application) bool) []*entity.Application {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.Application{}
	for _, a := range r.s.data.applications {
		if keep(a) {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.After(out[j].AppliedAt) })
	return out
}

func (r applicationRepo) FindByTaskID(_ context.Context, taskID uuid.UUID) ([]*entity.Application, error) {
	return r.filter(func(a entity.Application) bool { return a.TaskID == taskID }), nil
}

func (r applicationRepo) FindByFreelancerID(_ context.Context, freelancerID uuid.UUID) ([]*entity.Application, error) {
	return r.filter(func(a entity.Application) bool { return a.FreelancerID == freelancerID }), nil
}

func (r applicationRepo) FindByTaskAndFreelancer(_ context.Context, taskID, freelancerID uuid.UUID) (*entity.Application, error) {
	found := r.filter(func(a entity.Application) bool { return a.TaskID == taskID && a.FreelancerID == freelancerID })
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

// ---- escrows

type escrowRepo struct{ s *Store }

func (r escrowRepo) checkUnique(e *entity.Escrow) error {
	for id, other := range r.s.data.escrows {
		if id == e.ID {
			continue
		}
		if e.PaymentReference != nil && other.PaymentReference != nil && *e.PaymentReference == *other.PaymentReference {
			return conflict("escrows_payment_reference_key")
		}
		if e.IdempotencyKey != nil && other.IdempotencyKey != nil && other.ClientID == e.ClientID && *e.IdempotencyKey == *other.IdempotencyKey {
			return conflict("escrows_client_idempotency_key")
		}
		if other.TaskID == e.TaskID && !other.Status.IsTerminal() && !e.Status.IsTerminal() {
			return conflict("escrows_one_active_per_task")
		}
	}
	if e.ReleasedAmount < 0 || e.ReleasedAmount > e.Amount.Amount {
		return apperror.New(apperror.ErrCodeValidation, "constraint violated: escrows_released_le_amount")
	}
	return nil
}

func (r escrowRepo) Create(_ context.Context, e *entity.Escrow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("escrows.Create"); err != nil {
		return err
	}
	if err := r.checkUnique(e); err != nil {
		return err
	}
	r.s.data.escrows[e.ID] = *e
	return nil
}

func (r escrowRepo) Update(_ context.Context, e *entity.Escrow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("escrows.Update"); err != nil {
		return err
	}
	cur, ok := r.s.data.escrows[e.ID]
	if !ok || cur.Version != e.Version {
		return apperror.ErrStaleVersion
	}
	if err := r.checkUnique(e); err != nil {
		return err
	}
	e.Version++
	stored := *e
	_ = stored.PullChanges()
	r.s.data.escrows[e.ID] = stored
	return nil
}

func (r escrowRepo) findFirst(match func(entity.Escrow) bool) *entity.Escrow {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.data.escrows {
		if match(e) {
			return &e
		}
	}
	return nil
}

func (r escrowRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Escrow, error) {
	if e := r.findFirst(func(e entity.Escrow) bool { return e.ID == id }); e != nil {
		return e, nil
	}
	return nil, apperror.ErrEscrowNotFound
}

func (r escrowRepo) FindByIdempotencyKey(_ context.Context, clientID uuid.UUID, key string) (*entity.Escrow, error) {
	return r.findFirst(func(e entity.Escrow) bool {
		return e.ClientID == clientID && e.IdempotencyKey != nil && *e.IdempotencyKey == key
	}), nil
}

func (r escrowRepo) FindByPaymentReference(_ context.Context, reference string) (*entity.Escrow, error) {
	if e := r.findFirst(func(e entity.Escrow) bool {
		return e.PaymentReference != nil && *e.PaymentReference == reference
	}); e != nil {
		return e, nil
	}
	return nil, apperror.ErrEscrowNotFound
}

func (r escrowRepo) FindActiveByTaskID(_ context.Context, taskID uuid.UUID) (*entity.Escrow, error) {
	return r.findFirst(func(e entity.Escrow) bool { return e.TaskID == taskID && !e.Status.IsTerminal() }), nil
}

func (r escrowRepo) FindByUserID(_ context.Context, userID uuid.UUID) ([]*entity.Escrow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.Escrow{}
	for _, e := range r.s.data.escrows {
		if e.IsParticipant(userID) {
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r escrowRepo) AppendEvents(_ context.Context, escrowID uuid.UUID, actorID *uuid.UUID, changes []entity.StatusChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("escrows.AppendEvents"); err != nil {
		return err
	}
	for _, c := range changes {
		r.s.data.events = append(r.s.data.events, entity.EscrowEvent{
			ID:        uuid.New(),
			EscrowID:  escrowID,
			ActorID:   actorID,
			From:      string(c.From),
			To:        string(c.To),
			CreatedAt: c.At,
		})
	}
	return nil
}

func (r escrowRepo) ListEvents(_ context.Context, escrowID uuid.UUID) ([]*entity.EscrowEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.EscrowEvent{}
	for _, ev := range r.s.data.events {
		if ev.EscrowID == escrowID {
			out = append(out, &ev)
		}
	}
	return out, nil
}

// ---- milestones

type milestoneRepo struct{ s *Store }

func cloneMilestone(m entity.Milestone) *entity.Milestone {
	m.Deliverables = append([]string(nil), m.Deliverables...)
	m.Submissions = append([]entity.Submission(nil), m.Submissions...)
	return &m
}

func (r milestoneRepo) CreateBatch(_ context.Context, ms []*entity.Milestone) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("milestones.CreateBatch"); err != nil {
		return err
	}
	for _, m := range ms {
		if _, ok := r.s.data.escrows[m.EscrowID]; !ok {
			return apperror.New(apperror.ErrCodeNotFound, "referenced record does not exist")
		}
		for _, other := range r.s.data.milestones {
			if other.EscrowID == m.EscrowID && other.Position == m.Position {
				return conflict("escrow_milestones_position_key")
			}
		}
		r.s.data.milestones[m.ID] = *cloneMilestone(*m)
	}
	return nil
}

func (r milestoneRepo) Update(_ context.Context, m *entity.Milestone) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("milestones.Update"); err != nil {
		return err
	}
	cur, ok := r.s.data.milestones[m.ID]
	if !ok || cur.Version != m.Version {
		return apperror.ErrStaleVersion
	}
	m.Version++
	r.s.data.milestones[m.ID] = *cloneMilestone(*m)
	return nil
}

func (r milestoneRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Milestone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.data.milestones[id]
	if !ok {
		return nil, apperror.ErrMilestoneNotFound
	}
	return cloneMilestone(m), nil
}

func (r milestoneRepo) FindByEscrowID(_ context.Context, escrowID uuid.UUID) ([]*entity.Milestone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.Milestone{}
	for _, m := range r.s.data.milestones {
		if m.EscrowID == escrowID {
			out = append(out, cloneMilestone(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// ---- disputes

type disputeRepo struct{ s *Store }

func (r disputeRepo) Create(_ context.Context, d *entity.Dispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("disputes.Create"); err != nil {
		return err
	}
	for _, other := range r.s.data.disputes {
		if other.EscrowID == d.EscrowID && other.IsActive() {
			return conflict("disputes_one_active_per_escrow")
		}
	}
	r.s.data.disputes[d.ID] = *d
	return nil
}

func (r disputeRepo) Update(_ context.Context, d *entity.Dispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("disputes.Update"); err != nil {
		return err
	}
	cur, ok := r.s.data.disputes[d.ID]
	if !ok || cur.Version != d.Version {
		return apperror.ErrStaleVersion
	}
	d.Version++
	r.s.data.disputes[d.ID] = *d
	return nil
}

func (r disputeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.data.disputes[id]
	if !ok {
		return nil, apperror.ErrDisputeNotFound
	}
	return &d, nil
}

func (r disputeRepo) FindByEscrowID(_ context.Context, escrowID uuid.UUID) ([]*entity.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.Dispute{}
	for _, d := range r.s.data.disputes {
		if d.EscrowID == escrowID {
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r disputeRepo) ListActive(_ context.Context, limit, offset int) ([]*entity.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.Dispute{}
	for _, d := range r.s.data.disputes {
		if d.IsActive() {
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

// ---- ledger

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) Append(_ context.Context, e *entity.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("ledger.Append"); err != nil {
		return err
	}
	r.s.data.ledger = append(r.s.data.ledger, *e)
	return nil
}

func (r ledgerRepo) FindByEscrowID(_ context.Context, escrowID uuid.UUID) ([]*entity.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.LedgerEntry{}
	for _, e := range r.s.data.ledger {
		if e.EscrowID == escrowID {
			out = append(out, &e)
		}
	}
	return out, nil
}

// ---- verification

type verificationRepo struct{ s *Store }

func (r verificationRepo) Create(_ context.Context, v *entity.VerificationRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("verifications.Create"); err != nil {
		return err
	}
	for _, other := range r.s.data.verifications {
		if other.UserID == v.UserID && !other.Status.IsFinal() {
			return conflict("verification_one_active_per_user")
		}
	}
	r.s.data.verifications[v.ID] = *v
	return nil
}

func (r verificationRepo) Update(_ context.Context, v *entity.VerificationRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("verifications.Update"); err != nil {
		return err
	}
	cur, ok := r.s.data.verifications[v.ID]
	if !ok || cur.Version != v.Version {
		return apperror.ErrStaleVersion
	}
	if v.ProviderReference != nil {
		for id, other := range r.s.data.verifications {
			if id != v.ID && other.ProviderReference != nil && *other.ProviderReference == *v.ProviderReference {
				return conflict("verification_requests_provider_reference_key")
			}
		}
	}
	v.Version++
	r.s.data.verifications[v.ID] = *v
	return nil
}

func (r verificationRepo) find(match func(entity.VerificationRequest) bool) []*entity.VerificationRequest {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.VerificationRequest{}
	for _, v := range r.s.data.verifications {
		if match(v) {
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r verificationRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.VerificationRequest, error) {
	found := r.find(func(v entity.VerificationRequest) bool { return v.ID == id })
	if len(found) == 0 {
		return nil, apperror.ErrVerificationNotFound
	}
	return found[0], nil
}

func (r verificationRepo) FindByProviderReference(_ context.Context, ref string) (*entity.VerificationRequest, error) {
	found := r.find(func(v entity.VerificationRequest) bool {
		return v.ProviderReference != nil && *v.ProviderReference == ref
	})
	if len(found) == 0 {
		return nil, apperror.ErrVerificationNotFound
	}
	return found[0], nil
}

func (r verificationRepo) FindActiveByUserID(_ context.Context, userID uuid.UUID) (*entity.VerificationRequest, error) {
	found := r.find(func(v entity.VerificationRequest) bool { return v.UserID == userID && !v.Status.IsFinal() })
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r verificationRepo) FindByUserID(_ context.Context, userID uuid.UUID) ([]*entity.VerificationRequest, error) {
	return r.find(func(v entity.VerificationRequest) bool { return v.UserID == userID }), nil
}

func (r verificationRepo) List(_ context.Context, f repository.VerificationFilter) ([]*entity.VerificationRequest, int, error) {
	all := r.find(func(v entity.VerificationRequest) bool { return f.Status == nil || v.Status == *f.Status })
	return page(all, f.Limit, f.Offset), len(all), nil
}

// ---- users and sessions

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.data.users {
		if other.Email == u.Email {
			return apperror.ErrEmailTaken
		}
	}
	r.s.data.users[u.ID] = *u
	return nil
}

func (r userRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}
	return &u, nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperror.ErrUserNotFound
}

func (r userRepo) SetVerified(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.SetVerified"); err != nil {
		return err
	}
	cur, ok := r.s.data.users[u.ID]
	if !ok {
		return apperror.ErrUserNotFound
	}
	cur.IsVerified = u.IsVerified
	cur.VerifiedAt = u.VerifiedAt
	cur.UpdatedAt = u.UpdatedAt
	r.s.data.users[u.ID] = cur
	return nil
}

type sessionRepo struct{ s *Store }

func (r sessionRepo) Create(_ context.Context, sess *entity.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.sessions[sess.RefreshToken]; ok {
		return conflict("sessions_refresh_token_key")
	}
	r.s.data.sessions[sess.RefreshToken] = *sess
	return nil
}

func (r sessionRepo) FindByRefreshToken(_ context.Context, token string) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.data.sessions[token]
	if !ok {
		return nil, apperror.ErrInvalidToken
	}
	return &sess, nil
}

func (r sessionRepo) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.data.sessions, token)
	return nil
}

// ---- conversations

type conversationRepo struct{ s *Store }

func (r conversationRepo) Create(_ context.Context, c *entity.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("conversations.Create"); err != nil {
		return err
	}
	for _, other := range r.s.data.conversations {
		if other.TaskID == c.TaskID && other.ClientID == c.ClientID && other.FreelancerID == c.FreelancerID {
			return conflict("conversations_participants_key")
		}
	}
	r.s.data.conversations[c.ID] = *c
	return nil
}

func (r conversationRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.conversations[id]
	if !ok {
		return nil, apperror.ErrConversationNotFound
	}
	return &c, nil
}

func (r conversationRepo) FindByParticipants(_ context.Context, taskID, clientID, freelancerID uuid.UUID) (*entity.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.data.conversations {
		if c.TaskID == taskID && c.ClientID == clientID && c.FreelancerID == freelancerID {
			return &c, nil
		}
	}
	return nil, nil
}

func (r conversationRepo) FindByUserID(_ context.Context, userID uuid.UUID) ([]*entity.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.Conversation{}
	for _, c := range r.s.data.conversations {
		if c.IsParticipant(userID) {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, m *entity.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.conversations[m.ConversationID]
	if !ok {
		return apperror.New(apperror.ErrCodeNotFound, "referenced record does not exist")
	}
	r.s.data.messages = append(r.s.data.messages, *m)
	c.UpdatedAt = m.CreatedAt
	r.s.data.conversations[c.ID] = c
	return nil
}

func (r messageRepo) FindByConversationID(_ context.Context, conversationID uuid.UUID, limit, offset int) ([]*entity.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.Message{}
	for i := len(r.s.data.messages) - 1; i >= 0; i-- {
		if m := r.s.data.messages[i]; m.ConversationID == conversationID {
			out = append(out, &m)
		}
	}
	return page(out, limit, offset), nil
}

// SeedUser stores a user directly, bypassing registration.
func (s *Store) SeedUser(role valueobject.Role) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	u := entity.User{
		ID:          id,
		Email:       fmt.Sprintf("%s-%s@example.com", role, id.String()[:8]),
		DisplayName: string(role),
		Role:        role,
	}
	s.data.users[id] = u
	return &u
}

// LedgerTotal sums booked amounts of one kind for an escrow.
func (s *Store) LedgerTotal(escrowID uuid.UUID, kind entity.LedgerKind) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, e := range s.data.ledger {
		if e.EscrowID == escrowID && e.Kind == kind {
			total += e.Amount
		}
	}
	return total
}
