package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

func newTestEscrow(t *testing.T, paymentType valueobject.PaymentType) *Escrow {
	t.Helper()
	e, err := NewEscrow(NewEscrowParams{
		TaskID:       uuid.New(),
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		Amount:       300000,
		PaymentType:  paymentType,
	})
	require.NoError(t, err)
	return e
}

func TestNewEscrow_Validation(t *testing.T) {
	same := uuid.New()
	_, err := NewEscrow(NewEscrowParams{TaskID: uuid.New(), ClientID: same, FreelancerID: same, Amount: 100})
	assert.True(t, apperror.IsValidation(err))

	_, err = NewEscrow(NewEscrowParams{TaskID: uuid.New(), ClientID: uuid.New(), FreelancerID: uuid.New(), Amount: 0})
	assert.True(t, apperror.IsValidation(err))

	e := newTestEscrow(t, "")
	assert.Equal(t, valueobject.EscrowStatusPending, e.Status)
	assert.Equal(t, valueobject.PaymentTypeFull, e.PaymentType)
	assert.Equal(t, "NGN", e.Amount.Currency)
}

func TestEscrow_HappyPath(t *testing.T) {
	e := newTestEscrow(t, valueobject.PaymentTypeFull)

	require.NoError(t, e.Fund("REF123"))
	assert.Equal(t, valueobject.EscrowStatusFunded, e.Status)
	assert.Equal(t, "REF123", *e.PaymentReference)
	require.NotNil(t, e.FundedAt)

	require.NoError(t, e.Complete())
	assert.Equal(t, valueobject.EscrowStatusCompleted, e.Status)

	remainder, err := e.Release()
	require.NoError(t, err)
	assert.Equal(t, int64(300000), remainder)
	assert.Equal(t, valueobject.EscrowStatusReleased, e.Status)

	changes := e.PullChanges()
	require.Len(t, changes, 4)
	assert.Equal(t, valueobject.EscrowStatusFunded, changes[1].From)
	assert.Equal(t, valueobject.EscrowStatusInProgress, changes[1].To)
	assert.Empty(t, e.PullChanges())

	_, err = e.Refund()
	assert.True(t, apperror.IsInvalidState(err), "released is terminal")
}

func TestEscrow_CannotReleaseFromPending(t *testing.T) {
	e := newTestEscrow(t, valueobject.PaymentTypeFull)

	_, err := e.Release()
	assert.True(t, apperror.IsInvalidState(err))
	assert.Equal(t, valueobject.EscrowStatusPending, e.Status)
	assert.Empty(t, e.PullChanges())
}

func TestEscrow_DisputeBlocksRelease(t *testing.T) {
	e := newTestEscrow(t, valueobject.PaymentTypeFull)
	require.NoError(t, e.Fund("REF1"))
	require.NoError(t, e.Dispute())

	_, err := e.Release()
	assert.True(t, apperror.IsInvalidState(err))
	_, err = e.Refund()
	assert.True(t, apperror.IsInvalidState(err))
	assert.True(t, apperror.IsInvalidState(e.StartWork()))
	assert.True(t, apperror.IsInvalidState(e.Complete()))
	assert.Equal(t, valueobject.EscrowStatusDisputed, e.Status)
	e.PullChanges()

	amount, err := e.ResolveDispute(valueobject.EscrowStatusRefunded)
	require.NoError(t, err)
	assert.Equal(t, int64(300000), amount)
	assert.Equal(t, valueobject.EscrowStatusRefunded, e.Status)
	assert.NotNil(t, e.RefundedAt)

	changes := e.PullChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, valueobject.EscrowStatusDisputed, changes[0].From)
	assert.Equal(t, valueobject.EscrowStatusRefunded, changes[0].To)
}

func TestEscrow_ResolveDisputeReleasesRemainder(t *testing.T) {
	e := newTestEscrow(t, valueobject.PaymentTypeMilestones)
	require.NoError(t, e.Fund("REF1"))
	require.NoError(t, e.RecordMilestoneRelease(90000))
	require.NoError(t, e.Dispute())

	amount, err := e.ResolveDispute(valueobject.EscrowStatusReleased)
	require.NoError(t, err)
	assert.Equal(t, int64(210000), amount)
	assert.Equal(t, int64(300000), e.ReleasedAmount)
	assert.NotNil(t, e.ReleasedAt)

	_, err = e.ResolveDispute(valueobject.EscrowStatusRefunded)
	assert.True(t, apperror.IsInvalidState(err), "only a disputed escrow can be arbitrated")
}

func TestEscrow_ResolveDisputeBackToWork(t *testing.T) {
	e := newTestEscrow(t, valueobject.PaymentTypeFull)
	require.NoError(t, e.Fund("REF1"))
	require.NoError(t, e.StartWork())
	require.NoError(t, e.Dispute())

	_, err := e.ResolveDispute(valueobject.EscrowStatusCompleted)
	assert.True(t, apperror.IsValidation(err))

	_, err = e.ResolveDispute(valueobject.EscrowStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusInProgress, e.Status)
}

func TestEscrow_CancellationPath(t *testing.T) {
	e := newTestEscrow(t, valueobject.PaymentTypeFull)
	_, err := e.Refund()
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusRefunded, e.Status)

	e = newTestEscrow(t, valueobject.PaymentTypeFull)
	require.NoError(t, e.Fund("REF2"))
	require.NoError(t, e.StartWork())
	_, err = e.Refund()
	assert.True(t, apperror.IsInvalidState(err), "in_progress escrow must go through a dispute to be refunded")
}

func TestEscrow_MilestoneReleaseAccounting(t *testing.T) {
	e := newTestEscrow(t, valueobject.PaymentTypeMilestones)
	assert.True(t, apperror.IsInvalidState(e.RecordMilestoneRelease(90000)))

	require.NoError(t, e.Fund("REF3"))
	require.NoError(t, e.RecordMilestoneRelease(90000))
	assert.Equal(t, int64(90000), e.ReleasedAmount)
	assert.True(t, apperror.IsValidation(e.RecordMilestoneRelease(300000)))

	require.NoError(t, e.Complete())
	remainder, err := e.Release()
	require.NoError(t, err)
	assert.Equal(t, int64(210000), remainder)
	assert.Equal(t, int64(300000), e.ReleasedAmount)
}

func TestEscrow_Fund_RequiresReference(t *testing.T) {
	e := newTestEscrow(t, valueobject.PaymentTypeFull)
	assert.True(t, apperror.IsValidation(e.Fund("  ")))
	assert.Equal(t, valueobject.EscrowStatusPending, e.Status)
}
