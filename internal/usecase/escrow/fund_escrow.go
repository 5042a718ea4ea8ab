package escrow

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/gateway"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

// TestReferencePrefix marks references accepted without a gateway call when the bypass is on.
const TestReferencePrefix = "TEST_"

type FundingPolicy struct {
	// TestBypass is only ever true outside production.
	TestBypass bool
}

type FundEscrowUseCase struct {
	store    *Store
	payments gateway.PaymentGateway
	policy   FundingPolicy
}

func NewFundEscrowUseCase(store *Store, payments gateway.PaymentGateway, policy FundingPolicy) *FundEscrowUseCase {
	return &FundEscrowUseCase{store: store, payments: payments, policy: policy}
}

func (uc *FundEscrowUseCase) Execute(ctx context.Context, escrowID, clientID uuid.UUID, reference string) (*entity.Escrow, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperror.Validation("payment reference is required")
	}

	e, err := uc.store.Escrows().FindByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if !e.IsClient(clientID) {
		return nil, apperror.ErrForbidden
	}
	if !e.Status.CanTransitionTo(valueobject.EscrowStatusFunded) {
		return nil, apperror.InvalidState("escrow", string(e.Status), "be funded")
	}
	if err := checkMilestoneSet(ctx, uc.store, e); err != nil {
		return nil, err
	}

	if err := uc.verify(ctx, e, reference); err != nil {
		return nil, err
	}

	return fund(ctx, uc.store, escrowID, reference, &clientID)
}

func (uc *FundEscrowUseCase) verify(ctx context.Context, e *entity.Escrow, reference string) error {
	if uc.policy.TestBypass && strings.HasPrefix(reference, TestReferencePrefix) {
		logger.FromContext(ctx).WithField("escrow_id", e.ID).Warn("payment verification bypassed for test reference")
		return nil
	}
	if uc.payments == nil {
		return apperror.Upstream(nil, "payment gateway is not configured")
	}
	tx, err := uc.payments.VerifyTransaction(ctx, reference)
	if err != nil {
		return err
	}
	if tx.Reference != "" && tx.Reference != reference {
		return apperror.Validation("gateway returned a different payment reference")
	}
	return matchPayment(e, tx)
}

func matchPayment(e *entity.Escrow, tx *gateway.PaymentTransaction) error {
	if !tx.Succeeded() {
		return apperror.Validation("payment status is " + tx.Status)
	}
	if tx.Amount != e.Amount.Amount || !strings.EqualFold(tx.Currency, e.Amount.Currency) {
		return apperror.Newf(apperror.ErrCodeValidation,
			"payment of %d %s does not match escrow amount %s", tx.Amount, tx.Currency, e.Amount)
	}
	return nil
}

// checkMilestoneSet finalizes the milestone set: funding needs an exact match.
func checkMilestoneSet(ctx context.Context, store *Store, e *entity.Escrow) error {
	if !e.IsMilestoneBased() {
		return nil
	}
	milestones, err := store.Milestones().FindByEscrowID(ctx, e.ID)
	if err != nil {
		return err
	}
	return entity.ValidateMilestoneTotal(e.Amount.Amount, milestones)
}

// fund reloads the escrow inside a transaction so a concurrent change fails the version check.
func fund(ctx context.Context, store *Store, escrowID uuid.UUID, reference string, actor *uuid.UUID) (*entity.Escrow, error) {
	var receipt Receipt
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		e, err := store.Escrows().FindByID(ctx, escrowID)
		if err != nil {
			return err
		}
		receipt.Escrow = e
		if err := e.Fund(reference); err != nil {
			return err
		}
		if err := store.Save(ctx, &receipt, actor); err != nil {
			return err
		}
		return store.Book(ctx, &receipt, e.ClientID, entity.LedgerKindFund, e.Amount.Amount, nil)
	})
	if err != nil {
		return nil, err
	}
	store.Publish(ctx, &receipt, EventEscrowUpdated, nil)
	return receipt.Escrow, nil
}

// PaymentWebhookUseCase funds escrows from signed gateway notifications.
// Checkout uses the escrow id as the payment reference.
type PaymentWebhookUseCase struct {
	store *Store
}

func NewPaymentWebhookUseCase(store *Store) *PaymentWebhookUseCase {
	return &PaymentWebhookUseCase{store: store}
}

// Execute returns nil, nil for events it does not act on.
func (uc *PaymentWebhookUseCase) Execute(ctx context.Context, event string, tx *gateway.PaymentTransaction) (*entity.Escrow, error) {
	log := logger.FromContext(ctx).WithField("reference", tx.Reference)
	if event != "charge.success" {
		log.WithField("event", event).Debug("payment webhook ignored")
		return nil, nil
	}

	if funded, err := uc.store.Escrows().FindByPaymentReference(ctx, tx.Reference); err == nil {
		return funded, nil
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}

	escrowID, err := uuid.Parse(tx.Reference)
	if err != nil {
		log.Warn("payment webhook reference does not name an escrow")
		return nil, nil
	}
	e, err := uc.store.Escrows().FindByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if e.Status != valueobject.EscrowStatusPending {
		log.WithField("status", e.Status).Warn("payment webhook for escrow that is no longer pending")
		return e, nil
	}
	if err := checkMilestoneSet(ctx, uc.store, e); err != nil {
		return nil, err
	}
	if err := matchPayment(e, tx); err != nil {
		return nil, err
	}
	return fund(ctx, uc.store, e.ID, tx.Reference, nil)
}
