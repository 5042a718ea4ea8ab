package verification

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/gateway"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type SubmitInput struct {
	UserID       uuid.UUID
	Type         valueobject.VerificationType
	PersonalInfo json.RawMessage
	BusinessInfo json.RawMessage
	Documents    []entity.VerificationDocument
}

type SubmitUseCase struct {
	verRepo repository.VerificationRepository
}

func NewSubmitUseCase(verRepo repository.VerificationRepository) *SubmitUseCase {
	return &SubmitUseCase{verRepo: verRepo}
}

// Execute files a new request. A user has at most one pending or processing request.
func (uc *SubmitUseCase) Execute(ctx context.Context, in SubmitInput) (*entity.VerificationRequest, error) {
	active, err := uc.verRepo.FindActiveByUserID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "a verification request is already in review")
	}
	req, err := entity.NewVerificationRequest(in.UserID, in.Type, in.PersonalInfo, in.BusinessInfo, in.Documents)
	if err != nil {
		return nil, err
	}
	if err := uc.verRepo.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// reviewer applies a decision and the user's verified flag in one transaction.
type reviewer struct {
	tx       repository.Transactor
	verRepo  repository.VerificationRepository
	userRepo repository.UserRepository
}

func (r reviewer) decide(ctx context.Context, load func(ctx context.Context) (*entity.VerificationRequest, error), fn func(*entity.VerificationRequest) error) (*entity.VerificationRequest, error) {
	var req *entity.VerificationRequest
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = load(ctx)
		if err != nil {
			return err
		}
		if err := fn(req); err != nil {
			return err
		}
		if err := r.verRepo.Update(ctx, req); err != nil {
			return err
		}
		verified, err := r.hasApproval(ctx, req.UserID)
		if err != nil {
			return err
		}
		user, err := r.userRepo.FindByID(ctx, req.UserID)
		if err != nil {
			return err
		}
		user.SetVerified(verified)
		return r.userRepo.SetVerified(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).WithField("request_id", req.ID).WithField("status", req.Status).Info("verification reviewed")
	return req, nil
}

// hasApproval reports whether any of the user's requests was approved.
// A later rejection does not undo an earlier approval.
func (r reviewer) hasApproval(ctx context.Context, userID uuid.UUID) (bool, error) {
	requests, err := r.verRepo.FindByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, req := range requests {
		if req.Status == valueobject.VerificationStatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (r reviewer) byID(id uuid.UUID) func(ctx context.Context) (*entity.VerificationRequest, error) {
	return func(ctx context.Context) (*entity.VerificationRequest, error) {
		return r.verRepo.FindByID(ctx, id)
	}
}

type ApproveUseCase struct {
	reviewer
}

func NewApproveUseCase(tx repository.Transactor, verRepo repository.VerificationRepository, userRepo repository.UserRepository) *ApproveUseCase {
	return &ApproveUseCase{reviewer{tx: tx, verRepo: verRepo, userRepo: userRepo}}
}

func (uc *ApproveUseCase) Execute(ctx context.Context, requestID, adminID uuid.UUID, notes string) (*entity.VerificationRequest, error) {
	return uc.decide(ctx, uc.byID(requestID), func(req *entity.VerificationRequest) error {
		return req.Approve(&adminID, notes)
	})
}

type RejectUseCase struct {
	reviewer
}

func NewRejectUseCase(tx repository.Transactor, verRepo repository.VerificationRepository, userRepo repository.UserRepository) *RejectUseCase {
	return &RejectUseCase{reviewer{tx: tx, verRepo: verRepo, userRepo: userRepo}}
}

func (uc *RejectUseCase) Execute(ctx context.Context, requestID, adminID uuid.UUID, notes string) (*entity.VerificationRequest, error) {
	return uc.decide(ctx, uc.byID(requestID), func(req *entity.VerificationRequest) error {
		return req.Reject(&adminID, notes)
	})
}

type ListRequestsUseCase struct {
	verRepo repository.VerificationRepository
}

func NewListRequestsUseCase(verRepo repository.VerificationRepository) *ListRequestsUseCase {
	return &ListRequestsUseCase{verRepo: verRepo}
}

func (uc *ListRequestsUseCase) Execute(ctx context.Context, filter repository.VerificationFilter) ([]*entity.VerificationRequest, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.verRepo.List(ctx, filter)
}

type ListMineUseCase struct {
	verRepo repository.VerificationRepository
}

func NewListMineUseCase(verRepo repository.VerificationRepository) *ListMineUseCase {
	return &ListMineUseCase{verRepo: verRepo}
}

func (uc *ListMineUseCase) Execute(ctx context.Context, userID uuid.UUID) ([]*entity.VerificationRequest, error) {
	return uc.verRepo.FindByUserID(ctx, userID)
}

// LookupNINUseCase sends the NIN from a request's personal info to the
// identity provider and parks the request in processing under the
// provider's reference. The outcome arrives later through the webhook.
type LookupNINUseCase struct {
	verRepo  repository.VerificationRepository
	identity gateway.IdentityGateway
}

func NewLookupNINUseCase(verRepo repository.VerificationRepository, identity gateway.IdentityGateway) *LookupNINUseCase {
	return &LookupNINUseCase{verRepo: verRepo, identity: identity}
}

func (uc *LookupNINUseCase) Execute(ctx context.Context, requestID uuid.UUID) (*entity.VerificationRequest, *gateway.IdentityResult, error) {
	req, err := uc.verRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if req.Status.IsFinal() {
		return nil, nil, apperror.InvalidState("verification request", string(req.Status), "be looked up")
	}
	var info struct {
		NIN string `json:"nin"`
	}
	if err := json.Unmarshal(req.PersonalInfo, &info); err != nil || strings.TrimSpace(info.NIN) == "" {
		return nil, nil, apperror.Validation("personal info has no nin")
	}
	if uc.identity == nil {
		return nil, nil, apperror.Upstream(nil, "identity gateway is not configured")
	}

	res, err := uc.identity.LookupNIN(ctx, strings.TrimSpace(info.NIN))
	if err != nil {
		return nil, nil, err
	}
	if err := req.MarkProcessing(res.Reference); err != nil {
		return nil, nil, err
	}
	if err := uc.verRepo.Update(ctx, req); err != nil {
		return nil, nil, err
	}
	logger.FromContext(ctx).WithField("request_id", req.ID).WithField("reference", res.Reference).
		WithField("matched", res.Verified).Info("nin lookup recorded")
	return req, res, nil
}

// IdentityWebhookUseCase applies an asynchronous provider outcome to the request
// it references. Outcomes for already decided requests are ignored.
type IdentityWebhookUseCase struct {
	reviewer
}

func NewIdentityWebhookUseCase(tx repository.Transactor, verRepo repository.VerificationRepository, userRepo repository.UserRepository) *IdentityWebhookUseCase {
	return &IdentityWebhookUseCase{reviewer{tx: tx, verRepo: verRepo, userRepo: userRepo}}
}

func (uc *IdentityWebhookUseCase) Execute(ctx context.Context, reference string, approved bool) (*entity.VerificationRequest, error) {
	current, err := uc.verRepo.FindByProviderReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if current.Status.IsFinal() {
		return current, nil
	}
	note := "identity provider reference " + reference
	return uc.decide(ctx,
		func(ctx context.Context) (*entity.VerificationRequest, error) {
			return uc.verRepo.FindByProviderReference(ctx, reference)
		},
		func(req *entity.VerificationRequest) error {
			if approved {
				return req.Approve(nil, note)
			}
			return req.Reject(nil, note)
		})
}
