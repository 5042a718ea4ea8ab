package entity

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type VerificationDocument struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
	URL      string `json:"url"`
}

type VerificationRequest struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Type              valueobject.VerificationType
	PersonalInfo      json.RawMessage
	BusinessInfo      json.RawMessage
	Documents         []VerificationDocument
	Status            valueobject.VerificationStatus
	AdminNotes        *string
	ReviewedBy        *uuid.UUID
	ProviderReference *string
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ReviewedAt        *time.Time
}

func NewVerificationRequest(userID uuid.UUID, vType valueobject.VerificationType, personal, business json.RawMessage, docs []VerificationDocument) (*VerificationRequest, error) {
	if len(personal) == 0 || !json.Valid(personal) {
		return nil, apperror.Validation("personal info must be a JSON object")
	}
	if vType == valueobject.VerificationTypeBusiness && (len(business) == 0 || !json.Valid(business)) {
		return nil, apperror.Validation("business info is required for business verification")
	}
	if len(business) == 0 {
		business = json.RawMessage("{}")
	}
	if len(docs) == 0 {
		return nil, apperror.Validation("at least one document is required")
	}
	for _, d := range docs {
		if strings.TrimSpace(d.Filename) == "" || strings.TrimSpace(d.URL) == "" {
			return nil, apperror.Validation("document filename and url are required")
		}
	}

	now := time.Now()
	return &VerificationRequest{
		ID:           uuid.New(),
		UserID:       userID,
		Type:         vType,
		PersonalInfo: personal,
		BusinessInfo: business,
		Documents:    docs,
		Status:       valueobject.VerificationStatusPending,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// MarkProcessing records that the identity provider is checking the request.
func (v *VerificationRequest) MarkProcessing(providerRef string) error {
	if v.Status != valueobject.VerificationStatusPending && v.Status != valueobject.VerificationStatusProcessing {
		return apperror.InvalidState("verification request", string(v.Status), "be processed")
	}
	v.Status = valueobject.VerificationStatusProcessing
	if providerRef != "" {
		v.ProviderReference = &providerRef
	}
	v.UpdatedAt = time.Now()
	return nil
}

func (v *VerificationRequest) Approve(reviewer *uuid.UUID, notes string) error {
	return v.decide(valueobject.VerificationStatusApproved, reviewer, notes)
}

func (v *VerificationRequest) Reject(reviewer *uuid.UUID, notes string) error {
	if strings.TrimSpace(notes) == "" {
		return apperror.Validation("admin notes are required to reject a request")
	}
	return v.decide(valueobject.VerificationStatusRejected, reviewer, notes)
}

func (v *VerificationRequest) decide(to valueobject.VerificationStatus, reviewer *uuid.UUID, notes string) error {
	if v.Status.IsFinal() {
		return apperror.InvalidState("verification request", string(v.Status), "be reviewed again")
	}
	now := time.Now()
	v.Status = to
	v.ReviewedBy = reviewer
	v.ReviewedAt = &now
	v.UpdatedAt = now
	if notes = strings.TrimSpace(notes); notes != "" {
		v.AdminNotes = &notes
	}
	return nil
}
