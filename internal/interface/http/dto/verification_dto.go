package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/gateway"
)

type VerificationDocumentRequest struct {
	Filename string `json:"filename" binding:"required"`
	Type     string `json:"type" binding:"required"`
	URL      string `json:"url" binding:"required"`
}

type SubmitVerificationRequest struct {
	Type         string                        `json:"type" binding:"required"`
	PersonalInfo json.RawMessage               `json:"personal_info"`
	BusinessInfo json.RawMessage               `json:"business_info"`
	Documents    []VerificationDocumentRequest `json:"documents" binding:"dive"`
}

func (r SubmitVerificationRequest) DocumentEntities() []entity.VerificationDocument {
	docs := make([]entity.VerificationDocument, len(r.Documents))
	for i, d := range r.Documents {
		docs[i] = entity.VerificationDocument{Filename: d.Filename, Type: d.Type, URL: d.URL}
	}
	return docs
}

type ReviewVerificationRequest struct {
	RequestID string `json:"request_id" binding:"required"`
	Notes     string `json:"notes"`
}

type VerificationResponse struct {
	ID                uuid.UUID                     `json:"id"`
	UserID            uuid.UUID                     `json:"user_id"`
	Type              string                        `json:"type"`
	PersonalInfo      json.RawMessage               `json:"personal_info,omitempty"`
	BusinessInfo      json.RawMessage               `json:"business_info,omitempty"`
	Documents         []entity.VerificationDocument `json:"documents"`
	Status            string                        `json:"status"`
	AdminNotes        *string                       `json:"admin_notes,omitempty"`
	ReviewedBy        *uuid.UUID                    `json:"reviewed_by,omitempty"`
	ProviderReference *string                       `json:"provider_reference,omitempty"`
	CreatedAt         time.Time                     `json:"created_at"`
	ReviewedAt        *time.Time                    `json:"reviewed_at,omitempty"`
}

type IdentityResultResponse struct {
	Reference string `json:"reference"`
	NIN       string `json:"nin"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Verified  bool   `json:"verified"`
}

type IdentityLookupResponse struct {
	Request VerificationResponse   `json:"request"`
	Result  IdentityResultResponse `json:"result"`
}

func ToIdentityLookupResponse(req *entity.VerificationRequest, res *gateway.IdentityResult) IdentityLookupResponse {
	return IdentityLookupResponse{
		Request: ToVerificationResponse(req),
		Result: IdentityResultResponse{
			Reference: res.Reference,
			NIN:       res.NIN,
			FirstName: res.FirstName,
			LastName:  res.LastName,
			Verified:  res.Verified,
		},
	}
}

func ToVerificationResponse(v *entity.VerificationRequest) VerificationResponse {
	docs := v.Documents
	if docs == nil {
		docs = []entity.VerificationDocument{}
	}
	return VerificationResponse{
		ID:                v.ID,
		UserID:            v.UserID,
		Type:              string(v.Type),
		PersonalInfo:      v.PersonalInfo,
		BusinessInfo:      v.BusinessInfo,
		Documents:         docs,
		Status:            string(v.Status),
		AdminNotes:        v.AdminNotes,
		ReviewedBy:        v.ReviewedBy,
		ProviderReference: v.ProviderReference,
		CreatedAt:         v.CreatedAt,
		ReviewedAt:        v.ReviewedAt,
	}
}

func ToVerificationResponses(items []*entity.VerificationRequest) []VerificationResponse {
	return mapAll(items, ToVerificationResponse)
}
