package valueobject

import (
	"slices"

	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type EscrowStatus string

const (
	EscrowStatusPending    EscrowStatus = "pending"
	EscrowStatusFunded     EscrowStatus = "funded"
	EscrowStatusInProgress EscrowStatus = "in_progress"
	EscrowStatusCompleted  EscrowStatus = "completed"
	EscrowStatusDisputed   EscrowStatus = "disputed"
	EscrowStatusReleased   EscrowStatus = "released"
	EscrowStatusRefunded   EscrowStatus = "refunded"
)

var escrowTransitions = map[EscrowStatus][]EscrowStatus{
	EscrowStatusPending:    {EscrowStatusFunded, EscrowStatusRefunded},
	EscrowStatusFunded:     {EscrowStatusInProgress, EscrowStatusDisputed, EscrowStatusRefunded},
	EscrowStatusInProgress: {EscrowStatusCompleted, EscrowStatusDisputed},
	EscrowStatusCompleted:  {EscrowStatusReleased},
	EscrowStatusDisputed:   {},
	EscrowStatusReleased:   {},
	EscrowStatusRefunded:   {},
}

// A disputed escrow only leaves that state through arbitration.
var arbitrationOutcomes = []EscrowStatus{EscrowStatusInProgress, EscrowStatusReleased, EscrowStatusRefunded}

func (s EscrowStatus) IsValid() bool {
	_, ok := escrowTransitions[s]
	return ok
}

func (s EscrowStatus) CanTransitionTo(next EscrowStatus) bool {
	return slices.Contains(escrowTransitions[s], next)
}

// CanResolveTo reports whether arbitration may move a disputed escrow to next.
func (s EscrowStatus) CanResolveTo(next EscrowStatus) bool {
	return s == EscrowStatusDisputed && slices.Contains(arbitrationOutcomes, next)
}

func (s EscrowStatus) IsTerminal() bool {
	return s == EscrowStatusReleased || s == EscrowStatusRefunded
}

func NewEscrowStatus(status string) (EscrowStatus, error) {
	s := EscrowStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("invalid escrow status")
	}
	return s, nil
}

type PaymentType string

const (
	PaymentTypeFull       PaymentType = "full"
	PaymentTypeMilestones PaymentType = "milestones"
)

func NewPaymentType(v string) (PaymentType, error) {
	switch PaymentType(v) {
	case PaymentTypeFull, PaymentTypeMilestones:
		return PaymentType(v), nil
	case "":
		return PaymentTypeFull, nil
	}
	return "", apperror.Validation("payment type must be full or milestones")
}

type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in_progress"
	MilestoneStatusSubmitted  MilestoneStatus = "submitted"
	MilestoneStatusApproved   MilestoneStatus = "approved"
	MilestoneStatusRejected   MilestoneStatus = "rejected"
)

// A rejected milestone may be submitted again after rework.
var milestoneTransitions = map[MilestoneStatus][]MilestoneStatus{
	MilestoneStatusPending:    {MilestoneStatusInProgress, MilestoneStatusSubmitted},
	MilestoneStatusInProgress: {MilestoneStatusSubmitted},
	MilestoneStatusSubmitted:  {MilestoneStatusApproved, MilestoneStatusRejected},
	MilestoneStatusRejected:   {MilestoneStatusSubmitted},
	MilestoneStatusApproved:   {},
}

func (s MilestoneStatus) IsValid() bool {
	_, ok := milestoneTransitions[s]
	return ok
}

func (s MilestoneStatus) CanTransitionTo(next MilestoneStatus) bool {
	return slices.Contains(milestoneTransitions[s], next)
}

func NewMilestoneStatus(status string) (MilestoneStatus, error) {
	s := MilestoneStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("invalid milestone status")
	}
	return s, nil
}

type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
)

func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusUnderReview, DisputeStatusResolved:
		return true
	}
	return false
}

func NewDisputeStatus(status string) (DisputeStatus, error) {
	s := DisputeStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("invalid dispute status")
	}
	return s, nil
}

type ApplicationStatus string

const (
	ApplicationStatusPending      ApplicationStatus = "pending"
	ApplicationStatusInterviewing ApplicationStatus = "interviewing"
	ApplicationStatusAccepted     ApplicationStatus = "accepted"
	ApplicationStatusRejected     ApplicationStatus = "rejected"
	ApplicationStatusWithdrawn    ApplicationStatus = "withdrawn"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationStatusPending:      {ApplicationStatusInterviewing, ApplicationStatusAccepted, ApplicationStatusRejected, ApplicationStatusWithdrawn},
	ApplicationStatusInterviewing: {ApplicationStatusAccepted, ApplicationStatusRejected},
	ApplicationStatusAccepted:     {},
	ApplicationStatusRejected:     {},
	ApplicationStatusWithdrawn:    {},
}

func (s ApplicationStatus) IsValid() bool {
	_, ok := applicationTransitions[s]
	return ok
}

func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	return slices.Contains(applicationTransitions[s], next)
}

// IsOpen reports whether the application still competes for the task.
func (s ApplicationStatus) IsOpen() bool {
	return s == ApplicationStatusPending || s == ApplicationStatusInterviewing
}

func NewApplicationStatus(status string) (ApplicationStatus, error) {
	s := ApplicationStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("invalid application status")
	}
	return s, nil
}

type BudgetType string

const (
	BudgetTypeFixed  BudgetType = "fixed"
	BudgetTypeHourly BudgetType = "hourly"
)

func NewBudgetType(v string) (BudgetType, error) {
	switch BudgetType(v) {
	case BudgetTypeFixed, BudgetTypeHourly:
		return BudgetType(v), nil
	case "":
		return BudgetTypeFixed, nil
	}
	return "", apperror.Validation("budget type must be fixed or hourly")
}

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	transitions := map[TaskStatus][]TaskStatus{
		TaskStatusOpen:       {TaskStatusInProgress, TaskStatusCancelled},
		TaskStatusInProgress: {TaskStatusCompleted, TaskStatusCancelled},
		TaskStatusCompleted:  {},
		TaskStatusCancelled:  {},
	}
	return slices.Contains(transitions[s], next)
}

type VerificationType string

const (
	VerificationTypeIndividual VerificationType = "individual"
	VerificationTypeBusiness   VerificationType = "business"
)

func NewVerificationType(v string) (VerificationType, error) {
	switch VerificationType(v) {
	case VerificationTypeIndividual, VerificationTypeBusiness:
		return VerificationType(v), nil
	}
	return "", apperror.Validation("verification type must be individual or business")
}

type VerificationStatus string

const (
	VerificationStatusPending    VerificationStatus = "pending"
	VerificationStatusProcessing VerificationStatus = "processing"
	VerificationStatusApproved   VerificationStatus = "approved"
	VerificationStatusRejected   VerificationStatus = "rejected"
)

func (s VerificationStatus) IsFinal() bool {
	return s == VerificationStatusApproved || s == VerificationStatusRejected
}

func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationStatusPending, VerificationStatusProcessing, VerificationStatusApproved, VerificationStatusRejected:
		return true
	}
	return false
}

func NewVerificationStatus(status string) (VerificationStatus, error) {
	s := VerificationStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("invalid verification status")
	}
	return s, nil
}

type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

func NewRole(v string) (Role, error) {
	switch Role(v) {
	case RoleClient, RoleFreelancer:
		return Role(v), nil
	case "":
		return RoleFreelancer, nil
	}
	return "", apperror.Validation("role must be client or freelancer")
}
