package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type Milestone struct {
	ID           uuid.UUID
	EscrowID     uuid.UUID
	Position     int
	Title        string
	Description  string
	Amount       int64
	DueDate      *time.Time
	Status       valueobject.MilestoneStatus
	Deliverables []string
	Submissions  []Submission
	Feedback     *string
	Version      int
	ApprovedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Submission struct {
	Files       []string  `json:"files"`
	Notes       string    `json:"notes"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type MilestoneDraft struct {
	Title        string
	Description  string
	Amount       int64
	DueDate      *time.Time
	Deliverables []string
}

func NewMilestone(escrowID uuid.UUID, position int, d MilestoneDraft) (*Milestone, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return nil, apperror.Validation("milestone title is required")
	}
	if d.Amount <= 0 {
		return nil, apperror.Validation("milestone amount must be positive")
	}
	deliverables := make([]string, 0, len(d.Deliverables))
	for _, item := range d.Deliverables {
		if item = strings.TrimSpace(item); item != "" {
			deliverables = append(deliverables, item)
		}
	}

	now := time.Now()
	return &Milestone{
		ID:           uuid.New(),
		EscrowID:     escrowID,
		Position:     position,
		Title:        title,
		Description:  strings.TrimSpace(d.Description),
		Amount:       d.Amount,
		DueDate:      d.DueDate,
		Status:       valueobject.MilestoneStatusPending,
		Deliverables: deliverables,
		Submissions:  []Submission{},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (m *Milestone) transition(to valueobject.MilestoneStatus, action string) error {
	if !m.Status.CanTransitionTo(to) {
		return apperror.InvalidState("milestone", string(m.Status), action)
	}
	m.Status = to
	m.UpdatedAt = time.Now()
	return nil
}

func (m *Milestone) Start() error {
	return m.transition(valueobject.MilestoneStatusInProgress, "be started")
}

func (m *Milestone) Submit(files []string, notes string) error {
	cleaned := make([]string, 0, len(files))
	for _, f := range files {
		if f = strings.TrimSpace(f); f != "" {
			cleaned = append(cleaned, f)
		}
	}
	notes = strings.TrimSpace(notes)
	if len(cleaned) == 0 && notes == "" {
		return apperror.Validation("submission needs at least one file or notes")
	}
	if err := m.transition(valueobject.MilestoneStatusSubmitted, "be submitted"); err != nil {
		return err
	}
	m.Submissions = append(m.Submissions, Submission{
		Files:       cleaned,
		Notes:       notes,
		SubmittedAt: m.UpdatedAt,
	})
	return nil
}

func (m *Milestone) Approve() error {
	if err := m.transition(valueobject.MilestoneStatusApproved, "be approved"); err != nil {
		return err
	}
	m.ApprovedAt = stamp(m.UpdatedAt)
	return nil
}

func (m *Milestone) Reject(feedback string) error {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return apperror.Validation("feedback is required to reject a milestone")
	}
	if err := m.transition(valueobject.MilestoneStatusRejected, "be rejected"); err != nil {
		return err
	}
	m.Feedback = &feedback
	return nil
}

func (m *Milestone) IsApproved() bool {
	return m.Status == valueobject.MilestoneStatusApproved
}

// MilestoneProgress summarises approvals across one escrow's milestones.
type MilestoneProgress struct {
	Approved       int   `json:"approved"`
	Total          int   `json:"total"`
	ReleasedAmount int64 `json:"released_amount"`
}

func (p MilestoneProgress) Ratio() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Approved) / float64(p.Total)
}

func (p MilestoneProgress) AllApproved() bool {
	return p.Total > 0 && p.Approved == p.Total
}

func ProgressOf(milestones []*Milestone) MilestoneProgress {
	p := MilestoneProgress{Total: len(milestones)}
	for _, m := range milestones {
		if m.IsApproved() {
			p.Approved++
			p.ReleasedAmount += m.Amount
		}
	}
	return p
}

// SumMilestones returns the total of milestone amounts.
func SumMilestones(milestones []*Milestone) (int64, error) {
	amounts := make([]int64, len(milestones))
	for i, m := range milestones {
		amounts[i] = m.Amount
	}
	total, ok := valueobject.SumAmounts(amounts...)
	if !ok {
		return 0, apperror.Validation("milestone amounts overflow")
	}
	return total, nil
}

// ValidateMilestoneTotal requires the milestone set to add up to the escrow amount exactly.
func ValidateMilestoneTotal(escrowAmount int64, milestones []*Milestone) error {
	if len(milestones) == 0 {
		return apperror.Validation("milestone escrow needs at least one milestone")
	}
	total, err := SumMilestones(milestones)
	if err != nil {
		return err
	}
	if total != escrowAmount {
		return apperror.Newf(apperror.ErrCodeValidation,
			"milestone amounts add up to %d, escrow amount is %d", total, escrowAmount)
	}
	return nil
}
