package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

func mustMilestone(t *testing.T, amount int64) *Milestone {
	t.Helper()
	m, err := NewMilestone(uuid.New(), 1, MilestoneDraft{Title: "Design", Amount: amount, Deliverables: []string{"mockups", " "}})
	require.NoError(t, err)
	return m
}

func TestNewMilestone(t *testing.T) {
	m := mustMilestone(t, 90000)
	assert.Equal(t, valueobject.MilestoneStatusPending, m.Status)
	assert.Equal(t, []string{"mockups"}, m.Deliverables)

	_, err := NewMilestone(uuid.New(), 1, MilestoneDraft{Title: "", Amount: 10})
	assert.True(t, apperror.IsValidation(err))
	_, err = NewMilestone(uuid.New(), 1, MilestoneDraft{Title: "x", Amount: -5})
	assert.True(t, apperror.IsValidation(err))
}

func TestMilestone_SubmitApprove(t *testing.T) {
	m := mustMilestone(t, 90000)

	assert.True(t, apperror.IsInvalidState(m.Approve()), "approve requires submitted")

	require.NoError(t, m.Start())
	require.NoError(t, m.Submit([]string{"uploads/a.pdf"}, "first draft"))
	assert.Equal(t, valueobject.MilestoneStatusSubmitted, m.Status)
	require.Len(t, m.Submissions, 1)
	assert.Equal(t, "first draft", m.Submissions[0].Notes)

	require.NoError(t, m.Approve())
	assert.True(t, m.IsApproved())
	assert.NotNil(t, m.ApprovedAt)
}

func TestMilestone_RejectNeedsFeedback(t *testing.T) {
	m := mustMilestone(t, 150000)
	require.NoError(t, m.Submit(nil, "see repo"))

	err := m.Reject("   ")
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, valueobject.MilestoneStatusSubmitted, m.Status)

	require.NoError(t, m.Reject("incomplete"))
	assert.Equal(t, valueobject.MilestoneStatusRejected, m.Status)
	assert.Equal(t, "incomplete", *m.Feedback)

	require.NoError(t, m.Submit([]string{"v2.zip"}, ""), "rejected milestone can be resubmitted")
	assert.Len(t, m.Submissions, 2)
}

func TestMilestone_SubmitNeedsContent(t *testing.T) {
	m := mustMilestone(t, 1000)
	assert.True(t, apperror.IsValidation(m.Submit([]string{""}, " ")))
}

func TestProgressAndTotals(t *testing.T) {
	ms := []*Milestone{mustMilestone(t, 90000), mustMilestone(t, 150000), mustMilestone(t, 60000)}
	require.NoError(t, ValidateMilestoneTotal(300000, ms))
	assert.True(t, apperror.IsValidation(ValidateMilestoneTotal(299999, ms)))
	assert.True(t, apperror.IsValidation(ValidateMilestoneTotal(300000, nil)))

	require.NoError(t, ms[0].Submit(nil, "done"))
	require.NoError(t, ms[0].Approve())

	p := ProgressOf(ms)
	assert.Equal(t, 1, p.Approved)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, int64(90000), p.ReleasedAmount)
	assert.InDelta(t, 1.0/3.0, p.Ratio(), 1e-9)
	assert.False(t, p.AllApproved())
	assert.Zero(t, MilestoneProgress{}.Ratio())
}
