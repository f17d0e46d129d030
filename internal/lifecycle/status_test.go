package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hitoshi/internhub/internal/model"
)

func TestNormalize_AliasesCollapseToPending(t *testing.T) {
	for _, raw := range []model.ApplicationStatus{"", "pending", "in_process", "unknown", "Approved"} {
		assert.Equal(t, model.StatusPending, Normalize(raw), "raw=%q", raw)
	}
	for _, raw := range []model.ApplicationStatus{"submitted", "approved", "resubmit", "rejected", "completed"} {
		assert.Equal(t, raw, Normalize(raw))
	}
}

func TestBadgeFor_RenderingTable(t *testing.T) {
	cases := []struct {
		status model.ApplicationStatus
		label  string
		color  string
	}{
		{"", "Submitted", "amber"},
		{"in_process", "Submitted", "amber"},
		{"pending", "Submitted", "amber"},
		{"garbage", "Submitted", "amber"},
		{"submitted", "Submitted", "blue"},
		{"approved", "Approved", "green"},
		{"rejected", "Rejected", "red"},
		{"completed", "Successfully Finished", "bright-green"},
		{"resubmit", "Rejected - Re-submit", "orange"},
	}
	for _, tc := range cases {
		b := BadgeFor(tc.status)
		assert.Equal(t, tc.label, b.Label, "status=%q", tc.status)
		assert.Equal(t, tc.color, b.Color, "status=%q", tc.status)
	}
}

func TestBadgeFor_PendingAliasesRenderIdentically(t *testing.T) {
	want := BadgeFor("")
	assert.Equal(t, want, BadgeFor("in_process"))
	assert.Equal(t, want, BadgeFor("pending"))
}

func TestCardLabel(t *testing.T) {
	assert.Equal(t, "Finished", CardLabel("completed").Label)
	assert.Equal(t, "Approved", CardLabel("approved").Label)
	assert.Equal(t, "Resubmit", CardLabel("resubmit").Label)
	assert.Equal(t, "Applied", CardLabel("submitted").Label)
	assert.Equal(t, "Applied", CardLabel("").Label)
}

func TestCanSubmitWork(t *testing.T) {
	assert.True(t, CanSubmitWork("approved"))
	assert.True(t, CanSubmitWork("resubmit"))
	assert.False(t, CanSubmitWork("pending"))
	assert.False(t, CanSubmitWork("submitted"))
	assert.False(t, CanSubmitWork("completed"))
	assert.False(t, CanSubmitWork("rejected"))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal("completed"))
	assert.True(t, IsTerminal("rejected"))
	assert.False(t, IsTerminal("resubmit"))
	assert.False(t, IsTerminal(""))
}
