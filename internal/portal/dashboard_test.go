package portal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/internhub/internal/api"
	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/lifecycle"
	"github.com/hitoshi/internhub/internal/metrics"
	"github.com/hitoshi/internhub/internal/model"
)

func newTestService(b Backend, mc metrics.MetricsCollector) *Service {
	s := NewService(b, nil, mc, nil, Config{Policy: lifecycle.DefaultSubmissionPolicy()})
	s.now = fixedNow
	return s
}

func TestDashboard_BuildsCards(t *testing.T) {
	b := &mockBackend{
		listProjectsFn: func(ctx context.Context, token string) ([]model.Project, error) {
			assert.Equal(t, "T1", token)
			return []model.Project{{ID: "p1", Name: "Chat App"}, {ID: "p2", Name: "Blog"}}, nil
		},
		listInternshipsFn: func(ctx context.Context, token string) ([]model.Internship, error) {
			return []model.Internship{{ID: "i1", Title: "Backend Intern"}}, nil
		},
		myApplicationsFn: func(ctx context.Context, token string) ([]model.Application, error) {
			return []model.Application{
				{ID: "a1", Kind: model.KindInternship, TargetID: "other-id", TargetTitle: " backend intern ", Status: model.StatusInProcess},
				{ID: "a2", Kind: model.KindProject, TargetID: "p1", TargetTitle: "Chat App", Status: model.StatusApproved},
			}, nil
		},
	}
	s := newTestService(b, nil)

	view, err := s.Dashboard(context.Background(), loggedIn("T1"))
	require.NoError(t, err)

	assert.Equal(t, "Jane", view.Profile.Name)
	require.Len(t, view.Applications, 2)
	assert.Equal(t, model.StatusPending, view.Applications[0].Status)
	assert.Equal(t, "Submitted", view.Applications[0].Badge.Label)
	assert.Equal(t, "amber", view.Applications[0].Badge.Color)
	assert.False(t, view.Applications[0].CanSubmitWork)
	assert.True(t, view.Applications[1].CanSubmitWork)

	require.Len(t, view.Internships, 1)
	assert.True(t, view.Internships[0].Applied, "title fallback should match")
	assert.Equal(t, "Applied", view.Internships[0].Label.Label)

	require.Len(t, view.Projects, 2)
	assert.True(t, view.Projects[0].Applied)
	assert.Equal(t, "Approved", view.Projects[0].Label.Label)
	assert.False(t, view.Projects[1].Applied)
	assert.Nil(t, view.Projects[1].Label)
}

func TestDashboard_AnyFailureFailsPage(t *testing.T) {
	boom := errors.New("boom")
	b := &mockBackend{
		myApplicationsFn: func(ctx context.Context, token string) ([]model.Application, error) {
			return nil, boom
		},
	}
	s := newTestService(b, nil)

	_, err := s.Dashboard(context.Background(), loggedIn("T1"))
	assert.ErrorIs(t, err, boom)
}

func TestDashboard_RequiresSession(t *testing.T) {
	s := newTestService(&mockBackend{}, nil)
	_, err := s.Dashboard(context.Background(), auth.State{})
	assert.ErrorIs(t, err, api.ErrNotAuthenticated)
}
