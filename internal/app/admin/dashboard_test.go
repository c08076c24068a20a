package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/pscheid92/hxzd-portal/internal/adapter/backend"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDashboardSource struct {
	users   []domain.User
	anns    []domain.Announcement
	total   int
	postErr error
}

func (f *fakeDashboardSource) Users(context.Context, backend.CredentialHolder) ([]domain.User, error) {
	return f.users, nil
}

func (f *fakeDashboardSource) Announcements(context.Context, backend.CredentialHolder) ([]domain.Announcement, error) {
	return f.anns, nil
}

func (f *fakeDashboardSource) Posts(context.Context, backend.CredentialHolder, domain.PostQuery) (*domain.PostPage, error) {
	if f.postErr != nil {
		return nil, f.postErr
	}
	return &domain.PostPage{Total: f.total}, nil
}

type fixedStatus struct {
	overview *domain.StatusOverview
}

func (f fixedStatus) Current(context.Context) (*domain.StatusOverview, error) {
	return f.overview, nil
}

func TestLoadDashboard(t *testing.T) {
	src := &fakeDashboardSource{
		users: make([]domain.User, 3),
		anns:  make([]domain.Announcement, 2),
		total: 41,
	}
	status := fixedStatus{overview: &domain.StatusOverview{TotalOnline: 7, TotalMax: 40}}

	stats, err := LoadDashboard(context.Background(), src, status, backend.Anonymous{})

	require.NoError(t, err)
	assert.Equal(t, DashboardStats{Users: 3, Announcements: 2, Posts: 41, Online: 7, Max: 40}, stats)
}

func TestLoadDashboard_PropagatesFailure(t *testing.T) {
	boom := errors.New("backend down")
	src := &fakeDashboardSource{postErr: boom}
	status := fixedStatus{overview: &domain.StatusOverview{}}

	stats, err := LoadDashboard(context.Background(), src, status, backend.Anonymous{})

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, stats)
}
