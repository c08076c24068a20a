package admin

import (
	"context"

	"github.com/pscheid92/hxzd-portal/internal/adapter/backend"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	"golang.org/x/sync/errgroup"
)

type DashboardSource interface {
	Users(ctx context.Context, h backend.CredentialHolder) ([]domain.User, error)
	Announcements(ctx context.Context, h backend.CredentialHolder) ([]domain.Announcement, error)
	Posts(ctx context.Context, h backend.CredentialHolder, q domain.PostQuery) (*domain.PostPage, error)
}

type StatusReader interface {
	Current(ctx context.Context) (*domain.StatusOverview, error)
}

type DashboardStats struct {
	Users         int
	Announcements int
	Posts         int
	Online        int
	Max           int
}

// LoadDashboard fetches the four overview counters concurrently. Any failure
// cancels the rest and is returned; the counters are then meaningless.
func LoadDashboard(ctx context.Context, src DashboardSource, status StatusReader, h backend.CredentialHolder) (DashboardStats, error) {
	var stats DashboardStats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		users, err := src.Users(ctx, h)
		if err != nil {
			return err
		}
		stats.Users = len(users)
		return nil
	})
	g.Go(func() error {
		anns, err := src.Announcements(ctx, h)
		if err != nil {
			return err
		}
		stats.Announcements = len(anns)
		return nil
	})
	g.Go(func() error {
		page, err := src.Posts(ctx, h, domain.PostQuery{Page: 1, Size: 1})
		if err != nil {
			return err
		}
		stats.Posts = page.Total
		return nil
	})
	g.Go(func() error {
		overview, err := status.Current(ctx)
		if err != nil {
			return err
		}
		stats.Online = overview.TotalOnline
		stats.Max = overview.TotalMax
		return nil
	})

	if err := g.Wait(); err != nil {
		return DashboardStats{}, err
	}
	return stats, nil
}
