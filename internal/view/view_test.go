package view

import (
	"testing"
	"time"

	"github.com/pscheid92/hxzd-portal/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 15, 0},
		{1, 15, 1},
		{15, 15, 1},
		{16, 15, 2},
		{31, 15, 3},
		{10, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.size), "total=%d size=%d", tt.total, tt.size)
	}
}

func TestForumPagination(t *testing.T) {
	p := NewForumPagination(domain.PostPage{Total: 31, Page: 2, Size: 15}, domain.CategoryQuestion)

	assert.True(t, p.Visible())
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, []PageLink{
		{Number: 1, URL: "/forum?category=question"},
		{Number: 2, URL: "/forum?category=question&page=2", Active: true},
		{Number: 3, URL: "/forum?category=question&page=3"},
	}, p.Links)
}

func TestForumPagination_HiddenForSinglePage(t *testing.T) {
	p := NewForumPagination(domain.PostPage{Total: 15, Page: 1, Size: 15}, "")

	assert.False(t, p.Visible())
	assert.Empty(t, p.Links)
}

func TestCategoryFilter_LinksToFirstPage(t *testing.T) {
	opts := CategoryFilter(domain.CategoryShowcase)

	assert.Equal(t, "全部", opts[0].Label)
	for _, o := range opts {
		assert.NotContains(t, ForumURL(o.Value, 1), "page=")
		assert.Equal(t, o.Value == domain.CategoryShowcase, o.Active)
	}
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "白名单申请", CategoryLabel(domain.CategoryWhitelist))
	assert.Equal(t, "events", CategoryLabel("events"))
}

func TestNewServerCard(t *testing.T) {
	servers := []domain.ServerStatus{
		{ServerName: "Survival", Address: "play.example.com", Online: true, Version: "1.20.4", Software: "Paper", Players: domain.PlayerCount{Online: 3, Max: 20}},
		{ServerName: "Creative", Address: "c.example.com", Online: false},
	}

	first := NewServerCard(servers, 0)
	assert.Equal(t, "(1/2) Survival", first.Label)
	assert.Equal(t, "3 / 20", first.Players)
	assert.Equal(t, "Paper", first.Type)
	assert.Equal(t, "在线", first.Badge.Text)

	second := NewServerCard(servers, 1)
	assert.Equal(t, "(2/2) Creative", second.Label)
	assert.Equal(t, Dash, second.Players)
	assert.Equal(t, Dash, second.Version)
	assert.Equal(t, Dash, second.Type)
	assert.Equal(t, "离线", second.Badge.Text)
}

func TestNewServerCard_SingleServerHasNoLabel(t *testing.T) {
	card := NewServerCard([]domain.ServerStatus{{ServerName: "Only", ServerType: "modded", Online: true}}, 0)

	assert.Empty(t, card.Label)
	assert.Equal(t, "modded", card.Type)
}

func TestNewServerCard_Empty(t *testing.T) {
	card := NewServerCard(nil, -1)

	assert.True(t, card.Empty)
	assert.Equal(t, "无服务器", card.Badge.Text)
}

func TestFormatting(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	ts := time.Date(2024, 3, 9, 16, 5, 0, 0, time.UTC)

	assert.Equal(t, "2024/03/10", FormatDate(ts.Add(8*time.Hour), loc))
	assert.Equal(t, "2024/03/10 00:05", FormatDateTime(ts, loc))
	assert.Equal(t, Dash, FormatDate(time.Time{}, loc))
}

func TestAvatarHelpers(t *testing.T) {
	assert.Equal(t, "S", AvatarInitial("steve"))
	assert.Equal(t, "小", AvatarInitial("小明"))
	assert.Equal(t, "?", AvatarInitial(""))
	assert.Equal(t, "https://mc-heads.net/avatar/Notch/128", MCHeadsURL("Notch"))
	assert.Equal(t, "https://mc-heads.net/avatar/a%20b/128", MCHeadsURL("a b"))
	assert.Empty(t, MCHeadsURL(""))
}

func TestAuthorName(t *testing.T) {
	assert.Equal(t, AnonymousAuthor, AuthorName(nil))
	assert.Equal(t, "alex", AuthorName(&domain.User{Username: "alex"}))
}
