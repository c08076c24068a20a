package view

import (
	"net/url"
	"strconv"

	"github.com/pscheid92/hxzd-portal/internal/domain"
)

type PageLink struct {
	Number int
	URL    string
	Active bool
}

type Pagination struct {
	Current    int
	TotalPages int
	Links      []PageLink
}

// Visible is false for a single page or none.
func (p Pagination) Visible() bool { return p.TotalPages > 1 }

// TotalPages is ceil(total/size); a non-positive size yields 0.
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// ForumURL builds the listing URL for a category and page. Page 1 is implied.
func ForumURL(category domain.Category, page int) string {
	q := url.Values{}
	if category != "" {
		q.Set("category", string(category))
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return "/forum"
	}
	return "/forum?" + q.Encode()
}

func NewForumPagination(page domain.PostPage, category domain.Category) Pagination {
	p := Pagination{Current: page.Page, TotalPages: TotalPages(page.Total, page.Size)}
	if !p.Visible() {
		return p
	}
	p.Links = make([]PageLink, 0, p.TotalPages)
	for i := 1; i <= p.TotalPages; i++ {
		p.Links = append(p.Links, PageLink{Number: i, URL: ForumURL(category, i), Active: i == page.Page})
	}
	return p
}
