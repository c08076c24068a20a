package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/hxzd-portal/internal/adapter/backend"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	apperrors "github.com/pscheid92/hxzd-portal/internal/platform/errors"
	"github.com/pscheid92/hxzd-portal/internal/session"
	"github.com/pscheid92/hxzd-portal/internal/view"
)

const forumPageSize = 15

func (s *Server) registerForumRoutes() {
	s.echo.GET("/forum", s.handleForum)
	s.echo.GET("/forum/new", s.handleNewPostForm, s.requireLogin)
	s.echo.POST("/forum/posts", s.handleCreatePost, s.requireLogin)
	s.echo.GET("/forum/posts/:id", s.handlePost)
	s.echo.POST("/forum/posts/:id", s.handleUpdatePost, s.requireLogin)
	s.echo.POST("/forum/posts/:id/delete", s.handleDeletePost, s.requireLogin)
	s.echo.POST("/forum/posts/:id/comments", s.handleCreateComment, s.requireLogin)
	s.echo.POST("/forum/comments/:id/delete", s.handleDeleteComment, s.requireLogin)
}

type forumPage struct {
	layout
	Category   domain.Category
	Categories []view.CategoryOption
	Posts      []domain.ForumPost
	Pagination view.Pagination
	LoadError  string
}

// handleForum lists one page of posts. Page and category live in the URL so
// concurrent requests never share list state.
func (s *Server) handleForum(c echo.Context) error {
	ctx := c.Request().Context()
	category := domain.Category(c.QueryParam("category"))
	if !category.Valid() {
		category = ""
	}
	page := queryInt(c, "page", 1)

	data := forumPage{
		layout:     s.newLayout(c, "forum", "论坛"),
		Category:   category,
		Categories: view.CategoryFilter(category),
	}

	result, err := s.backend.Posts(ctx, backend.Anonymous{}, domain.PostQuery{Page: page, Size: forumPageSize, Category: category})
	if err != nil {
		slog.WarnContext(ctx, "Failed to load forum posts", "error", err)
		data.LoadError = msgLoadFailed
		return s.render(c, "forum.html", data)
	}

	if result.Page == 0 {
		result.Page = page
	}
	if result.Size == 0 {
		result.Size = forumPageSize
	}
	data.Posts = result.Posts
	data.Pagination = view.NewForumPagination(*result, category)
	return s.render(c, "forum.html", data)
}

type postForm struct {
	Title    string
	Content  string
	Category domain.Category
}

func (f postForm) validate() error {
	if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Content) == "" {
		return apperrors.ValidationError("标题和内容不能为空")
	}
	return nil
}

func (f postForm) input() domain.PostInput {
	title := strings.TrimSpace(f.Title)
	content := strings.TrimSpace(f.Content)
	category := f.Category
	return domain.PostInput{Title: &title, Content: &content, Category: &category}
}

func readPostForm(c echo.Context) postForm {
	category := domain.Category(c.FormValue("category"))
	if !category.Valid() {
		category = domain.CategoryGeneral
	}
	return postForm{Title: c.FormValue("title"), Content: c.FormValue("content"), Category: category}
}

type newPostPage struct {
	layout
	Form       postForm
	Categories []view.CategoryOption
	Error      string
}

func (s *Server) renderNewPost(c echo.Context, form postForm, message string) error {
	return s.render(c, "forum_new.html", newPostPage{
		layout:     s.newLayout(c, "forum", "发布新帖"),
		Form:       form,
		Categories: view.CategoryFilter(form.Category)[1:],
		Error:      message,
	})
}

func (s *Server) handleNewPostForm(c echo.Context) error {
	return s.renderNewPost(c, postForm{Category: domain.CategoryGeneral}, "")
}

func (s *Server) handleCreatePost(c echo.Context) error {
	form := readPostForm(c)
	if err := form.validate(); err != nil {
		return s.renderNewPost(c, form, formFailure(err))
	}

	if _, err := s.backend.CreatePost(c.Request().Context(), sessionFrom(c), form.input()); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.renderNewPost(c, form, failureText(err, "发布失败"))
	}
	return s.redirectWithFlash(c, session.FlashSuccess, "发布成功！", view.ForumURL(form.Category, 1))
}

type postPage struct {
	layout
	Post       *domain.ForumPost
	CanManage  bool
	Editing    bool
	Categories []view.CategoryOption
}

func (s *Server) handlePost(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	post, err := s.backend.Post(c.Request().Context(), backend.Anonymous{}, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperrors.NotFoundError("帖子不存在").WithField("post_id", id)
		}
		return fmt.Errorf("failed to load post %d: %w", id, err)
	}

	data := postPage{layout: s.newLayout(c, "forum", post.Title), Post: post}
	data.CanManage = domain.CanModerate(data.User, post.AuthorID)
	data.Editing = data.CanManage && c.QueryParam("edit") == "1"
	if data.Editing {
		data.Categories = view.CategoryFilter(post.Category)[1:]
	}
	return s.render(c, "post.html", data)
}

func postURL(id uint) string {
	return fmt.Sprintf("/forum/posts/%d", id)
}

func (s *Server) handleUpdatePost(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	form := readPostForm(c)
	if err := form.validate(); err != nil {
		return s.redirectWithFlash(c, session.FlashError, formFailure(err), postURL(id)+"?edit=1")
	}

	if _, err := s.backend.UpdatePost(c.Request().Context(), sessionFrom(c), id, form.input()); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "修改失败"), postURL(id)+"?edit=1")
	}
	return s.redirectWithFlash(c, session.FlashSuccess, "修改成功", postURL(id))
}

func (s *Server) handleDeletePost(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := s.backend.DeletePost(c.Request().Context(), sessionFrom(c), id); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "删除失败"), postURL(id))
	}
	return s.redirectWithFlash(c, session.FlashSuccess, msgDeleted, "/forum")
}

func (s *Server) handleCreateComment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	content := strings.TrimSpace(c.FormValue("content"))
	if content == "" {
		return s.redirect(c, postURL(id))
	}

	if _, err := s.backend.CreateComment(c.Request().Context(), sessionFrom(c), id, content); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "评论失败"), postURL(id))
	}
	return s.redirect(c, postURL(id)+"#comments")
}

// handleDeleteComment needs the post id only to return the visitor to it.
func (s *Server) handleDeleteComment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	back := "/forum"
	if postID := formInt(c, "post_id"); postID > 0 {
		back = postURL(uint(postID)) + "#comments"
	}

	if err := s.backend.DeleteComment(c.Request().Context(), sessionFrom(c), id); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "删除失败"), back)
	}
	return s.redirect(c, back)
}
