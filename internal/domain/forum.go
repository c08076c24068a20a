package domain

import "time"

type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryDiscussion Category = "discussion"
	CategoryQuestion   Category = "question"
	CategoryShowcase   Category = "showcase"
	CategorySuggestion Category = "suggestion"
	CategoryWhitelist  Category = "whitelist"
)

// Categories lists forum categories in display order.
var Categories = []Category{
	CategoryGeneral,
	CategoryDiscussion,
	CategoryQuestion,
	CategoryShowcase,
	CategorySuggestion,
	CategoryWhitelist,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type ForumPost struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  Category  `json:"category"`
	AuthorID  uint      `json:"author_id"`
	Author    *User     `json:"author,omitempty"`
	ViewCount int       `json:"view_count"`
	IsPinned  bool      `json:"is_pinned"`
	CreatedAt time.Time `json:"created_at"`
	Comments  []Comment `json:"comments,omitempty"`
}

type Comment struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	AuthorID  uint      `json:"author_id"`
	Author    *User     `json:"author,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// PostQuery selects one page of the forum listing. Zero values leave the backend defaults.
type PostQuery struct {
	Page     int
	Size     int
	Category Category
}

type PostPage struct {
	Posts []ForumPost `json:"posts"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

// PostInput is the body for creating or editing a post; nil fields are left unchanged on edit.
type PostInput struct {
	Title    *string   `json:"title,omitempty"`
	Content  *string   `json:"content,omitempty"`
	Category *Category `json:"category,omitempty"`
	IsPinned *bool     `json:"is_pinned,omitempty"`
}

// CanModerate reports whether viewer may edit or delete content written by authorID.
func CanModerate(viewer *User, authorID uint) bool {
	return viewer != nil && (viewer.ID == authorID || viewer.IsAdmin())
}
