package domain

import "time"

type Announcement struct {
	ID        uint      `json:"id,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	IsPinned  bool      `json:"is_pinned"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

func (a Announcement) ItemID() uint { return a.ID }
