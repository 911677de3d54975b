package models

import "time"

type Comment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Text      string    `gorm:"not null" json:"text"`
	AuthorID  string    `gorm:"index;not null" json:"author_id"`
	PostID    string    `gorm:"index;not null" json:"post_id"`
	ParentID  *string   `gorm:"index" json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateCommentRequest struct {
	Text     string  `json:"text" binding:"required"`
	ParentID *string `json:"parent_id,omitempty"`
}

type UpdateCommentRequest struct {
	Text string `json:"text" binding:"required"`
}
