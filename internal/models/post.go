package models

import "time"

type Post struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `json:"content"`
	AuthorID  string    `gorm:"index;not null" json:"author_id"`
	ForumID   string    `gorm:"index;not null" json:"forum_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreatePostRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
}

// UpdatePostRequest changes only the fields that are present.
type UpdatePostRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}
