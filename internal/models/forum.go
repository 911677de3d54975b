package models

import "time"

// Forum model - a named community users subscribe to
type Forum struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `json:"description"`
	CreatorID   string    `gorm:"index;not null" json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Subscription model - membership of a user in a forum
type Subscription struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_subscription_user_forum" json:"user_id"`
	ForumID   string    `gorm:"not null;uniqueIndex:idx_subscription_user_forum;index" json:"forum_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateForumRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}
