package models

import "time"

type VoteType string

const (
	VoteUp   VoteType = "UP"
	VoteDown VoteType = "DOWN"
)

// TargetKind names the entity a vote attaches to.
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// Vote model - tracks one user's vote on a post or comment.
// A missing row means the user is neutral on the target.
type Vote struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string     `gorm:"not null;uniqueIndex:idx_vote_user_target" json:"user_id"`
	TargetKind TargetKind `gorm:"type:varchar(16);not null;uniqueIndex:idx_vote_user_target;index:idx_vote_target" json:"target_kind"`
	TargetID   string     `gorm:"not null;uniqueIndex:idx_vote_user_target;index:idx_vote_target" json:"target_id"`
	Type       VoteType   `gorm:"type:varchar(8);not null" json:"type"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
