// Package repository is the storage collaborator for the forum services.
// Each entity has an interface with a Postgres (gorm) and an in-memory
// implementation; both enforce the (user, target) and (user, forum)
// uniqueness constraints atomically.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/emilythestrangee/forum/backend/internal/models"
)

var (
	// ErrNotFound is returned by find/update/delete lookups that match no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type ForumRepository interface {
	// CreateWithSubscription inserts the forum and subscribes its creator in a
	// single transaction.
	CreateWithSubscription(ctx context.Context, forum *models.Forum) (*models.Subscription, error)
	FindByID(ctx context.Context, id string) (*models.Forum, error)
	FindByName(ctx context.Context, name string) (*models.Forum, error)
	List(ctx context.Context) ([]models.Forum, error)
	SearchByPrefix(ctx context.Context, prefix string, limit int) ([]models.Forum, error)
}

type SubscriptionRepository interface {
	Find(ctx context.Context, userID, forumID string) (*models.Subscription, error)
	Create(ctx context.Context, sub *models.Subscription) error
	// Delete removes the (user, forum) subscription and reports whether a row existed.
	Delete(ctx context.Context, userID, forumID string) (bool, error)
	ListByForum(ctx context.Context, forumID string) ([]models.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]models.Subscription, error)
	CountByForum(ctx context.Context, forumID string) (int64, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id string) (*models.Post, error)
	// ListByForum returns the forum's posts, newest first.
	ListByForum(ctx context.Context, forumID string) ([]models.Post, error)
	Update(ctx context.Context, id, title, content string) error
	// Delete removes the post together with its comments and every vote on them.
	Delete(ctx context.Context, id string) error
}

type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id string) (*models.Comment, error)
	UpdateText(ctx context.Context, id, text string) error
	// Delete removes the given comments and their votes.
	Delete(ctx context.Context, ids ...string) error
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
}

type VoteRepository interface {
	Find(ctx context.Context, kind models.TargetKind, userID, targetID string) (*models.Vote, error)
	Create(ctx context.Context, vote *models.Vote) error
	UpdateType(ctx context.Context, id string, voteType models.VoteType) error
	Delete(ctx context.Context, id string) error
	ListByTarget(ctx context.Context, kind models.TargetKind, targetID string) ([]models.Vote, error)
	// ListByTargets returns the votes on any of targetIDs, grouped by target id.
	ListByTargets(ctx context.Context, kind models.TargetKind, targetIDs []string) (map[string][]models.Vote, error)
}

// Store bundles the repositories one backend provides.
type Store struct {
	Users         UserRepository
	Forums        ForumRepository
	Subscriptions SubscriptionRepository
	Posts         PostRepository
	Comments      CommentRepository
	Votes         VoteRepository
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
