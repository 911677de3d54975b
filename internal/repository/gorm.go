package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/emilythestrangee/forum/backend/internal/models"
)

const uniqueViolation = "23505"

// NewGormStore builds a Store backed by the given gorm connection.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Users:         &gormUsers{db: db},
		Forums:        &gormForums{db: db},
		Subscriptions: &gormSubscriptions{db: db},
		Posts:         &gormPosts{db: db},
		Comments:      &gormComments{db: db},
		Votes:         &gormVotes{db: db},
	}
}

// translate maps driver errors onto the package sentinels.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.Is(err, gorm.ErrDuplicatedKey) || (errors.As(err, &pgErr) && pgErr.Code == uniqueViolation) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func affected(op string, res *gorm.DB) error {
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

type gormUsers struct {
	db *gorm.DB
}

func (r *gormUsers) Create(ctx context.Context, user *models.User) error {
	ensureID(&user.ID)
	return translate("create user", r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate("find user", err)
	}
	return &user, nil
}

func (r *gormUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate("find user by email", err)
	}
	return &user, nil
}

type gormForums struct {
	db *gorm.DB
}

func (r *gormForums) CreateWithSubscription(ctx context.Context, forum *models.Forum) (*models.Subscription, error) {
	ensureID(&forum.ID)
	sub := &models.Subscription{UserID: forum.CreatorID, ForumID: forum.ID}
	ensureID(&sub.ID)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(forum).Error; err != nil {
			return err
		}
		return tx.Create(sub).Error
	})
	if err != nil {
		return nil, translate("create forum", err)
	}
	return sub, nil
}

func (r *gormForums) FindByID(ctx context.Context, id string) (*models.Forum, error) {
	var forum models.Forum
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&forum).Error; err != nil {
		return nil, translate("find forum", err)
	}
	return &forum, nil
}

func (r *gormForums) FindByName(ctx context.Context, name string) (*models.Forum, error) {
	var forum models.Forum
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&forum).Error; err != nil {
		return nil, translate("find forum by name", err)
	}
	return &forum, nil
}

func (r *gormForums) List(ctx context.Context) ([]models.Forum, error) {
	forums := []models.Forum{}
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&forums).Error; err != nil {
		return nil, translate("list forums", err)
	}
	return forums, nil
}

func (r *gormForums) SearchByPrefix(ctx context.Context, prefix string, limit int) ([]models.Forum, error) {
	forums := []models.Forum{}
	err := r.db.WithContext(ctx).
		Where("name LIKE ?", escapeLike(prefix)+"%").
		Order("name").
		Limit(limit).
		Find(&forums).Error
	if err != nil {
		return nil, translate("search forums", err)
	}
	return forums, nil
}

type gormSubscriptions struct {
	db *gorm.DB
}

func (r *gormSubscriptions) Find(ctx context.Context, userID, forumID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ? AND forum_id = ?", userID, forumID).First(&sub).Error
	if err != nil {
		return nil, translate("find subscription", err)
	}
	return &sub, nil
}

func (r *gormSubscriptions) Create(ctx context.Context, sub *models.Subscription) error {
	ensureID(&sub.ID)
	return translate("create subscription", r.db.WithContext(ctx).Create(sub).Error)
}

func (r *gormSubscriptions) Delete(ctx context.Context, userID, forumID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND forum_id = ?", userID, forumID).Delete(&models.Subscription{})
	if res.Error != nil {
		return false, translate("delete subscription", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormSubscriptions) ListByForum(ctx context.Context, forumID string) ([]models.Subscription, error) {
	subs := []models.Subscription{}
	if err := r.db.WithContext(ctx).Where("forum_id = ?", forumID).Order("created_at").Find(&subs).Error; err != nil {
		return nil, translate("list subscriptions", err)
	}
	return subs, nil
}

func (r *gormSubscriptions) ListByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	subs := []models.Subscription{}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&subs).Error; err != nil {
		return nil, translate("list user subscriptions", err)
	}
	return subs, nil
}

func (r *gormSubscriptions) CountByForum(ctx context.Context, forumID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Subscription{}).Where("forum_id = ?", forumID).Count(&count).Error; err != nil {
		return 0, translate("count subscriptions", err)
	}
	return count, nil
}

type gormPosts struct {
	db *gorm.DB
}

func (r *gormPosts) Create(ctx context.Context, post *models.Post) error {
	ensureID(&post.ID)
	return translate("create post", r.db.WithContext(ctx).Create(post).Error)
}

func (r *gormPosts) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, translate("find post", err)
	}
	return &post, nil
}

func (r *gormPosts) ListByForum(ctx context.Context, forumID string) ([]models.Post, error) {
	posts := []models.Post{}
	if err := r.db.WithContext(ctx).Where("forum_id = ?", forumID).Order("created_at desc").Find(&posts).Error; err != nil {
		return nil, translate("list posts", err)
	}
	return posts, nil
}

func (r *gormPosts) Update(ctx context.Context, id, title, content string) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		Updates(map[string]any{"title": title, "content": content})
	return affected("update post", res)
}

func (r *gormPosts) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var commentIDs []string
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return translate("delete post", err)
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("target_kind = ? AND target_id IN ?", models.TargetComment, commentIDs).Delete(&models.Vote{}).Error; err != nil {
				return translate("delete post", err)
			}
			if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
				return translate("delete post", err)
			}
		}
		if err := tx.Where("target_kind = ? AND target_id = ?", models.TargetPost, id).Delete(&models.Vote{}).Error; err != nil {
			return translate("delete post", err)
		}
		return affected("delete post", tx.Where("id = ?", id).Delete(&models.Post{}))
	})
}

type gormComments struct {
	db *gorm.DB
}

func (r *gormComments) Create(ctx context.Context, comment *models.Comment) error {
	ensureID(&comment.ID)
	return translate("create comment", r.db.WithContext(ctx).Create(comment).Error)
}

func (r *gormComments) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, translate("find comment", err)
	}
	return &comment, nil
}

func (r *gormComments) UpdateText(ctx context.Context, id, text string) error {
	return affected("update comment", r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("text", text))
}

func (r *gormComments) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("target_kind = ? AND target_id IN ?", models.TargetComment, ids).Delete(&models.Vote{}).Error; err != nil {
			return translate("delete comment votes", err)
		}
		return affected("delete comments", tx.Where("id IN ?", ids).Delete(&models.Comment{}))
	})
}

func (r *gormComments) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at").Find(&comments).Error; err != nil {
		return nil, translate("list comments", err)
	}
	return comments, nil
}

type gormVotes struct {
	db *gorm.DB
}

func (r *gormVotes) Find(ctx context.Context, kind models.TargetKind, userID, targetID string) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_kind = ? AND target_id = ?", userID, kind, targetID).
		First(&vote).Error
	if err != nil {
		return nil, translate("find vote", err)
	}
	return &vote, nil
}

func (r *gormVotes) Create(ctx context.Context, vote *models.Vote) error {
	ensureID(&vote.ID)
	return translate("create vote", r.db.WithContext(ctx).Create(vote).Error)
}

func (r *gormVotes) UpdateType(ctx context.Context, id string, voteType models.VoteType) error {
	return affected("update vote", r.db.WithContext(ctx).Model(&models.Vote{}).Where("id = ?", id).Update("type", voteType))
}

func (r *gormVotes) Delete(ctx context.Context, id string) error {
	return affected("delete vote", r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Vote{}))
}

func (r *gormVotes) ListByTarget(ctx context.Context, kind models.TargetKind, targetID string) ([]models.Vote, error) {
	votes := []models.Vote{}
	err := r.db.WithContext(ctx).
		Where("target_kind = ? AND target_id = ?", kind, targetID).
		Order("created_at").
		Find(&votes).Error
	if err != nil {
		return nil, translate("list votes", err)
	}
	return votes, nil
}

func (r *gormVotes) ListByTargets(ctx context.Context, kind models.TargetKind, targetIDs []string) (map[string][]models.Vote, error) {
	grouped := make(map[string][]models.Vote, len(targetIDs))
	if len(targetIDs) == 0 {
		return grouped, nil
	}

	var votes []models.Vote
	err := r.db.WithContext(ctx).
		Where("target_kind = ? AND target_id IN ?", kind, targetIDs).
		Order("created_at").
		Find(&votes).Error
	if err != nil {
		return nil, translate("list votes", err)
	}
	for _, v := range votes {
		grouped[v.TargetID] = append(grouped[v.TargetID], v)
	}
	return grouped, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
