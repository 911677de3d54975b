// Package forum manages forums and the users subscribed to them.
package forum

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/emilythestrangee/forum/backend/internal/apperrors"
	"github.com/emilythestrangee/forum/backend/internal/metrics"
	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/notify"
	"github.com/emilythestrangee/forum/backend/internal/repository"
)

// SearchLimit caps forum name search results.
const SearchLimit = 5

type State string

const (
	StateSubscribed   State = "Subscribed"
	StateUnsubscribed State = "Unsubscribed"
)

// ToggleResult carries the subscription when the toggle created one.
type ToggleResult struct {
	State        State                `json:"state"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

// PostSummary is a post listed under its forum with the votes cast on it.
type PostSummary struct {
	models.Post
	Votes []models.Vote `json:"votes"`
}

// Detail is a forum with its posts (newest first) and subscriber count.
type Detail struct {
	models.Forum
	Posts            []PostSummary `json:"posts"`
	SubscribersCount int64         `json:"subscribers_count"`
}

// Policy holds the tunable behaviour of the registry.
type Policy struct {
	// NotifySelfSubscribe sends NEW_SUBSCRIBER to a creator who subscribes to
	// their own forum.
	NotifySelfSubscribe bool
}

type Registry struct {
	store    *repository.Store
	notifier notify.Notifier
	policy   Policy
	logger   *slog.Logger
}

func NewRegistry(store *repository.Store, notifier notify.Notifier, policy Policy, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, notifier: notifier, policy: policy, logger: logger}
}

// CreateForum creates the forum and subscribes its creator in one step.
func (r *Registry) CreateForum(ctx context.Context, name, description, creatorID string) (*models.Forum, *models.Subscription, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, apperrors.Validation("forum name is required")
	}

	if _, err := r.store.Forums.FindByName(ctx, name); err == nil {
		return nil, nil, apperrors.Conflict("forum name already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperrors.Storage(err)
	}

	forum := &models.Forum{Name: name, Description: description, CreatorID: creatorID}
	sub, err := r.store.Forums.CreateWithSubscription(ctx, forum)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, apperrors.Conflict("forum name already exists")
		}
		return nil, nil, apperrors.Storage(err)
	}
	metrics.SubscriptionChangesTotal.WithLabelValues(string(StateSubscribed)).Inc()

	r.logger.Info("Forum created", "forum_id", forum.ID, "name", forum.Name, "creator_id", creatorID)
	return forum, sub, nil
}

// Toggle subscribes userID when not subscribed and unsubscribes otherwise.
func (r *Registry) Toggle(ctx context.Context, userID, forumID string) (*ToggleResult, error) {
	forum, err := r.findForum(ctx, forumID)
	if err != nil {
		return nil, err
	}

	_, err = r.store.Subscriptions.Find(ctx, userID, forumID)
	switch {
	case err == nil:
		if err := r.remove(ctx, userID, forumID); err != nil {
			return nil, err
		}
		return &ToggleResult{State: StateUnsubscribed}, nil
	case errors.Is(err, repository.ErrNotFound):
		sub, err := r.create(ctx, userID, forum)
		if err != nil {
			return nil, err
		}
		return &ToggleResult{State: StateSubscribed, Subscription: sub}, nil
	default:
		return nil, apperrors.Storage(err)
	}
}

// Subscribe fails with Conflict when userID is already subscribed.
func (r *Registry) Subscribe(ctx context.Context, userID, forumID string) (*models.Subscription, error) {
	forum, err := r.findForum(ctx, forumID)
	if err != nil {
		return nil, err
	}

	if _, err := r.store.Subscriptions.Find(ctx, userID, forumID); err == nil {
		return nil, apperrors.Conflict("already subscribed to this forum")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Storage(err)
	}
	return r.create(ctx, userID, forum)
}

// Unsubscribe succeeds whether or not a subscription existed.
func (r *Registry) Unsubscribe(ctx context.Context, userID, forumID string) error {
	if _, err := r.findForum(ctx, forumID); err != nil {
		return err
	}
	return r.remove(ctx, userID, forumID)
}

func (r *Registry) create(ctx context.Context, userID string, forum *models.Forum) (*models.Subscription, error) {
	sub := &models.Subscription{UserID: userID, ForumID: forum.ID}
	if err := r.store.Subscriptions.Create(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("already subscribed to this forum")
		}
		return nil, apperrors.Storage(err)
	}
	metrics.SubscriptionChangesTotal.WithLabelValues(string(StateSubscribed)).Inc()
	r.logger.Debug("Subscribed", "user_id", userID, "forum_id", forum.ID)

	r.notifyCreator(ctx, userID, forum)
	return sub, nil
}

func (r *Registry) remove(ctx context.Context, userID, forumID string) error {
	removed, err := r.store.Subscriptions.Delete(ctx, userID, forumID)
	if err != nil {
		return apperrors.Storage(err)
	}
	if removed {
		metrics.SubscriptionChangesTotal.WithLabelValues(string(StateUnsubscribed)).Inc()
		r.logger.Debug("Unsubscribed", "user_id", userID, "forum_id", forumID)
	}
	return nil
}

func (r *Registry) notifyCreator(ctx context.Context, subscriberID string, forum *models.Forum) {
	if r.notifier == nil {
		return
	}
	if subscriberID == forum.CreatorID && !r.policy.NotifySelfSubscribe {
		return
	}

	subscriber, err := r.store.Users.FindByID(ctx, subscriberID)
	if err != nil {
		r.logger.Warn("Skipping subscriber notification, user lookup failed",
			"user_id", subscriberID, "forum_id", forum.ID, "error", err)
		return
	}
	r.notifier.Deliver(forum.CreatorID,
		notify.NewSubscriber(forum.CreatorID, subscriber.Username, forum.Name, forum.ID))
}

func (r *Registry) findForum(ctx context.Context, forumID string) (*models.Forum, error) {
	forum, err := r.store.Forums.FindByID(ctx, forumID)
	if err != nil {
		return nil, apperrors.FromRepository(err, "forum not found")
	}
	return forum, nil
}

// GetForum returns the forum with its posts and subscriber count.
func (r *Registry) GetForum(ctx context.Context, forumID string) (*Detail, error) {
	forum, err := r.findForum(ctx, forumID)
	if err != nil {
		return nil, err
	}
	return r.detail(ctx, *forum)
}

// ListForums returns every forum, newest first, each with its posts and
// subscriber count.
func (r *Registry) ListForums(ctx context.Context) ([]Detail, error) {
	forums, err := r.store.Forums.List(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	details := make([]Detail, 0, len(forums))
	for _, f := range forums {
		d, err := r.detail(ctx, f)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, nil
}

func (r *Registry) detail(ctx context.Context, forum models.Forum) (*Detail, error) {
	posts, err := r.store.Posts.ListByForum(ctx, forum.ID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	votes, err := r.store.Votes.ListByTargets(ctx, models.TargetPost, ids)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	count, err := r.store.Subscriptions.CountByForum(ctx, forum.ID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	summaries := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		v := votes[p.ID]
		if v == nil {
			v = []models.Vote{}
		}
		summaries = append(summaries, PostSummary{Post: p, Votes: v})
	}
	return &Detail{Forum: forum, Posts: summaries, SubscribersCount: count}, nil
}

// SearchForums returns up to SearchLimit forums whose name starts with prefix.
func (r *Registry) SearchForums(ctx context.Context, prefix string) ([]models.Forum, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []models.Forum{}, nil
	}
	forums, err := r.store.Forums.SearchByPrefix(ctx, prefix, SearchLimit)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return forums, nil
}

// UserSubscriptions lists the forums userID is subscribed to.
func (r *Registry) UserSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error) {
	if _, err := r.store.Users.FindByID(ctx, userID); err != nil {
		return nil, apperrors.FromRepository(err, "user not found")
	}
	subs, err := r.store.Subscriptions.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return subs, nil
}

func (r *Registry) Subscribers(ctx context.Context, forumID string) ([]models.Subscription, error) {
	if _, err := r.findForum(ctx, forumID); err != nil {
		return nil, err
	}
	subs, err := r.store.Subscriptions.ListByForum(ctx, forumID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return subs, nil
}
