package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/emilythestrangee/forum/backend/internal/models"
)

// table keeps rows in insertion order.
type table[T any] struct {
	rows map[string]T
	seq  map[string]uint64
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T), seq: make(map[string]uint64)}
}

func (t *table[T]) put(id string, row T, seq uint64) {
	if _, ok := t.seq[id]; !ok {
		t.seq[id] = seq
	}
	t.rows[id] = row
}

func (t *table[T]) remove(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	delete(t.seq, id)
	return true
}

func (t *table[T]) filter(keep func(T) bool) []T {
	ids := make([]string, 0, len(t.rows))
	for id, row := range t.rows {
		if keep(row) {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b string) int { return cmp.Compare(t.seq[a], t.seq[b]) })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.rows[id])
	}
	return out
}

// memoryDB is a mutex-guarded in-process database. Every method holds the
// lock for its whole check-and-write, so uniqueness checks are atomic.
type memoryDB struct {
	mu  sync.RWMutex
	seq uint64
	now func() time.Time

	users    *table[models.User]
	forums   *table[models.Forum]
	subs     *table[models.Subscription]
	posts    *table[models.Post]
	comments *table[models.Comment]
	votes    *table[models.Vote]
}

func (m *memoryDB) next() uint64 {
	m.seq++
	return m.seq
}

// NewMemoryStore builds a Store that keeps everything in process memory.
func NewMemoryStore() *Store {
	db := &memoryDB{
		now:      time.Now,
		users:    newTable[models.User](),
		forums:   newTable[models.Forum](),
		subs:     newTable[models.Subscription](),
		posts:    newTable[models.Post](),
		comments: newTable[models.Comment](),
		votes:    newTable[models.Vote](),
	}
	return &Store{
		Users:         &memUsers{db},
		Forums:        &memForums{db},
		Subscriptions: &memSubscriptions{db},
		Posts:         &memPosts{db},
		Comments:      &memComments{db},
		Votes:         &memVotes{db},
	}
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, ErrNotFound)
}

func duplicate(op string) error {
	return fmt.Errorf("%s: %w", op, ErrDuplicate)
}

type memUsers struct{ db *memoryDB }

func (r *memUsers) Create(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	ensureID(&user.ID)
	for _, u := range r.db.users.rows {
		if u.ID == user.ID || u.Username == user.Username || u.Email == user.Email {
			return duplicate("create user")
		}
	}
	user.CreatedAt = r.db.now()
	user.UpdatedAt = user.CreatedAt
	r.db.users.put(user.ID, *user, r.db.next())
	return nil
}

func (r *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users.rows[id]
	if !ok {
		return nil, notFound("find user")
	}
	return &u, nil
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, notFound("find user by email")
}

type memForums struct{ db *memoryDB }

func (r *memForums) CreateWithSubscription(_ context.Context, forum *models.Forum) (*models.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	ensureID(&forum.ID)
	for _, f := range r.db.forums.rows {
		if f.ID == forum.ID || f.Name == forum.Name {
			return nil, duplicate("create forum")
		}
	}

	now := r.db.now()
	forum.CreatedAt = now
	forum.UpdatedAt = now
	sub := models.Subscription{UserID: forum.CreatorID, ForumID: forum.ID, CreatedAt: now}
	ensureID(&sub.ID)

	r.db.forums.put(forum.ID, *forum, r.db.next())
	r.db.subs.put(sub.ID, sub, r.db.next())
	return &sub, nil
}

func (r *memForums) FindByID(_ context.Context, id string) (*models.Forum, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	f, ok := r.db.forums.rows[id]
	if !ok {
		return nil, notFound("find forum")
	}
	return &f, nil
}

func (r *memForums) FindByName(_ context.Context, name string) (*models.Forum, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, f := range r.db.forums.rows {
		if f.Name == name {
			return &f, nil
		}
	}
	return nil, notFound("find forum by name")
}

func (r *memForums) List(_ context.Context) ([]models.Forum, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	forums := r.db.forums.filter(func(models.Forum) bool { return true })
	slices.Reverse(forums)
	return forums, nil
}

func (r *memForums) SearchByPrefix(_ context.Context, prefix string, limit int) ([]models.Forum, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	forums := r.db.forums.filter(func(f models.Forum) bool { return strings.HasPrefix(f.Name, prefix) })
	slices.SortFunc(forums, func(a, b models.Forum) int { return strings.Compare(a.Name, b.Name) })
	if limit > 0 && len(forums) > limit {
		forums = forums[:limit]
	}
	return forums, nil
}

type memSubscriptions struct{ db *memoryDB }

func (r *memSubscriptions) find(userID, forumID string) (models.Subscription, bool) {
	for _, s := range r.db.subs.rows {
		if s.UserID == userID && s.ForumID == forumID {
			return s, true
		}
	}
	return models.Subscription{}, false
}

func (r *memSubscriptions) Find(_ context.Context, userID, forumID string) (*models.Subscription, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.find(userID, forumID)
	if !ok {
		return nil, notFound("find subscription")
	}
	return &s, nil
}

func (r *memSubscriptions) Create(_ context.Context, sub *models.Subscription) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.find(sub.UserID, sub.ForumID); ok {
		return duplicate("create subscription")
	}
	ensureID(&sub.ID)
	sub.CreatedAt = r.db.now()
	r.db.subs.put(sub.ID, *sub, r.db.next())
	return nil
}

func (r *memSubscriptions) Delete(_ context.Context, userID, forumID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.find(userID, forumID)
	if !ok {
		return false, nil
	}
	return r.db.subs.remove(s.ID), nil
}

func (r *memSubscriptions) ListByForum(_ context.Context, forumID string) ([]models.Subscription, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.db.subs.filter(func(s models.Subscription) bool { return s.ForumID == forumID }), nil
}

func (r *memSubscriptions) ListByUser(_ context.Context, userID string) ([]models.Subscription, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.db.subs.filter(func(s models.Subscription) bool { return s.UserID == userID }), nil
}

func (r *memSubscriptions) CountByForum(ctx context.Context, forumID string) (int64, error) {
	subs, err := r.ListByForum(ctx, forumID)
	return int64(len(subs)), err
}

type memPosts struct{ db *memoryDB }

func (r *memPosts) Create(_ context.Context, post *models.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	ensureID(&post.ID)
	if _, ok := r.db.posts.rows[post.ID]; ok {
		return duplicate("create post")
	}
	post.CreatedAt = r.db.now()
	post.UpdatedAt = post.CreatedAt
	r.db.posts.put(post.ID, *post, r.db.next())
	return nil
}

func (r *memPosts) FindByID(_ context.Context, id string) (*models.Post, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.posts.rows[id]
	if !ok {
		return nil, notFound("find post")
	}
	return &p, nil
}

func (r *memPosts) ListByForum(_ context.Context, forumID string) ([]models.Post, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	posts := r.db.posts.filter(func(p models.Post) bool { return p.ForumID == forumID })
	slices.Reverse(posts)
	return posts, nil
}

func (r *memPosts) Update(_ context.Context, id, title, content string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.posts.rows[id]
	if !ok {
		return notFound("update post")
	}
	p.Title = title
	p.Content = content
	p.UpdatedAt = r.db.now()
	r.db.posts.rows[id] = p
	return nil
}

func (r *memPosts) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if !r.db.posts.remove(id) {
		return notFound("delete post")
	}
	for cid, c := range r.db.comments.rows {
		if c.PostID == id {
			r.db.comments.remove(cid)
			r.db.removeVotes(models.TargetComment, cid)
		}
	}
	r.db.removeVotes(models.TargetPost, id)
	return nil
}

func (m *memoryDB) removeVotes(kind models.TargetKind, targetID string) {
	for id, v := range m.votes.rows {
		if v.TargetKind == kind && v.TargetID == targetID {
			m.votes.remove(id)
		}
	}
}

type memComments struct{ db *memoryDB }

func (r *memComments) Create(_ context.Context, comment *models.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	ensureID(&comment.ID)
	if _, ok := r.db.comments.rows[comment.ID]; ok {
		return duplicate("create comment")
	}
	comment.CreatedAt = r.db.now()
	comment.UpdatedAt = comment.CreatedAt
	r.db.comments.put(comment.ID, *comment, r.db.next())
	return nil
}

func (r *memComments) FindByID(_ context.Context, id string) (*models.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.comments.rows[id]
	if !ok {
		return nil, notFound("find comment")
	}
	return &c, nil
}

func (r *memComments) UpdateText(_ context.Context, id, text string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.comments.rows[id]
	if !ok {
		return notFound("update comment")
	}
	c.Text = text
	c.UpdatedAt = r.db.now()
	r.db.comments.rows[id] = c
	return nil
}

func (r *memComments) Delete(_ context.Context, ids ...string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	removed := 0
	for _, id := range ids {
		if r.db.comments.remove(id) {
			removed++
		}
		r.db.removeVotes(models.TargetComment, id)
	}
	if len(ids) > 0 && removed == 0 {
		return notFound("delete comments")
	}
	return nil
}

func (r *memComments) ListByPost(_ context.Context, postID string) ([]models.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.db.comments.filter(func(c models.Comment) bool { return c.PostID == postID }), nil
}

type memVotes struct{ db *memoryDB }

func (r *memVotes) find(kind models.TargetKind, userID, targetID string) (models.Vote, bool) {
	for _, v := range r.db.votes.rows {
		if v.UserID == userID && v.TargetKind == kind && v.TargetID == targetID {
			return v, true
		}
	}
	return models.Vote{}, false
}

func (r *memVotes) Find(_ context.Context, kind models.TargetKind, userID, targetID string) (*models.Vote, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	v, ok := r.find(kind, userID, targetID)
	if !ok {
		return nil, notFound("find vote")
	}
	return &v, nil
}

func (r *memVotes) Create(_ context.Context, vote *models.Vote) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.find(vote.TargetKind, vote.UserID, vote.TargetID); ok {
		return duplicate("create vote")
	}
	ensureID(&vote.ID)
	vote.CreatedAt = r.db.now()
	vote.UpdatedAt = vote.CreatedAt
	r.db.votes.put(vote.ID, *vote, r.db.next())
	return nil
}

func (r *memVotes) UpdateType(_ context.Context, id string, voteType models.VoteType) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	v, ok := r.db.votes.rows[id]
	if !ok {
		return notFound("update vote")
	}
	v.Type = voteType
	v.UpdatedAt = r.db.now()
	r.db.votes.rows[id] = v
	return nil
}

func (r *memVotes) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if !r.db.votes.remove(id) {
		return notFound("delete vote")
	}
	return nil
}

func (r *memVotes) ListByTarget(_ context.Context, kind models.TargetKind, targetID string) ([]models.Vote, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.db.votes.filter(func(v models.Vote) bool {
		return v.TargetKind == kind && v.TargetID == targetID
	}), nil
}

func (r *memVotes) ListByTargets(_ context.Context, kind models.TargetKind, targetIDs []string) (map[string][]models.Vote, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	grouped := make(map[string][]models.Vote, len(targetIDs))
	for _, v := range r.db.votes.filter(func(v models.Vote) bool {
		return v.TargetKind == kind && slices.Contains(targetIDs, v.TargetID)
	}) {
		grouped[v.TargetID] = append(grouped[v.TargetID], v)
	}
	return grouped, nil
}
