package forum

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/forum/backend/internal/apperrors"
	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/notify"
	"github.com/emilythestrangee/forum/backend/internal/repository"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Deliver(_ string, event notify.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return true
}

func (n *recordingNotifier) take() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.events
	n.events = nil
	return out
}

func setup(t *testing.T, policy Policy) (*repository.Store, *recordingNotifier, *Registry, *models.Forum) {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	require.NoError(t, store.Users.Create(ctx, &models.User{ID: "creator", Username: "ann", Email: "ann@example.com"}))
	require.NoError(t, store.Users.Create(ctx, &models.User{ID: "reader", Username: "bob lee", Email: "bob@example.com"}))

	n := &recordingNotifier{}
	reg := NewRegistry(store, n, policy, nil)
	forum, _, err := reg.CreateForum(ctx, "golang", "gophers", "creator")
	require.NoError(t, err)
	require.Empty(t, n.take())
	return store, n, reg, forum
}

func TestCreateForum_SubscribesCreator(t *testing.T) {
	store, _, _, forum := setup(t, Policy{})

	sub, err := store.Subscriptions.Find(context.Background(), "creator", forum.ID)
	require.NoError(t, err)
	assert.Equal(t, forum.ID, sub.ForumID)
}

func TestCreateForum_DuplicateNameConflictsWithoutWrites(t *testing.T) {
	store, _, reg, forum := setup(t, Policy{})
	ctx := context.Background()

	_, _, err := reg.CreateForum(ctx, "golang", "again", "reader")
	assert.True(t, apperrors.Is(err, apperrors.TypeConflict))

	_, err = store.Subscriptions.Find(ctx, "reader", forum.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	forums, err := reg.ListForums(ctx)
	require.NoError(t, err)
	assert.Len(t, forums, 1)
}

func TestCreateForum_RequiresName(t *testing.T) {
	_, _, reg, _ := setup(t, Policy{})
	_, _, err := reg.CreateForum(context.Background(), "   ", "", "creator")
	assert.True(t, apperrors.Is(err, apperrors.TypeValidation))
}

func TestToggle_SubscribeThenUnsubscribe(t *testing.T) {
	_, n, reg, forum := setup(t, Policy{})
	ctx := context.Background()

	res, err := reg.Toggle(ctx, "reader", forum.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSubscribed, res.State)
	require.NotNil(t, res.Subscription)
	assert.Equal(t, "reader", res.Subscription.UserID)

	events := n.take()
	require.Len(t, events, 1)
	assert.Equal(t, "creator", events[0].Recipient)
	assert.Equal(t, notify.KindNewSubscriber, events[0].Kind)
	assert.Equal(t, "BobLee subscribed to your forum golang", events[0].Message)
	assert.Equal(t, forum.ID, events[0].ContextID)

	res, err = reg.Toggle(ctx, "reader", forum.ID)
	require.NoError(t, err)
	assert.Equal(t, StateUnsubscribed, res.State)
	assert.Nil(t, res.Subscription)
	assert.Empty(t, n.take())

	subs, err := reg.Subscribers(ctx, forum.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "creator", subs[0].UserID)
}

func TestToggle_UnknownForum(t *testing.T) {
	store, n, reg, _ := setup(t, Policy{})
	ctx := context.Background()

	_, err := reg.Toggle(ctx, "reader", "missing")
	assert.True(t, apperrors.Is(err, apperrors.TypeNotFound))

	_, err = store.Subscriptions.Find(ctx, "reader", "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, n.take())
}

func TestSubscribe_ConflictWhenAlreadySubscribed(t *testing.T) {
	_, n, reg, forum := setup(t, Policy{})
	ctx := context.Background()

	_, err := reg.Subscribe(ctx, "reader", forum.ID)
	require.NoError(t, err)
	require.Len(t, n.take(), 1)

	_, err = reg.Subscribe(ctx, "reader", forum.ID)
	assert.True(t, apperrors.Is(err, apperrors.TypeConflict))
	assert.Empty(t, n.take())
}

func TestUnsubscribe_IsIdempotent(t *testing.T) {
	_, _, reg, forum := setup(t, Policy{})
	ctx := context.Background()

	require.NoError(t, reg.Unsubscribe(ctx, "reader", forum.ID))
	_, err := reg.Subscribe(ctx, "reader", forum.ID)
	require.NoError(t, err)
	require.NoError(t, reg.Unsubscribe(ctx, "reader", forum.ID))
	require.NoError(t, reg.Unsubscribe(ctx, "reader", forum.ID))

	err = reg.Unsubscribe(ctx, "reader", "missing")
	assert.True(t, apperrors.Is(err, apperrors.TypeNotFound))
}

func TestSelfSubscribePolicy(t *testing.T) {
	tests := []struct {
		name       string
		policy     Policy
		wantEvents int
	}{
		{"notify self", Policy{NotifySelfSubscribe: true}, 1},
		{"suppress self", Policy{NotifySelfSubscribe: false}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, n, reg, forum := setup(t, tt.policy)
			ctx := context.Background()

			// The creator starts subscribed; toggle off then back on.
			res, err := reg.Toggle(ctx, "creator", forum.ID)
			require.NoError(t, err)
			assert.Equal(t, StateUnsubscribed, res.State)

			res, err = reg.Toggle(ctx, "creator", forum.ID)
			require.NoError(t, err)
			assert.Equal(t, StateSubscribed, res.State)
			assert.Len(t, n.take(), tt.wantEvents)
		})
	}
}

func TestSearchForums(t *testing.T) {
	_, _, reg, _ := setup(t, Policy{})
	ctx := context.Background()

	for _, name := range []string{"go1", "go2", "go3", "go4", "go5", "go6", "rust"} {
		_, _, err := reg.CreateForum(ctx, name, "", "creator")
		require.NoError(t, err)
	}

	forums, err := reg.SearchForums(ctx, "go")
	require.NoError(t, err)
	assert.Len(t, forums, SearchLimit)
	for _, f := range forums {
		assert.Contains(t, f.Name, "go")
	}

	forums, err = reg.SearchForums(ctx, "ru")
	require.NoError(t, err)
	require.Len(t, forums, 1)
	assert.Equal(t, "rust", forums[0].Name)

	forums, err = reg.SearchForums(ctx, " ")
	require.NoError(t, err)
	assert.Empty(t, forums)
}

func TestGetForum(t *testing.T) {
	_, _, reg, forum := setup(t, Policy{})

	got, err := reg.GetForum(context.Background(), forum.ID)
	require.NoError(t, err)
	assert.Equal(t, "golang", got.Name)

	_, err = reg.GetForum(context.Background(), "missing")
	assert.True(t, apperrors.Is(err, apperrors.TypeNotFound))
}

func TestGetForum_IncludesPostsVotesAndSubscriberCount(t *testing.T) {
	store, _, reg, forum := setup(t, Policy{})
	ctx := context.Background()

	older := &models.Post{ID: "p-old", Title: "first", AuthorID: "creator", ForumID: forum.ID}
	newer := &models.Post{ID: "p-new", Title: "second", AuthorID: "reader", ForumID: forum.ID}
	require.NoError(t, store.Posts.Create(ctx, older))
	require.NoError(t, store.Posts.Create(ctx, newer))
	require.NoError(t, store.Votes.Create(ctx, &models.Vote{UserID: "reader", TargetKind: models.TargetPost, TargetID: older.ID, Type: models.VoteUp}))
	_, err := reg.Subscribe(ctx, "reader", forum.ID)
	require.NoError(t, err)

	detail, err := reg.GetForum(ctx, forum.ID)
	require.NoError(t, err)
	assert.Equal(t, "golang", detail.Name)
	assert.EqualValues(t, 2, detail.SubscribersCount)

	require.Len(t, detail.Posts, 2)
	assert.Equal(t, newer.ID, detail.Posts[0].ID)
	assert.NotNil(t, detail.Posts[0].Votes)
	assert.Empty(t, detail.Posts[0].Votes)
	assert.Equal(t, older.ID, detail.Posts[1].ID)
	require.Len(t, detail.Posts[1].Votes, 1)
	assert.Equal(t, models.VoteUp, detail.Posts[1].Votes[0].Type)
}

func TestListForums_ReturnsDetails(t *testing.T) {
	store, _, reg, forum := setup(t, Policy{})
	ctx := context.Background()
	require.NoError(t, store.Posts.Create(ctx, &models.Post{Title: "hi", AuthorID: "creator", ForumID: forum.ID}))
	_, _, err := reg.CreateForum(ctx, "rust", "", "reader")
	require.NoError(t, err)

	forums, err := reg.ListForums(ctx)
	require.NoError(t, err)
	require.Len(t, forums, 2)

	byName := map[string]Detail{}
	for _, f := range forums {
		byName[f.Name] = f
	}
	assert.Len(t, byName["golang"].Posts, 1)
	assert.EqualValues(t, 1, byName["golang"].SubscribersCount)
	assert.Empty(t, byName["rust"].Posts)
	assert.EqualValues(t, 1, byName["rust"].SubscribersCount)
}

func TestUserSubscriptions(t *testing.T) {
	_, _, reg, forum := setup(t, Policy{})
	ctx := context.Background()

	subs, err := reg.UserSubscriptions(ctx, "reader")
	require.NoError(t, err)
	assert.Empty(t, subs)

	_, err = reg.Subscribe(ctx, "reader", forum.ID)
	require.NoError(t, err)
	other, _, err := reg.CreateForum(ctx, "rust", "", "reader")
	require.NoError(t, err)

	subs, err = reg.UserSubscriptions(ctx, "reader")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.ElementsMatch(t, []string{forum.ID, other.ID}, []string{subs[0].ForumID, subs[1].ForumID})

	_, err = reg.UserSubscriptions(ctx, "missing")
	assert.True(t, apperrors.Is(err, apperrors.TypeNotFound))
}
