package voting

import (
	"context"
	"errors"
	"log/slog"

	"github.com/emilythestrangee/forum/backend/internal/apperrors"
	"github.com/emilythestrangee/forum/backend/internal/metrics"
	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/notify"
	"github.com/emilythestrangee/forum/backend/internal/repository"
)

// Result is what a cast returns: every vote now on the target, the caller's
// resulting state ("" when neutral) and whether the author was notified.
type Result struct {
	Votes    []models.Vote   `json:"votes"`
	State    models.VoteType `json:"state"`
	Notified bool            `json:"notified"`
}

type Engine struct {
	store    *repository.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewEngine(store *repository.Store, notifier notify.Notifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, notifier: notifier, logger: logger}
}

func (e *Engine) Upvote(ctx context.Context, kind models.TargetKind, targetID, userID string) (*Result, error) {
	return e.CastVote(ctx, kind, targetID, userID, models.VoteUp)
}

func (e *Engine) Downvote(ctx context.Context, kind models.TargetKind, targetID, userID string) (*Result, error) {
	return e.CastVote(ctx, kind, targetID, userID, models.VoteDown)
}

// CastVote applies dir to userID's vote on the target. Casting the vote the
// user already holds removes it; casting the opposite one switches it. The
// target author is notified only when the vote moves into UP.
func (e *Engine) CastVote(ctx context.Context, kind models.TargetKind, targetID, userID string, dir models.VoteType) (*Result, error) {
	if dir != models.VoteUp && dir != models.VoteDown {
		return nil, apperrors.Validation("vote type must be UP or DOWN")
	}

	authorID, err := e.targetAuthor(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}

	existing, err := e.store.Votes.Find(ctx, kind, userID, targetID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Storage(err)
	}

	var current models.VoteType
	if existing != nil {
		current = existing.Type
	}
	step := Transition(current, dir)

	switch step.Action {
	case ActionCreate:
		err = e.store.Votes.Create(ctx, &models.Vote{
			UserID:     userID,
			TargetKind: kind,
			TargetID:   targetID,
			Type:       dir,
		})
	case ActionSwitch:
		err = e.store.Votes.UpdateType(ctx, existing.ID, step.Result)
	case ActionRemove:
		err = e.store.Votes.Delete(ctx, existing.ID)
	}
	if err != nil {
		// A concurrent cast by the same user won the race for this row.
		if errors.Is(err, repository.ErrDuplicate) || errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Conflict("vote changed concurrently, retry")
		}
		return nil, apperrors.Storage(err)
	}
	metrics.VotesCastTotal.WithLabelValues(string(kind), string(step.Action)).Inc()

	votes, err := e.store.Votes.ListByTarget(ctx, kind, targetID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	result := &Result{Votes: votes, State: step.Result}
	if step.Notify {
		result.Notified = e.notifyUpvote(ctx, kind, targetID, userID, authorID)
	}

	e.logger.Debug("Vote cast",
		"kind", kind,
		"target_id", targetID,
		"user_id", userID,
		"action", step.Action,
		"state", step.Result,
	)
	return result, nil
}

// Votes lists the votes currently on a target.
func (e *Engine) Votes(ctx context.Context, kind models.TargetKind, targetID string) ([]models.Vote, error) {
	if _, err := e.targetAuthor(ctx, kind, targetID); err != nil {
		return nil, err
	}
	votes, err := e.store.Votes.ListByTarget(ctx, kind, targetID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return votes, nil
}

func (e *Engine) targetAuthor(ctx context.Context, kind models.TargetKind, targetID string) (string, error) {
	switch kind {
	case models.TargetPost:
		post, err := e.store.Posts.FindByID(ctx, targetID)
		if err != nil {
			return "", apperrors.FromRepository(err, "post not found")
		}
		return post.AuthorID, nil
	case models.TargetComment:
		comment, err := e.store.Comments.FindByID(ctx, targetID)
		if err != nil {
			return "", apperrors.FromRepository(err, "comment not found")
		}
		return comment.AuthorID, nil
	default:
		return "", apperrors.Validation("unknown vote target")
	}
}

// notifyUpvote runs after the vote is stored. Failures are logged and never
// affect the cast.
func (e *Engine) notifyUpvote(ctx context.Context, kind models.TargetKind, targetID, voterID, authorID string) bool {
	if e.notifier == nil {
		return false
	}

	voter, err := e.store.Users.FindByID(ctx, voterID)
	if err != nil {
		e.logger.Warn("Skipping upvote notification, voter lookup failed",
			"voter_id", voterID, "target_id", targetID, "error", err)
		return false
	}

	var event notify.Event
	if kind == models.TargetComment {
		event = notify.CommentUpvoted(authorID, voter.Username, targetID)
	} else {
		event = notify.PostUpvoted(authorID, voter.Username, targetID)
	}
	e.notifier.Deliver(authorID, event)
	return true
}

// Tally summarises a vote list.
type Tally struct {
	Up    int `json:"up"`
	Down  int `json:"down"`
	Score int `json:"score"`
}

func Count(votes []models.Vote) Tally {
	var t Tally
	for _, v := range votes {
		switch v.Type {
		case models.VoteUp:
			t.Up++
		case models.VoteDown:
			t.Down++
		}
	}
	t.Score = t.Up - t.Down
	return t
}
