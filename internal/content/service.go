// Package content handles posts and threaded comments inside forums.
package content

import (
	"context"
	"log/slog"
	"strings"

	"github.com/emilythestrangee/forum/backend/internal/apperrors"
	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/notify"
	"github.com/emilythestrangee/forum/backend/internal/repository"
)

// CommentNode is a comment with its direct replies, oldest first.
type CommentNode struct {
	models.Comment
	Replies []*CommentNode `json:"replies"`
}

type Service struct {
	store    *repository.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewService(store *repository.Store, notifier notify.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, notifier: notifier, logger: logger}
}

func (s *Service) CreatePost(ctx context.Context, forumID, authorID, title, body string) (*models.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.Validation("title is required")
	}
	if _, err := s.store.Forums.FindByID(ctx, forumID); err != nil {
		return nil, apperrors.FromRepository(err, "forum not found")
	}

	post := &models.Post{Title: title, Content: body, AuthorID: authorID, ForumID: forumID}
	if err := s.store.Posts.Create(ctx, post); err != nil {
		return nil, apperrors.Storage(err)
	}
	s.logger.Info("Post created", "post_id", post.ID, "forum_id", forumID, "author_id", authorID)
	return post, nil
}

func (s *Service) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.store.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, apperrors.FromRepository(err, "post not found")
	}
	return post, nil
}

// UpdatePost edits the title and/or content of a post. Only the author may
// edit it.
func (s *Service) UpdatePost(ctx context.Context, postID, requesterID string, req models.UpdatePostRequest) (*models.Post, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != requesterID {
		return nil, apperrors.Unauthorized("you can only edit your own posts")
	}

	title, body := post.Title, post.Content
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperrors.Validation("title is required")
		}
	}
	if req.Content != nil {
		body = *req.Content
	}

	if err := s.store.Posts.Update(ctx, postID, title, body); err != nil {
		return nil, apperrors.FromRepository(err, "post not found")
	}
	return s.GetPost(ctx, postID)
}

// DeletePost removes a post with all its comments and votes. Only the author
// may delete it.
func (s *Service) DeletePost(ctx context.Context, postID, requesterID string) error {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != requesterID {
		return apperrors.Unauthorized("you can only delete your own posts")
	}
	if err := s.store.Posts.Delete(ctx, postID); err != nil {
		return apperrors.FromRepository(err, "post not found")
	}
	s.logger.Info("Post deleted", "post_id", postID)
	return nil
}

// CreateComment adds a comment to a post, or a reply when parentID is set.
// The post author (or the parent comment's author for replies) is notified
// unless they wrote the comment themselves.
func (s *Service) CreateComment(ctx context.Context, postID, authorID, text string, parentID *string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("comment text is required")
	}

	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	recipient := post.AuthorID
	if parentID != nil && *parentID != "" {
		parent, err := s.store.Comments.FindByID(ctx, *parentID)
		if err != nil {
			return nil, apperrors.FromRepository(err, "parent comment not found")
		}
		if parent.PostID != postID {
			return nil, apperrors.Validation("parent comment belongs to another post")
		}
		recipient = parent.AuthorID
	} else {
		parentID = nil
	}

	comment := &models.Comment{Text: text, AuthorID: authorID, PostID: postID, ParentID: parentID}
	if err := s.store.Comments.Create(ctx, comment); err != nil {
		return nil, apperrors.Storage(err)
	}

	if recipient != authorID {
		s.notifyComment(ctx, recipient, authorID, postID, parentID != nil)
	}
	return comment, nil
}

func (s *Service) notifyComment(ctx context.Context, recipient, authorID, postID string, reply bool) {
	if s.notifier == nil {
		return
	}
	author, err := s.store.Users.FindByID(ctx, authorID)
	if err != nil {
		s.logger.Warn("Skipping comment notification, author lookup failed",
			"author_id", authorID, "post_id", postID, "error", err)
		return
	}
	s.notifier.Deliver(recipient, notify.NewComment(recipient, author.Username, postID, reply))
}

func (s *Service) UpdateComment(ctx context.Context, commentID, requesterID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("comment text is required")
	}

	comment, err := s.ownedComment(ctx, commentID, requesterID, "you can only edit your own comments")
	if err != nil {
		return nil, err
	}
	if err := s.store.Comments.UpdateText(ctx, commentID, text); err != nil {
		return nil, apperrors.FromRepository(err, "comment not found")
	}
	return s.getComment(ctx, comment.ID)
}

// DeleteComment removes a comment and every reply beneath it.
func (s *Service) DeleteComment(ctx context.Context, commentID, requesterID string) error {
	comment, err := s.ownedComment(ctx, commentID, requesterID, "you can only delete your own comments")
	if err != nil {
		return err
	}

	all, err := s.store.Comments.ListByPost(ctx, comment.PostID)
	if err != nil {
		return apperrors.Storage(err)
	}
	ids := subtree(all, comment.ID)
	if err := s.store.Comments.Delete(ctx, ids...); err != nil {
		return apperrors.FromRepository(err, "comment not found")
	}
	s.logger.Info("Comment deleted", "comment_id", commentID, "removed", len(ids))
	return nil
}

// ListComments returns the post's comments as a reply tree.
func (s *Service) ListComments(ctx context.Context, postID string) ([]*CommentNode, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.store.Comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return buildTree(comments), nil
}

func (s *Service) getComment(ctx context.Context, commentID string) (*models.Comment, error) {
	comment, err := s.store.Comments.FindByID(ctx, commentID)
	if err != nil {
		return nil, apperrors.FromRepository(err, "comment not found")
	}
	return comment, nil
}

func (s *Service) ownedComment(ctx context.Context, commentID, requesterID, denied string) (*models.Comment, error) {
	comment, err := s.getComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != requesterID {
		return nil, apperrors.Unauthorized(denied)
	}
	return comment, nil
}

// buildTree nests comments under their parents, keeping input order. Replies
// whose parent is missing are promoted to the root.
func buildTree(comments []models.Comment) []*CommentNode {
	nodes := make(map[string]*CommentNode, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &CommentNode{Comment: c, Replies: []*CommentNode{}}
	}

	roots := []*CommentNode{}
	for _, c := range comments {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// subtree returns rootID followed by the ids of all its descendants.
func subtree(comments []models.Comment, rootID string) []string {
	children := make(map[string][]string)
	for _, c := range comments {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	ids := []string{rootID}
	for i := 0; i < len(ids); i++ {
		ids = append(ids, children[ids[i]]...)
	}
	return ids
}
