package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/forum/backend/internal/content"
	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/voting"
)

type CommentHandler struct {
	content *content.Service
	votes   *voting.Engine
}

func NewCommentHandler(content *content.Service, votes *voting.Engine) *CommentHandler {
	return &CommentHandler{content: content, votes: votes}
}

// GetComments returns the comment tree of a post
func (h *CommentHandler) GetComments(c *gin.Context) {
	tree, err := h.content.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

// CreateComment creates a new comment on a post, or a reply when parent_id is set
func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	comment, err := h.content.CreateComment(c.Request.Context(), c.Param("id"), userID, input.Text, input.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// UpdateComment updates a comment (owner only)
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input models.UpdateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	comment, err := h.content.UpdateComment(c.Request.Context(), c.Param("commentId"), userID, input.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// DeleteComment deletes a comment and its replies (owner only)
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.content.DeleteComment(c.Request.Context(), c.Param("commentId"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

func (h *CommentHandler) UpvoteComment(c *gin.Context) {
	h.castVote(c, models.VoteUp)
}

func (h *CommentHandler) DownvoteComment(c *gin.Context) {
	h.castVote(c, models.VoteDown)
}

func (h *CommentHandler) castVote(c *gin.Context, dir models.VoteType) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	res, err := h.votes.CastVote(c.Request.Context(), models.TargetComment, c.Param("commentId"), userID, dir)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
