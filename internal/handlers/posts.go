package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/forum/backend/internal/content"
	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/voting"
)

type PostHandler struct {
	content *content.Service
	votes   *voting.Engine
}

func NewPostHandler(content *content.Service, votes *voting.Engine) *PostHandler {
	return &PostHandler{content: content, votes: votes}
}

// CreatePost creates a post in a forum
func (h *PostHandler) CreatePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	post, err := h.content.CreatePost(c.Request.Context(), c.Param("forumId"), userID, input.Title, input.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// GetPost returns a post with its vote tally
func (h *PostHandler) GetPost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := h.content.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	votes, err := h.votes.Votes(ctx, models.TargetPost, post.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post, "votes": voting.Count(votes)})
}

// UpdatePost updates a post's title or content (owner only)
func (h *PostHandler) UpdatePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input models.UpdatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	post, err := h.content.UpdatePost(c.Request.Context(), c.Param("id"), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost deletes a post (owner only)
func (h *PostHandler) DeletePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.content.DeletePost(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

func (h *PostHandler) UpvotePost(c *gin.Context) {
	h.castVote(c, models.VoteUp)
}

func (h *PostHandler) DownvotePost(c *gin.Context) {
	h.castVote(c, models.VoteDown)
}

func (h *PostHandler) castVote(c *gin.Context, dir models.VoteType) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	res, err := h.votes.CastVote(c.Request.Context(), models.TargetPost, c.Param("id"), userID, dir)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetVotes lists every vote on a post
func (h *PostHandler) GetVotes(c *gin.Context) {
	votes, err := h.votes.Votes(c.Request.Context(), models.TargetPost, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes, "tally": voting.Count(votes)})
}
