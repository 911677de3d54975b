package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/forum/backend/internal/forum"
	"github.com/emilythestrangee/forum/backend/internal/models"
)

type ForumHandler struct {
	registry *forum.Registry
}

func NewForumHandler(registry *forum.Registry) *ForumHandler {
	return &ForumHandler{registry: registry}
}

// CreateForum creates a forum and subscribes its creator
func (h *ForumHandler) CreateForum(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input models.CreateForumRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	f, sub, err := h.registry.CreateForum(c.Request.Context(), input.Name, input.Description, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"forum": f, "subscription": sub})
}

func (h *ForumHandler) ListForums(c *gin.Context) {
	forums, err := h.registry.ListForums(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, forums)
}

// SearchForums matches forum names by prefix (?q=)
func (h *ForumHandler) SearchForums(c *gin.Context) {
	forums, err := h.registry.SearchForums(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, forums)
}

func (h *ForumHandler) GetForum(c *gin.Context) {
	f, err := h.registry.GetForum(c.Request.Context(), c.Param("forumId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// ToggleSubscription subscribes or unsubscribes the caller
func (h *ForumHandler) ToggleSubscription(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	res, err := h.registry.Toggle(c.Request.Context(), userID, c.Param("forumId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ForumHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	sub, err := h.registry.Subscribe(c.Request.Context(), userID, c.Param("forumId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *ForumHandler) Unsubscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.registry.Unsubscribe(c.Request.Context(), userID, c.Param("forumId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed"})
}

func (h *ForumHandler) Subscribers(c *gin.Context) {
	subs, err := h.registry.Subscribers(c.Request.Context(), c.Param("forumId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

// UserSubscriptions lists the forums a user is subscribed to
func (h *ForumHandler) UserSubscriptions(c *gin.Context) {
	subs, err := h.registry.UserSubscriptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}
