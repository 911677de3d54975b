package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/forum/backend/internal/apperrors"
	"github.com/emilythestrangee/forum/backend/internal/auth"
	"github.com/emilythestrangee/forum/backend/internal/content"
	"github.com/emilythestrangee/forum/backend/internal/forum"
	"github.com/emilythestrangee/forum/backend/internal/metrics"
	"github.com/emilythestrangee/forum/backend/internal/middleware"
	"github.com/emilythestrangee/forum/backend/internal/voting"
)

// Handler combines all handler types
type Handler struct {
	Auth    *AuthHandler
	User    *UserHandler
	Forum   *ForumHandler
	Post    *PostHandler
	Comment *CommentHandler
}

// Services are the domain services the handlers delegate to.
type Services struct {
	Auth    *auth.Service
	Forums  *forum.Registry
	Content *content.Service
	Votes   *voting.Engine
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(svc Services) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(svc.Auth),
		User:    NewUserHandler(svc.Auth),
		Forum:   NewForumHandler(svc.Forums),
		Post:    NewPostHandler(svc.Content, svc.Votes),
		Comment: NewCommentHandler(svc.Content, svc.Votes),
	}
}

// respondError renders err as {"error", "type"} with the matching status.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.As(err)
	metrics.HTTPErrorsTotal.WithLabelValues(string(appErr.Type)).Inc()

	if appErr.Type == apperrors.TypeStorage {
		slog.Error("Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", appErr.Cause,
		)
	}
	c.JSON(appErr.HTTPStatus(), appErr.ToResponse())
}

func badRequest(c *gin.Context, err error) {
	respondError(c, apperrors.Validation(err.Error()))
}

// currentUserID returns the authenticated caller. Routes without the auth
// middleware get a 401.
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return "", false
	}
	return userID, true
}
