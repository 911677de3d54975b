package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/emilythestrangee/forum/backend/internal/auth"
)

type parserFunc func(string) (*auth.Claims, error)

func (f parserFunc) ParseToken(token string) (*auth.Claims, error) { return f(token) }

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	parser := parserFunc(func(token string) (*auth.Claims, error) {
		if token == "good" {
			return &auth.Claims{UserID: "u1", Username: "alice"}, nil
		}
		return nil, errors.New("bad token")
	})

	r := gin.New()
	r.GET("/private", AuthMiddleware(parser), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserIDKey))
	})

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"valid", "Bearer good", http.StatusOK, "u1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"empty token", "Bearer  ", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}
