package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/forum/backend/internal/apperrors"
	"github.com/emilythestrangee/forum/backend/internal/models"
	"github.com/emilythestrangee/forum/backend/internal/repository"
)

const testSecret = "0123456789abcdef0123"

func newService() *Service {
	return NewService(repository.NewMemoryStore().Users, testSecret, time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, models.RegisterRequest{Username: "alice", Email: "Alice@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "alice@example.com", reg.User.Email)
	assert.NotEqual(t, "secret1", reg.User.PasswordHash)

	claims, err := svc.ParseToken(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	login, err := svc.Login(ctx, models.LoginRequest{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.True(t, apperrors.Is(err, apperrors.TypeUnauthorized))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.True(t, apperrors.Is(err, apperrors.TypeUnauthorized))

	me, err := svc.Me(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
}

func TestRegister_Duplicate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, models.RegisterRequest{Username: "alice", Email: "b@example.com", Password: "secret1"})
	assert.True(t, apperrors.Is(err, apperrors.TypeConflict))
}

func TestParseToken_Rejects(t *testing.T) {
	svc := newService()
	user := &models.User{ID: "u1", Username: "alice", Email: "a@example.com"}

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := svc.IssueToken(user)
		svc.now = time.Now
		require.NoError(t, err)

		_, err = svc.ParseToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewService(nil, "another-secret-value", time.Hour)
		token, err := other.IssueToken(user)
		require.NoError(t, err)

		_, err = svc.ParseToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
			"user_id": "u1",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = svc.ParseToken(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing user id", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = svc.ParseToken(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ParseToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
