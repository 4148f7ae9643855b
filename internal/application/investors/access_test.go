package investors

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shares-backend/internal/application/auth"
	"shares-backend/internal/middleware"
	"shares-backend/internal/pkg/apperrors"
)

func TestSetActiveRevokesSessions(t *testing.T) {
	svc := newService(t)
	mr := miniredis.RunT(t)
	svc.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	inv, user, err := svc.Create(ctx, CreateInput{Fullname: "Grace Hopper", Email: "grace@example.com", Password: "cobol#1959"})
	require.NoError(t, err)
	sessions := middleware.UserSessionsPrefix + user.UserID.String()
	require.NoError(t, svc.Redis.Set(ctx, middleware.SessionRedisPrefix+"sid-1", "{}", 0).Err())
	require.NoError(t, svc.Redis.SAdd(ctx, sessions, "sid-1").Err())

	got, err := svc.SetActive(ctx, inv.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, int64(0), svc.Redis.Exists(ctx, sessions, middleware.SessionRedisPrefix+"sid-1").Val())

	_, err = auth.Login(svc.DB, "grace@example.com", "cobol#1959")
	assert.ErrorIs(t, err, auth.ErrInactiveUser)

	_, err = svc.SetActive(ctx, inv.ID, true)
	require.NoError(t, err)
	_, err = auth.Login(svc.DB, "grace@example.com", "cobol#1959")
	assert.NoError(t, err)
}

func TestSetActiveWithoutLogin(t *testing.T) {
	svc := newService(t)
	inv, _, err := svc.Create(context.Background(), CreateInput{Fullname: "No Login", Email: "nologin@example.com"})
	require.NoError(t, err)

	_, err = svc.SetActive(context.Background(), inv.ID, false)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
