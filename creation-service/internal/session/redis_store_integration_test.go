//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"nicepods-server/creation-service/internal/session"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
)

type RedisStoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcredis.RedisContainer
	client    *redis.Client
	store     *session.RedisStore
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.container, err = tcredis.Run(s.ctx, "redis:7-alpine")
	require.NoError(s.T(), err, "Failed to start redis container")

	uri, err := s.container.ConnectionString(s.ctx)
	require.NoError(s.T(), err)
	opts, err := redis.ParseURL(uri)
	require.NoError(s.T(), err)
	s.client = redis.NewClient(opts)
	require.NoError(s.T(), s.client.Ping(s.ctx).Err())

	s.store = session.NewRedisStore(s.client, time.Hour, zap.NewNop())
}

func (s *RedisStoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *RedisStoreSuite) TestSaveLoadDiscard() {
	t := s.T()
	userID := uuid.New()
	state := sampleState(t)

	require.NoError(t, s.store.Save(s.ctx, userID, session.NewSnapshot(state, 1, time.Now())))

	ttl, err := s.client.TTL(s.ctx, "wizard_session:"+userID.String()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	snap, err := s.store.Load(s.ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, state.FormData, snap.FormData)

	require.NoError(t, s.store.Discard(s.ctx, userID))
	snap, err = s.store.Load(s.ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func (s *RedisStoreSuite) TestLastWriteWins() {
	t := s.T()
	userID := uuid.New()
	state := sampleState(t)

	require.NoError(t, s.store.Save(s.ctx, userID, session.NewSnapshot(state, 5, time.Now())))
	require.NoError(t, s.store.Save(s.ctx, userID, session.NewSnapshot(state, 3, time.Now())))

	snap, err := s.store.Load(s.ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(3), snap.Revision)
}

func (s *RedisStoreSuite) TestCorruptValueIsAbsent() {
	t := s.T()
	userID := uuid.New()
	require.NoError(t, s.client.Set(s.ctx, "wizard_session:"+userID.String(), "garbage", time.Minute).Err())

	snap, err := s.store.Load(s.ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}
