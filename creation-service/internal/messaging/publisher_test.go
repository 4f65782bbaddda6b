package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"nicepods-server/creation-service/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannel struct {
	mu         sync.Mutex
	declared   map[string]amqp.Table
	declareErr error
	failFirst  int
	published  []amqp.Publishing
	attempts   int
	closed     bool
}

func (c *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	if c.declareErr != nil {
		return amqp.Queue{}, c.declareErr
	}
	if c.declared == nil {
		c.declared = map[string]amqp.Table{}
	}
	c.declared[name] = args
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	if c.attempts <= c.failFirst {
		return errors.New("channel/connection is not open")
	}
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestProductionTaskPublisherDeclaresDLX(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewProductionTaskPublisherWithChannel(ch, "pod_production_tasks", "pod_production_dlx", zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "pod_production_dlx", ch.declared["pod_production_tasks"]["x-dead-letter-exchange"])

	payload := models.ProductionTaskPayload{TaskID: "t-1", UserID: "u", PodID: 9, ForceAudio: true}
	require.NoError(t, p.PublishProductionTask(context.Background(), payload))
	require.Len(t, ch.published, 1)

	msg := ch.published[0]
	assert.Equal(t, "production_task", msg.Type)
	assert.Equal(t, "t-1", msg.CorrelationId)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var got models.ProductionTaskPayload
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, payload, got)
}

func TestPublishRetries(t *testing.T) {
	ch := &fakeChannel{failFirst: 2}
	p, err := NewCacheInvalidationPublisherWithChannel(ch, "cache_invalidation", zap.NewNop())
	require.NoError(t, err)
	p.backoff = time.Millisecond

	require.NoError(t, p.PublishCacheInvalidation(context.Background(), models.CacheInvalidationPayload{Paths: []string{"/dashboard"}}))
	assert.Equal(t, 3, ch.attempts)
	assert.Len(t, ch.published, 1)
}

func TestPublishGivesUpAfterRetries(t *testing.T) {
	ch := &fakeChannel{failFirst: 10}
	p, err := NewCacheInvalidationPublisherWithChannel(ch, "cache_invalidation", zap.NewNop())
	require.NoError(t, err)
	p.backoff = time.Millisecond

	err = p.PublishCacheInvalidation(context.Background(), models.CacheInvalidationPayload{})
	assert.Error(t, err)
	assert.Equal(t, publishAttempts, ch.attempts)
}

func TestDeclareFailureClosesChannel(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("PRECONDITION_FAILED")}
	_, err := NewCacheInvalidationPublisherWithChannel(ch, "q", zap.NewNop())
	assert.Error(t, err)
	assert.True(t, ch.closed)
}
