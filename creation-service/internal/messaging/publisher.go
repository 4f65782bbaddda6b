package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nicepods-server/creation-service/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	publishAttempts = 3
	publishTimeout  = 10 * time.Second
	appID           = "creation-service"
)

// Channel - часть *amqp.Channel, нужная паблишеру.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// queuePublisher публикует JSON-сообщения в одну durable-очередь через default exchange.
type queuePublisher struct {
	channel   Channel
	queueName string
	backoff   time.Duration
	logger    *zap.Logger
}

func newQueuePublisher(ch Channel, queueName string, args amqp.Table, logger *zap.Logger) (*queuePublisher, error) {
	if _, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		args,
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue '%s': %w", queueName, err)
	}
	logger.Info("Queue declared", zap.String("queue", queueName))
	return &queuePublisher{channel: ch, queueName: queueName, backoff: 100 * time.Millisecond, logger: logger}, nil
}

func (p *queuePublisher) publish(ctx context.Context, messageType, correlationID string, payload interface{}) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel is not initialized")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", messageType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

retry:
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (default)
			p.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp.Persistent,
				Body:          body,
				Timestamp:     time.Now(),
				AppId:         appID,
				Type:          messageType,
				CorrelationId: correlationID,
			},
		)
		if err == nil {
			messagesPublished.WithLabelValues(p.queueName, "success").Inc()
			p.logger.Debug("Message published",
				zap.String("queue", p.queueName),
				zap.String("type", messageType),
				zap.Int("attempt", attempt),
			)
			return nil
		}
		p.logger.Warn("Publish attempt failed",
			zap.String("queue", p.queueName),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < publishAttempts {
			select {
			case <-ctx.Done():
				break retry
			case <-time.After(time.Duration(attempt) * p.backoff):
			}
		}
	}
	messagesPublished.WithLabelValues(p.queueName, "error").Inc()
	return fmt.Errorf("failed to publish to queue %s after retries: %w", p.queueName, err)
}

func (p *queuePublisher) Close() error {
	return p.channel.Close()
}

// CacheInvalidationPublisher отправляет сигналы об устаревших представлениях.
type CacheInvalidationPublisher struct {
	*queuePublisher
}

// NewCacheInvalidationPublisher открывает канал и объявляет очередь сигналов.
func NewCacheInvalidationPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (*CacheInvalidationPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("cache invalidation publisher: failed to open channel: %w", err)
	}
	return NewCacheInvalidationPublisherWithChannel(ch, queueName, logger)
}

// NewCacheInvalidationPublisherWithChannel использует уже открытый канал.
func NewCacheInvalidationPublisherWithChannel(ch Channel, queueName string, logger *zap.Logger) (*CacheInvalidationPublisher, error) {
	qp, err := newQueuePublisher(ch, queueName, nil, logger.Named("CacheInvalidationPublisher"))
	if err != nil {
		return nil, err
	}
	return &CacheInvalidationPublisher{qp}, nil
}

// PublishCacheInvalidation публикует список путей, которые нужно перестроить.
func (p *CacheInvalidationPublisher) PublishCacheInvalidation(ctx context.Context, payload models.CacheInvalidationPayload) error {
	return p.publish(ctx, "cache_invalidation", payload.CorrelationID, payload)
}

// ProductionTaskPublisher ставит задачи фонового производства аудио.
type ProductionTaskPublisher struct {
	*queuePublisher
}

// NewProductionTaskPublisher открывает канал и объявляет очередь задач с DLX,
// параметры которой совпадают с параметрами консьюмера.
func NewProductionTaskPublisher(conn *amqp.Connection, queueName, deadLetterExchange string, logger *zap.Logger) (*ProductionTaskPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("production task publisher: failed to open channel: %w", err)
	}
	return NewProductionTaskPublisherWithChannel(ch, queueName, deadLetterExchange, logger)
}

// NewProductionTaskPublisherWithChannel использует уже открытый канал.
func NewProductionTaskPublisherWithChannel(ch Channel, queueName, deadLetterExchange string, logger *zap.Logger) (*ProductionTaskPublisher, error) {
	var args amqp.Table
	if deadLetterExchange != "" {
		args = amqp.Table{
			"x-dead-letter-exchange":    deadLetterExchange,
			"x-dead-letter-routing-key": "dlq",
		}
	}
	qp, err := newQueuePublisher(ch, queueName, args, logger.Named("ProductionTaskPublisher"))
	if err != nil {
		return nil, err
	}
	return &ProductionTaskPublisher{qp}, nil
}

// PublishProductionTask публикует задачу производства.
func (p *ProductionTaskPublisher) PublishProductionTask(ctx context.Context, payload models.ProductionTaskPayload) error {
	return p.publish(ctx, "production_task", payload.TaskID, payload)
}
