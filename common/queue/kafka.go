package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/efarmer/subsidy/common/logger"
)

const flushTimeout = 10 * time.Second

// KafkaQueue publishes and consumes through Kafka.
// One producer client is shared; each subscription gets its own consumer client.
type KafkaQueue struct {
	brokers  []string
	clientID string
	producer *kgo.Client
	log      *logger.Logger

	mu        sync.Mutex
	consumers []*kgo.Client
	closed    bool
}

// NewKafkaQueue connects a producer to the given brokers
func NewKafkaQueue(brokers []string, clientID string, log *logger.Logger) (*KafkaQueue, error) {
	producer, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &KafkaQueue{
		brokers:  brokers,
		clientID: clientID,
		producer: producer,
		log:      log,
	}, nil
}

// Publish produces one record and waits for the broker ack
func (q *KafkaQueue) Publish(ctx context.Context, topic string, key string, message []byte) error {
	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: message,
	}
	if err := q.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Subscribe starts a consumer group member for topic. Handler errors are
// logged and the offset still advances.
func (q *KafkaQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.mu.Unlock()

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(q.brokers...),
		kgo.ClientID(q.clientID),
		kgo.ConsumerGroup(q.clientID+"."+topic),
		kgo.ConsumeTopics(topic),
	)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}

	q.mu.Lock()
	q.consumers = append(q.consumers, consumer)
	q.mu.Unlock()

	q.log.Info("subscribing to topic", "topic", topic, "brokers", q.brokers)

	go func() {
		for {
			fetches := consumer.PollFetches(ctx)
			if fetches.IsClientClosed() || ctx.Err() != nil {
				q.log.Info("subscription stopped", "topic", topic)
				return
			}

			fetches.EachError(func(t string, p int32, err error) {
				if !errors.Is(err, context.Canceled) {
					q.log.Error("kafka fetch error", "topic", t, "partition", p, "error", err)
				}
			})

			fetches.EachRecord(func(r *kgo.Record) {
				if err := handler(ctx, string(r.Key), r.Value); err != nil {
					q.log.Error("message handler error", "topic", r.Topic, "key", string(r.Key), "error", err)
				}
			})
		}
	}()

	return nil
}

// Close shuts down consumers then flushes and closes the producer
func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	for _, c := range q.consumers {
		c.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	err := q.producer.Flush(ctx)
	q.producer.Close()

	if err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	q.log.Info("kafka queue closed")
	return nil
}
