package transport

import (
	"context"
	"sync"

	kafka_infra "docvault/internal/infrastructure/kafka"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaBus maps every durable queue onto a single-partition Kafka topic.
type KafkaBus struct {
	brokers           []string
	replicationFactor int
	producer          kafka_infra.Producer
	consumerOpts      kafka_infra.ConsumerOptions
	logger            *zap.Logger

	mu        sync.Mutex
	consumers []*kafka_infra.Consumer
}

func NewKafkaBus(brokers []string, replicationFactor int, producer kafka_infra.Producer, logger *zap.Logger) *KafkaBus {
	return &KafkaBus{
		brokers:           brokers,
		replicationFactor: replicationFactor,
		producer:          producer,
		consumerOpts:      kafka_infra.DefaultConsumerOptions(),
		logger:            logger,
	}
}

func (b *KafkaBus) DeclareQueues(ctx context.Context, queues ...string) error {
	return kafka_infra.EnsureTopics(ctx, b.brokers, queues, b.replicationFactor, b.logger)
}

func (b *KafkaBus) Publish(ctx context.Context, queue string, msg Message) error {
	return b.producer.Produce(ctx, queue, msg.Key, msg.Body, toKafkaHeaders(msg.Headers)...)
}

func (b *KafkaBus) Consume(ctx context.Context, queue, group string, handler Handler) error {
	consumer := kafka_infra.NewConsumer(b.brokers, queue, group, func(ctx context.Context, m kafka.Message) error {
		return handler(ctx, fromKafkaMessage(m))
	}, b.consumerOpts, b.logger.With(zap.String("queue", queue)))

	b.mu.Lock()
	b.consumers = append(b.consumers, consumer)
	b.mu.Unlock()

	return consumer.Consume(ctx)
}

func (b *KafkaBus) Close() error {
	b.mu.Lock()
	consumers := b.consumers
	b.consumers = nil
	b.mu.Unlock()

	for _, c := range consumers {
		_ = c.Close()
	}
	return b.producer.Close()
}

func toKafkaHeaders(headers map[string]string) []kafka.Header {
	out := make([]kafka.Header, 0, len(headers))
	for k, v := range headers {
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

func fromKafkaMessage(m kafka.Message) Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{Key: string(m.Key), Body: m.Value, Headers: headers}
}
