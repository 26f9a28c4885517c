package kafka_infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EnsureTopics creates each topic with a single partition so that every queue
// keeps publish order. A topic that already exists is left untouched.
func EnsureTopics(ctx context.Context, brokerURLs []string, topics []string, replicationFactor int, logger *zap.Logger) error {
	if len(brokerURLs) == 0 {
		return errors.New("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokerURLs[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka broker for admin operations: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to get kafka controller: %w", err)
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err := controllerConn.CreateTopics(topicConfig(topic, replicationFactor))
		if err != nil {
			if errors.Is(err, kafka.TopicAlreadyExists) {
				logger.Debug("Kafka topic already exists, skipping creation.", zap.String("topic", topic))
				continue
			}
			return fmt.Errorf("failed to create Kafka topic %s: %w", topic, err)
		}
		logger.Info("Kafka topic created.", zap.String("topic", topic))
	}

	return nil
}

func topicConfig(topic string, replicationFactor int) kafka.TopicConfig {
	return kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: replicationFactor,
		ConfigEntries: []kafka.ConfigEntry{
			{ConfigName: "max.message.bytes", ConfigValue: strconv.Itoa(MaxMessageBytes)},
		},
	}
}
