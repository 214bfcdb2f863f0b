package kafka

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Topic names
const (
	TopicOpportunities = "expansion.opportunities"
	TopicSummaries     = "expansion.summaries"
)

// TopicConfig defines Kafka topic configuration
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	RetentionMs       int64
	CleanupPolicy     string
	KeyField          string
}

// Topics defines all Kafka topics the expansion service writes to
var Topics = map[string]TopicConfig{
	TopicOpportunities: {
		Name:              TopicOpportunities,
		Partitions:        8,
		ReplicationFactor: 3,
		RetentionMs:       2592000000, // 30 days
		CleanupPolicy:     "delete",
		KeyField:          "customer_id",
	},
	TopicSummaries: {
		Name:              TopicSummaries,
		Partitions:        1,
		ReplicationFactor: 3,
		RetentionMs:       7776000000, // 90 days
		CleanupPolicy:     "delete",
	},
}

// TopicManager handles Kafka topic creation and inspection
type TopicManager struct {
	brokers []string
}

// NewTopicManager creates a new topic manager
func NewTopicManager(brokers []string) *TopicManager {
	return &TopicManager{
		brokers: brokers,
	}
}

// CreateTopics creates all Kafka topics if they don't exist
func (tm *TopicManager) CreateTopics(ctx context.Context) error {
	if len(tm.brokers) == 0 {
		return ErrInvalidBrokers
	}

	conn, err := kafka.DialContext(ctx, "tcp", tm.brokers[0])
	if err != nil {
		return eris.Wrap(err, "failed to connect to Kafka broker")
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return eris.Wrap(err, "failed to get controller")
	}

	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return eris.Wrap(err, "failed to connect to controller")
	}
	defer controllerConn.Close()

	for topicName, config := range Topics {
		err := controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             config.Name,
			NumPartitions:     config.Partitions,
			ReplicationFactor: config.ReplicationFactor,
			ConfigEntries: []kafka.ConfigEntry{
				{
					ConfigName:  "retention.ms",
					ConfigValue: fmt.Sprintf("%d", config.RetentionMs),
				},
				{
					ConfigName:  "cleanup.policy",
					ConfigValue: config.CleanupPolicy,
				},
			},
		})
		if err != nil {
			// Topic might already exist
			zap.L().Warn("kafka: create topic failed", zap.String("topic", topicName), zap.Error(err))
		} else {
			zap.L().Info("kafka: created topic", zap.String("topic", topicName))
		}
	}

	return nil
}

// ListTopics lists all Kafka topics
func (tm *TopicManager) ListTopics(ctx context.Context) ([]string, error) {
	if len(tm.brokers) == 0 {
		return nil, ErrInvalidBrokers
	}

	conn, err := kafka.DialContext(ctx, "tcp", tm.brokers[0])
	if err != nil {
		return nil, eris.Wrap(err, "failed to connect to Kafka broker")
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return nil, eris.Wrap(err, "failed to read partitions")
	}

	topicMap := make(map[string]bool)
	for _, partition := range partitions {
		topicMap[partition.Topic] = true
	}

	topics := make([]string, 0, len(topicMap))
	for topic := range topicMap {
		topics = append(topics, topic)
	}

	return topics, nil
}

// GetTopicConfig retrieves the configuration for a specific topic
func GetTopicConfig(topicName string) (TopicConfig, error) {
	config, exists := Topics[topicName]
	if !exists {
		return TopicConfig{}, eris.Errorf("topic %s not found in configuration", topicName)
	}
	return config, nil
}
