package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// createKafkaTopicIfNotExists creates the topic when the broker does not know
// it yet. Partition reads are retried because brokers answer with transient
// errors right after startup.
func createKafkaTopicIfNotExists(conn *kafka.Conn, topicName string, numPartitions, replicationFactor int, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	for i := 0; i < 5; i++ {
		partitions, err = conn.ReadPartitions(topicName)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying", "topic", topicName, "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", topicName)
		return nil
	}

	if numPartitions == 0 {
		numPartitions = 1
	}
	if replicationFactor == 0 {
		replicationFactor = 1
	}

	log.Info("Creating Kafka topic", "topic", topicName, "partitions", numPartitions)
	if err := conn.CreateTopics(kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, err)
	}

	return nil
}
