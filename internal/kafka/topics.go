package kafka

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"ms-checkin/internal/config"
	"ms-checkin/internal/logger"

	"github.com/segmentio/kafka-go"
)

// TopicNames lists the configured topics.
func TopicNames(t config.TopicConfig) []string {
	return []string{t.ParticipationRegistered, t.ParticipationImported, t.ParticipationCheckedIn}
}

// EnsureTopicsExist creates Kafka topics if they don't already exist
func EnsureTopicsExist(brokers []string, topics []string, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err = controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		switch {
		case errors.Is(err, kafka.TopicAlreadyExists):
			log.LogKafka("TOPIC_EXISTS", topic, "Topic already exists")
		case err != nil:
			// keep going so one bad topic does not block the rest
			log.LogKafka("TOPIC_ERROR", topic, fmt.Sprintf("Error creating topic: %v", err))
		default:
			log.LogKafka("TOPIC_CREATED", topic, "Created topic")
		}
	}
	return nil
}
