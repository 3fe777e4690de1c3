package kafka

import (
	"log"
	"strings"

	"github.com/segmentio/kafka-go"
)

// EnsureTopicsExist creates the given topics on the cluster controller if
// they are not already there. Missing topics are logged and skipped rather
// than aborting startup.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", controller.Host)
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err := controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			log.Printf("Error creating topic %s: %v", topic, err)
		} else {
			log.Printf("Created topic: %s", topic)
		}
	}

	return nil
}
