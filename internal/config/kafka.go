package config

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (c *Config) NewKafkaWriter() *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.KafkaBrokers...),
		Topic:                  c.OrderTopic,
		Balancer:               &kafka.Hash{}, // events of one order land on one partition
		AllowAutoTopicCreation: true,
	}
}

func (c *Config) NewKafkaReader() *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.KafkaBrokers,
		GroupID:  c.ConsumerGroup,
		Topic:    c.OrderTopic,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
}
