package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/config"
)

// KafkaPublisher forwards domain events to a Kafka topic keyed by ticket id,
// so all events for one ticket land on the same partition. Sends happen on a
// background queue.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
	queue    *Queue
}

// NewSaramaConfig returns the producer settings used for event delivery.
func NewSaramaConfig(cfg config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	return sc
}

// NewKafkaPublisher dials the configured brokers.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	logger.Info("kafka event sink enabled", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
	return NewKafkaPublisherWithProducer(producer, cfg.Topic, logger), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	k := &KafkaPublisher{producer: producer, topic: topic, logger: logger}
	k.queue = NewQueue("kafka", DefaultQueueSize, k.Handle, logger)
	return k
}

// Register subscribes the publisher's queue to every event type.
func (k *KafkaPublisher) Register(dispatcher Dispatcher) {
	for _, eventType := range AllEventTypes {
		dispatcher.Subscribe(eventType, k.queue.Handle)
	}
}

// Handle sends one event synchronously.
func (k *KafkaPublisher) Handle(_ context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(event.TicketID),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("send event to kafka: %w", err)
	}
	k.logger.Debug("event sent to kafka",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close drains queued events, then closes the producer.
func (k *KafkaPublisher) Close() error {
	if k == nil || k.producer == nil {
		return nil
	}
	k.queue.Close()
	return k.producer.Close()
}
