package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// KafkaConfig names the brokers and the topic peers share.
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// Kafka broadcasts envelopes on a topic. Messages are keyed by peer id so one
// peer's deltas stay on one partition and keep their order. Consumers start
// at the newest offset: a peer never replays deltas sent before it joined.
type Kafka struct {
	topic    string
	producer messageSender
	consumer topicConsumer
	logger   *slog.Logger

	mu         sync.Mutex
	partitions []sarama.PartitionConsumer
}

// messageSender is the part of sarama.SyncProducer Kafka uses.
type messageSender interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

// topicConsumer is the part of sarama.Consumer Kafka uses.
type topicConsumer interface {
	Partitions(topic string) ([]int32, error)
	ConsumePartition(topic string, partition int32, offset int64) (sarama.PartitionConsumer, error)
	Close() error
}

func newSaramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Retry.Backoff = 100 * time.Millisecond
	config.Producer.Return.Successes = true
	config.Consumer.Return.Errors = true
	config.Net.DialTimeout = 30 * time.Second
	config.Net.ReadTimeout = 30 * time.Second
	config.Net.WriteTimeout = 30 * time.Second
	return config
}

// DialKafka creates the producer and consumer for cfg.
func DialKafka(cfg KafkaConfig, logger *slog.Logger) (*Kafka, error) {
	if cfg.Topic == "" {
		cfg.Topic = "tablesync.deltas"
	}
	if logger == nil {
		logger = slog.Default()
	}
	brokerList := strings.Split(cfg.Brokers, ",")
	config := newSaramaConfig()

	producer, err := sarama.NewSyncProducer(brokerList, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	consumer, err := sarama.NewConsumer(brokerList, config)
	if err != nil {
		_ = producer.Close()
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Info("kafka transport connected", "action", "kafka_connect", "brokers", brokerList, "topic", cfg.Topic)
	return &Kafka{
		topic:    cfg.Topic,
		producer: producer,
		consumer: consumer,
		logger:   logger,
	}, nil
}

// Publish writes env to the topic and waits for the brokers to acknowledge
// it, or for ctx to end. A send abandoned on ctx keeps running in the
// producer until its own retries give up.
func (k *Kafka) Publish(ctx context.Context, env Envelope) error {
	msg, err := Encode(env)
	if err != nil {
		return err
	}

	sent := make(chan error, 1)
	go func() {
		_, _, err := k.producer.SendMessage(&sarama.ProducerMessage{
			Topic:     k.topic,
			Key:       sarama.StringEncoder(env.Peer),
			Value:     sarama.ByteEncoder(msg),
			Timestamp: env.SentAt,
		})
		sent <- err
	}()

	select {
	case err := <-sent:
		if err != nil {
			return fmt.Errorf("failed to send delta to topic %s: %w", k.topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send delta to topic %s: %w", k.topic, ctx.Err())
	}
}

// Subscribe consumes every partition of the topic from the newest offset.
// Either every partition is consumed or none is.
func (k *Kafka) Subscribe(ctx context.Context, h Handler) error {
	partitions, err := k.consumer.Partitions(k.topic)
	if err != nil {
		return fmt.Errorf("failed to list partitions of %s: %w", k.topic, err)
	}

	started := make([]sarama.PartitionConsumer, 0, len(partitions))
	for _, partition := range partitions {
		pc, err := k.consumer.ConsumePartition(k.topic, partition, sarama.OffsetNewest)
		if err != nil {
			for _, pc := range started {
				pc.AsyncClose()
			}
			return fmt.Errorf("failed to consume %s/%d: %w", k.topic, partition, err)
		}
		started = append(started, pc)
	}

	k.mu.Lock()
	k.partitions = append(k.partitions, started...)
	k.mu.Unlock()
	for _, pc := range started {
		go k.drain(ctx, pc, h)
	}
	return nil
}

func (k *Kafka) drain(ctx context.Context, pc sarama.PartitionConsumer, h Handler) {
	for {
		select {
		case msg, ok := <-pc.Messages():
			if !ok {
				return
			}
			env, err := Decode(msg.Value)
			if err != nil {
				k.logger.Warn("dropping malformed envelope", "action", "kafka_consume",
					"partition", msg.Partition, "offset", msg.Offset, "error", err)
				continue
			}
			h(env)
		case cerr, ok := <-pc.Errors():
			if !ok {
				return
			}
			k.logger.Warn("kafka consumer error", "action", "kafka_consume", "error", cerr.Err)
		case <-ctx.Done():
			pc.AsyncClose()
			return
		}
	}
}

// Close stops the partition consumers and both clients.
func (k *Kafka) Close() error {
	k.mu.Lock()
	for _, pc := range k.partitions {
		pc.AsyncClose()
	}
	k.partitions = nil
	k.mu.Unlock()

	if err := errors.Join(k.consumer.Close(), k.producer.Close()); err != nil {
		return fmt.Errorf("failed to close kafka transport: %w", err)
	}
	return nil
}
