package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalledProducer never hears back from the brokers until released.
type stalledProducer struct {
	release chan struct{}
}

func (p *stalledProducer) SendMessage(*sarama.ProducerMessage) (int32, int64, error) {
	<-p.release
	return 0, 0, nil
}

func (p *stalledProducer) Close() error { return nil }

type fakePartition struct {
	sarama.PartitionConsumer
	msgs   chan *sarama.ConsumerMessage
	errs   chan *sarama.ConsumerError
	closed atomic.Bool
	once   sync.Once
}

func newFakePartition() *fakePartition {
	return &fakePartition{
		msgs: make(chan *sarama.ConsumerMessage, 4),
		errs: make(chan *sarama.ConsumerError, 4),
	}
}

func (p *fakePartition) Messages() <-chan *sarama.ConsumerMessage { return p.msgs }
func (p *fakePartition) Errors() <-chan *sarama.ConsumerError     { return p.errs }

func (p *fakePartition) AsyncClose() {
	p.once.Do(func() {
		p.closed.Store(true)
		close(p.msgs)
		close(p.errs)
	})
}

type fakeConsumer struct {
	partitions []int32
	failOn     int32

	mu      sync.Mutex
	started []*fakePartition
}

func (c *fakeConsumer) Partitions(string) ([]int32, error) { return c.partitions, nil }

func (c *fakeConsumer) ConsumePartition(_ string, partition int32, _ int64) (sarama.PartitionConsumer, error) {
	if partition == c.failOn {
		return nil, errors.New("leader not available")
	}
	pc := newFakePartition()
	c.mu.Lock()
	c.started = append(c.started, pc)
	c.mu.Unlock()
	return pc, nil
}

func (c *fakeConsumer) Close() error { return nil }

func TestKafkaPublishKeysByPeer(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "front" {
			return errors.New("message not keyed by peer id")
		}
		val, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		env, err := Decode(val)
		if err != nil {
			return err
		}
		if env.Seq != 7 {
			return errors.New("unexpected envelope")
		}
		return nil
	})

	k := &Kafka{topic: "tablesync.deltas", producer: producer, logger: slog.Default()}
	require.NoError(t, k.Publish(context.Background(), envelope("front", 7)))
	require.NoError(t, producer.Close())
}

func TestKafkaPublishHonoursContext(t *testing.T) {
	producer := &stalledProducer{release: make(chan struct{})}
	defer close(producer.release)

	k := &Kafka{topic: "tablesync.deltas", producer: producer, logger: slog.Default()}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := k.Publish(ctx, envelope("front", 1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestKafkaSubscribeClosesStartedPartitionsOnFailure(t *testing.T) {
	consumer := &fakeConsumer{partitions: []int32{0, 1, 2}, failOn: 2}
	k := &Kafka{topic: "tablesync.deltas", consumer: consumer, logger: slog.Default()}

	in := &inbox{}
	err := k.Subscribe(context.Background(), in.handle)
	require.Error(t, err)

	require.Len(t, consumer.started, 2)
	for _, pc := range consumer.started {
		assert.True(t, pc.closed.Load())
	}
	assert.Empty(t, k.partitions)
}

func TestKafkaSubscribeDeliversEnvelopes(t *testing.T) {
	consumer := &fakeConsumer{partitions: []int32{0, 1}, failOn: -1}
	k := &Kafka{topic: "tablesync.deltas", consumer: consumer, logger: slog.Default()}

	ctx, cancel := context.WithCancel(context.Background())
	in := &inbox{}
	require.NoError(t, k.Subscribe(ctx, in.handle))
	require.Len(t, consumer.started, 2)

	data, err := Encode(envelope("kitchen", 3))
	require.NoError(t, err)
	consumer.started[1].msgs <- &sarama.ConsumerMessage{Value: []byte("not json"), Partition: 1}
	consumer.started[1].msgs <- &sarama.ConsumerMessage{Value: data, Partition: 1, Offset: 1}

	assert.Eventually(t, func() bool { return in.len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint64{3}, in.seqs())

	cancel()
	assert.Eventually(t, func() bool {
		return consumer.started[0].closed.Load() && consumer.started[1].closed.Load()
	}, time.Second, 5*time.Millisecond)
}
