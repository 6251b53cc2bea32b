package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	xlogger "FinFuzz/pkg/logger"
)

const (
	firstOffset = kafka.FirstOffset
	lastOffset  = kafka.LastOffset
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer reads registered topics and dispatches messages to a worker pool.
// At most one message per partition is handled at a time; with several workers a later
// offset can be picked up before an earlier one.
type Consumer struct {
	cfg      ConsumerConfig
	l        *xlogger.Logger
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	jobs     chan kafka.Message
	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	dlq      *kafka.Writer
	hook     ConsumerHook

	mu        sync.Mutex
	partLocks map[partitionKey]*sync.Mutex
}

type partitionKey struct {
	topic     string
	partition int
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := ConsumerConfig{
		GroupID:     "finfuzz",
		StartOffset: firstOffset,
		WorkerCount: 1,
		BufferSize:  16,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	c := &Consumer{
		cfg:       cfg,
		l:         cfg.Logger,
		readers:   make(map[string]*kafka.Reader),
		handlers:  make(map[string]MessageHandler),
		jobs:      make(chan kafka.Message, cfg.BufferSize),
		stop:      make(chan struct{}),
		partLocks: make(map[partitionKey]*sync.Mutex),
		hook:      NoopHook{},
	}
	initConsumerMetrics()

	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.LeastBytes{}}
	}
	return c, nil
}

// RegisterHandler registers a message handler for its topic. Must be called before Start.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.warn("handler already registered", xlogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// WithConsumerHook sets a hook implementation for lifecycle events.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// Start starts one reader per registered topic and the worker pool.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}
	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			Topic:       topic,
			GroupID:     c.cfg.GroupID,
			StartOffset: c.cfg.StartOffset,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
		})
	}
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	for topic, reader := range c.readers {
		c.wg.Add(1)
		go c.read(topic, reader)
	}
	c.info("kafka consumer started", xlogger.Int("workers", c.cfg.WorkerCount), xlogger.Int("topics", len(c.readers)))
	return nil
}

// Stop stops readers and workers, waiting at most until ctx is done.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		close(c.stop)
		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.warn("close reader", xlogger.String("topic", topic), xlogger.Error(err))
			}
		}

		done := make(chan struct{})
		go func() { c.wg.Wait(); close(done) }()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}

		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.warn("close dlq writer", xlogger.Error(err))
			}
		}
		if stopErr == nil {
			c.info("kafka consumer stopped")
		}
	})
	return stopErr
}

func (c *Consumer) read(topic string, reader *kafka.Reader) {
	defer c.wg.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-c.stop
		cancel()
	}()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.warn("fetch message", xlogger.String("topic", topic), xlogger.Error(err))
			continue
		}
		select {
		case c.jobs <- msg:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.jobs)))
		case <-c.stop:
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			return
		case msg := <-c.jobs:
			c.dispatch(msg)
		}
	}
}

func (c *Consumer) dispatch(msg kafka.Message) {
	handler, ok := c.handlers[msg.Topic]
	if !ok {
		return
	}
	start := time.Now()

	pl := c.partitionLock(msg.Topic, msg.Partition)
	pl.Lock()
	defer pl.Unlock()

	attempts, err := c.process(context.Background(), handler, msg)
	if err != nil {
		c.hook.OnGiveUp(context.Background(), msg.Topic, msg, err)
		consumerFailures.WithLabelValues(msg.Topic, failureKind(err)).Inc()
		c.warn("message handling failed",
			xlogger.String("topic", msg.Topic),
			xlogger.Int("partition", msg.Partition),
			xlogger.Int64("offset", msg.Offset),
			xlogger.Int("attempts", attempts),
			xlogger.Error(err),
		)
		c.deadLetter(msg, err)
	}

	// commit on success or after DLQ to avoid poison loops
	if err == nil || c.dlq != nil {
		if reader := c.readers[msg.Topic]; reader != nil {
			c.commit(reader, msg)
		}
	}
	consumerHandleLatency.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
}

// process runs the handler with retries. Permanent errors and panics are not retried.
func (c *Consumer) process(ctx context.Context, handler MessageHandler, msg kafka.Message) (int, error) {
	var err error
	attempt := 0
	for {
		attempt++
		hctx, data, berr := c.hook.BeforeHandle(ctx, msg.Topic, msg, msg.Value)
		if berr != nil {
			return attempt, Permanent(berr)
		}
		err = safeHandle(hctx, handler, data)
		c.hook.AfterHandle(hctx, msg.Topic, msg, err, attempt)
		if err == nil || IsPermanent(err) || attempt > c.cfg.RetryMax {
			return attempt, err
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-c.stop:
			return attempt, err
		}
	}
}

func safeHandle(ctx context.Context, handler MessageHandler, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("panic in handler for topic %s: %v", handler.Topic(), r))
		}
	}()
	return handler.Handle(ctx, data)
}

func (c *Consumer) deadLetter(msg kafka.Message, cause error) {
	if c.dlq == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(msg.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
	if err != nil {
		c.warn("write dlq", xlogger.String("topic", c.cfg.DLQTopic), xlogger.Error(err))
	}
}

// commit commits a single message offset with bounded retries.
func (c *Consumer) commit(reader *kafka.Reader, msg kafka.Message) {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = reader.CommitMessages(ctx, msg)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.warn("commit offset", xlogger.String("topic", msg.Topic), xlogger.Int64("offset", msg.Offset), xlogger.Error(err))
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := partitionKey{topic, partition}
	l, ok := c.partLocks[k]
	if !ok {
		l = &sync.Mutex{}
		c.partLocks[k] = l
	}
	return l
}

func (c *Consumer) info(msg string, fields ...xlogger.Field) {
	if c.l != nil {
		c.l.Info(msg, fields...)
	}
}

func (c *Consumer) warn(msg string, fields ...xlogger.Field) {
	if c.l != nil {
		c.l.Warn(msg, fields...)
	}
}

func failureKind(err error) string {
	if IsPermanent(err) {
		return "permanent"
	}
	return "exhausted"
}

// backoffWithJitter doubles from min per attempt, caps at max and removes up to half as jitter.
func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := max
	if attempt < 32 {
		if d := min << uint(attempt-1); d > 0 && d < max {
			exp = d
		}
	}
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}

var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerFailures      *prometheus.CounterVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerMetricsOnce   sync.Once
)

func initConsumerMetrics() {
	consumerMetricsOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "finfuzz_kafka_consumer_queue_depth", Help: "Number of messages waiting for a worker"},
			[]string{"topic"},
		)
		consumerFailures = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "finfuzz_kafka_consumer_failures_total", Help: "Messages given up on, by reason"},
			[]string{"topic", "reason"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "finfuzz_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
