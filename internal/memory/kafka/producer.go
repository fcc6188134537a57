// Package kafka publishes indexing lifecycle events. The producer wraps
// segmentio/kafka-go with retry, health check and lightweight metrics.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	MaxRetries   int
	RetryBackoff time.Duration
	WriteTimeout time.Duration
	BatchSize    int
	Async        bool
	Logger       zerolog.Logger
}

type Message struct {
	Key   string
	Value []byte
}

type producerMetrics struct {
	MessagesPublished atomic.Int64
	MessagesFailed    atomic.Int64
	RetriesTotal      atomic.Int64
	PublishDuration   atomic.Int64 // cumulative nanoseconds
}

// Metrics is a point-in-time snapshot of producer counters.
type Metrics struct {
	MessagesPublished int64
	MessagesFailed    int64
	RetriesTotal      int64
	AvgPublishTime    time.Duration
}

type Producer struct {
	config  ProducerConfig
	writer  *kafkago.Writer
	metrics producerMetrics
	closed  atomic.Bool
	log     zerolog.Logger
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
		BatchSize:    cfg.BatchSize,
		Async:        cfg.Async,
	}

	return &Producer{
		config: cfg,
		writer: writer,
		log:    cfg.Logger.With().Str("component", "kafka_producer").Str("topic", cfg.Topic).Logger(),
	}, nil
}

func validateConfig(cfg *ProducerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("kafka: brokers list is empty")
	}
	if cfg.Topic == "" {
		return errors.New("kafka: topic is empty")
	}
	if cfg.MaxRetries < 0 {
		return errors.New("kafka: max_retries cannot be negative")
	}
	if cfg.RetryBackoff < 0 {
		return errors.New("kafka: retry_backoff cannot be negative")
	}
	if cfg.WriteTimeout < 0 {
		return errors.New("kafka: write_timeout cannot be negative")
	}
	return nil
}

func setDefaults(cfg *ProducerConfig) {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
}

func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	if p.closed.Load() {
		return errors.New("kafka: producer is closed")
	}
	return p.publishWithRetry(ctx, kafkago.Message{Key: []byte(key), Value: value})
}

func (p *Producer) PublishBatch(ctx context.Context, messages []Message) error {
	if p.closed.Load() {
		return errors.New("kafka: producer is closed")
	}
	if len(messages) == 0 {
		return nil
	}
	batch := make([]kafkago.Message, len(messages))
	for i, m := range messages {
		batch[i] = kafkago.Message{Key: []byte(m.Key), Value: m.Value}
	}
	return p.publishWithRetry(ctx, batch...)
}

func (p *Producer) publishWithRetry(ctx context.Context, messages ...kafkago.Message) error {
	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			p.metrics.RetriesTotal.Add(1)
			select {
			case <-ctx.Done():
				p.metrics.MessagesFailed.Add(int64(len(messages)))
				return ctx.Err()
			case <-time.After(p.config.RetryBackoff):
			}
		}

		lastErr = p.writer.WriteMessages(ctx, messages...)
		if lastErr == nil {
			p.metrics.MessagesPublished.Add(int64(len(messages)))
			p.metrics.PublishDuration.Add(int64(time.Since(start)))
			return nil
		}
		if !isRetriableError(lastErr) {
			break
		}
		p.log.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("publish failed, retrying")
	}

	p.metrics.MessagesFailed.Add(int64(len(messages)))
	return fmt.Errorf("kafka publish: %w", lastErr)
}

// isRetriableError distinguishes transport hiccups from errors that a retry
// can never fix.
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, permanent := range []string{"invalid message", "message too large", "authorization"} {
		if strings.Contains(msg, permanent) {
			return false
		}
	}
	return true
}

func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return errors.New("kafka: producer already closed")
	}
	return p.writer.Close()
}

// HealthCheck dials the first broker to verify connectivity.
func (p *Producer) HealthCheck(ctx context.Context) error {
	if p.closed.Load() {
		return errors.New("kafka: producer is closed")
	}
	dialer := &kafkago.Dialer{Timeout: p.config.WriteTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka health check: %w", err)
	}
	return conn.Close()
}

func (p *Producer) GetMetrics() Metrics {
	published := p.metrics.MessagesPublished.Load()
	m := Metrics{
		MessagesPublished: published,
		MessagesFailed:    p.metrics.MessagesFailed.Load(),
		RetriesTotal:      p.metrics.RetriesTotal.Load(),
	}
	if published > 0 {
		m.AvgPublishTime = time.Duration(p.metrics.PublishDuration.Load() / published)
	}
	return m
}
