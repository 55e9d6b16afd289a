package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"intake/pkg/kafka"
	"intake/pkg/logger"
)

// Counters accumulates in-process publish and consume counts. Safe for
// concurrent use.
type Counters struct {
	published       atomic.Int64
	publishFailed   atomic.Int64
	publishDuration atomic.Int64
	consumed        atomic.Int64
	consumeFailed   atomic.Int64
	consumeDuration atomic.Int64
}

type Snapshot struct {
	Published          int64
	PublishFailed      int64
	AvgPublishDuration time.Duration
	Consumed           int64
	ConsumeFailed      int64
	AvgConsumeDuration time.Duration
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) Snapshot() Snapshot {
	s := Snapshot{
		Published:     c.published.Load(),
		PublishFailed: c.publishFailed.Load(),
		Consumed:      c.consumed.Load(),
		ConsumeFailed: c.consumeFailed.Load(),
	}
	if n := s.Published + s.PublishFailed; n > 0 {
		s.AvgPublishDuration = time.Duration(c.publishDuration.Load() / n)
	}
	if n := s.Consumed + s.ConsumeFailed; n > 0 {
		s.AvgConsumeDuration = time.Duration(c.consumeDuration.Load() / n)
	}
	return s
}

// LogSummary writes the current counters as one structured record.
func (c *Counters) LogSummary(log *logger.Logger) {
	s := c.Snapshot()
	log.Info("kafka counters",
		"published", s.Published,
		"publish_failed", s.PublishFailed,
		"avg_publish_ms", s.AvgPublishDuration.Milliseconds(),
		"consumed", s.Consumed,
		"consume_failed", s.ConsumeFailed,
		"avg_consume_ms", s.AvgConsumeDuration.Milliseconds(),
	)
}

func (c *Counters) ProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		c.publishDuration.Add(int64(time.Since(start)))
		if err != nil {
			c.publishFailed.Add(1)
		} else {
			c.published.Add(1)
		}
		return err
	}
}

func (c *Counters) ConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		c.consumeDuration.Add(int64(time.Since(start)))
		if err != nil {
			c.consumeFailed.Add(1)
		} else {
			c.consumed.Add(1)
		}
		return err
	}
}
