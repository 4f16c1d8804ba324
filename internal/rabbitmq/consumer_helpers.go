package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Gunvolt24/stock-db-writer/internal/batch"
	"github.com/Gunvolt24/stock-db-writer/pkg/ctxmeta"
	"github.com/Gunvolt24/stock-db-writer/pkg/metrics"
)

// session — ресурсы одного подключения: соединение, канал и поток доставок.
type session struct {
	conn       connection
	ch         channel
	deliveries <-chan amqp.Delivery
}

// connect — dial + канал + объявление долговечной очереди + prefetch + подписка.
func (c *Consumer) connect(ctx context.Context) (*session, error) {
	conn, err := c.dial(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel: %w", err)
	}

	// Долговечная очередь: переживает рестарт брокера.
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}

	// prefetch = размер батча: ограничивает число неподтверждённых
	// сообщений в полёте (backpressure).
	if err := ch.Qos(c.cfg.BatchSize, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("qos: %w", err)
	}

	deliveries, err := ch.Consume(c.cfg.Queue, c.cfg.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setState(StateSubscribed)
	c.log.Infof(ctx, "subscribed queue=%s consumer_tag=%s", c.cfg.Queue, c.cfg.ConsumerTag)

	return &session{conn: conn, ch: ch, deliveries: deliveries}, nil
}

// teardown — Draining: отписка и закрытие ресурсов подключения.
func (c *Consumer) teardown(ctx context.Context, sess *session) {
	c.setState(StateDraining)

	if err := sess.ch.Cancel(c.cfg.ConsumerTag, false); err != nil {
		c.log.Warnf(ctx, "consumer cancel failed: %v", err)
	}
	if err := sess.ch.Close(); err != nil {
		c.log.Warnf(ctx, "channel close failed: %v", err)
	}

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		if err := conn.Close(); err != nil {
			c.log.Warnf(ctx, "connection close failed: %v", err)
		}
	}
}

// handleDelivery — обработка одной доставки: декодирование, накопление,
// сброс батча при достижении размера или таймаута.
// Битое сообщение получает nack без requeue и в батч не попадает.
func (c *Consumer) handleDelivery(ctx context.Context, ch channel, acc *batch.Accumulator[uint64], d *amqp.Delivery) {
	metrics.QueueMessagesConsumed.WithLabelValues(transportName).Inc()

	record, err := c.handler.DecodeRecord(ctx, d.Body)
	if err != nil {
		metrics.QueueMessagesDropped.WithLabelValues(transportName).Inc()
		c.log.Warnf(ctx, "undecodable message tag=%d queue=%s: %v (nack, no requeue)", d.DeliveryTag, c.cfg.Queue, err)
		if nackErr := ch.Nack(d.DeliveryTag, false, false); nackErr != nil {
			metrics.SettlementFailures.WithLabelValues(transportName).Inc()
			c.log.Warnf(ctx, "nack failed tag=%d: %v", d.DeliveryTag, nackErr)
		}
		return
	}

	acc.Append(record, d.DeliveryTag)

	if acc.ShouldFlush(time.Now()) {
		c.flush(ctx, ch, acc)
	}
}

// flush — сброс батча и расчёт с брокером по исходу dispatch:
// Committed → ack каждого тега; Rejected → nack каждого без requeue
// (ядовитый батч не ретраится на уровне транспорта).
func (c *Consumer) flush(ctx context.Context, ch channel, acc *batch.Accumulator[uint64]) {
	// batch_id связывает логи транспорта и слоя записи.
	ctx = ctxmeta.WithBatchID(ctx, uuid.New().String())

	out := acc.Flush(ctx, c.handler.DispatchBatch)
	if out.Size == 0 {
		return
	}

	metrics.BatchFlushSize.WithLabelValues(transportName).Observe(float64(out.Size))

	if out.Committed() {
		for _, tag := range out.Tokens {
			if ackErr := ch.Ack(tag, false); ackErr != nil {
				metrics.SettlementFailures.WithLabelValues(transportName).Inc()
				c.log.Warnf(ctx, "ack failed tag=%d: %v", tag, ackErr)
			}
		}
		metrics.BatchesCommitted.WithLabelValues(transportName).Inc()
		c.log.Infof(ctx, "batch committed size=%d queue=%s", out.Size, c.cfg.Queue)
		return
	}

	for _, tag := range out.Tokens {
		if nackErr := ch.Nack(tag, false, false); nackErr != nil {
			metrics.SettlementFailures.WithLabelValues(transportName).Inc()
			c.log.Warnf(ctx, "nack failed tag=%d: %v", tag, nackErr)
		}
	}
	metrics.BatchesRejected.WithLabelValues(transportName).Inc()
	c.log.Errorf(ctx, "batch rejected size=%d queue=%s err=%v (nack all, no requeue)", out.Size, c.cfg.Queue, out.Err)
}

// sleepWithBackoff ждёт backoff или останавливается по контексту.
func (c *Consumer) sleepWithBackoff(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// nextBackoff возвращает следующее время ожидания повтора с учётом RetryMax.
func (c *Consumer) nextBackoff(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * c.cfg.RetryMultiplier)
	if next > c.cfg.RetryMax {
		return c.cfg.RetryMax
	}
	return next
}

// withJitterEqual — умеренная случайность: половина задержки фиксирована,
// вторая половина — случайная. Баланс между стабильностью и случайностью.
func (c *Consumer) withJitterEqual(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	jitter := time.Duration(c.jitterRand.Int63n(int64(d-half) + 1))
	return half + jitter
}
