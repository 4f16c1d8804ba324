package sqs

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/Gunvolt24/stock-db-writer/internal/batch"
	"github.com/Gunvolt24/stock-db-writer/pkg/ctxmeta"
	"github.com/Gunvolt24/stock-db-writer/pkg/metrics"
)

// handleMessage — декодирование одного сообщения и накопление в батч.
// Битое сообщение логируется и отбрасывается: у pull-очереди нет
// per-message nack, передоставка/истечение — по политике самой очереди.
func (c *Consumer) handleMessage(ctx context.Context, acc *batch.Accumulator[string], m *sqstypes.Message) {
	metrics.QueueMessagesConsumed.WithLabelValues(transportName).Inc()

	record, err := c.handler.DecodeRecord(ctx, []byte(aws.ToString(m.Body)))
	if err != nil {
		metrics.QueueMessagesDropped.WithLabelValues(transportName).Inc()
		c.log.Warnf(ctx, "undecodable message id=%s: %v (dropped)", aws.ToString(m.MessageId), err)
		return
	}

	acc.Append(record, aws.ToString(m.ReceiptHandle))
}

// flush — сброс батча и расчёт с очередью по исходу dispatch:
// Committed → delete каждого receipt handle; Rejected → ничего,
// сообщения вернутся в очередь после visibility timeout (at-least-once).
func (c *Consumer) flush(ctx context.Context, acc *batch.Accumulator[string]) {
	// batch_id связывает логи транспорта и слоя записи.
	ctx = ctxmeta.WithBatchID(ctx, uuid.New().String())

	out := acc.Flush(ctx, c.handler.DispatchBatch)
	if out.Size == 0 {
		return
	}

	metrics.BatchFlushSize.WithLabelValues(transportName).Observe(float64(out.Size))

	if !out.Committed() {
		metrics.BatchesRejected.WithLabelValues(transportName).Inc()
		c.log.Errorf(ctx, "batch rejected size=%d queue=%s err=%v (messages left for redelivery)",
			out.Size, c.cfg.QueueURL, out.Err)
		return
	}

	for _, handle := range out.Tokens {
		_, delErr := c.client.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
			QueueUrl:      aws.String(c.cfg.QueueURL),
			ReceiptHandle: aws.String(handle),
		})
		if delErr != nil {
			// Сообщение уже записано в sink: дубликат после передоставки
			// допустим (идемпотентность на стороне потребителя данных).
			metrics.SettlementFailures.WithLabelValues(transportName).Inc()
			c.log.Warnf(ctx, "delete failed: %v (duplicate possible after redelivery)", delErr)
		}
	}
	metrics.BatchesCommitted.WithLabelValues(transportName).Inc()
	c.log.Infof(ctx, "batch committed size=%d queue=%s", out.Size, c.cfg.QueueURL)
}

// sleep ждёт паузу или останавливается по контексту.
func (c *Consumer) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
