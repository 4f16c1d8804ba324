package sqs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/Gunvolt24/stock-db-writer/internal/batch"
	"github.com/Gunvolt24/stock-db-writer/internal/ports"
)

// Проверка, что Consumer удовлетворяет интерфейсу верхнего уровня (порт приложения).
var _ ports.MessageConsumer = (*Consumer)(nil)

const transportName = "sqs"

// receiveMax — лимит SQS на число сообщений за один ReceiveMessage.
const receiveMax = 10

// State — наблюдаемое состояние pull-адаптера.
type State int32

const (
	StatePolling State = iota
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// sqsAPI — минимальный контракт над SQS-клиентом,
// чтобы легко подменять его моками в тестах.
type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error)
}

// Consumer — pull-адаптер SQS: последовательный цикл long-poll → декодирование →
// накопление батча → сброс. Delete выполняется только после успешного dispatch;
// отклонённый батч остаётся в очереди и передоставляется после visibility timeout.
type Consumer struct {
	cfg     ConsumerConfig
	client  sqsAPI
	handler ports.BatchHandler
	log     ports.Logger

	state     atomic.Int32
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewConsumer — конструктор с дефолтами для незаданных полей конфига.
func NewConsumer(cfg ConsumerConfig, client sqsAPI, handler ports.BatchHandler, log ports.Logger) *Consumer {
	cfg.applyDefaults()

	return &Consumer{
		cfg:     cfg,
		client:  client,
		handler: handler,
		log:     log,
	}
}

// State — текущее состояние адаптера (для ops-эндпоинта и тестов).
func (c *Consumer) State() State { return State(c.state.Load()) }

// Run — основной цикл. Единственная блокирующая операция — long-poll
// с ограниченным окном ожидания, поэтому отмена контекста проверяется
// естественным образом раз в цикл опроса.
//
// Таймаут неполного батча тоже оценивается раз в цикл: батч может
// пересидеть свой таймаут максимум на одно окно ожидания — эта
// ограниченная задержка принята осознанно, субсекундная точность не нужна.
func (c *Consumer) Run(ctx context.Context) error {
	c.state.Store(int32(StatePolling))
	c.log.Infof(ctx, "sqs consumer started queue=%s batch_size=%d flush_timeout=%s wait_time=%s",
		c.cfg.QueueURL, c.cfg.BatchSize, c.cfg.FlushTimeout, c.cfg.WaitTime)

	acc := batch.NewAccumulator[string](c.cfg.BatchSize, c.cfg.FlushTimeout)
	failures := 0

	for {
		if err := ctx.Err(); err != nil {
			c.state.Store(int32(StateClosed))
			return err
		}
		if c.closed.Load() {
			c.state.Store(int32(StateClosed))
			return nil
		}

		out, err := c.client.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.cfg.QueueURL),
			MaxNumberOfMessages: c.receiveBatch(),
			WaitTimeSeconds:     int32(c.cfg.WaitTime / time.Second),
		})
		if err != nil {
			if ctx.Err() != nil {
				c.state.Store(int32(StateClosed))
				return ctx.Err()
			}
			// Временная ошибка транспорта: пауза и продолжение цикла.
			failures++
			if c.cfg.MaxPollFailures > 0 && failures >= c.cfg.MaxPollFailures {
				c.state.Store(int32(StateClosed))
				return fmt.Errorf("sqs: poll attempts exhausted after %d: %w", failures, err)
			}
			c.log.Warnf(ctx, "poll failed: %v (attempt=%d, sleep %s)", err, failures, c.cfg.PollInterval)
			if !c.sleep(ctx, c.cfg.PollInterval) {
				c.state.Store(int32(StateClosed))
				return ctx.Err()
			}
			continue
		}
		failures = 0

		for i := range out.Messages {
			c.handleMessage(ctx, acc, &out.Messages[i])
		}

		if acc.ShouldFlush(time.Now()) {
			c.flush(ctx, acc)
		}
	}
}

// Close — помечает адаптер закрытым; цикл завершится на ближайшей
// проверке. Собственных сетевых ресурсов у SQS-клиента нет.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() { c.closed.Store(true) })
	return nil
}

// receiveBatch — сколько сообщений запрашивать за один опрос
// (не больше лимита SQS).
func (c *Consumer) receiveBatch() int32 {
	if c.cfg.BatchSize < receiveMax {
		return int32(c.cfg.BatchSize)
	}
	return receiveMax
}
