package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gunvolt24/stock-db-writer/internal/batch"
	"github.com/Gunvolt24/stock-db-writer/internal/ports"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Проверка, что Consumer удовлетворяет интерфейсу верхнего уровня (порт приложения).
var _ ports.MessageConsumer = (*Consumer)(nil)

const transportName = "rabbitmq"

// errConnLost — канал доставок закрыт брокером: соединение потеряно.
var errConnLost = errors.New("rabbitmq: connection lost")

// State — наблюдаемое состояние адаптера. Переходы:
// Connecting → Subscribed → Consuming → Draining → Closed,
// плюс Consuming → Connecting при потере соединения.
type State int32

const (
	StateConnecting State = iota
	StateSubscribed
	StateConsuming
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateConsuming:
		return "consuming"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// channel — минимальный контракт над amqp.Channel,
// чтобы легко подменять его моками в тестах.
type channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple, requeue bool) error
	Cancel(consumer string, noWait bool) error
	Close() error
}

// connection — контракт над amqp.Connection (dial возвращает его).
type connection interface {
	Channel() (channel, error)
	Close() error
}

// dialFunc — фабрика соединений; в тестах подменяется на мок.
type dialFunc func(url string) (connection, error)

// Consumer — push-адаптер RabbitMQ: подписка на долговечную очередь,
// накопление батча и ack/nack после исхода dispatch.
type Consumer struct {
	cfg     ConsumerConfig
	handler ports.BatchHandler
	log     ports.Logger

	dial  dialFunc
	state atomic.Int32

	// jitterRand — источник случайности, чтобы рассинхронизировать экспоненциальный backoff.
	jitterRand *rand.Rand

	mu        sync.Mutex
	conn      connection
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewConsumer — конструктор с дефолтами для незаданных полей конфига.
func NewConsumer(cfg ConsumerConfig, handler ports.BatchHandler, log ports.Logger) *Consumer {
	cfg.applyDefaults()

	return &Consumer{
		cfg:        cfg,
		handler:    handler,
		log:        log,
		dial:       amqpDial,
		jitterRand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// State — текущее состояние адаптера (для ops-эндпоинта и тестов).
func (c *Consumer) State() State { return State(c.state.Load()) }

func (c *Consumer) setState(s State) { c.state.Store(int32(s)) }

// Run — основной цикл:
//  1. Connecting: dial + канал + объявление очереди + prefetch + подписка;
//  2. Consuming: декодируем доставки, копим батч, после каждого append
//     проверяем готовность к сбросу; Committed → ack всех тегов,
//     Rejected → nack всех без requeue;
//  3. потеря соединения → Connecting с экспоненциальным backoff
//     (ограниченное число попыток);
//  4. отмена контекста → Draining → Closed.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Infof(ctx, "rabbitmq consumer started queue=%s prefetch=%d batch_size=%d flush_timeout=%s",
		c.cfg.Queue, c.cfg.BatchSize, c.cfg.BatchSize, c.cfg.FlushTimeout)

	attempt := 0
	retry := c.cfg.RetryInitial

	for {
		if ctx.Err() != nil {
			c.setState(StateClosed)
			return ctx.Err()
		}
		if c.closed.Load() {
			c.setState(StateClosed)
			return nil
		}

		c.setState(StateConnecting)
		sess, connErr := c.connect(ctx)
		if connErr != nil {
			attempt++
			if c.cfg.RetryAttempts > 0 && attempt >= c.cfg.RetryAttempts {
				c.setState(StateClosed)
				return fmt.Errorf("rabbitmq: connect attempts exhausted after %d: %w", attempt, connErr)
			}
			sleep := c.withJitterEqual(retry)
			c.log.Warnf(ctx, "connect failed: %v (attempt=%d, will retry in %s)", connErr, attempt, sleep)
			if !c.sleepWithBackoff(ctx, sleep) {
				c.setState(StateClosed)
				return ctx.Err()
			}
			retry = c.nextBackoff(retry)
			continue
		}

		// Успешное подключение -> сбрасываем счётчики backoff.
		attempt = 0
		retry = c.cfg.RetryInitial

		loopErr := c.consumeLoop(ctx, sess)
		c.teardown(ctx, sess)

		switch {
		case errors.Is(loopErr, errConnLost):
			c.log.Warnf(ctx, "connection lost, reconnecting queue=%s", c.cfg.Queue)
			continue
		default:
			c.setState(StateClosed)
			return loopErr
		}
	}
}

// consumeLoop — обслуживание доставок одного подключения. Полностью
// синхронный: flush батча N завершается до обработки доставки N+1,
// два Flush никогда не выполняются конкурентно.
func (c *Consumer) consumeLoop(ctx context.Context, sess *session) error {
	c.setState(StateConsuming)

	// Аккумулятор живёт вместе с подключением: после реконнекта
	// неподтверждённые сообщения брокер доставит заново, а теги
	// старого канала недействительны.
	acc := batch.NewAccumulator[uint64](c.cfg.BatchSize, c.cfg.FlushTimeout)

	for {
		select {
		case <-ctx.Done():
			// Штатное завершение: новый батч не сбрасываем, его
			// сообщения останутся неподтверждёнными и будут доставлены заново.
			return ctx.Err()
		case d, ok := <-sess.deliveries:
			if !ok {
				if c.closed.Load() {
					return nil
				}
				return errConnLost
			}
			c.handleDelivery(ctx, sess.ch, acc, &d)
		}
	}
}

// Close — закрывает текущее соединение. Вызывается при остановке приложения;
// разблокирует канал доставок, если Run ещё работает.
func (c *Consumer) Close() (retErr error) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()
		if conn != nil {
			retErr = conn.Close()
		}
	})
	return retErr
}
