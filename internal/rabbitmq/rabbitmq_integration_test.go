//go:build integration

package rabbitmq_test

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	irabbit "github.com/Gunvolt24/stock-db-writer/internal/rabbitmq"
	pgrepo "github.com/Gunvolt24/stock-db-writer/internal/repo/postgres"
	"github.com/Gunvolt24/stock-db-writer/internal/testutil"
	"github.com/Gunvolt24/stock-db-writer/internal/usecase"
	"github.com/Gunvolt24/stock-db-writer/pkg/logger"
	"github.com/Gunvolt24/stock-db-writer/pkg/validate"
)

var reUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func safe(t *testing.T) string { return reUnsafe.ReplaceAllString(t.Name(), "-") }

// stack — контейнеры PG+RabbitMQ, миграции, репозиторий и сервис на один тест.
type stack struct {
	ctx   context.Context
	pg    *testutil.PGContainer
	rmq   *testutil.RabbitEnv
	repo  *pgrepo.RecordRepository
	svc   *usecase.RecordService
	queue string
}

func newStack(t *testing.T) *stack {
	t.Helper()

	// длинный контекст только на старт контейнеров
	ctxStart, cancelStart := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancelStart)

	pg, stopPG, err := testutil.StartPostgresTC(ctxStart)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stopPG(context.Background()) })
	require.NoError(t, testutil.ApplyMigrationsGoose(pg.DSN))

	rmq, stopRMQ, err := testutil.StartRabbitTC(ctxStart)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stopRMQ(context.Background()) })

	// короткий контекст на сам тест
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	logg, closer, err := logger.NewZapLogger(false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer() })

	repo := pgrepo.NewRecordRepository(pg.Pool)
	svc := usecase.NewRecordService(repo, logg, validate.NewRecordValidator())

	return &stack{
		ctx:   ctx,
		pg:    pg,
		rmq:   rmq,
		repo:  repo,
		svc:   svc,
		queue: "stock_analysis-" + safe(t) + "-" + testutil.UniqSuffix(),
	}
}

func (s *stack) startConsumer(t *testing.T, batchSize int, flushTimeout time.Duration) *irabbit.Consumer {
	t.Helper()

	logg, closer, err := logger.NewZapLogger(false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer() })

	consumer := irabbit.NewConsumer(irabbit.ConsumerConfig{
		URL:          s.rmq.URL,
		Queue:        s.queue,
		BatchSize:    batchSize,
		FlushTimeout: flushTimeout,
		RetryInitial: 200 * time.Millisecond,
		RetryMax:     2 * time.Second,
	}, s.svc, logg)

	runCtx, cancelRun := context.WithCancel(s.ctx)
	t.Cleanup(cancelRun)
	go func() { _ = consumer.Run(runCtx) }()
	t.Cleanup(func() { _ = consumer.Close() })

	// даём консьюмеру подключиться и объявить очередь
	deadline := time.Now().Add(15 * time.Second)
	for consumer.State() != irabbit.StateConsuming {
		if time.Now().After(deadline) {
			t.Fatalf("consumer did not reach consuming state, got %s", consumer.State())
		}
		time.Sleep(100 * time.Millisecond)
	}
	return consumer
}

func (s *stack) publish(t *testing.T, payload []byte) {
	t.Helper()

	conn, err := amqp.Dial(s.rmq.URL)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	_, err = ch.QueueDeclare(s.queue, true, false, false, false, nil)
	require.NoError(t, err)

	require.NoError(t, ch.PublishWithContext(s.ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
	}))
}

func (s *stack) countBySource(t *testing.T, source string) int {
	t.Helper()
	var n int
	require.NoError(t, s.pg.Pool.QueryRow(s.ctx,
		`SELECT count(*) FROM analysis_records WHERE source = $1`, source).Scan(&n))
	return n
}

func (s *stack) waitCount(t *testing.T, source string, want int) {
	t.Helper()
	deadline := time.Now().Add(20 * time.Second)
	for {
		if got := s.countBySource(t, source); got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("source %s: want %d records, got %d", source, want, s.countBySource(t, source))
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// 1) Полный батч подтверждается и оказывается в БД.
func TestRabbit_FullBatch_Saved_TC(t *testing.T) {
	s := newStack(t)
	s.startConsumer(t, 2, time.Hour)

	source := "itest-" + testutil.UniqSuffix()
	for i := 0; i < 2; i++ {
		rec := testutil.MakeRecord(testutil.WithSource(source))
		raw, _ := json.Marshal(rec)
		s.publish(t, raw)
	}

	s.waitCount(t, source, 2)
}

// 2) Неполный батч сбрасывается по таймауту. Готовность к сбросу
// проверяется после каждой доставки, поэтому вторую публикуем уже
// после истечения окна — она и закрывает батч.
func TestRabbit_TimeoutFlush_Saved_TC(t *testing.T) {
	s := newStack(t)
	s.startConsumer(t, 100, 1*time.Second)

	source := "itest-" + testutil.UniqSuffix()
	first := testutil.MakeRecord(testutil.WithSource(source))
	raw, _ := json.Marshal(first)
	s.publish(t, raw)

	time.Sleep(1500 * time.Millisecond)

	second := testutil.MakeRecord(testutil.WithSource(source))
	raw2, _ := json.Marshal(second)
	s.publish(t, raw2)

	s.waitCount(t, source, 2)
}

// 3) Не-JSON сообщение отбрасывается (nack без requeue), валидное после него — сохраняется.
func TestRabbit_Skip_InvalidJSON_Then_SaveValid_TC(t *testing.T) {
	s := newStack(t)
	s.startConsumer(t, 1, time.Hour)

	s.publish(t, []byte("not-a-json"))

	source := "itest-" + testutil.UniqSuffix()
	rec := testutil.MakeRecord(testutil.WithSource(source))
	raw, _ := json.Marshal(rec)
	s.publish(t, raw)

	s.waitCount(t, source, 1)
}

// 4) At-least-once: сообщения, не подтверждённые до остановки, доставляются
// заново следующему консьюмеру и сохраняются.
func TestRabbit_Redelivery_AfterRestart_TC(t *testing.T) {
	s := newStack(t)

	// Первый консьюмер: батч 100, сообщение попадёт в незакрытый батч и не будет ack'нуто.
	first := s.startConsumer(t, 100, time.Hour)

	source := "itest-" + testutil.UniqSuffix()
	rec := testutil.MakeRecord(testutil.WithSource(source))
	raw, _ := json.Marshal(rec)
	s.publish(t, raw)

	// Даём доставке дойти до аккумулятора, затем гасим без сброса.
	time.Sleep(2 * time.Second)
	require.Equal(t, 0, s.countBySource(t, source))
	require.NoError(t, first.Close())

	// Второй консьюмер с батчем 1 получает передоставку и сохраняет.
	s.startConsumer(t, 1, time.Hour)
	s.waitCount(t, source, 1)
}
