package config_test

import (
	"testing"
	"time"

	cfg "github.com/Gunvolt24/stock-db-writer/config"
)

// TestLoadWithPrefix_Defaults — проверка наличия значений по умолчанию.
func TestLoadWithPrefix_Defaults(t *testing.T) {
	t.Parallel()

	c, err := cfg.LoadWithPrefix("STOCKS_TEST_DEFAULTS")
	if err != nil {
		t.Fatalf("LoadWithPrefix error: %v", err)
	}

	// HTTP
	if c.HTTP.Addr != ":8080" {
		t.Fatalf("HTTP.Addr: want :8080, got %q", c.HTTP.Addr)
	}
	if c.HTTP.GinMode != "debug" {
		t.Fatalf("HTTP.GinMode: want debug, got %q", c.HTTP.GinMode)
	}
	if c.HTTP.ReadTimeout != 10*time.Second || c.HTTP.WriteTimeout != 10*time.Second {
		t.Fatalf("HTTP timeouts wrong: %+v", c.HTTP)
	}
	if c.HTTP.ReadHeaderTimeout != 5*time.Second || c.HTTP.IdleTimeout != 60*time.Second {
		t.Fatalf("HTTP header/idle timeouts wrong: %+v", c.HTTP)
	}
	if c.HTTP.GracefulTimeout != 5*time.Second {
		t.Fatalf("HTTP.GracefulTimeout: want 5s, got %v", c.HTTP.GracefulTimeout)
	}

	// Tracing
	if c.Tracing.Enabled {
		t.Fatalf("Tracing.Enabled: want false, got true")
	}
	if c.Tracing.ServiceName != "stock-db-writer" || c.Tracing.Endpoint != "jaeger:4318" || c.Tracing.SampleRatio != 1 {
		t.Fatalf("Tracing defaults wrong: %+v", c.Tracing)
	}

	// Postgres
	if c.Postgres.DSN == "" {
		t.Fatalf("Postgres.DSN should have default, got empty")
	}
	if c.Postgres.MaxConns != 10 {
		t.Fatalf("Postgres.MaxConns: want 10, got %d", c.Postgres.MaxConns)
	}

	// Queue / Batch
	if c.Queue.Kind != cfg.QueueKindRabbitMQ {
		t.Fatalf("Queue.Kind: want rabbitmq, got %q", c.Queue.Kind)
	}
	if c.Batch.Size != 100 || c.Batch.FlushTimeout != time.Minute {
		t.Fatalf("Batch defaults wrong: %+v", c.Batch)
	}

	// RabbitMQ
	if c.RabbitMQ.Queue != "stock_analysis" || c.RabbitMQ.ConsumerTag != "stock-db-writer" {
		t.Fatalf("RabbitMQ defaults wrong: %+v", c.RabbitMQ)
	}
	if c.RabbitMQ.RetryAttempts != 5 || c.RabbitMQ.RetryInitial != 2*time.Second ||
		c.RabbitMQ.RetryMax != 30*time.Second || c.RabbitMQ.RetryMultiplier != 2 {
		t.Fatalf("RabbitMQ retry defaults wrong: %+v", c.RabbitMQ)
	}

	// SQS
	if c.SQS.WaitTime != 10*time.Second || c.SQS.PollInterval != 5*time.Second || c.SQS.MaxPollFailures != 5 {
		t.Fatalf("SQS defaults wrong: %+v", c.SQS)
	}

	// Logger
	if c.Logger.IsProd {
		t.Fatalf("Logger.IsProd: want false, got true")
	}
}

// Меняем окружение.
func TestLoadWithPrefix_Overrides(t *testing.T) {
	const p = "STOCKS_TEST_OVR"

	// HTTP
	t.Setenv(p+"_HTTP_ADDR", ":9999")
	t.Setenv(p+"_HTTP_GIN_MODE", "release")
	t.Setenv(p+"_HTTP_READ_TIMEOUT", "2s")
	t.Setenv(p+"_HTTP_WRITE_TIMEOUT", "3s")
	t.Setenv(p+"_HTTP_READ_HEADER_TIMEOUT", "1s")
	t.Setenv(p+"_HTTP_IDLE_TIMEOUT", "15s")
	t.Setenv(p+"_HTTP_GRACEFUL_TIMEOUT", "9s")

	// Tracing
	t.Setenv(p+"_TRACING_OTEL_ENABLED", "true")
	t.Setenv(p+"_TRACING_OTEL_SERVICE_NAME", "svc")
	t.Setenv(p+"_TRACING_OTEL_ENDPOINT", "collector:4318")
	t.Setenv(p+"_TRACING_OTEL_SAMPLE_RATIO", "0.25")

	// Postgres
	t.Setenv(p+"_POSTGRES_DSN", "postgres://u:p@h:5432/db?sslmode=disable")
	t.Setenv(p+"_POSTGRES_MAX_CONNS", "42")

	// Queue / Batch
	t.Setenv(p+"_QUEUE_KIND", "sqs")
	t.Setenv(p+"_BATCH_SIZE", "250")
	t.Setenv(p+"_BATCH_FLUSH_TIMEOUT", "30s")

	// SQS (kind=sqs требует queue url)
	t.Setenv(p+"_SQS_QUEUE_URL", "https://sqs.eu-west-1.amazonaws.com/123/stock-analysis")
	t.Setenv(p+"_SQS_REGION", "eu-west-1")
	t.Setenv(p+"_SQS_WAIT_TIME", "20s")
	t.Setenv(p+"_SQS_POLL_INTERVAL", "1s")
	t.Setenv(p+"_SQS_MAX_POLL_FAILURES", "7")

	// RabbitMQ
	t.Setenv(p+"_RABBITMQ_URL", "amqp://u:p@mq:5672/")
	t.Setenv(p+"_RABBITMQ_QUEUE", "q-test")
	t.Setenv(p+"_RABBITMQ_CONSUMER_TAG", "tag-test")
	t.Setenv(p+"_RABBITMQ_RETRY_ATTEMPTS", "3")
	t.Setenv(p+"_RABBITMQ_RETRY_INITIAL", "250ms")
	t.Setenv(p+"_RABBITMQ_RETRY_MAX", "2m")
	t.Setenv(p+"_RABBITMQ_RETRY_MULTIPLIER", "1.5")

	// Logger
	t.Setenv(p+"_LOGGER_IS_PROD", "true")

	c, err := cfg.LoadWithPrefix(p)
	if err != nil {
		t.Fatalf("LoadWithPrefix error: %v", err)
	}

	// Проверки
	if c.HTTP.Addr != ":9999" || c.HTTP.GinMode != "release" {
		t.Fatalf("HTTP overrides wrong: %+v", c.HTTP)
	}
	if c.HTTP.ReadTimeout != 2*time.Second || c.HTTP.WriteTimeout != 3*time.Second ||
		c.HTTP.ReadHeaderTimeout != 1*time.Second || c.HTTP.IdleTimeout != 15*time.Second ||
		c.HTTP.GracefulTimeout != 9*time.Second {
		t.Fatalf("HTTP timeouts override wrong: %+v", c.HTTP)
	}
	if !c.Tracing.Enabled || c.Tracing.ServiceName != "svc" || c.Tracing.Endpoint != "collector:4318" || c.Tracing.SampleRatio != 0.25 {
		t.Fatalf("Tracing overrides wrong: %+v", c.Tracing)
	}
	if c.Postgres.DSN != "postgres://u:p@h:5432/db?sslmode=disable" || c.Postgres.MaxConns != 42 {
		t.Fatalf("Postgres overrides wrong: %+v", c.Postgres)
	}
	if c.Queue.Kind != cfg.QueueKindSQS {
		t.Fatalf("Queue.Kind override wrong: %q", c.Queue.Kind)
	}
	if c.Batch.Size != 250 || c.Batch.FlushTimeout != 30*time.Second {
		t.Fatalf("Batch overrides wrong: %+v", c.Batch)
	}
	if c.SQS.QueueURL != "https://sqs.eu-west-1.amazonaws.com/123/stock-analysis" ||
		c.SQS.Region != "eu-west-1" || c.SQS.WaitTime != 20*time.Second ||
		c.SQS.PollInterval != time.Second || c.SQS.MaxPollFailures != 7 {
		t.Fatalf("SQS overrides wrong: %+v", c.SQS)
	}
	if c.RabbitMQ.URL != "amqp://u:p@mq:5672/" || c.RabbitMQ.Queue != "q-test" || c.RabbitMQ.ConsumerTag != "tag-test" {
		t.Fatalf("RabbitMQ basic overrides wrong: %+v", c.RabbitMQ)
	}
	if c.RabbitMQ.RetryAttempts != 3 || c.RabbitMQ.RetryInitial != 250*time.Millisecond ||
		c.RabbitMQ.RetryMax != 2*time.Minute || c.RabbitMQ.RetryMultiplier != 1.5 {
		t.Fatalf("RabbitMQ retry overrides wrong: %+v", c.RabbitMQ)
	}
	if !c.Logger.IsProd {
		t.Fatalf("Logger.IsProd override wrong: %+v", c.Logger)
	}
}

// Тоже меняем окружение — но с невалидным значением.
func TestLoadWithPrefix_InvalidValue_ReturnsError(t *testing.T) {
	const p = "STOCKS_TEST_BAD"
	t.Setenv(p+"_HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := cfg.LoadWithPrefix(p); err == nil {
		t.Fatalf("expected error for invalid duration, got nil")
	}
}

// Неизвестный вид очереди — ошибка конфигурации.
func TestLoadWithPrefix_UnknownQueueKind_ReturnsError(t *testing.T) {
	const p = "STOCKS_TEST_KIND"
	t.Setenv(p+"_QUEUE_KIND", "kafka")

	if _, err := cfg.LoadWithPrefix(p); err == nil {
		t.Fatalf("expected error for unknown queue kind, got nil")
	}
}

// kind=sqs без queue url — ошибка конфигурации.
func TestLoadWithPrefix_SQSWithoutQueueURL_ReturnsError(t *testing.T) {
	const p = "STOCKS_TEST_SQSURL"
	t.Setenv(p+"_QUEUE_KIND", "sqs")

	if _, err := cfg.LoadWithPrefix(p); err == nil {
		t.Fatalf("expected error for sqs without queue url, got nil")
	}
}
