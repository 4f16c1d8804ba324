package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/stock-db-writer/config"
	"github.com/Gunvolt24/stock-db-writer/internal/ports"
	"github.com/Gunvolt24/stock-db-writer/internal/rabbitmq"
	"github.com/Gunvolt24/stock-db-writer/internal/repo/postgres"
	"github.com/Gunvolt24/stock-db-writer/internal/sqs"
	rest "github.com/Gunvolt24/stock-db-writer/internal/transport/http"
	"github.com/Gunvolt24/stock-db-writer/internal/usecase"
	"github.com/Gunvolt24/stock-db-writer/pkg/logger"
	"github.com/Gunvolt24/stock-db-writer/pkg/metrics"
	"github.com/Gunvolt24/stock-db-writer/pkg/telemetry"
	"github.com/Gunvolt24/stock-db-writer/pkg/validate"
)

// App — собранное приложение и его внешние интерфейсы (консьюмер, служебный HTTP).
type App struct {
	Logger          ports.Logger          // логгер
	HTTPServer      *http.Server          // служебный HTTP-сервер
	Consumer        ports.MessageConsumer // консьюмер сообщений
	gracefulTimeout time.Duration         // время ожидания завершения HTTP-сервера
}

// Cleanup — функция освобождения ресурсов.
type Cleanup func()

// applyGinMode — устанавливает режим Gin по строке;
// неизвестное значение → debug и предупреждение в лог.
func applyGinMode(ctx context.Context, mode string, log ports.Logger) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	case "", "debug":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.DebugMode)
		log.Warnf(ctx, "unknown GIN_MODE=%q, fallback to debug", mode)
	}
}

// buildConsumer — собирает консьюмер по виду транспорта из конфигурации.
// Вторым значением возвращает функцию наблюдения состояния для ops-эндпоинта.
func buildConsumer(ctx context.Context, cfg *config.Config, handler ports.BatchHandler, log ports.Logger) (ports.MessageConsumer, func() string, error) {
	switch cfg.Queue.Kind {
	case config.QueueKindRabbitMQ:
		consumer := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
			URL:             cfg.RabbitMQ.URL,
			Queue:           cfg.RabbitMQ.Queue,
			ConsumerTag:     cfg.RabbitMQ.ConsumerTag,
			BatchSize:       cfg.Batch.Size,
			FlushTimeout:    cfg.Batch.FlushTimeout,
			RetryAttempts:   cfg.RabbitMQ.RetryAttempts,
			RetryInitial:    cfg.RabbitMQ.RetryInitial,
			RetryMax:        cfg.RabbitMQ.RetryMax,
			RetryMultiplier: cfg.RabbitMQ.RetryMultiplier,
		}, handler, log)
		return consumer, func() string { return consumer.State().String() }, nil

	case config.QueueKindSQS:
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.SQS.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.SQS.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		consumer := sqs.NewConsumer(sqs.ConsumerConfig{
			QueueURL:        cfg.SQS.QueueURL,
			BatchSize:       cfg.Batch.Size,
			FlushTimeout:    cfg.Batch.FlushTimeout,
			WaitTime:        cfg.SQS.WaitTime,
			PollInterval:    cfg.SQS.PollInterval,
			MaxPollFailures: cfg.SQS.MaxPollFailures,
		}, awssqs.NewFromConfig(awsCfg), handler, log)
		return consumer, func() string { return consumer.State().String() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown queue kind %q", cfg.Queue.Kind)
	}
}

// Bootstrap — собирает зависимости и возвращает приложение, функцию очистки и ошибку.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, Cleanup, error) {
	// Логгер (dev/prod режим задаётся конфигурацией).
	logg, cleanupLogger, err := logger.NewZapLogger(cfg.Logger.IsProd)
	if err != nil {
		return nil, func() {}, err
	}

	// Регистрация метрик (Prometheus).
	metrics.MustRegister()

	// Пул подключений Postgres.
	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		if cErr := cleanupLogger(); cErr != nil {
			logg.Warnf(ctx, "cleanup logger: %v", cErr)
		}
		return nil, func() {}, err
	}

	// Трейсинг OTEL (при включённой конфигурации); по умолчанию — no-op.
	shutdownTrace := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		setup, tErr := telemetry.SetupTracing(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
		if tErr != nil {
			logg.Warnf(ctx, "failed to setup tracing: %v", tErr)
		} else {
			logg.Infof(ctx, "otel tracing enabled service=%s endpoint=%s sample=%.2f",
				cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
			shutdownTrace = setup
		}
	}

	// Сборка зависимостей доменного слоя.
	recordRepo := postgres.NewRecordRepository(pool)
	recordValidator := validate.NewRecordValidator()
	recordService := usecase.NewRecordService(recordRepo, logg, recordValidator)

	// Консьюмер выбранного транспорта.
	consumer, consumerState, err := buildConsumer(ctx, cfg, recordService, logg)
	if err != nil {
		pool.Close()
		if cErr := cleanupLogger(); cErr != nil {
			logg.Warnf(ctx, "cleanup logger: %v", cErr)
		}
		return nil, func() {}, err
	}

	// Режим Gin.
	applyGinMode(ctx, cfg.HTTP.GinMode, logg)

	// Имя сервиса для otelgin (только при включённом трейсинге).
	otelServiceName := ""
	if cfg.Tracing.Enabled {
		otelServiceName = cfg.Tracing.ServiceName
	}

	// Служебный роутер и HTTP-сервер.
	httpHandler := rest.NewHandler(pool, consumerState, logg)
	router := rest.NewRouter(httpHandler, otelServiceName)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	app := &App{
		Logger:          logg,
		HTTPServer:      httpSrv,
		Consumer:        consumer,
		gracefulTimeout: cfg.HTTP.GracefulTimeout,
	}

	// Очистка ресурсов (в обратном порядке).
	cleanup := func() {
		if terr := shutdownTrace(context.Background()); terr != nil {
			logg.Warnf(ctx, "shutdown tracing: %v", terr)
		}
		if err := consumer.Close(); err != nil {
			logg.Warnf(ctx, "consumer close error: %v", err)
		}

		pool.Close()
		if cerr := cleanupLogger(); cerr != nil {
			logg.Warnf(ctx, "cleanup logger: %v", cerr)
		}
	}

	return app, cleanup, nil
}

// Run — запускает консьюмер и HTTP-сервер; ждёт отмены контекста или ошибки и останавливает их.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	// Запуск консьюмера.
	go func() {
		a.Logger.Infof(ctx, "consumer starting")
		if err := a.Consumer.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	// Запуск HTTP-сервера.
	go func() {
		a.Logger.Infof(ctx, "http server starting (addr=%s)", a.HTTPServer.Addr)
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Ожидание сигнала остановки или фоновой ошибки.
	select {
	case <-ctx.Done():
		a.Logger.Infof(ctx, "shutdown requested, starting graceful shutdown")
	case err := <-errCh:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			a.Logger.Infof(ctx, "background component stopped: %v", err)
		} else {
			a.Logger.Warnf(ctx, "background error: %v", err)
		}
	}

	gt := a.gracefulTimeout
	if gt <= 0 {
		gt = 5 * time.Second
	}

	// Корректная остановка HTTP-сервера.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), gt)
	defer cancel()

	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warnf(ctx, "http server shutdown failed: %v", err)
	} else {
		a.Logger.Infof(ctx, "http server stopped gracefully")
	}

	// Остановка консьюмера: незакоммиченный батч не сбрасываем,
	// его сообщения будут доставлены заново (at-least-once).
	if err := a.Consumer.Close(); err != nil {
		a.Logger.Warnf(ctx, "consumer close error: %v", err)
	}

	a.Logger.Infof(ctx, "service stopped")
	return nil
}
