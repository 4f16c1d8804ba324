package sqs

import "time"

// ConsumerConfig — настройки pull-адаптера.
type ConsumerConfig struct {
	QueueURL string

	BatchSize    int           // размер батча
	FlushTimeout time.Duration // сброс неполного батча по времени

	WaitTime     time.Duration // окно long-poll (0..20s по ограничению SQS)
	PollInterval time.Duration // пауза после ошибки опроса

	// MaxPollFailures — сколько ошибок опроса подряд терпим,
	// прежде чем отдать фатальную ошибку супервизору процесса.
	MaxPollFailures int
}

// applyDefaults — параметры по умолчанию (если не заданы в конфиге).
func (c *ConsumerConfig) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = time.Minute
	}
	if c.WaitTime <= 0 {
		c.WaitTime = 10 * time.Second
	}
	if c.WaitTime > 20*time.Second {
		c.WaitTime = 20 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxPollFailures <= 0 {
		c.MaxPollFailures = 5
	}
}
