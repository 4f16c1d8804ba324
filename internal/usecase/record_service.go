package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Gunvolt24/stock-db-writer/internal/domain"
	"github.com/Gunvolt24/stock-db-writer/internal/ports"
	"github.com/Gunvolt24/stock-db-writer/pkg/metrics"
	"github.com/Gunvolt24/stock-db-writer/pkg/validate"
)

// Проверка, что RecordService удовлетворяет порту BatchHandler.
var _ ports.BatchHandler = (*RecordService)(nil)

// RecordService — прикладная логика записи аналитики (без знаний о транспорте):
// декодирование сырых сообщений и доставка готовых батчей в Postgres.
type RecordService struct {
	repo      ports.RecordRepository // прямой доступ к хранилищу
	log       ports.Logger           // прямой доступ к логгеру
	validator ports.RecordValidator  // прямой доступ к валидатору
}

// NewRecordService — DI-конструктор.
func NewRecordService(
	repo ports.RecordRepository,
	log ports.Logger,
	validator ports.RecordValidator,
) *RecordService {
	return &RecordService{
		repo:      repo,
		log:       log,
		validator: validator,
	}
}

// DecodeRecord — разбирает сырое сообщение очереди в доменную запись.
// Шаги:
//  1. строгий парсинг JSON (DisallowUnknownFields) —> отлавливаем незадокументированные поля;
//  2. пустой source заменяется сентинелом domain.SourceUnknown;
//  3. доменная валидация.
//
// Любая ошибка оборачивается в validate.ErrInvalidRecord: такое сообщение
// терминально для самого себя (nack без requeue / drop) и никогда
// не попадает в батч.
func (s *RecordService) DecodeRecord(ctx context.Context, raw []byte) (*domain.AnalysisRecord, error) {
	// Строгое декодирование: запрещаем неизвестные поля.
	var record domain.AnalysisRecord
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&record); err != nil {
		s.log.Warnf(ctx, "invalid json err=%v", err)
		return nil, fmt.Errorf("%w: invalid json: %v", validate.ErrInvalidRecord, err)
	}

	// Убеждаемся, что после объекта нет лишних данных.
	if err := dec.Decode(new(struct{})); err != io.EOF {
		s.log.Warnf(ctx, "invalid json: trailing data")
		return nil, fmt.Errorf("%w: invalid json: trailing data", validate.ErrInvalidRecord)
	}

	// Источник по умолчанию — сентинел (поведение исходного writer'а).
	if record.Source == "" {
		record.Source = domain.SourceUnknown
	}

	// Доменная валидация (обязательные поля, корректность timestamp и т.д.).
	if err := s.validator.Validate(ctx, &record); err != nil {
		s.log.Warnf(ctx, "validation failed symbol=%q err=%v", record.Symbol, err)
		return nil, err
	}

	return &record, nil
}

// DispatchBatch — колбэк доставки батча: транзакционная запись в хранилище.
// Пустой батч — не ошибка (предупреждение и выход).
func (s *RecordService) DispatchBatch(ctx context.Context, records []*domain.AnalysisRecord) error {
	if len(records) == 0 {
		s.log.Warnf(ctx, "received empty batch, skipping")
		return nil
	}

	start := time.Now()
	if err := s.repo.SaveBatch(ctx, records); err != nil {
		s.log.Errorf(ctx, "repo.SaveBatch failed size=%d err=%v", len(records), err)
		return fmt.Errorf("failed to save batch: %w", err)
	}

	metrics.RecordsWritten.Add(float64(len(records)))
	s.log.Infof(ctx, "batch saved size=%d took=%s", len(records), time.Since(start))
	return nil
}
