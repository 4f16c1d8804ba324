package validate

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/Gunvolt24/stock-db-writer/internal/domain"
	"github.com/Gunvolt24/stock-db-writer/internal/ports"
)

// Проверка, что RecordValidator удовлетворяет интерфейсу RecordValidator.
var _ ports.RecordValidator = (*RecordValidator)(nil)

// ErrInvalidRecord — базовая (sentinel error) ошибка валидации.
// Адаптеры используют её, чтобы отличить «ядовитое» сообщение
// (nack без requeue / drop) от временной ошибки.
var ErrInvalidRecord = errors.New("record validation failed")

// maxSymbolLen — разумная верхняя граница длины тикера.
const maxSymbolLen = 64

// RecordValidator — структура для валидации записи аналитики.
type RecordValidator struct{}

// NewRecordValidator — конструктор RecordValidator.
func NewRecordValidator() *RecordValidator { return &RecordValidator{} }

// Validate — проверяет корректность полей записи.
// Возвращает ErrInvalidRecord (с обёрнутой причиной) при любой проблеме.
func (v *RecordValidator) Validate(_ context.Context, record *domain.AnalysisRecord) error {
	if record == nil {
		return fmt.Errorf("%w: запись не может быть nil", ErrInvalidRecord)
	}
	if record.Symbol == "" {
		return fmt.Errorf("%w: symbol обязателен", ErrInvalidRecord)
	}
	if utf8.RuneCountInString(record.Symbol) > maxSymbolLen {
		return fmt.Errorf("%w: symbol длиннее %d символов", ErrInvalidRecord, maxSymbolLen)
	}
	if record.Timestamp.IsZero() || record.Timestamp.Before(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)) {
		return fmt.Errorf("%w: timestamp некорректен", ErrInvalidRecord)
	}
	if record.Source == "" {
		return fmt.Errorf("%w: source обязателен (пустой должен заменяться сентинелом)", ErrInvalidRecord)
	}
	return nil
}
