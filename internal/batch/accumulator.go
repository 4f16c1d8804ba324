package batch

import (
	"context"
	"time"

	"github.com/Gunvolt24/stock-db-writer/internal/domain"
)

// Dispatch — колбэк доставки готового батча в sink.
// Вызывается ровно один раз на батч; получает только декодированные
// записи (без транспортных токенов).
type Dispatch func(ctx context.Context, records []*domain.AnalysisRecord) error

// Outcome — результат Flush: токены доставки всех сообщений батча
// и ошибка dispatch. Err == nil — батч зафиксирован (Committed),
// иначе — отклонён (Rejected), и адаптер выполняет nack/пропуск delete.
type Outcome[T any] struct {
	Tokens []T
	Size   int
	Err    error
}

// Committed — успешно ли доставлен батч.
func (o Outcome[T]) Committed() bool { return o.Err == nil }

// Accumulator — буфер пар (запись, токен доставки), ограниченный по
// размеру и времени. Порядок вставки = порядок прихода сообщений.
// Не потокобезопасен: владелец — единственный цикл транспортного
// адаптера, который никогда не выполняет два Flush конкурентно.
type Accumulator[T any] struct {
	size         int
	flushTimeout time.Duration

	records   []*domain.AnalysisRecord
	tokens    []T
	lastFlush time.Time

	// now — источник времени; подменяется в тестах.
	now func() time.Time
}

// NewAccumulator — конструктор. Отсчёт таймаута начинается с момента
// создания (как и в исходном обработчике очереди).
func NewAccumulator[T any](size int, flushTimeout time.Duration) *Accumulator[T] {
	if size <= 0 {
		size = 1
	}
	if flushTimeout <= 0 {
		flushTimeout = time.Minute
	}

	a := &Accumulator[T]{
		size:         size,
		flushTimeout: flushTimeout,
		now:          time.Now,
	}
	a.lastFlush = a.now()
	return a
}

// Append — добавляет запись и её токен доставки в конец батча.
// Никогда не завершается ошибкой; после вызова батч может стать готовым
// к сбросу (см. ShouldFlush).
func (a *Accumulator[T]) Append(record *domain.AnalysisRecord, token T) {
	a.records = append(a.records, record)
	a.tokens = append(a.tokens, token)
}

// Len — текущий размер батча.
func (a *Accumulator[T]) Len() int { return len(a.records) }

// ShouldFlush — чистый предикат готовности к сбросу: достигнут размер
// батча либо истёк таймаут с последнего сброса. Пустой батч сбрасывать
// нечего — всегда false.
func (a *Accumulator[T]) ShouldFlush(now time.Time) bool {
	if len(a.records) == 0 {
		return false
	}
	return len(a.records) >= a.size || now.Sub(a.lastFlush) >= a.flushTimeout
}

// Flush — отдаёт накопленный батч в dispatch ровно один раз.
// Батч очищается и lastFlush сбрасывается ДО вызова dispatch вне
// зависимости от исхода: сообщение не ретраится повторно внутри одного
// запуска процесса, а буфер не растёт после ошибки колбэка.
func (a *Accumulator[T]) Flush(ctx context.Context, dispatch Dispatch) Outcome[T] {
	records := a.records
	tokens := a.tokens

	a.records = nil
	a.tokens = nil
	a.lastFlush = a.now()

	err := dispatch(ctx, records)
	return Outcome[T]{Tokens: tokens, Size: len(records), Err: err}
}
