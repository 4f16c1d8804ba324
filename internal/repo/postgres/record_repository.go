package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gunvolt24/stock-db-writer/internal/domain"
	"github.com/Gunvolt24/stock-db-writer/internal/ports"
)

// Проверка, что RecordRepository удовлетворяет интерфейсу RecordRepository.
var _ ports.RecordRepository = (*RecordRepository)(nil)

// RecordRepository — реализация хранилища записей аналитики на Postgres (pgxpool).
type RecordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository - конструктор RecordRepository.
func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository { return &RecordRepository{pool: pool} }

// SaveBatch — транзакционная вставка батча одним round-trip (pgx.Batch).
// Вставка простая (append-only): доставка at-least-once, дубликаты после
// передоставки допускаются осознанно и разрешаются на стороне потребителей данных.
func (r *RecordRepository) SaveBatch(ctx context.Context, records []*domain.AnalysisRecord) error {
	if len(records) == 0 {
		return nil
	}

	transaction, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// При уже завершённой транзакции Rollback вернёт ErrTxClosed — игнорируем.
		if rbErr := transaction.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			_ = rbErr
		}
	}()

	queued := &pgx.Batch{}
	for i, record := range records {
		if record == nil || record.Symbol == "" {
			return fmt.Errorf("record #%d is empty or symbol is required", i)
		}
		queued.Queue(`
			INSERT INTO analysis_records (symbol, source, ts, analysis)
			VALUES ($1, $2, $3, $4)
		`, record.Symbol, record.Source, record.Timestamp, record.Analysis)
	}

	results := transaction.SendBatch(ctx, queued)
	for range records {
		if _, execErr := results.Exec(); execErr != nil {
			_ = results.Close()
			return fmt.Errorf("insert record: %w", execErr)
		}
	}
	if closeErr := results.Close(); closeErr != nil {
		return fmt.Errorf("close batch: %w", closeErr)
	}

	return transaction.Commit(ctx)
}
