package ports

import (
	"context"

	"github.com/Gunvolt24/stock-db-writer/internal/domain"
)

// BatchHandler — контракт между транспортным адаптером и бизнес-логикой:
// декодирование сырого сообщения и отправка готового батча в sink.
//
// DecodeRecord возвращает ошибку, обёрнутую в validate.ErrInvalidRecord,
// если сообщение не подлежит повторной обработке (битый JSON, невалидные поля).
// DispatchBatch вызывается ровно один раз на батч; при ошибке адаптер
// выполняет отрицательное подтверждение всех сообщений батча.
type BatchHandler interface {
	DecodeRecord(ctx context.Context, raw []byte) (*domain.AnalysisRecord, error)
	DispatchBatch(ctx context.Context, records []*domain.AnalysisRecord) error
}
