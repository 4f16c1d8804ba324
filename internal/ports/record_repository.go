package ports

import (
	"context"

	"github.com/Gunvolt24/stock-db-writer/internal/domain"
)

// RecordRepository — хранилище записей аналитики.
// SaveBatch сохраняет весь батч атомарно (одна транзакция).
type RecordRepository interface {
	SaveBatch(ctx context.Context, records []*domain.AnalysisRecord) error
}
