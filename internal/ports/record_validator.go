package ports

import (
	"context"

	"github.com/Gunvolt24/stock-db-writer/internal/domain"
)

// RecordValidator — доменная валидация записи аналитики.
type RecordValidator interface {
	Validate(ctx context.Context, record *domain.AnalysisRecord) error
}
