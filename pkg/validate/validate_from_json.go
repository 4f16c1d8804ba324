package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Gunvolt24/stock-db-writer/internal/domain"
	"github.com/Gunvolt24/stock-db-writer/internal/ports"
)

// ValidateRecordFromJSON — валидация записи аналитики из JSON.
// Повторяет правила консьюмера: строгий парсинг и source по умолчанию.
func ValidateRecordFromJSON(ctx context.Context, validator ports.RecordValidator, raw []byte) (*domain.AnalysisRecord, error) {
	var record domain.AnalysisRecord
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	// гарантируем отсутствие полей вне структуры
	if err := dec.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("invalid json: trailing data")
	}
	if record.Source == "" {
		record.Source = domain.SourceUnknown
	}
	if err := validator.Validate(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
