//go:build integration

package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/Gunvolt24/stock-db-writer/internal/domain"
)

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func UniqSuffix() string { return randHex(6) }

// Мини-генератор валидной записи аналитики
func MakeRecord(opts ...func(*domain.AnalysisRecord)) domain.AnalysisRecord {
	now := time.Now().UTC().Truncate(time.Second)

	r := domain.AnalysisRecord{
		Symbol:    "TST-" + UniqSuffix(),
		Source:    "itest",
		Timestamp: now,
		Analysis:  json.RawMessage(`{"sentiment":0.42,"window":"1d"}`),
	}

	for _, fn := range opts {
		fn(&r)
	}
	return r
}

func WithSymbol(symbol string) func(*domain.AnalysisRecord) {
	return func(r *domain.AnalysisRecord) { r.Symbol = symbol }
}

func WithSource(source string) func(*domain.AnalysisRecord) {
	return func(r *domain.AnalysisRecord) { r.Source = source }
}

func WithAnalysis(raw string) func(*domain.AnalysisRecord) {
	return func(r *domain.AnalysisRecord) { r.Analysis = json.RawMessage(raw) }
}
