package domain

import (
	"encoding/json"
	"time"
)

// SourceUnknown — сентинел для отсутствующего источника данных.
const SourceUnknown = "unknown"

// AnalysisRecord — одна запись аналитики по инструменту,
// пришедшая из очереди (RabbitMQ/SQS) в виде JSON.
type AnalysisRecord struct {
	Symbol    string          `json:"symbol"`
	Source    string          `json:"source,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Analysis  json.RawMessage `json:"analysis,omitempty"`
}
