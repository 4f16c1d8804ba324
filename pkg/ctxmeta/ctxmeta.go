// Пакет ctxmeta — нейтральный слой для метаданных, которые прокидываются
// через context.Context (request_id для HTTP, batch_id для сброса батча).
// Идея: транспортные слои и логгер зависят от небольшого общего пакета,
// но не друг от друга.
package ctxmeta

import "context"

type ctxKey string

const (
	// Ключи контекста (собственный тип — чтобы избежать коллизий).
	KeyRequestID ctxKey = "request_id"
	KeyBatchID   ctxKey = "batch_id"
)

// WithRequestID кладёт request_id в контекст (если пусто — ничего не делает).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, KeyRequestID, requestID)
}

// RequestIDFromContext достаёт request_id из контекста.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(KeyRequestID).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithBatchID кладёт идентификатор сбрасываемого батча в контекст.
// Консьюмер генерирует его перед диспатчем, чтобы связать логи
// транспорта и слоя записи в БД.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	if ctx == nil || batchID == "" {
		return ctx
	}
	return context.WithValue(ctx, KeyBatchID, batchID)
}

// BatchIDFromContext достаёт batch_id из контекста.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(KeyBatchID).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
