//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/stock-db-writer/internal/domain"
	pgrepo "github.com/Gunvolt24/stock-db-writer/internal/repo/postgres"
	"github.com/Gunvolt24/stock-db-writer/internal/testutil"
)

// newPG — контейнер Postgres + миграции на один тест.
func newPG(t *testing.T) (*testutil.PGContainer, context.Context) {
	t.Helper()

	ctxStart, cancelStart := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancelStart)

	pg, stopPG, err := testutil.StartPostgresTC(ctxStart)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stopPG(context.Background()) })

	require.NoError(t, testutil.ApplyMigrationsGoose(pg.DSN))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)
	return pg, ctx
}

func countBySource(t *testing.T, ctx context.Context, pg *testutil.PGContainer, source string) int {
	t.Helper()
	var n int
	err := pg.Pool.QueryRow(ctx, `SELECT count(*) FROM analysis_records WHERE source = $1`, source).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestSaveBatch_RoundTrip_TC(t *testing.T) {
	pg, ctx := newPG(t)
	repo := pgrepo.NewRecordRepository(pg.Pool)

	source := "itest-" + testutil.UniqSuffix()
	r1 := testutil.MakeRecord(testutil.WithSource(source))
	r2 := testutil.MakeRecord(testutil.WithSource(source), testutil.WithAnalysis(`{"score":-1.5}`))
	r3 := testutil.MakeRecord(testutil.WithSource(source))

	require.NoError(t, repo.SaveBatch(ctx, []*domain.AnalysisRecord{&r1, &r2, &r3}))
	require.Equal(t, 3, countBySource(t, ctx, pg, source))

	// Поля первой записи читаются обратно без искажений.
	var (
		gotSymbol string
		gotTS     time.Time
		gotRaw    []byte
	)
	err := pg.Pool.QueryRow(ctx,
		`SELECT symbol, ts, analysis FROM analysis_records WHERE symbol = $1`, r1.Symbol,
	).Scan(&gotSymbol, &gotTS, &gotRaw)
	require.NoError(t, err)
	require.Equal(t, r1.Symbol, gotSymbol)
	require.True(t, r1.Timestamp.Equal(gotTS.UTC()), "ts mismatch: want %s, got %s", r1.Timestamp, gotTS)
	require.JSONEq(t, string(r1.Analysis), string(gotRaw))
}

func TestSaveBatch_Empty_NoOp_TC(t *testing.T) {
	pg, ctx := newPG(t)
	repo := pgrepo.NewRecordRepository(pg.Pool)

	require.NoError(t, repo.SaveBatch(ctx, nil))
	require.Equal(t, 0, countBySource(t, ctx, pg, "itest"))
}

// Запись без symbol валит весь батч: транзакция откатывается целиком.
func TestSaveBatch_BadRecord_RollsBackWholeBatch_TC(t *testing.T) {
	pg, ctx := newPG(t)
	repo := pgrepo.NewRecordRepository(pg.Pool)

	source := "itest-" + testutil.UniqSuffix()
	good := testutil.MakeRecord(testutil.WithSource(source))
	bad := testutil.MakeRecord(testutil.WithSource(source), testutil.WithSymbol(""))

	err := repo.SaveBatch(ctx, []*domain.AnalysisRecord{&good, &bad})
	require.Error(t, err)
	require.Equal(t, 0, countBySource(t, ctx, pg, source))
}

// Повторная доставка того же батча даёт дубликаты: вставка append-only,
// дедупликация отдана потребителям данных.
func TestSaveBatch_Redelivery_AppendsDuplicates_TC(t *testing.T) {
	pg, ctx := newPG(t)
	repo := pgrepo.NewRecordRepository(pg.Pool)

	source := "itest-" + testutil.UniqSuffix()
	rec := testutil.MakeRecord(testutil.WithSource(source))
	batch := []*domain.AnalysisRecord{&rec}

	require.NoError(t, repo.SaveBatch(ctx, batch))
	require.NoError(t, repo.SaveBatch(ctx, batch))
	require.Equal(t, 2, countBySource(t, ctx, pg, source))
}
