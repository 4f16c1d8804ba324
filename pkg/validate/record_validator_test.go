package validate_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Gunvolt24/stock-db-writer/internal/domain"
	"github.com/Gunvolt24/stock-db-writer/pkg/validate"
)

func validRecord() *domain.AnalysisRecord {
	return &domain.AnalysisRecord{
		Symbol:    "AAPL",
		Source:    "scanner",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Analysis:  json.RawMessage(`{"sentiment":0.8}`),
	}
}

func TestRecordValidator_Validate(t *testing.T) {
	v := validate.NewRecordValidator()
	ctx := context.Background()

	t.Run("valid record", func(t *testing.T) {
		r := validRecord()
		if err := v.Validate(ctx, r); err != nil {
			t.Fatalf("expected valid record, got: %v", err)
		}
	})

	t.Run("analysis is optional", func(t *testing.T) {
		r := validRecord()
		r.Analysis = nil
		if err := v.Validate(ctx, r); err != nil {
			t.Fatalf("record without analysis must be valid, got: %v", err)
		}
	})

	type testCase struct {
		name       string
		makeRecord func() *domain.AnalysisRecord
		msg        string
	}

	cases := []testCase{
		{
			name:       "nil record",
			makeRecord: func() *domain.AnalysisRecord { return nil },
			msg:        "запись не может быть nil",
		},
		{
			name: "empty symbol",
			makeRecord: func() *domain.AnalysisRecord {
				r := validRecord()
				r.Symbol = ""
				return r
			},
			msg: "symbol обязателен",
		},
		{
			name: "symbol too long",
			makeRecord: func() *domain.AnalysisRecord {
				r := validRecord()
				r.Symbol = strings.Repeat("A", 65)
				return r
			},
			msg: "symbol длиннее",
		},
		{
			name: "zero timestamp",
			makeRecord: func() *domain.AnalysisRecord {
				r := validRecord()
				r.Timestamp = time.Time{}
				return r
			},
			msg: "timestamp некорректен",
		},
		{
			name: "timestamp before epoch floor",
			makeRecord: func() *domain.AnalysisRecord {
				r := validRecord()
				r.Timestamp = time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC)
				return r
			},
			msg: "timestamp некорректен",
		},
		{
			name: "empty source",
			makeRecord: func() *domain.AnalysisRecord {
				r := validRecord()
				r.Source = ""
				return r
			},
			msg: "source обязателен",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(ctx, tc.makeRecord())
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !errors.Is(err, validate.ErrInvalidRecord) {
				t.Fatalf("error must wrap ErrInvalidRecord, got: %v", err)
			}
			if !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("error %q must contain %q", err.Error(), tc.msg)
			}
		})
	}
}

// Граница длины symbol: ровно 64 символа — валидно.
func TestRecordValidator_SymbolAtLimit(t *testing.T) {
	v := validate.NewRecordValidator()

	r := validRecord()
	r.Symbol = strings.Repeat("A", 64)
	if err := v.Validate(context.Background(), r); err != nil {
		t.Fatalf("64-char symbol must be valid, got: %v", err)
	}
}
