package outbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
)

func TestOrdersJournalAppendAndList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "orders.jsonl")
	j, err := Orders(path)
	require.NoError(t, err)

	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, sym := range []string{"AAPL.US", "GLD.US", "JPM.US"} {
		rec := domain.OrderRecord{ID: sym, Symbol: sym, Date: date, Action: domain.ActionBuy, Size: i + 1, Price: 10}
		require.NoError(t, j.Save(ctx, rec))
	}

	page, err := j.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Records)
	assert.True(t, page.EOP)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "JPM.US", page.Data[0].Symbol)
	assert.True(t, page.Data[0].Date.Equal(date))
}

func TestOrdersJournalRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orders.jsonl")
	j, err := Orders(path)
	require.NoError(t, err)
	require.NoError(t, j.Save(ctx, domain.OrderRecord{ID: "a"}))

	// a fresh handle picks up keys already on disk
	j2, err := Orders(path)
	require.NoError(t, err)
	err = j2.Save(ctx, domain.OrderRecord{ID: "a"})
	assert.True(t, errors.Is(err, domain.ErrPersistence))
}

func TestSharedFileKeepsTypesApart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "outbox.jsonl")
	orders, err := Orders(path)
	require.NoError(t, err)
	telemetry, err := Telemetry(path)
	require.NoError(t, err)

	require.NoError(t, orders.Save(ctx, domain.OrderRecord{ID: "x"}))
	rsi := 25.0
	require.NoError(t, telemetry.Save(ctx, domain.RiskTelemetryRecord{BenchmarkRSI1: &rsi, HedgeTriggered: true}))
	require.NoError(t, telemetry.Save(ctx, domain.RiskTelemetryRecord{}))

	tp, err := telemetry.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, tp.Records)
	require.NotNil(t, tp.Data[0].BenchmarkRSI1)
	assert.Equal(t, 25.0, *tp.Data[0].BenchmarkRSI1)
	assert.Nil(t, tp.Data[1].BenchmarkRSI1)

	op, err := orders.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, op.Records)
}

func TestListSkipsCorruptLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orders.jsonl")
	j, err := Orders(path)
	require.NoError(t, err)
	require.NoError(t, j.Save(ctx, domain.OrderRecord{ID: "ok"}))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	page, err := j.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Records)
}

func TestEmptyJournal(t *testing.T) {
	j, err := Orders(filepath.Join(t.TempDir(), "none.jsonl"))
	require.NoError(t, err)
	page, err := j.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Page)
	assert.True(t, page.EOP)
	assert.Empty(t, page.Data)
}
