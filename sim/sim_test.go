package sim

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/evanjt06/pagesim/cache"
)

func mustReadTrace(t *testing.T, text string) []Record {
	t.Helper()
	records, err := ReadTrace(strings.NewReader(text))
	require.NoError(t, err)
	return records
}

func TestReadTrace(t *testing.T) {
	records := mustReadTrace(t, "R 0x7fff10\nW 0x7fff20\n  R\t0x0\nW0x1234 R")

	assert.Equal(t, []Record{
		{Op: 'R', Addr: "0x7fff10"},
		{Op: 'W', Addr: "0x7fff20"},
		{Op: 'R', Addr: "0x0"},
		{Op: 'W', Addr: "0x1234"},
	}, records)
}

func TestReadTraceEmpty(t *testing.T) {
	assert.Empty(t, mustReadTrace(t, ""))
	assert.Empty(t, mustReadTrace(t, "   \n\t"))
}

func TestLoadTraceMissingFile(t *testing.T) {
	_, err := LoadTrace(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunEmptyTraceIsUndefined(t *testing.T) {
	runner := &Runner{}
	res, err := runner.Run(nil, cache.LRU, 64)
	require.NoError(t, err)

	assert.Zero(t, res.Misses)
	assert.Zero(t, res.Hits)
	assert.True(t, math.IsNaN(res.FaultRatio()))
	assert.True(t, math.IsNaN(res.RecentFaultRate))
	assert.Equal(t, "undefined", FormatRatio(res.FaultRatio()))
}

func TestRunCountsOutcomes(t *testing.T) {
	records := mustReadTrace(t, "R a R b R a R c R b")
	runner := &Runner{Index: "critbit"}

	fifo, err := runner.Run(records, cache.FIFO, 2)
	require.NoError(t, err)
	// a b | a hit | c evicts a | b hit
	assert.Equal(t, Result{Policy: cache.FIFO, Capacity: 2, Misses: 3, Hits: 2, Evictions: 1, RecentFaultRate: fifo.RecentFaultRate}, fifo)
	assert.InDelta(t, 0.6, fifo.FaultRatio(), 1e-9)

	lru, err := runner.Run(records, cache.LRU, 2)
	require.NoError(t, err)
	// a b | a hit | c evicts b | b evicts a
	assert.Equal(t, uint64(4), lru.Misses)
	assert.Equal(t, uint64(1), lru.Hits)
	assert.Equal(t, uint64(2), lru.Evictions)
	assert.Greater(t, lru.RecentFaultRate, 0.0)
	assert.LessOrEqual(t, lru.RecentFaultRate, 1.0)
}

func TestRunRejectsBadCapacity(t *testing.T) {
	runner := &Runner{}
	_, err := runner.Run(nil, cache.FIFO, 0)
	assert.ErrorIs(t, err, cache.ErrInvalidCapacity)
}

func TestSweepOrderAndLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	runner := &Runner{Logger: zap.New(core).Sugar()}
	records := mustReadTrace(t, "R 1 R 2 R 3 R 1 R 2 R 3")

	results, err := runner.Sweep(context.Background(), records, []cache.Policy{cache.FIFO, cache.LRU}, []int{1, 2, 4})
	require.NoError(t, err)
	require.Len(t, results, 6)

	var got []string
	for _, res := range results {
		got = append(got, res.Policy.String()+"/"+strconv.Itoa(res.Capacity))
	}
	assert.Equal(t, []string{"FIFO/1", "FIFO/2", "FIFO/4", "LRU/1", "LRU/2", "LRU/4"}, got)

	// a cyclic trace one larger than the cache misses every time under both policies
	assert.Equal(t, uint64(6), results[1].Misses)
	assert.Equal(t, uint64(6), results[4].Misses)
	assert.Equal(t, uint64(3), results[2].Hits)

	assert.Equal(t, 6, logs.FilterMessage("Finished run").Len())
}

func TestSweepStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &Runner{}
	results, err := runner.Sweep(ctx, nil, []cache.Policy{cache.FIFO}, []int{64})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestWriteTable(t *testing.T) {
	results := []Result{
		{Policy: cache.FIFO, Capacity: 64, Misses: 3, Hits: 1},
		{Policy: cache.FIFO, Capacity: 128, Misses: 0, Hits: 0},
		{Policy: cache.LRU, Capacity: 64, Misses: 1, Hits: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, results))

	want := "FIFO---\n" +
		"size          miss          hit           page fault ratio\n" +
		"64            3             1             0.75\n" +
		"128           0             0             undefined\n" +
		"LRU---\n" +
		"size          miss          hit           page fault ratio\n" +
		"64            1             2             0.333333\n"
	assert.Equal(t, want, buf.String())
}

func TestResultsLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	log := &ResultsLog{Path: path}

	require.NoError(t, log.Append(Result{Policy: cache.LRU, Capacity: 64, Misses: 1, Hits: 3, Evictions: 0, RecentFaultRate: 0.1}))
	require.NoError(t, log.Append(Result{Policy: cache.FIFO, Capacity: 128, RecentFaultRate: math.NaN()}))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, err := ReadResults(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "LRU", entries[0].Policy)
	require.NotNil(t, entries[0].FaultRatio)
	assert.InDelta(t, 0.25, *entries[0].FaultRatio, 1e-9)

	assert.Equal(t, "FIFO", entries[1].Policy)
	assert.Nil(t, entries[1].FaultRatio, "undefined ratio is stored as null")
	assert.Nil(t, entries[1].RecentFaultRate)
}

func TestRunShortTraceWithVariableTrendAge(t *testing.T) {
	records := mustReadTrace(t, "R a R b R c R d R e")

	for _, age := range []float64{0, 10, 30} {
		runner := &Runner{TrendAge: age}
		res, err := runner.Run(records, cache.FIFO, 64)
		require.NoError(t, err)

		assert.Equal(t, uint64(5), res.Misses)
		assert.Equal(t, 1.0, res.RecentFaultRate, "trend_age %v", age)
	}

	runner := &Runner{TrendAge: 10}
	res, err := runner.Run(mustReadTrace(t, "R a R b R a R c R b"), cache.FIFO, 2)
	require.NoError(t, err)
	assert.InDelta(t, res.FaultRatio(), res.RecentFaultRate, 1e-9)
}

func TestRunLongTraceWithVariableTrendAge(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("R " + strconv.Itoa(i) + "\n")
	}

	runner := &Runner{TrendAge: 10}
	res, err := runner.Run(mustReadTrace(t, b.String()), cache.LRU, 64)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.RecentFaultRate, 1e-9)
}

func TestReadTraceLongToken(t *testing.T) {
	addr := strings.Repeat("f", 200<<10)
	records := mustReadTrace(t, "R "+addr+"\nW 0x10")

	require.Len(t, records, 2)
	assert.Equal(t, addr, records[0].Addr)
	assert.Equal(t, "0x10", records[1].Addr)
}

func TestResultsLogReportsWriteFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	log := &ResultsLog{Path: "/dev/full"}

	err := log.Append(Result{Policy: cache.LRU, Capacity: 64, Misses: 1})
	assert.Error(t, err)
}

func TestResultsLogReportsOpenFailure(t *testing.T) {
	log := &ResultsLog{Path: t.TempDir()}

	err := log.Append(Result{Policy: cache.FIFO, Capacity: 64})
	assert.Error(t, err)
}
