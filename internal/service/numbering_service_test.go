package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"invoicing-backend/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeCounterRepo is an in-memory CounterRepository with the same atomicity
// guarantee the locked database row provides.
type fakeCounterRepo struct {
	mu       sync.Mutex
	counts   map[string]int64
	failures int // Increment errors to inject before succeeding
	failWith error
}

func newFakeCounterRepo() *fakeCounterRepo {
	return &fakeCounterRepo{counts: map[string]int64{}}
}

func (f *fakeCounterRepo) Increment(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return 0, f.failWith
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounterRepo) Get(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[key], nil
}

// passthroughTxManager runs the callback without a real transaction.
type passthroughTxManager struct{}

func (passthroughTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func newTestNumbering(counters *fakeCounterRepo) NumberingService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewNumberingService(counters, passthroughTxManager{}, log)
}

func TestAllocateFormatsNumber(t *testing.T) {
	svc := newTestNumbering(newFakeCounterRepo())
	period := Period{Year: 2025, Month: time.January}

	tests := []struct {
		company string
		kind    string
		want    string
	}{
		{model.CompanyWT, model.KindInvoice, "WT2501INV001"},
		{model.CompanyWTPL, model.KindInvoice, "WTPL2501INV001"},
		{model.CompanyWT, model.KindProforma, "WT2501PRF001"},
		{model.CompanyWTXPL, model.KindProforma, "WTXPL2501PRF001"},
	}
	for _, tt := range tests {
		alloc, err := svc.Allocate(context.Background(), tt.company, tt.kind, period)
		require.NoError(t, err)
		assert.Equal(t, tt.want, alloc.Number)
		assert.EqualValues(t, 1, alloc.Sequence)
	}
}

func TestAllocateSequencesPerCompanyPeriodKind(t *testing.T) {
	svc := newTestNumbering(newFakeCounterRepo())
	ctx := context.Background()
	jan := Period{Year: 2025, Month: time.January}
	feb := Period{Year: 2025, Month: time.February}

	first, err := svc.Allocate(ctx, model.CompanyWT, model.KindInvoice, jan)
	require.NoError(t, err)
	second, err := svc.Allocate(ctx, model.CompanyWT, model.KindInvoice, jan)
	require.NoError(t, err)
	assert.Equal(t, "WT2501INV001", first.Number)
	assert.Equal(t, "WT2501INV002", second.Number)

	// Separate sequences: another company, another month, another kind.
	other, err := svc.Allocate(ctx, model.CompanyWTX, model.KindInvoice, jan)
	require.NoError(t, err)
	assert.Equal(t, "WTX2501INV001", other.Number)

	next, err := svc.Allocate(ctx, model.CompanyWT, model.KindInvoice, feb)
	require.NoError(t, err)
	assert.Equal(t, "WT2502INV001", next.Number)

	proforma, err := svc.Allocate(ctx, model.CompanyWT, model.KindProforma, jan)
	require.NoError(t, err)
	assert.Equal(t, "WT2501PRF001", proforma.Number)
}

func TestAllocateSequencePastThreeDigits(t *testing.T) {
	counters := newFakeCounterRepo()
	counters.counts["WT_2501"] = 999
	svc := newTestNumbering(counters)

	alloc, err := svc.Allocate(context.Background(), model.CompanyWT, model.KindInvoice, Period{Year: 2025, Month: time.January})
	require.NoError(t, err)
	// %03d widens rather than truncates.
	assert.Equal(t, "WT2501INV1000", alloc.Number)
}

func TestAllocateRejectsUnknownCompanyAndKind(t *testing.T) {
	svc := newTestNumbering(newFakeCounterRepo())
	period := Period{Year: 2025, Month: time.June}

	_, err := svc.Allocate(context.Background(), "ACME", model.KindInvoice, period)
	assert.Error(t, err)

	_, err = svc.Allocate(context.Background(), model.CompanyWT, "RECEIPT", period)
	assert.Error(t, err)
}

func TestAllocateRetriesOnConflict(t *testing.T) {
	counters := newFakeCounterRepo()
	counters.failures = 2
	counters.failWith = gorm.ErrDuplicatedKey
	svc := newTestNumbering(counters)

	alloc, err := svc.Allocate(context.Background(), model.CompanyWT, model.KindInvoice, Period{Year: 2025, Month: time.March})
	require.NoError(t, err)
	assert.Equal(t, "WT2503INV001", alloc.Number)
}

func TestAllocateGivesUpAfterRetryBudget(t *testing.T) {
	counters := newFakeCounterRepo()
	counters.failures = allocationRetries
	counters.failWith = errors.New(`ERROR: duplicate key value violates unique constraint "number_counters_pkey"`)
	svc := newTestNumbering(counters)

	_, err := svc.Allocate(context.Background(), model.CompanyWT, model.KindInvoice, Period{Year: 2025, Month: time.March})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllocationConflict)

	// No number was consumed by the failed allocation.
	count, _ := counters.Get(context.Background(), "WT_2503")
	assert.EqualValues(t, 0, count)
}

func TestAllocateStopsOnNonRetryableError(t *testing.T) {
	counters := newFakeCounterRepo()
	counters.failures = 1
	counters.failWith = errors.New("connection refused")
	svc := newTestNumbering(counters)

	_, err := svc.Allocate(context.Background(), model.CompanyWT, model.KindInvoice, Period{Year: 2025, Month: time.March})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAllocationConflict)
}

func TestAllocateConcurrentUniqueSequences(t *testing.T) {
	svc := newTestNumbering(newFakeCounterRepo())
	period := Period{Year: 2025, Month: time.July}

	const n = 50
	results := make(chan Allocation, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alloc, err := svc.Allocate(context.Background(), model.CompanyWT, model.KindInvoice, period)
			assert.NoError(t, err)
			results <- alloc
		}()
	}
	wg.Wait()
	close(results)

	seqs := make([]int, 0, n)
	numbers := map[string]bool{}
	for alloc := range results {
		seqs = append(seqs, int(alloc.Sequence))
		require.False(t, numbers[alloc.Number], "duplicate number %s", alloc.Number)
		numbers[alloc.Number] = true
	}

	// Exactly the dense range 1..n, no gaps, no repeats.
	sort.Ints(seqs)
	for i, seq := range seqs {
		assert.Equal(t, i+1, seq)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	counters := newFakeCounterRepo()
	svc := newTestNumbering(counters)
	ctx := context.Background()
	period := Period{Year: 2026, Month: time.August}

	preview, err := svc.Peek(ctx, model.CompanyWT, model.KindInvoice, period)
	require.NoError(t, err)
	assert.Equal(t, "WT2608INV001", preview)

	again, err := svc.Peek(ctx, model.CompanyWT, model.KindInvoice, period)
	require.NoError(t, err)
	assert.Equal(t, preview, again)

	alloc, err := svc.Allocate(ctx, model.CompanyWT, model.KindInvoice, period)
	require.NoError(t, err)
	assert.Equal(t, preview, alloc.Number)
}

func TestPeriodYYMM(t *testing.T) {
	assert.Equal(t, "2501", Period{Year: 2025, Month: time.January}.YYMM())
	assert.Equal(t, "2612", Period{Year: 2026, Month: time.December}.YYMM())
	assert.Equal(t, "0903", Period{Year: 2109, Month: time.March}.YYMM())
}

func TestPeriodOf(t *testing.T) {
	p := PeriodOf(time.Date(2025, time.November, 30, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, Period{Year: 2025, Month: time.November}, p)
	assert.Equal(t, "2511", p.YYMM())
}

func ExampleFormatNumber() {
	fmt.Println(FormatNumber(model.CompanyWT, model.KindInvoice, Period{Year: 2025, Month: time.January}, 3))
	// Output: WT2501INV003
}
