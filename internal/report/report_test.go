package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercurio-pos/api/internal/domain"
	"github.com/mercurio-pos/api/internal/enum"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func assertEq(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

var (
	ringID  = uuid.New()
	chainID = uuid.New()
)

// history spans three months: a December sale outside the test window,
// two regular sales in January and February, and a zero-revenue layaway
// delivery in February that carries a courtesy gift.
func fixtureSales() []domain.Sale {
	realProfit := dec("-8000")
	realCost := dec("8000")

	return []domain.Sale{
		{
			ID:   uuid.New(),
			Type: enum.SaleTypeRegular,
			Items: []domain.LineItem{
				{ProductID: ringID, ProductName: "Anillo Oro", Quantity: 2, UnitCost: dec("30000"), UnitPrice: dec("50000")},
			},
			Payments:    []domain.PaymentEntry{{Instrument: enum.InstrumentCash, Amount: dec("100000")}},
			Total:       dec("100000"),
			TotalProfit: dec("40000"),
			CreatedAt:   time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:   uuid.New(),
			Type: enum.SaleTypeRegular,
			Items: []domain.LineItem{
				{ProductID: chainID, ProductName: "Cadena Plata", Quantity: 1, UnitCost: dec("40000"), UnitPrice: dec("50000")},
			},
			Payments:    []domain.PaymentEntry{{Instrument: enum.InstrumentCard, Amount: dec("50000")}},
			Total:       dec("50000"),
			TotalProfit: dec("10000"),
			CreatedAt:   time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC),
		},
		{
			ID:   uuid.New(),
			Type: enum.SaleTypeLayawayDelivery,
			CourtesyItems: []domain.CourtesyItem{
				{ProductID: uuid.New(), ProductName: "Estuche", Quantity: 1, TotalValue: dec("8000"), TotalCost: dec("8000")},
			},
			Total:         decimal.Zero,
			TotalProfit:   decimal.Zero,
			RealProfit:    &realProfit,
			RealTotalCost: &realCost,
			CreatedAt:     time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:          uuid.New(),
			Type:        enum.SaleTypeRegular,
			Payments:    []domain.PaymentEntry{{Instrument: enum.InstrumentTransfer, Amount: dec("75000")}},
			Total:       dec("75000"),
			TotalProfit: dec("25000"),
			CreatedAt:   time.Date(2025, 12, 20, 12, 0, 0, 0, time.UTC),
		},
	}
}

func janFebFilter() Filter {
	return Filter{
		Range: enum.RangeCustom,
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestAggregate_TotalsAndMargin(t *testing.T) {
	res, err := Aggregate(fixtureSales(), janFebFilter(), testNow, time.UTC)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if res.TransactionCount != 3 {
		t.Fatalf("TransactionCount = %d, want 3", res.TransactionCount)
	}
	assertEq(t, "TotalSales", res.TotalSales, dec("150000"))
	// courtesy on the delivery pulls total profit down by 8000
	assertEq(t, "TotalProfit", res.TotalProfit, dec("42000"))
	assertEq(t, "AverageTransaction", res.AverageTransaction, dec("50000"))
	assertEq(t, "ProfitMargin", res.ProfitMargin, dec("28"))
}

func TestAggregate_MonthlyBuckets(t *testing.T) {
	res, err := Aggregate(fixtureSales(), janFebFilter(), testNow, time.UTC)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if len(res.HistoricalData) != 2 {
		t.Fatalf("buckets = %d, want 2", len(res.HistoricalData))
	}
	jan, feb := res.HistoricalData[0], res.HistoricalData[1]
	if jan.Month != "2026-01" || feb.Month != "2026-02" {
		t.Fatalf("bucket keys = %s, %s", jan.Month, feb.Month)
	}
	assertEq(t, "jan.TotalSales", jan.TotalSales, dec("100000"))
	if feb.TransactionCount != 2 {
		t.Fatalf("feb.TransactionCount = %d, want 2", feb.TransactionCount)
	}
	// zero-revenue delivery counts as a transaction but stays out of the
	// margin denominator: 2000 / 50000
	assertEq(t, "feb.TotalProfit", feb.TotalProfit, dec("2000"))
	assertEq(t, "feb.ProfitMargin", feb.ProfitMargin, dec("4"))
}

func TestAggregate_TopProducts(t *testing.T) {
	res, err := Aggregate(fixtureSales(), janFebFilter(), testNow, time.UTC)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if len(res.TopProducts) != 2 {
		t.Fatalf("TopProducts = %d, want 2", len(res.TopProducts))
	}
	if res.TopProducts[0].ProductName != "Anillo Oro" {
		t.Fatalf("top product = %s, want Anillo Oro", res.TopProducts[0].ProductName)
	}
	assertEq(t, "top revenue", res.TopProducts[0].TotalRevenue, dec("100000"))
	if res.TopProducts[0].QuantitySold != 2 {
		t.Fatalf("QuantitySold = %d, want 2", res.TopProducts[0].QuantitySold)
	}
}

func TestAggregate_PeriodComparison(t *testing.T) {
	res, err := Aggregate(fixtureSales(), janFebFilter(), testNow, time.UTC)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	c := res.PeriodComparison
	if c.PreviousTransactionCount != 1 {
		t.Fatalf("PreviousTransactionCount = %d, want 1", c.PreviousTransactionCount)
	}
	assertEq(t, "PreviousTotalSales", c.PreviousTotalSales, dec("75000"))
	assertEq(t, "SalesGrowthPct", c.SalesGrowthPct, dec("100"))
	assertEq(t, "ProfitGrowthPct", c.ProfitGrowthPct, dec("68"))
}

func TestAggregate_AllTimeExtremes(t *testing.T) {
	// narrow window; extremes still scan the full history
	f := Filter{
		Range: enum.RangeCustom,
		Start: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	res, err := Aggregate(fixtureSales(), f, testNow, time.UTC)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if res.BestDay.Key != "2026-01-15" {
		t.Fatalf("BestDay = %s, want 2026-01-15", res.BestDay.Key)
	}
	assertEq(t, "BestDay.Total", res.BestDay.Total, dec("100000"))
	if res.BestMonth.Key != "2026-01" {
		t.Fatalf("BestMonth = %s, want 2026-01", res.BestMonth.Key)
	}
}

func TestAggregate_FreeTextSearch(t *testing.T) {
	cases := []struct {
		name   string
		search string
		want   int
	}{
		{"product name", "cadena", 1},
		{"localized date", "15/01/2026", 1},
		{"no match", "reloj", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := janFebFilter()
			f.Search = tc.search
			res, err := Aggregate(fixtureSales(), f, testNow, time.UTC)
			if err != nil {
				t.Fatalf("Aggregate: %v", err)
			}
			if res.TransactionCount != tc.want {
				t.Fatalf("TransactionCount = %d, want %d", res.TransactionCount, tc.want)
			}
		})
	}
}

func TestAggregate_SaleIDSearch(t *testing.T) {
	sales := fixtureSales()
	f := janFebFilter()
	f.Search = sales[1].ID.String()[:8]
	res, err := Aggregate(sales, f, testNow, time.UTC)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.TransactionCount != 1 {
		t.Fatalf("TransactionCount = %d, want 1", res.TransactionCount)
	}
	if res.FilteredSales[0].ID != sales[1].ID {
		t.Fatalf("matched the wrong sale")
	}
}

func TestAggregate_InstrumentFilter(t *testing.T) {
	f := janFebFilter()
	f.Instrument = enum.InstrumentCard
	res, err := Aggregate(fixtureSales(), f, testNow, time.UTC)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.TransactionCount != 1 {
		t.Fatalf("TransactionCount = %d, want 1", res.TransactionCount)
	}
	assertEq(t, "TotalSales", res.TotalSales, dec("50000"))
}

func TestAggregate_EmptyHistory(t *testing.T) {
	res, err := Aggregate(nil, janFebFilter(), testNow, time.UTC)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.TransactionCount != 0 {
		t.Fatalf("TransactionCount = %d, want 0", res.TransactionCount)
	}
	assertEq(t, "ProfitMargin", res.ProfitMargin, decimal.Zero)
	assertEq(t, "AverageTransaction", res.AverageTransaction, decimal.Zero)
}

func TestResolveWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)

	start, end, err := resolveWindow(Filter{Range: enum.RangeToday}, now, time.UTC)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if !start.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("today start = %s", start)
	}
	if !end.Equal(time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("today end = %s", end)
	}

	start, _, err = resolveWindow(Filter{Range: enum.RangeWeek}, now, time.UTC)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if !start.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("week start = %s", start)
	}

	if _, _, err := resolveWindow(Filter{Range: "fortnight"}, now, time.UTC); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("unknown range err = %v", err)
	}
	if _, _, err := resolveWindow(Filter{Range: enum.RangeCustom}, now, time.UTC); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("custom without bounds err = %v", err)
	}
}

func TestToInstant(t *testing.T) {
	want := time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)

	got, err := ToInstant("2026-02-10T15:00:00Z")
	if err != nil || !got.Equal(want) {
		t.Fatalf("rfc3339 = %s, %v", got, err)
	}

	got, err = ToInstant("2026-02-10")
	if err != nil || !got.Equal(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date-only = %s, %v", got, err)
	}

	got, err = ToInstant(float64(want.Unix()))
	if err != nil || !got.Equal(want) {
		t.Fatalf("epoch float = %s, %v", got, err)
	}

	got, err = ToInstant(map[string]any{"seconds": float64(want.Unix())})
	if err != nil || !got.Equal(want) {
		t.Fatalf("seconds object = %s, %v", got, err)
	}

	if _, err := ToInstant("next tuesday"); err == nil {
		t.Fatal("expected error for junk string")
	}
	if _, err := ToInstant(struct{}{}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

type gatedSource struct {
	mu    sync.Mutex
	calls int
	gates []chan struct{}
	sales []domain.Sale
	err   error
}

func (g *gatedSource) ListSales(ctx context.Context) ([]domain.Sale, error) {
	g.mu.Lock()
	i := g.calls
	g.calls++
	g.mu.Unlock()
	if i < len(g.gates) {
		<-g.gates[i]
	}
	return g.sales, g.err
}

func (g *gatedSource) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func waitForCalls(t *testing.T, g *gatedSource, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for g.callCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d fetches", n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunner_LastRequestWins(t *testing.T) {
	src := &gatedSource{
		gates: []chan struct{}{make(chan struct{}), make(chan struct{})},
		sales: fixtureSales(),
	}
	r := NewRunner(src, time.UTC, func() time.Time { return testNow })

	type outcome struct {
		res Result
		err error
	}
	first := make(chan outcome, 1)
	second := make(chan outcome, 1)

	go func() {
		res, err := r.Run(context.Background(), janFebFilter())
		first <- outcome{res, err}
	}()
	waitForCalls(t, src, 1)

	go func() {
		res, err := r.Run(context.Background(), janFebFilter())
		second <- outcome{res, err}
	}()
	waitForCalls(t, src, 2)

	// newer request finishes first, then the slow one catches up
	close(src.gates[1])
	got2 := <-second
	if got2.err != nil {
		t.Fatalf("second run: %v", got2.err)
	}

	close(src.gates[0])
	got1 := <-first
	if !errors.Is(got1.err, ErrStale) {
		t.Fatalf("first run err = %v, want ErrStale", got1.err)
	}

	latest, ok := r.Latest()
	if !ok {
		t.Fatal("no published result")
	}
	if latest.TransactionCount != got2.res.TransactionCount {
		t.Fatalf("latest does not match winner")
	}
}

func TestRunner_SourceError(t *testing.T) {
	wantErr := errors.New("store unavailable")
	r := NewRunner(&gatedSource{err: wantErr}, time.UTC, nil)

	if _, err := r.Run(context.Background(), janFebFilter()); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if _, ok := r.Latest(); ok {
		t.Fatal("failed run must not publish a result")
	}
}
