// Package report computes sales summaries: filtered totals, monthly
// buckets, product rankings, and period-over-period comparisons. All
// monetary arithmetic stays in decimals until the response is rendered.
package report

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercurio-pos/api/internal/domain"
	"github.com/mercurio-pos/api/internal/settlement"
)

var oneHundred = decimal.NewFromInt(100)

// MonthBucket aggregates the sales of one calendar month. Month is the
// bucket key in YYYY-MM form.
type MonthBucket struct {
	Month            string          `json:"month"`
	TotalSales       decimal.Decimal `json:"totalSales"`
	TotalProfit      decimal.Decimal `json:"totalProfit"`
	TransactionCount int             `json:"transactionCount"`
	ProfitMargin     decimal.Decimal `json:"profitMargin"`
}

// ProductRank is one row of the top-products table, ordered by revenue.
type ProductRank struct {
	ProductID    uuid.UUID       `json:"productId"`
	ProductName  string          `json:"productName"`
	QuantitySold int64           `json:"quantitySold"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalProfit  decimal.Decimal `json:"totalProfit"`
}

// PeriodComparison contrasts the filtered window with the immediately
// preceding window of equal length.
type PeriodComparison struct {
	PreviousTotalSales       decimal.Decimal `json:"previousTotalSales"`
	PreviousTotalProfit      decimal.Decimal `json:"previousTotalProfit"`
	PreviousTransactionCount int             `json:"previousTransactionCount"`
	SalesGrowthPct           decimal.Decimal `json:"salesGrowthPct"`
	ProfitGrowthPct          decimal.Decimal `json:"profitGrowthPct"`
}

// Extreme is a best-ever day or month, keyed by its formatted date.
type Extreme struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
}

// Result is a full aggregation run. FilteredSales carries the matching
// sales so the caller can render the transaction list without a second
// pass; BestDay and BestMonth always span the full history regardless of
// the filter window.
type Result struct {
	TotalSales         decimal.Decimal  `json:"totalSales"`
	TotalProfit        decimal.Decimal  `json:"totalProfit"`
	TotalCost          decimal.Decimal  `json:"totalCost"`
	TotalDiscounts     decimal.Decimal  `json:"totalDiscounts"`
	TransactionCount   int              `json:"transactionCount"`
	AverageTransaction decimal.Decimal  `json:"averageTransaction"`
	ProfitMargin       decimal.Decimal  `json:"profitMargin"`
	FilteredSales      []domain.Sale    `json:"filteredSales"`
	HistoricalData     []MonthBucket    `json:"historicalData"`
	TopProducts        []ProductRank    `json:"topProducts"`
	PeriodComparison   PeriodComparison `json:"periodComparison"`
	BestDay            Extreme          `json:"bestDay"`
	BestMonth          Extreme          `json:"bestMonth"`
}

// Aggregate runs the full pipeline over sales: resolve the filter window,
// select matching sales, and derive every summary in one pass structure.
// Zero-revenue sales (layaway deliveries, pure courtesy) count toward
// transaction totals but never enter a margin denominator.
func Aggregate(sales []domain.Sale, f Filter, now time.Time, loc *time.Location) (Result, error) {
	start, end, err := resolveWindow(f, now, loc)
	if err != nil {
		return Result{}, err
	}

	var res Result
	res.FilteredSales = make([]domain.Sale, 0)
	var marginBase decimal.Decimal

	for _, s := range sales {
		if !matches(s, f, start, end, loc) {
			continue
		}
		res.FilteredSales = append(res.FilteredSales, s)
		res.TotalSales = res.TotalSales.Add(s.Total)
		res.TotalProfit = res.TotalProfit.Add(settlement.EffectiveProfit(s))
		res.TotalCost = res.TotalCost.Add(settlement.EffectiveCost(s))
		res.TotalDiscounts = res.TotalDiscounts.Add(s.Discount)
		if s.Total.IsPositive() {
			marginBase = marginBase.Add(s.Total)
		}
	}

	sort.Slice(res.FilteredSales, func(i, j int) bool {
		return res.FilteredSales[i].CreatedAt.After(res.FilteredSales[j].CreatedAt)
	})

	res.TransactionCount = len(res.FilteredSales)
	if res.TransactionCount > 0 {
		res.AverageTransaction = res.TotalSales.DivRound(decimal.NewFromInt(int64(res.TransactionCount)), 2)
	}
	if marginBase.IsPositive() {
		res.ProfitMargin = res.TotalProfit.Mul(oneHundred).DivRound(marginBase, 4)
	}

	res.HistoricalData = bucketByMonth(res.FilteredSales, loc)
	res.TopProducts = rankProducts(res.FilteredSales)
	res.PeriodComparison = comparePeriods(sales, f, start, end, loc, res)
	res.BestDay, res.BestMonth = allTimeExtremes(sales, loc)

	return res, nil
}

func bucketByMonth(sales []domain.Sale, loc *time.Location) []MonthBucket {
	byMonth := make(map[string]*MonthBucket)
	base := make(map[string]decimal.Decimal)

	for _, s := range sales {
		key := s.CreatedAt.In(loc).Format("2006-01")
		b, ok := byMonth[key]
		if !ok {
			b = &MonthBucket{Month: key}
			byMonth[key] = b
		}
		b.TotalSales = b.TotalSales.Add(s.Total)
		b.TotalProfit = b.TotalProfit.Add(settlement.EffectiveProfit(s))
		b.TransactionCount++
		if s.Total.IsPositive() {
			base[key] = base[key].Add(s.Total)
		}
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]MonthBucket, 0, len(keys))
	for _, k := range keys {
		b := byMonth[k]
		if base[k].IsPositive() {
			b.ProfitMargin = b.TotalProfit.Mul(oneHundred).DivRound(base[k], 4)
		}
		out = append(out, *b)
	}
	return out
}

func rankProducts(sales []domain.Sale) []ProductRank {
	byProduct := make(map[uuid.UUID]*ProductRank)

	for _, s := range sales {
		for _, it := range s.Items {
			r, ok := byProduct[it.ProductID]
			if !ok {
				r = &ProductRank{ProductID: it.ProductID, ProductName: it.ProductName}
				byProduct[it.ProductID] = r
			}
			r.QuantitySold += int64(it.Quantity)
			r.TotalRevenue = r.TotalRevenue.Add(it.TotalRevenue())
			r.TotalProfit = r.TotalProfit.Add(it.Profit())
		}
	}

	out := make([]ProductRank, 0, len(byProduct))
	for _, r := range byProduct {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalRevenue.Equal(out[j].TotalRevenue) {
			return out[i].TotalRevenue.GreaterThan(out[j].TotalRevenue)
		}
		return out[i].ProductName < out[j].ProductName
	})
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// comparePeriods re-runs the selection over the window immediately before
// [start, end), keeping the same structural and text criteria.
func comparePeriods(sales []domain.Sale, f Filter, start, end time.Time, loc *time.Location, cur Result) PeriodComparison {
	span := end.Sub(start)
	prevStart := start.Add(-span)

	var c PeriodComparison
	for _, s := range sales {
		if !matches(s, f, prevStart, start, loc) {
			continue
		}
		c.PreviousTotalSales = c.PreviousTotalSales.Add(s.Total)
		c.PreviousTotalProfit = c.PreviousTotalProfit.Add(settlement.EffectiveProfit(s))
		c.PreviousTransactionCount++
	}

	if c.PreviousTotalSales.IsPositive() {
		c.SalesGrowthPct = cur.TotalSales.Sub(c.PreviousTotalSales).
			Mul(oneHundred).DivRound(c.PreviousTotalSales, 4)
	}
	if c.PreviousTotalProfit.IsPositive() {
		c.ProfitGrowthPct = cur.TotalProfit.Sub(c.PreviousTotalProfit).
			Mul(oneHundred).DivRound(c.PreviousTotalProfit, 4)
	}
	return c
}

// allTimeExtremes scans the full history, not the filtered window.
func allTimeExtremes(sales []domain.Sale, loc *time.Location) (Extreme, Extreme) {
	days := make(map[string]decimal.Decimal)
	months := make(map[string]decimal.Decimal)

	for _, s := range sales {
		local := s.CreatedAt.In(loc)
		dayKey := local.Format("2006-01-02")
		monthKey := local.Format("2006-01")
		days[dayKey] = days[dayKey].Add(s.Total)
		months[monthKey] = months[monthKey].Add(s.Total)
	}

	return maxExtreme(days), maxExtreme(months)
}

func maxExtreme(totals map[string]decimal.Decimal) Extreme {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var best Extreme
	for _, k := range keys {
		if best.Key == "" || totals[k].GreaterThan(best.Total) {
			best = Extreme{Key: k, Total: totals[k]}
		}
	}
	return best
}
