package simvestService

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/minvestfinance/simvest-backend/internal/model"
	"github.com/minvestfinance/simvest-backend/internal/service"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Rounding discipline: money to 2 places, share quantities to 3, after every
// arithmetic step.
const (
	moneyPlaces = 2
	sharePlaces = 3
)

// MovingAverage returns the trailing average over a window clipped at the
// start of the series, so the result has the same length as the input.
func MovingAverage(series []float64, windowSize int) []float64 {
	result := make([]float64, 0, len(series))
	for i := range series {
		start := i - windowSize + 1
		if start < 0 {
			start = 0
		}
		sum := 0.0
		for _, v := range series[start : i+1] {
			sum += v
		}
		result = append(result, sum/float64(i+1-start))
	}
	return result
}

// ClassifySignal scans three equal-length chronological series (oldest first)
// for a moving-average crossover. The first qualifying crossing decides the
// outcome; its polarity only counts when the initial short/long ordering
// confirms it, otherwise the cross is reported neutral. Ties never cross.
func ClassifySignal(prices, shortMA, longMA []float64) (model.Signal, error) {
	if len(prices) != len(shortMA) || len(prices) != len(longMA) {
		return model.SignalNeutral, service.ErrSignalLengthMismatch
	}

	for i := 0; i < len(prices)-1; i++ {
		price := prices[i]

		// price moves from above an average to at-or-below it the next day
		if (price > shortMA[i] && prices[i+1] <= shortMA[i+1]) ||
			(price > longMA[i] && prices[i+1] <= longMA[i+1]) {
			if shortMA[0] > longMA[0] {
				return model.SignalBullish, nil
			}
			return model.SignalNeutral, nil
		}

		if (price < shortMA[i] && prices[i+1] >= shortMA[i+1]) ||
			(price < longMA[i] && prices[i+1] >= longMA[i+1]) {
			if shortMA[0] < longMA[0] {
				return model.SignalBearish, nil
			}
			return model.SignalNeutral, nil
		}
	}

	return model.SignalNeutral, nil
}

// ApplyOrder is a pure reducer: it returns a fresh snapshot and never touches
// the input state, so a failed order leaves everything as it was. A holding
// is removed the moment its quantity hits exactly zero.
func ApplyOrder(state model.PortfolioState, side model.OrderSide, ticker string, shareQty, cashDelta decimal.Decimal) (model.PortfolioState, error) {
	switch side {
	case model.OrderBuy:
		if cashDelta.GreaterThan(state.Cash) || !shareQty.IsPositive() || cashDelta.IsNegative() {
			return state, service.ErrInsufficientFunds
		}

		holdings := state.CloneHoldings()
		holdings[ticker] = holdings[ticker].Add(shareQty).Round(sharePlaces)

		return model.PortfolioState{
			Cash:     state.Cash.Sub(cashDelta).Round(moneyPlaces),
			Holdings: holdings,
			Series:   state.Series,
		}, nil

	case model.OrderSell:
		held, ok := state.Holdings[ticker]
		if !ok || held.LessThan(shareQty) || !shareQty.IsPositive() || cashDelta.IsNegative() {
			return state, service.ErrInsufficientShares
		}

		holdings := state.CloneHoldings()
		remaining := held.Sub(shareQty).Round(sharePlaces)
		if remaining.IsZero() {
			delete(holdings, ticker)
		} else {
			holdings[ticker] = remaining
		}

		return model.PortfolioState{
			Cash:     state.Cash.Add(cashDelta).Round(moneyPlaces),
			Holdings: holdings,
			Series:   state.Series,
		}, nil
	}

	return state, fmt.Errorf("unknown order side %q", side)
}

func sortedTickers(holdings map[string]decimal.Decimal) []string {
	tickers := make([]string, 0, len(holdings))
	for ticker := range holdings {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}

// barDay strips a possible time component off a provider bar date.
func barDay(barDate string) string {
	day, _, _ := strings.Cut(barDate, " ")
	return day
}

func parseBarDate(barDate string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, barDay(barDate), time.UTC)
}

// gapFill synthesizes one value point per trading day strictly after
// prevDate. The first ticker's series defines the day axis; every other
// ticker contributes to the days it actually traded on (date-keyed, so a
// ticker with divergent coverage cannot shift the whole series). Each
// synthesized value is cash plus the sum of quantity times that day's close.
func (s *SimvestService) gapFill(ctx context.Context, state model.PortfolioState, prevDate, today string) ([]model.ValuationPoint, error) {
	tickers := sortedTickers(state.Holdings)

	points := make([]model.ValuationPoint, 0)
	index := make(map[string]int)

	for i, ticker := range tickers {
		bars, err := s.fmpApi.GetDailyBars(ctx, ticker, prevDate, today)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrMarketDataUnavailable, err)
		}

		qty := state.Holdings[ticker]

		for _, bar := range bars {
			day := barDay(bar.Date)
			if day <= prevDate {
				continue // already covered by the stored series
			}

			closePrice := decimal.NewFromFloat(bar.Close)

			if i == 0 {
				ts, err := parseBarDate(bar.Date)
				if err != nil {
					return nil, fmt.Errorf("%w: bad bar date %q", service.ErrMarketDataUnavailable, bar.Date)
				}
				index[day] = len(points)
				points = append(points, model.ValuationPoint{
					Timestamp:  ts,
					TotalValue: state.Cash.Add(closePrice.Mul(qty)),
				})
				continue
			}

			if j, ok := index[day]; ok {
				points[j].TotalValue = points[j].TotalValue.Add(closePrice.Mul(qty))
			}
		}
	}

	return points, nil
}

// Reconcile brings a possibly stale portfolio snapshot up to date: when the
// last stored point is older than the freshness threshold it synthesizes the
// missing daily points, then revalues the holdings at live quotes. The
// returned current value includes cash. Any provider failure surfaces as
// ErrMarketDataUnavailable; nothing is retried here.
func (s *SimvestService) Reconcile(ctx context.Context, state model.PortfolioState, now time.Time) (model.PortfolioState, decimal.Decimal, error) {
	if len(state.Series) > 0 && len(state.Holdings) > 0 {
		last := state.Series[len(state.Series)-1]

		if now.Sub(last.Timestamp) > s.cfg.Simvest.GapFillThreshold {
			prevDate := last.Timestamp.UTC().Format(dateLayout)
			today := now.UTC().Format(dateLayout)

			points, err := s.gapFill(ctx, state, prevDate, today)
			if err != nil {
				return state, decimal.Decimal{}, err
			}

			series := make([]model.ValuationPoint, 0, len(state.Series)+len(points))
			series = append(series, state.Series...)
			series = append(series, points...)

			state = model.PortfolioState{Cash: state.Cash, Holdings: state.Holdings, Series: series}
		}
	}

	invested, err := s.valueHoldings(ctx, state.Holdings)
	if err != nil {
		return state, decimal.Decimal{}, err
	}

	currentValue := state.Cash.Add(invested).Round(moneyPlaces)

	return state, currentValue, nil
}

// valueHoldings prices every holding at its live quote. A full cache hit
// prices the whole portfolio in one round trip, otherwise tickers are
// fetched one by one.
func (s *SimvestService) valueHoldings(ctx context.Context, holdings map[string]decimal.Decimal) (decimal.Decimal, error) {
	if len(holdings) == 0 {
		return decimal.Decimal{}, nil
	}

	tickers := sortedTickers(holdings)
	value := decimal.Decimal{}

	if cached, err := s.cache.GetQuotes(ctx, tickers); err == nil {
		for _, ticker := range tickers {
			value = value.Add(cached[ticker].Price.Mul(holdings[ticker]))
		}
		return value.Round(moneyPlaces), nil
	}

	for _, ticker := range tickers {
		price, err := s.quotePrice(ctx, ticker)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%w: %v", service.ErrMarketDataUnavailable, err)
		}
		value = value.Add(price.Mul(holdings[ticker]))
	}

	return value.Round(moneyPlaces), nil
}
