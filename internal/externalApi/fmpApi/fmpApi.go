package fmpApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/minvestfinance/simvest-backend/config"
	"github.com/minvestfinance/simvest-backend/internal/externalApi"
	"github.com/minvestfinance/simvest-backend/internal/model/fmpModel"
	"github.com/minvestfinance/simvest-backend/utils"
	"github.com/shopspring/decimal"
)

// FmpApi talks to the FinancialModelingPrep REST API.
type FmpApi struct {
	client *resty.Client
	apiKey string
}

func New(cfg *config.Config) *FmpApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.Fmp.Url)
	return &FmpApi{client: client, apiKey: cfg.API.Fmp.ApiKey}
}

// GetQuote returns the current price for a single ticker.
func (a *FmpApi) GetQuote(ctx context.Context, ticker string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/api/v3/quote-short/%s", ticker)

	slog.Debug("start FmpApi.GetQuote request", slog.String("rqID", rqID), slog.String("ticker", ticker))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("apikey", a.apiKey).
		Get(url)

	if err != nil {
		slog.Error("error while dialing FmpApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return decimal.Decimal{}, err
	}

	quotes := make([]fmpModel.QuoteShort, 0, 1)
	err = json.Unmarshal(resp.Body(), &quotes)
	if err != nil {
		slog.Error("can't unmarshall response into []fmpModel.QuoteShort", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return decimal.Decimal{}, err
	}

	if len(quotes) == 0 {
		return decimal.Decimal{}, externalApi.ErrNotFound
	}

	slog.Debug("FmpApi.GetQuote request complete", slog.String("rqID", rqID))

	return decimal.NewFromFloat(quotes[0].Price), nil
}

// GetQuotes returns price and day change for a batch of tickers.
func (a *FmpApi) GetQuotes(ctx context.Context, tickers []string) (map[string]fmpModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/api/v3/quote/%s", strings.Join(tickers, ","))

	slog.Debug("start FmpApi.GetQuotes request", slog.String("rqID", rqID), slog.Int("tickers", len(tickers)))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("apikey", a.apiKey).
		Get(url)

	if err != nil {
		slog.Error("error while dialing FmpApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	quotes := make([]fmpModel.Quote, 0, len(tickers))
	err = json.Unmarshal(resp.Body(), &quotes)
	if err != nil {
		slog.Error("can't unmarshall response into []fmpModel.Quote", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	res := make(map[string]fmpModel.Quote, len(quotes))
	for _, q := range quotes {
		res[q.Symbol] = q
	}

	slog.Debug("FmpApi.GetQuotes request complete", slog.String("rqID", rqID))

	return res, nil
}

// GetHistoricalPrices returns up to limit daily adjusted closes with their
// dates, oldest first. The provider sends bars newest first; they are
// reversed here so callers always see chronological order.
func (a *FmpApi) GetHistoricalPrices(ctx context.Context, ticker string, limit int) (dates []string, closes []float64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/api/v3/historical-price-full/%s", ticker)

	slog.Debug("start FmpApi.GetHistoricalPrices request", slog.String("rqID", rqID), slog.String("ticker", ticker))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("apikey", a.apiKey).
		Get(url)

	if err != nil {
		slog.Error("error while dialing FmpApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, nil, err
	}

	raw := fmpModel.HistoricalPriceFull{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshall response into fmpModel.HistoricalPriceFull", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, nil, err
	}

	if len(raw.Historical) == 0 {
		return nil, nil, externalApi.ErrNotFound
	}

	if limit > 0 && len(raw.Historical) > limit {
		raw.Historical = raw.Historical[:limit]
	}

	dates = make([]string, 0, len(raw.Historical))
	closes = make([]float64, 0, len(raw.Historical))
	for i := len(raw.Historical) - 1; i >= 0; i-- {
		dates = append(dates, raw.Historical[i].Date)
		closes = append(closes, raw.Historical[i].AdjClose)
	}

	slog.Debug("FmpApi.GetHistoricalPrices request complete", slog.String("rqID", rqID), slog.Int("bars", len(closes)))

	return dates, closes, nil
}

// GetDailyBars returns daily close bars for [from, to] (YYYY-MM-DD),
// oldest first.
func (a *FmpApi) GetDailyBars(ctx context.Context, ticker, from, to string) ([]fmpModel.DailyBar, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/api/v3/historical-chart/1day/%s", ticker)

	slog.Debug("start FmpApi.GetDailyBars request", slog.String("rqID", rqID), slog.String("ticker", ticker), slog.String("from", from), slog.String("to", to))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"from":   from,
			"to":     to,
			"apikey": a.apiKey,
		}).
		Get(url)

	if err != nil {
		slog.Error("error while dialing FmpApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	bars := make([]fmpModel.DailyBar, 0)
	err = json.Unmarshal(resp.Body(), &bars)
	if err != nil {
		slog.Error("can't unmarshall response into []fmpModel.DailyBar", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	// provider sends newest first
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	slog.Debug("FmpApi.GetDailyBars request complete", slog.String("rqID", rqID), slog.Int("bars", len(bars)))

	return bars, nil
}
