package simvestService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/minvestfinance/simvest-backend/config"
	"github.com/minvestfinance/simvest-backend/data/repository"
	"github.com/minvestfinance/simvest-backend/internal/model"
	"github.com/minvestfinance/simvest-backend/internal/model/fmpModel"
	"github.com/minvestfinance/simvest-backend/internal/service"
	"github.com/minvestfinance/simvest-backend/utils"
	"github.com/shopspring/decimal"
)

type MarketDataApi interface {
	GetQuote(ctx context.Context, ticker string) (decimal.Decimal, error)
	GetQuotes(ctx context.Context, tickers []string) (map[string]fmpModel.Quote, error)
	GetHistoricalPrices(ctx context.Context, ticker string, limit int) (dates []string, closes []float64, err error)
	GetDailyBars(ctx context.Context, ticker, from, to string) ([]fmpModel.DailyBar, error)
}

type Cache interface {
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
	GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error)
	SetQuotes(ctx context.Context, quotes []model.Quote) error
}

type Repository interface {
	GetProfile(ctx context.Context, userID string) (model.StoredProfile, error)
	UpsertPortfolio(ctx context.Context, userID string, state model.PortfolioState) error
	GetStockEntries(ctx context.Context) ([]model.StockEntry, error)
	GetUniverseTickers(ctx context.Context) ([]string, error)
	UpdateStockQuotes(ctx context.Context, quotes []model.Quote) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.PortfolioReport) (fileBytes []byte, fileExtension string, err error)
}

type SimvestService struct {
	cfg       *config.Config
	repo      Repository
	cache     Cache
	fmpApi    MarketDataApi
	reportGen ReportGenerator
}

func New(cfg *config.Config, repo Repository, cache Cache, fmpApi MarketDataApi, reportGen ReportGenerator) *SimvestService {
	return &SimvestService{
		cfg:       cfg,
		repo:      repo,
		cache:     cache,
		fmpApi:    fmpApi,
		reportGen: reportGen,
	}
}

// GetUserMetadata loads a profile and fills in the new-user defaults: 5000
// cash, empty holdings and series, empty progress, points derived from the
// number of completed modules.
func (s *SimvestService) GetUserMetadata(ctx context.Context, userID string) (model.UserMetadata, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SimvestService.GetUserMetadata"

	slog.Debug("GetUserMetadata start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("GetUserMetadata finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.Error("got error from repo.GetProfile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.UserMetadata{}, fmt.Errorf("%w: %v", service.ErrProfileLoadFailed, err)
	}

	meta := model.UserMetadata{
		Cash:     decimal.NewFromFloat(s.cfg.Simvest.StartingCash),
		Holdings: map[string]decimal.Decimal{},
		Series:   []model.ValuationPoint{},
		Progress: map[string]float64{},
	}

	if profile.Cash != nil {
		meta.Cash = *profile.Cash
	}
	if profile.Holdings != nil {
		meta.Holdings = profile.Holdings
	}
	if profile.Series != nil {
		meta.Series = profile.Series
	}
	if profile.Progress != nil {
		meta.Progress = profile.Progress
	}

	if profile.Points != nil {
		meta.Points = *profile.Points
	} else {
		// never-awarded users get credit for what they have completed
		meta.Points = float64(len(meta.Progress)) * s.cfg.Minvest.ArticlePoints
	}

	return meta, nil
}

// SavePortfolio persists cash, holdings and the valuation series.
func (s *SimvestService) SavePortfolio(ctx context.Context, userID string, state model.PortfolioState) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SimvestService.SavePortfolio"

	slog.Debug("SavePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("SavePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	err := s.repo.UpsertPortfolio(ctx, userID, state)
	if err != nil {
		slog.Error("got error from repo.UpsertPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%w: %v", service.ErrProfileSaveFailed, err)
	}

	return nil
}

// ReconcilePortfolio loads the stored snapshot, gap-fills the series if the
// user has been away, revalues at live quotes and appends the now-point.
// The save is best effort: a failure is logged and the fresh snapshot is
// still returned, the next change will try again.
func (s *SimvestService) ReconcilePortfolio(ctx context.Context, userID string, now time.Time) (model.PortfolioState, decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SimvestService.ReconcilePortfolio"

	slog.Debug("ReconcilePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("ReconcilePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	meta, err := s.GetUserMetadata(ctx, userID)
	if err != nil {
		return model.PortfolioState{}, decimal.Decimal{}, err
	}

	state, currentValue, err := s.Reconcile(ctx, meta.PortfolioState(), now)
	if err != nil {
		slog.Error("reconcile failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioState{}, decimal.Decimal{}, err
	}

	state = appendNowPoint(state, now, currentValue)

	if err := s.SavePortfolio(ctx, userID, state); err != nil {
		slog.Error("portfolio save failed after reconcile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return state, currentValue, nil
}

// PlaceOrder applies a buy or sell to the stored snapshot. When the cash
// amount is omitted it is derived from the live quote. Order errors abort
// before anything is persisted.
func (s *SimvestService) PlaceOrder(ctx context.Context, userID string, side model.OrderSide, ticker string, shares, amount decimal.Decimal) (model.PortfolioState, decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SimvestService.PlaceOrder"

	slog.Debug("PlaceOrder start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("PlaceOrder finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("ticker", ticker))
	}()

	meta, err := s.GetUserMetadata(ctx, userID)
	if err != nil {
		return model.PortfolioState{}, decimal.Decimal{}, err
	}

	if amount.IsZero() {
		price, err := s.quotePrice(ctx, ticker)
		if err != nil {
			return model.PortfolioState{}, decimal.Decimal{}, fmt.Errorf("%w: %v", service.ErrMarketDataUnavailable, err)
		}
		amount = price.Mul(shares).Round(moneyPlaces)
	}

	state, err := ApplyOrder(meta.PortfolioState(), side, ticker, shares, amount)
	if err != nil {
		return model.PortfolioState{}, decimal.Decimal{}, err
	}

	invested, err := s.valueHoldings(ctx, state.Holdings)
	if err != nil {
		return model.PortfolioState{}, decimal.Decimal{}, err
	}

	currentValue := state.Cash.Add(invested).Round(moneyPlaces)
	state = appendNowPoint(state, time.Now(), currentValue)

	if err := s.SavePortfolio(ctx, userID, state); err != nil {
		slog.Error("portfolio save failed after order", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return state, currentValue, nil
}

func appendNowPoint(state model.PortfolioState, now time.Time, totalValue decimal.Decimal) model.PortfolioState {
	series := make([]model.ValuationPoint, 0, len(state.Series)+1)
	series = append(series, state.Series...)
	series = append(series, model.ValuationPoint{Timestamp: now, TotalValue: totalValue})
	return model.PortfolioState{Cash: state.Cash, Holdings: state.Holdings, Series: series}
}

// StockAnalysis returns the charting window for a ticker: recent prices,
// both moving averages and the crossover signal.
func (s *SimvestService) StockAnalysis(ctx context.Context, ticker string) (model.StockAnalysis, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SimvestService.StockAnalysis"

	slog.Debug("StockAnalysis start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("StockAnalysis finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	dates, closes, err := s.fmpApi.GetHistoricalPrices(ctx, ticker, s.cfg.Simvest.HistoryBars)
	if err != nil {
		slog.Error("got error from fmpApi.GetHistoricalPrices", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.StockAnalysis{}, fmt.Errorf("%w: %v", service.ErrMarketDataUnavailable, err)
	}

	shortMA := MovingAverage(closes, s.cfg.Simvest.ShortMAWindow)
	longMA := MovingAverage(closes, s.cfg.Simvest.LongMAWindow)

	from := len(closes) - s.cfg.Simvest.ChartBars
	if from < 0 {
		from = 0
	}

	analysis := model.StockAnalysis{
		Ticker:  ticker,
		Dates:   dates[from:],
		Prices:  closes[from:],
		ShortMA: shortMA[from:],
		LongMA:  longMA[from:],
	}

	signal, err := ClassifySignal(analysis.Prices, analysis.ShortMA, analysis.LongMA)
	if err != nil {
		// degrade to neutral, the chart is still useful
		slog.Warn("signal classification degraded", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}
	analysis.Signal = signal

	return analysis, nil
}

// PersonalizedStocks returns the graded universe restricted to the risk
// bucket the user selected during onboarding.
func (s *SimvestService) PersonalizedStocks(ctx context.Context, params model.ScreenerParams) ([]model.StockEntry, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SimvestService.PersonalizedStocks"

	slog.Debug("PersonalizedStocks start", slog.String("rqID", rqID), slog.String("op", op), slog.String("risk", params.RiskLevel))
	defer func() {
		slog.Debug("PersonalizedStocks finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	entries, err := s.repo.GetStockEntries(ctx)
	if err != nil {
		slog.Error("got error from repo.GetStockEntries", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	maxBeta, capped := riskBetaCap(params.RiskLevel)
	if !capped {
		return entries, nil
	}

	filtered := make([]model.StockEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Beta < maxBeta {
			filtered = append(filtered, entry)
		}
	}

	return filtered, nil
}

// riskBetaCap maps an onboarding risk level onto the beta buckets the
// screener table uses (<0.25 very low, <0.75 low, <1.25 medium, <2 high).
// Very high risk and unknown levels are uncapped.
func riskBetaCap(riskLevel string) (float64, bool) {
	switch riskLevel {
	case "very low":
		return 0.25, true
	case "low":
		return 0.75, true
	case "medium":
		return 1.25, true
	case "high":
		return 2, true
	}
	return 0, false
}

// PortfolioReport renders the current holdings into a spreadsheet.
func (s *SimvestService) PortfolioReport(ctx context.Context, userID string) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SimvestService.PortfolioReport"

	slog.Debug("PortfolioReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("PortfolioReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	meta, err := s.GetUserMetadata(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	report := model.PortfolioReport{
		UserID: userID,
		Cash:   meta.Cash,
	}

	total := meta.Cash
	for _, ticker := range sortedTickers(meta.Holdings) {
		price, err := s.quotePrice(ctx, ticker)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", service.ErrMarketDataUnavailable, err)
		}

		qty := meta.Holdings[ticker]
		value := price.Mul(qty).Round(moneyPlaces)
		total = total.Add(value)

		report.Positions = append(report.Positions, model.ReportPosition{
			Ticker:   ticker,
			Quantity: qty,
			Price:    price,
			Value:    value,
		})
	}
	report.TotalValue = total.Round(moneyPlaces)

	return s.reportGen.Generate(ctx, report)
}

// RefreshUniverseQuotes pulls fresh quotes for every ticker in the stock
// universe, updates the screener table and warms the cache. Runs as a
// scheduled job.
func (s *SimvestService) RefreshUniverseQuotes(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SimvestService.RefreshUniverseQuotes"

	slog.Debug("RefreshUniverseQuotes start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshUniverseQuotes finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	tickers, err := s.repo.GetUniverseTickers(ctx)
	if err != nil {
		slog.Error("got error from repo.GetUniverseTickers", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if len(tickers) == 0 {
		return nil
	}

	rawQuotes, err := s.fmpApi.GetQuotes(ctx, tickers)
	if err != nil {
		slog.Error("got error from fmpApi.GetQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	quotes := make([]model.Quote, 0, len(rawQuotes))
	for _, raw := range rawQuotes {
		quotes = append(quotes, model.Quote{
			Ticker: raw.Symbol,
			Price:  decimal.NewFromFloat(raw.Price).Round(moneyPlaces),
			Change: decimal.NewFromFloat(raw.Change).Round(moneyPlaces),
		})
	}

	if err := s.repo.UpdateStockQuotes(ctx, quotes); err != nil {
		return err
	}

	if err := s.cache.SetQuotes(ctx, quotes); err != nil {
		slog.Warn("can't warm quote cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return nil
}

// quotePrice serves a live price from cache when it can, falling back to the
// provider and warming the cache off the request path.
func (s *SimvestService) quotePrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SimvestService.quotePrice"

	quote, err := s.cache.GetQuote(ctx, ticker)
	if err == nil {
		return quote.Price, nil
	}

	slog.Warn("can't get quote from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))

	price, err := s.fmpApi.GetQuote(ctx, ticker)
	if err != nil {
		slog.Error("can't get quote from fmpApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
		return decimal.Decimal{}, err
	}

	go s.cache.SetQuotes(context.WithoutCancel(ctx), []model.Quote{{Ticker: ticker, Price: price}})

	return price, nil
}
