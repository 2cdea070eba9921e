package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/minvestfinance/simvest-backend/config"
	"github.com/minvestfinance/simvest-backend/internal/model"
	"github.com/minvestfinance/simvest-backend/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type stubSimvest struct {
	getUserMetadataFn    func(ctx context.Context, userID string) (model.UserMetadata, error)
	placeOrderFn         func(ctx context.Context, userID string, side model.OrderSide, ticker string, shares, amount decimal.Decimal) (model.PortfolioState, decimal.Decimal, error)
	stockAnalysisFn      func(ctx context.Context, ticker string) (model.StockAnalysis, error)
	personalizedFn       func(ctx context.Context, params model.ScreenerParams) ([]model.StockEntry, error)
	reconcilePortfolioFn func(ctx context.Context, userID string, now time.Time) (model.PortfolioState, decimal.Decimal, error)
}

func (s *stubSimvest) GetUserMetadata(ctx context.Context, userID string) (model.UserMetadata, error) {
	return s.getUserMetadataFn(ctx, userID)
}

func (s *stubSimvest) SavePortfolio(ctx context.Context, userID string, state model.PortfolioState) error {
	return nil
}

func (s *stubSimvest) ReconcilePortfolio(ctx context.Context, userID string, now time.Time) (model.PortfolioState, decimal.Decimal, error) {
	return s.reconcilePortfolioFn(ctx, userID, now)
}

func (s *stubSimvest) PlaceOrder(ctx context.Context, userID string, side model.OrderSide, ticker string, shares, amount decimal.Decimal) (model.PortfolioState, decimal.Decimal, error) {
	return s.placeOrderFn(ctx, userID, side, ticker, shares, amount)
}

func (s *stubSimvest) StockAnalysis(ctx context.Context, ticker string) (model.StockAnalysis, error) {
	return s.stockAnalysisFn(ctx, ticker)
}

func (s *stubSimvest) PersonalizedStocks(ctx context.Context, params model.ScreenerParams) ([]model.StockEntry, error) {
	return s.personalizedFn(ctx, params)
}

func (s *stubSimvest) PortfolioReport(ctx context.Context, userID string) ([]byte, string, error) {
	return []byte("xlsx-bytes"), ".xlsx", nil
}

type stubMinvested struct {
	quizResultFn func(ctx context.Context, userID, module string, selected, answers []string) (map[string]float64, float64, error)
}

func (s *stubMinvested) SaveProgress(ctx context.Context, userID string, progress map[string]float64, points float64) error {
	return nil
}

func (s *stubMinvested) ApplyQuizResult(ctx context.Context, userID, module string, selected, answers []string) (map[string]float64, float64, error) {
	return s.quizResultFn(ctx, userID, module, selected, answers)
}

func (s *stubMinvested) ToggleArticle(ctx context.Context, userID, module string) (map[string]float64, float64, error) {
	return map[string]float64{module: 100}, 25, nil
}

func newTestRouter(simvest *stubSimvest, minvested *stubMinvested) http.Handler {
	cfg := &config.Config{HTTP: config.HTTP{AllowedOrigins: []string{"*"}}}
	return NewRouter(cfg, NewController(simvest, minvested))
}

func TestGetUserMetadata(t *testing.T) {
	simvest := &stubSimvest{
		getUserMetadataFn: func(ctx context.Context, userID string) (model.UserMetadata, error) {
			assert.Equal(t, "u1", userID)
			return model.UserMetadata{
				Cash:     decimal.NewFromInt(5000),
				Holdings: map[string]decimal.Decimal{},
				Series:   []model.ValuationPoint{},
				Progress: map[string]float64{},
			}, nil
		},
	}

	router := newTestRouter(simvest, &stubMinvested{})

	req := httptest.NewRequest(http.MethodPost, "/get-user-metadata", strings.NewReader(`{"userId":"u1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "userMetadata")
}

func TestGetUserMetadata_BadBody(t *testing.T) {
	router := newTestRouter(&stubSimvest{}, &stubMinvested{})

	req := httptest.NewRequest(http.MethodPost, "/get-user-metadata", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrder_InsufficientFundsMapsTo422(t *testing.T) {
	simvest := &stubSimvest{
		placeOrderFn: func(ctx context.Context, userID string, side model.OrderSide, ticker string, shares, amount decimal.Decimal) (model.PortfolioState, decimal.Decimal, error) {
			return model.PortfolioState{}, decimal.Decimal{}, service.ErrInsufficientFunds
		},
	}

	router := newTestRouter(simvest, &stubMinvested{})

	body := `{"userId":"u1","side":"buy","ticker":"AAPL","shares":"5","amount":"500"}`
	req := httptest.NewRequest(http.MethodPost, "/simvest/order", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStockAnalysis_MarketDataErrorMapsTo502(t *testing.T) {
	simvest := &stubSimvest{
		stockAnalysisFn: func(ctx context.Context, ticker string) (model.StockAnalysis, error) {
			return model.StockAnalysis{}, service.ErrMarketDataUnavailable
		},
	}

	router := newTestRouter(simvest, &stubMinvested{})

	req := httptest.NewRequest(http.MethodGet, "/simvest/analysis/AAPL", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPersonalizedStocks_QueryParams(t *testing.T) {
	simvest := &stubSimvest{
		personalizedFn: func(ctx context.Context, params model.ScreenerParams) ([]model.StockEntry, error) {
			assert.Equal(t, "medium", params.RiskLevel)
			assert.Equal(t, 12, params.DurationMonths)
			assert.Equal(t, "1000", params.InitialInvestment.String())
			return []model.StockEntry{{Ticker: "AAPL"}}, nil
		},
	}

	router := newTestRouter(simvest, &stubMinvested{})

	req := httptest.NewRequest(http.MethodGet, "/personalized-data?initialInvestment=1000&finalInvestment=2000&time=12&risk=medium", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuizResult(t *testing.T) {
	minvested := &stubMinvested{
		quizResultFn: func(ctx context.Context, userID, module string, selected, answers []string) (map[string]float64, float64, error) {
			assert.Equal(t, "u1", userID)
			assert.Equal(t, "stocks-101", module)
			return map[string]float64{module: 50}, 50, nil
		},
	}

	router := newTestRouter(&stubSimvest{}, minvested)

	body := `{"userId":"u1","module":"stocks-101","selected":["a","x"],"answers":["a","b"]}`
	req := httptest.NewRequest(http.MethodPost, "/minvested/quiz-result", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp progressResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(50), resp.Points)
}

func TestPortfolioReport_Download(t *testing.T) {
	router := newTestRouter(&stubSimvest{}, &stubMinvested{})

	req := httptest.NewRequest(http.MethodGet, "/simvest/report/u1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.Equal(t, "xlsx-bytes", rec.Body.String())
}

func TestReconcilePortfolio(t *testing.T) {
	simvest := &stubSimvest{
		reconcilePortfolioFn: func(ctx context.Context, userID string, now time.Time) (model.PortfolioState, decimal.Decimal, error) {
			return model.PortfolioState{
				Cash:     decimal.NewFromInt(1000),
				Holdings: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(2)},
			}, decimal.NewFromInt(1300), nil
		},
	}

	router := newTestRouter(simvest, &stubMinvested{})

	req := httptest.NewRequest(http.MethodPost, "/simvest/reconcile", strings.NewReader(`{"userId":"u1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "currentValue")
	assert.Contains(t, resp, "userCash")
}
