package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/minvestfinance/simvest-backend/internal/model"
	"github.com/minvestfinance/simvest-backend/internal/service"
	"github.com/minvestfinance/simvest-backend/utils"
	"github.com/shopspring/decimal"
)

type SimvestService interface {
	GetUserMetadata(ctx context.Context, userID string) (model.UserMetadata, error)
	SavePortfolio(ctx context.Context, userID string, state model.PortfolioState) error
	ReconcilePortfolio(ctx context.Context, userID string, now time.Time) (model.PortfolioState, decimal.Decimal, error)
	PlaceOrder(ctx context.Context, userID string, side model.OrderSide, ticker string, shares, amount decimal.Decimal) (model.PortfolioState, decimal.Decimal, error)
	StockAnalysis(ctx context.Context, ticker string) (model.StockAnalysis, error)
	PersonalizedStocks(ctx context.Context, params model.ScreenerParams) ([]model.StockEntry, error)
	PortfolioReport(ctx context.Context, userID string) (fileBytes []byte, fileExtension string, err error)
}

type MinvestedService interface {
	SaveProgress(ctx context.Context, userID string, progress map[string]float64, points float64) error
	ApplyQuizResult(ctx context.Context, userID, module string, selected, answers []string) (map[string]float64, float64, error)
	ToggleArticle(ctx context.Context, userID, module string) (map[string]float64, float64, error)
}

type Controller struct {
	simvest   SimvestService
	minvested MinvestedService
}

func NewController(simvest SimvestService, minvested MinvestedService) *Controller {
	return &Controller{simvest: simvest, minvested: minvested}
}

type userRequest struct {
	UserID string `json:"userId"`
}

type portfolioUpdateRequest struct {
	UserID   string                     `json:"userId"`
	Cash     decimal.Decimal            `json:"userCash"`
	Holdings map[string]decimal.Decimal `json:"ownedStocks"`
	Series   []model.ValuationPoint     `json:"userInvestmentData"`
}

type progressUpdateRequest struct {
	UserID   string             `json:"userId"`
	Progress map[string]float64 `json:"userProgress"`
	Points   float64            `json:"userPoints"`
}

type orderRequest struct {
	UserID string          `json:"userId"`
	Side   model.OrderSide `json:"side"`
	Ticker string          `json:"ticker"`
	Shares decimal.Decimal `json:"shares"`
	Amount decimal.Decimal `json:"amount"`
}

type quizResultRequest struct {
	UserID   string   `json:"userId"`
	Module   string   `json:"module"`
	Selected []string `json:"selected"`
	Answers  []string `json:"answers"`
}

type articleToggleRequest struct {
	UserID string `json:"userId"`
	Module string `json:"module"`
}

type portfolioResponse struct {
	Cash         decimal.Decimal            `json:"userCash"`
	Holdings     map[string]decimal.Decimal `json:"ownedStocks"`
	Series       []model.ValuationPoint     `json:"investmentData"`
	CurrentValue decimal.Decimal            `json:"currentValue"`
}

type progressResponse struct {
	Progress map[string]float64 `json:"progress"`
	Points   float64            `json:"points"`
}

func (c *Controller) GetUserMetadata(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	meta, err := c.simvest.GetUserMetadata(r.Context(), req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"userMetadata": meta})
}

func (c *Controller) UpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req portfolioUpdateRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	state := model.PortfolioState{Cash: req.Cash, Holdings: req.Holdings, Series: req.Series}

	if err := c.simvest.SavePortfolio(r.Context(), req.UserID, state); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"status": "ok"})
}

func (c *Controller) UpdateProgressPoints(w http.ResponseWriter, r *http.Request) {
	var req progressUpdateRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := c.minvested.SaveProgress(r.Context(), req.UserID, req.Progress, req.Points); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"status": "ok"})
}

func (c *Controller) ReconcilePortfolio(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	state, currentValue, err := c.simvest.ReconcilePortfolio(r.Context(), req.UserID, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, portfolioResponse{
		Cash:         state.Cash,
		Holdings:     state.Holdings,
		Series:       state.Series,
		CurrentValue: currentValue,
	})
}

func (c *Controller) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	state, currentValue, err := c.simvest.PlaceOrder(r.Context(), req.UserID, req.Side, req.Ticker, req.Shares, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, portfolioResponse{
		Cash:         state.Cash,
		Holdings:     state.Holdings,
		Series:       state.Series,
		CurrentValue: currentValue,
	})
}

func (c *Controller) StockAnalysis(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if ticker == "" {
		writeJSON(w, r, http.StatusBadRequest, map[string]any{"error": "ticker is required"})
		return
	}

	analysis, err := c.simvest.StockAnalysis(r.Context(), ticker)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, analysis)
}

func (c *Controller) PersonalizedStocks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := model.ScreenerParams{RiskLevel: query.Get("risk")}
	params.InitialInvestment, _ = decimal.NewFromString(query.Get("initialInvestment"))
	params.FinalInvestment, _ = decimal.NewFromString(query.Get("finalInvestment"))
	params.DurationMonths, _ = strconv.Atoi(query.Get("time"))

	entries, err := c.simvest.PersonalizedStocks(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"stocks": entries})
}

func (c *Controller) QuizResult(w http.ResponseWriter, r *http.Request) {
	var req quizResultRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	progress, points, err := c.minvested.ApplyQuizResult(r.Context(), req.UserID, req.Module, req.Selected, req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, progressResponse{Progress: progress, Points: points})
}

func (c *Controller) ArticleToggle(w http.ResponseWriter, r *http.Request) {
	var req articleToggleRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	progress, points, err := c.minvested.ToggleArticle(r.Context(), req.UserID, req.Module)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, progressResponse{Progress: progress, Points: points})
}

func (c *Controller) PortfolioReport(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeJSON(w, r, http.StatusBadRequest, map[string]any{"error": "userId is required"})
		return
	}

	fileBytes, fileExtension, err := c.simvest.PortfolioReport(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=portfolio%s", fileExtension))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(fileBytes)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		rqID := utils.GetRequestIDFromCtx(r.Context())
		slog.Error("can't encode response", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrInsufficientFunds), errors.Is(err, service.ErrInsufficientShares):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrMarketDataUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	}

	rqID := utils.GetRequestIDFromCtx(r.Context())
	slog.Warn("request failed", slog.String("rqID", rqID), slog.Int("status", status), slog.String("err", err.Error()))

	writeJSON(w, r, status, map[string]any{"error": err.Error()})
}
