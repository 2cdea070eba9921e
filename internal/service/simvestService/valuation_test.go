package simvestService

import (
	"testing"

	"github.com/minvestfinance/simvest-backend/internal/model"
	"github.com/minvestfinance/simvest-backend/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMovingAverage(t *testing.T) {
	t.Run("window clipped at series start", func(t *testing.T) {
		got := MovingAverage([]float64{10, 20, 30}, 2)
		assert.Equal(t, []float64{10, 15, 25}, got)
	})

	t.Run("window longer than series averages everything seen so far", func(t *testing.T) {
		got := MovingAverage([]float64{10, 20}, 50)
		assert.Equal(t, []float64{10, 15}, got)
	})

	t.Run("empty series", func(t *testing.T) {
		got := MovingAverage(nil, 5)
		assert.Empty(t, got)
	})
}

func TestClassifySignal(t *testing.T) {
	t.Run("length mismatch degrades to neutral with error", func(t *testing.T) {
		signal, err := ClassifySignal([]float64{1, 2, 3}, []float64{1, 2}, []float64{1, 2, 3})
		assert.ErrorIs(t, err, service.ErrSignalLengthMismatch)
		assert.Equal(t, model.SignalNeutral, signal)
	})

	t.Run("confirmed downward cross is bullish", func(t *testing.T) {
		prices := []float64{10, 5, 5}
		shortMA := []float64{8, 8, 8}
		longMA := []float64{6, 6, 6}

		signal, err := ClassifySignal(prices, shortMA, longMA)
		assert.NoError(t, err)
		assert.Equal(t, model.SignalBullish, signal)
	})

	t.Run("confirmed upward cross is bearish", func(t *testing.T) {
		prices := []float64{4, 9, 9}
		shortMA := []float64{6, 6, 6}
		longMA := []float64{8, 8, 8}

		signal, err := ClassifySignal(prices, shortMA, longMA)
		assert.NoError(t, err)
		assert.Equal(t, model.SignalBearish, signal)
	})

	t.Run("unconfirmed cross is neutral", func(t *testing.T) {
		// downward cross but the short average sits below the long one
		prices := []float64{10, 5}
		shortMA := []float64{8, 8}
		longMA := []float64{9, 9}

		signal, err := ClassifySignal(prices, shortMA, longMA)
		assert.NoError(t, err)
		assert.Equal(t, model.SignalNeutral, signal)
	})

	t.Run("no cross is neutral", func(t *testing.T) {
		prices := []float64{10, 11, 12}
		shortMA := []float64{5, 5, 5}
		longMA := []float64{4, 4, 4}

		signal, err := ClassifySignal(prices, shortMA, longMA)
		assert.NoError(t, err)
		assert.Equal(t, model.SignalNeutral, signal)
	})
}

func TestApplyOrder(t *testing.T) {
	t.Run("buy exceeding cash leaves state untouched", func(t *testing.T) {
		state := model.PortfolioState{
			Cash:     decimal.NewFromInt(100),
			Holdings: map[string]decimal.Decimal{},
		}

		got, err := ApplyOrder(state, model.OrderBuy, "AAPL", decimal.NewFromInt(5), decimal.NewFromInt(500))
		assert.ErrorIs(t, err, service.ErrInsufficientFunds)
		assert.Equal(t, "100", got.Cash.String())
		assert.Empty(t, got.Holdings)
	})

	t.Run("buy debits cash and credits shares", func(t *testing.T) {
		state := model.PortfolioState{
			Cash:     decimal.NewFromInt(5000),
			Holdings: map[string]decimal.Decimal{},
		}

		got, err := ApplyOrder(state, model.OrderBuy, "AAPL", decimal.NewFromInt(2), decimal.NewFromInt(300))
		assert.NoError(t, err)
		assert.Equal(t, "4700", got.Cash.String())
		assert.Equal(t, "2", got.Holdings["AAPL"].String())

		// input state is untouched
		assert.Equal(t, "5000", state.Cash.String())
		assert.Empty(t, state.Holdings)
	})

	t.Run("sell of an unowned ticker fails", func(t *testing.T) {
		state := model.PortfolioState{
			Cash:     decimal.NewFromInt(1000),
			Holdings: map[string]decimal.Decimal{},
		}

		_, err := ApplyOrder(state, model.OrderSell, "AAPL", decimal.NewFromInt(1), decimal.NewFromInt(100))
		assert.ErrorIs(t, err, service.ErrInsufficientShares)
	})

	t.Run("selling more than held fails", func(t *testing.T) {
		state := model.PortfolioState{
			Cash:     decimal.NewFromInt(1000),
			Holdings: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(1)},
		}

		_, err := ApplyOrder(state, model.OrderSell, "AAPL", decimal.NewFromInt(2), decimal.NewFromInt(200))
		assert.ErrorIs(t, err, service.ErrInsufficientShares)
	})

	t.Run("buy then full sell removes the holding and restores cash", func(t *testing.T) {
		state := model.PortfolioState{
			Cash:     decimal.NewFromInt(5000),
			Holdings: map[string]decimal.Decimal{},
		}

		bought, err := ApplyOrder(state, model.OrderBuy, "MSFT", decimal.RequireFromString("1.5"), decimal.NewFromInt(600))
		assert.NoError(t, err)

		sold, err := ApplyOrder(bought, model.OrderSell, "MSFT", decimal.RequireFromString("1.5"), decimal.NewFromInt(600))
		assert.NoError(t, err)
		assert.Equal(t, "5000", sold.Cash.String())
		assert.NotContains(t, sold.Holdings, "MSFT")
	})

	t.Run("partial sell keeps the remainder", func(t *testing.T) {
		state := model.PortfolioState{
			Cash:     decimal.NewFromInt(0),
			Holdings: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(3)},
		}

		got, err := ApplyOrder(state, model.OrderSell, "AAPL", decimal.NewFromInt(1), decimal.NewFromInt(150))
		assert.NoError(t, err)
		assert.Equal(t, "150", got.Cash.String())
		assert.Equal(t, "2", got.Holdings["AAPL"].String())
	})

	t.Run("non-positive quantity is rejected", func(t *testing.T) {
		state := model.PortfolioState{
			Cash:     decimal.NewFromInt(1000),
			Holdings: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(1)},
		}

		_, err := ApplyOrder(state, model.OrderBuy, "AAPL", decimal.Zero, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, service.ErrInsufficientFunds)

		_, err = ApplyOrder(state, model.OrderSell, "AAPL", decimal.Zero, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, service.ErrInsufficientShares)
	})

	t.Run("negative cash delta is rejected", func(t *testing.T) {
		state := model.PortfolioState{
			Cash:     decimal.NewFromInt(1000),
			Holdings: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(1)},
		}

		_, err := ApplyOrder(state, model.OrderBuy, "AAPL", decimal.NewFromInt(1), decimal.NewFromInt(-10))
		assert.ErrorIs(t, err, service.ErrInsufficientFunds)

		_, err = ApplyOrder(state, model.OrderSell, "AAPL", decimal.NewFromInt(1), decimal.NewFromInt(-10))
		assert.ErrorIs(t, err, service.ErrInsufficientShares)
	})

	t.Run("unknown side errors", func(t *testing.T) {
		state := model.PortfolioState{Cash: decimal.NewFromInt(1000)}

		_, err := ApplyOrder(state, model.OrderSide("hold"), "AAPL", decimal.NewFromInt(1), decimal.NewFromInt(10))
		assert.Error(t, err)
	})
}
