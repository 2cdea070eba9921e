package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderBuy  OrderSide = "buy"
	OrderSell OrderSide = "sell"
)

// ValuationPoint keeps the chart wire shape the web client has always used:
// {"x": <timestamp>, "y": <total value>}.
type ValuationPoint struct {
	Timestamp  time.Time       `json:"x"`
	TotalValue decimal.Decimal `json:"y"`
}

// PortfolioState is one consistent snapshot of a user's paper portfolio.
// Reducers return a fresh snapshot instead of mutating in place, so cash and
// holdings can never be observed mid-update.
type PortfolioState struct {
	Cash     decimal.Decimal
	Holdings map[string]decimal.Decimal
	Series   []ValuationPoint
}

func (s PortfolioState) CloneHoldings() map[string]decimal.Decimal {
	clone := make(map[string]decimal.Decimal, len(s.Holdings))
	for ticker, qty := range s.Holdings {
		clone[ticker] = qty
	}
	return clone
}

// StoredProfile is a profile as it sits in the store. Nil fields were never
// written for this user and get defaulted at the service layer.
type StoredProfile struct {
	Cash     *decimal.Decimal
	Holdings map[string]decimal.Decimal
	Series   []ValuationPoint
	Progress map[string]float64
	Points   *float64
}

// UserMetadata is the fully defaulted profile view served to clients.
type UserMetadata struct {
	Cash     decimal.Decimal            `json:"userCash"`
	Holdings map[string]decimal.Decimal `json:"ownedStocks"`
	Series   []ValuationPoint           `json:"investmentData"`
	Progress map[string]float64         `json:"progress"`
	Points   float64                    `json:"points"`
}

func (m UserMetadata) PortfolioState() PortfolioState {
	return PortfolioState{Cash: m.Cash, Holdings: m.Holdings, Series: m.Series}
}

type Quote struct {
	Ticker string          `json:"ticker"`
	Price  decimal.Decimal `json:"price"`
	Change decimal.Decimal `json:"change"`
}
