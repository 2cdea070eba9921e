package model

type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"
)

// StockAnalysis is the charting payload for a single ticker: the price
// window, its moving averages and the crossover signal.
type StockAnalysis struct {
	Ticker  string    `json:"ticker"`
	Dates   []string  `json:"dates"`
	Prices  []float64 `json:"prices"`
	ShortMA []float64 `json:"shortMA"`
	LongMA  []float64 `json:"longMA"`
	Signal  Signal    `json:"signal"`
}
