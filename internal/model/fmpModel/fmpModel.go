package fmpModel

// Raw shapes of the FinancialModelingPrep responses this service consumes.

// QuoteShort is one element of the /quote-short/{ticker} array.
type QuoteShort struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
}

// Quote is one element of the /quote/{tickers} array. Only the fields the
// universe refresh job needs are mapped.
type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
}

// HistoricalPriceFull is the /historical-price-full/{ticker} envelope.
// Bars come newest first.
type HistoricalPriceFull struct {
	Symbol     string          `json:"symbol"`
	Historical []HistoricalBar `json:"historical"`
}

type HistoricalBar struct {
	Date     string  `json:"date"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjClose"`
}

// DailyBar is one element of the /historical-chart/1day/{ticker} array.
// The date field may carry a time component ("2024-10-01 00:00:00").
// Bars come newest first.
type DailyBar struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}
