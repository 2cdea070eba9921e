package model

import "github.com/shopspring/decimal"

type ReportPosition struct {
	Ticker   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Value    decimal.Decimal
}

// PortfolioReport is the snapshot the spreadsheet generator renders.
type PortfolioReport struct {
	UserID     string
	Cash       decimal.Decimal
	Positions  []ReportPosition
	TotalValue decimal.Decimal
}
