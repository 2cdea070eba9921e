package model

import "github.com/shopspring/decimal"

// StockEntry is one row of the graded stock universe. JSON keys match the
// screener table the web client renders.
type StockEntry struct {
	Ticker         string          `json:"Ticker" db:"ticker"`
	Company        string          `json:"Company" db:"company"`
	Sector         string          `json:"Sector" db:"sector"`
	Description    string          `json:"Description" db:"description"`
	Beta           float64         `json:"Beta" db:"beta"`
	Price          decimal.Decimal `json:"Price" db:"price"`
	Change         decimal.Decimal `json:"Change" db:"change"`
	FinalGrade     string          `json:"Final Grade" db:"final_grade"`
	ValuationGrade string          `json:"Valuation Grade" db:"valuation_grade"`
	PE             float64         `json:"PE" db:"pe"`
	PEGrade        string          `json:"PE Grade" db:"pe_grade"`
	PS             float64         `json:"PS" db:"ps"`
	PSGrade        string          `json:"PS Grade" db:"ps_grade"`
	PB             float64         `json:"PB" db:"pb"`
	PBGrade        string          `json:"PB Grade" db:"pb_grade"`
	PEG            float64         `json:"PEG" db:"peg"`
	PEGGrade       string          `json:"PEG Grade" db:"peg_grade"`
	EVS            float64         `json:"EV/S" db:"evs"`
	EVSGrade       string          `json:"EV/S Grade" db:"evs_grade"`
	EVEBITDA       float64         `json:"EV/EBITDA" db:"ev_ebitda"`
	EVEBITDAGrade  string          `json:"EV/EBITDA Grade" db:"ev_ebitda_grade"`
}

// ScreenerParams mirror the personalized-data query string.
type ScreenerParams struct {
	InitialInvestment decimal.Decimal
	FinalInvestment   decimal.Decimal
	DurationMonths    int
	RiskLevel         string
}
