package dbModel

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Profile is a raw users row. JSONB columns stay as bytes until the
// repository decodes them; NULLs mean the field was never written.
type Profile struct {
	UserID         string              `db:"user_id"`
	Cash           decimal.NullDecimal `db:"cash"`
	OwnedStocks    []byte              `db:"owned_stocks"`
	InvestmentData []byte              `db:"investment_data"`
	Progress       []byte              `db:"progress"`
	Points         sql.NullFloat64     `db:"points"`
}
