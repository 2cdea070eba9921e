package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
	"github.com/minvestfinance/simvest-backend/config"
	"github.com/minvestfinance/simvest-backend/internal/model"
	"github.com/minvestfinance/simvest-backend/internal/model/dbModel"
	"github.com/minvestfinance/simvest-backend/utils"
)

type Postgres struct {
	db  *sqlx.DB
	cfg *config.Config
}

func NewPostgres(cfg *config.Config, db *sqlx.DB) *Postgres {
	return &Postgres{db: db, cfg: cfg}
}

func (r *Postgres) GetProfile(ctx context.Context, userID string) (profile model.StoredProfile, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT user_id, cash, owned_stocks, investment_data, progress, points
		FROM users
		WHERE user_id = $1
		`

	slog.Debug("GetProfile start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetProfile failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetProfile completed", slog.String("rqID", rqID))
		}
	}()

	row := dbModel.Profile{}
	err = r.db.QueryRowxContext(ctx, query, userID).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.StoredProfile{}, ErrNotFound
		}
		return model.StoredProfile{}, err
	}

	return convertProfile(row)
}

func convertProfile(row dbModel.Profile) (model.StoredProfile, error) {
	profile := model.StoredProfile{}

	if row.Cash.Valid {
		cash := row.Cash.Decimal
		profile.Cash = &cash
	}

	if row.Points.Valid {
		points := row.Points.Float64
		profile.Points = &points
	}

	if len(row.OwnedStocks) > 0 {
		if err := json.Unmarshal(row.OwnedStocks, &profile.Holdings); err != nil {
			return model.StoredProfile{}, fmt.Errorf("can't unmarshall owned_stocks: %w", err)
		}
	}

	if len(row.InvestmentData) > 0 {
		if err := json.Unmarshal(row.InvestmentData, &profile.Series); err != nil {
			return model.StoredProfile{}, fmt.Errorf("can't unmarshall investment_data: %w", err)
		}
	}

	if len(row.Progress) > 0 {
		if err := json.Unmarshal(row.Progress, &profile.Progress); err != nil {
			return model.StoredProfile{}, fmt.Errorf("can't unmarshall progress: %w", err)
		}
	}

	return profile, nil
}

func (r *Postgres) UpsertPortfolio(ctx context.Context, userID string, state model.PortfolioState) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO users(user_id, cash, owned_stocks, investment_data)
		VALUES($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			cash = EXCLUDED.cash,
			owned_stocks = EXCLUDED.owned_stocks,
			investment_data = EXCLUDED.investment_data,
			updated_at = now()
		`

	slog.Debug("UpsertPortfolio start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpsertPortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertPortfolio completed", slog.String("rqID", rqID))
		}
	}()

	holdingsJson, err := json.Marshal(state.Holdings)
	if err != nil {
		return fmt.Errorf("can't marshall holdings: %w", err)
	}

	seriesJson, err := json.Marshal(state.Series)
	if err != nil {
		return fmt.Errorf("can't marshall series: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, userID, state.Cash, holdingsJson, seriesJson)
	return err
}

func (r *Postgres) UpsertProgress(ctx context.Context, userID string, progress map[string]float64, points float64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO users(user_id, progress, points)
		VALUES($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			progress = EXCLUDED.progress,
			points = EXCLUDED.points,
			updated_at = now()
		`

	slog.Debug("UpsertProgress start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpsertProgress failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertProgress completed", slog.String("rqID", rqID))
		}
	}()

	progressJson, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("can't marshall progress: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, userID, progressJson, points)
	return err
}

func (r *Postgres) GetStockEntries(ctx context.Context) (entries []model.StockEntry, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT ticker, company, sector, description, beta, price, change,
			final_grade, valuation_grade,
			pe, pe_grade, ps, ps_grade, pb, pb_grade,
			peg, peg_grade, evs, evs_grade, ev_ebitda, ev_ebitda_grade
		FROM stocks
		ORDER BY final_grade, ticker
		`

	slog.Debug("GetStockEntries start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetStockEntries failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetStockEntries completed", slog.String("rqID", rqID))
		}
	}()

	err = r.db.SelectContext(ctx, &entries, query)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *Postgres) GetUniverseTickers(ctx context.Context) (tickers []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT ticker FROM stocks ORDER BY ticker`

	slog.Debug("GetUniverseTickers start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetUniverseTickers failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUniverseTickers completed", slog.String("rqID", rqID))
		}
	}()

	err = r.db.SelectContext(ctx, &tickers, query)
	if err != nil {
		return nil, err
	}

	return tickers, nil
}

func (r *Postgres) UpdateStockQuotes(ctx context.Context, quotes []model.Quote) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("UpdateStockQuotes start", slog.String("rqID", rqID), slog.Int("quotes", len(quotes)))

	defer func() {
		if err != nil {
			slog.Error("UpdateStockQuotes failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateStockQuotes completed", slog.String("rqID", rqID))
		}
	}()

	if len(quotes) == 0 {
		return nil
	}

	sb := strings.Builder{}
	args := make([]any, 0, len(quotes)*3)

	sb.WriteString(`
		UPDATE stocks AS s SET
			price = v.price,
			change = v.change
		FROM (VALUES `)

	for i, quote := range quotes {
		args = append(args, quote.Ticker, quote.Price, quote.Change)

		start := i*3 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d::numeric, $%d::numeric)", start, start+1, start+2))

		if i < len(quotes)-1 {
			sb.WriteString(",")
		}
	}

	sb.WriteString(`) AS v(ticker, price, change) WHERE s.ticker = v.ticker`)

	_, err = r.db.ExecContext(ctx, sb.String(), args...)
	return err
}
