package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mnavtrack/nav-engine/internal/model"
)

// schema holds a single row (id = 1) with the current parameters.
// Quantities are NUMERIC so configured figures round-trip exactly.
const schema = `
CREATE TABLE IF NOT EXISTS treasury_parameters (
	id                 SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	name               TEXT NOT NULL DEFAULT '',
	equity_symbol      TEXT NOT NULL,
	eth_symbol         TEXT NOT NULL,
	btc_symbol         TEXT NOT NULL,
	shares_outstanding NUMERIC NOT NULL,
	cash_reserve       NUMERIC NOT NULL,
	other_asset_value  NUMERIC NOT NULL,
	btc_holding        NUMERIC NOT NULL,
	eth_holding        NUMERIC NOT NULL,
	eth_staked         NUMERIC NOT NULL,
	staking_apr        NUMERIC NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore implements Store using PostgreSQL as the source of truth.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the treasury table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate treasury_parameters: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTreasury(ctx context.Context) (*model.TreasuryParameters, error) {
	var p model.TreasuryParameters
	var shares, cash, other, btc, eth, staked, apr string

	err := s.pool.QueryRow(ctx,
		`SELECT name, equity_symbol, eth_symbol, btc_symbol,
		        shares_outstanding::TEXT, cash_reserve::TEXT, other_asset_value::TEXT,
		        btc_holding::TEXT, eth_holding::TEXT, eth_staked::TEXT, staking_apr::TEXT
		 FROM treasury_parameters WHERE id = 1`).
		Scan(&p.Name, &p.EquitySymbol, &p.ETHSymbol, &p.BTCSymbol,
			&shares, &cash, &other,
			&btc, &eth, &staked, &apr)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get treasury: %w", err)
	}

	fields := []struct {
		raw string
		dst *float64
	}{
		{shares, &p.SharesOutstanding},
		{cash, &p.CashReserve},
		{other, &p.OtherAssetValue},
		{btc, &p.BTCHolding},
		{eth, &p.ETHHolding},
		{staked, &p.ETHStaked},
		{apr, &p.StakingAPR},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("get treasury: parse %q: %w", f.raw, err)
		}
		*f.dst = d.InexactFloat64()
	}

	return &p, nil
}

func (s *PostgresStore) SaveTreasury(ctx context.Context, p *model.TreasuryParameters) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO treasury_parameters (id, name, equity_symbol, eth_symbol, btc_symbol,
		        shares_outstanding, cash_reserve, other_asset_value,
		        btc_holding, eth_holding, eth_staked, staking_apr, updated_at)
		 VALUES (1, $1, $2, $3, $4,
		        $5::NUMERIC, $6::NUMERIC, $7::NUMERIC,
		        $8::NUMERIC, $9::NUMERIC, $10::NUMERIC, $11::NUMERIC, now())
		 ON CONFLICT (id) DO UPDATE SET
		        name = EXCLUDED.name,
		        equity_symbol = EXCLUDED.equity_symbol,
		        eth_symbol = EXCLUDED.eth_symbol,
		        btc_symbol = EXCLUDED.btc_symbol,
		        shares_outstanding = EXCLUDED.shares_outstanding,
		        cash_reserve = EXCLUDED.cash_reserve,
		        other_asset_value = EXCLUDED.other_asset_value,
		        btc_holding = EXCLUDED.btc_holding,
		        eth_holding = EXCLUDED.eth_holding,
		        eth_staked = EXCLUDED.eth_staked,
		        staking_apr = EXCLUDED.staking_apr,
		        updated_at = EXCLUDED.updated_at`,
		p.Name, p.EquitySymbol, p.ETHSymbol, p.BTCSymbol,
		numeric(p.SharesOutstanding), numeric(p.CashReserve), numeric(p.OtherAssetValue),
		numeric(p.BTCHolding), numeric(p.ETHHolding), numeric(p.ETHStaked), numeric(p.StakingAPR),
	)
	if err != nil {
		return fmt.Errorf("save treasury: %w", err)
	}
	return nil
}

// numeric renders f as an exact decimal literal for a NUMERIC column.
func numeric(f float64) string {
	return decimal.NewFromFloat(f).String()
}
