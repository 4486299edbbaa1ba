package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const settingCommissionRate = "platform_commission_rate"

// SettingsRepo implements ports.SettingsRepository over system_settings.
type SettingsRepo struct {
	pool Pool
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(pool Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

// CommissionRate reads the platform commission override. Values are stored as
// text; an unparsable value is an error rather than a silent fallback.
func (r *SettingsRepo) CommissionRate(ctx context.Context) (decimal.Decimal, bool, error) {
	query := `SELECT setting_value FROM system_settings WHERE setting_key = $1`

	var raw string
	if err := r.pool.QueryRow(ctx, query, settingCommissionRate).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("get commission rate: %w", err)
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse commission rate %q: %w", raw, err)
	}
	return rate, true, nil
}
