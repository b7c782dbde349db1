package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"practicetest-core/internal/domain/model"
	"practicetest-core/internal/domain/ports/repository"
)

var _ repository.QuotaRepository = (*PostgresQuotaRepo)(nil)

type PostgresQuotaRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewPostgresQuotaRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *PostgresQuotaRepo {
	return &PostgresQuotaRepo{pool: pool, tm: tm}
}

// resetQuery performs the lazy day rollover as one statement. The upsert
// either creates the row, wipes stale counters, or returns them unchanged;
// because it is a single statement the reset happens at most once per day no
// matter how many first-of-the-day requests race.
const resetQuery = `
INSERT INTO daily_limits (user_id, last_reset_date, counters)
VALUES ($1, $2, '{}'::jsonb)
ON CONFLICT (user_id) DO UPDATE SET
  counters = CASE WHEN daily_limits.last_reset_date < EXCLUDED.last_reset_date
                  THEN '{}'::jsonb
                  ELSE daily_limits.counters END,
  last_reset_date = GREATEST(daily_limits.last_reset_date, EXCLUDED.last_reset_date)
RETURNING last_reset_date, counters;`

func (r *PostgresQuotaRepo) GetOrReset(ctx context.Context, userID string, today time.Time) (*model.DailyLimit, error) {
	row, err := pickRow(ctx, r.pool, nil, resetQuery, userID, dateOnly(today))
	if err != nil {
		return nil, err
	}
	return scanDailyLimit(row, userID)
}

func (r *PostgresQuotaRepo) Commit(ctx context.Context, userID string, today time.Time, counts map[model.SectionType]int) error {
	if len(counts) == 0 {
		return nil
	}
	return r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// The upsert takes the row lock for the rest of the transaction and
		// applies the rollover first, so a commit straddling midnight cannot
		// resurrect yesterday's counters.
		row, err := pickRow(ctx, r.pool, tx, resetQuery, userID, dateOnly(today))
		if err != nil {
			return err
		}
		limit, err := scanDailyLimit(row, userID)
		if err != nil {
			return err
		}

		for section, n := range counts {
			if n > 0 {
				limit.Counters[section] += n
			}
		}
		raw, err := json.Marshal(limit.Counters)
		if err != nil {
			return fmt.Errorf("marshal counters: %w", err)
		}
		_, err = execSQL(ctx, r.pool, tx,
			`UPDATE daily_limits SET counters = $2 WHERE user_id = $1;`, userID, raw)
		return err
	})
}

func scanDailyLimit(row pgx.Row, userID string) (*model.DailyLimit, error) {
	var (
		resetDate time.Time
		raw       []byte
	)
	if err := row.Scan(&resetDate, &raw); err != nil {
		return nil, fmt.Errorf("scan daily limit: %w", err)
	}
	counters := map[model.SectionType]int{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &counters); err != nil {
			return nil, fmt.Errorf("decode counters: %w", err)
		}
	}
	return &model.DailyLimit{UserID: userID, LastResetDate: resetDate, Counters: counters}, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
