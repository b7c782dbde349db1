package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"practicetest-core/internal/domain/model"
	"practicetest-core/internal/domain/ports/repository"
)

var _ repository.PoolRepository = (*PostgresPoolRepo)(nil)

type PostgresPoolRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPoolRepo(pool *pgxpool.Pool) *PostgresPoolRepo {
	return &PostgresPoolRepo{pool: pool}
}

func (r *PostgresPoolRepo) Insert(ctx context.Context, tx repository.Tx, items []model.PoolItem) error {
	const q = `
INSERT INTO pool_items (id, content_type, section, subsection, difficulty, payload, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
	for i := range items {
		it := &items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if it.CreatedAt.IsZero() {
			it.CreatedAt = time.Now()
		}
		if _, err := execSQL(ctx, r.pool, tx, q,
			it.ID, it.ContentType, it.Section, it.Subsection, it.Difficulty, it.Payload, it.CreatedAt); err != nil {
			return fmt.Errorf("insert pool item: %w", err)
		}
	}
	return nil
}

// candidateQuery offers newest items first and skips anything already on the
// user's ledger. The NOT EXISTS read is only an optimisation to narrow the
// candidate set; correctness comes from the ledger insert below.
const candidateQuery = `
SELECT id, content_type, section, subsection, difficulty, payload, created_at
  FROM pool_items p
 WHERE p.section = $2
   AND ($3 = '' OR p.subsection = $3)
   AND ($4 = '' OR p.difficulty = $4)
   AND NOT EXISTS (
         SELECT 1 FROM usage_records u
          WHERE u.user_id = $1 AND u.question_id = p.id)
 ORDER BY p.created_at DESC
 LIMIT $5;`

func (r *PostgresPoolRepo) ClaimUnused(ctx context.Context, userID string, f repository.ClaimFilter, count int) ([]model.PoolItem, error) {
	if count <= 0 {
		return nil, nil
	}

	rows, err := querySQL(ctx, r.pool, nil, candidateQuery,
		userID, f.Section, f.Subsection, f.Difficulty, count)
	if err != nil {
		return nil, fmt.Errorf("select candidates: %w", err)
	}
	candidates := make([]model.PoolItem, 0, count)
	for rows.Next() {
		var it model.PoolItem
		if err := rows.Scan(&it.ID, &it.ContentType, &it.Section, &it.Subsection, &it.Difficulty, &it.Payload, &it.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The claim of each candidate is a single insert-or-skip on the ledger;
	// only rows that actually inserted count as claimed. A concurrent claimer
	// for the same user loses the conflict and simply gets a smaller result.
	// The shortfall is the caller's deficit signal; retrying here would only
	// re-read an already narrowed candidate set.
	const claimQ = `
INSERT INTO usage_records (user_id, question_id, content_type, usage_type, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id, question_id) DO NOTHING;`

	claimed := make([]model.PoolItem, 0, len(candidates))
	now := time.Now()
	for _, it := range candidates {
		tag, err := execSQL(ctx, r.pool, nil, claimQ, userID, it.ID, it.ContentType, model.UsagePool, now)
		if err != nil {
			return claimed, fmt.Errorf("claim item %s: %w", it.ID, err)
		}
		if tag.RowsAffected() == 1 {
			claimed = append(claimed, it)
		}
	}
	return claimed, nil
}

func (r *PostgresPoolRepo) RecordUsage(ctx context.Context, tx repository.Tx, userID string, items []model.PoolItem, usageType string) error {
	const q = `
INSERT INTO usage_records (user_id, question_id, content_type, usage_type, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id, question_id) DO NOTHING;`
	now := time.Now()
	for _, it := range items {
		if _, err := execSQL(ctx, r.pool, tx, q, userID, it.ID, it.ContentType, usageType, now); err != nil {
			return fmt.Errorf("record usage %s: %w", it.ID, err)
		}
	}
	return nil
}

func (r *PostgresPoolRepo) CountUnused(ctx context.Context, userID string, f repository.ClaimFilter) (int, error) {
	const q = `
SELECT COUNT(*)
  FROM pool_items p
 WHERE p.section = $2
   AND ($3 = '' OR p.subsection = $3)
   AND ($4 = '' OR p.difficulty = $4)
   AND NOT EXISTS (
         SELECT 1 FROM usage_records u
          WHERE u.user_id = $1 AND u.question_id = p.id);`
	row, err := pickRow(ctx, r.pool, nil, q, userID, f.Section, f.Subsection, f.Difficulty)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count unused: %w", err)
	}
	return n, nil
}
