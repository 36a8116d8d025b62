package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"promo-engine/internal/admission"
	"promo-engine/internal/config"
	"promo-engine/internal/eligibility"
)

const promotionColumns = `id, title, description, image_ref, is_active, is_priority,
	valid_from, valid_to, start_time, end_time, days_of_week`

// Store is the postgres-backed promotion collection. It implements
// admission.Store plus the create/delete operations the admin CRUD needs.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// LoadAll returns every promotion row, active and inactive alike.
// Eligibility filtering belongs to the evaluator, not the query.
func (s *Store) LoadAll(ctx context.Context) ([]eligibility.Promotion, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+promotionColumns+` FROM promotions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query promotions: %w", err)
	}
	defer rows.Close()

	var out []eligibility.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *Store) LoadOne(ctx context.Context, id string) (*eligibility.Promotion, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE id = $1`, id)
	p, err := scanPromotion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, admission.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) Create(ctx context.Context, p eligibility.Promotion) (*eligibility.Promotion, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO promotions (`+promotionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+promotionColumns,
		p.ID, p.Title, p.Description, p.ImageRef, p.IsActive, p.IsPriority,
		dateParam(p.ValidFrom), dateParam(p.ValidTo),
		timeParam(p.StartTime), timeParam(p.EndTime),
		daysParam(p.Days),
	)
	created, err := scanPromotion(row)
	if err != nil {
		return nil, fmt.Errorf("insert promotion: %w", err)
	}
	return &created, nil
}

// Save applies a partial update inside a transaction, taking a row lock on
// the target first so concurrent saves against the same promotion
// serialize at the store.
func (s *Store) Save(ctx context.Context, id string, patch admission.Patch) (*eligibility.Promotion, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked string
	err = tx.QueryRow(ctx,
		`SELECT id FROM promotions WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, admission.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock promotion: %w", err)
	}

	sets, args := buildUpdate(patch)
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE promotions SET %s WHERE id = $%d RETURNING %s`,
		sets, len(args), promotionColumns)

	updated, err := scanPromotion(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update promotion: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return admission.ErrNotFound
	}
	return nil
}

// buildUpdate turns the set fields of a patch into SET clauses + args.
// updated_at moves on every save regardless of the patch contents.
func buildUpdate(patch admission.Patch) (string, []any) {
	sets := "updated_at = now()"
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets += fmt.Sprintf(", %s = $%d", col, len(args))
	}

	if patch.Title.Set {
		add("title", patch.Title.Value)
	}
	if patch.Description.Set {
		add("description", patch.Description.Value)
	}
	if patch.ImageRef.Set {
		add("image_ref", patch.ImageRef.Value)
	}
	if patch.IsActive.Set {
		add("is_active", patch.IsActive.Value)
	}
	if patch.IsPriority.Set {
		add("is_priority", patch.IsPriority.Value)
	}
	if patch.ValidFrom.Set {
		add("valid_from", dateParam(patch.ValidFrom.Value))
	}
	if patch.ValidTo.Set {
		add("valid_to", dateParam(patch.ValidTo.Value))
	}
	if patch.StartTime.Set {
		add("start_time", timeParam(patch.StartTime.Value))
	}
	if patch.EndTime.Set {
		add("end_time", timeParam(patch.EndTime.Value))
	}
	if patch.Days.Set {
		add("days_of_week", daysParam(patch.Days.Value))
	}
	return sets, args
}

func scanPromotion(row pgx.Row) (eligibility.Promotion, error) {
	var (
		p          eligibility.Promotion
		from, to   pgtype.Date
		start, end pgtype.Time
		days       []int16
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.ImageRef,
		&p.IsActive, &p.IsPriority, &from, &to, &start, &end, &days)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, err
	}
	if err != nil {
		return p, fmt.Errorf("scan promotion: %w", err)
	}

	if from.Valid {
		d := eligibility.DateOf(from.Time)
		p.ValidFrom = &d
	}
	if to.Valid {
		d := eligibility.DateOf(to.Time)
		p.ValidTo = &d
	}
	if start.Valid {
		t := eligibility.TimeOfDay(start.Microseconds / int64(time.Minute/time.Microsecond))
		p.StartTime = &t
	}
	if end.Valid {
		t := eligibility.TimeOfDay(end.Microseconds / int64(time.Minute/time.Microsecond))
		p.EndTime = &t
	}
	for _, d := range days {
		p.Days = append(p.Days, time.Weekday(d))
	}
	return p, nil
}

func dateParam(d *eligibility.Date) any {
	if d == nil {
		return nil
	}
	return pgtype.Date{
		Time:  time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC),
		Valid: true,
	}
}

func timeParam(t *eligibility.TimeOfDay) any {
	if t == nil {
		return nil
	}
	return pgtype.Time{
		Microseconds: int64(*t) * int64(time.Minute/time.Microsecond),
		Valid:        true,
	}
}

func daysParam(days []time.Weekday) any {
	if len(days) == 0 {
		return nil
	}
	out := make([]int16, len(days))
	for i, d := range days {
		out[i] = int16(d)
	}
	return out
}

func (s *Store) ListenChannel() string {
	return "promo_data_change"
}

func (s *Store) PgxPool() *pgxpool.Pool {
	if s.pool == nil {
		panic(errors.New("pgx pool is nil"))
	}
	return s.pool
}
