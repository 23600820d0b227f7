// Package postgres implements store.Store on PostgreSQL using sqlx and lib/pq.
//
// Registration and submission order come from BIGSERIAL seq columns. Inside
// Transact every single-row read takes a row lock, so concurrent units of
// work touching the same hero or the stats row queue up behind each other.
// Deadlocks and serialization failures re-run the whole unit of work.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/xraph/heroes"
	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/id"
	"github.com/xraph/heroes/referral"
	"github.com/xraph/heroes/stats"
	herostore "github.com/xraph/heroes/store"
	"github.com/xraph/heroes/tradein"
)

// compile-time interface check
var _ herostore.Store = (*Store)(nil)

// SQLSTATE codes the store reacts to.
const (
	uniqueViolation      = "23505"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// DefaultMaxAttempts bounds how often Transact runs a unit of work that
// keeps failing on a deadlock or serialization conflict.
const DefaultMaxAttempts = 3

// retryBackoff is the pause before the second attempt; it doubles after.
const retryBackoff = 10 * time.Millisecond

// Store implements store.Store using PostgreSQL.
// A Store returned by New wraps the pool; the Store handed to a TxFunc
// wraps the open transaction.
type Store struct {
	db          *sqlx.DB
	q           sqlx.ExtContext
	tx          *sqlx.Tx
	maxAttempts int
	backoff     time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAttempts sets how many times Transact runs a unit of work that
// fails on a deadlock or serialization conflict. Values below 1 mean 1.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n < 1 {
			n = 1
		}
		s.maxAttempts = n
	}
}

// WithRetryBackoff sets the pause before the first retry.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Store) { s.backoff = d }
}

// New creates a PostgreSQL store over an open sqlx handle.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, q: db, maxAttempts: DefaultMaxAttempts, backoff: retryBackoff}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to dsn with the lib/pq driver.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("heroes/postgres: connect: %w", err)
	}
	return New(db, opts...), nil
}

// DB returns the underlying sqlx database for direct access.
func (s *Store) DB() *sqlx.DB { return s.db }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.Transact(ctx, func(ctx context.Context, tx herostore.Store) error {
		return migrate(ctx, tx.(*Store).q)
	})
	if err != nil {
		return fmt.Errorf("heroes/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection. It is a no-op on a transaction
// handle.
func (s *Store) Close() error {
	if s.tx != nil {
		return nil
	}
	return s.db.Close()
}

// forUpdate returns the row-lock suffix inside a transaction.
func (s *Store) forUpdate() string {
	if s.tx != nil {
		return " FOR UPDATE"
	}
	return ""
}

// ==================== Hero Store ====================

func (s *Store) CreateHero(ctx context.Context, h *hero.Hero) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
INSERT INTO heroes (`+heroColumns+`)
VALUES (:id, :email, :name, :device_model, :device_condition, :trade_value, :points, :level,
	:badges, :bottles_prevented, :co2_saved, :rewards_earned, :referral_count, :is_active, :created_at, :updated_at)`,
		toHeroModel(h))
	if err != nil {
		return wrapWrite("create hero", err)
	}
	return nil
}

func (s *Store) GetHero(ctx context.Context, heroID id.HeroID) (*hero.Hero, error) {
	m := new(heroModel)
	err := sqlx.GetContext(ctx, s.q, m,
		`SELECT `+heroColumns+` FROM heroes WHERE id = $1`+s.forUpdate(), heroID.String())
	if err != nil {
		if isNoRows(err) {
			return nil, heroes.ErrHeroNotFound
		}
		return nil, fmt.Errorf("heroes/postgres: get hero: %w", err)
	}
	return fromHeroModel(m)
}

// GetHeroByEmail returns the earliest registration with this exact email.
func (s *Store) GetHeroByEmail(ctx context.Context, email string) (*hero.Hero, error) {
	m := new(heroModel)
	err := sqlx.GetContext(ctx, s.q, m,
		`SELECT `+heroColumns+` FROM heroes WHERE email = $1 ORDER BY seq LIMIT 1`, email)
	if err != nil {
		if isNoRows(err) {
			return nil, heroes.ErrHeroNotFound
		}
		return nil, fmt.Errorf("heroes/postgres: get hero by email: %w", err)
	}
	return fromHeroModel(m)
}

func (s *Store) ListHeroes(ctx context.Context, opts hero.ListOpts) ([]*hero.Hero, error) {
	query := `SELECT ` + heroColumns + ` FROM heroes`
	if opts.ActiveOnly {
		query += ` WHERE is_active`
	}
	if opts.ByPoints {
		query += ` ORDER BY points DESC, seq`
	} else {
		query += ` ORDER BY seq`
	}

	args := make([]any, 0, 2)
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	var models []heroModel
	if err := sqlx.SelectContext(ctx, s.q, &models, query, args...); err != nil {
		return nil, fmt.Errorf("heroes/postgres: list heroes: %w", err)
	}

	result := make([]*hero.Hero, 0, len(models))
	for i := range models {
		h, err := fromHeroModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, nil
}

func (s *Store) UpdateHero(ctx context.Context, h *hero.Hero) error {
	res, err := sqlx.NamedExecContext(ctx, s.q, `
UPDATE heroes SET
	email = :email, name = :name, device_model = :device_model, device_condition = :device_condition,
	trade_value = :trade_value, points = :points, level = :level, badges = :badges,
	bottles_prevented = :bottles_prevented, co2_saved = :co2_saved, rewards_earned = :rewards_earned,
	referral_count = :referral_count, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`, toHeroModel(h))
	if err != nil {
		return wrapWrite("update hero", err)
	}
	return requireRow(res, heroes.ErrHeroNotFound)
}

// ==================== Trade-in Store ====================

func (s *Store) CreateTradeIn(ctx context.Context, t *tradein.TradeIn) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
INSERT INTO tradeins (`+tradeInColumns+`)
VALUES (:id, :hero_id, :device_model, :device_condition, :trade_value, :status,
	:pickup_address, :pickup_date, :completed_at, :created_at, :updated_at)`,
		toTradeInModel(t))
	if err != nil {
		return wrapWrite("create trade-in", err)
	}
	return nil
}

func (s *Store) GetTradeIn(ctx context.Context, tradeInID id.TradeInID) (*tradein.TradeIn, error) {
	m := new(tradeInModel)
	err := sqlx.GetContext(ctx, s.q, m,
		`SELECT `+tradeInColumns+` FROM tradeins WHERE id = $1`+s.forUpdate(), tradeInID.String())
	if err != nil {
		if isNoRows(err) {
			return nil, heroes.ErrTradeInNotFound
		}
		return nil, fmt.Errorf("heroes/postgres: get trade-in: %w", err)
	}
	return fromTradeInModel(m)
}

// ListTradeInsByHero returns newest first.
func (s *Store) ListTradeInsByHero(ctx context.Context, heroID id.HeroID) ([]*tradein.TradeIn, error) {
	var models []tradeInModel
	err := sqlx.SelectContext(ctx, s.q, &models,
		`SELECT `+tradeInColumns+` FROM tradeins WHERE hero_id = $1 ORDER BY seq DESC`, heroID.String())
	if err != nil {
		return nil, fmt.Errorf("heroes/postgres: list trade-ins: %w", err)
	}

	result := make([]*tradein.TradeIn, 0, len(models))
	for i := range models {
		t, err := fromTradeInModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

func (s *Store) UpdateTradeIn(ctx context.Context, t *tradein.TradeIn) error {
	res, err := sqlx.NamedExecContext(ctx, s.q, `
UPDATE tradeins SET
	device_model = :device_model, device_condition = :device_condition, trade_value = :trade_value,
	status = :status, pickup_address = :pickup_address, pickup_date = :pickup_date,
	completed_at = :completed_at, updated_at = :updated_at
WHERE id = :id`, toTradeInModel(t))
	if err != nil {
		return wrapWrite("update trade-in", err)
	}
	return requireRow(res, heroes.ErrTradeInNotFound)
}

// ==================== Referral Store ====================

func (s *Store) CreateReferral(ctx context.Context, r *referral.Referral) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
INSERT INTO referrals (`+referralColumns+`)
VALUES (:id, :referrer_id, :referee_id, :points_earned, :created_at)`,
		toReferralModel(r))
	if err != nil {
		// referral ids are fresh, so a conflict is the referee index
		if isUniqueViolation(err) {
			return heroes.ErrAlreadyReferred
		}
		return wrapWrite("create referral", err)
	}
	return nil
}

// ListReferralsByReferrer returns newest first.
func (s *Store) ListReferralsByReferrer(ctx context.Context, referrerID id.HeroID) ([]*referral.Referral, error) {
	var models []referralModel
	err := sqlx.SelectContext(ctx, s.q, &models,
		`SELECT `+referralColumns+` FROM referrals WHERE referrer_id = $1 ORDER BY seq DESC`, referrerID.String())
	if err != nil {
		return nil, fmt.Errorf("heroes/postgres: list referrals: %w", err)
	}

	result := make([]*referral.Referral, 0, len(models))
	for i := range models {
		r, err := fromReferralModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, nil
}

func (s *Store) GetReferralByReferee(ctx context.Context, refereeID id.HeroID) (*referral.Referral, error) {
	m := new(referralModel)
	err := sqlx.GetContext(ctx, s.q, m,
		`SELECT `+referralColumns+` FROM referrals WHERE referee_id = $1`, refereeID.String())
	if err != nil {
		if isNoRows(err) {
			return nil, heroes.ErrReferralNotFound
		}
		return nil, fmt.Errorf("heroes/postgres: get referral: %w", err)
	}
	return fromReferralModel(m)
}

// ==================== Stats Store ====================

func (s *Store) GetStats(ctx context.Context) (*stats.ProgramStats, error) {
	m := new(statsModel)
	err := sqlx.GetContext(ctx, s.q, m,
		`SELECT `+statsColumns+` FROM program_stats WHERE id = 1`+s.forUpdate())
	if err != nil {
		if isNoRows(err) {
			return nil, heroes.ErrStatsNotFound
		}
		return nil, fmt.Errorf("heroes/postgres: get stats: %w", err)
	}
	return fromStatsModel(m), nil
}

func (s *Store) SaveStats(ctx context.Context, ps *stats.ProgramStats) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
INSERT INTO program_stats (id, `+statsColumns+`)
VALUES (1, :total_bottles_prevented, :total_co2_saved, :total_rewards, :active_heroes, :updated_at)
ON CONFLICT (id) DO UPDATE SET
	total_bottles_prevented = EXCLUDED.total_bottles_prevented,
	total_co2_saved = EXCLUDED.total_co2_saved,
	total_rewards = EXCLUDED.total_rewards,
	active_heroes = EXCLUDED.active_heroes,
	updated_at = EXCLUDED.updated_at`, toStatsModel(ps))
	if err != nil {
		return wrapWrite("save stats", err)
	}
	return nil
}

// ==================== Unit of work ====================

// Transact runs fn in a database transaction. Calling Transact on the
// transaction store joins it.
//
// A unit of work that fails on a deadlock or serialization conflict is
// rolled back and run again, up to the configured attempt count. When the
// attempts run out the last error is returned wrapped in
// heroes.ErrTransactionFailed, so heroes.IsRetryable reports true.
func (s *Store) Transact(ctx context.Context, fn herostore.TxFunc) error {
	if s.tx != nil {
		return fn(ctx, s)
	}

	attempts := max(s.maxAttempts, 1)
	wait := s.backoff
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = s.attempt(ctx, fn)
		if err == nil || !isTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", heroes.ErrTransactionFailed, err)
		case <-time.After(wait):
		}
		wait *= 2
	}
	return fmt.Errorf("%w: gave up after %d attempts: %w", heroes.ErrTransactionFailed, attempts, err)
}

func (s *Store) attempt(ctx context.Context, fn herostore.TxFunc) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", heroes.ErrTransactionFailed, err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(ctx, &Store{db: s.db, q: tx, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		if isTransient(err) {
			return err
		}
		return fmt.Errorf("%w: commit: %w", heroes.ErrTransactionFailed, err)
	}
	return nil
}

// ==================== Helpers ====================

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// isTransient reports a conflict that a fresh attempt can resolve.
func isTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == deadlockDetected || pqErr.Code == serializationFailure
}

func wrapWrite(op string, err error) error {
	if isUniqueViolation(err) {
		return heroes.ErrAlreadyExists
	}
	return fmt.Errorf("heroes/postgres: %s: %w", op, err)
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("heroes/postgres: rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
