package postgres_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/heroes"
	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/id"
	"github.com/xraph/heroes/referral"
	"github.com/xraph/heroes/stats"
	herostore "github.com/xraph/heroes/store"
	"github.com/xraph/heroes/store/postgres"
	"github.com/xraph/heroes/types"
	"github.com/xraph/heroes/valuation"
)

var heroCols = []string{
	"id", "email", "name", "device_model", "device_condition", "trade_value", "points", "level",
	"badges", "bottles_prevented", "co2_saved", "rewards_earned", "referral_count", "is_active",
	"created_at", "updated_at",
}

var statsCols = []string{
	"total_bottles_prevented", "total_co2_saved", "total_rewards", "active_heroes", "updated_at",
}

func newMock(t *testing.T, opts ...postgres.Option) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return postgres.New(sqlx.NewDb(db, "postgres"), opts...), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func sampleHero() *hero.Hero {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &hero.Hero{
		Entity:          types.NewEntityAt(now),
		ID:              id.NewHeroID(),
		Email:           "ana@example.com",
		Name:            "Ana",
		DeviceModel:     "iPhone 13",
		DeviceCondition: "good",
		TradeValue:      420,
		Points:          100,
		Level:           valuation.TierBronze,
		Badges:          []string{hero.DefaultBadge},
		IsActive:        true,
	}
}

func heroRow(h *hero.Hero) []driver.Value {
	return []driver.Value{
		h.ID.String(), h.Email, h.Name, h.DeviceModel, h.DeviceCondition, h.TradeValue, h.Points,
		string(h.Level), []byte(`{"Planet Saver"}`), h.BottlesPrevented, h.CO2Saved, h.RewardsEarned,
		h.ReferralCount, h.IsActive, h.CreatedAt, h.UpdatedAt,
	}
}

func TestGetHero(t *testing.T) {
	s, mock := newMock(t)
	want := sampleHero()

	mock.ExpectQuery(q("FROM heroes WHERE id = $1")).
		WithArgs(want.ID.String()).
		WillReturnRows(sqlmock.NewRows(heroCols).AddRow(heroRow(want)...))

	got, err := s.GetHero(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.ID.String(), got.ID.String())
	assert.Equal(t, want.Email, got.Email)
	assert.Equal(t, valuation.TierBronze, got.Level)
	assert.Equal(t, []string{hero.DefaultBadge}, got.Badges)
	assert.True(t, got.CreatedAt.Equal(want.CreatedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHeroNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(q("FROM heroes WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows(heroCols))

	_, err := s.GetHero(context.Background(), id.NewHeroID())
	assert.ErrorIs(t, err, heroes.ErrHeroNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHeroByEmailTakesEarliest(t *testing.T) {
	s, mock := newMock(t)
	h := sampleHero()

	mock.ExpectQuery(q("WHERE email = $1 ORDER BY seq LIMIT 1")).
		WithArgs(h.Email).
		WillReturnRows(sqlmock.NewRows(heroCols).AddRow(heroRow(h)...))

	got, err := s.GetHeroByEmail(context.Background(), h.Email)
	require.NoError(t, err)
	assert.Equal(t, h.Name, got.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateHero(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(q("INSERT INTO heroes")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.CreateHero(context.Background(), sampleHero()))

	mock.ExpectExec(q("INSERT INTO heroes")).WillReturnError(&pq.Error{Code: "23505"})
	err := s.CreateHero(context.Background(), sampleHero())
	assert.ErrorIs(t, err, heroes.ErrAlreadyExists)

	mock.ExpectExec(q("INSERT INTO heroes")).WillReturnError(errors.New("connection reset"))
	err = s.CreateHero(context.Background(), sampleHero())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heroes/postgres: create hero")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateHeroMissing(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(q("UPDATE heroes SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := s.UpdateHero(context.Background(), sampleHero())
	assert.ErrorIs(t, err, heroes.ErrHeroNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListHeroesQuery(t *testing.T) {
	tests := []struct {
		name  string
		opts  hero.ListOpts
		query string
		args  int
	}{
		{"registration order", hero.ListOpts{}, "FROM heroes ORDER BY seq", 0},
		{"active by points", hero.ListOpts{ActiveOnly: true, ByPoints: true},
			"FROM heroes WHERE is_active ORDER BY points DESC, seq", 0},
		{"paged", hero.ListOpts{ByPoints: true, Limit: 3, Offset: 6},
			"ORDER BY points DESC, seq LIMIT $1 OFFSET $2", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMock(t)
			h := sampleHero()

			exp := mock.ExpectQuery(q(tt.query))
			if tt.args == 2 {
				exp = exp.WithArgs(int64(tt.opts.Limit), int64(tt.opts.Offset))
			}
			exp.WillReturnRows(sqlmock.NewRows(heroCols).AddRow(heroRow(h)...))

			list, err := s.ListHeroes(context.Background(), tt.opts)
			require.NoError(t, err)
			require.Len(t, list, 1)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListTradeInsNewestFirst(t *testing.T) {
	s, mock := newMock(t)
	heroID := id.NewHeroID()
	now := time.Now().UTC()

	cols := []string{
		"id", "hero_id", "device_model", "device_condition", "trade_value", "status",
		"pickup_address", "pickup_date", "completed_at", "created_at", "updated_at",
	}
	mock.ExpectQuery(q("FROM tradeins WHERE hero_id = $1 ORDER BY seq DESC")).
		WithArgs(heroID.String()).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(id.NewTradeInID().String(), heroID.String(), "Pixel 8", "fair", int64(520), "completed",
				"", nil, now, now, now).
			AddRow(id.NewTradeInID().String(), heroID.String(), "iPhone 13", "good", int64(420), "pending",
				"1 Main St", now, nil, now, now))

	list, err := s.ListTradeInsByHero(context.Background(), heroID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.NotNil(t, list[0].CompletedAt)
	assert.Nil(t, list[0].PickupDate)
	assert.Nil(t, list[1].CompletedAt)
	assert.NotNil(t, list[1].PickupDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReferralByRefereeNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(q("FROM referrals WHERE referee_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "referrer_id", "referee_id", "points_earned", "created_at"}))

	_, err := s.GetReferralByReferee(context.Background(), id.NewHeroID())
	assert.ErrorIs(t, err, heroes.ErrReferralNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReferralDuplicateReferee(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(q("INSERT INTO referrals")).WillReturnError(&pq.Error{Code: "23505"})
	err := s.CreateReferral(context.Background(), &referral.Referral{
		ID:         id.NewReferralID(),
		ReferrerID: id.NewHeroID(),
		RefereeID:  id.NewHeroID(),
	})
	assert.ErrorIs(t, err, heroes.ErrAlreadyReferred)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(q("FROM program_stats WHERE id = 1")).
		WillReturnRows(sqlmock.NewRows([]string{"total_bottles_prevented"}))

	_, err := s.GetStats(context.Background())
	assert.ErrorIs(t, err, heroes.ErrStatsNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactLocksAndCommits(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM program_stats WHERE id = 1 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(statsCols).AddRow(int64(840), int64(420), int64(420), int64(1), now))
	mock.ExpectExec(q("INSERT INTO program_stats")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Transact(context.Background(), func(ctx context.Context, tx herostore.Store) error {
		ps, err := tx.GetStats(ctx)
		if err != nil {
			return err
		}
		ps.Apply(stats.Delta{ActiveHeroes: 1}, now)
		// nested call joins the open transaction
		return tx.Transact(ctx, func(ctx context.Context, inner herostore.Store) error {
			return inner.SaveStats(ctx, ps)
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactRollsBack(t *testing.T) {
	s, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO heroes")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := s.Transact(context.Background(), func(ctx context.Context, tx herostore.Store) error {
		if err := tx.CreateHero(ctx, sampleHero()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactRetriesDeadlock(t *testing.T) {
	s, mock := newMock(t, postgres.WithRetryBackoff(0))
	now := time.Now().UTC()
	stmt := q("FROM program_stats WHERE id = 1 FOR UPDATE")

	mock.ExpectBegin()
	mock.ExpectQuery(stmt).WillReturnError(&pq.Error{Code: "40P01", Message: "deadlock detected"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery(stmt).
		WillReturnRows(sqlmock.NewRows(statsCols).AddRow(int64(0), int64(0), int64(0), int64(2), now))
	mock.ExpectCommit()

	calls := 0
	var active int64
	err := s.Transact(context.Background(), func(ctx context.Context, tx herostore.Store) error {
		calls++
		ps, err := tx.GetStats(ctx)
		if err != nil {
			return err
		}
		active = ps.ActiveHeroes
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(2), active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactRetriesSerializationFailureOnCommit(t *testing.T) {
	s, mock := newMock(t, postgres.WithRetryBackoff(0))

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001"})
	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := s.Transact(context.Background(), func(context.Context, herostore.Store) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactGivesUpAfterMaxAttempts(t *testing.T) {
	s, mock := newMock(t, postgres.WithMaxAttempts(2), postgres.WithRetryBackoff(0))
	stmt := q("FROM program_stats WHERE id = 1 FOR UPDATE")

	for range 2 {
		mock.ExpectBegin()
		mock.ExpectQuery(stmt).WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectRollback()
	}

	calls := 0
	err := s.Transact(context.Background(), func(ctx context.Context, tx herostore.Store) error {
		calls++
		_, err := tx.GetStats(ctx)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, err, heroes.ErrTransactionFailed)
	assert.True(t, heroes.IsRetryable(err))

	var pqErr *pq.Error
	require.ErrorAs(t, err, &pqErr)
	assert.Equal(t, pq.ErrorCode("40001"), pqErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactBeginFails(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	err := s.Transact(context.Background(), func(context.Context, herostore.Store) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, heroes.ErrTransactionFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateAppliesPending(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("CREATE TABLE IF NOT EXISTS heroes_migrations")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT version FROM heroes_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(postgres.Migrations[0].Version))
	for _, m := range postgres.Migrations[1:] {
		mock.ExpectExec(q("CREATE TABLE IF NOT EXISTS")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(q("INSERT INTO heroes_migrations")).
			WithArgs(m.Version, m.Name).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateFailureRollsBack(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("CREATE TABLE IF NOT EXISTS heroes_migrations")).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err := s.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heroes/postgres: migration failed")
	require.NoError(t, mock.ExpectationsWereMet())
}
