package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/id"
	"github.com/xraph/heroes/referral"
	"github.com/xraph/heroes/stats"
	"github.com/xraph/heroes/tradein"
	"github.com/xraph/heroes/types"
	"github.com/xraph/heroes/valuation"
)

// ==================== Hero models ====================

const heroColumns = `id, email, name, device_model, device_condition, trade_value, points, level,
	badges, bottles_prevented, co2_saved, rewards_earned, referral_count, is_active, created_at, updated_at`

type heroModel struct {
	ID               string         `db:"id"`
	Email            string         `db:"email"`
	Name             string         `db:"name"`
	DeviceModel      string         `db:"device_model"`
	DeviceCondition  string         `db:"device_condition"`
	TradeValue       int64          `db:"trade_value"`
	Points           int64          `db:"points"`
	Level            string         `db:"level"`
	Badges           pq.StringArray `db:"badges"`
	BottlesPrevented int64          `db:"bottles_prevented"`
	CO2Saved         int64          `db:"co2_saved"`
	RewardsEarned    int64          `db:"rewards_earned"`
	ReferralCount    int64          `db:"referral_count"`
	IsActive         bool           `db:"is_active"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func toHeroModel(h *hero.Hero) *heroModel {
	badges := pq.StringArray(h.Badges)
	if badges == nil {
		badges = pq.StringArray{}
	}
	return &heroModel{
		ID:               h.ID.String(),
		Email:            h.Email,
		Name:             h.Name,
		DeviceModel:      h.DeviceModel,
		DeviceCondition:  h.DeviceCondition,
		TradeValue:       h.TradeValue,
		Points:           h.Points,
		Level:            string(h.Level),
		Badges:           badges,
		BottlesPrevented: h.BottlesPrevented,
		CO2Saved:         h.CO2Saved,
		RewardsEarned:    h.RewardsEarned,
		ReferralCount:    h.ReferralCount,
		IsActive:         h.IsActive,
		CreatedAt:        h.CreatedAt,
		UpdatedAt:        h.UpdatedAt,
	}
}

func fromHeroModel(m *heroModel) (*hero.Hero, error) {
	heroID, err := id.ParseHeroID(m.ID)
	if err != nil {
		return nil, err
	}
	return &hero.Hero{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:               heroID,
		Email:            m.Email,
		Name:             m.Name,
		DeviceModel:      m.DeviceModel,
		DeviceCondition:  m.DeviceCondition,
		TradeValue:       m.TradeValue,
		Points:           m.Points,
		Level:            valuation.Tier(m.Level),
		Badges:           []string(m.Badges),
		BottlesPrevented: m.BottlesPrevented,
		CO2Saved:         m.CO2Saved,
		RewardsEarned:    m.RewardsEarned,
		ReferralCount:    m.ReferralCount,
		IsActive:         m.IsActive,
	}, nil
}

// ==================== Trade-in models ====================

const tradeInColumns = `id, hero_id, device_model, device_condition, trade_value, status,
	pickup_address, pickup_date, completed_at, created_at, updated_at`

type tradeInModel struct {
	ID              string       `db:"id"`
	HeroID          string       `db:"hero_id"`
	DeviceModel     string       `db:"device_model"`
	DeviceCondition string       `db:"device_condition"`
	TradeValue      int64        `db:"trade_value"`
	Status          string       `db:"status"`
	PickupAddress   string       `db:"pickup_address"`
	PickupDate      sql.NullTime `db:"pickup_date"`
	CompletedAt     sql.NullTime `db:"completed_at"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

func toTradeInModel(t *tradein.TradeIn) *tradeInModel {
	return &tradeInModel{
		ID:              t.ID.String(),
		HeroID:          t.HeroID.String(),
		DeviceModel:     t.DeviceModel,
		DeviceCondition: t.DeviceCondition,
		TradeValue:      t.TradeValue,
		Status:          string(t.Status),
		PickupAddress:   t.PickupAddress,
		PickupDate:      nullTime(t.PickupDate),
		CompletedAt:     nullTime(t.CompletedAt),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func fromTradeInModel(m *tradeInModel) (*tradein.TradeIn, error) {
	tradeInID, err := id.ParseTradeInID(m.ID)
	if err != nil {
		return nil, err
	}
	heroID, err := id.ParseHeroID(m.HeroID)
	if err != nil {
		return nil, err
	}
	return &tradein.TradeIn{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:              tradeInID,
		HeroID:          heroID,
		DeviceModel:     m.DeviceModel,
		DeviceCondition: m.DeviceCondition,
		TradeValue:      m.TradeValue,
		Status:          tradein.Status(m.Status),
		PickupAddress:   m.PickupAddress,
		PickupDate:      timePtr(m.PickupDate),
		CompletedAt:     timePtr(m.CompletedAt),
	}, nil
}

// ==================== Referral models ====================

const referralColumns = `id, referrer_id, referee_id, points_earned, created_at`

type referralModel struct {
	ID           string    `db:"id"`
	ReferrerID   string    `db:"referrer_id"`
	RefereeID    string    `db:"referee_id"`
	PointsEarned int64     `db:"points_earned"`
	CreatedAt    time.Time `db:"created_at"`
}

func toReferralModel(r *referral.Referral) *referralModel {
	return &referralModel{
		ID:           r.ID.String(),
		ReferrerID:   r.ReferrerID.String(),
		RefereeID:    r.RefereeID.String(),
		PointsEarned: r.PointsEarned,
		CreatedAt:    r.CreatedAt,
	}
}

func fromReferralModel(m *referralModel) (*referral.Referral, error) {
	refID, err := id.ParseReferralID(m.ID)
	if err != nil {
		return nil, err
	}
	referrerID, err := id.ParseHeroID(m.ReferrerID)
	if err != nil {
		return nil, err
	}
	refereeID, err := id.ParseHeroID(m.RefereeID)
	if err != nil {
		return nil, err
	}
	return &referral.Referral{
		ID:           refID,
		ReferrerID:   referrerID,
		RefereeID:    refereeID,
		PointsEarned: m.PointsEarned,
		CreatedAt:    m.CreatedAt.UTC(),
	}, nil
}

// ==================== Stats models ====================

const statsColumns = `total_bottles_prevented, total_co2_saved, total_rewards, active_heroes, updated_at`

type statsModel struct {
	TotalBottlesPrevented int64     `db:"total_bottles_prevented"`
	TotalCO2Saved         int64     `db:"total_co2_saved"`
	TotalRewards          int64     `db:"total_rewards"`
	ActiveHeroes          int64     `db:"active_heroes"`
	UpdatedAt             time.Time `db:"updated_at"`
}

func toStatsModel(s *stats.ProgramStats) *statsModel {
	return &statsModel{
		TotalBottlesPrevented: s.TotalBottlesPrevented,
		TotalCO2Saved:         s.TotalCO2Saved,
		TotalRewards:          s.TotalRewards,
		ActiveHeroes:          s.ActiveHeroes,
		UpdatedAt:             s.UpdatedAt,
	}
}

func fromStatsModel(m *statsModel) *stats.ProgramStats {
	return &stats.ProgramStats{
		TotalBottlesPrevented: m.TotalBottlesPrevented,
		TotalCO2Saved:         m.TotalCO2Saved,
		TotalRewards:          m.TotalRewards,
		ActiveHeroes:          m.ActiveHeroes,
		UpdatedAt:             m.UpdatedAt.UTC(),
	}
}

// ==================== Helpers ====================

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
