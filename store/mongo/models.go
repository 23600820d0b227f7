package mongo

import (
	"time"

	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/id"
	"github.com/xraph/heroes/referral"
	"github.com/xraph/heroes/stats"
	"github.com/xraph/heroes/tradein"
	"github.com/xraph/heroes/types"
	"github.com/xraph/heroes/valuation"
)

// ==================== Hero models ====================

type heroModel struct {
	ID               string    `bson:"_id"`
	Seq              int64     `bson:"seq"`
	Email            string    `bson:"email"`
	Name             string    `bson:"name"`
	DeviceModel      string    `bson:"device_model"`
	DeviceCondition  string    `bson:"device_condition"`
	TradeValue       int64     `bson:"trade_value"`
	Points           int64     `bson:"points"`
	Level            string    `bson:"level"`
	Badges           []string  `bson:"badges"`
	BottlesPrevented int64     `bson:"bottles_prevented"`
	CO2Saved         int64     `bson:"co2_saved"`
	RewardsEarned    int64     `bson:"rewards_earned"`
	ReferralCount    int64     `bson:"referral_count"`
	IsActive         bool      `bson:"is_active"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func toHeroModel(h *hero.Hero, seq int64) *heroModel {
	badges := h.Badges
	if badges == nil {
		badges = []string{}
	}
	return &heroModel{
		ID:               h.ID.String(),
		Seq:              seq,
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
		Entity:           types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:               heroID,
		Email:            m.Email,
		Name:             m.Name,
		DeviceModel:      m.DeviceModel,
		DeviceCondition:  m.DeviceCondition,
		TradeValue:       m.TradeValue,
		Points:           m.Points,
		Level:            valuation.Tier(m.Level),
		Badges:           m.Badges,
		BottlesPrevented: m.BottlesPrevented,
		CO2Saved:         m.CO2Saved,
		RewardsEarned:    m.RewardsEarned,
		ReferralCount:    m.ReferralCount,
		IsActive:         m.IsActive,
	}, nil
}

// ==================== Trade-in models ====================

type tradeInModel struct {
	ID              string     `bson:"_id"`
	Seq             int64      `bson:"seq"`
	HeroID          string     `bson:"hero_id"`
	DeviceModel     string     `bson:"device_model"`
	DeviceCondition string     `bson:"device_condition"`
	TradeValue      int64      `bson:"trade_value"`
	Status          string     `bson:"status"`
	PickupAddress   string     `bson:"pickup_address,omitempty"`
	PickupDate      *time.Time `bson:"pickup_date,omitempty"`
	CompletedAt     *time.Time `bson:"completed_at,omitempty"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func toTradeInModel(t *tradein.TradeIn, seq int64) *tradeInModel {
	return &tradeInModel{
		ID:              t.ID.String(),
		Seq:             seq,
		HeroID:          t.HeroID.String(),
		DeviceModel:     t.DeviceModel,
		DeviceCondition: t.DeviceCondition,
		TradeValue:      t.TradeValue,
		Status:          string(t.Status),
		PickupAddress:   t.PickupAddress,
		PickupDate:      t.PickupDate,
		CompletedAt:     t.CompletedAt,
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
		Entity:          types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:              tradeInID,
		HeroID:          heroID,
		DeviceModel:     m.DeviceModel,
		DeviceCondition: m.DeviceCondition,
		TradeValue:      m.TradeValue,
		Status:          tradein.Status(m.Status),
		PickupAddress:   m.PickupAddress,
		PickupDate:      utcPtr(m.PickupDate),
		CompletedAt:     utcPtr(m.CompletedAt),
	}, nil
}

// ==================== Referral models ====================

type referralModel struct {
	ID           string    `bson:"_id"`
	Seq          int64     `bson:"seq"`
	ReferrerID   string    `bson:"referrer_id"`
	RefereeID    string    `bson:"referee_id"`
	PointsEarned int64     `bson:"points_earned"`
	CreatedAt    time.Time `bson:"created_at"`
}

func toReferralModel(r *referral.Referral, seq int64) *referralModel {
	return &referralModel{
		ID:           r.ID.String(),
		Seq:          seq,
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

// statsDocID is the _id of the single aggregate document.
const statsDocID = "program"

type statsModel struct {
	ID                    string    `bson:"_id"`
	TotalBottlesPrevented int64     `bson:"total_bottles_prevented"`
	TotalCO2Saved         int64     `bson:"total_co2_saved"`
	TotalRewards          int64     `bson:"total_rewards"`
	ActiveHeroes          int64     `bson:"active_heroes"`
	UpdatedAt             time.Time `bson:"updated_at"`
}

func toStatsModel(s *stats.ProgramStats) *statsModel {
	return &statsModel{
		ID:                    statsDocID,
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

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
