package valuation

// Tier is the named bracket a point balance falls in.
type Tier string

// Tier labels.
const (
	TierBronze Tier = "Bronze Hero"
	TierSilver Tier = "Silver Hero"
	TierGold   Tier = "Gold Hero"
)

// Tier thresholds (inclusive lower bounds).
const (
	SilverThreshold int64 = 300
	GoldThreshold   int64 = 600
)

// StartingPoints is the flat grant every hero receives at registration,
// independent of trade value. With the thresholds above every new hero
// starts Bronze.
const StartingPoints int64 = 100

// ReferralBonus is the points credited to a referrer per referral.
const ReferralBonus int64 = 50

// CompletionPointsDivisor converts a completed trade-in's value into points:
// one point per ten units of value.
const CompletionPointsDivisor int64 = 10

// TierFor returns the tier implied by points.
func TierFor(points int64) Tier {
	switch {
	case points >= GoldThreshold:
		return TierGold
	case points >= SilverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// CompletionPoints returns the points earned when a trade-in worth
// tradeValue completes.
func CompletionPoints(tradeValue int64) int64 {
	if tradeValue <= 0 {
		return 0
	}
	return tradeValue / CompletionPointsDivisor
}

// Rank orders tiers: Bronze 1, Silver 2, Gold 3. Unknown labels rank 0.
func (t Tier) Rank() int {
	switch t {
	case TierBronze:
		return 1
	case TierSilver:
		return 2
	case TierGold:
		return 3
	}
	return 0
}
