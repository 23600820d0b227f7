package audithook

// Action constants for audit events.
const (
	// Hero actions
	ActionHeroRegistered  = "hero.registered"
	ActionHeroUpdated     = "hero.updated"
	ActionHeroDeactivated = "hero.deactivated"
	ActionHeroReactivated = "hero.reactivated"
	ActionPointsAwarded   = "points.awarded"
	ActionPointsDeducted  = "points.deducted"
	ActionTierChanged     = "tier.changed"

	// Trade-in actions
	ActionTradeInSubmitted = "tradein.submitted"
	ActionTradeInCompleted = "tradein.completed"
	ActionTradeInCancelled = "tradein.cancelled"

	// Referral actions
	ActionReferralCreated = "referral.created"

	// Stats actions
	ActionStatsReconciled = "stats.reconciled"
)

// Resource constants for audit events.
const (
	ResourceHero     = "hero"
	ResourceTradeIn  = "tradein"
	ResourceReferral = "referral"
	ResourceStats    = "stats"
)

// Category constants for audit events.
const (
	CategoryMembership = "membership"
	CategoryRewards    = "rewards"
	CategoryTradeIn    = "tradein"
	CategoryProgram    = "program"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
