// Package audithook bridges Heroes lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import any
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/plugin"
	"github.com/xraph/heroes/referral"
	"github.com/xraph/heroes/stats"
	"github.com/xraph/heroes/tradein"
	"github.com/xraph/heroes/valuation"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnHeroRegistered       = (*Extension)(nil)
	_ plugin.OnHeroUpdated          = (*Extension)(nil)
	_ plugin.OnPointsAwarded        = (*Extension)(nil)
	_ plugin.OnTierChanged          = (*Extension)(nil)
	_ plugin.OnTradeInSubmitted     = (*Extension)(nil)
	_ plugin.OnTradeInStatusChanged = (*Extension)(nil)
	_ plugin.OnReferralCreated      = (*Extension)(nil)
	_ plugin.OnStatsReconciled      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry in the audit trail.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Heroes lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Hero hooks
// ──────────────────────────────────────────────────

// OnHeroRegistered implements plugin.OnHeroRegistered.
func (e *Extension) OnHeroRegistered(ctx context.Context, h *hero.Hero) error {
	return e.record(ctx, ActionHeroRegistered, SeverityInfo, OutcomeSuccess,
		ResourceHero, h.ID.String(), CategoryMembership, nil,
		"device_model", h.DeviceModel,
		"device_condition", h.DeviceCondition,
		"trade_value", h.TradeValue,
	)
}

// OnHeroUpdated implements plugin.OnHeroUpdated. Activation changes get
// their own action.
func (e *Extension) OnHeroUpdated(ctx context.Context, before, after *hero.Hero) error {
	action := ActionHeroUpdated
	switch {
	case before.IsActive && !after.IsActive:
		action = ActionHeroDeactivated
	case !before.IsActive && after.IsActive:
		action = ActionHeroReactivated
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceHero, after.ID.String(), CategoryMembership, nil,
		"points_before", before.Points,
		"points_after", after.Points,
	)
}

// OnPointsAwarded implements plugin.OnPointsAwarded.
func (e *Extension) OnPointsAwarded(ctx context.Context, h *hero.Hero, amount int64, reason string) error {
	action, severity := ActionPointsAwarded, SeverityInfo
	if amount < 0 {
		action, severity = ActionPointsDeducted, SeverityWarning
	}
	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourceHero, h.ID.String(), CategoryRewards, nil,
		"amount", amount,
		"reason", reason,
		"balance", h.Points,
	)
}

// OnTierChanged implements plugin.OnTierChanged.
func (e *Extension) OnTierChanged(ctx context.Context, h *hero.Hero, from, to valuation.Tier) error {
	return e.record(ctx, ActionTierChanged, SeverityInfo, OutcomeSuccess,
		ResourceHero, h.ID.String(), CategoryRewards, nil,
		"from", string(from),
		"to", string(to),
	)
}

// ──────────────────────────────────────────────────
// Trade-in hooks
// ──────────────────────────────────────────────────

// OnTradeInSubmitted implements plugin.OnTradeInSubmitted.
func (e *Extension) OnTradeInSubmitted(ctx context.Context, t *tradein.TradeIn) error {
	return e.record(ctx, ActionTradeInSubmitted, SeverityInfo, OutcomeSuccess,
		ResourceTradeIn, t.ID.String(), CategoryTradeIn, nil,
		"hero_id", t.HeroID.String(),
		"device_model", t.DeviceModel,
		"trade_value", t.TradeValue,
	)
}

// OnTradeInStatusChanged implements plugin.OnTradeInStatusChanged.
func (e *Extension) OnTradeInStatusChanged(ctx context.Context, t *tradein.TradeIn, from tradein.Status) error {
	action := ActionTradeInCompleted
	if t.Status == tradein.StatusCancelled {
		action = ActionTradeInCancelled
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceTradeIn, t.ID.String(), CategoryTradeIn, nil,
		"hero_id", t.HeroID.String(),
		"from", string(from),
		"to", string(t.Status),
	)
}

// ──────────────────────────────────────────────────
// Referral and stats hooks
// ──────────────────────────────────────────────────

// OnReferralCreated implements plugin.OnReferralCreated.
func (e *Extension) OnReferralCreated(ctx context.Context, r *referral.Referral) error {
	return e.record(ctx, ActionReferralCreated, SeverityInfo, OutcomeSuccess,
		ResourceReferral, r.ID.String(), CategoryRewards, nil,
		"referrer_id", r.ReferrerID.String(),
		"referee_id", r.RefereeID.String(),
		"points", r.PointsEarned,
	)
}

// OnStatsReconciled implements plugin.OnStatsReconciled. A reconciliation
// that had to correct drift is recorded as a warning.
func (e *Extension) OnStatsReconciled(ctx context.Context, before, after *stats.ProgramStats) error {
	severity, outcome := SeverityInfo, OutcomeSuccess
	var drift error
	if before != nil && !before.Equal(after) {
		severity, outcome = SeverityWarning, OutcomePartial
		drift = fmt.Errorf("aggregate drifted: rewards %d -> %d, active heroes %d -> %d",
			before.TotalRewards, after.TotalRewards, before.ActiveHeroes, after.ActiveHeroes)
	}
	return e.record(ctx, ActionStatsReconciled, severity, outcome,
		ResourceStats, "program", CategoryProgram, drift,
		"bottles_prevented", after.TotalBottlesPrevented,
		"co2_saved", after.TotalCO2Saved,
		"rewards", after.TotalRewards,
		"active_heroes", after.ActiveHeroes,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
