// Package heroes provides the loyalty and trade-in ledger behind a device
// trade-in program.
//
// Heroes is designed as a library, not a service. A request handler calls
// into the Ledger for each user action and the Ledger keeps hero records,
// trade-ins, referral payouts and one program-wide aggregate consistent
// with each other. It provides:
//
//   - Device valuation (base value table times condition multiplier)
//   - Planet Points with Bronze, Silver and Gold tiers
//   - Environmental impact tracking per hero and program-wide
//   - A one-way trade-in lifecycle (pending, then completed or cancelled)
//   - Referral bonuses
//   - Pluggable stores (memory, PostgreSQL, MongoDB) and lifecycle plugins
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/heroes"
//	    "github.com/xraph/heroes/store/memory"
//	)
//
//	l := heroes.New(memory.New())
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	h, err := l.RegisterHero(ctx, heroes.RegisterInput{
//	    Email:           "ada@example.com",
//	    Name:            "Ada",
//	    DeviceModel:     "iPhone 13",
//	    DeviceCondition: "good",
//	})
//	// h.TradeValue == 765, h.BottlesPrevented == 1530, h.Points == 100
//
// # Consistency
//
// Every compound change runs as one unit of work through store.Store's
// Transact: registering a hero and growing the aggregate, completing a
// trade-in and crediting the hero, recording a referral and paying the
// referrer. The aggregate therefore always equals the sum over hero
// records. ReconcileStats recomputes it from scratch after administrative
// corrections made with UpdateImpactStats.
//
// The tier always follows the point balance. Points only change through
// AwardPoints, referral and trade-in credits, or a profile patch, and each
// of those re-derives the tier.
//
// # Errors
//
// Lookups of unknown records fail with a not-found sentinel such as
// ErrHeroNotFound; use IsNotFound to test for any of them. Bad input fails
// with ValidationError or a MultiError of them, which match
// ErrInvalidInput.
//
// # TypeID
//
// All entities use TypeID-based identifiers: hero_…, trd_… and ref_….
// They are K-sortable, globally unique and URL-safe.
package heroes
