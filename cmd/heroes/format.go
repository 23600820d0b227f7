package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/leaderboard"
	"github.com/xraph/heroes/stats"
	"github.com/xraph/heroes/types"
	"github.com/xraph/heroes/valuation"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func writeQuote(out io.Writer, q valuation.Quote) error {
	tw := newTable(out)
	model := q.Model
	if !q.KnownModel {
		model += " (unlisted)"
	}
	condition := string(q.Condition)
	if !q.KnownCondition {
		condition += " (unrecognized)"
	}
	fmt.Fprintf(tw, "model\t%s\n", model)
	fmt.Fprintf(tw, "condition\t%s\n", condition)
	fmt.Fprintf(tw, "base value\t%d\n", q.BaseValue)
	fmt.Fprintf(tw, "multiplier\t%.2f\n", q.Multiplier)
	fmt.Fprintf(tw, "trade value\t%d\n", q.TradeValue)
	fmt.Fprintf(tw, "credit\t%s\n", q.Credit.String())
	fmt.Fprintf(tw, "bottles prevented\t%d\n", q.BottlesPrevented)
	fmt.Fprintf(tw, "co2 saved (kg)\t%d\n", q.CO2Saved)
	fmt.Fprintf(tw, "starting points\t%d\n", q.Points)
	fmt.Fprintf(tw, "tier\t%s\n", q.Tier)
	return tw.Flush()
}

func writeStats(out io.Writer, ps *stats.ProgramStats) error {
	tw := newTable(out)
	fmt.Fprintf(tw, "bottles prevented\t%d\n", ps.TotalBottlesPrevented)
	fmt.Fprintf(tw, "co2 saved (kg)\t%d\n", ps.TotalCO2Saved)
	fmt.Fprintf(tw, "rewards\t%d (%s)\n", ps.TotalRewards, types.Credit(ps.TotalRewards))
	fmt.Fprintf(tw, "active heroes\t%d\n", ps.ActiveHeroes)
	return tw.Flush()
}

func writeTop(out io.Writer, list []*hero.Hero) error {
	tw := newTable(out)
	fmt.Fprintln(tw, "#\tNAME\tPOINTS\tTIER")
	for i, h := range list {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, h.Name, h.Points, h.Level)
	}
	return tw.Flush()
}

func writeBoard(out io.Writer, entries []leaderboard.Entry) error {
	tw := newTable(out)
	fmt.Fprintln(tw, "#\tHERO\tPOINTS\tTIER")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", e.Rank, e.HeroID, e.Points, valuation.TierFor(e.Points))
	}
	return tw.Flush()
}
