// Package pricing turns a rate plan and an event count into a priced
// breakdown. The engine is a pure function: no I/O, no clock reads, no
// failure modes. Malformed sub-structures default to zero and are skipped.
package pricing

import (
	"fmt"
	"sort"
	"time"

	rateplandomain "github.com/meterline/meterline/internal/rateplan/domain"
	"github.com/shopspring/decimal"
)

// LineItem is one explained step of the priced total. Amount is signed:
// positive charges, negative credits.
type LineItem struct {
	Label       string
	Calculation string
	Amount      decimal.Decimal
}

// Result is the priced outcome. EventCount is always the real event count,
// never the billed usage after freemium or minimum adjustments.
type Result struct {
	ModelType  string
	EventCount int64
	Breakdown  []LineItem
	Total      decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// Price applies the pricing pipeline: freemium, minimum-usage floor, pricing
// models, setup fees, discounts, minimum-charge floor, final rounding.
// today only gates discount windows.
func Price(plan *rateplandomain.RatePlan, actualUsage int64, today time.Time) Result {
	res := Result{
		ModelType:  plan.BillingFrequency,
		EventCount: actualUsage,
		Total:      decimal.Zero,
	}

	// Freemium reduces billed usage before any model runs.
	billedUsage := actualUsage
	var freeUnits int64
	for _, f := range plan.Freemiums {
		freeUnits += i64(f.FreeUnits)
	}
	if freeUnits > 0 {
		applied := min(freeUnits, actualUsage)
		billedUsage = actualUsage - applied
		if applied > 0 {
			res.add("Freemium Credit",
				fmt.Sprintf("%d free units applied (actual usage: %d, billed: %d)", applied, actualUsage, billedUsage),
				decimal.Zero)
		}
	}

	// Minimum-usage floor raises billed usage to the committed level.
	var minUsage int64
	for _, c := range plan.MinimumCommitments {
		if v := i64(c.MinimumUsage); v > minUsage {
			minUsage = v
		}
	}
	if minUsage > 0 && billedUsage < minUsage {
		added := minUsage - billedUsage
		billedUsage = minUsage
		res.add("Minimum Usage Commitment",
			fmt.Sprintf("Billed for minimum %d units (actual: %d, added: %d)", minUsage, actualUsage, added),
			decimal.Zero)
	}

	usage := billedUsage

	if plan.FlatFee != nil {
		flat := plan.FlatFee
		base := dec(flat.Amount)
		res.add("Flat Fee", "Base", base)

		included := i64(flat.IncludedUnits)
		overRate := dec(flat.OverageRate)
		if overUnits := usage - included; overUnits > 0 && overRate.IsPositive() {
			res.add("Overage Charges",
				fmt.Sprintf("%d * %s", overUnits, overRate),
				overRate.Mul(decimal.NewFromInt(overUnits)))
		}
	}

	for _, ub := range plan.UsageBasedPricings {
		per := dec(ub.PricePerUnit)
		res.add("Usage Charges",
			fmt.Sprintf("%s * %d", per, usage),
			per.Mul(decimal.NewFromInt(usage)))
	}

	for _, tp := range plan.TieredPricings {
		priceTiered(&res, tp, usage)
	}
	for _, vp := range plan.VolumePricings {
		priceVolume(&res, vp, usage)
	}
	for _, sp := range plan.StairStepPricings {
		priceStairStep(&res, sp, usage)
	}

	setupSum := decimal.Zero
	for _, f := range plan.SetupFees {
		setupSum = setupSum.Add(dec(f.Amount))
	}
	if setupSum.IsPositive() {
		res.add("Setup Fee", "Fixed", setupSum)
	}

	applyDiscounts(&res, plan.Discounts, today)

	// Minimum-charge floor, applied after discounts. A zero total stays zero:
	// the floor only lifts an existing charge.
	minCharge := decimal.Zero
	for _, c := range plan.MinimumCommitments {
		if v := dec(c.MinimumAmount); v.GreaterThan(minCharge) {
			minCharge = v
		}
	}
	if minCharge.IsPositive() && res.Total.IsPositive() && res.Total.LessThan(minCharge) {
		uplift := minCharge.Sub(res.Total)
		res.add("Minimum Charge Commitment",
			fmt.Sprintf("Final floor adjusted to minimum charge of %s (after discounts)", minCharge),
			uplift)
	}

	res.Total = res.Total.Round(2)
	return res
}

func (r *Result) add(label, calculation string, amount decimal.Decimal) {
	r.Breakdown = append(r.Breakdown, LineItem{Label: label, Calculation: calculation, Amount: amount})
	r.Total = r.Total.Add(amount)
}

// priceTiered walks sorted tiers, consuming units at each tier's rate.
// Units beyond the last tier are charged at the overage rate when set, else
// at the last tier's rate.
func priceTiered(res *Result, tp rateplandomain.TieredPricing, usage int64) {
	tiers := sortedTiers(tp.Tiers)
	remaining := usage
	var lastRate decimal.Decimal
	var lastMax int64

	for _, t := range tiers {
		if remaining <= 0 {
			break
		}
		lo := i64(t.MinUnits)
		if usage < lo {
			continue
		}
		price := dec(t.PricePerUnit)
		lastRate = price

		var units int64
		var hiLabel string
		if t.MaxUnits == nil {
			units = remaining
			hiLabel = "∞"
		} else {
			units = min(remaining, *t.MaxUnits-lo+1)
			lastMax = *t.MaxUnits
			hiLabel = fmt.Sprintf("%d", *t.MaxUnits)
		}
		res.add(fmt.Sprintf("Tier %d-%s", lo, hiLabel),
			fmt.Sprintf("%d * %s", units, price),
			price.Mul(decimal.NewFromInt(units)))
		remaining -= units
	}

	if remaining > 0 {
		rate := dec(tp.OverageUnitRate)
		if !rate.IsPositive() {
			rate = lastRate
		}
		if rate.IsPositive() {
			start := lastMax + 1
			res.add(fmt.Sprintf("Overage Units (%d-%d)", start, start+remaining-1),
				fmt.Sprintf("%d * %s", remaining, rate),
				rate.Mul(decimal.NewFromInt(remaining)))
		}
	}
}

// priceVolume charges the entire usage at the rate of the single containing
// tier. Below the first tier nothing is charged; above the last tier the
// overage rate applies, falling back to the last tier's rate.
func priceVolume(res *Result, vp rateplandomain.VolumePricing, usage int64) {
	tiers := sortedTiers(vp.Tiers)
	if len(tiers) == 0 {
		return
	}

	var chosen *rateplandomain.Tier
	for i := range tiers {
		lo := i64(tiers[i].MinUnits)
		if usage >= lo && (tiers[i].MaxUnits == nil || usage <= *tiers[i].MaxUnits) {
			chosen = &tiers[i]
			break
		}
	}

	if chosen == nil {
		if usage < i64(tiers[0].MinUnits) {
			return
		}
		// Above every tier.
		if rate := dec(vp.OverageUnitRate); rate.IsPositive() {
			res.add("Volume Overage Charge",
				fmt.Sprintf("%d * %s", usage, rate),
				rate.Mul(decimal.NewFromInt(usage)))
			return
		}
		chosen = &tiers[len(tiers)-1]
	}

	price := dec(chosen.PricePerUnit)
	hi := "∞"
	if chosen.MaxUnits != nil {
		hi = fmt.Sprintf("%d", *chosen.MaxUnits)
	}
	res.add(fmt.Sprintf("Volume Charge (Tier %d-%s)", i64(chosen.MinUnits), hi),
		fmt.Sprintf("%d * %s", usage, price),
		price.Mul(decimal.NewFromInt(usage)))
}

// priceStairStep adds the flat charge of the step containing usage. Below the
// first step nothing is charged; above the last step the overage rate applies
// per unit, falling back to the last step's flat charge.
func priceStairStep(res *Result, sp rateplandomain.StairStepPricing, usage int64) {
	steps := append([]rateplandomain.Step(nil), sp.Steps...)
	if len(steps) == 0 {
		return
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return i64(steps[i].UsageThresholdStart) < i64(steps[j].UsageThresholdStart)
	})

	var chosen *rateplandomain.Step
	for i := range steps {
		lo := i64(steps[i].UsageThresholdStart)
		if usage >= lo && (steps[i].UsageThresholdEnd == nil || usage <= *steps[i].UsageThresholdEnd) {
			chosen = &steps[i]
			break
		}
	}

	if chosen == nil {
		if usage < i64(steps[0].UsageThresholdStart) {
			return
		}
		if rate := dec(sp.OverageUnitRate); rate.IsPositive() {
			res.add("Stair Step Overage Charge",
				fmt.Sprintf("%d * %s", usage, rate),
				rate.Mul(decimal.NewFromInt(usage)))
			return
		}
		chosen = &steps[len(steps)-1]
	}

	hi := "∞"
	if chosen.UsageThresholdEnd != nil {
		hi = fmt.Sprintf("%d", *chosen.UsageThresholdEnd)
	}
	res.add(fmt.Sprintf("Stair Step Charge (Step %d-%s)", i64(chosen.UsageThresholdStart), hi),
		"Flat fee", dec(chosen.FlatCharge))
}

// applyDiscounts subtracts each discount whose date window contains today.
// Percentage amounts round half-up to 2 decimals; every discount is clipped
// so the running total never goes negative.
func applyDiscounts(res *Result, discounts []rateplandomain.Discount, today time.Time) {
	day := truncateToDay(today)
	for _, d := range discounts {
		if d.StartDate != nil && day.Before(truncateToDay(d.StartDate.Time)) {
			continue
		}
		if d.EndDate != nil && day.After(truncateToDay(d.EndDate.Time)) {
			continue
		}

		amt := decimal.Zero
		label := "Discount"
		switch d.Kind {
		case rateplandomain.DiscountPercentage:
			if pct := dec(d.Percentage); pct.IsPositive() {
				amt = res.Total.Mul(pct).Div(oneHundred).Round(2)
				label = fmt.Sprintf("Discount (%s%%)", pct)
			}
		case rateplandomain.DiscountFlat:
			if flat := dec(d.FlatAmount); flat.IsPositive() {
				amt = flat
				label = "Flat Discount"
			}
		default:
			// Unknown kind: infer from the populated field, flat preferred.
			if flat := dec(d.FlatAmount); flat.IsPositive() {
				amt = flat
				label = "Flat Discount"
			} else if pct := dec(d.Percentage); pct.IsPositive() {
				amt = res.Total.Mul(pct).Div(oneHundred).Round(2)
				label = fmt.Sprintf("Discount (%s%%)", pct)
			}
		}

		if !amt.IsPositive() {
			continue
		}
		if amt.GreaterThan(res.Total) {
			amt = res.Total
		}
		res.add(label, label, amt.Neg())
	}
}

func sortedTiers(in []rateplandomain.Tier) []rateplandomain.Tier {
	tiers := append([]rateplandomain.Tier(nil), in...)
	sort.SliceStable(tiers, func(i, j int) bool {
		return i64(tiers[i].MinUnits) < i64(tiers[j].MinUnits)
	})
	return tiers
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return *p
}

func i64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
