// Package domain models the rate-plan composite served by the pricing
// catalogue. The core never writes rate plans; it reads them to price usage.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountKind distinguishes the two discount shapes a plan may carry.
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "PERCENTAGE"
	DiscountFlat       DiscountKind = "FLAT"
)

// Date is a day-granular instant. Upstream serializes either a bare date or a
// full timestamp, so unmarshalling accepts both.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}

// RatePlan is the composite pricing document. Every sub-structure is
// optional; the pricing engine skips what is absent.
type RatePlan struct {
	RatePlanID       int64  `json:"ratePlanId"`
	RatePlanName     string `json:"ratePlanName"`
	Description      string `json:"description"`
	BillingFrequency string `json:"billingFrequency"`
	PaymentType      string `json:"paymentType"`
	BillableMetricID *int64 `json:"billableMetricId"`
	Status           string `json:"status"`

	FlatFee            *FlatFee            `json:"flatFee"`
	TieredPricings     []TieredPricing     `json:"tieredPricings"`
	VolumePricings     []VolumePricing     `json:"volumePricings"`
	UsageBasedPricings []UsageBasedPricing `json:"usageBasedPricings"`
	StairStepPricings  []StairStepPricing  `json:"stairStepPricings"`

	SetupFees          []SetupFee          `json:"setupFees"`
	Discounts          []Discount          `json:"discounts"`
	Freemiums          []Freemium          `json:"freemiums"`
	MinimumCommitments []MinimumCommitment `json:"minimumCommitments"`
}

// FlatFee is a recurring charge with an included-unit allowance.
type FlatFee struct {
	Amount        *decimal.Decimal `json:"flatFeeAmount"`
	IncludedUnits *int64           `json:"includedUnits"`
	OverageRate   *decimal.Decimal `json:"overageRate"`
}

// Tier is a closed range [MinUnits, MaxUnits]. A nil MaxUnits is unbounded.
type Tier struct {
	MinUnits     *int64           `json:"minUnits"`
	MaxUnits     *int64           `json:"maxUnits"`
	PricePerUnit *decimal.Decimal `json:"pricePerUnit"`
}

// TieredPricing charges graduated rates across consumed tiers.
type TieredPricing struct {
	Tiers           []Tier           `json:"tiers"`
	OverageUnitRate *decimal.Decimal `json:"overageUnitRate"`
}

// VolumePricing charges the whole usage at the rate of the containing tier.
type VolumePricing struct {
	Tiers           []Tier           `json:"tiers"`
	OverageUnitRate *decimal.Decimal `json:"overageUnitRate"`
}

// UsageBasedPricing charges a single rate for every billed unit.
type UsageBasedPricing struct {
	PricePerUnit *decimal.Decimal `json:"pricePerUnit"`
}

// Step is a flat-charge bucket over [UsageThresholdStart, UsageThresholdEnd].
type Step struct {
	UsageThresholdStart *int64           `json:"usageThresholdStart"`
	UsageThresholdEnd   *int64           `json:"usageThresholdEnd"`
	FlatCharge          *decimal.Decimal `json:"flatCharge"`
}

// StairStepPricing charges the flat amount of the bucket containing usage.
type StairStepPricing struct {
	Steps           []Step           `json:"steps"`
	OverageUnitRate *decimal.Decimal `json:"overageUnitRate"`
}

type SetupFee struct {
	Amount *decimal.Decimal `json:"amount"`
}

// Discount reduces the running total while today falls inside its window.
// Nil dates leave the window open on that side.
type Discount struct {
	Kind       DiscountKind     `json:"discountType"`
	Percentage *decimal.Decimal `json:"percentage"`
	FlatAmount *decimal.Decimal `json:"flatAmount"`
	StartDate  *Date            `json:"startDate"`
	EndDate    *Date            `json:"endDate"`
}

type Freemium struct {
	FreeUnits *int64 `json:"freeUnits"`
}

type MinimumCommitment struct {
	MinimumUsage  *int64           `json:"minimumUsage"`
	MinimumAmount *decimal.Decimal `json:"minimumAmount"`
}
