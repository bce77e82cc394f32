package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	// DefaultProfitMargin is applied when Input.ProfitMargin is nil.
	DefaultProfitMargin = 0.20

	// NominalRatePerGram prices Diamond and Others items. Their value is driven by stones and
	// craftsmanship, so no market metal rate applies to them.
	NominalRatePerGram = 100.0
)

// Input represents the physical attributes of an item and the metal rates in force at calculation time.
type Input struct {
	Weight        float64
	Category      Category
	Purity        Purity
	MakingCharges float64
	StoneCharges  float64
	GoldRate      float64
	SilverRate    float64
	ProfitMargin  *float64
}

// Parts itemizes the sale price.
type Parts struct {
	MetalValue    float64 `json:"metalValue"`
	MakingCharges float64 `json:"makingCharges"`
	StoneCharges  float64 `json:"stoneCharges"`
	Profit        float64 `json:"profit"`
}

// Breakdown contains the priced result. Every currency value is rounded to 2 decimals.
type Breakdown struct {
	BasePrice           float64 `json:"basePrice"`
	PurityAdjustedPrice float64 `json:"purityAdjustedPrice"`
	CostPrice           float64 `json:"costPrice"`
	SalePrice           float64 `json:"salePrice"`
	Parts               Parts   `json:"breakdown"`
}

// Margin returns a pointer to m, for use in Input.ProfitMargin.
func Margin(m float64) *float64 {
	return &m
}

// ComputePrice converts an item's weight, purity, charges and the current metal rates into cost and sale prices.
//
// It has no side effects and may be called concurrently.
func ComputePrice(in Input) (Breakdown, error) {
	margin := DefaultProfitMargin
	if in.ProfitMargin != nil {
		margin = *in.ProfitMargin
	}
	if err := validate(in, margin); err != nil {
		return Breakdown{}, err
	}

	var basePrice, metalValue float64
	switch in.Category {
	case Gold:
		basePrice = in.Weight * in.GoldRate
		metalValue = basePrice * in.Purity.Multiplier()
	case Silver:
		basePrice = in.Weight * in.SilverRate
		metalValue = basePrice * in.Purity.Multiplier()
	default:
		basePrice = in.Weight * NominalRatePerGram
		metalValue = basePrice
	}

	costPrice := metalValue + in.MakingCharges + in.StoneCharges
	profit := costPrice * margin
	salePrice := costPrice + profit

	return Breakdown{
		BasePrice:           Round2(basePrice),
		PurityAdjustedPrice: Round2(metalValue),
		CostPrice:           Round2(costPrice),
		SalePrice:           Round2(salePrice),
		Parts: Parts{
			MetalValue:    Round2(metalValue),
			MakingCharges: Round2(in.MakingCharges),
			StoneCharges:  Round2(in.StoneCharges),
			Profit:        Round2(profit),
		},
	}, nil
}

func validate(in Input, margin float64) error {
	if !in.Category.Valid() {
		return invalid("category", string(in.Category), "must be one of Gold, Silver, Diamond, Others")
	}
	if !finite(in.Weight) || in.Weight <= 0 {
		return invalidNumber("weight", in.Weight, "must be greater than 0")
	}
	if !finite(in.MakingCharges) || in.MakingCharges < 0 {
		return invalidNumber("makingCharges", in.MakingCharges, "must be 0 or greater")
	}
	if !finite(in.StoneCharges) || in.StoneCharges < 0 {
		return invalidNumber("stoneCharges", in.StoneCharges, "must be 0 or greater")
	}
	if !finite(margin) || margin < 0 || margin >= 1 {
		return invalidNumber("profitMargin", margin, "must be in [0, 1)")
	}

	switch in.Category {
	case Gold:
		if !finite(in.GoldRate) || in.GoldRate <= 0 {
			return invalidNumber("goldRate", in.GoldRate, "must be greater than 0")
		}
	case Silver:
		if !finite(in.SilverRate) || in.SilverRate <= 0 {
			return invalidNumber("silverRate", in.SilverRate, "must be greater than 0")
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Round2 rounds v to 2 decimal places, half away from zero.
func Round2(v float64) float64 {
	if !finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
