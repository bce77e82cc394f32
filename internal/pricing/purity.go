package pricing

import "strings"

// Category is the kind of item being priced.
type Category string

const (
	Gold    Category = "Gold"
	Silver  Category = "Silver"
	Diamond Category = "Diamond"
	Others  Category = "Others"
)

// Categories lists every supported category.
var Categories = []Category{Gold, Silver, Diamond, Others}

// Valid reports whether c is a supported category.
func (c Category) Valid() bool {
	switch c {
	case Gold, Silver, Diamond, Others:
		return true
	}
	return false
}

// MetalRated reports whether the category is priced from a market metal rate.
func (c Category) MetalRated() bool {
	return c == Gold || c == Silver
}

// ParseCategory matches s case-insensitively against the supported categories.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", invalid("category", s, "must be one of Gold, Silver, Diamond, Others")
}

// Purity is a key into the purity table.
type Purity string

const (
	Karat24        Purity = "24k"
	Karat22        Purity = "22k"
	Karat18        Purity = "18k"
	Karat14        Purity = "14k"
	Karat10        Purity = "10k"
	Silver925      Purity = "925 Silver"
	Silver999      Purity = "999 Silver"
	PurityPure     Purity = "Pure"
	PurityStandard Purity = "Standard"
	PurityPremium  Purity = "Premium"
)

// UnknownPurityMultiplier is used for purity keys missing from the table.
// It assumes full purity, which overprices unrecognized keys.
const UnknownPurityMultiplier = 1.0

var purityTable = map[Purity]float64{
	Karat24:   24.0 / 24.0,
	Karat22:   22.0 / 24.0,
	Karat18:   18.0 / 24.0,
	Karat14:   14.0 / 24.0,
	Karat10:   10.0 / 24.0,
	Silver925: 0.925,
	Silver999: 0.999,
}

// Multiplier returns the fraction of precious metal for p, or UnknownPurityMultiplier.
func (p Purity) Multiplier() float64 {
	if m, ok := purityTable[p]; ok {
		return m
	}
	return UnknownPurityMultiplier
}

// Known reports whether p is in the purity table.
func (p Purity) Known() bool {
	_, ok := purityTable[p]
	return ok
}

// PurityOptions returns the purity keys offered for a category.
func PurityOptions(c Category) []Purity {
	switch c {
	case Gold:
		return []Purity{Karat24, Karat22, Karat18, Karat14, Karat10}
	case Silver:
		return []Purity{Silver925, Silver999}
	default:
		return []Purity{PurityPure, PurityStandard, PurityPremium}
	}
}
