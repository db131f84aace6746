package pricing

import (
	"errors"
	"strings"
)

// ErrInvalidQuantity is returned for line items whose quantity cannot be priced
var ErrInvalidQuantity = errors.New("quantity must be greater than zero")

// DiscountTable maps a region code to a discount rate in [0,1).
// Regions missing from the table use the default rate.
type DiscountTable struct {
	rates       map[string]float64
	defaultRate float64
}

// NewDiscountTable copies rates into a read-only table. Region codes are case-insensitive.
func NewDiscountTable(rates map[string]float64, defaultRate float64) DiscountTable {
	table := DiscountTable{
		rates:       make(map[string]float64, len(rates)),
		defaultRate: defaultRate,
	}
	for region, rate := range rates {
		table.rates[normalizeRegion(region)] = rate
	}
	return table
}

// Rate returns the discount rate for a region
func (t DiscountTable) Rate(region string) float64 {
	if rate, ok := t.rates[normalizeRegion(region)]; ok {
		return rate
	}
	return t.defaultRate
}

// DiscountedUnitPrice applies a discount to a line total and spreads it back over the quantity:
// (quantity * unitPrice) * (1 - rate) / quantity
func DiscountedUnitPrice(quantity, unitPrice, rate float64) (float64, error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	discountedTotal := (quantity * unitPrice) * (1 - rate)
	return discountedTotal / quantity, nil
}

func normalizeRegion(region string) string {
	return strings.ToUpper(strings.TrimSpace(region))
}
