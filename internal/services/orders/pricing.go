package orders

import "github.com/shopspring/decimal"

var (
	freeShippingFrom = decimal.NewFromInt(100)
	flatShipping     = decimal.NewFromInt(10)
	taxRate          = decimal.NewFromFloat(0.15)
)

type totals struct {
	Items    decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

func priceOrder(items decimal.Decimal) totals {
	items = items.Round(2)
	shipping := flatShipping
	if items.GreaterThanOrEqual(freeShippingFrom) {
		shipping = decimal.Zero
	}
	tax := items.Mul(taxRate).Round(2)
	return totals{
		Items:    items,
		Shipping: shipping,
		Tax:      tax,
		Total:    items.Add(shipping).Add(tax),
	}
}
