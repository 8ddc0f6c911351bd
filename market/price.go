package market

import "github.com/shopspring/decimal"

// PricePlaces is the minimum price increment for the instruments this bot
// trades, expressed as decimal places.
const PricePlaces = 2

// RoundPrice rounds x to PricePlaces, half away from zero. Rounding goes
// through decimal so 89.175 does not turn into 89.17 by way of binary floats.
func RoundPrice(x float64) float64 {
	return Round(x, PricePlaces)
}

// Round rounds x to places decimal places.
func Round(x float64, places int32) float64 {
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
