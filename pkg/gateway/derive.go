package gateway

import (
	"context"

	"github.com/gregtusar/levgate/pkg/models"
	"github.com/shopspring/decimal"
)

// PriceSource supplies the price TP/SL targets are offset from.
type PriceSource interface {
	ReferencePrice(ctx context.Context, exchange models.ExchangeID, symbol string) (decimal.Decimal, error)
}

// StaticPrice returns the same price for every symbol. It keeps TP/SL output
// deterministic when no market data is wired in.
type StaticPrice decimal.Decimal

func (p StaticPrice) ReferencePrice(context.Context, models.ExchangeID, string) (decimal.Decimal, error) {
	return decimal.Decimal(p), nil
}

var hundred = decimal.NewFromInt(100)

// Derive computes notional and TP/SL targets. Buy places TP above and SL below
// the reference price; Sell inverts both. A zero percentage leaves that leg unset.
func Derive(intent models.OrderIntent, referencePrice decimal.Decimal) models.DerivedOrderParams {
	derived := models.DerivedOrderParams{
		Notional:       intent.Amount.Mul(decimal.NewFromInt(intent.Leverage)).Round(2),
		ReferencePrice: referencePrice,
	}

	up := intent.Side == models.OrderSideBuy
	if intent.TakeProfitPct.IsPositive() {
		derived.TakeProfitPrice = offset(referencePrice, intent.TakeProfitPct, up)
	}
	if intent.StopLossPct.IsPositive() {
		derived.StopLossPrice = offset(referencePrice, intent.StopLossPct, !up)
	}
	return derived
}

func offset(price, pct decimal.Decimal, up bool) decimal.NullDecimal {
	factor := pct.Div(hundred)
	if !up {
		factor = factor.Neg()
	}
	return decimal.NewNullDecimal(price.Mul(decimal.NewFromInt(1).Add(factor)).Round(4))
}
