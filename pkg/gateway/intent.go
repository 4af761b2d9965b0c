package gateway

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gregtusar/levgate/pkg/models"
	"github.com/shopspring/decimal"
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// NewIntent validates an inbound request and fills documented defaults.
// exchange, symbol and side are required; numeric fields fall back to
// leverage=10, amount=100, stopLoss=2, takeProfit=5 when absent.
func NewIntent(req models.OrderRequest, maxDelay time.Duration) (models.OrderIntent, error) {
	if strings.TrimSpace(req.Exchange) == "" {
		return models.OrderIntent{}, &ValidationError{Field: "exchange", Reason: "required"}
	}
	id, ok := models.ParseExchangeID(req.Exchange)
	if !ok {
		return models.OrderIntent{}, &ValidationError{Field: "exchange", Reason: fmt.Sprintf("unsupported exchange %q", req.Exchange)}
	}

	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		return models.OrderIntent{}, &ValidationError{Field: "symbol", Reason: "required"}
	}

	if strings.TrimSpace(req.Side) == "" {
		return models.OrderIntent{}, &ValidationError{Field: "side", Reason: "required"}
	}
	side, ok := models.ParseOrderSide(req.Side)
	if !ok {
		return models.OrderIntent{}, &ValidationError{Field: "side", Reason: fmt.Sprintf("must be Buy or Sell, got %q", req.Side)}
	}

	leverage := withDefault(req.Leverage, models.DefaultLeverage)
	if !leverage.IsInteger() || leverage.LessThan(decimal.NewFromInt(1)) {
		return models.OrderIntent{}, &ValidationError{Field: "leverage", Reason: "must be a whole number of at least 1"}
	}
	if leverage.GreaterThan(maxLeverage) {
		return models.OrderIntent{}, &ValidationError{Field: "leverage", Reason: fmt.Sprintf("must not exceed %s", maxLeverage)}
	}

	amount := withDefault(req.Amount, models.DefaultAmount)
	if !amount.IsPositive() {
		return models.OrderIntent{}, &ValidationError{Field: "amount", Reason: "must be greater than 0"}
	}

	stopLoss := withDefault(req.StopLoss, models.DefaultStopLossPct)
	if stopLoss.IsNegative() {
		return models.OrderIntent{}, &ValidationError{Field: "stopLoss", Reason: "must not be negative"}
	}
	takeProfit := withDefault(req.TakeProfit, models.DefaultTakeProfitPct)
	if takeProfit.IsNegative() {
		return models.OrderIntent{}, &ValidationError{Field: "takeProfit", Reason: "must not be negative"}
	}

	var delay time.Duration
	if req.DelayMs.Valid && req.DelayMs.Decimal.IsPositive() {
		limit := maxDelay
		if limit <= 0 {
			limit = time.Duration(math.MaxInt64)
		}
		ms := decimal.Min(req.DelayMs.Decimal, decimal.NewFromInt(limit.Milliseconds()))
		delay = time.Duration(ms.IntPart()) * time.Millisecond
		if delay > limit {
			delay = limit
		}
	}

	return models.OrderIntent{
		Exchange:       id,
		Symbol:         symbol,
		Side:           side,
		Leverage:       leverage.IntPart(),
		Amount:         amount,
		StopLossPct:    stopLoss,
		TakeProfitPct:  takeProfit,
		SimulatedDelay: delay,
	}, nil
}

// maxLeverage keeps leverage representable as int64.
var maxLeverage = decimal.NewFromInt(math.MaxInt64)

func withDefault(v decimal.NullDecimal, def int64) decimal.Decimal {
	if !v.Valid {
		return decimal.NewFromInt(def)
	}
	return v.Decimal
}
