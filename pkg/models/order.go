package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ExchangeID string

const (
	ExchangeBinance ExchangeID = "binance"
	ExchangeBybit   ExchangeID = "bybit"
	ExchangeOKX     ExchangeID = "okx"
	ExchangeBitget  ExchangeID = "bitget"
	ExchangeHTX     ExchangeID = "htx"
	ExchangeGate    ExchangeID = "gate"
)

var exchangeAliases = map[string]ExchangeID{
	"binance": ExchangeBinance,
	"bybit":   ExchangeBybit,
	"okx":     ExchangeOKX,
	"bitget":  ExchangeBitget,
	"htx":     ExchangeHTX,
	"huobi":   ExchangeHTX,
	"gate":    ExchangeGate,
	"gateio":  ExchangeGate,
	"gate.io": ExchangeGate,
}

// ParseExchangeID accepts the canonical identifiers plus a few common aliases.
func ParseExchangeID(s string) (ExchangeID, bool) {
	id, ok := exchangeAliases[strings.ToLower(strings.TrimSpace(s))]
	return id, ok
}

type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

func ParseOrderSide(s string) (OrderSide, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return OrderSideBuy, true
	case "sell":
		return OrderSideSell, true
	}
	return "", false
}

type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
)

const TimeInForceIOC = "IOC"

type OrderStatus string

const (
	OrderStatusMock      OrderStatus = "Mock Success"
	OrderStatusSubmitted OrderStatus = "Submitted"
	OrderStatusFilled    OrderStatus = "Filled"
	OrderStatusRejected  OrderStatus = "Rejected"
)

const (
	DefaultLeverage      = 10
	DefaultAmount        = 100
	DefaultStopLossPct   = 2
	DefaultTakeProfitPct = 5
)

// OrderRequest is the inbound JSON shape. Numeric fields accept numbers or
// numeric strings.
type OrderRequest struct {
	Exchange   string              `json:"exchange"`
	Symbol     string              `json:"symbol"`
	Side       string              `json:"side"`
	Leverage   decimal.NullDecimal `json:"leverage"`
	Amount     decimal.NullDecimal `json:"amount"`
	StopLoss   decimal.NullDecimal `json:"stopLoss"`
	TakeProfit decimal.NullDecimal `json:"takeProfit"`
	DelayMs    decimal.NullDecimal `json:"delayMs"`
}

// OrderIntent is a validated, exchange-agnostic request to open a leveraged
// position. Amount > 0 and Leverage >= 1 always hold.
type OrderIntent struct {
	Exchange      ExchangeID
	Symbol        string
	Side          OrderSide
	Leverage      int64
	Amount        decimal.Decimal
	StopLossPct   decimal.Decimal
	TakeProfitPct decimal.Decimal

	// SimulatedDelay only applies to mock fulfillment.
	SimulatedDelay time.Duration
}

type DerivedOrderParams struct {
	Notional        decimal.Decimal
	ReferencePrice  decimal.Decimal
	TakeProfitPrice decimal.NullDecimal
	StopLossPrice   decimal.NullDecimal
}

func (p DerivedOrderParams) NotionalString() string {
	return p.Notional.StringFixed(2)
}

func (p DerivedOrderParams) TakeProfitString() string {
	if !p.TakeProfitPrice.Valid {
		return ""
	}
	return p.TakeProfitPrice.Decimal.StringFixed(4)
}

func (p DerivedOrderParams) StopLossString() string {
	if !p.StopLossPrice.Valid {
		return ""
	}
	return p.StopLossPrice.Decimal.StringFixed(4)
}

type OrderResult struct {
	OrderID         string      `json:"orderId"`
	OrderLinkID     string      `json:"orderLinkId"`
	Exchange        string      `json:"exchange"`
	Symbol          string      `json:"symbol"`
	Side            OrderSide   `json:"side"`
	Leverage        int64       `json:"leverage"`
	Amount          string      `json:"amount"`
	TotalAmount     string      `json:"totalAmount"`
	StopLoss        string      `json:"stopLoss"`
	TakeProfit      string      `json:"takeProfit"`
	StopLossPrice   string      `json:"stopLossPrice,omitempty"`
	TakeProfitPrice string      `json:"takeProfitPrice,omitempty"`
	Status          OrderStatus `json:"status"`
	Timestamp       time.Time   `json:"timestamp"`
}

// OrderResponse is the single envelope returned for every outcome.
type OrderResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Order   *OrderResult `json:"order,omitempty"`
	Error   string       `json:"error,omitempty"`
}
