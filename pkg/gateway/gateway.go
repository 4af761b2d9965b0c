package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gregtusar/levgate/pkg/exchange"
	"github.com/gregtusar/levgate/pkg/models"
	"github.com/gregtusar/levgate/pkg/secrets"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Submitter performs the single outbound order call.
type Submitter interface {
	PlaceOrder(ctx context.Context, adapter exchange.Adapter, creds secrets.Credentials, body exchange.OrderBody, now time.Time) (exchange.Ack, error)
}

// Gateway turns an order intent into either a simulated result (no
// credentials) or one signed submission. Every exchange goes through the
// same path; per-exchange differences live in the adapters.
type Gateway struct {
	resolver  secrets.Resolver
	prices    PriceSource
	submitter Submitter
	logger    *logrus.Logger

	maxMockDelay time.Duration
	now          func() time.Time
	linkSuffix   func() string
}

type Option func(*Gateway)

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func WithLinkSuffix(fn func() string) Option {
	return func(g *Gateway) { g.linkSuffix = fn }
}

func WithMaxMockDelay(d time.Duration) Option {
	return func(g *Gateway) { g.maxMockDelay = d }
}

func New(resolver secrets.Resolver, prices PriceSource, submitter Submitter, logger *logrus.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		resolver:     resolver,
		prices:       prices,
		submitter:    submitter,
		logger:       logger,
		maxMockDelay: 5 * time.Second,
		now:          time.Now,
		linkSuffix:   randomSuffix,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handle validates an inbound request and places it.
func (g *Gateway) Handle(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error) {
	intent, err := NewIntent(req, g.maxMockDelay)
	if err != nil {
		return nil, err
	}
	return g.PlaceOrder(ctx, intent)
}

func (g *Gateway) PlaceOrder(ctx context.Context, intent models.OrderIntent) (*models.OrderResult, error) {
	adapter, ok := exchange.Lookup(intent.Exchange)
	if !ok {
		return nil, &ValidationError{Field: "exchange", Reason: fmt.Sprintf("unsupported exchange %q", intent.Exchange)}
	}

	creds, live := g.resolver.Resolve(ctx, intent.Exchange)

	now := g.now().UTC()
	linkID := fmt.Sprintf("%s_%d_%s", intent.Exchange, now.UnixMilli(), g.linkSuffix())

	log := g.logger.WithFields(logrus.Fields{
		"exchange":      intent.Exchange,
		"symbol":        intent.Symbol,
		"side":          intent.Side,
		"order_link_id": linkID,
		"has_api_key":   live,
	})

	price, err := g.prices.ReferencePrice(ctx, intent.Exchange, intent.Symbol)
	if err != nil && live {
		return nil, fmt.Errorf("failed to get reference price for %s: %w", intent.Symbol, err)
	}

	if !live {
		derived := Derive(intent, price)
		if err != nil {
			// Test orders still succeed, just without TP/SL targets.
			log.WithError(err).Warn("No reference price for test order")
			derived.TakeProfitPrice = decimal.NullDecimal{}
			derived.StopLossPrice = decimal.NullDecimal{}
		}
		log.WithField("mode", "mock").Info("API keys not configured, returning test order")
		return g.mock(ctx, adapter, intent, derived, linkID, now)
	}

	derived := Derive(intent, price)

	body := adapter.BuildOrderBody(intent, derived, linkID)
	log.WithField("mode", "live").Info("Submitting order")

	ack, err := g.submitter.PlaceOrder(ctx, adapter, creds, body, now)
	if err != nil {
		log.WithError(err).Error("Order submission failed")
		return nil, err
	}

	result := newResult(adapter.Name(), intent, derived, now)
	result.OrderID = ack.OrderID
	result.OrderLinkID = ack.OrderLinkID
	result.Status = models.OrderStatusSubmitted

	log.WithField("order_id", ack.OrderID).Info("Order submitted")
	return result, nil
}

// Exchanges lists supported exchanges and whether credentials are present.
func (g *Gateway) Exchanges(ctx context.Context) []models.ExchangeInfo {
	adapters := exchange.Adapters()
	out := make([]models.ExchangeInfo, 0, len(adapters))
	for _, a := range adapters {
		_, configured := g.resolver.Resolve(ctx, a.ID())
		out = append(out, models.ExchangeInfo{ID: a.ID(), Name: a.Name(), Configured: configured})
	}
	return out
}

// mock never touches the network.
func (g *Gateway) mock(ctx context.Context, adapter exchange.Adapter, intent models.OrderIntent, derived models.DerivedOrderParams, linkID string, now time.Time) (*models.OrderResult, error) {
	if intent.SimulatedDelay > 0 {
		timer := time.NewTimer(intent.SimulatedDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("simulated order cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	result := newResult(adapter.Name()+" (Test Mode)", intent, derived, now)
	result.OrderID = fmt.Sprintf("%s_test_%d", intent.Exchange, now.UnixMilli())
	result.OrderLinkID = linkID
	result.Status = models.OrderStatusMock
	return result, nil
}

func newResult(exchangeName string, intent models.OrderIntent, derived models.DerivedOrderParams, now time.Time) *models.OrderResult {
	return &models.OrderResult{
		Exchange:        exchangeName,
		Symbol:          intent.Symbol,
		Side:            intent.Side,
		Leverage:        intent.Leverage,
		Amount:          intent.Amount.String(),
		TotalAmount:     derived.NotionalString(),
		StopLoss:        intent.StopLossPct.String() + "%",
		TakeProfit:      intent.TakeProfitPct.String() + "%",
		StopLossPrice:   derived.StopLossString(),
		TakeProfitPrice: derived.TakeProfitString(),
		Timestamp:       now,
	}
}

// NewResponse wraps any outcome in the one response envelope.
func NewResponse(result *models.OrderResult, err error) models.OrderResponse {
	if err != nil {
		return models.OrderResponse{
			Success: false,
			Message: "Failed to place order: " + err.Error(),
			Error:   err.Error(),
		}
	}

	msg := fmt.Sprintf("Order placed on %s: %s", result.Exchange, result.OrderID)
	if result.Status == models.OrderStatusMock {
		msg = fmt.Sprintf("Test order on %s (no API keys): %s", result.Exchange, result.OrderID)
	}
	return models.OrderResponse{Success: true, Message: msg, Order: result}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
