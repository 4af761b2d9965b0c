package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gregtusar/levgate/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type TickerFeedConfig struct {
	URL            string
	Symbols        []string
	Fallback       decimal.Decimal
	ReconnectDelay time.Duration
	MaxReconnects  int
	PingInterval   time.Duration
}

// TickerFeed keeps the last traded price per symbol from a Bybit-style public
// ticker stream. Symbols without a tick resolve to the fallback price.
type TickerFeed struct {
	cfg    TickerFeedConfig
	logger *logrus.Logger

	mu      sync.RWMutex
	tickers map[string]models.Ticker
}

type subscribeMessage struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

type tickerMessage struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
	TS    int64  `json:"ts"`
	Data  struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
	} `json:"data"`
}

func NewTickerFeed(cfg TickerFeedConfig, logger *logrus.Logger) *TickerFeed {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	return &TickerFeed{
		cfg:     cfg,
		logger:  logger,
		tickers: make(map[string]models.Ticker),
	}
}

// ReferencePrice satisfies the gateway's price source contract.
func (f *TickerFeed) ReferencePrice(_ context.Context, _ models.ExchangeID, symbol string) (decimal.Decimal, error) {
	if t, ok := f.Ticker(symbol); ok {
		return t.LastPrice, nil
	}
	return f.cfg.Fallback, nil
}

func (f *TickerFeed) Ticker(symbol string) (models.Ticker, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.tickers[strings.ToUpper(symbol)]
	return t, ok
}

// Run connects and keeps reconnecting until ctx is done or MaxReconnects
// consecutive attempts have failed.
func (f *TickerFeed) Run(ctx context.Context) error {
	failures := 0
	for {
		err := f.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		failures++
		f.logger.WithError(err).WithField("attempt", failures).Warn("Ticker feed disconnected")
		if f.cfg.MaxReconnects > 0 && failures > f.cfg.MaxReconnects {
			return fmt.Errorf("ticker feed gave up after %d attempts: %w", failures, err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.cfg.ReconnectDelay):
		}
	}
}

func (f *TickerFeed) session(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	defer conn.Close()

	topics := make([]string, 0, len(f.cfg.Symbols))
	for _, s := range f.cfg.Symbols {
		topics = append(topics, "tickers."+strings.ToUpper(s))
	}
	if err := conn.WriteJSON(subscribeMessage{Op: "subscribe", Args: topics}); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	f.logger.WithField("topics", topics).Info("Subscribed to ticker feed")

	done := make(chan struct{})
	defer close(done)
	go f.keepAlive(ctx, conn, done)

	for {
		var msg tickerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read websocket message: %w", err)
		}
		f.handle(msg)
	}
}

func (f *TickerFeed) handle(msg tickerMessage) {
	if !strings.HasPrefix(msg.Topic, "tickers.") || msg.Data.LastPrice == "" {
		return
	}
	price, err := decimal.NewFromString(msg.Data.LastPrice)
	if err != nil || !price.IsPositive() {
		f.logger.WithField("topic", msg.Topic).Debug("Ignoring unusable ticker price")
		return
	}

	symbol := msg.Data.Symbol
	if symbol == "" {
		symbol = strings.TrimPrefix(msg.Topic, "tickers.")
	}
	ts := time.Now().UTC()
	if msg.TS > 0 {
		ts = time.UnixMilli(msg.TS).UTC()
	}

	f.mu.Lock()
	f.tickers[strings.ToUpper(symbol)] = models.Ticker{Symbol: symbol, LastPrice: price, Timestamp: ts}
	f.mu.Unlock()
}

// keepAlive is the only writer after subscription. Closing the connection on
// ctx cancellation unblocks the reader.
func (f *TickerFeed) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(f.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteJSON(subscribeMessage{Op: "ping"}); err != nil {
				f.logger.WithError(err).Error("Failed to send ping")
				conn.Close()
				return
			}
		}
	}
}
