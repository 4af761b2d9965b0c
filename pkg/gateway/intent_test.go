package gateway

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/gregtusar/levgate/pkg/models"
)

func decodeRequest(t *testing.T, raw string) models.OrderRequest {
	t.Helper()
	var req models.OrderRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("failed to decode request: %v", err)
	}
	return req
}

func TestNewIntent_AppliesDefaults(t *testing.T) {
	req := decodeRequest(t, `{"exchange":"bybit","symbol":"SUPERUSDT","side":"Buy"}`)

	intent, err := NewIntent(req, time.Second)
	if err != nil {
		t.Fatalf("NewIntent returned error: %v", err)
	}
	if intent.Leverage != 10 {
		t.Errorf("leverage = %d, want 10", intent.Leverage)
	}
	if intent.Amount.String() != "100" {
		t.Errorf("amount = %s, want 100", intent.Amount)
	}
	if intent.StopLossPct.String() != "2" || intent.TakeProfitPct.String() != "5" {
		t.Errorf("stop/take = %s/%s, want 2/5", intent.StopLossPct, intent.TakeProfitPct)
	}
	if intent.SimulatedDelay != 0 {
		t.Errorf("expected no simulated delay, got %s", intent.SimulatedDelay)
	}
}

func TestNewIntent_AcceptsNumericStringsAndAliases(t *testing.T) {
	req := decodeRequest(t, `{"exchange":"Huobi","symbol":"BTC-USDT","side":"sell","leverage":"20","amount":"12.5","stopLoss":0,"delayMs":5000}`)

	intent, err := NewIntent(req, time.Second)
	if err != nil {
		t.Fatalf("NewIntent returned error: %v", err)
	}
	if intent.Exchange != models.ExchangeHTX {
		t.Errorf("exchange = %s, want htx", intent.Exchange)
	}
	if intent.Side != models.OrderSideSell {
		t.Errorf("side = %s, want Sell", intent.Side)
	}
	if intent.Leverage != 20 || intent.Amount.String() != "12.5" {
		t.Errorf("leverage/amount = %d/%s, want 20/12.5", intent.Leverage, intent.Amount)
	}
	if !intent.StopLossPct.IsZero() {
		t.Errorf("explicit zero stop loss was replaced by %s", intent.StopLossPct)
	}
	if intent.SimulatedDelay != time.Second {
		t.Errorf("delay = %s, want capped at 1s", intent.SimulatedDelay)
	}
}

func TestNewIntent_RejectsInvalidFields(t *testing.T) {
	cases := map[string]struct {
		raw   string
		field string
	}{
		"missing exchange": {`{"symbol":"X","side":"Buy"}`, "exchange"},
		"unknown exchange": {`{"exchange":"kraken","symbol":"X","side":"Buy"}`, "exchange"},
		"missing symbol":   {`{"exchange":"bybit","side":"Buy"}`, "symbol"},
		"missing side":     {`{"exchange":"bybit","symbol":"X"}`, "side"},
		"bad side":         {`{"exchange":"bybit","symbol":"X","side":"Long"}`, "side"},
		"zero leverage":    {`{"exchange":"bybit","symbol":"X","side":"Buy","leverage":0}`, "leverage"},
		"partial leverage": {`{"exchange":"bybit","symbol":"X","side":"Buy","leverage":2.5}`, "leverage"},
		"huge leverage":    {`{"exchange":"bybit","symbol":"X","side":"Buy","leverage":10000000000000000000}`, "leverage"},
		"zero amount":      {`{"exchange":"bybit","symbol":"X","side":"Buy","amount":0}`, "amount"},
		"negative stop":    {`{"exchange":"bybit","symbol":"X","side":"Buy","stopLoss":-1}`, "stopLoss"},
		"negative take":    {`{"exchange":"bybit","symbol":"X","side":"Buy","takeProfit":-1}`, "takeProfit"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewIntent(decodeRequest(t, tc.raw), time.Second)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %s, want %s", verr.Field, tc.field)
			}
		})
	}
}

func TestNewIntent_HugeDelayStaysPositive(t *testing.T) {
	req := decodeRequest(t, `{"exchange":"bybit","symbol":"X","side":"Buy","delayMs":"1000000000000000000000000000000"}`)

	intent, err := NewIntent(req, 0)
	if err != nil {
		t.Fatalf("NewIntent returned error: %v", err)
	}
	if intent.SimulatedDelay <= 0 {
		t.Errorf("delay = %s, want a positive duration", intent.SimulatedDelay)
	}

	intent, err = NewIntent(req, 2*time.Second)
	if err != nil {
		t.Fatalf("NewIntent returned error: %v", err)
	}
	if intent.SimulatedDelay != 2*time.Second {
		t.Errorf("delay = %s, want capped at 2s", intent.SimulatedDelay)
	}
}

func TestNewIntent_LargestLeverageIsKept(t *testing.T) {
	req := decodeRequest(t, `{"exchange":"bybit","symbol":"X","side":"Buy","leverage":9223372036854775807}`)

	intent, err := NewIntent(req, time.Second)
	if err != nil {
		t.Fatalf("NewIntent returned error: %v", err)
	}
	if intent.Leverage != math.MaxInt64 {
		t.Errorf("leverage = %d, want %d", intent.Leverage, int64(math.MaxInt64))
	}
}
