package exchange

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gregtusar/levgate/pkg/models"
	"github.com/shopspring/decimal"
)

func derivedFor(tp, sl bool) models.DerivedOrderParams {
	d := models.DerivedOrderParams{
		Notional:       decimal.NewFromInt(1000),
		ReferencePrice: decimal.NewFromInt(1),
	}
	if tp {
		d.TakeProfitPrice = decimal.NewNullDecimal(decimal.RequireFromString("1.05"))
	}
	if sl {
		d.StopLossPrice = decimal.NewNullDecimal(decimal.RequireFromString("0.98"))
	}
	return d
}

func testIntent(id models.ExchangeID) models.OrderIntent {
	return models.OrderIntent{
		Exchange: id,
		Symbol:   "SUPERUSDT",
		Side:     models.OrderSideSell,
		Leverage: 10,
		Amount:   decimal.NewFromInt(100),
	}
}

func TestBuildOrderBody_ExchangeSpecificFields(t *testing.T) {
	cases := []struct {
		id   models.ExchangeID
		want map[string]any
	}{
		{models.ExchangeBinance, map[string]any{"defaultType": "future"}},
		{models.ExchangeBybit, map[string]any{"category": "linear", "tpOrderType": "Market", "slOrderType": "Market"}},
		{models.ExchangeOKX, map[string]any{"tdMode": "isolated"}},
		{models.ExchangeBitget, map[string]any{"marginMode": "isolated"}},
		{models.ExchangeHTX, map[string]any{"lever_rate": int64(10)}},
		{models.ExchangeGate, map[string]any{"tp_trigger": "index", "sl_trigger": "index"}},
	}

	for _, tc := range cases {
		t.Run(string(tc.id), func(t *testing.T) {
			adapter, ok := Lookup(tc.id)
			if !ok {
				t.Fatalf("no adapter for %s", tc.id)
			}
			body := adapter.BuildOrderBody(testIntent(tc.id), derivedFor(true, true), "link-1")

			common := map[string]any{
				"symbol":      "SUPERUSDT",
				"side":        "Sell",
				"orderType":   "Market",
				"qty":         "1000.00",
				"timeInForce": "IOC",
				"orderLinkId": "link-1",
				"takeProfit":  "1.0500",
				"stopLoss":    "0.9800",
			}
			for k, want := range common {
				if body[k] != want {
					t.Errorf("body[%s] = %v, want %v", k, body[k], want)
				}
			}
			for k, want := range tc.want {
				if body[k] != want {
					t.Errorf("body[%s] = %v, want %v", k, body[k], want)
				}
			}
		})
	}
}

func TestBuildOrderBody_OmitsUnsetLegs(t *testing.T) {
	adapter, _ := Lookup(models.ExchangeGate)
	body := adapter.BuildOrderBody(testIntent(models.ExchangeGate), derivedFor(true, false), "link-1")

	if _, ok := body["stopLoss"]; ok {
		t.Errorf("stopLoss should be omitted")
	}
	if _, ok := body["sl_trigger"]; ok {
		t.Errorf("sl_trigger should be omitted with its leg")
	}
	if body["tp_trigger"] != "index" {
		t.Errorf("tp_trigger = %v, want index", body["tp_trigger"])
	}
}

func TestParseAck_Success(t *testing.T) {
	cases := []struct {
		id       models.ExchangeID
		response string
		orderID  string
		linkID   string
	}{
		{models.ExchangeBybit, `{"retCode":0,"retMsg":"OK","result":{"orderId":"b-1","orderLinkId":"l-1"}}`, "b-1", "l-1"},
		{models.ExchangeBinance, `{"orderId":283194212,"clientOrderId":"l-2","status":"NEW"}`, "283194212", "l-2"},
		{models.ExchangeOKX, `{"code":"0","msg":"","data":[{"ordId":"o-3","clOrdId":"l-3","sCode":"0"}]}`, "o-3", "l-3"},
		{models.ExchangeBitget, `{"code":"00000","msg":"success","data":{"orderId":"g-4","clientOid":"l-4"}}`, "g-4", "l-4"},
		{models.ExchangeHTX, `{"status":"ok","data":{"order_id":9.1e17,"order_id_str":"910000000000000000","client_order_id":"l-5"}}`, "910000000000000000", "l-5"},
		{models.ExchangeGate, `{"id":15675394,"text":"t-l-6","status":"finished"}`, "15675394", "t-l-6"},
	}

	for _, tc := range cases {
		t.Run(string(tc.id), func(t *testing.T) {
			adapter, _ := Lookup(tc.id)
			ack, err := adapter.ParseAck(http.StatusOK, []byte(tc.response))
			if err != nil {
				t.Fatalf("ParseAck returned error: %v", err)
			}
			if ack.OrderID != tc.orderID || ack.OrderLinkID != tc.linkID {
				t.Errorf("ack = %+v, want %s/%s", ack, tc.orderID, tc.linkID)
			}
		})
	}
}

func TestParseAck_Rejections(t *testing.T) {
	cases := []struct {
		id       models.ExchangeID
		status   int
		response string
		code     string
		message  string
	}{
		{models.ExchangeBybit, http.StatusOK, `{"retCode":10001,"retMsg":"insufficient balance"}`, "10001", "insufficient balance"},
		{models.ExchangeBinance, http.StatusBadRequest, `{"code":-2019,"msg":"Margin is insufficient."}`, "-2019", "Margin is insufficient."},
		{models.ExchangeOKX, http.StatusOK, `{"code":"51008","msg":"Order failed","data":[]}`, "51008", "Order failed"},
		{models.ExchangeHTX, http.StatusOK, `{"status":"error","err_code":1047,"err_msg":"Insufficient margin available."}`, "1047", "Insufficient margin available."},
		{models.ExchangeGate, http.StatusBadRequest, `{"label":"INSUFFICIENT_AVAILABLE","message":"balance not enough"}`, "INSUFFICIENT_AVAILABLE", "balance not enough"},
	}

	for _, tc := range cases {
		t.Run(string(tc.id), func(t *testing.T) {
			adapter, _ := Lookup(tc.id)
			_, err := adapter.ParseAck(tc.status, []byte(tc.response))

			var rejected *RejectedError
			if !errors.As(err, &rejected) {
				t.Fatalf("expected *RejectedError, got %v", err)
			}
			if rejected.Code != tc.code || rejected.Message != tc.message {
				t.Errorf("rejection = %s/%s, want %s/%s", rejected.Code, rejected.Message, tc.code, tc.message)
			}
		})
	}
}

func TestParseAck_TransportFailures(t *testing.T) {
	adapter, _ := Lookup(models.ExchangeBybit)

	for name, tc := range map[string]struct {
		status   int
		response string
	}{
		"not json":         {http.StatusOK, `upstream timeout`},
		"missing order id": {http.StatusOK, `{"retCode":0,"retMsg":"OK","result":{}}`},
		"server error":     {http.StatusInternalServerError, `{"retCode":0,"retMsg":"OK","result":{"orderId":"x"}}`},
		"error page":       {http.StatusServiceUnavailable, `{"message":"service unavailable"}`},
		"empty object":     {http.StatusOK, `{}`},
		"array body":       {http.StatusOK, `[]`},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := adapter.ParseAck(tc.status, []byte(tc.response))
			if !IsTransport(err) {
				t.Errorf("expected transport error, got %v", err)
			}
			if IsRejected(err) {
				t.Errorf("response without a code must not count as a rejection: %v", err)
			}
		})
	}
}

func TestParseAck_MissingCodeOnEveryVenue(t *testing.T) {
	for _, adapter := range Adapters() {
		t.Run(string(adapter.ID()), func(t *testing.T) {
			_, err := adapter.ParseAck(http.StatusServiceUnavailable, []byte(`{"message":"service unavailable"}`))
			if !IsTransport(err) {
				t.Errorf("expected transport error, got %v", err)
			}
		})
	}
}

func TestAdapters_FixedOrder(t *testing.T) {
	var ids []models.ExchangeID
	for _, a := range Adapters() {
		ids = append(ids, a.ID())
	}
	want := []models.ExchangeID{"binance", "bybit", "okx", "bitget", "htx", "gate"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("adapter %d = %s, want %s", i, ids[i], want[i])
		}
	}
}
