package exchange

import (
	"github.com/gregtusar/levgate/pkg/models"
)

var venues = map[models.ExchangeID]*venue{
	models.ExchangeBybit: {
		id:         models.ExchangeBybit,
		name:       "Bybit",
		liveURL:    "https://api.bybit.com",
		sandboxURL: "https://api-testnet.bybit.com",
		orderPath:  "/v5/order/create",
		extra: OrderBody{
			"category":    "linear",
			"positionIdx": 0,
			"reduceOnly":  false,
		},
		takeProfit: OrderBody{"tpOrderType": string(models.OrderTypeMarket)},
		stopLoss:   OrderBody{"slOrderType": string(models.OrderTypeMarket)},
		scheme: AuthScheme{
			KeyHeader:        "X-BAPI-API-KEY",
			SignHeader:       "X-BAPI-SIGN",
			TimestampHeader:  "X-BAPI-TIMESTAMP",
			RecvWindowHeader: "X-BAPI-RECV-WINDOW",
		},
		ack: AckFormat{
			CodePath:     "retCode",
			MessagePath:  "retMsg",
			SuccessCodes: []string{"0"},
			OrderIDPath:  "result.orderId",
			LinkIDPath:   "result.orderLinkId",
		},
	},
	models.ExchangeBinance: {
		id:         models.ExchangeBinance,
		name:       "Binance",
		liveURL:    "https://fapi.binance.com",
		sandboxURL: "https://testnet.binancefuture.com",
		orderPath:  "/fapi/v1/order",
		extra:      OrderBody{"defaultType": "future"},
		scheme: AuthScheme{
			KeyHeader:        "X-MBX-APIKEY",
			SignHeader:       "X-MBX-SIGNATURE",
			TimestampHeader:  "X-MBX-TIMESTAMP",
			RecvWindowHeader: "X-MBX-RECV-WINDOW",
		},
		ack: AckFormat{
			CodePath:     "code",
			MessagePath:  "msg",
			SuccessCodes: []string{""},
			OrderIDPath:  "orderId",
			LinkIDPath:   "clientOrderId",
		},
	},
	models.ExchangeOKX: {
		id:        models.ExchangeOKX,
		name:      "OKX",
		liveURL:   "https://www.okx.com",
		orderPath: "/api/v5/trade/order",
		extra:     OrderBody{"tdMode": "isolated"},
		scheme: AuthScheme{
			KeyHeader:        "OK-ACCESS-KEY",
			SignHeader:       "OK-ACCESS-SIGN",
			TimestampHeader:  "OK-ACCESS-TIMESTAMP",
			PassphraseHeader: "OK-ACCESS-PASSPHRASE",
			Canonicalization: CanonicalJSON,
			Prehash:          PrehashRequestLine,
			Encoding:         EncodingBase64,
			Timestamp:        TimestampISO,
		},
		ack: AckFormat{
			CodePath:     "code",
			MessagePath:  "msg",
			SuccessCodes: []string{"0"},
			OrderIDPath:  "data.0.ordId",
			LinkIDPath:   "data.0.clOrdId",
		},
	},
	models.ExchangeBitget: {
		id:        models.ExchangeBitget,
		name:      "Bitget",
		liveURL:   "https://api.bitget.com",
		orderPath: "/api/v2/mix/order/place-order",
		extra:     OrderBody{"marginMode": "isolated"},
		scheme: AuthScheme{
			KeyHeader:        "ACCESS-KEY",
			SignHeader:       "ACCESS-SIGN",
			TimestampHeader:  "ACCESS-TIMESTAMP",
			PassphraseHeader: "ACCESS-PASSPHRASE",
			Canonicalization: CanonicalJSON,
			Prehash:          PrehashRequestLine,
			Encoding:         EncodingBase64,
		},
		ack: AckFormat{
			CodePath:     "code",
			MessagePath:  "msg",
			SuccessCodes: []string{"00000"},
			OrderIDPath:  "data.orderId",
			LinkIDPath:   "data.clientOid",
		},
	},
	models.ExchangeHTX: {
		id:            models.ExchangeHTX,
		name:          "HTX",
		liveURL:       "https://api.hbdm.com",
		orderPath:     "/linear-swap-api/v1/swap_order",
		leverageField: "lever_rate",
		scheme: AuthScheme{
			KeyHeader:        "X-HTX-ACCESS-KEY",
			SignHeader:       "X-HTX-SIGNATURE",
			TimestampHeader:  "X-HTX-TIMESTAMP",
			RecvWindowHeader: "X-HTX-RECV-WINDOW",
		},
		ack: AckFormat{
			CodePath:      "status",
			MessagePath:   "err_msg",
			ErrorCodePath: "err_code",
			SuccessCodes:  []string{"ok"},
			OrderIDPath:   "data.order_id_str",
			LinkIDPath:    "data.client_order_id",
		},
	},
	models.ExchangeGate: {
		id:         models.ExchangeGate,
		name:       "Gate.io",
		liveURL:    "https://api.gateio.ws",
		sandboxURL: "https://fx-api-testnet.gateio.ws",
		orderPath:  "/api/v4/futures/usdt/orders",
		takeProfit: OrderBody{"tp_trigger": "index"},
		stopLoss:   OrderBody{"sl_trigger": "index"},
		scheme: AuthScheme{
			KeyHeader:        "KEY",
			SignHeader:       "SIGN",
			TimestampHeader:  "Timestamp",
			RecvWindowHeader: "X-Gate-Recv-Window",
		},
		ack: AckFormat{
			CodePath:     "label",
			MessagePath:  "message",
			SuccessCodes: []string{""},
			OrderIDPath:  "id",
			LinkIDPath:   "text",
		},
	},
}

var venueOrder = []models.ExchangeID{
	models.ExchangeBinance,
	models.ExchangeBybit,
	models.ExchangeOKX,
	models.ExchangeBitget,
	models.ExchangeHTX,
	models.ExchangeGate,
}

// Lookup selects the adapter for an exchange.
func Lookup(id models.ExchangeID) (Adapter, bool) {
	v, ok := venues[id]
	if !ok {
		return nil, false
	}
	return v, true
}

// Adapters returns every supported exchange in a fixed order.
func Adapters() []Adapter {
	out := make([]Adapter, 0, len(venueOrder))
	for _, id := range venueOrder {
		out = append(out, venues[id])
	}
	return out
}
