package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gregtusar/levgate/pkg/models"
	"github.com/spf13/cast"
)

// OrderBody is the exact parameter set that is both signed and sent.
type OrderBody map[string]any

// Keys returns the body keys in ascending order.
func (b OrderBody) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ack is an exchange acknowledgement of an accepted order.
type Ack struct {
	OrderID     string
	OrderLinkID string
}

type Adapter interface {
	ID() models.ExchangeID
	Name() string
	Endpoint(sandbox bool) (baseURL, path string)
	BuildOrderBody(intent models.OrderIntent, derived models.DerivedOrderParams, orderLinkID string) OrderBody
	AuthScheme() AuthScheme
	ParseAck(status int, body []byte) (Ack, error)
}

// AckFormat describes where an exchange puts its result discriminator and
// identifiers. Paths are dotted; numeric segments index into arrays.
type AckFormat struct {
	CodePath      string
	MessagePath   string
	ErrorCodePath string
	// SuccessCodes lists codes meaning success. An empty string matches a
	// response without a code field at all.
	SuccessCodes []string
	OrderIDPath  string
	LinkIDPath   string
}

func (f AckFormat) succeeded(code string, present bool) bool {
	for _, ok := range f.SuccessCodes {
		if !present && ok == "" {
			return true
		}
		if present && ok == code {
			return true
		}
	}
	return false
}

// venue implements Adapter from static data.
type venue struct {
	id         models.ExchangeID
	name       string
	liveURL    string
	sandboxURL string
	orderPath  string

	extra         OrderBody
	leverageField string
	takeProfit    OrderBody
	stopLoss      OrderBody

	scheme AuthScheme
	ack    AckFormat
}

func (v *venue) ID() models.ExchangeID  { return v.id }
func (v *venue) Name() string           { return v.name }
func (v *venue) AuthScheme() AuthScheme { return v.scheme }

func (v *venue) Endpoint(sandbox bool) (string, string) {
	if sandbox && v.sandboxURL != "" {
		return v.sandboxURL, v.orderPath
	}
	return v.liveURL, v.orderPath
}

func (v *venue) BuildOrderBody(intent models.OrderIntent, derived models.DerivedOrderParams, orderLinkID string) OrderBody {
	body := OrderBody{
		"symbol":      intent.Symbol,
		"side":        string(intent.Side),
		"orderType":   string(models.OrderTypeMarket),
		"qty":         derived.NotionalString(),
		"timeInForce": models.TimeInForceIOC,
		"orderLinkId": orderLinkID,
	}
	for k, val := range v.extra {
		body[k] = val
	}
	if v.leverageField != "" {
		body[v.leverageField] = intent.Leverage
	}

	// A leg with a zero percentage is left off entirely.
	if derived.TakeProfitPrice.Valid {
		body["takeProfit"] = derived.TakeProfitString()
		for k, val := range v.takeProfit {
			body[k] = val
		}
	}
	if derived.StopLossPrice.Valid {
		body["stopLoss"] = derived.StopLossString()
		for k, val := range v.stopLoss {
			body[k] = val
		}
	}
	return body
}

func (v *venue) ParseAck(status int, data []byte) (Ack, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Ack{}, &TransportError{Exchange: v.name, Op: "decode response", Err: err}
	}

	code, hasCode := lookupString(doc, v.ack.CodePath)
	if !v.ack.succeeded(code, hasCode) {
		if v.ack.ErrorCodePath != "" {
			if errCode, ok := lookupString(doc, v.ack.ErrorCodePath); ok {
				code, hasCode = errCode, true
			}
		}
		// Without a code there is nothing the exchange actually refused.
		if !hasCode {
			return Ack{}, &TransportError{
				Exchange: v.name,
				Op:       "decode response",
				Err:      fmt.Errorf("no result code in response (HTTP %d)", status),
			}
		}
		msg, _ := lookupString(doc, v.ack.MessagePath)
		return Ack{}, &RejectedError{Exchange: v.name, Code: code, Message: msg}
	}

	if status < 200 || status > 299 {
		return Ack{}, &TransportError{
			Exchange: v.name,
			Op:       "submit order",
			Err:      fmt.Errorf("unexpected HTTP status %d", status),
		}
	}

	orderID, _ := lookupString(doc, v.ack.OrderIDPath)
	if orderID == "" {
		return Ack{}, &TransportError{
			Exchange: v.name,
			Op:       "decode response",
			Err:      errors.New("order id missing from response"),
		}
	}
	linkID, _ := lookupString(doc, v.ack.LinkIDPath)
	return Ack{OrderID: orderID, OrderLinkID: linkID}, nil
}

func lookupString(doc any, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return "", false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return "", false
			}
			cur = node[idx]
		default:
			return "", false
		}
	}
	switch val := cur.(type) {
	case nil:
		return "", false
	case json.Number:
		return val.String(), true
	}
	s, err := cast.ToStringE(cur)
	if err != nil {
		return "", false
	}
	return s, true
}
