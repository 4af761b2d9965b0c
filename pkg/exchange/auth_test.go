package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gregtusar/levgate/pkg/secrets"
)

var testCreds = secrets.Credentials{APIKey: "key", APISecret: "secret", Passphrase: "phrase"}

func sampleBody() OrderBody {
	return OrderBody{
		"symbol":      "SUPERUSDT",
		"side":        "Buy",
		"qty":         "1000.00",
		"category":    "linear",
		"positionIdx": 0,
		"reduceOnly":  false,
	}
}

func TestCanonicalize_SortsKeys(t *testing.T) {
	got, err := Canonicalize(sampleBody(), CanonicalSortedQuery)
	if err != nil {
		t.Fatalf("Canonicalize returned error: %v", err)
	}
	want := "category=linear&positionIdx=0&qty=1000.00&reduceOnly=false&side=Buy&symbol=SUPERUSDT"
	if got != want {
		t.Errorf("canonical = %s, want %s", got, want)
	}
}

func TestSign_IsDeterministic(t *testing.T) {
	scheme := venues["bybit"].scheme

	first, err := Sign(scheme, testCreds, "1700000000000", "5000", "/v5/order/create", sampleBody())
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	second, err := Sign(scheme, testCreds, "1700000000000", "5000", "/v5/order/create", sampleBody())
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	if first.Signature != second.Signature || string(first.Body) != string(second.Body) {
		t.Errorf("same input produced different output")
	}
	if len(first.Signature) != 64 {
		t.Errorf("hex signature length = %d, want 64", len(first.Signature))
	}
}

func TestSign_ChangesWithAnyField(t *testing.T) {
	scheme := venues["bybit"].scheme
	base, _ := Sign(scheme, testCreds, "1700000000000", "5000", "/v5/order/create", sampleBody())

	changed := sampleBody()
	changed["qty"] = "1000.01"
	other, _ := Sign(scheme, testCreds, "1700000000000", "5000", "/v5/order/create", changed)
	if base.Signature == other.Signature {
		t.Errorf("changing qty did not change the signature")
	}

	later, _ := Sign(scheme, testCreds, "1700000000001", "5000", "/v5/order/create", sampleBody())
	if base.Signature == later.Signature {
		t.Errorf("changing the timestamp did not change the signature")
	}
}

func TestSign_RequestLineBase64(t *testing.T) {
	scheme := venues["okx"].scheme
	ts := scheme.FormatTimestamp(time.UnixMilli(1700000000123))
	if ts != "2023-11-14T22:13:20.123Z" {
		t.Fatalf("timestamp = %s", ts)
	}

	signed, err := Sign(scheme, testCreds, ts, "5000", "/api/v5/trade/order", sampleBody())
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	if signed.Canonical != string(signed.Body) {
		t.Errorf("JSON canonical form should equal the sent body")
	}

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(ts + "POST" + "/api/v5/trade/order" + string(signed.Body)))
	if want := base64.StdEncoding.EncodeToString(mac.Sum(nil)); signed.Signature != want {
		t.Errorf("signature = %s, want %s", signed.Signature, want)
	}
}

func TestAddAuthHeaders_Passphrase(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v5/trade/order", nil)
	scheme := venues["okx"].scheme
	scheme.AddAuthHeaders(req, testCreds, SignedRequest{Signature: "sig", Timestamp: "ts"})

	if req.Header.Get("OK-ACCESS-PASSPHRASE") != "phrase" {
		t.Errorf("missing passphrase header")
	}
	if req.Header.Get("OK-ACCESS-SIGN") != "sig" || req.Header.Get("OK-ACCESS-TIMESTAMP") != "ts" {
		t.Errorf("unexpected headers: %v", req.Header)
	}
}
