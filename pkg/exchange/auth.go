package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gregtusar/levgate/pkg/secrets"
	"github.com/spf13/cast"
)

type Canonicalization int

const (
	// CanonicalSortedQuery renders key=value pairs sorted by key and joined with &.
	CanonicalSortedQuery Canonicalization = iota
	// CanonicalJSON uses the JSON body bytes as sent.
	CanonicalJSON
)

type Prehash int

const (
	// PrehashKeyWindow signs timestamp + apiKey + recvWindow + canonical.
	PrehashKeyWindow Prehash = iota
	// PrehashRequestLine signs timestamp + method + path + canonical.
	PrehashRequestLine
)

type SignatureEncoding int

const (
	EncodingHex SignatureEncoding = iota
	EncodingBase64
)

type TimestampFormat int

const (
	TimestampMillis TimestampFormat = iota
	TimestampISO
)

// AuthScheme is the per-exchange authentication recipe. Header roles are fixed;
// an empty header name means the exchange does not take that header.
type AuthScheme struct {
	KeyHeader        string
	SignHeader       string
	TimestampHeader  string
	RecvWindowHeader string
	PassphraseHeader string

	Canonicalization Canonicalization
	Prehash          Prehash
	Encoding         SignatureEncoding
	Timestamp        TimestampFormat
}

func (s AuthScheme) FormatTimestamp(t time.Time) string {
	if s.Timestamp == TimestampISO {
		return t.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

type SignedRequest struct {
	Body       []byte
	Canonical  string
	Timestamp  string
	RecvWindow string
	Signature  string
}

// Canonicalize renders the body under the given rule. Values are stringified
// the same way for every key, so the output depends only on the body content.
func Canonicalize(body OrderBody, rule Canonicalization) (string, error) {
	if rule == CanonicalJSON {
		data, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("failed to encode order body: %w", err)
		}
		return string(data), nil
	}

	pairs := make([]string, 0, len(body))
	for _, k := range body.Keys() {
		v, err := cast.ToStringE(body[k])
		if err != nil {
			return "", fmt.Errorf("failed to render %s: %w", k, err)
		}
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, "&"), nil
}

// Sign canonicalizes and signs body. The returned Body is the exact payload to
// send; encoding/json writes map keys in sorted order so it is stable too.
func Sign(scheme AuthScheme, creds secrets.Credentials, timestamp, recvWindow, path string, body OrderBody) (SignedRequest, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return SignedRequest{}, fmt.Errorf("failed to encode order body: %w", err)
	}

	canonical := string(payload)
	if scheme.Canonicalization == CanonicalSortedQuery {
		canonical, err = Canonicalize(body, CanonicalSortedQuery)
		if err != nil {
			return SignedRequest{}, err
		}
	}

	var message string
	switch scheme.Prehash {
	case PrehashRequestLine:
		message = timestamp + http.MethodPost + path + canonical
	default:
		message = timestamp + creds.APIKey + recvWindow + canonical
	}

	return SignedRequest{
		Body:       payload,
		Canonical:  canonical,
		Timestamp:  timestamp,
		RecvWindow: recvWindow,
		Signature:  computeHMAC(message, creds.APISecret, scheme.Encoding),
	}, nil
}

func (s AuthScheme) AddAuthHeaders(req *http.Request, creds secrets.Credentials, signed SignedRequest) {
	req.Header.Set(s.KeyHeader, creds.APIKey)
	req.Header.Set(s.SignHeader, signed.Signature)
	req.Header.Set(s.TimestampHeader, signed.Timestamp)
	if s.RecvWindowHeader != "" {
		req.Header.Set(s.RecvWindowHeader, signed.RecvWindow)
	}
	if s.PassphraseHeader != "" && creds.Passphrase != "" {
		req.Header.Set(s.PassphraseHeader, creds.Passphrase)
	}
}

func computeHMAC(message, secret string, encoding SignatureEncoding) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	sum := h.Sum(nil)
	if encoding == EncodingBase64 {
		return base64.StdEncoding.EncodeToString(sum)
	}
	return hex.EncodeToString(sum)
}
