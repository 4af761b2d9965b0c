package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gregtusar/levgate/pkg/models"
	"github.com/gregtusar/levgate/pkg/secrets"
	"github.com/sirupsen/logrus"
)

const maxResponseBytes = 1 << 20

type ClientOptions struct {
	Timeout    time.Duration
	RecvWindow int
	Sandbox    bool
	// BaseURLs overrides the built-in endpoint per exchange identifier.
	BaseURLs map[string]string
}

// Client submits signed orders. It holds no per-request state and is safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	recvWindow string
	sandbox    bool
	baseURLs   map[models.ExchangeID]string
	logger     *logrus.Logger
}

func NewClient(opts ClientOptions, logger *logrus.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RecvWindow <= 0 {
		opts.RecvWindow = 5000
	}

	baseURLs := make(map[models.ExchangeID]string, len(opts.BaseURLs))
	for name, url := range opts.BaseURLs {
		if id, ok := models.ParseExchangeID(name); ok && url != "" {
			baseURLs[id] = strings.TrimRight(url, "/")
		}
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		recvWindow: strconv.Itoa(opts.RecvWindow),
		sandbox:    opts.Sandbox,
		baseURLs:   baseURLs,
		logger:     logger,
	}
}

// PlaceOrder signs body and performs exactly one POST. It never retries.
func (c *Client) PlaceOrder(ctx context.Context, adapter Adapter, creds secrets.Credentials, body OrderBody, now time.Time) (Ack, error) {
	baseURL, path := adapter.Endpoint(c.sandbox)
	if override, ok := c.baseURLs[adapter.ID()]; ok {
		baseURL = override
	}

	scheme := adapter.AuthScheme()
	signed, err := Sign(scheme, creds, scheme.FormatTimestamp(now), c.recvWindow, path, body)
	if err != nil {
		return Ack{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(signed.Body))
	if err != nil {
		return Ack{}, &TransportError{Exchange: adapter.Name(), Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	scheme.AddAuthHeaders(req, creds, signed)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Ack{}, &TransportError{Exchange: adapter.Name(), Op: "submit order", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Ack{}, &TransportError{Exchange: adapter.Name(), Op: "read response", Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"exchange": adapter.ID(),
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("Exchange responded")

	ack, err := adapter.ParseAck(resp.StatusCode, data)
	if err != nil {
		return Ack{}, err
	}
	if ack.OrderLinkID == "" {
		ack.OrderLinkID = fmt.Sprint(body["orderLinkId"])
	}
	return ack, nil
}
