package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/opentracing/opentracing-go/ext"

	"kline_trader/internal/models"
	"kline_trader/pkg/tracing"
)

// Binance: "Unknown order sent." / "Order does not exist."
const (
	codeUnknownOrder    = -2011
	codeOrderNotExisted = -2013
)

type Config struct {
	BaseURL      string
	APIKey       string
	APISecret    string
	RecvWindowMs int64
	Timeout      time.Duration
}

// Client — REST-клиент Binance Spot. Один экземпляр на процесс, передаётся явно.
type Client struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
	recvWindow int64

	now func() time.Time
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:       &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		recvWindow: cfg.RecvWindowMs,
		now:        time.Now,
	}
}

// Close освобождает keep-alive соединения.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) sign(q url.Values) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	_, _ = io.WriteString(mac, q.Encode())
	return hex.EncodeToString(mac.Sum(nil))
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// IsNotFound — биржа не знает такой ордер (уже исполнен, отменён или не существовал).
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrOrderNotFound)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, signed bool, out any) error {
	op := method + " " + path

	span, ctx := tracing.StartExchangeSpan(ctx, op, q.Get("symbol"), q.Get("side"))
	defer span.Finish()
	if t := q.Get("type"); t != "" {
		span.SetTag(tracing.TagOrderType, t)
	}
	ext.HTTPMethod.Set(span, method)
	ext.HTTPUrl.Set(span, c.baseURL+path)

	if q == nil {
		q = url.Values{}
	}
	if signed {
		q.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
		if c.recvWindow > 0 {
			q.Set("recvWindow", strconv.FormatInt(c.recvWindow, 10))
		}
		q.Set("signature", c.sign(q))
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("%s new request: %w", op, err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		tracing.MarkError(span, err, 0)
		return fmt.Errorf("%s do: %w", op, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	ext.HTTPStatusCode.Set(span, uint16(resp.StatusCode))

	if resp.StatusCode/100 != 2 {
		var ae apiError
		if err := sonic.Unmarshal(data, &ae); err == nil && ae.Code != 0 {
			e := &models.Error{Kind: models.KindExchangeRejected, Op: op, Code: ae.Code, Msg: ae.Msg}
			if ae.Code == codeUnknownOrder || ae.Code == codeOrderNotExisted {
				e.Err = models.ErrOrderNotFound
			}
			tracing.MarkError(span, e, ae.Code)
			return e
		}
		e := models.Errorf(models.KindExchangeRejected, op, "http %d: %s", resp.StatusCode, string(data))
		tracing.MarkError(span, e, 0)
		return e
	}

	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s decode: %w; body=%s", op, err, string(data))
	}
	return nil
}
