// Package payment は決済代行（Paystack）のHTTPクライアント。
// 失敗はerrorではなくResult.OK=falseとMessageで返す。
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.paystack.co"

type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// 決済代行の応答。OK=trueならDataに代行側のdataがそのまま入る
type Result struct {
	OK      bool
	Data    json.RawMessage
	Message string
}

type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return NewClientWithHTTP(cfg, &http.Client{Timeout: timeout})
}

func NewClientWithHTTP(cfg Config, hc *http.Client) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{secretKey: cfg.SecretKey, baseURL: base, http: hc}
}

// 最小通貨単位（kobo/セント）。x.xx5は切り上げ
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

type initializeRequest struct {
	Email       string  `json:"email"`
	Amount      int64   `json:"amount"`
	Reference   string  `json:"reference"`
	CallbackURL *string `json:"callback_url"`
}

func (c *Client) InitializePayment(ctx context.Context, email string, amount decimal.Decimal, reference string, callbackURL string) Result {
	body := initializeRequest{
		Email:     email,
		Amount:    ToMinorUnits(amount),
		Reference: reference,
	}
	if callbackURL != "" {
		body.CallbackURL = &callbackURL
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Result{Message: fmt.Sprintf("encode request: %v", err)}
	}
	return c.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(payload))
}

func (c *Client) VerifyPayment(ctx context.Context, reference string) Result {
	return c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method string, path string, body io.Reader) Result {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Result{Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return Result{Message: fmt.Sprintf("payment provider unreachable: %v", err)}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Result{Message: fmt.Sprintf("read response: %v", err)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Result{Message: fmt.Sprintf("malformed provider response (HTTP %d)", res.StatusCode)}
	}

	if res.StatusCode != http.StatusOK {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("payment provider returned HTTP %d", res.StatusCode)
		}
		return Result{Message: msg}
	}

	return Result{OK: env.Status, Data: env.Data, Message: env.Message}
}
