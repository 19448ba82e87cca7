// Package binance reads historical klines from the Binance spot REST API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"CryptoSign/internal/domain/models"
	domrepo "CryptoSign/internal/domain/repository"
	"CryptoSign/internal/service/ratelimit"
	applogger "CryptoSign/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.binance.com"
	maxLimit       = 1000
)

// Client implements BarSource over GET /api/v3/klines.
type Client struct {
	http    *resty.Client
	limit   int
	limiter *ratelimit.Limiter
	l       *applogger.Logger
}

var _ domrepo.BarSource = (*Client)(nil)

// New creates a klines client. An empty baseURL uses the public endpoint.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cli := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Accept", "application/json")
	return &Client{http: cli, limit: maxLimit, l: applogger.Nop()}
}

// SetLimiter paces page requests; nil disables pacing.
func (c *Client) SetLimiter(l *ratelimit.Limiter) { c.limiter = l }

// SetLogger injects a structured logger.
func (c *Client) SetLogger(l *applogger.Logger) {
	if l != nil {
		c.l = l
	}
}

func interval(g models.Granularity) (string, time.Duration, error) {
	switch g {
	case models.Hourly:
		return "1h", time.Hour, nil
	case models.Daily:
		return "1d", 24 * time.Hour, nil
	default:
		return "", 0, fmt.Errorf("unsupported granularity: %s", g)
	}
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Bars pages through klines with open time in [from, to).
func (c *Client) Bars(ctx context.Context, symbol string, from, to time.Time, g models.Granularity) ([]models.PriceBar, error) {
	iv, step, err := interval(g)
	if err != nil {
		return nil, err
	}
	out := make([]models.PriceBar, 0, int(to.Sub(from)/step)+1)
	cursor := from
	for cursor.Before(to) {
		page, err := c.page(ctx, symbol, iv, cursor, to)
		if err != nil {
			return nil, err
		}
		for _, b := range page {
			if !b.Timestamp.Before(to) {
				continue
			}
			if n := len(out); n > 0 && !b.Timestamp.After(out[n-1].Timestamp) {
				continue
			}
			out = append(out, b)
		}
		if len(page) < c.limit {
			break
		}
		cursor = page[len(page)-1].Timestamp.Add(step)
	}
	c.l.Debug("binance klines ok",
		applogger.String("symbol", symbol),
		applogger.String("interval", iv),
		applogger.Int("rows", len(out)),
	)
	return out, nil
}

func (c *Client) page(ctx context.Context, symbol, iv string, from, to time.Time) ([]models.PriceBar, error) {
	if err := c.limiter.Wait(ctx, "klines"); err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":    symbol,
			"interval":  iv,
			"startTime": strconv.FormatInt(from.UnixMilli(), 10),
			"endTime":   strconv.FormatInt(to.UnixMilli()-1, 10),
			"limit":     strconv.Itoa(c.limit),
		}).
		Get("/api/v3/klines")
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		var ae apiError
		if json.Unmarshal(resp.Body(), &ae) == nil && ae.Msg != "" {
			return nil, fmt.Errorf("binance klines %s: status %d: %s (%d)", symbol, resp.StatusCode(), ae.Msg, ae.Code)
		}
		return nil, fmt.Errorf("binance klines %s: status %d", symbol, resp.StatusCode())
	}
	return parseKlines(resp.Body())
}

// parseKlines decodes [openTime, "open", "high", "low", "close", "volume", ...] rows.
func parseKlines(body []byte) ([]models.PriceBar, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parse klines: %w", err)
	}
	out := make([]models.PriceBar, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("parse klines: row %d has %d fields", i, len(row))
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, fmt.Errorf("parse klines: row %d open time: %w", i, err)
		}
		var vals [5]float64
		for k := range vals {
			var s string
			if err := json.Unmarshal(row[k+1], &s); err != nil {
				return nil, fmt.Errorf("parse klines: row %d field %d: %w", i, k+1, err)
			}
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("parse klines: row %d field %d: %w", i, k+1, err)
			}
			vals[k] = d.InexactFloat64()
		}
		out = append(out, models.PriceBar{
			Timestamp: time.UnixMilli(openMs).UTC(),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}
	return out, nil
}
