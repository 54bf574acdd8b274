// Package currency converts base-currency (INR) prices for display. Rates are
// advisory: a failed lookup degrades to a multiplier of 1.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	Base = "INR"
	CNY  = "CNY"
)

// Display is an amount ready to render.
type Display struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Symbol   string          `json:"symbol"`
	Rate     decimal.Decimal `json:"rate"`
}

// CurrencyForLanguage picks the display currency for a UI language.
func CurrencyForLanguage(lang string) string {
	if lang == "zh-TW" {
		return CNY
	}
	return Base
}

// Symbol is the currency sign shown for a UI language.
func Symbol(lang string) string {
	if lang == "" || lang == "en" {
		return "₹"
	}
	return "¥"
}

type Converter struct {
	url    string
	ttl    time.Duration
	http   *http.Client
	logger *log.Logger
	now    func() time.Time

	group     singleflight.Group
	mu        sync.RWMutex
	rates     map[string]decimal.Decimal
	fetchedAt time.Time
}

func NewConverter(ratesURL string, ttl time.Duration, httpClient *http.Client, logger *log.Logger) *Converter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Converter{url: ratesURL, ttl: ttl, http: httpClient, logger: logger, now: time.Now}
}

// Rates returns the cached multiplier table, refreshing it once the TTL has
// passed. Concurrent refreshes share one request.
func (c *Converter) Rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	c.mu.RLock()
	rates, fetchedAt := c.rates, c.fetchedAt
	c.mu.RUnlock()
	if rates != nil && c.now().Sub(fetchedAt) < c.ttl {
		return rates, nil
	}

	v, err, _ := c.group.Do("rates", func() (any, error) {
		c.mu.RLock()
		cached, at := c.rates, c.fetchedAt
		c.mu.RUnlock()
		if cached != nil && c.now().Sub(at) < c.ttl {
			return cached, nil
		}
		fresh, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.rates, c.fetchedAt = fresh, c.now()
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		if rates != nil {
			c.logger.Printf("currency: refresh failed, serving stale rates: %v", err)
			return rates, nil
		}
		return nil, err
	}
	return v.(map[string]decimal.Decimal), nil
}

// Rate is the multiplier for code, or 1 when it is unknown or rates are unavailable.
func (c *Converter) Rate(ctx context.Context, code string) decimal.Decimal {
	if code == Base {
		return decimal.NewFromInt(1)
	}
	rates, err := c.Rates(ctx)
	if err != nil {
		c.logger.Printf("currency: rates unavailable, using 1: %v", err)
		return decimal.NewFromInt(1)
	}
	if r, ok := rates[code]; ok && r.IsPositive() {
		return r
	}
	return decimal.NewFromInt(1)
}

// Convert renders amount (in the base currency) for the given UI language.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, lang string) Display {
	code := CurrencyForLanguage(lang)
	rate := c.Rate(ctx, code)
	return Display{
		Amount:   amount.Mul(rate).Round(2),
		Currency: code,
		Symbol:   Symbol(lang),
		Rate:     rate,
	}
}

func (c *Converter) fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rates: status %d", resp.StatusCode)
	}

	var body struct {
		Rates map[string]decimal.Decimal `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("decode rates: empty table")
	}
	c.logger.Printf("currency: loaded %d rates", len(body.Rates))
	return body.Rates, nil
}
