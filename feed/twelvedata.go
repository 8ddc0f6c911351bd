package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/signalbot/market"
)

// TwelveDataURL is the public REST endpoint.
const TwelveDataURL = "https://api.twelvedata.com"

const twelveSource = "twelvedata"

// TwelveDataConfig selects the series to pull from the time_series API.
type TwelveDataConfig struct {
	BaseURL    string
	APIKey     string
	Symbol     string // e.g. "BTC/USD"
	Interval   string // e.g. "15min"
	OutputSize int    // candles per request
	Timeout    time.Duration
}

// TwelveData fetches candles from the TwelveData time_series endpoint.
type TwelveData struct {
	cfg        TwelveDataConfig
	httpClient *http.Client
}

func NewTwelveData(cfg TwelveDataConfig) (*TwelveData, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("twelvedata: api key is required")
	}
	if cfg.Symbol == "" || cfg.Interval == "" {
		return nil, fmt.Errorf("twelvedata: symbol and interval are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = TwelveDataURL
	}
	if cfg.OutputSize <= 0 {
		cfg.OutputSize = 50
	}
	if cfg.OutputSize > 5000 {
		return nil, fmt.Errorf("twelvedata: output size cannot exceed 5000")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &TwelveData{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *TwelveData) Name() string { return twelveSource }

// tdValue is one row of the "values" array. Prices arrive as strings.
type tdValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume,omitempty"`
}

type tdResponse struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
		Timezone string `json:"exchange_timezone"`
	} `json:"meta"`
	Values  []tdValue `json:"values"`
	Status  string    `json:"status"`
	Code    int       `json:"code"`
	Message string    `json:"message"`
}

// Candles requests the latest OutputSize candles. The API lists newest
// first; the result is ascending.
func (c *TwelveData) Candles(ctx context.Context) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("symbol", c.cfg.Symbol)
	params.Set("interval", c.cfg.Interval)
	params.Set("outputsize", strconv.Itoa(c.cfg.OutputSize))
	params.Set("timezone", "UTC")
	params.Set("apikey", c.cfg.APIKey)

	apiURL := fmt.Sprintf("%s/time_series?%s", strings.TrimRight(c.cfg.BaseURL, "/"), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fetchErr(twelveSource, "create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error prints the request URL, which carries the api key
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fetchErr(twelveSource, "execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fetchErr(twelveSource, "API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp tdResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fetchErr(twelveSource, "decode response: %w", err)
	}
	if apiResp.Status == "error" {
		return nil, fetchErr(twelveSource, "API error (code %d): %s", apiResp.Code, apiResp.Message)
	}
	if apiResp.Values == nil {
		return nil, fetchErr(twelveSource, "response has no values")
	}

	candles := make([]market.Candle, 0, len(apiResp.Values))
	for i, v := range apiResp.Values {
		cd, err := v.candle()
		if err != nil {
			return nil, fetchErr(twelveSource, "value %d: %w", i, err)
		}
		candles = append(candles, cd)
	}
	return Normalize(candles), nil
}

var tdTimeLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

func parseTwelveTime(s string) (time.Time, error) {
	for _, layout := range tdTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse datetime %q", s)
}

func (v tdValue) candle() (market.Candle, error) {
	fields := []struct {
		name string
		raw  string
	}{
		{"datetime", v.Datetime},
		{"open", v.Open},
		{"high", v.High},
		{"low", v.Low},
		{"close", v.Close},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.raw) == "" {
			return market.Candle{}, fmt.Errorf("missing %s", f.name)
		}
	}

	t, err := parseTwelveTime(v.Datetime)
	if err != nil {
		return market.Candle{}, err
	}

	var prices [4]float64
	for i, f := range fields[1:] {
		p, err := strconv.ParseFloat(strings.TrimSpace(f.raw), 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("parse %s price: %w", f.name, err)
		}
		prices[i] = p
	}

	c := market.Candle{
		Time:  t,
		Open:  prices[0],
		High:  prices[1],
		Low:   prices[2],
		Close: prices[3],
	}
	if v.Volume != "" {
		vol, err := strconv.ParseFloat(v.Volume, 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("parse volume: %w", err)
		}
		c.Volume = &vol
	}
	if err := c.Validate(); err != nil {
		return market.Candle{}, err
	}
	return c, nil
}
