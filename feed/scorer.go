package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rustyeddy/signalbot/market"
)

// HTTPScorer asks an external model for a bullish probability. It posts
// the latest candles as JSON and expects {"probability": p} back.
type HTTPScorer struct {
	url        string
	symbol     string
	window     int
	httpClient *http.Client
}

func NewHTTPScorer(url, symbol string, window int, timeout time.Duration) *HTTPScorer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPScorer{
		url:        url,
		symbol:     symbol,
		window:     window,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type scoreRequest struct {
	Symbol  string          `json:"symbol"`
	Candles []market.Candle `json:"candles"`
}

type scoreResponse struct {
	Probability *float64 `json:"probability"`
}

// Score returns a probability in [0,1].
func (s *HTTPScorer) Score(ctx context.Context, candles []market.Candle) (float64, error) {
	body, err := json.Marshal(scoreRequest{Symbol: s.symbol, Candles: Tail(candles, s.window)})
	if err != nil {
		return 0, fmt.Errorf("scorer: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("scorer: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("scorer: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("scorer: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("scorer: decode response: %w", err)
	}
	if out.Probability == nil {
		return 0, fmt.Errorf("scorer: response has no probability")
	}
	p := *out.Probability
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("scorer: probability %v outside [0,1]", p)
	}
	return p, nil
}
