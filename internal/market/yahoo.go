package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FinanceClient fetches daily price charts from the Yahoo Finance chart
// API. Taiwan-listed symbols carry a .TW (TWSE) or .TWO (TPEX) suffix.
type FinanceClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewFinanceClient creates a Yahoo Finance client with a bounded
// request timeout.
func NewFinanceClient() *FinanceClient {
	return &FinanceClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://query1.finance.yahoo.com/v8/finance/chart",
	}
}

// FetchRecent retrieves the last five trading days for a symbol. The
// latest bar carries the current price and the one before it the
// previous close.
func (c *FinanceClient) FetchRecent(ctx context.Context, symbol string) (PriceChart, error) {
	url := fmt.Sprintf("%s/%s?interval=1d&range=5d", c.baseURL, symbol)
	return c.fetchChart(ctx, url, symbol)
}

// FetchRange retrieves daily bars for a symbol between two dates,
// inclusive.
func (c *FinanceClient) FetchRange(ctx context.Context, symbol string, start, end time.Time) (PriceChart, error) {
	url := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d",
		c.baseURL, symbol, start.Unix(), end.Unix())
	return c.fetchChart(ctx, url, symbol)
}

func (c *FinanceClient) fetchChart(ctx context.Context, url, symbol string) (PriceChart, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return PriceChart{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PriceChart{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return PriceChart{}, err
	}

	var raw chartResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return PriceChart{}, fmt.Errorf("failed to parse chart response for %s: %w", symbol, err)
	}
	if raw.Chart.Error != nil {
		return PriceChart{}, fmt.Errorf("yahoo error for %s: %s", symbol, *raw.Chart.Error)
	}
	if len(raw.Chart.Result) == 0 {
		return PriceChart{}, fmt.Errorf("no results returned for symbol %s", symbol)
	}

	return parseChart(raw)
}

// parseChart flattens the nested Yahoo payload into a PriceChart,
// validating that the timestamp and close arrays line up.
func parseChart(raw chartResponse) (PriceChart, error) {
	result := raw.Chart.Result[0]

	if len(result.Timestamp) == 0 {
		return PriceChart{}, fmt.Errorf("no price data returned")
	}
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) == 0 {
		return PriceChart{}, fmt.Errorf("no close prices returned")
	}
	quote := result.Indicators.Quote[0]
	if len(quote.Close) != len(result.Timestamp) {
		return PriceChart{}, fmt.Errorf("mismatched data lengths")
	}

	bars := make([]Bar, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bars[i] = Bar{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:  at(quote.Open, i),
			Close: quote.Close[i],
			High:  at(quote.High, i),
			Low:   at(quote.Low, i),
		}
		if i < len(quote.Volume) {
			bars[i].Vol = quote.Volume[i]
		}
	}

	return PriceChart{
		Symbol:   result.Meta.Symbol,
		Currency: result.Meta.Currency,
		Exchange: result.Meta.ExchangeName,
		Bars:     bars,
	}, nil
}

func at(vals []float64, i int) float64 {
	if i < len(vals) {
		return vals[i]
	}
	return 0
}
