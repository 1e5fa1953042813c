package market

import "time"

// chartResponse maps the raw Yahoo Finance chart API payload. Only the
// fields this service reads are declared.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency     string `json:"currency"`
				Symbol       string `json:"symbol"`
				ExchangeName string `json:"exchangeName"`
				LongName     string `json:"longName"`
				ShortName    string `json:"shortName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *string `json:"error"`
	} `json:"chart"`
}

// PriceChart is the parsed form of one chart query: symbol metadata
// plus a chronological series of daily bars.
type PriceChart struct {
	Symbol   string
	Currency string
	Exchange string
	Bars     []Bar
}

// Bar is one trading day of price data. Date is truncated to midnight UTC.
type Bar struct {
	Date  time.Time
	Open  float64
	Close float64
	High  float64
	Low   float64
	Vol   int64
}

// LatestClose returns the most recent bar with a usable close price.
// Yahoo pads partially-traded days with zero closes.
func (c PriceChart) LatestClose() (Bar, bool) {
	for i := len(c.Bars) - 1; i >= 0; i-- {
		if c.Bars[i].Close > 0 {
			return c.Bars[i], true
		}
	}
	return Bar{}, false
}

// PreviousClose returns the last usable close strictly before the
// latest one.
func (c PriceChart) PreviousClose() (Bar, bool) {
	seen := false
	for i := len(c.Bars) - 1; i >= 0; i-- {
		if c.Bars[i].Close <= 0 {
			continue
		}
		if seen {
			return c.Bars[i], true
		}
		seen = true
	}
	return Bar{}, false
}

// CloseOn returns the bar for the given calendar day, comparing dates
// at midnight UTC.
func (c PriceChart) CloseOn(target time.Time) (Bar, bool) {
	targetDay := target.UTC().Truncate(24 * time.Hour)
	for _, b := range c.Bars {
		if b.Date.Equal(targetDay) && b.Close > 0 {
			return b, true
		}
	}
	return Bar{}, false
}

// CloseOnOrBefore returns the latest bar on or before the given day.
// Useful when the requested day is a weekend or market holiday.
func (c PriceChart) CloseOnOrBefore(target time.Time) (Bar, bool) {
	targetDay := target.UTC().Truncate(24 * time.Hour)
	for i := len(c.Bars) - 1; i >= 0; i-- {
		b := c.Bars[i]
		if !b.Date.After(targetDay) && b.Close > 0 {
			return b, true
		}
	}
	return Bar{}, false
}
