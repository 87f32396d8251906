package marketdata

// QuoteRecord is the current price snapshot for a symbol. Nil pointer
// fields mean the value could not be determined; Change is present only
// when Price is, since it cannot be computed without a reference price.
type QuoteRecord struct {
	Symbol   string   `json:"symbol"`
	Price    *float64 `json:"price"`
	Change   *float64 `json:"change"`
	Currency string   `json:"currency,omitempty"`
	Volume   *int64   `json:"volume"`
}

// ChartPoint is one intraday observation: epoch-milliseconds and close price.
type ChartPoint struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}

// ChartSeries is an intraday time series ordered non-decreasing by T.
// An empty Points slice is a valid, non-erroneous result.
type ChartSeries struct {
	Symbol string       `json:"symbol"`
	Points []ChartPoint `json:"points"`
}

// chartResponse mirrors the chart API payload. Observation slices use
// pointers because the API emits null for missing bars.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  interface{}   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Currency            string   `json:"currency"`
		Symbol              string   `json:"symbol"`
		RegularMarketPrice  *float64 `json:"regularMarketPrice"`
		ChartPreviousClose  *float64 `json:"chartPreviousClose"`
		RegularMarketVolume *int64   `json:"regularMarketVolume"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// closes returns the non-nil close prices of the first quote track, in order.
func (r *chartResult) closes() []float64 {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	var out []float64
	for _, c := range r.Indicators.Quote[0].Close {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// lastVolume returns the most recent non-nil volume of the first quote track.
func (r *chartResult) lastVolume() *int64 {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	vols := r.Indicators.Quote[0].Volume
	for i := len(vols) - 1; i >= 0; i-- {
		if vols[i] != nil {
			return vols[i]
		}
	}
	return nil
}
