package marketdata

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockwatch_backend/services/throttle"
)

// Chart API configuration
const (
	DefaultChartAPIURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	RequestTimeout     = 15 * time.Second

	DefaultPeriod   = "1d"
	DefaultInterval = "1m"
	// Fallback range covering the two most recent trading sessions even
	// across weekends and holidays.
	fallbackRange = "5d"
)

// Service fetches quotes and intraday series from the market data provider,
// with tiered fast-info/slow-history fallback and TTL caching.
type Service struct {
	httpClient  *http.Client
	gate        *throttle.Gate
	cache       *throttle.Cache
	chartAPIURL string
	quoteTTL    time.Duration
	chartTTL    time.Duration
}

// NewService creates a market data service sharing the process-wide rate
// limiter and cache.
func NewService(gate *throttle.Gate, cache *throttle.Cache) *Service {
	return &Service{
		httpClient:  &http.Client{Timeout: RequestTimeout},
		gate:        gate,
		cache:       cache,
		chartAPIURL: DefaultChartAPIURL,
		quoteTTL:    throttle.QuoteCacheTTL,
		chartTTL:    throttle.ChartCacheTTL,
	}
}

// GetQuote returns the current price snapshot for symbol. A fresh cache hit
// returns immediately without consuming a rate-limit slot. Failures fall
// back to the last cached value, stale or not, and never propagate.
func (s *Service) GetQuote(symbol string) QuoteRecord {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	key := "quote:" + sym

	if v, ok := s.cache.Get(key, s.quoteTTL); ok {
		return v.(QuoteRecord)
	}

	s.gate.Acquire(sym)

	quote, ok := s.fetchQuote(sym)
	if !ok {
		if v, stale := s.cache.GetStale(key); stale {
			return v.(QuoteRecord)
		}
		return QuoteRecord{Symbol: sym}
	}

	s.cache.Put(key, quote)
	return quote
}

// fetchQuote tries the lightweight snapshot first and falls back to a
// two-session daily history when it yields no usable price.
func (s *Service) fetchQuote(sym string) (QuoteRecord, bool) {
	quote := QuoteRecord{Symbol: sym}

	result, err := s.fetchChart(sym, DefaultPeriod, DefaultInterval)
	if err == nil {
		quote.Currency = result.Meta.Currency
		price := result.Meta.RegularMarketPrice
		if price == nil {
			if closes := result.closes(); len(closes) > 0 {
				price = &closes[len(closes)-1]
			}
		}
		if price != nil {
			quote.Price = price
			quote.Change = percentChange(*price, result.Meta.ChartPreviousClose)
			quote.Volume = result.Meta.RegularMarketVolume
			if quote.Volume == nil {
				quote.Volume = result.lastVolume()
			}
			return quote, true
		}
	}

	// Slow path: day-granularity range, most recent two sessions.
	result, err = s.fetchChart(sym, fallbackRange, "1d")
	if err != nil {
		return quote, false
	}
	closes := result.closes()
	if len(closes) == 0 {
		return quote, false
	}
	last := closes[len(closes)-1]
	quote.Price = &last
	quote.Currency = result.Meta.Currency
	if len(closes) >= 2 {
		quote.Change = percentChange(last, &closes[len(closes)-2])
	}
	quote.Volume = result.lastVolume()
	return quote, true
}

// GetIntraday returns the intraday close series for symbol over the given
// period and interval, cached per (symbol, period, interval). Observations
// that fail to convert are silently skipped; an empty series is valid.
func (s *Service) GetIntraday(symbol, period, interval string) ChartSeries {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if period == "" {
		period = DefaultPeriod
	}
	if interval == "" {
		interval = DefaultInterval
	}
	key := fmt.Sprintf("chart:%s:%s:%s", sym, period, interval)

	if v, ok := s.cache.Get(key, s.chartTTL); ok {
		return v.(ChartSeries)
	}

	s.gate.Acquire(sym)

	result, err := s.fetchChart(sym, period, interval)
	if err != nil {
		if v, stale := s.cache.GetStale(key); stale {
			return v.(ChartSeries)
		}
		return ChartSeries{Symbol: sym}
	}

	series := ChartSeries{Symbol: sym}
	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		for i, ts := range result.Timestamp {
			if i >= len(closes) || closes[i] == nil {
				continue
			}
			series.Points = append(series.Points, ChartPoint{
				T: ts * 1000,
				P: roundTo(*closes[i], 4),
			})
		}
	}
	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].T < series.Points[j].T
	})

	s.cache.Put(key, series)
	return series
}

// fetchChart performs one chart API request.
func (s *Service) fetchChart(sym, period, interval string) (*chartResult, error) {
	endpoint := fmt.Sprintf("%s/%s?range=%s&interval=%s",
		s.chartAPIURL, url.PathEscape(sym), url.QueryEscape(period), url.QueryEscape(interval))

	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("chart API status %d", resp.StatusCode)
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse chart response: %w", err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %v", parsed.Chart.Error)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("empty chart result for %s", sym)
	}
	return &parsed.Chart.Result[0], nil
}

// percentChange computes (last/prev - 1) * 100 rounded to 2 decimals, or
// nil when no valid previous close is available.
func percentChange(last float64, prev *float64) *float64 {
	if prev == nil || *prev == 0 {
		return nil
	}
	change, _ := decimal.NewFromFloat(last).
		Div(decimal.NewFromFloat(*prev)).
		Sub(decimal.NewFromInt(1)).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		Float64()
	return &change
}

func roundTo(v float64, places int32) float64 {
	out, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return out
}
