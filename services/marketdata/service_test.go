package marketdata

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"stockwatch_backend/services/throttle"
)

func newTestService(baseURL string) *Service {
	s := NewService(throttle.NewGate(time.Millisecond), throttle.NewCache())
	s.chartAPIURL = baseURL
	return s
}

func fastInfoJSON(price, prevClose float64, volume int64) string {
	return fmt.Sprintf(`{"chart":{"result":[{
		"meta":{"currency":"USD","symbol":"AAPL","regularMarketPrice":%g,"chartPreviousClose":%g,"regularMarketVolume":%d},
		"timestamp":[1700000000,1700000060],
		"indicators":{"quote":[{"close":[%g,%g],"volume":[100,200]}]}
	}],"error":null}}`, price, prevClose, volume, price-1, price)
}

func TestGetQuoteFastPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fastInfoJSON(105.0, 100.0, 42000)))
	}))
	defer srv.Close()

	q := newTestService(srv.URL).GetQuote("aapl")

	if q.Symbol != "AAPL" {
		t.Errorf("unexpected symbol %q", q.Symbol)
	}
	if q.Price == nil || *q.Price != 105.0 {
		t.Fatalf("unexpected price %v", q.Price)
	}
	if q.Change == nil || *q.Change != 5.0 {
		t.Errorf("expected change 5.0, got %v", q.Change)
	}
	if q.Currency != "USD" {
		t.Errorf("unexpected currency %q", q.Currency)
	}
	if q.Volume == nil || *q.Volume != 42000 {
		t.Errorf("unexpected volume %v", q.Volume)
	}
}

func TestGetQuoteCacheHitSkipsRateLimit(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.Write([]byte(fastInfoJSON(105.0, 100.0, 42000)))
	}))
	defer srv.Close()

	s := NewService(throttle.NewGate(300*time.Millisecond), throttle.NewCache())
	s.chartAPIURL = srv.URL

	first := s.GetQuote("AAPL")

	start := time.Now()
	second := s.GetQuote("AAPL")
	elapsed := time.Since(start)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("cache hit must return identical data: %+v vs %+v", first, second)
	}
	if atomic.LoadInt64(&requests) != 1 {
		t.Errorf("expected 1 upstream request, got %d", requests)
	}
	if elapsed > 100*time.Millisecond {
		t.Errorf("cache hit must not wait on the rate limiter, took %v", elapsed)
	}
}

func TestGetQuoteHistoryFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") == "1d" {
			// Two-session daily history.
			w.Write([]byte(`{"chart":{"result":[{
				"meta":{"currency":"USD","symbol":"AAPL"},
				"timestamp":[1700000000,1700086400],
				"indicators":{"quote":[{"close":[100.0,105.0],"volume":[500,600]}]}
			}],"error":null}}`))
			return
		}
		// Fast path yields no usable price.
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{"currency":"USD","symbol":"AAPL"},
			"timestamp":[],
			"indicators":{"quote":[{"close":[],"volume":[]}]}
		}],"error":null}}`))
	}))
	defer srv.Close()

	q := newTestService(srv.URL).GetQuote("AAPL")

	if q.Price == nil || *q.Price != 105.0 {
		t.Fatalf("expected fallback price 105.0, got %v", q.Price)
	}
	if q.Change == nil || *q.Change != 5.0 {
		t.Errorf("expected change 5.0 from [100.0, 105.0], got %v", q.Change)
	}
	if q.Volume == nil || *q.Volume != 600 {
		t.Errorf("unexpected volume %v", q.Volume)
	}
}

func TestGetQuoteFailureFallsBackToStale(t *testing.T) {
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		w.Write([]byte(fastInfoJSON(105.0, 100.0, 42000)))
	}))
	defer srv.Close()

	s := newTestService(srv.URL)
	s.quoteTTL = 10 * time.Millisecond

	first := s.GetQuote("AAPL")
	if first.Price == nil {
		t.Fatal("expected primed quote")
	}

	failing.Store(true)
	time.Sleep(20 * time.Millisecond) // let the cache entry go stale

	second := s.GetQuote("AAPL")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected stale cached quote on failure, got %+v", second)
	}
}

func TestGetQuoteFailureWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	q := newTestService(srv.URL).GetQuote("msft")

	if q.Symbol != "MSFT" {
		t.Errorf("unexpected symbol %q", q.Symbol)
	}
	if q.Price != nil || q.Change != nil || q.Volume != nil {
		t.Errorf("expected empty record, got %+v", q)
	}
}

func TestGetIntradayRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{"currency":"USD","symbol":"AAPL"},
			"timestamp":[1700000000,1700000060,1700000120],
			"indicators":{"quote":[{"close":[187.12345,187.2,186.9999],"volume":[1,2,3]}]}
		}],"error":null}}`))
	}))
	defer srv.Close()

	series := newTestService(srv.URL).GetIntraday("AAPL", "1d", "1m")

	if len(series.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(series.Points))
	}
	wantT := []int64{1700000000000, 1700000060000, 1700000120000}
	wantP := []float64{187.1234, 187.2, 186.9999}
	for i, p := range series.Points {
		if p.T != wantT[i] {
			t.Errorf("point %d: t = %d, want %d", i, p.T, wantT[i])
		}
		if p.P != wantP[i] {
			t.Errorf("point %d: p = %v, want %v", i, p.P, wantP[i])
		}
	}
	for i := 1; i < len(series.Points); i++ {
		if series.Points[i].T < series.Points[i-1].T {
			t.Error("points must be ordered non-decreasing by t")
		}
	}
}

func TestGetIntradaySkipsUnconvertibleObservations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{"currency":"USD","symbol":"AAPL"},
			"timestamp":[1700000000,1700000060,1700000120],
			"indicators":{"quote":[{"close":[187.1,null,186.9],"volume":[1,null,3]}]}
		}],"error":null}}`))
	}))
	defer srv.Close()

	series := newTestService(srv.URL).GetIntraday("AAPL", "", "")

	if len(series.Points) != 2 {
		t.Fatalf("expected null bar to be skipped, got %d points", len(series.Points))
	}
}

func TestGetIntradayEmptySeriesIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{"currency":"USD","symbol":"ZZZZ"},
			"timestamp":[],
			"indicators":{"quote":[{"close":[],"volume":[]}]}
		}],"error":null}}`))
	}))
	defer srv.Close()

	series := newTestService(srv.URL).GetIntraday("zzzz", "1d", "1m")
	if series.Symbol != "ZZZZ" {
		t.Errorf("unexpected symbol %q", series.Symbol)
	}
	if len(series.Points) != 0 {
		t.Errorf("expected empty series, got %d points", len(series.Points))
	}
}

func TestGetIntradayCachedPerParameters(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{"currency":"USD","symbol":"AAPL"},
			"timestamp":[1700000000],
			"indicators":{"quote":[{"close":[187.1],"volume":[1]}]}
		}],"error":null}}`))
	}))
	defer srv.Close()

	s := newTestService(srv.URL)
	s.GetIntraday("AAPL", "1d", "1m")
	s.GetIntraday("AAPL", "1d", "1m")
	if atomic.LoadInt64(&requests) != 1 {
		t.Errorf("same parameters must hit the cache, got %d requests", requests)
	}

	s.GetIntraday("AAPL", "5d", "5m")
	if atomic.LoadInt64(&requests) != 2 {
		t.Errorf("different parameters must refetch, got %d requests", requests)
	}
}

func TestPercentChange(t *testing.T) {
	if got := percentChange(105.0, nil); got != nil {
		t.Errorf("expected nil without previous close, got %v", *got)
	}
	zero := 0.0
	if got := percentChange(105.0, &zero); got != nil {
		t.Errorf("expected nil for zero previous close, got %v", *got)
	}
	prev := 3.0
	got := percentChange(1.0, &prev)
	if got == nil || *got != -66.67 {
		t.Errorf("expected -66.67, got %v", got)
	}
}

func TestQuoteRecordChangeRequiresPrice(t *testing.T) {
	// Fast path with price but no previous close: change must stay absent.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{"currency":"USD","symbol":"AAPL","regularMarketPrice":105.0},
			"timestamp":[1700000000],
			"indicators":{"quote":[{"close":[105.0],"volume":[10]}]}
		}],"error":null}}`))
	}))
	defer srv.Close()

	q := newTestService(srv.URL).GetQuote("AAPL")
	if q.Price == nil {
		t.Fatal("expected price")
	}
	if q.Change != nil {
		t.Errorf("change must be absent without a previous close, got %v", *q.Change)
	}
	if !strings.EqualFold(q.Currency, "USD") {
		t.Errorf("unexpected currency %q", q.Currency)
	}
}
