package signalpage

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"stockwatch_backend/services/throttle"
)

// Signal page endpoints. The page format is an uncontrolled external input;
// every extractor treats it as best effort.
const (
	DefaultSignalPageURL = "https://www.americanbulls.com/SignalPage.aspx?lang=en&Ticker=%s"
	DefaultSearchPageURL = "https://www.americanbulls.com/Search.aspx?lang=en&SearchText=%s"
	RequestTimeout       = 15 * time.Second
	maxErrorLength       = 200
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Service fetches and parses third-party signal pages for watched symbols.
type Service struct {
	httpClient    *http.Client
	gate          *throttle.Gate
	signalPageURL string
	searchPageURL string
}

// NewService creates a signal page service gated by the given rate limiter.
func NewService(gate *throttle.Gate) *Service {
	return &Service{
		httpClient:    &http.Client{Timeout: RequestTimeout},
		gate:          gate,
		signalPageURL: DefaultSignalPageURL,
		searchPageURL: DefaultSearchPageURL,
	}
}

// NormalizeSymbol uppercases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// FetchSignal fetches and extracts the signal record for one symbol. It
// never returns an error to the caller: network and parse failures produce
// a record with the Error field set and all content fields empty.
func (s *Service) FetchSignal(symbol string) SignalRecord {
	sym := NormalizeSymbol(symbol)
	record := SignalRecord{Symbol: sym}

	s.gate.Acquire(sym)

	doc, err := s.fetchDocument(fmt.Sprintf(s.signalPageURL, sym))
	if err != nil {
		record.Error = truncate(err.Error(), maxErrorLength)
		return record
	}

	// Extractors are independent; one failing to find its pattern never
	// blocks another. A panic inside the parse layer degrades to an error
	// record instead of propagating.
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("signal extraction panic for %s: %v", sym, r)
				record = SignalRecord{
					Symbol: sym,
					Error:  truncate(fmt.Sprintf("parse error: %v", r), maxErrorLength),
				}
			}
		}()
		record.Suggestion = ExtractSuggestion(doc)
		record.Summary = ExtractSummary(doc)
		record.SignalHistory = ExtractSignalHistory(doc)
		record.TechnicalIndicators = ExtractIndicators(doc)
		record.PriceTarget = ExtractPriceTarget(doc)
	}()

	return record
}

// fetchDocument performs one HTTP GET and parses the body.
func (s *Service) fetchDocument(url string) (*goquery.Document, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return doc, nil
}
