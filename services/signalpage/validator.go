package signalpage

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Validation thresholds
const (
	maxSymbolLength = 10
	// Thin error pages tend to be short; a real signal page carries well
	// over this much text.
	minValidPageTextLength = 500
)

var suggestionKeywordList = []string{
	"STRONG BUY", "STRONG SELL", "STAY LONG", "STAY SHORT", "BUY", "SELL", "SHORT", "HOLD",
}

// Validate determines whether a ticker symbol is real and resolves its
// display name. It probes the signal page directly, then falls back to the
// search page. All failures degrade to {valid:false}; nothing propagates.
func (s *Service) Validate(symbol string) SymbolValidation {
	sym := NormalizeSymbol(symbol)
	result := SymbolValidation{Symbol: sym}

	if sym == "" || len(sym) > maxSymbolLength {
		return result
	}

	if v, done := s.validateByPage(sym); done {
		return v
	}
	return s.validateBySearch(sym)
}

// validateByPage probes the signal page itself. done is true only when the
// page affirmatively validated the symbol.
func (s *Service) validateByPage(sym string) (SymbolValidation, bool) {
	result := SymbolValidation{Symbol: sym}

	s.gate.Acquire(sym)
	doc, err := s.fetchDocument(fmt.Sprintf(s.signalPageURL, sym))
	if err != nil {
		return result, false
	}

	text := pageText(doc)
	if len(text) < minValidPageTextLength {
		return result, false
	}

	upper := strings.ToUpper(text)
	if !pageLooksLikeSignalPage(upper, sym) {
		return result, false
	}

	result.Valid = true
	result.Name = ExtractCompanyName(doc, sym)
	return result, true
}

// pageLooksLikeSignalPage checks for any of the markers a legitimate signal
// page carries for a listed symbol.
func pageLooksLikeSignalPage(upper, sym string) bool {
	if strings.Contains(upper, sym) {
		return true
	}
	for _, kw := range suggestionKeywordList {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	if strings.Contains(upper, "CLOSE") && strings.Contains(upper, "PREV.CLOSE") {
		return true
	}
	return containsExchangeToken(upper)
}

// validateBySearch scans the search results page for an anchor referencing
// the signal page endpoint for this symbol.
func (s *Service) validateBySearch(sym string) SymbolValidation {
	result := SymbolValidation{Symbol: sym}

	s.gate.Acquire(sym)
	doc, err := s.fetchDocument(fmt.Sprintf(s.searchPageURL, sym))
	if err != nil {
		return result
	}

	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.Contains(strings.ToLower(href), "signalpage") {
			return true
		}
		text := normalizeSpace(a.Text())
		if !strings.Contains(strings.ToUpper(text), sym) &&
			!strings.Contains(strings.ToUpper(href), sym) {
			return true
		}
		result.Valid = true
		result.Name = nameFromAnchor(a, text, sym)
		return false
	})
	return result
}

// nameFromAnchor extracts a display name from a "SYMBOL - Name" anchor text
// or the anchor's table row.
func nameFromAnchor(a *goquery.Selection, text, sym string) string {
	if idx := strings.Index(text, " - "); idx >= 0 {
		candidate := strings.TrimSpace(text[idx+3:])
		if plausibleName(candidate) {
			return candidate
		}
	}
	row := a.Closest("tr")
	if row.Length() == 0 {
		return ""
	}
	var name string
	row.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		candidate := normalizeSpace(td.Text())
		if strings.EqualFold(candidate, sym) || !plausibleName(candidate) {
			return true
		}
		name = candidate
		return false
	})
	return name
}
