package signalpage

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extraction limits
const (
	MaxSummaryLength  = 500
	MaxHistoryEntries = 8
	minNameLength     = 3
	maxNameLength     = 99
)

// suggestionKeywords are the advisory tokens the signal page is known to use.
// The set is open-ended; unknown tokens simply never match.
const suggestionKeywords = `STRONG BUY|STRONG SELL|STAY LONG|STAY SHORT|BUY|SELL|SHORT|HOLD`

// suggestionPatterns are tried in priority order: a labeled field outranks
// a bare keyword appearing anywhere in the page text.
var suggestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)current\s+signal\s*[:\-]?\s*(` + suggestionKeywords + `)\b`),
	regexp.MustCompile(`(?i)\bsignal\s*[:\-]\s*(` + suggestionKeywords + `)\b`),
	regexp.MustCompile(`(?i)\bsuggestion\s*[:\-]?\s*(` + suggestionKeywords + `)\b`),
	regexp.MustCompile(`(?i)\b(` + suggestionKeywords + `)\b`),
}

var summaryHeadings = []string{"Signal Update", "Commentary", "Analysis", "Summary"}

// dateTokenRe matches MM/DD/YYYY, YYYY-MM-DD and MM-DD-YYYY forms.
var dateTokenRe = regexp.MustCompile(`\b(?:\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}|\d{1,2}-\d{1,2}-\d{4})\b`)

var (
	rsiRe            = regexp.MustCompile(`(?i)\bRSI\s*(?:\(\s*14\s*\))?\s*[:\-]?\s*([0-9]+(?:\.[0-9]+)?)`)
	maSignalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)moving\s+average\s+signal\s*[:\-]?\s*(BUY|SELL|NEUTRAL|HOLD)\b`),
		regexp.MustCompile(`(?i)\bMA\s+signal\s*[:\-]?\s*(BUY|SELL|NEUTRAL|HOLD)\b`),
		regexp.MustCompile(`(?i)moving\s+averages?\s*[:\-]\s*(BUY|SELL|NEUTRAL|HOLD)\b`),
	}
	priceTargetPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\btarget\s*[:\-]?\s*\$?\s*([0-9]+(?:\.[0-9]+)?)`),
		regexp.MustCompile(`(?i)\bprice\s+target\s*[:\-]?\s*\$?\s*([0-9]+(?:\.[0-9]+)?)`),
		regexp.MustCompile(`(?i)\bobjective\s*[:\-]?\s*\$?\s*([0-9]+(?:\.[0-9]+)?)`),
	}
	signalCellRe = regexp.MustCompile(`[^A-Za-z0-9 ]+`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

var exchangeTokens = []string{"NASDAQ", "NYSE", "AMEX"}

var corporateSuffixRe = regexp.MustCompile(`(?i)\b(Inc|Incorporated|Corp|Corporation|Company|Co|Ltd|Limited|LLC|PLC|Group|Holdings)\b`)

// nameExclusions are tokens that disqualify a candidate company name; they
// are price/label artifacts that tend to sit next to the symbol on the page.
var nameExclusions = map[string]bool{
	"BUY": true, "SELL": true, "HOLD": true, "SHORT": true, "LONG": true,
	"CLOSE": true, "PREV.CLOSE": true, "OPEN": true, "HIGH": true, "LOW": true,
	"PRICE": true, "SIGNAL": true, "TARGET": true, "VOLUME": true, "CHART": true,
	"DATE": true, "STAY": true,
	"NASDAQ": true, "NYSE": true, "AMEX": true,
}

// ExtractSuggestion returns the page's current advisory token, or "" when
// no recognizable suggestion is present.
func ExtractSuggestion(doc *goquery.Document) string {
	text := pageText(doc)
	for _, re := range suggestionPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.ToUpper(strings.TrimSpace(m[1]))
		}
	}
	return ""
}

// ExtractSummary returns the commentary block following the first matching
// section heading, truncated to MaxSummaryLength characters.
func ExtractSummary(doc *goquery.Document) string {
	for _, heading := range summaryHeadings {
		needle := strings.ToLower(heading)
		var summary string
		doc.Find("h1, h2, h3, h4, h5, b, strong, span, td, p, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			// Heading-sized nodes only; a container div matching the keyword
			// would swallow the whole page.
			if text == "" || len(text) > 60 || !strings.Contains(strings.ToLower(text), needle) {
				return true
			}
			block := s.NextAllFiltered("p, div").First()
			if block.Length() == 0 {
				block = s.Parent().NextAllFiltered("p, div").First()
			}
			if block.Length() == 0 {
				return true
			}
			body := normalizeSpace(block.Text())
			if body == "" {
				return true
			}
			summary = truncate(body, MaxSummaryLength)
			return false
		})
		if summary != "" {
			return summary
		}
	}
	return ""
}

// ExtractSignalHistory reads up to MaxHistoryEntries rows from the signal
// history table, most recent first. Rows missing a date or signal token are
// dropped whole rather than producing partial entries.
func ExtractSignalHistory(doc *goquery.Document) []SignalAction {
	table := historyTableByHeading(doc)
	if table == nil || table.Length() == 0 {
		table = historyTableByDateRow(doc)
	}
	if table == nil || table.Length() == 0 {
		return nil
	}

	var history []SignalAction
	table.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i == 0 {
			return true // header row
		}
		if i > MaxHistoryEntries {
			return false
		}
		cells := row.Find("td, th")
		if cells.Length() < 3 {
			return true
		}
		date := strings.TrimSpace(cells.Eq(0).Text())
		price := strings.TrimSpace(cells.Eq(1).Text())
		signal := cleanSignalToken(cells.Eq(2).Text())
		if !dateTokenRe.MatchString(date) || signal == "" {
			return true
		}
		history = append(history, SignalAction{Date: date, Price: price, Signal: signal})
		return true
	})
	return history
}

// historyTableByHeading locates the history table via a nearby heading match.
func historyTableByHeading(doc *goquery.Document) *goquery.Selection {
	var table *goquery.Selection
	doc.Find("h1, h2, h3, h4, h5, b, strong, span, caption, td, p, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" || len(text) > 60 || !strings.Contains(strings.ToLower(text), "signal history") {
			return true
		}
		candidate := s.NextAllFiltered("table").First()
		probe := s.Parent()
		for candidate.Length() == 0 && probe.Length() > 0 {
			candidate = probe.NextAllFiltered("table").First()
			probe = probe.Parent()
		}
		if candidate.Length() == 0 {
			// Heading may live inside the table itself (caption or header cell).
			candidate = s.Closest("table")
		}
		if candidate.Length() > 0 {
			table = candidate
			return false
		}
		return true
	})
	return table
}

// historyTableByDateRow is the fallback: any table whose second row carries
// a date-shaped token.
func historyTableByDateRow(doc *goquery.Document) *goquery.Selection {
	var table *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		rows := t.Find("tr")
		if rows.Length() < 2 {
			return true
		}
		if dateTokenRe.MatchString(rows.Eq(1).Text()) {
			table = t
			return false
		}
		return true
	})
	return table
}

// ExtractIndicators scans the page text for known technical indicators.
// Keys are present only when the corresponding pattern matched.
func ExtractIndicators(doc *goquery.Document) map[string]interface{} {
	text := pageText(doc)
	indicators := make(map[string]interface{})

	if m := rsiRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			indicators["rsi"] = v
		}
	}
	for _, re := range maSignalPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			indicators["ma_signal"] = strings.ToUpper(strings.TrimSpace(m[1]))
			break
		}
	}

	if len(indicators) == 0 {
		return nil
	}
	return indicators
}

// ExtractPriceTarget returns the analyst price target formatted as "$<amount>".
func ExtractPriceTarget(doc *goquery.Document) string {
	text := pageText(doc)
	for _, re := range priceTargetPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return "$" + m[1]
		}
	}
	return ""
}

// ExtractCompanyName resolves the display name for symbol from the page using
// four fallback strategies in strict order. The first strategy yielding a
// non-empty candidate wins.
func ExtractCompanyName(doc *goquery.Document, symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return ""
	}
	text := doc.Text()
	lines := splitLines(text)

	if name := nameFromExchangeLine(lines, symbol); name != "" {
		return name
	}
	if name := nameFromTitle(doc, symbol); name != "" {
		return name
	}
	if name := nameFromSuffixLine(lines, symbol); name != "" {
		return name
	}
	return nameFromTokenWindow(text, symbol)
}

// nameFromExchangeLine finds a short line pairing the symbol with an exchange
// token and takes the next line as the candidate name.
func nameFromExchangeLine(lines []string, symbol string) string {
	for i, line := range lines {
		upper := strings.ToUpper(line)
		if !strings.Contains(upper, symbol) || !containsExchangeToken(upper) {
			continue
		}
		if len(strings.Fields(line)) > 3 {
			continue
		}
		if i+1 >= len(lines) {
			continue
		}
		candidate := strings.TrimSpace(lines[i+1])
		if plausibleName(candidate) {
			return candidate
		}
	}
	return ""
}

// nameFromTitle strips the symbol and exchange parenthetical out of the
// document title and keeps the remainder if non-trivial.
func nameFromTitle(doc *goquery.Document, symbol string) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return ""
	}
	title = regexp.MustCompile(`\([^)]*\)`).ReplaceAllString(title, " ")
	title = regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(symbol)+`\b`).ReplaceAllString(title, " ")
	for _, exch := range exchangeTokens {
		title = regexp.MustCompile(`(?i)\b`+exch+`\b`).ReplaceAllString(title, " ")
	}
	title = strings.Trim(normalizeSpace(title), " -:|,")
	if len(title) > 2 && plausibleName(title) {
		return title
	}
	return ""
}

// nameFromSuffixLine scans for a line carrying a known corporate suffix that
// does not itself contain the symbol.
func nameFromSuffixLine(lines []string, symbol string) string {
	for _, line := range lines {
		if strings.Contains(strings.ToUpper(line), symbol) {
			continue
		}
		if !corporateSuffixRe.MatchString(line) {
			continue
		}
		candidate := strings.TrimSpace(line)
		if plausibleName(candidate) {
			return candidate
		}
	}
	return ""
}

// nameFromTokenWindow locates the symbol token in whitespace-split text and
// builds a short context window from nearby offsets.
func nameFromTokenWindow(text, symbol string) string {
	tokens := strings.Fields(text)
	idx := -1
	for i, tok := range tokens {
		if strings.ToUpper(strings.Trim(tok, ".,:;()")) == symbol {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ""
	}
	for _, off := range []int{1, 2, 3, -1, -2, -3} {
		j := idx + off
		if j < 0 || j >= len(tokens) {
			continue
		}
		end := j + 3
		if end > len(tokens) {
			end = len(tokens)
		}
		window := strings.Join(tokens[j:end], " ")
		window = strings.Trim(window, ".,:;()")
		if len(window) >= 5 && len(window) <= maxNameLength && plausibleName(window) {
			return window
		}
	}
	return ""
}

// plausibleName filters out price/label artifacts masquerading as names.
func plausibleName(candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if len(candidate) < minNameLength || len(candidate) > maxNameLength {
		return false
	}
	if nameExclusions[strings.ToUpper(candidate)] {
		return false
	}
	if nameExclusions[strings.ToUpper(strings.Fields(candidate)[0])] {
		return false
	}
	if strings.HasPrefix(candidate, "$") {
		return false
	}
	if regexp.MustCompile(`^[\d.,%\s\-+$]+$`).MatchString(candidate) {
		return false
	}
	return true
}

func containsExchangeToken(upper string) bool {
	for _, exch := range exchangeTokens {
		if strings.Contains(upper, exch) {
			return true
		}
	}
	return false
}

func cleanSignalToken(raw string) string {
	cleaned := signalCellRe.ReplaceAllString(raw, "")
	return strings.ToUpper(normalizeSpace(cleaned))
}

func pageText(doc *goquery.Document) string {
	return normalizeSpace(doc.Text())
}

func normalizeSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
