package signalpage

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse test document: %v", err)
	}
	return doc
}

func TestExtractSuggestionLabeledFieldWins(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<div>Popular signals: SELL pressure mounting</div>
		<div>Current Signal: BUY</div>
	</body></html>`)

	if got := ExtractSuggestion(doc); got != "BUY" {
		t.Errorf("expected labeled BUY to win, got %q", got)
	}
}

func TestExtractSuggestionBareKeyword(t *testing.T) {
	doc := mustDoc(t, `<html><body><h1>STAY LONG</h1></body></html>`)
	if got := ExtractSuggestion(doc); got != "STAY LONG" {
		t.Errorf("expected STAY LONG, got %q", got)
	}
}

func TestExtractSuggestionAbsent(t *testing.T) {
	doc := mustDoc(t, `<html><body><p>Quarterly report released today.</p></body></html>`)
	if got := ExtractSuggestion(doc); got != "" {
		t.Errorf("expected no suggestion, got %q", got)
	}
}

func TestExtractSummaryTruncates(t *testing.T) {
	long := strings.Repeat("market conditions remain volatile ", 30)
	doc := mustDoc(t, `<html><body>
		<b>Signal Update</b>
		<p>`+long+`</p>
	</body></html>`)

	got := ExtractSummary(doc)
	if got == "" {
		t.Fatal("expected a summary")
	}
	if len(got) > MaxSummaryLength {
		t.Errorf("summary length %d exceeds cap %d", len(got), MaxSummaryLength)
	}
	if !strings.HasPrefix(got, "market conditions") {
		t.Errorf("unexpected summary prefix: %q", got[:40])
	}
}

func TestExtractSummaryHeadingPriority(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<b>Summary</b><p>generic blurb</p>
		<b>Signal Update</b><p>the update text</p>
	</body></html>`)

	if got := ExtractSummary(doc); got != "the update text" {
		t.Errorf("expected Signal Update heading to win, got %q", got)
	}
}

func TestExtractSummaryAbsent(t *testing.T) {
	doc := mustDoc(t, `<html><body><p>nothing relevant here</p></body></html>`)
	if got := ExtractSummary(doc); got != "" {
		t.Errorf("expected no summary, got %q", got)
	}
}

func historyTableHTML(rows string) string {
	return `<html><body>
		<h3>Signal History</h3>
		<table>
			<tr><th>Date</th><th>Price</th><th>Signal</th></tr>
			` + rows + `
		</table>
	</body></html>`
}

func TestExtractSignalHistoryByHeading(t *testing.T) {
	doc := mustDoc(t, historyTableHTML(`
		<tr><td>08/15/2026</td><td>187.20</td><td>Buy</td></tr>
		<tr><td>07/02/2026</td><td>179.05</td><td>Sell*</td></tr>
	`))

	history := ExtractSignalHistory(doc)
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].Date != "08/15/2026" || history[0].Signal != "BUY" {
		t.Errorf("unexpected first entry: %+v", history[0])
	}
	if history[1].Signal != "SELL" {
		t.Errorf("expected signal cell cleaned to SELL, got %q", history[1].Signal)
	}
	if history[0].Price != "187.20" {
		t.Errorf("unexpected price %q", history[0].Price)
	}
}

func TestExtractSignalHistoryCapsAtEight(t *testing.T) {
	var rows strings.Builder
	for i := 0; i < 12; i++ {
		rows.WriteString(`<tr><td>01/0` + string(rune('1'+i%9)) + `/2026</td><td>100</td><td>Buy</td></tr>`)
	}
	doc := mustDoc(t, historyTableHTML(rows.String()))

	history := ExtractSignalHistory(doc)
	if len(history) != MaxHistoryEntries {
		t.Fatalf("expected %d entries, got %d", MaxHistoryEntries, len(history))
	}
	for _, h := range history {
		if h.Date == "" || h.Signal == "" {
			t.Errorf("entry with empty date or signal: %+v", h)
		}
	}
}

func TestExtractSignalHistoryDropsBadRows(t *testing.T) {
	doc := mustDoc(t, historyTableHTML(`
		<tr><td>08/15/2026</td><td>187.20</td><td>Buy</td></tr>
		<tr><td>n/a</td><td>179.05</td><td>Sell</td></tr>
		<tr><td>06/01/2026</td><td>170.00</td><td>--</td></tr>
		<tr><td>05/20/2026</td><td></td></tr>
	`))

	history := ExtractSignalHistory(doc)
	if len(history) != 1 {
		t.Fatalf("expected only the complete row, got %d entries", len(history))
	}
}

func TestExtractSignalHistoryFallbackByDateRow(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<table>
			<tr><th>Col</th><th>Col</th><th>Col</th></tr>
			<tr><td>text</td><td>text</td><td>text</td></tr>
		</table>
		<table>
			<tr><th>Date</th><th>Price</th><th>Signal</th></tr>
			<tr><td>2026-08-15</td><td>187.20</td><td>Buy</td></tr>
		</table>
	</body></html>`)

	history := ExtractSignalHistory(doc)
	if len(history) != 1 {
		t.Fatalf("expected fallback table scan to find 1 entry, got %d", len(history))
	}
	if history[0].Date != "2026-08-15" {
		t.Errorf("unexpected date %q", history[0].Date)
	}
}

func TestExtractSignalHistoryAbsent(t *testing.T) {
	doc := mustDoc(t, `<html><body><p>no tables at all</p></body></html>`)
	if history := ExtractSignalHistory(doc); history != nil {
		t.Errorf("expected nil history, got %+v", history)
	}
}

func TestExtractIndicators(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<div>RSI (14): 62.5</div>
		<div>Moving Average Signal: Buy</div>
	</body></html>`)

	indicators := ExtractIndicators(doc)
	if indicators == nil {
		t.Fatal("expected indicators")
	}
	if v, ok := indicators["rsi"].(float64); !ok || v != 62.5 {
		t.Errorf("unexpected rsi: %v", indicators["rsi"])
	}
	if indicators["ma_signal"] != "BUY" {
		t.Errorf("unexpected ma_signal: %v", indicators["ma_signal"])
	}
}

func TestExtractIndicatorsAbsent(t *testing.T) {
	doc := mustDoc(t, `<html><body><p>fundamentals only</p></body></html>`)
	if indicators := ExtractIndicators(doc); indicators != nil {
		t.Errorf("expected nil map, got %v", indicators)
	}
}

func TestExtractPriceTarget(t *testing.T) {
	doc := mustDoc(t, `<html><body><div>Price Target: $123.45</div></body></html>`)
	if got := ExtractPriceTarget(doc); got != "$123.45" {
		t.Errorf("expected $123.45, got %q", got)
	}
}

func TestExtractPriceTargetAbsent(t *testing.T) {
	doc := mustDoc(t, `<html><body><div>no guidance given</div></body></html>`)
	if got := ExtractPriceTarget(doc); got != "" {
		t.Errorf("expected no target, got %q", got)
	}
}

func TestExtractCompanyNameStrategyOrder(t *testing.T) {
	// Matches both the exchange-line strategy and the corporate-suffix
	// strategy; the exchange-line result must win.
	doc := mustDoc(t, "<html><body><div>\nAAPL NASDAQ\nApple Computer\nUnrelated Widgets Inc\n</div></body></html>")

	if got := ExtractCompanyName(doc, "AAPL"); got != "Apple Computer" {
		t.Errorf("expected exchange-line strategy to win, got %q", got)
	}
}

func TestExtractCompanyNameFromTitle(t *testing.T) {
	doc := mustDoc(t, `<html><head><title>Apple Inc (NASDAQ: AAPL)</title></head><body><p>page body</p></body></html>`)

	if got := ExtractCompanyName(doc, "AAPL"); got != "Apple Inc" {
		t.Errorf("expected title strategy result, got %q", got)
	}
}

func TestExtractCompanyNameSuffixLine(t *testing.T) {
	doc := mustDoc(t, "<html><body><div>\n$187.20\nMicro Devices Corp\n</div></body></html>")

	if got := ExtractCompanyName(doc, "AMD"); got != "Micro Devices Corp" {
		t.Errorf("expected suffix-line strategy result, got %q", got)
	}
}

func TestExtractCompanyNameExclusionFilter(t *testing.T) {
	// The line after the exchange line is a label token, so strategy (1)
	// must reject it rather than report "BUY" as a company name.
	doc := mustDoc(t, "<html><body><div>\nAAPL NASDAQ\nBUY\n</div></body></html>")

	if got := ExtractCompanyName(doc, "AAPL"); got == "BUY" {
		t.Errorf("label token accepted as company name")
	}
}

func TestExtractCompanyNameNone(t *testing.T) {
	doc := mustDoc(t, `<html><body><p>42 17 99</p></body></html>`)
	if got := ExtractCompanyName(doc, "ZZZZ"); got != "" {
		t.Errorf("expected no name, got %q", got)
	}
}
