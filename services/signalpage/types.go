package signalpage

// SignalAction is one row of the signal history table.
type SignalAction struct {
	Date   string `json:"date"`
	Price  string `json:"price,omitempty"`
	Signal string `json:"signal"`
}

// SignalRecord is the structured result of scraping one signal page.
// Every field except Symbol may legitimately be absent; absence is not an
// error. Error is set only when the fetch failed entirely.
type SignalRecord struct {
	Symbol              string                 `json:"symbol"`
	Suggestion          string                 `json:"suggestion,omitempty"`
	SignalHistory       []SignalAction         `json:"signal_history,omitempty"`
	Summary             string                 `json:"summary,omitempty"`
	TechnicalIndicators map[string]interface{} `json:"technical_indicators,omitempty"`
	PriceTarget         string                 `json:"price_target,omitempty"`
	Error               string                 `json:"error,omitempty"`
}

// SymbolValidation is the result of probing whether a ticker symbol is real.
type SymbolValidation struct {
	Valid  bool   `json:"valid"`
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`
}
