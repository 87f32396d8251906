package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stockwatch_backend/services/signalpage"
)

// WatchItem represents one watched ticker symbol
type WatchItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Symbol       string    `gorm:"uniqueIndex;size:16;not null" json:"symbol"`
	Name         string    `gorm:"size:128" json:"name"`
	DisplayOrder int       `gorm:"default:0" json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SignalCache holds the latest scraped signal record per symbol.
// SignalHistory and TechnicalIndicators are stored as JSON text.
type SignalCache struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Symbol              string    `gorm:"uniqueIndex;size:16;not null" json:"symbol"`
	Suggestion          string    `gorm:"size:32" json:"suggestion,omitempty"`
	SignalHistory       string    `gorm:"type:text" json:"-"`
	Summary             string    `gorm:"size:2048" json:"summary,omitempty"`
	TechnicalIndicators string    `gorm:"type:text" json:"-"`
	PriceTarget         string    `gorm:"size:64" json:"price_target,omitempty"`
	FetchError          string    `gorm:"size:256" json:"error,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// QuoteCache holds the latest quote snapshot per symbol.
type QuoteCache struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	Symbol        string              `gorm:"uniqueIndex;size:16;not null" json:"symbol"`
	Price         decimal.NullDecimal `gorm:"type:decimal(15,4)" json:"price"`
	ChangePercent decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"change"`
	Currency      string              `gorm:"size:8" json:"currency,omitempty"`
	Volume        *int64              `json:"volume"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// FromRecord replaces the cache content with a freshly fetched record.
func (c *SignalCache) FromRecord(record signalpage.SignalRecord) {
	c.Symbol = record.Symbol
	c.Suggestion = record.Suggestion
	c.Summary = record.Summary
	c.PriceTarget = record.PriceTarget
	c.FetchError = record.Error
	c.SignalHistory = ""
	if len(record.SignalHistory) > 0 {
		c.SignalHistory = marshalOrEmpty(record.SignalHistory)
	}
	c.TechnicalIndicators = ""
	if len(record.TechnicalIndicators) > 0 {
		c.TechnicalIndicators = marshalOrEmpty(record.TechnicalIndicators)
	}
}

// History decodes the stored signal history, never failing: corrupt or
// empty JSON decodes to no entries.
func (c *SignalCache) History() []signalpage.SignalAction {
	if c.SignalHistory == "" {
		return nil
	}
	var history []signalpage.SignalAction
	if err := json.Unmarshal([]byte(c.SignalHistory), &history); err != nil {
		return nil
	}
	return history
}

// Indicators decodes the stored technical indicators map.
func (c *SignalCache) Indicators() map[string]interface{} {
	if c.TechnicalIndicators == "" {
		return nil
	}
	var indicators map[string]interface{}
	if err := json.Unmarshal([]byte(c.TechnicalIndicators), &indicators); err != nil {
		return nil
	}
	return indicators
}

func marshalOrEmpty(v interface{}) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// MigrateWatchlistModels runs database migrations for watchlist models
func MigrateWatchlistModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&WatchItem{},
		&SignalCache{},
		&QuoteCache{},
	)
}
