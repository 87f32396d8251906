package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockwatch_backend/services/marketdata"
	"stockwatch_backend/services/signalpage"
)

// UpsertSignalCache stores the latest fetched signal record for a symbol,
// replacing any previous cache row.
func UpsertSignalCache(db *gorm.DB, record signalpage.SignalRecord) error {
	var cache SignalCache
	cache.FromRecord(record)

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"suggestion", "signal_history", "summary",
			"technical_indicators", "price_target", "fetch_error", "updated_at",
		}),
	}).Create(&cache).Error
}

// UpsertQuoteCache stores the latest quote snapshot for a symbol.
func UpsertQuoteCache(db *gorm.DB, quote marketdata.QuoteRecord) error {
	cache := QuoteCache{
		Symbol:   quote.Symbol,
		Currency: quote.Currency,
		Volume:   quote.Volume,
	}
	if quote.Price != nil {
		cache.Price = decimal.NullDecimal{Decimal: decimal.NewFromFloat(*quote.Price), Valid: true}
	}
	if quote.Change != nil {
		cache.ChangePercent = decimal.NullDecimal{Decimal: decimal.NewFromFloat(*quote.Change), Valid: true}
	}

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price", "change_percent", "currency", "volume", "updated_at",
		}),
	}).Create(&cache).Error
}
