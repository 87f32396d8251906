package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stockwatch_backend/models"
	"stockwatch_backend/services"
	"stockwatch_backend/services/signalpage"
)

// SignalController handles signal record requests
type SignalController struct {
	db      *gorm.DB
	signals *signalpage.Service
}

// NewSignalController creates a new signal controller
func NewSignalController(db *gorm.DB, signals *signalpage.Service) *SignalController {
	return &SignalController{db: db, signals: signals}
}

// GetSignal returns the cached signal record for a symbol, fetching
// on demand when nothing is cached yet
// GET /api/v1/signals/:symbol
func (sc *SignalController) GetSignal(c *gin.Context) {
	sym := signalpage.NormalizeSymbol(c.Param("symbol"))

	var cache models.SignalCache
	err := sc.db.Where("symbol = ?", sym).First(&cache).Error
	if err == gorm.ErrRecordNotFound {
		record := sc.signals.FetchSignal(sym)
		if err := models.UpsertSignalCache(sc.db, record); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cache signal"})
			return
		}
		sc.archiveSnapshot(record)
		if err := sc.db.Where("symbol = ?", sym).First(&cache).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load signal"})
			return
		}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load signal"})
		return
	}

	c.JSON(http.StatusOK, signalResponse(&cache))
}

// RefreshSignal forces a fresh scrape for a symbol
// POST /api/v1/signals/:symbol/refresh
func (sc *SignalController) RefreshSignal(c *gin.Context) {
	sym := signalpage.NormalizeSymbol(c.Param("symbol"))

	record := sc.signals.FetchSignal(sym)
	if err := models.UpsertSignalCache(sc.db, record); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cache signal"})
		return
	}
	sc.archiveSnapshot(record)

	var cache models.SignalCache
	if err := sc.db.Where("symbol = ?", sym).First(&cache).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load signal"})
		return
	}
	c.JSON(http.StatusOK, signalResponse(&cache))
}

// GetSnapshots returns the archived fetch history for a symbol
// GET /api/v1/signals/:symbol/snapshots
func (sc *SignalController) GetSnapshots(c *gin.Context) {
	if services.GlobalSnapshotStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot store not available"})
		return
	}

	sym := signalpage.NormalizeSymbol(c.Param("symbol"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	snapshots, err := services.GlobalSnapshotStore.SignalSnapshots(sym, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load snapshots"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": snapshots})
}

// ValidateSymbol probes whether a ticker symbol is real
// GET /api/v1/symbols/:symbol/validate
func (sc *SignalController) ValidateSymbol(c *gin.Context) {
	validation := sc.signals.Validate(c.Param("symbol"))
	c.JSON(http.StatusOK, validation)
}

// archiveSnapshot stores one fetched record in the local archive and,
// when configured, MongoDB. Archive failures never affect the response.
func (sc *SignalController) archiveSnapshot(record signalpage.SignalRecord) {
	if services.GlobalSnapshotStore != nil {
		if err := services.GlobalSnapshotStore.SaveSignalSnapshot(record); err != nil {
			log.Printf("Warning: failed to archive snapshot for %s: %v", record.Symbol, err)
		}
	}
	if services.GlobalMongoArchive.IsEnabled() {
		if err := services.GlobalMongoArchive.SaveSignalSnapshot(record); err != nil {
			log.Printf("Warning: failed to mirror snapshot for %s: %v", record.Symbol, err)
		}
	}
}

// signalResponse shapes a cached record for the API, including the
// last_two_actions compatibility field.
func signalResponse(cache *models.SignalCache) gin.H {
	history := cache.History()
	lastTwo := history
	if len(lastTwo) > 2 {
		lastTwo = lastTwo[:2]
	}

	return gin.H{
		"symbol":               cache.Symbol,
		"suggestion":           cache.Suggestion,
		"signal_history":       history,
		"last_two_actions":     lastTwo,
		"summary":              cache.Summary,
		"technical_indicators": cache.Indicators(),
		"price_target":         cache.PriceTarget,
		"error":                cache.FetchError,
		"updated_at":           cache.UpdatedAt,
	}
}
