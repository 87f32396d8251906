package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stockwatch_backend/models"
	"stockwatch_backend/services"
	"stockwatch_backend/services/signalpage"
)

// WatchlistController handles watchlist management requests
type WatchlistController struct {
	db      *gorm.DB
	signals *signalpage.Service
}

// NewWatchlistController creates a new watchlist controller
func NewWatchlistController(db *gorm.DB, signals *signalpage.Service) *WatchlistController {
	return &WatchlistController{db: db, signals: signals}
}

// WatchCreateRequest is the payload for adding a symbol
type WatchCreateRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Name   string `json:"name"`
}

// ReorderRequest is one entry of the reorder payload
type ReorderRequest struct {
	Symbol string `json:"symbol"`
	Order  int    `json:"order"`
}

// GetWatchlist returns all watched symbols in display order
// GET /api/v1/watchlist
func (wc *WatchlistController) GetWatchlist(c *gin.Context) {
	var items []models.WatchItem
	if err := wc.db.Order("display_order ASC, symbol ASC").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch watchlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// AddWatchItem validates a symbol and adds it to the watchlist
// POST /api/v1/watchlist
func (wc *WatchlistController) AddWatchItem(c *gin.Context) {
	var req WatchCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}

	sym := signalpage.NormalizeSymbol(req.Symbol)
	if sym == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}

	// Idempotent on duplicates
	var existing models.WatchItem
	if err := wc.db.Where("symbol = ?", sym).First(&existing).Error; err == nil {
		c.JSON(http.StatusOK, gin.H{"data": existing})
		return
	}

	validation := wc.signals.Validate(sym)
	if !validation.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stock symbol: " + sym})
		return
	}

	name := req.Name
	if name == "" {
		name = validation.Name
	}

	var maxOrder int
	wc.db.Model(&models.WatchItem{}).Select("COALESCE(MAX(display_order), 0)").Scan(&maxOrder)

	item := models.WatchItem{Symbol: sym, Name: name, DisplayOrder: maxOrder + 1}
	if err := wc.db.Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add symbol"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

// DeleteWatchItem removes a symbol and its cached records
// DELETE /api/v1/watchlist/:symbol
func (wc *WatchlistController) DeleteWatchItem(c *gin.Context) {
	sym := signalpage.NormalizeSymbol(c.Param("symbol"))

	if err := wc.db.Where("symbol = ?", sym).Delete(&models.WatchItem{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete symbol"})
		return
	}
	wc.db.Where("symbol = ?", sym).Delete(&models.SignalCache{})
	wc.db.Where("symbol = ?", sym).Delete(&models.QuoteCache{})

	if services.GlobalSnapshotStore != nil {
		if err := services.GlobalSnapshotStore.DeleteSymbolSnapshots(sym); err != nil {
			// Snapshots are advisory; the watchlist row is already gone.
			c.JSON(http.StatusOK, gin.H{"ok": true, "warning": "snapshot cleanup failed"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ReorderWatchlist updates the display order of watched symbols
// PUT /api/v1/watchlist/reorder
func (wc *WatchlistController) ReorderWatchlist(c *gin.Context) {
	var entries []ReorderRequest
	if err := c.ShouldBindJSON(&entries); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reorder payload"})
		return
	}

	for _, entry := range entries {
		sym := signalpage.NormalizeSymbol(entry.Symbol)
		if sym == "" {
			continue
		}
		wc.db.Model(&models.WatchItem{}).
			Where("symbol = ?", sym).
			Update("display_order", entry.Order)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
