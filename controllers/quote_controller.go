package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stockwatch_backend/models"
	"stockwatch_backend/services"
	"stockwatch_backend/services/marketdata"
	"stockwatch_backend/services/signalpage"
)

// QuoteController handles quote and chart requests
type QuoteController struct {
	db     *gorm.DB
	quotes *marketdata.Service
}

// NewQuoteController creates a new quote controller
func NewQuoteController(db *gorm.DB, quotes *marketdata.Service) *QuoteController {
	return &QuoteController{db: db, quotes: quotes}
}

// GetQuote returns the current quote for a symbol
// GET /api/v1/quotes/:symbol
func (qc *QuoteController) GetQuote(c *gin.Context) {
	quote := qc.quotes.GetQuote(c.Param("symbol"))
	c.JSON(http.StatusOK, quote)
}

// GetCachedQuote returns the persisted quote snapshot from the last
// scheduled refresh, without touching the network
// GET /api/v1/quotes/:symbol/cached
func (qc *QuoteController) GetCachedQuote(c *gin.Context) {
	sym := signalpage.NormalizeSymbol(c.Param("symbol"))

	var cache models.QuoteCache
	if err := qc.db.Where("symbol = ?", sym).First(&cache).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "No cached quote for " + sym})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load quote"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cache})
}

// GetChart returns the intraday series for a symbol
// GET /api/v1/charts/:symbol?period=1d&interval=1m
func (qc *QuoteController) GetChart(c *gin.Context) {
	series := qc.quotes.GetIntraday(
		c.Param("symbol"),
		c.DefaultQuery("period", marketdata.DefaultPeriod),
		c.DefaultQuery("interval", marketdata.DefaultInterval),
	)
	c.JSON(http.StatusOK, series)
}

// StreamQuotes upgrades to a WebSocket pushing quote updates
// GET /ws/quotes
func (qc *QuoteController) StreamQuotes(c *gin.Context) {
	if services.GlobalQuoteStream == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "quote stream not available"})
		return
	}
	services.GlobalQuoteStream.HandleWS(c)
}
