package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stockwatch_backend/controllers"
	"stockwatch_backend/services/marketdata"
	"stockwatch_backend/services/signalpage"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, signals *signalpage.Service, quotes *marketdata.Service) {
	// Initialize controllers
	watchlistController := controllers.NewWatchlistController(db, signals)
	signalController := controllers.NewSignalController(db, signals)
	quoteController := controllers.NewQuoteController(db, quotes)

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Watchlist routes
		watchlist := api.Group("/watchlist")
		{
			watchlist.GET("", watchlistController.GetWatchlist)
			watchlist.POST("", watchlistController.AddWatchItem)
			watchlist.PUT("/reorder", watchlistController.ReorderWatchlist)
			watchlist.DELETE("/:symbol", watchlistController.DeleteWatchItem)
		}

		// Signal routes
		signalRoutes := api.Group("/signals")
		{
			signalRoutes.GET("/:symbol", signalController.GetSignal)
			signalRoutes.POST("/:symbol/refresh", signalController.RefreshSignal)
			signalRoutes.GET("/:symbol/snapshots", signalController.GetSnapshots)
		}

		// Symbol validation
		symbols := api.Group("/symbols")
		{
			symbols.GET("/:symbol/validate", signalController.ValidateSymbol)
		}

		// Quote routes
		quoteRoutes := api.Group("/quotes")
		{
			quoteRoutes.GET("/:symbol", quoteController.GetQuote)
			quoteRoutes.GET("/:symbol/cached", quoteController.GetCachedQuote)
		}

		// Chart routes
		charts := api.Group("/charts")
		{
			charts.GET("/:symbol", quoteController.GetChart)
		}
	}

	// WebSocket quote stream
	router.GET("/ws/quotes", quoteController.StreamQuotes)
}
