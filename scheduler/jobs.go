package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"gorm.io/gorm"

	"stockwatch_backend/config"
	"stockwatch_backend/models"
	"stockwatch_backend/services"
	"stockwatch_backend/services/marketdata"
	"stockwatch_backend/services/signalpage"
)

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron        *gocron.Scheduler
	db          *gorm.DB
	signals     *signalpage.Service
	quotes      *marketdata.Service
	scrapePause time.Duration
}

// NewScheduler creates a new scheduler instance
func NewScheduler(db *gorm.DB, signals *signalpage.Service, quotes *marketdata.Service) *Scheduler {
	return &Scheduler{
		cron:        gocron.NewScheduler(time.UTC),
		db:          db,
		signals:     signals,
		quotes:      quotes,
		scrapePause: config.AppConfig.ScrapePause,
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Refresh signal pages for all watchlist symbols
	s.cron.Every(config.AppConfig.SignalRefreshMinutes).Minutes().Do(func() {
		s.refreshSignals()
	})

	// Refresh quotes for all watchlist symbols
	s.cron.Every(config.AppConfig.QuoteRefreshMinutes).Minutes().Do(func() {
		s.refreshQuotes()
	})

	// Prune old snapshots weekly on Sunday at 01:00
	s.cron.Every(1).Week().Sunday().At("01:00").Do(func() {
		s.pruneSnapshots()
	})

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// refreshSignals scrapes the signal page for every watchlist symbol
func (s *Scheduler) refreshSignals() {
	log.Println("Refreshing watchlist signals...")

	items, err := s.watchItems()
	if err != nil {
		log.Printf("Error loading watchlist: %v", err)
		return
	}

	refreshed := 0
	for i, item := range items {
		record := s.signals.FetchSignal(item.Symbol)
		if err := models.UpsertSignalCache(s.db, record); err != nil {
			log.Printf("Error saving signal for %s: %v", item.Symbol, err)
			continue
		}
		s.archiveSignal(record)
		refreshed++

		// Space out scrapes beyond the rate limiter floor
		if i < len(items)-1 {
			time.Sleep(s.scrapePause)
		}
	}

	log.Printf("Refreshed signals for %d/%d watchlist symbols", refreshed, len(items))
}

// refreshQuotes fetches quotes for every watchlist symbol and broadcasts them
func (s *Scheduler) refreshQuotes() {
	log.Println("Refreshing watchlist quotes...")

	items, err := s.watchItems()
	if err != nil {
		log.Printf("Error loading watchlist: %v", err)
		return
	}

	for _, item := range items {
		quote := s.quotes.GetQuote(item.Symbol)
		if err := models.UpsertQuoteCache(s.db, quote); err != nil {
			log.Printf("Error saving quote for %s: %v", item.Symbol, err)
			continue
		}
		if services.GlobalQuoteStream != nil {
			services.GlobalQuoteStream.BroadcastQuote(quote)
		}
	}

	log.Printf("Refreshed quotes for %d watchlist symbols", len(items))
}

// pruneSnapshots removes signal snapshots older than the retention window
func (s *Scheduler) pruneSnapshots() {
	if services.GlobalSnapshotStore == nil {
		return
	}

	threeMonthsAgo := time.Now().AddDate(0, -3, 0)
	pruned, err := services.GlobalSnapshotStore.PruneSnapshots(threeMonthsAgo)
	if err != nil {
		log.Printf("Error pruning snapshots: %v", err)
		return
	}
	log.Printf("Pruned %d old snapshots", pruned)
}

func (s *Scheduler) watchItems() ([]models.WatchItem, error) {
	var items []models.WatchItem
	err := s.db.Order("display_order ASC, symbol ASC").Find(&items).Error
	return items, err
}

func (s *Scheduler) archiveSignal(record signalpage.SignalRecord) {
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
