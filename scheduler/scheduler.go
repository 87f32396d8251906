package scheduler

// Package scheduler provides scheduled job management for the watchlist backend.
// It handles:
// - Periodic signal page refreshes for all watchlist symbols
// - Periodic quote refreshes with WebSocket broadcast
// - Weekly pruning of old signal snapshots
//
// The main scheduler is implemented in jobs.go
