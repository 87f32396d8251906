package models

import (
	"testing"

	"stockwatch_backend/services/signalpage"
)

func TestSignalCacheFromRecord(t *testing.T) {
	record := signalpage.SignalRecord{
		Symbol:     "AAPL",
		Suggestion: "BUY",
		Summary:    "trend intact",
		SignalHistory: []signalpage.SignalAction{
			{Date: "08/15/2026", Price: "187.20", Signal: "BUY"},
		},
		TechnicalIndicators: map[string]interface{}{"rsi": 58.3},
		PriceTarget:         "$210.00",
	}

	var cache SignalCache
	cache.FromRecord(record)

	if cache.Symbol != "AAPL" || cache.Suggestion != "BUY" {
		t.Errorf("unexpected cache fields: %+v", cache)
	}
	history := cache.History()
	if len(history) != 1 || history[0].Signal != "BUY" {
		t.Errorf("unexpected history: %+v", history)
	}
	indicators := cache.Indicators()
	if v, ok := indicators["rsi"].(float64); !ok || v != 58.3 {
		t.Errorf("unexpected indicators: %+v", indicators)
	}
}

func TestSignalCacheEmptyFields(t *testing.T) {
	var cache SignalCache
	cache.FromRecord(signalpage.SignalRecord{Symbol: "MSFT"})

	if cache.SignalHistory != "" || cache.TechnicalIndicators != "" {
		t.Errorf("expected empty serialized fields, got %+v", cache)
	}
	if cache.History() != nil {
		t.Error("expected nil history")
	}
	if cache.Indicators() != nil {
		t.Error("expected nil indicators")
	}
}

func TestSignalCacheCorruptJSON(t *testing.T) {
	cache := SignalCache{SignalHistory: "{not json", TechnicalIndicators: "[broken"}
	if cache.History() != nil {
		t.Error("corrupt history must decode to nil")
	}
	if cache.Indicators() != nil {
		t.Error("corrupt indicators must decode to nil")
	}
}
