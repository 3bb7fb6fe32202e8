package api

import (
	"time"

	"arcade-book/pkg/types"
)

// Dashboard event types.
const (
	EventSnapshot     = "snapshot"
	EventBook         = "book"
	EventRefreshError = "refresh_error"
	EventScan         = "scan"
)

// DashboardEvent is the wrapper for all events sent to the dashboard
type DashboardEvent struct {
	Type      string      `json:"type"`      // one of the Event* constants
	Timestamp time.Time   `json:"timestamp"` // Event time
	MarketID  string      `json:"market_id"` // book key (empty for global events)
	Data      interface{} `json:"data"`      // Event-specific payload
}

// BookUpdateEvent carries a freshly composed book
type BookUpdateEvent struct {
	AppID      uint64           `json:"app_id"`
	Source     string           `json:"source"`
	Yes        OutcomeStatus    `json:"yes"`
	No         OutcomeStatus    `json:"no"`
	Book       types.MarketSide `json:"book"`
	UpdateTime time.Time        `json:"update_time"`
}

// RefreshErrorEvent is emitted when a book could not be rebuilt. The previous
// book stays served.
type RefreshErrorEvent struct {
	AppID  uint64 `json:"app_id"`
	Source string `json:"source"`
	Error  string `json:"error"`
}

// ScanEvent is emitted when the tracked market set changes
type ScanEvent struct {
	Started []uint64 `json:"started"`
	Stopped []uint64 `json:"stopped"`
	Tracked int      `json:"tracked"`
}

// NewBookUpdateEvent wraps a composed book in a dashboard event
func NewBookUpdateEvent(marketID string, appID uint64, source string, side types.MarketSide) DashboardEvent {
	now := time.Now()
	return DashboardEvent{
		Type:      EventBook,
		Timestamp: now,
		MarketID:  marketID,
		Data: BookUpdateEvent{
			AppID:      appID,
			Source:     source,
			Yes:        NewOutcomeStatus(side.Yes),
			No:         NewOutcomeStatus(side.No),
			Book:       side,
			UpdateTime: now,
		},
	}
}

// NewRefreshErrorEvent creates a refresh failure event
func NewRefreshErrorEvent(marketID string, appID uint64, source string, err error) DashboardEvent {
	return DashboardEvent{
		Type:      EventRefreshError,
		Timestamp: time.Now(),
		MarketID:  marketID,
		Data:      RefreshErrorEvent{AppID: appID, Source: source, Error: err.Error()},
	}
}

// NewScanEvent creates a tracked-set change event
func NewScanEvent(started, stopped []uint64, tracked int) DashboardEvent {
	if started == nil {
		started = []uint64{}
	}
	if stopped == nil {
		stopped = []uint64{}
	}
	return DashboardEvent{
		Type:      EventScan,
		Timestamp: time.Now(),
		Data:      ScanEvent{Started: started, Stopped: stopped, Tracked: tracked},
	}
}
