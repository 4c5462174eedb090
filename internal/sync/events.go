package sync

// EventType identifies a sync notification.
type EventType string

const (
	EventQueued        EventType = "sync.queued"
	EventItemSynced    EventType = "sync.item_synced"
	EventDrainStarted  EventType = "sync.drain_started"
	EventDrainFinished EventType = "sync.drain_finished"
	EventCompleted     EventType = "sync.completed"
	EventFailed        EventType = "sync.failed"
)

// Event describes a sync state change for interested observers (the
// desktop WebSocket hub forwards these to connected UI clients).
type Event struct {
	Type    EventType `json:"type"`
	ItemID  string    `json:"item_id,omitempty"`
	WeekKey string    `json:"week_key,omitempty"`
	Synced  int       `json:"synced,omitempty"`
	Failed  int       `json:"failed,omitempty"`
	Pending int       `json:"pending,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// EventHandler receives events during sync operations.
type EventHandler interface {
	HandleSyncEvent(event Event)
}
