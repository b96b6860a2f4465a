package chat

import "time"

// Connectivity 两个后端的可达性。
type Connectivity struct {
	DialogueEngineUp bool `json:"rasa"`
	RestAPIUp        bool `json:"fastApi"`
}

// Snapshot is the client-facing view of a chat session.
type Snapshot struct {
	Token          string       `json:"token"`
	CreatedAt      time.Time    `json:"createdAt"`
	Typing         bool         `json:"typing"`
	PendingOrderID string       `json:"pendingOrderId,omitempty"`
	Transcript     []Entry      `json:"transcript"`
	Connectivity   Connectivity `json:"connectivity"`
}
