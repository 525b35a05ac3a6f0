package domain

import "time"

// ChannelMessage is one message in a problem's discussion channel.
// Channels are append-only and chronological.
type ChannelMessage struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agentId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
