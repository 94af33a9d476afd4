package models

// WSMessage is a frame sent to WebSocket chat clients.
type WSMessage struct {
	Type      string `json:"type"` // "text-delta" | "finish" | "error"
	Delta     string `json:"delta,omitempty"`
	ErrorText string `json:"errorText,omitempty"`
}
