package ws

import (
	"encoding/json"

	"hydra/internal/domain"
)

// Client -> server message.
type clientMessage struct {
	Type    string   `json:"type"` // "auth", "subscribe", "unsubscribe", "heartbeat"
	Token   string   `json:"token,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
}

// Server -> client messages.
type authenticatedMessage struct {
	Type     string `json:"type"` // "authenticated"
	Identity string `json:"identity"`
}

type errorMessage struct {
	Type   string `json:"type"` // "error"
	Reason string `json:"reason"`
}

type priceUpdateMessage struct {
	Type string             `json:"type"` // "price_update"
	Data domain.PriceRecord `json:"data"`
}

func marshalError(reason string) []byte {
	b, _ := json.Marshal(errorMessage{Type: "error", Reason: reason})
	return b
}

func marshalAuthenticated(identity string) []byte {
	b, _ := json.Marshal(authenticatedMessage{Type: "authenticated", Identity: identity})
	return b
}

func marshalPriceUpdate(rec domain.PriceRecord) ([]byte, error) {
	return json.Marshal(priceUpdateMessage{Type: "price_update", Data: rec})
}
