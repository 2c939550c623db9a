package events

import "time"

// Evento emitido pelo bet-journal-worker após persistir uma aposta.
type BetJournaled struct {
	TxID    string    `json:"txId"`
	Address string    `json:"address"`
	Status  string    `json:"status"` // "JOURNALED" | "FAILED"
	Reason  string    `json:"reason,omitempty"`
	Ts      time.Time `json:"ts"`
}
