package events

import "time"

// Evento publicado no canal Redis "flyby_chain_pulse" pelo chain-monitor.
// Detected indica que o evento alvo do contrato foi observado dentro da
// janela de dwell configurada.
type ChainPulse struct {
	Height    uint64    `json:"height"`
	Detected  bool      `json:"detected"`
	EventName string    `json:"eventName,omitempty"` // nome do evento que disparou o pulso
	Ts        time.Time `json:"ts"`
}
