package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: ping (único tipo aceito; o fanout não tem assinatura seletiva)
type ClientMsg struct {
	Type string `json:"type"`
}

// PulseFrame é o quadro enviado aos clientes a cada pulso da chain.
type PulseFrame struct {
	Type     string `json:"type"` // "chain_pulse"
	Height   uint64 `json:"height"`
	Detected bool   `json:"detected"`
}
