package dto

// SessionResponse é a visão externa de uma sessão de fluxo.
type SessionResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	Address   string `json:"address,omitempty"`
	Error     string `json:"error,omitempty"`

	SelectedPool   string `json:"selectedPool,omitempty"`
	SelectedOption string `json:"selectedOption,omitempty"`

	Confirmation *ConfirmationView `json:"confirmation,omitempty"`
}

// ConfirmationView é o payload terminal exibido após a aposta.
type ConfirmationView struct {
	Address  string `json:"address"`
	PoolName string `json:"poolName"`
	Option   string `json:"option"`
	TxID     string `json:"txId"`
	// QR code PNG em base64 apontando para o txid no explorador
	QRCodePNG string `json:"qrCodePng,omitempty"`
}

// PoolView é uma pool do catálogo na resposta HTTP.
type PoolView struct {
	ID      string       `json:"id"` // hex
	Name    string       `json:"name"`
	Options []OptionView `json:"options"`
}

// OptionView preserva a ordem de retorno do contrato.
type OptionView struct {
	ID    string `json:"id"` // hex
	Label string `json:"label"`
}
