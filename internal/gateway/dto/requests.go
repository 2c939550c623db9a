package dto

// SubmitCredentialRequest entrega a credencial WIF da sessão.
type SubmitCredentialRequest struct {
	WIF string `json:"wif"`
}

// SelectPoolRequest escolhe uma pool pelo id em hex.
type SelectPoolRequest struct {
	PoolID string `json:"poolId"`
}

// SelectOptionRequest escolhe uma opção da pool selecionada pelo label.
type SelectOptionRequest struct {
	Label string `json:"label"`
}
