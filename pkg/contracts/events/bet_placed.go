package events

// Evento publicado no tópico "flyby_bet_placed" após o broadcast da transação.
type BetPlaced struct {
	SessionID string `json:"sessionId"`
	Address   string `json:"address"` // endereço do apostador
	PoolID    string `json:"poolId"`  // hex do identificador da pool
	PoolName  string `json:"poolName"`
	Option    string `json:"option"`
	TxID      string `json:"txId"` // hash da transação transmitida
	TsUnixMs  int64  `json:"tsUnixMs"`
}
