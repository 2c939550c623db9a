package chain

// TxConfig reúne a conta derivada da credencial e as constantes fixas do
// deployment. É construída uma vez por sessão, depois de validada a
// credencial, e lida (nunca mutada) pelo catálogo e pelo construtor de
// apostas.
type TxConfig struct {
	Account         *Account
	Contract        Uint160
	NetworkMagic    uint32
	NodeURL         string
	ExpiryIncrement uint32 // janela de validade em blocos

	// Overrides de taxa; zero significa estimar via nó.
	SystemFee  int64
	NetworkFee int64
}
