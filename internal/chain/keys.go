package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // Hash160 do protocolo exige RIPEMD-160
)

const (
	wifVersion     = 0x80 // byte de versão do WIF (base58check)
	compressedFlag = 0x01 // sufixo indicando chave pública comprimida
	addressVersion = 0x35 // byte de versão dos endereços N3
)

// ErrInvalidWIF indica que a string não decodifica como chave privada WIF.
// Erro de validação local: o chamador deve pedir nova entrada, nunca abortar.
var ErrInvalidWIF = errors.New("invalid WIF private key")

// Uint160 é o identificador de 20 bytes derivado de um script (script hash).
type Uint160 [20]byte

// BytesLE retorna o hash em ordem little-endian, como vai no wire.
func (u Uint160) BytesLE() []byte {
	out := make([]byte, 20)
	for i := range out {
		out[i] = u[19-i]
	}
	return out
}

// String retorna a forma big-endian com prefixo 0x usada nas chamadas RPC.
func (u Uint160) String() string {
	return "0x" + hex.EncodeToString(u[:])
}

// Uint160FromHex aceita o hash com ou sem prefixo 0x.
func Uint160FromHex(s string) (Uint160, error) {
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	var u Uint160
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	if len(b) != 20 {
		return u, errors.New("script hash must be 20 bytes")
	}
	copy(u[:], b)
	return u, nil
}

// Account é a identidade derivada de uma credencial WIF válida: chave,
// script de verificação, script hash e endereço. Imutável após a derivação.
type Account struct {
	priv *btcec.PrivateKey

	PublicKey          []byte // comprimida, 33 bytes
	VerificationScript []byte
	ScriptHash         Uint160
	Address            string
}

// DecodeWIF valida a credencial e deriva a conta correspondente.
// Qualquer falha de formato resulta em ErrInvalidWIF; nenhuma conta é
// criada a partir de entrada inválida.
func DecodeWIF(wif string) (*Account, error) {
	payload, version, err := base58.CheckDecode(wif)
	if err != nil || version != wifVersion {
		return nil, ErrInvalidWIF
	}
	if len(payload) != 33 || payload[32] != compressedFlag {
		return nil, ErrInvalidWIF
	}
	priv, _ := btcec.PrivKeyFromBytes(payload[:32])
	return newAccount(priv), nil
}

// EncodeWIF é o inverso de DecodeWIF (útil em testes e ferramentas).
func EncodeWIF(priv *btcec.PrivateKey) string {
	payload := append(priv.Serialize(), compressedFlag)
	return base58.CheckEncode(payload, wifVersion)
}

func newAccount(priv *btcec.PrivateKey) *Account {
	pub := priv.PubKey().SerializeCompressed()
	script := verificationScript(pub)
	h := hash160(script)
	return &Account{
		priv:               priv,
		PublicKey:          pub,
		VerificationScript: script,
		ScriptHash:         h,
		// o payload do endereço é o hash em wire order, não o de exibição
		Address: base58.CheckEncode(h.BytesLE(), addressVersion),
	}
}

// verificationScript monta o script padrão de assinatura única:
// PUSHDATA1 <pub> SYSCALL CheckSig
func verificationScript(pub []byte) []byte {
	script := make([]byte, 0, 40)
	script = append(script, opPushData1, byte(len(pub)))
	script = append(script, pub...)
	script = append(script, opSyscall)
	script = append(script, syscallCheckSig[:]...)
	return script
}

// Sign assina o digest SHA-256 de data e retorna a assinatura DER.
func (a *Account) Sign(data []byte) []byte {
	digest := sha256.Sum256(data)
	return ecdsa.Sign(a.priv, digest[:]).Serialize()
}

// VerifySignature confere uma assinatura DER produzida por Sign.
func (a *Account) VerifySignature(data, sig []byte) bool {
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(data)
	return parsed.Verify(digest[:], a.priv.PubKey())
}

// hash160 aplica RIPEMD160(SHA256(b)), o hash de scripts do protocolo.
// O resultado cru é wire order; Uint160 guarda a forma de exibição
// (big-endian), então os bytes entram invertidos e BytesLE devolve o cru.
func hash160(b []byte) Uint160 {
	sha := sha256.Sum256(b)
	r := ripemd160.New()
	r.Write(sha[:])
	sum := r.Sum(nil)
	var out Uint160
	for i := range out {
		out[i] = sum[19-i]
	}
	return out
}
