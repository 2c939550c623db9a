package chain

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ripemd160"
)

func testPrivKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	// chave fixa para derivação determinística nos testes
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	priv, _ := btcec.PrivKeyFromBytes(seed[:])
	require.NotNil(t, priv)
	return priv
}

func TestDecodeWIF_RoundTrip(t *testing.T) {
	priv := testPrivKey(t)
	wif := EncodeWIF(priv)

	acc, err := DecodeWIF(wif)
	require.NoError(t, err)
	require.NotNil(t, acc)

	assert.Equal(t, priv.PubKey().SerializeCompressed(), acc.PublicKey)
	assert.Len(t, acc.PublicKey, 33)
}

func TestDecodeWIF_Deterministic(t *testing.T) {
	wif := EncodeWIF(testPrivKey(t))

	a, err := DecodeWIF(wif)
	require.NoError(t, err)
	b, err := DecodeWIF(wif)
	require.NoError(t, err)

	// mesma credencial deriva sempre a mesma identidade
	assert.Equal(t, a.Address, b.Address)
	assert.Equal(t, a.ScriptHash, b.ScriptHash)
	assert.Equal(t, a.VerificationScript, b.VerificationScript)
}

func TestDecodeWIF_Invalid(t *testing.T) {
	priv := testPrivKey(t)
	payload := append(priv.Serialize(), compressedFlag)

	cases := []struct {
		name string
		wif  string
	}{
		{"empty", ""},
		{"garbage", "not-a-wif"},
		{"truncated", EncodeWIF(priv)[:10]},
		{"wrong version byte", base58.CheckEncode(payload, 0x36)},
		{"missing compressed flag", base58.CheckEncode(priv.Serialize(), wifVersion)},
		{"wrong flag value", base58.CheckEncode(append(priv.Serialize(), 0x00), wifVersion)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acc, err := DecodeWIF(tc.wif)
			assert.ErrorIs(t, err, ErrInvalidWIF)
			assert.Nil(t, acc)
		})
	}
}

func TestAccount_AddressFormat(t *testing.T) {
	acc, err := DecodeWIF(EncodeWIF(testPrivKey(t)))
	require.NoError(t, err)

	decoded, version, err := base58.CheckDecode(acc.Address)
	require.NoError(t, err)
	assert.Equal(t, byte(addressVersion), version)
	// o payload do endereço é o hash160 cru, o mesmo byte a byte que vai
	// no campo de signer e no argumento Hash160 do script
	assert.Equal(t, acc.ScriptHash.BytesLE(), decoded)
}

// O hash da conta serializa com os mesmos bytes em todos os pontos do
// wire: payload do endereço, campo de signer e argumento Hash160.
func TestAccount_ScriptHashWireOrder(t *testing.T) {
	acc, err := DecodeWIF(EncodeWIF(testPrivKey(t)))
	require.NoError(t, err)

	payload, _, err := base58.CheckDecode(acc.Address)
	require.NoError(t, err)

	// hash160 cru do verification script, sem passar por Uint160
	sha := sha256.Sum256(acc.VerificationScript)
	r := ripemd160.New()
	r.Write(sha[:])
	raw := r.Sum(nil)

	assert.Equal(t, raw, payload)
	assert.Equal(t, raw, acc.ScriptHash.BytesLE())

	// signer na transação carrega exatamente esses bytes
	tx := &Transaction{Script: []byte{opPush0}}
	require.NoError(t, tx.AddSigner(Signer{Account: acc.ScriptHash, Scope: ScopeGlobal}))
	unsigned, err := tx.UnsignedBytes()
	require.NoError(t, err)
	assert.Equal(t, raw, unsigned[26:46])

	// e o argumento Hash160 no script de invocação também
	b := NewScriptBuilder()
	require.NoError(t, b.emitParam(Hash160Param(acc.ScriptHash)))
	script := b.Bytes()
	require.Len(t, script, 2+20)
	assert.Equal(t, raw, script[2:])
}

func TestAccount_VerificationScript(t *testing.T) {
	acc, err := DecodeWIF(EncodeWIF(testPrivKey(t)))
	require.NoError(t, err)

	// PUSHDATA1 <33 bytes pub> SYSCALL CheckSig
	script := acc.VerificationScript
	require.Len(t, script, 2+33+1+4)
	assert.Equal(t, byte(opPushData1), script[0])
	assert.Equal(t, byte(33), script[1])
	assert.Equal(t, acc.PublicKey, script[2:35])
	assert.Equal(t, byte(opSyscall), script[35])
	assert.Equal(t, syscallCheckSig[:], script[36:40])

	assert.Equal(t, hash160(script), acc.ScriptHash)
}

func TestAccount_SignAndVerify(t *testing.T) {
	acc, err := DecodeWIF(EncodeWIF(testPrivKey(t)))
	require.NoError(t, err)

	data := []byte("sign data payload")
	sig := acc.Sign(data)
	require.NotEmpty(t, sig)

	assert.True(t, acc.VerifySignature(data, sig))
	assert.False(t, acc.VerifySignature([]byte("other payload"), sig))
	assert.False(t, acc.VerifySignature(data, []byte{0x01, 0x02}))
}

func TestUint160_BytesLE(t *testing.T) {
	u, err := Uint160FromHex("0xf9ffa64482b38c0dc7841cf27d25a9f03dfb0381")
	require.NoError(t, err)

	le := u.BytesLE()
	require.Len(t, le, 20)
	for i := range le {
		assert.Equal(t, u[19-i], le[i])
	}
	assert.Equal(t, "0xf9ffa64482b38c0dc7841cf27d25a9f03dfb0381", u.String())
}

func TestUint160FromHex_Invalid(t *testing.T) {
	_, err := Uint160FromHex("zz")
	assert.Error(t, err)
	_, err = Uint160FromHex("abcd")
	assert.Error(t, err)
}
