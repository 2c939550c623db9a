package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransaction(t *testing.T) *Transaction {
	t.Helper()
	tx := &Transaction{
		Nonce:           0x01020304,
		SystemFee:       997775,
		NetworkFee:      123456,
		ValidUntilBlock: 5000000,
		Script:          []byte{0x10, 0x41, 0xAA, 0xBB, 0xCC, 0xDD},
	}
	acct, err := Uint160FromHex("f9ffa64482b38c0dc7841cf27d25a9f03dfb0381")
	require.NoError(t, err)
	require.NoError(t, tx.AddSigner(Signer{Account: acct, Scope: ScopeGlobal}))
	return tx
}

func TestTransaction_UnsignedBytes(t *testing.T) {
	tx := testTransaction(t)
	raw, err := tx.UnsignedBytes()
	require.NoError(t, err)

	// version, nonce, sysfee, netfee, vub, 1 signer (20+1), 0 atributos, script
	wantLen := 1 + 4 + 8 + 8 + 4 + 1 + 21 + 1 + 1 + len(tx.Script)
	require.Len(t, raw, wantLen)

	assert.Equal(t, byte(0), raw[0])
	assert.Equal(t, uint32(0x01020304), binary.LittleEndian.Uint32(raw[1:5]))
	assert.Equal(t, uint64(997775), binary.LittleEndian.Uint64(raw[5:13]))
	assert.Equal(t, uint64(123456), binary.LittleEndian.Uint64(raw[13:21]))
	assert.Equal(t, uint32(5000000), binary.LittleEndian.Uint32(raw[21:25]))

	assert.Equal(t, byte(1), raw[25]) // um signer
	assert.Equal(t, tx.Signers[0].Account.BytesLE(), raw[26:46])
	assert.Equal(t, byte(ScopeGlobal), raw[46])
	assert.Equal(t, byte(0), raw[47]) // sem atributos
	assert.Equal(t, byte(len(tx.Script)), raw[48])
	assert.Equal(t, tx.Script, raw[49:])
}

func TestTransaction_RequiresScriptAndSigner(t *testing.T) {
	tx := &Transaction{}
	_, err := tx.UnsignedBytes()
	assert.Error(t, err)

	tx.Script = []byte{0x10}
	_, err = tx.UnsignedBytes()
	assert.Error(t, err)
}

func TestTransaction_AddSigner_Duplicate(t *testing.T) {
	tx := testTransaction(t)
	err := tx.AddSigner(Signer{Account: tx.Signers[0].Account, Scope: ScopeCalledByEntry})
	assert.Error(t, err)
	assert.Len(t, tx.Signers, 1)
}

func TestTransaction_HashAndTxID(t *testing.T) {
	tx := testTransaction(t)

	raw, err := tx.UnsignedBytes()
	require.NoError(t, err)
	want := sha256.Sum256(raw)

	h, err := tx.Hash()
	require.NoError(t, err)
	assert.Equal(t, want, h)

	// txid é o hash em hex invertido, com prefixo 0x
	txID, err := tx.TxID()
	require.NoError(t, err)
	require.Len(t, txID, 2+64)
	assert.Equal(t, "0x", txID[:2])

	rev := want
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	assert.Equal(t, "0x"+hex.EncodeToString(rev[:]), txID)
}

func TestTransaction_SignData(t *testing.T) {
	tx := testTransaction(t)
	const magic = uint32(844378958)

	data, err := tx.SignData(magic)
	require.NoError(t, err)
	require.Len(t, data, 4+32)
	assert.Equal(t, magic, binary.LittleEndian.Uint32(data[:4]))

	h, err := tx.Hash()
	require.NoError(t, err)
	assert.Equal(t, h[:], data[4:])
}

func TestTransaction_Sign(t *testing.T) {
	tx := testTransaction(t)
	acc, err := DecodeWIF(EncodeWIF(testPrivKey(t)))
	require.NoError(t, err)
	const magic = uint32(844378958)

	require.NoError(t, tx.Sign(acc, magic))
	require.Len(t, tx.Witnesses, 1)

	wit := tx.Witnesses[0]
	assert.Equal(t, acc.VerificationScript, wit.Verification)

	// invocation é PUSHDATA1 <assinatura DER>
	require.Greater(t, len(wit.Invocation), 2)
	assert.Equal(t, byte(opPushData1), wit.Invocation[0])
	sig := wit.Invocation[2:]
	assert.Equal(t, int(wit.Invocation[1]), len(sig))

	data, err := tx.SignData(magic)
	require.NoError(t, err)
	assert.True(t, acc.VerifySignature(data, sig))

	// bytes completos = corpo sem assinatura + witnesses
	unsigned, err := tx.UnsignedBytes()
	require.NoError(t, err)
	full, err := tx.Bytes()
	require.NoError(t, err)
	require.Greater(t, len(full), len(unsigned))
	assert.Equal(t, unsigned, full[:len(unsigned)])
	assert.Equal(t, byte(1), full[len(unsigned)]) // uma witness
}

func TestTransaction_SignRequiresAccount(t *testing.T) {
	tx := testTransaction(t)
	assert.Error(t, tx.Sign(nil, 1))
}

func TestWriteVarInt(t *testing.T) {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{0xFC, []byte{0xFC}},
		{0xFD, []byte{0xFD, 0xFD, 0x00}},
		{0xFFFF, []byte{0xFD, 0xFF, 0xFF}},
		{0x10000, []byte{0xFE, 0x00, 0x00, 0x01, 0x00}},
	}
	for _, tc := range cases {
		buf := &bytes.Buffer{}
		writeVarInt(buf, tc.v)
		assert.Equal(t, tc.want, buf.Bytes())
	}
}
