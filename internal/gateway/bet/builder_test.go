package bet

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/radieske/flyby-bet-gateway/internal/chain"
	"github.com/radieske/flyby-bet-gateway/internal/gateway/catalog"
)

// fakeNode injeta falha em qualquer passo e grava o que foi transmitido.
type fakeNode struct {
	height    uint32
	heightErr error

	invokeRes *chain.InvokeResult
	invokeErr error

	netFee    int64
	netFeeErr error

	sendHash  string
	sendErr   error
	sendCalls int
	sentRaw   []byte
}

func (f *fakeNode) GetBlockCount(context.Context) (uint32, error) {
	return f.height, f.heightErr
}

func (f *fakeNode) InvokeScript(context.Context, []byte, []chain.Signer) (*chain.InvokeResult, error) {
	return f.invokeRes, f.invokeErr
}

func (f *fakeNode) CalculateNetworkFee(context.Context, []byte) (int64, error) {
	return f.netFee, f.netFeeErr
}

func (f *fakeNode) SendRawTransaction(_ context.Context, raw []byte) (string, error) {
	f.sendCalls++
	f.sentRaw = raw
	return f.sendHash, f.sendErr
}

func healthyNode() *fakeNode {
	return &fakeNode{
		height:    5000000,
		invokeRes: &chain.InvokeResult{State: "HALT", GasConsumed: "997775"},
		netFee:    123456,
		sendHash:  "0xdeadbeef",
	}
}

func testTxConfig(t *testing.T) *chain.TxConfig {
	t.Helper()
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i + 7)
	}
	priv, _ := btcec.PrivKeyFromBytes(seed[:])
	acc, err := chain.DecodeWIF(chain.EncodeWIF(priv))
	require.NoError(t, err)
	contract, err := chain.Uint160FromHex("f9ffa64482b38c0dc7841cf27d25a9f03dfb0381")
	require.NoError(t, err)
	return &chain.TxConfig{
		Account:         acc,
		Contract:        contract,
		NetworkMagic:    844378958,
		ExpiryIncrement: 5760,
	}
}

func testSelection() Selection {
	return Selection{
		Pool:   catalog.Pool{ID: []byte("p1"), Name: "Game1"},
		Option: catalog.Option{ID: []byte("Away"), Label: "Away"},
	}
}

func TestBuilder_Place(t *testing.T) {
	node := healthyNode()
	b := NewBuilder(node, zaptest.NewLogger(t))

	receipt, err := b.Place(context.Background(), testTxConfig(t), testSelection())
	require.NoError(t, err)

	assert.Equal(t, "0xdeadbeef", receipt.TxID)
	assert.Equal(t, "Game1", receipt.PoolName)
	assert.Equal(t, "Away", receipt.Option)
	assert.Equal(t, uint32(5000000+5760), receipt.ValidUntilBlock)
	assert.Equal(t, int64(997775), receipt.SystemFee)
	assert.Equal(t, int64(123456), receipt.NetworkFee)

	assert.Equal(t, 1, node.sendCalls)
	assert.NotEmpty(t, node.sentRaw)
}

func TestBuilder_Place_FeeOverrides(t *testing.T) {
	node := healthyNode()
	node.invokeErr = errors.New("must not simulate")
	node.netFeeErr = errors.New("must not calculate")
	b := NewBuilder(node, zaptest.NewLogger(t))

	cfg := testTxConfig(t)
	cfg.SystemFee = 111
	cfg.NetworkFee = 222

	receipt, err := b.Place(context.Background(), cfg, testSelection())
	require.NoError(t, err)
	assert.Equal(t, int64(111), receipt.SystemFee)
	assert.Equal(t, int64(222), receipt.NetworkFee)
}

// Falha em qualquer passo anterior ao broadcast não pode transmitir nada.
func TestBuilder_Place_StepFailures(t *testing.T) {
	cause := errors.New("node down")
	cases := []struct {
		name     string
		mutate   func(*fakeNode)
		wantStep string
	}{
		{"expiry", func(n *fakeNode) { n.heightErr = cause }, StepExpiry},
		{"fees invoke error", func(n *fakeNode) { n.invokeErr = cause }, StepFees},
		{"fees simulation fault", func(n *fakeNode) {
			n.invokeRes = &chain.InvokeResult{State: "FAULT", Exception: "abort"}
		}, StepFees},
		{"fees bad gas", func(n *fakeNode) {
			n.invokeRes = &chain.InvokeResult{State: "HALT", GasConsumed: "not-a-number"}
		}, StepFees},
		{"fees network fee error", func(n *fakeNode) { n.netFeeErr = cause }, StepFees},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			node := healthyNode()
			tc.mutate(node)
			b := NewBuilder(node, zaptest.NewLogger(t))

			_, err := b.Place(context.Background(), testTxConfig(t), testSelection())
			var buildErr *BuildError
			require.ErrorAs(t, err, &buildErr)
			assert.Equal(t, tc.wantStep, buildErr.Step)
			assert.Zero(t, node.sendCalls, "nothing may be broadcast after a failed step")
		})
	}
}

func TestBuilder_Place_BroadcastFailure(t *testing.T) {
	node := healthyNode()
	node.sendErr = errors.New("timeout")
	b := NewBuilder(node, zaptest.NewLogger(t))

	_, err := b.Place(context.Background(), testTxConfig(t), testSelection())
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, StepBroadcast, buildErr.Step)
	assert.Equal(t, 1, node.sendCalls)
}

func TestBuilder_Place_MissingAccount(t *testing.T) {
	node := healthyNode()
	b := NewBuilder(node, zaptest.NewLogger(t))

	_, err := b.Place(context.Background(), nil, testSelection())
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, StepScript, buildErr.Step)
	assert.Zero(t, node.sendCalls)
}

// O nó pode responder o broadcast sem hash; o txid local cobre o vazio.
func TestBuilder_Place_LocalTxID(t *testing.T) {
	node := healthyNode()
	node.sendHash = ""
	b := NewBuilder(node, zaptest.NewLogger(t))

	receipt, err := b.Place(context.Background(), testTxConfig(t), testSelection())
	require.NoError(t, err)
	assert.Len(t, receipt.TxID, 2+64)
	assert.Equal(t, "0x", receipt.TxID[:2])
}
