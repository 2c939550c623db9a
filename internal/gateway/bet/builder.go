package bet

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/radieske/flyby-bet-gateway/internal/chain"
	"github.com/radieske/flyby-bet-gateway/internal/gateway/catalog"
)

// Selection é a aposta escolhida: uma pool e uma opção dessa pool. O
// invariante (opção pertence à pool selecionada) é garantido pela máquina
// de fluxo antes de chegar aqui.
type Selection struct {
	Pool   catalog.Pool
	Option catalog.Option
}

// Receipt é o comprovante de uma transação transmitida.
type Receipt struct {
	TxID            string
	PoolName        string
	Option          string
	ValidUntilBlock uint32
	SystemFee       int64
	NetworkFee      int64
}

// Passos do construtor, na ordem estrita de execução.
const (
	StepScript    = "script"
	StepExpiry    = "expiry"
	StepSigner    = "signer"
	StepFees      = "fees"
	StepSign      = "sign"
	StepBroadcast = "broadcast"
)

// BuildError identifica em qual passo a montagem abortou. Falha em
// qualquer passo anula a operação inteira: assinado-mas-não-transmitido
// nunca é sucesso.
type BuildError struct {
	Step string
	Err  error
}

func (e *BuildError) Error() string { return fmt.Sprintf("bet build failed at %s: %v", e.Step, e.Err) }
func (e *BuildError) Unwrap() error { return e.Err }

// nodeClient é a fatia do cliente RPC que o construtor usa.
type nodeClient interface {
	GetBlockCount(ctx context.Context) (uint32, error)
	InvokeScript(ctx context.Context, script []byte, signers []chain.Signer) (*chain.InvokeResult, error)
	CalculateNetworkFee(ctx context.Context, rawTx []byte) (int64, error)
	SendRawTransaction(ctx context.Context, rawTx []byte) (string, error)
}

// Builder monta, taxa, assina e transmite a transação de aposta. Operação
// de tiro único do ponto de vista do chamador: repetir às cegas arrisca
// aposta dupla, então falha devolve o controle à seleção.
type Builder struct {
	node nodeClient
	log  *zap.Logger
}

func NewBuilder(node nodeClient, log *zap.Logger) *Builder {
	return &Builder{node: node, log: log}
}

const betOperation = "bet"

// Place executa os seis passos em sequência estrita. Nenhum par de passos
// roda concorrentemente para a mesma invocação.
func (b *Builder) Place(ctx context.Context, cfg *chain.TxConfig, sel Selection) (*Receipt, error) {
	if cfg == nil || cfg.Account == nil {
		return nil, &BuildError{Step: StepScript, Err: errors.New("missing account config")}
	}

	// 1) script de invocação: bet(Hash160 apostador, ByteArray pool, String opção).
	// Ordem e tipos são formato de wire do contrato; não alterar.
	sb := chain.NewScriptBuilder()
	err := sb.EmitContractCall(cfg.Contract, betOperation, []chain.ContractParam{
		chain.Hash160Param(cfg.Account.ScriptHash),
		chain.ByteArrayParam(sel.Pool.ID),
		chain.StringParam(sel.Option.Label),
	})
	if err != nil {
		return nil, &BuildError{Step: StepScript, Err: err}
	}

	tx := &chain.Transaction{
		Nonce:  rand.Uint32(),
		Script: sb.Bytes(),
	}

	// 2) janela de validade a partir da altura corrente
	height, err := b.node.GetBlockCount(ctx)
	if err != nil {
		return nil, &BuildError{Step: StepExpiry, Err: err}
	}
	tx.ValidUntilBlock = height + cfg.ExpiryIncrement

	// 3) exatamente um signer, escopo Global (deployment observado)
	if err := tx.AddSigner(chain.Signer{Account: cfg.Account.ScriptHash, Scope: chain.ScopeGlobal}); err != nil {
		return nil, &BuildError{Step: StepSigner, Err: err}
	}

	// 4) taxas — obrigatoriamente depois de expiry e signer, porque a
	// estimativa depende do tamanho final de script e atributos
	if err := b.attachFees(ctx, cfg, tx); err != nil {
		return nil, &BuildError{Step: StepFees, Err: err}
	}

	// 5) assinatura sob o network magic configurado
	if err := tx.Sign(cfg.Account, cfg.NetworkMagic); err != nil {
		return nil, &BuildError{Step: StepSign, Err: err}
	}

	// 6) broadcast
	raw, err := tx.Bytes()
	if err != nil {
		return nil, &BuildError{Step: StepBroadcast, Err: err}
	}
	txID, err := b.node.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, &BuildError{Step: StepBroadcast, Err: err}
	}
	if txID == "" {
		if txID, err = tx.TxID(); err != nil {
			return nil, &BuildError{Step: StepBroadcast, Err: err}
		}
	}

	b.log.Info("bet transaction broadcast",
		zap.String("txId", txID),
		zap.String("pool", sel.Pool.Name),
		zap.String("option", sel.Option.Label),
		zap.Uint32("validUntilBlock", tx.ValidUntilBlock),
	)

	return &Receipt{
		TxID:            txID,
		PoolName:        sel.Pool.Name,
		Option:          sel.Option.Label,
		ValidUntilBlock: tx.ValidUntilBlock,
		SystemFee:       tx.SystemFee,
		NetworkFee:      tx.NetworkFee,
	}, nil
}

// attachFees estima system fee simulando o script e network fee pelo
// tamanho da transação com a witness de tamanho final.
func (b *Builder) attachFees(ctx context.Context, cfg *chain.TxConfig, tx *chain.Transaction) error {
	if cfg.SystemFee > 0 {
		tx.SystemFee = cfg.SystemFee
	} else {
		res, err := b.node.InvokeScript(ctx, tx.Script, tx.Signers)
		if err != nil {
			return err
		}
		if res.Faulted() {
			return fmt.Errorf("script simulation %s: %s", res.State, res.Exception)
		}
		gas, err := res.GasConsumedInt()
		if err != nil {
			return fmt.Errorf("parse gas consumed: %w", err)
		}
		tx.SystemFee = gas
	}

	if cfg.NetworkFee > 0 {
		tx.NetworkFee = cfg.NetworkFee
		return nil
	}
	// witness provisória só para dimensionar; a assinatura real entra no passo 5
	tx.Witnesses = []chain.Witness{{Verification: cfg.Account.VerificationScript}}
	raw, err := tx.Bytes()
	tx.Witnesses = nil
	if err != nil {
		return err
	}
	fee, err := b.node.CalculateNetworkFee(ctx, raw)
	if err != nil {
		return err
	}
	tx.NetworkFee = fee
	return nil
}
