package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/flyby-bet-gateway/internal/chain"
)

// Pool é uma pool de apostas aberta no contrato. Decodificada uma vez por
// consulta e imutável depois disso; a ordem das opções é a ordem de
// retorno do contrato e é preservada à risca.
type Pool struct {
	ID      []byte
	Name    string
	Options []Option
}

// Option é uma opção apostável de uma pool.
type Option struct {
	ID    []byte
	Label string
}

// FetchError indica falha de transporte/nó na consulta. O chamador deve
// preservar o catálogo anterior; a consulta é idempotente e repetível.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("catalog fetch failed: %v", e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError indica que o resultado não seguiu o esquema posicional
// esperado. Nunca é degradado para um skip parcial.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog decode failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("catalog decode failed: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// invoker é a fatia do cliente RPC que o fetcher precisa.
type invoker interface {
	InvokeFunction(ctx context.Context, contract chain.Uint160, operation string, params []chain.ContractParam) (*chain.InvokeResult, error)
}

// Fetcher consulta as pools abertas via invocação de leitura
// "list_on_going_pools" (sem assinatura, sem taxas).
type Fetcher struct {
	node invoker
	log  *zap.Logger
}

func NewFetcher(node invoker, log *zap.Logger) *Fetcher {
	return &Fetcher{node: node, log: log}
}

const listPoolsOperation = "list_on_going_pools"

// List retorna as pools abertas na ordem devolvida pelo contrato.
func (f *Fetcher) List(ctx context.Context, contract chain.Uint160) ([]Pool, error) {
	res, err := f.node.InvokeFunction(ctx, contract, listPoolsOperation, nil)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	if res.Faulted() {
		return nil, &FetchError{Err: fmt.Errorf("node reported %s: %s", res.State, res.Exception)}
	}

	pools := make([]Pool, 0, len(res.Stack))
	for i, item := range res.Stack {
		pool, err := decodePool(item)
		if err != nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("stack item %d", i), Err: err}
		}
		pools = append(pools, pool)
	}
	f.log.Debug("catalog fetched", zap.Int("pools", len(pools)))
	return pools, nil
}

// decodePool aplica o esquema posicional fixo do contrato:
// item -> [0] = array [pool_id, creator, description, options, result];
// índice 0 = id (bytes), 2 = nome (texto), 3 = opções (bytes, cada uma
// também decodificada como texto).
func decodePool(item chain.StackItem) (Pool, error) {
	wrapper, err := item.Array()
	if err != nil {
		return Pool{}, err
	}
	if len(wrapper) < 1 {
		return Pool{}, fmt.Errorf("empty pool wrapper")
	}
	fields, err := wrapper[0].Array()
	if err != nil {
		return Pool{}, err
	}
	if len(fields) < 4 {
		return Pool{}, fmt.Errorf("pool has %d fields, want at least 4", len(fields))
	}

	id, err := fields[0].Bytes()
	if err != nil {
		return Pool{}, fmt.Errorf("pool id: %w", err)
	}
	name, err := fields[2].Bytes()
	if err != nil {
		return Pool{}, fmt.Errorf("pool name: %w", err)
	}
	optionItems, err := fields[3].Array()
	if err != nil {
		return Pool{}, fmt.Errorf("pool options: %w", err)
	}

	options := make([]Option, 0, len(optionItems))
	for i, opt := range optionItems {
		b, err := opt.Bytes()
		if err != nil {
			return Pool{}, fmt.Errorf("option %d: %w", i, err)
		}
		options = append(options, Option{ID: b, Label: string(b)})
	}

	return Pool{ID: id, Name: string(name), Options: options}, nil
}
