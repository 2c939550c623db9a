package flow

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/radieske/flyby-bet-gateway/internal/chain"
	"github.com/radieske/flyby-bet-gateway/internal/gateway/bet"
	"github.com/radieske/flyby-bet-gateway/internal/gateway/catalog"
)

// State é o passo ativo da sessão. Exatamente um está ativo por vez e as
// transições só andam para frente; o retorno a AwaitingCredential acontece
// apenas em falha irrecuperável durante SelectingBet.
type State int

const (
	StateAwaitingCredential State = iota
	StateSelectingBet
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateAwaitingCredential:
		return "AWAITING_CREDENTIAL"
	case StateSelectingBet:
		return "SELECTING_BET"
	case StateConfirmed:
		return "CONFIRMED"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrInvalidCredential é a falha local de validação da credencial.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrBetInFlight rejeita um segundo place-bet com um em andamento.
	ErrBetInFlight = errors.New("a bet is already in flight")
	// ErrSessionDone: sessão confirmada é terminal; abra outra sessão.
	ErrSessionDone = errors.New("session already confirmed")
	// ErrNotSelecting: operação só vale no passo de seleção.
	ErrNotSelecting = errors.New("session is not selecting a bet")
	// ErrNoSelection: aposta exige pool e opção escolhidas.
	ErrNoSelection = errors.New("pool and option must be selected")
	// ErrUnknownPool: pool fora do catálogo corrente.
	ErrUnknownPool = errors.New("pool not present in catalog")
	// ErrUnknownOption: opção fora da pool selecionada.
	ErrUnknownOption = errors.New("option not present in selected pool")
)

// Confirmation é o payload terminal da sessão.
type Confirmation struct {
	Address  string
	PoolName string
	Option   string
	TxID     string
}

type catalogLister interface {
	List(ctx context.Context, contract chain.Uint160) ([]catalog.Pool, error)
}

type betPlacer interface {
	Place(ctx context.Context, cfg *chain.TxConfig, sel bet.Selection) (*bet.Receipt, error)
}

// Deployment são as constantes fixas injetadas em cada sessão.
type Deployment struct {
	Contract        chain.Uint160
	NetworkMagic    uint32
	NodeURL         string
	ExpiryIncrement uint32
	SystemFee       int64
	NetworkFee      int64
}

// Machine é a máquina de fluxo de uma sessão: valida a credencial, carrega
// o catálogo, guarda a seleção e dispara o construtor de apostas. É a
// única dona do TxConfig e do estado; fetcher e builder recebem o config
// por referência e não o mutam.
type Machine struct {
	mu sync.Mutex

	log    *zap.Logger
	dep    Deployment
	lister catalogLister
	placer betPlacer

	state    State
	cfg      *chain.TxConfig
	catalog  []catalog.Pool
	pool     *catalog.Pool
	option   *catalog.Option
	lastErr  error
	inFlight bool
	// gen invalida respostas assíncronas de requisições supersedidas
	gen uint64

	confirmation *Confirmation
}

func NewMachine(log *zap.Logger, dep Deployment, lister catalogLister, placer betPlacer) *Machine {
	return &Machine{
		log:    log,
		dep:    dep,
		lister: lister,
		placer: placer,
		state:  StateAwaitingCredential,
	}
}

// SubmitCredential valida a credencial e, em sucesso, deriva a conta e
// avança para a seleção. Último valor aceito corresponde sempre à última
// entrada: cada chamada substitui integralmente a anterior.
func (m *Machine) SubmitCredential(wif string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateConfirmed {
		return ErrSessionDone
	}
	acc, err := chain.DecodeWIF(wif)
	if err != nil {
		m.lastErr = ErrInvalidCredential
		return ErrInvalidCredential
	}

	m.cfg = &chain.TxConfig{
		Account:         acc,
		Contract:        m.dep.Contract,
		NetworkMagic:    m.dep.NetworkMagic,
		NodeURL:         m.dep.NodeURL,
		ExpiryIncrement: m.dep.ExpiryIncrement,
		SystemFee:       m.dep.SystemFee,
		NetworkFee:      m.dep.NetworkFee,
	}
	m.state = StateSelectingBet
	m.catalog = nil
	m.pool = nil
	m.option = nil
	m.lastErr = nil
	m.gen++ // respostas de fetch do config anterior ficam obsoletas
	m.log.Info("credential accepted", zap.String("address", acc.Address))
	return nil
}

// RefreshCatalog busca as pools abertas. Falha preserva o catálogo
// anterior; resposta de uma geração supersedida é descartada.
func (m *Machine) RefreshCatalog(ctx context.Context) ([]catalog.Pool, error) {
	m.mu.Lock()
	if m.state != StateSelectingBet || m.cfg == nil {
		m.mu.Unlock()
		return nil, ErrNotSelecting
	}
	gen := m.gen
	contract := m.cfg.Contract
	m.mu.Unlock()

	pools, err := m.lister.List(ctx, contract)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		// resposta pertence a uma sessão/credencial já substituída
		m.log.Debug("stale catalog response discarded")
		return m.snapshotCatalog(), nil
	}
	if err != nil {
		m.lastErr = err
		return nil, err
	}
	m.catalog = pools
	m.lastErr = nil
	m.revalidateSelection()
	return m.snapshotCatalog(), nil
}

// revalidateSelection limpa seleções que não existem mais no catálogo.
func (m *Machine) revalidateSelection() {
	if m.pool == nil {
		return
	}
	for i := range m.catalog {
		if bytes.Equal(m.catalog[i].ID, m.pool.ID) {
			m.pool = &m.catalog[i]
			return
		}
	}
	m.pool = nil
	m.option = nil
}

// SelectPool escolhe uma pool do catálogo; qualquer opção anterior é
// invalidada, mesmo que a nova pool tenha uma opção homônima.
func (m *Machine) SelectPool(id []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateSelectingBet {
		return ErrNotSelecting
	}
	for i := range m.catalog {
		if bytes.Equal(m.catalog[i].ID, id) {
			m.pool = &m.catalog[i]
			m.option = nil
			return nil
		}
	}
	return ErrUnknownPool
}

// SelectOption escolhe uma opção da pool selecionada.
func (m *Machine) SelectOption(label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateSelectingBet {
		return ErrNotSelecting
	}
	if m.pool == nil {
		return ErrNoSelection
	}
	for i := range m.pool.Options {
		if m.pool.Options[i].Label == label {
			m.option = &m.pool.Options[i]
			return nil
		}
	}
	return ErrUnknownOption
}

// PlaceBet dispara o construtor. Chamada concorrente com uma aposta em
// andamento é rejeitada, nunca enfileirada. Sucesso confirma a sessão;
// falha volta para a entrada de credencial com a credencial limpa e o
// erro retido para exibição.
func (m *Machine) PlaceBet(ctx context.Context) (*Confirmation, error) {
	m.mu.Lock()
	if m.state != StateSelectingBet {
		m.mu.Unlock()
		if m.state == StateConfirmed {
			return nil, ErrSessionDone
		}
		return nil, ErrNotSelecting
	}
	if m.inFlight {
		m.mu.Unlock()
		return nil, ErrBetInFlight
	}
	if m.pool == nil || m.option == nil {
		m.mu.Unlock()
		return nil, ErrNoSelection
	}
	m.inFlight = true
	cfg := m.cfg
	sel := bet.Selection{Pool: *m.pool, Option: *m.option}
	m.mu.Unlock()

	receipt, err := m.placer.Place(ctx, cfg, sel)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false
	if err != nil {
		// força reentrada: a conta pode estar obsoleta após a falha
		m.state = StateAwaitingCredential
		m.cfg = nil
		m.pool = nil
		m.option = nil
		m.lastErr = err
		m.gen++
		m.log.Warn("bet failed, session reset", zap.Error(err))
		return nil, err
	}

	m.state = StateConfirmed
	m.confirmation = &Confirmation{
		Address:  cfg.Account.Address,
		PoolName: receipt.PoolName,
		Option:   receipt.Option,
		TxID:     receipt.TxID,
	}
	m.lastErr = nil
	return m.confirmation, nil
}

// --- leituras ---

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Address retorna o endereço da conta da sessão ("" antes da credencial).
func (m *Machine) Address() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil || m.cfg.Account == nil {
		return ""
	}
	return m.cfg.Account.Address
}

func (m *Machine) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Machine) Catalog() []catalog.Pool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotCatalog()
}

func (m *Machine) snapshotCatalog() []catalog.Pool {
	out := make([]catalog.Pool, len(m.catalog))
	copy(out, m.catalog)
	return out
}

// Selection retorna a pool e opção correntes (nil quando não escolhidas).
func (m *Machine) Selection() (*catalog.Pool, *catalog.Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool, m.option
}

func (m *Machine) Confirmation() *Confirmation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmation
}
